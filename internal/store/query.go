package store

import (
	"strings"
)

// DefaultLimit is the page size used when the caller does not give one.
const DefaultLimit = 100

// MaxLimit is the largest accepted page size.
const MaxLimit = 1000

// sortColumns maps the accepted sort_by values to table columns. Anything
// not listed here falls back to created_at.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"name":       "name",
	"email":      "email",
	"id":         "id",
}

// ListParams are the validated list-request parameters. The boundary layer
// is responsible for range-checking Skip and Limit before building a query.
type ListParams struct {
	Skip  int
	Limit int

	// Name, Email and Phone are case-insensitive substring filters that
	// combine with AND.
	Name  string
	Email string
	Phone string
	// Search is an additional OR across all three text fields, combined
	// with AND against the filters above.
	Search string

	SortBy    string
	SortOrder string
}

// buildListQuery translates the parameters into one deterministic SELECT
// with '?' bindvars. The caller rebinds for the active dialect.
func buildListQuery(params ListParams) (string, []interface{}) {
	var where []string
	var args []interface{}
	appendContains := func(column, value string) string {
		args = append(args, "%"+strings.ToLower(value)+"%")
		return "LOWER(" + column + ") LIKE ?"
	}
	if params.Name != "" {
		where = append(where, appendContains("name", params.Name))
	}
	if params.Email != "" {
		where = append(where, appendContains("email", params.Email))
	}
	if params.Phone != "" {
		where = append(where, appendContains("phone", params.Phone))
	}
	if params.Search != "" {
		clause := "(" + appendContains("name", params.Search) +
			" OR " + appendContains("email", params.Search) +
			" OR " + appendContains("phone", params.Search) + ")"
		where = append(where, clause)
	}

	var builder strings.Builder
	builder.WriteString("SELECT id, name, phone, email, created_at FROM contacts")
	if len(where) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(where, " AND "))
	}

	column, ok := sortColumns[params.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(params.SortOrder, "asc") {
		direction = "ASC"
	}
	builder.WriteString(" ORDER BY " + column + " " + direction)
	if column != "id" {
		// Tiebreaker so that pagination stays stable when the sort column
		// has duplicate values.
		builder.WriteString(", id " + direction)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	builder.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit, params.Skip)
	return builder.String(), args
}
