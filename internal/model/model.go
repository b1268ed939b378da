package model

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Contact is the data structure for a person that we know, as stored in the
// database and returned by the REST API. The Id and CreatedAt fields are
// assigned by the server and never accepted from clients.
type Contact struct {
	Id        int64     `json:"id"         db:"id"`
	Name      string    `json:"name"       db:"name"`
	Phone     string    `json:"phone"      db:"phone"`
	Email     string    `json:"email"      db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ContactCreate is the payload for creating a contact. All fields are
// required and must pass validation before the contact is persisted.
type ContactCreate struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// ContactUpdate is the payload for partially updating a contact. A nil field
// means "leave the stored value untouched"; a non-nil field overwrites the
// stored value after passing the same validation as on creation.
type ContactUpdate struct {
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Email *string `json:"email,omitempty"`
}

// ValidationError carries one message per rejected field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// maxNameLength is the longest accepted contact name after trimming.
const maxNameLength = 100

// emailPattern accepts local-part@domain where the domain contains at least
// one dot. Case folding is not performed; addresses are stored as given.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(\.[A-Za-z0-9\-]+)+$`)

// phoneStripper removes the formatting characters that are allowed in a
// phone number before checking that only digits remain.
var phoneStripper = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "+", "")

// allDigits reports whether s is non-empty and consists of decimal digits.
func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// validateName trims the name and checks the length constraints. It returns
// the trimmed value, which is what gets stored.
func validateName(name string) (string, string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", "name cannot be empty"
	}
	if utf8.RuneCountInString(trimmed) > maxNameLength {
		return "", fmt.Sprintf("name must be at most %d characters", maxNameLength)
	}
	return trimmed, ""
}

// validatePhone checks the phone number. The original formatting is kept for
// display, so the input string itself is returned on success.
func validatePhone(phone string) (string, string) {
	if length := utf8.RuneCountInString(phone); length < 10 || length > 20 {
		return "", "phone must be between 10 and 20 characters"
	}
	digits := phoneStripper.Replace(phone)
	if !allDigits(digits) {
		return "", "phone may only contain digits, spaces, hyphens, parentheses, and a leading +"
	}
	if len(digits) < 10 {
		return "", "phone must contain at least 10 digits"
	}
	return phone, ""
}

func validateEmail(email string) (string, string) {
	if !emailPattern.MatchString(email) {
		return "", "email is not a valid address"
	}
	return email, ""
}

// Validate checks all fields of a create payload and normalizes the name in
// place. It returns a *ValidationError listing every rejected field, or nil
// if the payload is acceptable.
func (c *ContactCreate) Validate() error {
	fields := make(map[string]string)
	if name, msg := validateName(c.Name); msg != "" {
		fields["name"] = msg
	} else {
		c.Name = name
	}
	if _, msg := validatePhone(c.Phone); msg != "" {
		fields["phone"] = msg
	}
	if _, msg := validateEmail(c.Email); msg != "" {
		fields["email"] = msg
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Validate checks the fields that are present in an update payload and
// normalizes a present name in place. Absent fields are not inspected.
func (u *ContactUpdate) Validate() error {
	fields := make(map[string]string)
	if u.Name != nil {
		if name, msg := validateName(*u.Name); msg != "" {
			fields["name"] = msg
		} else {
			u.Name = &name
		}
	}
	if u.Phone != nil {
		if _, msg := validatePhone(*u.Phone); msg != "" {
			fields["phone"] = msg
		}
	}
	if u.Email != nil {
		if _, msg := validateEmail(*u.Email); msg != "" {
			fields["email"] = msg
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// IsEmpty reports whether the update payload contains no fields at all.
func (u *ContactUpdate) IsEmpty() bool {
	return u.Name == nil && u.Phone == nil && u.Email == nil
}

// ApplyTo copies the present fields of the update payload onto a stored
// contact. Id and CreatedAt are never touched.
func (u *ContactUpdate) ApplyTo(c *Contact) {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Phone != nil {
		c.Phone = *u.Phone
	}
	if u.Email != nil {
		c.Email = *u.Email
	}
}
