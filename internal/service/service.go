// Package service wires the REST API: it parses and validates requests,
// delegates to the persistence gateway, and translates errors into HTTP
// status codes.
package service

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"gitlab.com/quickcontacts/contacts-api/internal/model"
	"gitlab.com/quickcontacts/contacts-api/internal/store"
)

const (
	serviceName    = "QuickContacts API"
	serviceVersion = "1.0.0"
)

// Config holds the router options that do not come from the store.
type Config struct {
	// RequestLogging enables gin's per-request logging middleware.
	RequestLogging bool
	// CORSOrigins lists the origins allowed to call the API from a
	// browser, typically the development frontend.
	CORSOrigins []string
}

// server bundles the dependencies of the request handlers. Handlers keep no
// state of their own across calls.
type server struct {
	store *store.Store
}

// SetupHttpRouter initializes the REST API router and registers all
// endpoints against the given store.
func SetupHttpRouter(st *store.Store, cfg Config) *gin.Engine {
	var router *gin.Engine
	if cfg.RequestLogging {
		router = gin.Default()
	} else {
		router = gin.New()
		router.Use(gin.Recovery())
	}
	if len(cfg.CORSOrigins) > 0 {
		router.Use(corsMiddleware(cfg.CORSOrigins))
	}
	s := &server{store: st}
	router.GET("/health", s.healthCheck)
	router.GET("/contacts", s.findContacts)
	router.POST("/contacts", s.createContact)
	router.POST("/contacts/batch", s.createContactBatch)
	router.GET("/contacts/:id", s.findContactByID)
	router.PUT("/contacts/:id", s.updateContactByID)
	router.DELETE("/contacts/:id", s.deleteContactByID)
	return router
}

// corsMiddleware answers preflight requests and stamps the CORS headers for
// the allowed origins.
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, origin := range origins {
		allowed[origin] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if !allowed[origin] {
			c.Next()
			return
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// healthCheck responds with a constant healthy status payload.
//
// Example REST API call:
//
//	> curl "http://localhost:8080/health"
func (s *server) healthCheck(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// findContacts responds with a list of contacts as JSON.
//
// The URL parameters 'name', 'email', and 'phone' are case-insensitive
// substring filters that combine with AND. The URL parameter 'search'
// matches the same way against all three fields at once, ORed, and is ANDed
// with the other filters.
//
// The URL parameter 'limit' (1 to 1000, default 100) caps how many contacts
// are returned; 'skip' (default 0) skips that many items from the sorted
// result, so together they implement paging.
//
// The URL parameter 'sort_by' accepts 'created_at', 'name', 'email', and
// 'id'; anything else falls back to 'created_at'. The URL parameter
// 'sort_order' accepts 'asc' and 'desc' and defaults to 'desc'.
//
// REST API calls:
//
//	> curl "http://localhost:8080/contacts"
//	> curl "http://localhost:8080/contacts?name=ali&email=example.com"
//	> curl "http://localhost:8080/contacts?search=555"
//	> curl "http://localhost:8080/contacts?limit=20&skip=60"
//	> curl "http://localhost:8080/contacts?sort_by=name&sort_order=asc"
func (s *server) findContacts(c *gin.Context) {
	skip, limit, successSkipAndLimit := parseSkipAndLimit(c)
	if !successSkipAndLimit {
		return
	}
	params := store.ListParams{
		Skip:      skip,
		Limit:     limit,
		Name:      c.Query("name"),
		Email:     c.Query("email"),
		Phone:     c.Query("phone"),
		Search:    c.Query("search"),
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}
	contacts, err := s.store.List(c.Request.Context(), params)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, contacts)
}

// parseSkipAndLimit inspects the URL parameters and determines values for
// skip and limit of the result set. Out-of-range values are rejected with
// UNPROCESSABLE ENTITY before anything reaches the query builder.
func parseSkipAndLimit(c *gin.Context) (skip int, limit int, success bool) {
	skip = 0
	if raw := c.Query("skip"); raw != "" {
		var err error
		skip, err = strconv.Atoi(raw)
		if err != nil || skip < 0 {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"message": "invalid skip parameter"})
			return 0, 0, false
		}
	}
	limit = store.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		var err error
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > store.MaxLimit {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"message": "invalid limit parameter"})
			return 0, 0, false
		}
	}
	return skip, limit, true
}

// parseID inspects the id path parameter. Non-numeric ids are treated the
// same as ids that do not exist.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "invalid id parameter"})
		return 0, false
	}
	return id, true
}

// abortWithStoreError translates a store failure into an HTTP response: the
// not-found signal becomes 404, a timed-out operation becomes 503, and
// anything else is a plain server error.
func abortWithStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
	case errors.Is(err, context.DeadlineExceeded):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "store operation timed out"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}

// abortWithValidationError responds with UNPROCESSABLE ENTITY and the
// per-field messages.
func abortWithValidationError(c *gin.Context, verr *model.ValidationError) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
		"message": "validation failed",
		"errors":  verr.Fields,
	})
}

// findContactByID locates the contact whose ID value matches the id
// parameter of the request URL, then returns that contact as a response.
//
// Example REST API call:
//
//	> curl "http://localhost:8080/contacts/56"
func (s *server) findContactByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	contact, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, contact)
}

// createContact validates the contact specified in the request's JSON and
// inserts it into the database. It responds with the full contact data
// including the newly assigned id and creation time.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts --request "POST" --include --header "Content-Type: application/json" --data '{"name": "Alice", "phone": "+1 (555) 000-0000", "email": "alice@example.com"}'
func (s *server) createContact(c *gin.Context) {
	var payload model.ContactCreate
	if err := c.BindJSON(&payload); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	var verr *model.ValidationError
	if err := payload.Validate(); errors.As(err, &verr) {
		abortWithValidationError(c, verr)
		return
	}
	contact, err := s.store.Create(c.Request.Context(), payload)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, contact)
}

// createContactBatch validates every element of the submitted array before
// persisting any of them, then inserts them all in one transaction. An
// invalid element rejects the whole batch; a failed insert rolls the whole
// batch back so that no partial batch ever becomes visible.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/batch --request "POST" --include --header "Content-Type: application/json" --data '[{"name": "Alice", "phone": "+1 (555) 000-0000", "email": "alice@example.com"}]'
func (s *server) createContactBatch(c *gin.Context) {
	var payloads []model.ContactCreate
	if err := c.BindJSON(&payloads); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	if len(payloads) == 0 {
		// An empty array creates nothing and succeeds.
		c.IndentedJSON(http.StatusCreated, []model.Contact{})
		return
	}
	for i := range payloads {
		var verr *model.ValidationError
		if err := payloads[i].Validate(); errors.As(err, &verr) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
				"message": "validation failed for element " + strconv.Itoa(i),
				"errors":  verr.Fields,
			})
			return
		}
	}
	contacts, err := s.store.CreateBatch(c.Request.Context(), payloads)
	if err != nil {
		// Insert failures at this point are typically constraint
		// violations, so the caller gets a BAD REQUEST; timeouts still
		// map to SERVICE UNAVAILABLE.
		if errors.Is(err, context.DeadlineExceeded) {
			abortWithStoreError(c, err)
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "batch creation failed"})
		return
	}
	c.IndentedJSON(http.StatusCreated, contacts)
}

// updateContactByID updates the contact whose ID value matches the id
// parameter of the request URL with the values specified in the JSON (and
// only those), and finally responds with the new version of the contact.
// Present fields must pass the same validation as on creation.
//
// Example REST API calls:
//
//	> curl http://localhost:8080/contacts/56 --request "PUT" --include --header "Content-Type: application/json" --data '{"phone": "555-123-4567"}'
//	> curl http://localhost:8080/contacts/56 --request "PUT" --include --header "Content-Type: application/json" --data '{"name": "Updated"}'
func (s *server) updateContactByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var payload model.ContactUpdate
	if err := c.BindJSON(&payload); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	var verr *model.ValidationError
	if err := payload.Validate(); errors.As(err, &verr) {
		abortWithValidationError(c, verr)
		return
	}
	if payload.IsEmpty() {
		// Nothing to merge; answer with the stored row as it is.
		contact, err := s.store.Get(c.Request.Context(), id)
		if err != nil {
			abortWithStoreError(c, err)
			return
		}
		c.IndentedJSON(http.StatusOK, contact)
		return
	}
	contact, err := s.store.Update(c.Request.Context(), id, payload)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, contact)
}

// deleteContactByID deletes the contact whose ID value matches the id
// parameter of the request URL from the database. Success is an empty NO
// CONTENT response.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/56 --request "DELETE"
func (s *server) deleteContactByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := s.store.Delete(c.Request.Context(), id); err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RequestLoggingEnabled interprets the GIN_LOGGING environment value the
// same way for every entrypoint: anything except "off" keeps logging on.
func RequestLoggingEnabled(value string) bool {
	return !strings.EqualFold(value, "off")
}
