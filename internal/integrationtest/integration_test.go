// Package integrationtest runs the whole service, router to storage,
// against a real embedded database. No external infrastructure is needed.
package integrationtest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/quickcontacts/contacts-api/internal/model"
	"gitlab.com/quickcontacts/contacts-api/internal/service"
	"gitlab.com/quickcontacts/contacts-api/internal/store"
)

// newTestServer boots the full stack on a per-test in-memory database.
func newTestServer(t *testing.T) *gin.Engine {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	st, err := store.Open(store.Options{
		SQLitePath: dsn,
		Timeout:    5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.EnsureSchema(context.Background()))
	gin.SetMode(gin.ReleaseMode)
	return service.SetupHttpRouter(st, service.Config{})
}

// call executes one request against the router and returns the response.
func call(router *gin.Engine, method, url, body string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest(method, url, strings.NewReader(body))
	router.ServeHTTP(recorder, request)
	return recorder
}

func decodeContact(t *testing.T, recorder *httptest.ResponseRecorder) model.Contact {
	var contact model.Contact
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &contact))
	return contact
}

func decodeContacts(t *testing.T, recorder *httptest.ResponseRecorder) []model.Contact {
	var contacts []model.Contact
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &contacts))
	return contacts
}

// TestContactHappyPath tests a POST, GET, PUT, and DELETE with valid data
// against a live database.
func TestContactHappyPath(t *testing.T) {
	router := newTestServer(t)

	// create
	postRecorder := call(router, "POST", "/contacts", `
		{
			"name": "Alice",
			"email": "alice@example.com",
			"phone": "+1 (555) 000-0000"
		}
	`)
	require.Equal(t, http.StatusCreated, postRecorder.Code)
	created := decodeContact(t, postRecorder)
	assert.NotZero(t, created.Id)
	assert.Equal(t, "Alice", created.Name)
	assert.Equal(t, "+1 (555) 000-0000", created.Phone)
	assert.False(t, created.CreatedAt.IsZero())

	id := fmt.Sprintf("%d", created.Id)

	// read back
	getRecorder := call(router, "GET", "/contacts/"+id, "")
	require.Equal(t, http.StatusOK, getRecorder.Code)
	fetched := decodeContact(t, getRecorder)
	assert.Equal(t, created.Id, fetched.Id)
	assert.Equal(t, "Alice", fetched.Name)

	// partial update of the name only
	putRecorder := call(router, "PUT", "/contacts/"+id, `{"name": "Updated"}`)
	require.Equal(t, http.StatusOK, putRecorder.Code)
	updated := decodeContact(t, putRecorder)
	assert.Equal(t, "Updated", updated.Name)
	assert.Equal(t, "alice@example.com", updated.Email)
	assert.Equal(t, "+1 (555) 000-0000", updated.Phone)
	assert.Equal(t, created.Id, updated.Id)

	// delete
	deleteRecorder := call(router, "DELETE", "/contacts/"+id, "")
	assert.Equal(t, http.StatusNoContent, deleteRecorder.Code)
	assert.Empty(t, deleteRecorder.Body.String())

	// gone afterwards
	goneRecorder := call(router, "GET", "/contacts/"+id, "")
	assert.Equal(t, http.StatusNotFound, goneRecorder.Code)
}

// TestBatchCreateAndSortedListing creates three contacts in one batch and
// reads them back sorted by name.
func TestBatchCreateAndSortedListing(t *testing.T) {
	router := newTestServer(t)

	batchRecorder := call(router, "POST", "/contacts/batch", `[
		{"name": "Carla", "phone": "5551234569", "email": "carla@example.com"},
		{"name": "Aaron", "phone": "5551234567", "email": "aaron@example.com"},
		{"name": "Berta", "phone": "5551234568", "email": "berta@example.com"}
	]`)
	require.Equal(t, http.StatusCreated, batchRecorder.Code)
	created := decodeContacts(t, batchRecorder)
	require.Len(t, created, 3)
	for _, contact := range created {
		assert.NotZero(t, contact.Id)
	}

	listRecorder := call(router, "GET", "/contacts?sort_by=name&sort_order=asc", "")
	require.Equal(t, http.StatusOK, listRecorder.Code)
	listed := decodeContacts(t, listRecorder)
	require.Len(t, listed, 3)
	assert.Equal(t, "Aaron", listed[0].Name)
	assert.Equal(t, "Berta", listed[1].Name)
	assert.Equal(t, "Carla", listed[2].Name)
}

// TestBatchValidationIsAtomic sends a batch with one invalid element and
// checks that nothing at all was persisted.
func TestBatchValidationIsAtomic(t *testing.T) {
	router := newTestServer(t)

	batchRecorder := call(router, "POST", "/contacts/batch", `[
		{"name": "Good", "phone": "5551234567", "email": "good@example.com"},
		{"name": "Bad", "phone": "123", "email": "bad@example.com"}
	]`)
	assert.Equal(t, http.StatusUnprocessableEntity, batchRecorder.Code)

	listRecorder := call(router, "GET", "/contacts", "")
	require.Equal(t, http.StatusOK, listRecorder.Code)
	assert.Empty(t, decodeContacts(t, listRecorder))
}

// TestFilteringAndSearch seeds a handful of contacts and exercises the
// filter, search, and pagination parameters.
func TestFilteringAndSearch(t *testing.T) {
	router := newTestServer(t)

	seed := call(router, "POST", "/contacts/batch", `[
		{"name": "Alice Smith", "phone": "5550000001", "email": "alice@example.com"},
		{"name": "Bob Smith", "phone": "5550000002", "email": "bob@other.org"},
		{"name": "Carol Jones", "phone": "5550000003", "email": "carol@example.com"}
	]`)
	require.Equal(t, http.StatusCreated, seed.Code)

	// substring filter on name, case-insensitive
	recorder := call(router, "GET", "/contacts?name=smith", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Len(t, decodeContacts(t, recorder), 2)

	// filters combine with AND
	recorder = call(router, "GET", "/contacts?name=smith&email=example.com", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	contacts := decodeContacts(t, recorder)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Alice Smith", contacts[0].Name)

	// search ORs across name, email, and phone
	recorder = call(router, "GET", "/contacts?search=other.org", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	contacts = decodeContacts(t, recorder)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Bob Smith", contacts[0].Name)

	// a search that matches nothing is an empty list, not an error
	recorder = call(router, "GET", "/contacts?search=no-such-name-xyz", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, decodeContacts(t, recorder))

	// pagination walks the sorted result without overlap
	recorder = call(router, "GET", "/contacts?sort_by=name&sort_order=asc&limit=2", "")
	firstPage := decodeContacts(t, recorder)
	require.Len(t, firstPage, 2)
	recorder = call(router, "GET", "/contacts?sort_by=name&sort_order=asc&limit=2&skip=2", "")
	secondPage := decodeContacts(t, recorder)
	require.Len(t, secondPage, 1)
	assert.NotEqual(t, firstPage[1].Id, secondPage[0].Id)
}

// TestRepeatedGetIsIdempotent reads the same contact twice and expects
// identical responses absent an intervening write.
func TestRepeatedGetIsIdempotent(t *testing.T) {
	router := newTestServer(t)

	postRecorder := call(router, "POST", "/contacts", `
		{"name": "Stable", "phone": "5551234567", "email": "stable@example.com"}
	`)
	require.Equal(t, http.StatusCreated, postRecorder.Code)
	id := fmt.Sprintf("%d", decodeContact(t, postRecorder).Id)

	first := call(router, "GET", "/contacts/"+id, "")
	second := call(router, "GET", "/contacts/"+id, "")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}

// TestDeleteMissingContact deletes an id that never existed and expects a
// clean not-found response.
func TestDeleteMissingContact(t *testing.T) {
	router := newTestServer(t)
	recorder := call(router, "DELETE", "/contacts/424242", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
