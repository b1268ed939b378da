package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/quickcontacts/contacts-api/internal/model"
	"gitlab.com/quickcontacts/contacts-api/internal/service"
	"gitlab.com/quickcontacts/contacts-api/internal/store"
)

// TestDemoServerSeedsAndServes boots the demo store, seeds it, and checks
// that the seeded contacts come back through the REST API.
func TestDemoServerSeedsAndServes(t *testing.T) {
	st, err := setupDemoStore(nil)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, seedDemoData(context.Background(), st))

	gin.SetMode(gin.ReleaseMode)
	router := service.SetupHttpRouter(st, service.Config{})
	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest("GET", "/contacts?sort_by=name&sort_order=asc", nil)
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	var contacts []model.Contact
	json.Unmarshal(recorder.Body.Bytes(), &contacts)
	require.Len(t, contacts, 4)
	assert.Equal(t, "Adam Krummacker", contacts[0].Name)
	assert.Equal(t, "David Krummacker", contacts[1].Name)
	assert.Equal(t, "Dirk Krummacker", contacts[2].Name)
	assert.Equal(t, "Pavla Krummackerova", contacts[3].Name)
}

// TestSeedDemoDataIsIdempotent checks that seeding twice does not duplicate
// the contacts.
func TestSeedDemoDataIsIdempotent(t *testing.T) {
	st, err := setupDemoStore(nil)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, seedDemoData(ctx, st))
	require.NoError(t, seedDemoData(ctx, st))

	contacts, err := st.List(ctx, store.ListParams{})
	require.NoError(t, err)
	assert.Len(t, contacts, 4)
}
