package main

import (
	"context"
	"log/slog"
	"os"

	"gitlab.com/quickcontacts/contacts-api/internal/model"
	"gitlab.com/quickcontacts/contacts-api/internal/service"
	"gitlab.com/quickcontacts/contacts-api/internal/store"
)

// Standalone demo server: runs the full REST API against an embedded
// in-memory database and seeds it with a few contacts. No PostgreSQL and no
// environment setup required. The real entrypoint is cmd/service.
//
// Usage example on the command line:
// > go run contacts-service.go
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	st, err := setupDemoStore(logger)
	if err != nil {
		logger.Error("could not set up demo store", "error", err)
		os.Exit(1)
	}
	defer st.Close()
	if err := seedDemoData(context.Background(), st); err != nil {
		logger.Error("could not seed demo data", "error", err)
		os.Exit(1)
	}
	router := service.SetupHttpRouter(st, service.Config{RequestLogging: true})
	if err := router.Run("localhost:8080"); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// setupDemoStore opens an in-memory database and creates the schema.
func setupDemoStore(logger *slog.Logger) (*store.Store, error) {
	st, err := store.Open(store.Options{
		SQLitePath: "file:quickcontacts-demo?mode=memory&cache=shared",
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	if err := st.EnsureSchema(context.Background()); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// seedDemoData enters initial test data into the database. If the data is
// already present then it is not added again.
func seedDemoData(ctx context.Context, st *store.Store) error {
	initialContacts := []model.ContactCreate{
		{
			Name:  "Dirk Krummacker",
			Phone: "+420 123 456 789",
			Email: "dirk@example.com",
		},
		{
			Name:  "Pavla Krummackerova",
			Phone: "+420 023 454 244",
			Email: "pavla@example.com",
		},
		{
			Name:  "Adam Krummacker",
			Phone: "+420 333 555 777",
			Email: "adam@example.com",
		},
		{
			Name:  "David Krummacker",
			Phone: "+420 333 555 778",
			Email: "david@example.com",
		},
	}
	for _, contact := range initialContacts {
		inDB, err := st.List(ctx, store.ListParams{Name: contact.Name, Limit: 1})
		if err != nil {
			return err
		}
		if len(inDB) == 0 {
			if _, err := st.Create(ctx, contact); err != nil {
				return err
			}
		}
	}
	return nil
}
