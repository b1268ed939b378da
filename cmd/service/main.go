package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gitlab.com/quickcontacts/contacts-api/internal/config"
	"gitlab.com/quickcontacts/contacts-api/internal/service"
	"gitlab.com/quickcontacts/contacts-api/internal/store"
)

// Usage example on the command line:
// > PORT=8080 POSTGRES_HOST=localhost POSTGRES_USER=postgres POSTGRES_PASSWORD=secret GIN_MODE=release GIN_LOGGING=off go run main.go
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("could not load configuration", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(store.Options{
		PostgresDSN: cfg.PostgresDSN(),
		SQLitePath:  cfg.SQLitePath,
		Timeout:     cfg.StatementTimeout,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("no usable store, giving up", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.EnsureSchema(context.Background()); err != nil {
		logger.Error("could not bootstrap schema", "error", err)
		os.Exit(1)
	}

	router := service.SetupHttpRouter(st, service.Config{
		RequestLogging: service.RequestLoggingEnabled(cfg.GinLogging),
		CORSOrigins:    cfg.CORSOrigins,
	})
	logger.Info("serving", "port", cfg.Port)
	if err := router.Run(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
