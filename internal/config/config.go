// Package config loads the service configuration from environment variables,
// optionally seeded from a .env file in the working directory.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the service reads from its environment.
type Config struct {
	Port int `env:"PORT" envDefault:"8080"`

	DBHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	DBPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	DBUser     string `env:"POSTGRES_USER" envDefault:"postgres"`
	DBPassword string `env:"POSTGRES_PASSWORD" envDefault:""`
	DBName     string `env:"POSTGRES_DB" envDefault:"contacts"`

	// SQLitePath is where the embedded fallback store lives when the
	// primary database is unreachable at startup.
	SQLitePath string `env:"SQLITE_PATH" envDefault:"contacts.db"`

	// StatementTimeout bounds every single store operation.
	StatementTimeout time.Duration `env:"STATEMENT_TIMEOUT" envDefault:"5s"`

	GinLogging  string   `env:"GIN_LOGGING" envDefault:"on"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:3000"`
}

// Load reads a .env file if one is present and then parses the environment.
// A missing .env file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// PostgresDSN renders the connection string for the primary database.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}
