// Package store is the persistence gateway for contacts. It owns the
// database connection, the table bootstrap, and the CRUD statements. The
// primary store is PostgreSQL; if it is unreachable at startup the gateway
// falls back once to an embedded SQLite database so that the service stays
// usable in development.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"gitlab.com/quickcontacts/contacts-api/internal/model"
)

// ErrNotFound is returned when no contact exists for the requested id.
var ErrNotFound = errors.New("contact not found")

const (
	dialectPostgres = "pgx"
	// The modernc driver registers itself as "sqlite", but sqlx only knows
	// the bindvar rules of that database under the name "sqlite3".
	dialectSQLite = "sqlite3"
)

const (
	schemaPostgres = `
		CREATE TABLE IF NOT EXISTS contacts (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			phone TEXT NOT NULL,
			email TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`
	schemaSQLite = `
		CREATE TABLE IF NOT EXISTS contacts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			phone TEXT NOT NULL,
			email TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`

	insertContact = `
		INSERT INTO contacts (name, phone, email, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`
	selectContactByID = `
		SELECT id, name, phone, email, created_at FROM contacts WHERE id = ?`
	deleteContactByID = `
		DELETE FROM contacts WHERE id = ?`
)

// Store wraps the database handle together with the dialect it speaks and
// the per-operation timeout.
type Store struct {
	db      *sqlx.DB
	dialect string
	timeout time.Duration
	logger  *slog.Logger
}

// Options configures Open.
type Options struct {
	// PostgresDSN is the connection string of the primary database. Empty
	// means "do not even try PostgreSQL", which the tests use.
	PostgresDSN string
	// SQLitePath is the location of the embedded fallback store. The value
	// ":memory:" and file: URIs are accepted as well.
	SQLitePath string
	// Timeout bounds every store operation including the startup pings.
	// Zero means no bound.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Open connects to the primary database, falling back once to the embedded
// store when the primary is unreachable. Only when both fail does it return
// an error; the caller is expected to treat that as fatal.
func Open(opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PostgresDSN != "" {
		sqlDB, err := openAndPing("pgx", opts.PostgresDSN, opts.Timeout)
		if err == nil {
			logger.Info("connected to primary database")
			return newStore(sqlDB, dialectPostgres, opts.Timeout, logger), nil
		}
		if opts.SQLitePath == "" {
			return nil, fmt.Errorf("connecting to primary database: %w", err)
		}
		logger.Warn("primary database unreachable, falling back to embedded store",
			"error", err, "path", opts.SQLitePath)
	}
	if opts.SQLitePath == "" {
		return nil, errors.New("no database configured")
	}
	sqlDB, err := openAndPing("sqlite", sqliteDSN(opts.SQLitePath), opts.Timeout)
	if err != nil {
		return nil, fmt.Errorf("opening embedded store: %w", err)
	}
	// A single connection keeps the embedded store free of SQLITE_BUSY
	// errors and makes in-memory databases see one consistent schema.
	sqlDB.SetMaxOpenConns(1)
	return newStore(sqlDB, dialectSQLite, opts.Timeout, logger), nil
}

// NewWithDB builds a store around an existing database handle. Unit tests
// use this to inject a sqlmock connection.
func NewWithDB(db *sqlx.DB, timeout time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, dialect: db.DriverName(), timeout: timeout, logger: logger}
}

func newStore(sqlDB *sql.DB, dialect string, timeout time.Duration, logger *slog.Logger) *Store {
	return &Store{db: sqlx.NewDb(sqlDB, dialect), dialect: dialect, timeout: timeout, logger: logger}
}

// sqliteDSN adds the time format option so that time.Time values written
// by the embedded driver can be scanned back into time.Time.
func sqliteDSN(path string) string {
	if strings.Contains(path, "_time_format=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_time_format=sqlite"
}

func openAndPing(driver, dsn string, timeout time.Duration) (*sql.DB, error) {
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for tooling such as cmd/migration.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// EnsureSchema creates the contacts table if it does not exist yet. No
// other migration is ever performed.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	schema := schemaSQLite
	if s.dialect == dialectPostgres {
		schema = schemaPostgres
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating contacts table: %w", err)
	}
	return nil
}

// opCtx bounds a store operation with the configured timeout.
func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// withTx runs fn inside a transaction, rolling back on error and committing
// otherwise. Every exit path releases the transaction.
func (s *Store) withTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("transaction rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Get returns the contact with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (model.Contact, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	var contact model.Contact
	err := s.db.GetContext(ctx, &contact, s.db.Rebind(selectContactByID), id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Contact{}, ErrNotFound
	}
	if err != nil {
		return model.Contact{}, fmt.Errorf("selecting contact %d: %w", id, err)
	}
	return contact, nil
}

// Create persists a validated payload, assigning the id and creation time,
// and returns the stored row.
func (s *Store) Create(ctx context.Context, in model.ContactCreate) (model.Contact, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	contact := model.Contact{
		Name:      in.Name,
		Phone:     in.Phone,
		Email:     in.Email,
		CreatedAt: time.Now().UTC(),
	}
	query := s.db.Rebind(insertContact)
	err := s.db.QueryRowxContext(ctx, query,
		contact.Name, contact.Phone, contact.Email, contact.CreatedAt).Scan(&contact.Id)
	if err != nil {
		return model.Contact{}, fmt.Errorf("inserting contact: %w", err)
	}
	return contact, nil
}

// CreateBatch persists all payloads inside one transaction. If any insert
// fails the whole batch is rolled back and nothing becomes visible.
func (s *Store) CreateBatch(ctx context.Context, ins []model.ContactCreate) ([]model.Contact, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	created := make([]model.Contact, 0, len(ins))
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(insertContact)
		for i, in := range ins {
			contact := model.Contact{
				Name:      in.Name,
				Phone:     in.Phone,
				Email:     in.Email,
				CreatedAt: time.Now().UTC(),
			}
			err := tx.QueryRowxContext(ctx, query,
				contact.Name, contact.Phone, contact.Email, contact.CreatedAt).Scan(&contact.Id)
			if err != nil {
				return fmt.Errorf("inserting contact %d of %d: %w", i+1, len(ins), err)
			}
			created = append(created, contact)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update loads the contact, applies the present fields of the partial
// payload, and persists the result, all inside one transaction. The payload
// must already be validated.
func (s *Store) Update(ctx context.Context, id int64, in model.ContactUpdate) (model.Contact, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	var updated model.Contact
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var contact model.Contact
		err := tx.GetContext(ctx, &contact, tx.Rebind(selectContactByID), id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("selecting contact %d: %w", id, err)
		}
		var assignments []string
		var args []interface{}
		if in.Name != nil {
			assignments = append(assignments, "name = ?")
			args = append(args, *in.Name)
		}
		if in.Phone != nil {
			assignments = append(assignments, "phone = ?")
			args = append(args, *in.Phone)
		}
		if in.Email != nil {
			assignments = append(assignments, "email = ?")
			args = append(args, *in.Email)
		}
		if len(assignments) == 0 {
			updated = contact
			return nil
		}
		query := "UPDATE contacts SET " + strings.Join(assignments, ", ") + " WHERE id = ?"
		args = append(args, id)
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("updating contact %d: %w", id, err)
		}
		in.ApplyTo(&contact)
		updated = contact
		return nil
	})
	if err != nil {
		return model.Contact{}, err
	}
	return updated, nil
}

// Delete removes the contact with the given id. ErrNotFound is returned if
// no row was deleted.
func (s *Store) Delete(ctx context.Context, id int64) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	result, err := s.db.ExecContext(ctx, s.db.Rebind(deleteContactByID), id)
	if err != nil {
		return fmt.Errorf("deleting contact %d: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting contact %d: %w", id, err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the contacts matching the given filters, sorted and paged.
// No match yields an empty slice, never an error.
func (s *Store) List(ctx context.Context, params ListParams) ([]model.Contact, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	query, args := buildListQuery(params)
	contacts := []model.Contact{}
	if err := s.db.SelectContext(ctx, &contacts, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	return contacts, nil
}
