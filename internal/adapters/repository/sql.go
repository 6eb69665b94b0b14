package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

const snapshotTable = "rating_snapshots"

// SQLKV stores values in the rating_snapshots table of a SQL database.
type SQLKV struct {
	db      *sql.DB
	backend Backend
}

var _ KV = (*SQLKV)(nil)

// driverName maps a SQL backend to its database/sql driver.
func driverName(backend Backend) (string, error) {
	switch backend {
	case BackendSQLite:
		return "sqlite", nil
	case BackendPostgres:
		return "pgx", nil
	case BackendMySQL:
		return "mysql", nil
	default:
		return "", fmt.Errorf("%w: %q is not a SQL backend", ErrUnsupportedBackend, backend)
	}
}

// openDB opens and pings a SQL database.
//
// DSN formats:
//   - sqlite: a file path
//   - postgres: host=localhost port=5432 user=postgres dbname=rapport
//   - mysql: user:password@tcp(host:port)/dbname
func openDB(ctx context.Context, backend Backend, dsn string) (*sql.DB, error) {
	driver, err := driverName(backend)
	if err != nil {
		return nil, err
	}
	if dsn == "" {
		return nil, fmt.Errorf("%s backend needs a DSN", backend)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", backend, err)
	}
	if backend == BackendSQLite {
		// A single connection avoids "database is locked" errors.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", backend, err)
	}
	return db, nil
}

// OpenSQL connects to an already migrated SQL database.
func OpenSQL(ctx context.Context, backend Backend, dsn string) (*SQLKV, error) {
	db, err := openDB(ctx, backend, dsn)
	if err != nil {
		return nil, err
	}
	return &SQLKV{db: db, backend: backend}, nil
}

// Get implements KV.
func (s *SQLKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE rating_key = %s`, snapshotTable, s.placeholder(1))
	var value []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set implements KV.
func (s *SQLKV) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, s.upsertQuery(), key, value, time.Now().UnixMilli())
	return err
}

// Delete implements KV.
func (s *SQLKV) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE rating_key = %s`, snapshotTable, s.placeholder(1))
	_, err := s.db.ExecContext(ctx, query, key)
	return err
}

// Close closes the underlying DB connection.
func (s *SQLKV) Close() error {
	return s.db.Close()
}

// placeholder returns the n-th parameter placeholder for the backend.
func (s *SQLKV) placeholder(n int) string {
	if s.backend == BackendPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// upsertQuery returns the UPSERT query for the backend.
func (s *SQLKV) upsertQuery() string {
	switch s.backend {
	case BackendMySQL:
		return fmt.Sprintf(`INSERT INTO %s (rating_key, payload, updated_at) VALUES (?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE payload = new.payload, updated_at = new.updated_at`, snapshotTable)
	case BackendPostgres:
		return fmt.Sprintf(`INSERT INTO %s (rating_key, payload, updated_at) VALUES ($1, $2, $3)
			ON CONFLICT (rating_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`, snapshotTable)
	default:
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (rating_key, payload, updated_at) VALUES (?, ?, ?)`, snapshotTable)
	}
}
