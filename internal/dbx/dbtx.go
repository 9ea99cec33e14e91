// Package dbx provides tiny DB abstractions shared by repositories:
// a minimal interface (DBTX) implemented by both *sql.DB and *sql.Tx,
// and DSN-based selection of the database/sql driver.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/inkwell/internal/filex"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// DBTX is the subset of database/sql used by our repos.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect names the SQL backend behind a DSN.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DriverName returns the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

// ParseDSN detects the dialect from the DSN scheme and returns the DSN in
// the form the driver expects. "sqlite:" prefixes are stripped; "file:"
// DSNs are passed to the SQLite driver as is.
func ParseDSN(dsn string) (Dialect, string, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return Postgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return SQLite, strings.TrimPrefix(dsn, "sqlite:"), nil
	case strings.HasPrefix(dsn, "file:"):
		return SQLite, dsn, nil
	default:
		return "", "", fmt.Errorf("unsupported database dsn %q", dsn)
	}
}

// Open opens and pings the database behind dsn.
func Open(ctx context.Context, dsn string) (*sql.DB, Dialect, error) {
	dialect, driverDSN, err := ParseDSN(dsn)
	if err != nil {
		return nil, "", err
	}

	if dialect == SQLite {
		driverDSN = withForeignKeys(driverDSN)
	}

	if path, ok := sqliteFilePath(dialect, driverDSN); ok {
		if _, err := filex.EnsureParentDir(path); err != nil {
			return nil, "", fmt.Errorf("db open error: %w", err)
		}
	}

	db, err := sql.Open(dialect.DriverName(), driverDSN)
	if err != nil {
		return nil, "", fmt.Errorf("db open error: %w", err)
	}

	if dialect == SQLite {
		// SQLite allows a single writer; serialize access instead of
		// surfacing SQLITE_BUSY to callers.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("db ping error: %w", err)
	}

	return db, dialect, nil
}

// sqliteFilePath returns the on-disk database file named by a SQLite DSN.
// In-memory databases have none.
func sqliteFilePath(dialect Dialect, dsn string) (string, bool) {
	if dialect != SQLite {
		return "", false
	}
	path, query, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if path == "" || path == ":memory:" || strings.Contains(query, "mode=memory") {
		return "", false
	}
	return path, true
}

// withForeignKeys turns on foreign key enforcement for every SQLite
// connection unless the DSN already sets it.
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}
