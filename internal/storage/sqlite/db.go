// Package sqlite implements the storefront repositories and the order unit of
// work on an embedded SQLite database through sqlx and the pure-Go
// modernc.org/sqlite driver.
//
// The database is opened with a single connection, so transactions are
// serialized and row locks are not needed.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/xenking/storefront/db"
)

const defaultPragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"

// querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type querier interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var (
	_ querier = (*sqlx.DB)(nil)
	_ querier = (*sqlx.Tx)(nil)
)

// Open opens the database at dsn (a file path, "file:" URI or ":memory:")
// with foreign keys enforced.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	conn, err := sqlx.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("pinging sqlite database: %w", err)
	}
	return conn, nil
}

// RunMigrations executes the embedded SQLite schema. The schema is
// idempotent.
func RunMigrations(ctx context.Context, conn *sqlx.DB) error {
	if _, err := conn.ExecContext(ctx, db.SQLiteSchema); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func withPragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + defaultPragmas
	}
	return dsn + "?" + defaultPragmas
}

func lastInsertID(res sql.Result) (int64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted id: %w", err)
	}
	return id, nil
}
