// Package postgres stores providers and outages in PostgreSQL via pgx.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// uniqueReferenceSQL backs insert-if-absent loading. It fails on a table
// that already holds duplicate reference ids.
const uniqueReferenceSQL = `CREATE UNIQUE INDEX IF NOT EXISTS outages_reference_id_key ON outages (reference_id)`

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPool creates and verifies a connection pool.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the providers and outages tables when they do not
// exist. With uniqueReference it also creates the unique index on
// outages.reference_id; check-then-insert loading runs without it so that
// legacy tables holding duplicate ids still start.
func EnsureSchema(ctx context.Context, db DB, uniqueReference bool) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	if !uniqueReference {
		return nil
	}
	if _, err := db.Exec(ctx, uniqueReferenceSQL); err != nil {
		return fmt.Errorf("create reference_id index: %w", err)
	}
	return nil
}
