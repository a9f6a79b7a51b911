package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TableName returns the prefixed documents table name. The prefix isolates
// environments sharing one database (dev_, test_, prod_).
func TableName(prefix string) string {
	return prefix + "documents"
}

// EnsureSchema creates the documents table and its partition index if they
// do not exist. This is first-run bootstrap, not migration: the shape never
// changes, documents are schemaless JSONB.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, table string) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			partition  TEXT        NOT NULL,
			collection TEXT        NOT NULL,
			id         TEXT        NOT NULL,
			data       JSONB       NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (partition, collection, id)
		)
	`, table)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}

	index := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_partition_idx
		ON %s (partition, collection)
	`, table, table)
	if _, err := pool.Exec(ctx, index); err != nil {
		return fmt.Errorf("create partition index: %w", err)
	}

	return nil
}
