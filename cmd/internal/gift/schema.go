package gift

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultSchema is the schema PostgresStore uses unless WithSchema overrides it.
const DefaultSchema = "public"

const giftsTable = "gifts"

// SchemaSQL returns the DDL for the gifts table inside schema.
// gen_random_uuid() is built in from PostgreSQL 13.
func SchemaSQL(schema string) (string, error) {
	if !isValidPGIdent(schema) {
		return "", fmt.Errorf("gift: invalid schema identifier %q: %w", schema, ErrInvalidInput)
	}
	gifts := pgIdent(schema, giftsTable)
	idx := pgx.Identifier{giftsTable + "_created_at_idx"}.Sanitize()

	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  name        TEXT NOT NULL,
  selected    BOOLEAN NOT NULL DEFAULT false,
  selected_by TEXT NULL,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS %s ON %s (created_at);
`, gifts, idx, gifts), nil
}

// ApplySchema creates the gifts table (and the schema itself when missing).
func ApplySchema(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	if pool == nil {
		return fmt.Errorf("gift: nil pool: %w", ErrInvalidInput)
	}
	ddl, err := SchemaSQL(schema)
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, `CREATE SCHEMA IF NOT EXISTS `+pgx.Identifier{schema}.Sanitize()); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create gifts table: %w", err)
	}
	return nil
}
