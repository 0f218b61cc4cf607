package gift

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a Store backed by a gifts table in PostgreSQL.
//
// Ownership model:
// - PostgresStore does NOT own the pgx pool. The caller must close the pool.
// - Close() is therefore a no-op.
//
// Claim arbitration is left to the database: UpdateClaim is a single UPDATE,
// so the last committed claim wins.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures PostgresStore behavior.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the DB schema holding the gifts table (default: "public").
// The schema name is validated and safely quoted in queries.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return errors.New("gift: empty schema")
		}
		if !isValidPGIdent(schema) {
			return errors.New("gift: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a Postgres-backed Store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: DefaultSchema,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, errors.New("gift: nil pool")
	}
	return st, nil
}

// Close is a no-op because the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

// Schema returns the schema the store reads and writes.
func (s *PostgresStore) Schema() string { return s.schema }

// List returns every gift ordered by created_at ASC.
func (s *PostgresStore) List(ctx context.Context) ([]Item, error) {
	const op = "gift.List"
	if s == nil || s.pool == nil {
		return nil, opErr(op, ErrInvalidInput)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, name, selected, selected_by, created_at
		   FROM `+pgIdent(s.schema, giftsTable)+`
		  ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, opErr(op, err)
	}
	defer rows.Close()

	out := make([]Item, 0, 32)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Selected, &it.SelectedBy, &it.CreatedAt); err != nil {
			return nil, opErr(op, err)
		}
		it.CreatedAt = it.CreatedAt.UTC()
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, opErr(op, err)
	}
	return out, nil
}

// Insert creates a gift with only the name set; the table supplies the rest.
func (s *PostgresStore) Insert(ctx context.Context, name string) error {
	const op = "gift.Insert"
	if s == nil || s.pool == nil {
		return opErr(op, ErrInvalidInput)
	}

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO `+pgIdent(s.schema, giftsTable)+` (name) VALUES ($1)`,
		name,
	); err != nil {
		return opErr(op, err)
	}
	return nil
}

// UpdateClaim sets selected and selected_by in one statement.
// Zero affected rows is not an error.
func (s *PostgresStore) UpdateClaim(ctx context.Context, id, selectedBy string) error {
	const op = "gift.UpdateClaim"
	if s == nil || s.pool == nil {
		return opErr(op, ErrInvalidInput)
	}

	if _, err := s.pool.Exec(ctx,
		`UPDATE `+pgIdent(s.schema, giftsTable)+`
		    SET selected = true, selected_by = $2
		  WHERE id::text = $1`,
		id, selectedBy,
	); err != nil {
		return opErr(op, err)
	}
	return nil
}

var pgIdentRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func isValidPGIdent(s string) bool {
	return pgIdentRE.MatchString(s)
}

func pgIdent(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}
