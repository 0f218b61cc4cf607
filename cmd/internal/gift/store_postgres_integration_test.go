package gift

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Integration tests are enabled when GIFTLIST_DATABASE_URL is set.

func TestPostgresStore_InsertListClaim(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := ApplySchema(ctx, pool, schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	st, err := NewPostgresStore(pool, WithSchema(schema))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	for _, name := range []string{"Toalhas", "Panela"} {
		if err := st.Insert(ctx, name); err != nil {
			t.Fatalf("insert %q: %v", name, err)
		}
	}

	items, err := st.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].Name != "Toalhas" || items[1].Name != "Panela" {
		t.Fatalf("unexpected items: %+v", items)
	}
	for _, it := range items {
		if it.Selected || it.SelectedBy != nil || it.ID == "" || it.CreatedAt.IsZero() {
			t.Fatalf("expected store defaults, got %+v", it)
		}
	}

	if err := st.UpdateClaim(ctx, items[1].ID, "Alice"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := st.UpdateClaim(ctx, "00000000-0000-0000-0000-000000000000", "Nobody"); err != nil {
		t.Fatalf("claim unknown id: %v", err)
	}

	items, err = st.List(ctx)
	if err != nil {
		t.Fatalf("list after claim: %v", err)
	}
	if items[0].Selected {
		t.Fatalf("first item should stay unclaimed")
	}
	if !items[1].Selected || items[1].ClaimedBy() != "Alice" {
		t.Fatalf("second item should be claimed by Alice: %+v", items[1])
	}
}

func TestPostgresStore_MissingTableIsRequestFailure(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })

	st, err := NewPostgresStore(pool, WithSchema(schema))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := st.List(ctx); !IsRequestFailure(err) {
		t.Fatalf("expected request failure, got %v", err)
	}
}

func TestNewPostgresStore_Options(t *testing.T) {
	t.Parallel()

	if _, err := NewPostgresStore(nil); err == nil {
		t.Fatalf("expected nil pool error")
	}
	if _, err := SchemaSQL("bad-schema"); err == nil {
		t.Fatalf("expected invalid schema error")
	}
	ddl, err := SchemaSQL("public")
	if err != nil {
		t.Fatalf("schema sql: %v", err)
	}
	if !strings.Contains(ddl, `"public"."gifts"`) {
		t.Fatalf("expected quoted table name in DDL:\n%s", ddl)
	}
}

func mustOpenTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("GIFTLIST_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration test skipped: GIFTLIST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(raw)
	if err != nil {
		t.Fatalf("parse GIFTLIST_DATABASE_URL: %v", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("ping postgres: %v", err)
	}
	return pool
}

func mustCreateTestSchema(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	var b [6]byte
	_, _ = rand.Read(b[:])
	schema := "giftlist_it_" + hex.EncodeToString(b[:])

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := pool.Exec(ctx, `CREATE SCHEMA `+pgx.Identifier{schema}.Sanitize()); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return schema
}

func mustDropSchema(t *testing.T, pool *pgxpool.Pool, schema string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = pool.Exec(ctx, `DROP SCHEMA IF EXISTS `+pgx.Identifier{schema}.Sanitize()+` CASCADE`)
}
