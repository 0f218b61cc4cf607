package gift

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestInMemoryStore_InsertList_Order(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	st := NewInMemoryStore(WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	for _, name := range []string{"Toalhas", "Panela", "Cafeteira"} {
		if err := st.Insert(ctx, name); err != nil {
			t.Fatalf("insert %q: %v", name, err)
		}
	}

	items, err := st.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	want := []Item{
		{Name: "Toalhas"},
		{Name: "Panela"},
		{Name: "Cafeteira"},
	}
	if diff := cmp.Diff(want, items, cmpopts.IgnoreFields(Item{}, "ID", "CreatedAt")); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}

	for i := 1; i < len(items); i++ {
		if !items[i].CreatedAt.After(items[i-1].CreatedAt) {
			t.Fatalf("created_at not strictly increasing at %d: %v <= %v", i, items[i].CreatedAt, items[i-1].CreatedAt)
		}
	}
	seen := map[string]bool{}
	for _, it := range items {
		if it.ID == "" || seen[it.ID] {
			t.Fatalf("bad or duplicate id %q", it.ID)
		}
		seen[it.ID] = true
	}
}

func TestInMemoryStore_InsertKeepsNameVerbatim(t *testing.T) {
	t.Parallel()

	st := NewInMemoryStore()
	ctx := context.Background()

	if err := st.Insert(ctx, "  Jogo de copos "); err != nil {
		t.Fatalf("insert: %v", err)
	}
	items, _ := st.List(ctx)
	if len(items) != 1 || items[0].Name != "  Jogo de copos " {
		t.Fatalf("expected untrimmed name, got %+v", items)
	}
}

func TestInMemoryStore_UpdateClaim(t *testing.T) {
	t.Parallel()

	st := NewInMemoryStore()
	ctx := context.Background()

	if err := st.Insert(ctx, "Liquidificador"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	items, _ := st.List(ctx)
	id := items[0].ID

	if err := st.UpdateClaim(ctx, id, "Alice"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	items, _ = st.List(ctx)
	if !items[0].Selected || items[0].ClaimedBy() != "Alice" {
		t.Fatalf("expected claimed by Alice, got %+v", items[0])
	}

	// Overwrites an existing claim.
	if err := st.UpdateClaim(ctx, id, "Bob"); err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	items, _ = st.List(ctx)
	if items[0].ClaimedBy() != "Bob" {
		t.Fatalf("expected claim overwritten by Bob, got %q", items[0].ClaimedBy())
	}

	// Unknown id matches nothing and is not an error.
	if err := st.UpdateClaim(ctx, "missing", "Carol"); err != nil {
		t.Fatalf("claim unknown id: %v", err)
	}
}

func TestInMemoryStore_ListReturnsCopies(t *testing.T) {
	t.Parallel()

	st := NewInMemoryStore()
	ctx := context.Background()
	_ = st.Insert(ctx, "Vaso")
	items, _ := st.List(ctx)
	_ = st.UpdateClaim(ctx, items[0].ID, "Alice")

	got, _ := st.List(ctx)
	*got[0].SelectedBy = "Mallory"
	got[0].Name = "changed"

	again, _ := st.List(ctx)
	if again[0].Name != "Vaso" || again[0].ClaimedBy() != "Alice" {
		t.Fatalf("store state leaked through List: %+v", again[0])
	}
}

func TestInMemoryStore_CanceledContext(t *testing.T) {
	t.Parallel()

	st := NewInMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := st.List(ctx); !errors.Is(err, ErrRequestFailed) || !errors.Is(err, context.Canceled) {
		t.Fatalf("list: expected request failure wrapping context.Canceled, got %v", err)
	}
	if err := st.Insert(ctx, "x"); !IsRequestFailure(err) {
		t.Fatalf("insert: expected request failure, got %v", err)
	}
	if err := st.UpdateClaim(ctx, "x", "y"); !IsRequestFailure(err) {
		t.Fatalf("update: expected request failure, got %v", err)
	}
}

func TestInMemoryStore_ConcurrentInsert(t *testing.T) {
	t.Parallel()

	st := NewInMemoryStore()
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = st.Insert(ctx, "item")
		}()
	}
	wg.Wait()

	items, err := st.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != n {
		t.Fatalf("expected %d items, got %d", n, len(items))
	}
}

func TestOpError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := opErr("gift.List", cause)

	var oe OpError
	if !errors.As(err, &oe) || oe.Op != "gift.List" {
		t.Fatalf("expected OpError with op, got %#v", err)
	}
	if !errors.Is(err, ErrRequestFailed) || !errors.Is(err, cause) {
		t.Fatalf("expected both sentinel and cause to match: %v", err)
	}
	if again := opErr("gift.Other", err); again != err {
		t.Fatalf("expected existing OpError to pass through")
	}
	if opErr("x", nil) != nil {
		t.Fatalf("expected nil for nil cause")
	}
}
