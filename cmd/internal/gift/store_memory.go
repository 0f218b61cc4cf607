package gift

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const memMaxItems = 10_000

// InMemoryStore is a dev-only fallback when no backend is configured.
// It mirrors PostgREST update semantics: an unknown id updates nothing and
// an existing claim is overwritten.
type InMemoryStore struct {
	mu    sync.Mutex
	items []Item
	last  time.Time
	now   func() time.Time
}

// MemoryOption configures InMemoryStore.
type MemoryOption func(*InMemoryStore)

// WithClock overrides the time source used for created_at.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *InMemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewInMemoryStore constructs an empty in-memory Store.
func NewInMemoryStore(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		items: make([]Item, 0, 64),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Close closes the store (noop for in-memory).
func (s *InMemoryStore) Close() error { return nil }

// List returns a copy of all items ordered by created_at ASC.
func (s *InMemoryStore) List(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, opErr("gift.List", err)
	}

	s.mu.Lock()
	out := make([]Item, len(s.items))
	for i, it := range s.items {
		out[i] = cloneItem(it)
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Insert appends a new unclaimed item.
func (s *InMemoryStore) Insert(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return opErr("gift.Insert", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) >= memMaxItems {
		return opErr("gift.Insert", ErrInvalidInput)
	}

	// created_at is the only sort key, so keep it strictly increasing.
	ts := s.now()
	if !ts.After(s.last) {
		ts = s.last.Add(time.Microsecond)
	}
	s.last = ts

	s.items = append(s.items, Item{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: ts,
	})
	return nil
}

// UpdateClaim marks the item with the given id as selected by selectedBy.
func (s *InMemoryStore) UpdateClaim(ctx context.Context, id, selectedBy string) error {
	if err := ctx.Err(); err != nil {
		return opErr("gift.UpdateClaim", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		by := selectedBy
		s.items[i].Selected = true
		s.items[i].SelectedBy = &by
		return nil
	}
	return nil
}

func cloneItem(it Item) Item {
	if it.SelectedBy != nil {
		by := *it.SelectedBy
		it.SelectedBy = &by
	}
	return it
}
