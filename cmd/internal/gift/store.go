// Package gift holds the Gift Item record and the Item Store boundary.
//
// The store is the only persistence collaborator of the registry: it lists the
// whole collection, inserts a gift by name and records a claim by id.
// Uniqueness, defaults and concurrent-update arbitration belong to the backend.
package gift

import (
	"context"
	"time"
)

// Item is one registry record as returned by the store.
//
// SelectedBy is nil while Selected is false. The pair is always written by a
// single UpdateClaim call.
type Item struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Selected   bool      `json:"selected"`
	SelectedBy *string   `json:"selected_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// ClaimedBy returns the claimant name or "" when unclaimed.
func (it Item) ClaimedBy() string {
	if it.SelectedBy == nil {
		return ""
	}
	return *it.SelectedBy
}

// Store persists and queries gift items.
//
// Requirements:
//   - List is ordered by created_at ASC
//   - Insert populates only the name; id, selected, selected_by and created_at take store defaults
//   - UpdateClaim sets selected=true and selected_by in one statement; a missing id is not an error
type Store interface {
	List(ctx context.Context) ([]Item, error)
	Insert(ctx context.Context, name string) error
	UpdateClaim(ctx context.Context, id, selectedBy string) error
	Close() error
}
