// Package registry implements the Registry View: the per-session state
// container for the gift list, its two paginated projections, the claim
// dialog and the toasts emitted by every store round trip.
//
// Store calls never run under the view lock. Every mutation is followed by
// an unconditional Load, and whichever Load completes last wins.
package registry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"giftlist/cmd/internal/gift"
)

var (
	// ErrEmptyName is returned by AddItem for a blank name. No toast is shown.
	ErrEmptyName = errors.New("empty gift name")

	// ErrEmptyClaimant is returned by ConfirmClaim for a blank claimant.
	ErrEmptyClaimant = errors.New("empty claimant name")

	// ErrNoPendingClaim is returned by ConfirmPendingClaim while the dialog is closed.
	ErrNoPendingClaim = errors.New("no pending claim")

	// ErrUnknownList is returned for a ListID that is neither list.
	ErrUnknownList = errors.New("unknown list")
)

// View holds one session's registry state.
type View struct {
	store  gift.Store
	notify Notifier
	msgs   *Messages
	now    func() time.Time

	mu            sync.Mutex
	items         []gift.Item
	loaded        bool
	draftName     string
	pending       *gift.Item
	claimantName  string
	availablePage int
	selectedPage  int
}

// Option configures a View.
type Option func(*View)

// WithNotifier sets the toast sink (default: discard).
func WithNotifier(n Notifier) Option {
	return func(v *View) {
		if n != nil {
			v.notify = n
		}
	}
}

// WithMessages sets the message catalog printer (default: DefaultLocale).
func WithMessages(m *Messages) Option {
	return func(v *View) {
		if m != nil {
			v.msgs = m
		}
	}
}

// WithNow overrides the notification clock.
func WithNow(now func() time.Time) Option {
	return func(v *View) {
		if now != nil {
			v.now = now
		}
	}
}

// NewView returns an empty view on page 1 of both lists. It does not load.
func NewView(store gift.Store, opts ...Option) *View {
	v := &View{
		store:         store,
		notify:        discardNotifier{},
		now:           func() time.Time { return time.Now().UTC() },
		items:         []gift.Item{},
		availablePage: 1,
		selectedPage:  1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	if v.msgs == nil {
		v.msgs = MustMessages("")
	}
	return v
}

// Load replaces items with the store's full list. On failure items are kept.
func (v *View) Load(ctx context.Context) error {
	items, err := v.store.List(ctx)
	if err != nil {
		v.toast(LevelError, MsgLoadFailed)
		return err
	}
	if items == nil {
		items = []gift.Item{}
	}

	v.mu.Lock()
	v.items = items
	v.loaded = true
	v.mu.Unlock()
	return nil
}

// AddItem inserts name as given (untrimmed) and reloads.
// A reload failure is reported through its own toast, not the return value.
func (v *View) AddItem(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}

	if err := v.store.Insert(ctx, name); err != nil {
		v.toast(LevelError, MsgAddFailed)
		return err
	}

	v.toast(LevelSuccess, MsgAdded)
	v.mu.Lock()
	v.draftName = ""
	v.mu.Unlock()

	_ = v.Load(ctx)
	return nil
}

// OpenClaimDialog shows the confirmation overlay for item.
func (v *View) OpenClaimDialog(item gift.Item) {
	v.mu.Lock()
	defer v.mu.Unlock()
	it := item
	v.pending = &it
}

// CancelClaimDialog closes the overlay and clears the claimant input.
func (v *View) CancelClaimDialog() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pending = nil
	v.claimantName = ""
}

// ConfirmClaim records claimant on item and reloads. The dialog stays open on failure.
func (v *View) ConfirmClaim(ctx context.Context, item gift.Item, claimant string) error {
	if strings.TrimSpace(claimant) == "" {
		v.toast(LevelError, MsgClaimantMissing)
		return ErrEmptyClaimant
	}

	if err := v.store.UpdateClaim(ctx, item.ID, claimant); err != nil {
		v.toast(LevelError, MsgClaimFailed)
		return err
	}

	v.toast(LevelSuccess, MsgClaimed)
	v.mu.Lock()
	v.pending = nil
	v.claimantName = ""
	v.mu.Unlock()

	_ = v.Load(ctx)
	return nil
}

// ConfirmPendingClaim confirms the dialog's item with the typed claimant name.
func (v *View) ConfirmPendingClaim(ctx context.Context) error {
	v.mu.Lock()
	if v.pending == nil {
		v.mu.Unlock()
		return ErrNoPendingClaim
	}
	item := *v.pending
	claimant := v.claimantName
	v.mu.Unlock()

	return v.ConfirmClaim(ctx, item, claimant)
}

// SetDraftName updates the "add new gift" input.
func (v *View) SetDraftName(text string) {
	v.mu.Lock()
	v.draftName = text
	v.mu.Unlock()
}

// DraftName returns the "add new gift" input.
func (v *View) DraftName() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.draftName
}

// SetClaimantName updates the dialog's name input.
func (v *View) SetClaimantName(text string) {
	v.mu.Lock()
	v.claimantName = text
	v.mu.Unlock()
}

// ClaimantName returns the dialog's name input.
func (v *View) ClaimantName() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.claimantName
}

// PendingClaim returns the dialog's target, if open.
func (v *View) PendingClaim() (gift.Item, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pending == nil {
		return gift.Item{}, false
	}
	return *v.pending, true
}

// NextPage advances list's cursor, clamped to its current page count.
func (v *View) NextPage(list ListID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch list {
	case ListAvailable:
		v.availablePage = NextPage(v.availablePage, TotalPages(countWhere(v.items, false)))
	case ListSelected:
		v.selectedPage = NextPage(v.selectedPage, TotalPages(countWhere(v.items, true)))
	default:
		return ErrUnknownList
	}
	return nil
}

// PrevPage moves list's cursor back, never below 1.
func (v *View) PrevPage(list ListID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch list {
	case ListAvailable:
		v.availablePage = PrevPage(v.availablePage)
	case ListSelected:
		v.selectedPage = PrevPage(v.selectedPage)
	default:
		return ErrUnknownList
	}
	return nil
}

// Page returns list's 1-based cursor.
func (v *View) Page(list ListID) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if list == ListSelected {
		return v.selectedPage
	}
	return v.availablePage
}

// Items returns a copy of the last loaded collection.
func (v *View) Items() []gift.Item {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]gift.Item(nil), v.items...)
}

// AvailableItems returns unclaimed items in list order.
func (v *View) AvailableItems() []gift.Item {
	v.mu.Lock()
	defer v.mu.Unlock()
	return filterSelected(v.items, false)
}

// SelectedItems returns claimed items in list order.
func (v *View) SelectedItems() []gift.Item {
	v.mu.Lock()
	defer v.mu.Unlock()
	return filterSelected(v.items, true)
}

func (v *View) toast(level Level, key string) {
	v.notify.Notify(Notification{
		Level:   level,
		Message: v.msgs.Text(key),
		At:      v.now(),
	})
}

func filterSelected(items []gift.Item, selected bool) []gift.Item {
	out := make([]gift.Item, 0, len(items))
	for _, it := range items {
		if it.Selected == selected {
			out = append(out, it)
		}
	}
	return out
}

func countWhere(items []gift.Item, selected bool) int {
	n := 0
	for _, it := range items {
		if it.Selected == selected {
			n++
		}
	}
	return n
}
