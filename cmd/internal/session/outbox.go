package session

import (
	"sync"

	"giftlist/cmd/internal/registry"
)

// Outbox buffers toasts until the next HTTP response drains them.
// When full, the oldest toast is dropped.
type Outbox struct {
	mu    sync.Mutex
	items []registry.Notification
	max   int
}

// NewOutbox returns an outbox holding at most size toasts.
func NewOutbox(size int) *Outbox {
	if size <= 0 {
		size = 32
	}
	return &Outbox{max: size, items: make([]registry.Notification, 0, size)}
}

// Notify implements registry.Notifier.
func (o *Outbox) Notify(n registry.Notification) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.items) == o.max {
		copy(o.items, o.items[1:])
		o.items = o.items[:len(o.items)-1]
	}
	o.items = append(o.items, n)
}

// Drain returns the buffered toasts in emission order and empties the outbox.
func (o *Outbox) Drain() []registry.Notification {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]registry.Notification, len(o.items))
	copy(out, o.items)
	o.items = o.items[:0]
	return out
}

// Len reports the number of buffered toasts.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}
