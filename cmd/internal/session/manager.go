package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"giftlist/cmd/internal/gift"
	"giftlist/cmd/internal/ids"
	"giftlist/cmd/internal/registry"
	v1 "giftlist/shared/contracts/registry/v1"
)

// Publisher receives every view change and toast of a session.
// Implementations must not block.
type Publisher interface {
	PublishView(sessionID string, view v1.ViewPayload)
	PublishNotification(sessionID string, n v1.NotificationPayload)
}

// Session is one browser's registry state.
type Session struct {
	ID        string
	CreatedAt time.Time
	View      *registry.View

	outbox    *Outbox
	publisher func() Publisher
}

// Drain returns and clears the toasts not yet delivered over HTTP.
func (s *Session) Drain() []registry.Notification { return s.outbox.Drain() }

// Snapshot renders the session's view to its wire form.
func (s *Session) Snapshot() v1.ViewPayload { return RenderView(s.View.Snapshot()) }

func (s *Session) publishView() {
	if s.publisher == nil {
		return
	}
	if pub := s.publisher(); pub != nil {
		pub.PublishView(s.ID, s.Snapshot())
	}
}

// Manager owns the live sessions.
type Manager struct {
	store gift.Store
	cfg   Config
	msgs  *registry.Messages
	log   *slog.Logger
	now   func() time.Time

	pubMu sync.RWMutex
	pub   Publisher

	// mu makes get-or-create atomic per id; the cache has its own lock.
	mu    sync.Mutex
	cache *expirable.LRU[string, *Session]
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithPublisher forwards every view change and toast to pub.
func WithPublisher(pub Publisher) Option {
	return func(m *Manager) { m.pub = pub }
}

// WithClock overrides the session and toast clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs a Manager over store.
func NewManager(store gift.Store, cfg Config, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session: nil store")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	msgs, err := registry.NewMessages(cfg.Locale)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		store: store,
		cfg:   cfg,
		msgs:  msgs,
		log:   slog.Default(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	log := m.log
	m.cache = expirable.NewLRU[string, *Session](cfg.MaxSessions, func(id string, _ *Session) {
		log.Debug("session.evict", slog.String("session_id", id))
	}, cfg.TTL)
	return m, nil
}

// SetPublisher replaces the publisher for every session.
func (m *Manager) SetPublisher(pub Publisher) {
	m.pubMu.Lock()
	m.pub = pub
	m.pubMu.Unlock()
}

func (m *Manager) publisher() Publisher {
	m.pubMu.RLock()
	defer m.pubMu.RUnlock()
	return m.pub
}

// Config returns the manager configuration.
func (m *Manager) Config() Config { return m.cfg }

// Len reports the number of live sessions.
func (m *Manager) Len() int { return m.cache.Len() }

// Get returns a live session and renews its idle TTL.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.touchLocked(id)
}

// Open returns the session for id, creating it when id is empty, malformed
// or expired. A created session runs Load before Open returns; a failed load
// is reported through the session's toasts, not as an error.
func (m *Manager) Open(ctx context.Context, id string) (sess *Session, created bool, err error) {
	m.mu.Lock()
	if ids.IsULID(id) {
		if s, ok := m.touchLocked(id); ok {
			m.mu.Unlock()
			return s, false, nil
		}
	} else {
		id, err = ids.NewULID(m.now())
		if err != nil {
			m.mu.Unlock()
			return nil, false, err
		}
	}
	sess = m.newSession(id)
	m.cache.Add(id, sess)
	m.mu.Unlock()

	m.log.Info("session.create", slog.String("session_id", id))
	_ = sess.View.Load(ctx)
	sess.publishView()
	return sess, true, nil
}

// Remove drops a session.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache.Remove(id)
}

// Close drops every session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Purge()
}

func (m *Manager) touchLocked(id string) (*Session, bool) {
	s, ok := m.cache.Get(id)
	if !ok {
		return nil, false
	}
	m.cache.Add(id, s)
	return s, true
}

func (m *Manager) newSession(id string) *Session {
	s := &Session{
		ID:        id,
		CreatedAt: m.now(),
		outbox:    NewOutbox(m.cfg.OutboxSize),
		publisher: m.publisher,
	}
	notify := registry.NotifierFunc(func(n registry.Notification) {
		s.outbox.Notify(n)
		if pub := m.publisher(); pub != nil {
			pub.PublishNotification(s.ID, RenderNotification(n))
		}
	})
	s.View = registry.NewView(m.store,
		registry.WithNotifier(notify),
		registry.WithMessages(m.msgs),
		registry.WithNow(m.now),
	)
	return s
}
