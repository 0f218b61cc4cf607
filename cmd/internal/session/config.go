package session

import (
	"errors"
	"time"
)

// ErrConfig is returned when Config is invalid.
var ErrConfig = errors.New("session: invalid config")

// Config controls session capacity and lifetime.
type Config struct {
	// MaxSessions bounds the number of live views.
	MaxSessions int

	// TTL is the idle lifetime; every access renews it.
	TTL time.Duration

	// OutboxSize bounds the toasts buffered between HTTP responses.
	OutboxSize int

	// Locale selects the message catalog language ("" = pt-BR).
	Locale string

	// CookieSecure sets the Secure attribute on the session cookie.
	CookieSecure bool
}

// DefaultConfig returns the development defaults.
func DefaultConfig() Config {
	return Config{
		MaxSessions: 1024,
		TTL:         24 * time.Hour,
		OutboxSize:  32,
	}
}

// Validate checks the bounds Manager relies on.
func (c Config) Validate() error {
	if c.MaxSessions <= 0 || c.TTL <= 0 || c.OutboxSize <= 0 {
		return ErrConfig
	}
	return nil
}
