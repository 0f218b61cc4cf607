package session

import (
	"net/http"
	"strings"

	"giftlist/cmd/internal/ids"
)

// CookieName is the cookie carrying the session id.
const CookieName = "giftlist_session"

// IDFromRequest returns the session id from the cookie, or "" when it is
// missing or not a ULID.
func IDFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	v := strings.TrimSpace(c.Value)
	if !ids.IsULID(v) {
		return ""
	}
	return v
}

// FromRequest resolves the request's session, creating one (and setting the
// cookie on w) when needed. Must be called before the response is written.
func (m *Manager) FromRequest(w http.ResponseWriter, r *http.Request) (*Session, error) {
	id := IDFromRequest(r)
	s, created, err := m.Open(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if created || id != s.ID {
		http.SetCookie(w, m.cookie(s.ID))
	}
	return s, nil
}

func (m *Manager) cookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(m.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
