package gift

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	restPathPrefix   = "/rest/v1/"
	restMaxBodyBytes = 4 << 20
	restErrBodyBytes = 8 << 10
)

// RESTStore talks to a PostgREST endpoint (Supabase exposes one under
// /rest/v1). The anon key is sent both as apikey and as bearer token.
type RESTStore struct {
	base   *url.URL
	key    string
	table  string
	client *http.Client
}

// RESTOption configures RESTStore behavior.
type RESTOption func(*RESTStore) error

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(c *http.Client) RESTOption {
	return func(s *RESTStore) error {
		if c == nil {
			return errors.New("gift: nil http client")
		}
		s.client = c
		return nil
	}
}

// WithTable overrides the exposed table name (default: "gifts").
func WithTable(table string) RESTOption {
	return func(s *RESTStore) error {
		table = strings.TrimSpace(table)
		if !isValidPGIdent(table) {
			return errors.New("gift: invalid table identifier")
		}
		s.table = table
		return nil
	}
}

// NewRESTStore constructs a Store for the PostgREST service at baseURL.
func NewRESTStore(baseURL, apiKey string, opts ...RESTOption) (*RESTStore, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("gift: empty rest url")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("gift: parse rest url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("gift: rest url must be http or https")
	}
	if u.Host == "" {
		return nil, errors.New("gift: rest url has no host")
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""

	st := &RESTStore{
		base:   u,
		key:    strings.TrimSpace(apiKey),
		table:  giftsTable,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Close releases idle connections held by the HTTP client.
func (s *RESTStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// List issues GET /rest/v1/gifts?select=*&order=created_at.asc.
func (s *RESTStore) List(ctx context.Context) ([]Item, error) {
	const op = "gift.List"

	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.asc")

	resp, err := s.do(ctx, http.MethodGet, q, nil, "")
	if err != nil {
		return nil, opErr(op, err)
	}
	defer resp.Body.Close()

	var out []Item
	dec := json.NewDecoder(io.LimitReader(resp.Body, restMaxBodyBytes))
	if err := dec.Decode(&out); err != nil {
		return nil, opErr(op, fmt.Errorf("decode rows: %w", err))
	}
	if out == nil {
		out = []Item{}
	}
	return out, nil
}

// Insert issues POST /rest/v1/gifts with a one-row array body.
func (s *RESTStore) Insert(ctx context.Context, name string) error {
	const op = "gift.Insert"

	body, err := json.Marshal([]map[string]string{{"name": name}})
	if err != nil {
		return opErr(op, err)
	}
	resp, err := s.do(ctx, http.MethodPost, nil, body, "return=minimal")
	if err != nil {
		return opErr(op, err)
	}
	drainClose(resp)
	return nil
}

// UpdateClaim issues PATCH /rest/v1/gifts?id=eq.<id>.
// PostgREST answers 204 even when no row matched.
func (s *RESTStore) UpdateClaim(ctx context.Context, id, selectedBy string) error {
	const op = "gift.UpdateClaim"

	body, err := json.Marshal(struct {
		Selected   bool   `json:"selected"`
		SelectedBy string `json:"selected_by"`
	}{true, selectedBy})
	if err != nil {
		return opErr(op, err)
	}

	q := url.Values{}
	q.Set("id", "eq."+id)

	resp, err := s.do(ctx, http.MethodPatch, q, body, "return=minimal")
	if err != nil {
		return opErr(op, err)
	}
	drainClose(resp)
	return nil
}

// RESTError is a non-2xx PostgREST response.
type RESTError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *RESTError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("rest status %d (%s): %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("rest status %d: %s", e.Status, msg)
}

func (s *RESTStore) endpoint(q url.Values) string {
	u := *s.base
	u.Path = u.Path + restPathPrefix + s.table
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (s *RESTStore) do(ctx context.Context, method string, q url.Values, body []byte, prefer string) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.endpoint(q), rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
	if s.key != "" {
		req.Header.Set("apikey", s.key)
		req.Header.Set("Authorization", "Bearer "+s.key)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer drainClose(resp)

	re := &RESTError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, restErrBodyBytes))
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, re)
	}
	return nil, re
}

func drainClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, restErrBodyBytes))
	_ = resp.Body.Close()
}
