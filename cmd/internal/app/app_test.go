package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRuntimeBaseURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "explicit localhost", in: "127.0.0.1:8080", want: "http://127.0.0.1:8080"},
		{name: "bind all v4", in: "0.0.0.0:8080", want: "http://127.0.0.1:8080"},
		{name: "bind all v6", in: "[::]:9090", want: "http://127.0.0.1:9090"},
		{name: "ipv6 host", in: "[2001:db8::1]:9090", want: "http://[2001:db8::1]:9090"},
		{name: "port only", in: ":8080", want: "http://127.0.0.1:8080"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := runtimeBaseURL(tc.in); got != tc.want {
				t.Fatalf("runtimeBaseURL(%q)=%q want=%q", tc.in, got, tc.want)
			}
		})
	}
}

func TestWSBaseURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{in: "http://127.0.0.1:8080", want: "ws://127.0.0.1:8080"},
		{in: "https://gifts.example.com", want: "wss://gifts.example.com"},
		{in: "127.0.0.1:8080", want: "ws://127.0.0.1:8080"},
	}

	for _, tc := range cases {
		if got := wsBaseURL(tc.in); got != tc.want {
			t.Fatalf("wsBaseURL(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}

func newTestApp(t *testing.T, mutate func(*Config)) *App {
	t.Helper()

	cfg := DefaultConfig()
	cfg.HTTPAddr = "127.0.0.1:0"
	if mutate != nil {
		mutate(&cfg)
	}

	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func TestNew_MemoryBackendRoutes(t *testing.T) {
	a := newTestApp(t, nil)
	if a.Backend() != StoreMemory {
		t.Fatalf("backend=%q want %q", a.Backend(), StoreMemory)
	}

	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	cases := []struct {
		method   string
		path     string
		body     string
		want     int
		contains string
	}{
		{method: http.MethodGet, path: "/healthz", want: http.StatusOK, contains: "ok"},
		{method: http.MethodGet, path: "/readyz", want: http.StatusOK, contains: "ready"},
		{method: http.MethodGet, path: "/api/view", want: http.StatusOK, contains: `"ok":true`},
		{method: http.MethodPost, path: "/api/gifts", body: `{"name":"Jogo de panelas"}`, want: http.StatusOK, contains: "Jogo de panelas"},
		{method: http.MethodGet, path: "/metrics", want: http.StatusOK, contains: "giftlist_store_requests_total"},
	}

	for _, tc := range cases {
		var body io.Reader
		if tc.body != "" {
			body = strings.NewReader(tc.body)
		}
		req, err := http.NewRequest(tc.method, srv.URL+tc.path, body)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		if tc.body != "" {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := srv.Client().Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tc.method, tc.path, err)
		}
		b, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode != tc.want {
			t.Fatalf("%s %s status=%d want=%d body=%s", tc.method, tc.path, resp.StatusCode, tc.want, b)
		}
		if !strings.Contains(string(b), tc.contains) {
			t.Fatalf("%s %s body missing %q: %s", tc.method, tc.path, tc.contains, b)
		}
		if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
			t.Fatalf("%s %s missing security headers", tc.method, tc.path)
		}
	}
}

func TestNew_ReadyzRequiresStore(t *testing.T) {
	a := newTestApp(t, func(c *Config) { c.ReadinessRequireStore = true })

	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d want 503", rr.Code)
	}
}

func TestNew_AddGiftShowsInView(t *testing.T) {
	a := newTestApp(t, nil)
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	resp, err := srv.Client().Post(srv.URL+"/api/gifts", "application/json", strings.NewReader(`{"name":"Liquidificador"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out struct {
		OK   bool `json:"ok"`
		View struct {
			Available struct {
				Items []struct {
					Name string `json:"name"`
				} `json:"items"`
			} `json:"available"`
		} `json:"view"`
		Notifications []struct {
			Message string `json:"message"`
		} `json:"notifications"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.OK || len(out.View.Available.Items) != 1 || out.View.Available.Items[0].Name != "Liquidificador" {
		t.Fatalf("unexpected view: %+v", out)
	}
	if len(out.Notifications) == 0 || out.Notifications[0].Message != "Presente adicionado!" {
		t.Fatalf("unexpected notifications: %+v", out.Notifications)
	}
}

func TestNew_RejectsUnknownStore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store = "sqlite"

	if _, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Fatalf("expected error for unknown store")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	a := newTestApp(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}
