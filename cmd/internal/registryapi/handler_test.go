package registryapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"giftlist/cmd/internal/gift"
	"giftlist/cmd/internal/session"
)

type testClient struct {
	t      *testing.T
	mux    *http.ServeMux
	cookie *http.Cookie
}

type failingStore struct {
	*gift.InMemoryStore
	failUpdate bool
}

func (f *failingStore) UpdateClaim(ctx context.Context, id, by string) error {
	if f.failUpdate {
		return gift.OpError{Op: "gift.UpdateClaim", Err: errors.New("down")}
	}
	return f.InMemoryStore.UpdateClaim(ctx, id, by)
}

func newTestClient(t *testing.T, store gift.Store) *testClient {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m, err := session.NewManager(store, session.DefaultConfig(), session.WithLogger(log))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(m.Close)

	h, err := NewHandler(log, m)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	mux := http.NewServeMux()
	h.Register(mux)
	return &testClient{t: t, mux: mux}
}

func seeded(t *testing.T, n int) *gift.InMemoryStore {
	t.Helper()
	st := gift.NewInMemoryStore()
	for i := 1; i <= n; i++ {
		if err := st.Insert(context.Background(), fmt.Sprintf("gift-%02d", i)); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return st
}

func (c *testClient) do(method, path, body string) (int, viewResponse) {
	c.t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.mux.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.Name == session.CookieName {
			c.cookie = ck
		}
	}

	var out viewResponse
	if rec.Code != http.StatusMethodNotAllowed {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			c.t.Fatalf("%s %s: decode response: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec.Code, out
}

func TestHandler_ViewCreatesSessionAndLoads(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, seeded(t, 12))
	status, resp := c.do(http.MethodGet, "/api/view", "")
	if status != http.StatusOK || !resp.OK {
		t.Fatalf("view: status=%d resp=%+v", status, resp)
	}
	if c.cookie == nil {
		t.Fatalf("expected session cookie")
	}
	if len(resp.View.Available.Items) != 10 || resp.View.Available.PageLabel != "Página 1 de 2" {
		t.Fatalf("unexpected available list: %+v", resp.View.Available)
	}
	if resp.Notifications == nil {
		t.Fatalf("notifications should be an empty array, not null")
	}

	status, resp = c.do(http.MethodPost, "/api/pages/available/next", "")
	if status != http.StatusOK {
		t.Fatalf("next: status=%d", status)
	}
	if resp.View.Available.Page != 2 || len(resp.View.Available.Items) != 2 || resp.View.Available.CanNext {
		t.Fatalf("page 2: %+v", resp.View.Available)
	}
}

func TestHandler_AddAndClaimFlow(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, seeded(t, 0))

	status, resp := c.do(http.MethodPost, "/api/gifts", `{"name":"Cafeteira"}`)
	if status != http.StatusOK || !resp.OK {
		t.Fatalf("add: status=%d resp=%+v", status, resp)
	}
	if len(resp.Notifications) != 1 || resp.Notifications[0].Message != "Presente adicionado!" {
		t.Fatalf("add toasts: %+v", resp.Notifications)
	}
	if len(resp.View.Available.Items) != 1 {
		t.Fatalf("expected the new gift in the available list")
	}
	id := resp.View.Available.Items[0].ID

	if status, _ := c.do(http.MethodPost, "/api/claim/open", `{"gift_id":"`+id+`"}`); status != http.StatusOK {
		t.Fatalf("open: status=%d", status)
	}

	status, resp = c.do(http.MethodPost, "/api/claim/confirm", "")
	if status != http.StatusUnprocessableEntity || resp.OK || resp.Error == nil || resp.Error.Code != "empty_claimant" {
		t.Fatalf("confirm without name: status=%d resp=%+v", status, resp)
	}
	if len(resp.Notifications) != 1 || resp.Notifications[0].Message != "Por favor, insira seu nome" {
		t.Fatalf("confirm without name toasts: %+v", resp.Notifications)
	}
	if resp.View.Dialog == nil {
		t.Fatalf("dialog should stay open")
	}

	if status, _ := c.do(http.MethodPut, "/api/claim/name", `{"text":"Alice"}`); status != http.StatusOK {
		t.Fatalf("name: status=%d", status)
	}
	status, resp = c.do(http.MethodPost, "/api/claim/confirm", `{}`)
	if status != http.StatusOK || !resp.OK {
		t.Fatalf("confirm: status=%d resp=%+v", status, resp)
	}
	if resp.View.Dialog != nil {
		t.Fatalf("dialog should close")
	}
	sel := resp.View.Selected.Items
	if len(sel) != 1 || sel[0].SelectedBy == nil || *sel[0].SelectedBy != "Alice" || sel[0].Caption != "Selecionado por: Alice" {
		t.Fatalf("selected list: %+v", sel)
	}
	if len(resp.Notifications) != 1 || resp.Notifications[0].Message != "Presente selecionado com sucesso!" {
		t.Fatalf("confirm toasts: %+v", resp.Notifications)
	}
}

func TestHandler_DraftFallback(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, seeded(t, 0))

	if status, _ := c.do(http.MethodPut, "/api/draft", `{"text":"Panela"}`); status != http.StatusOK {
		t.Fatalf("draft: status=%d", status)
	}
	status, resp := c.do(http.MethodPost, "/api/gifts", "")
	if status != http.StatusOK || len(resp.View.Available.Items) != 1 || resp.View.Available.Items[0].Name != "Panela" {
		t.Fatalf("add from draft: status=%d resp=%+v", status, resp)
	}
	if resp.View.Draft != "" {
		t.Fatalf("draft should be cleared, got %q", resp.View.Draft)
	}
}

func TestHandler_BlankGiftIsSilentNoop(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, seeded(t, 0))
	status, resp := c.do(http.MethodPost, "/api/gifts", `{"name":"   "}`)
	if status != http.StatusOK || !resp.OK {
		t.Fatalf("blank add: status=%d resp=%+v", status, resp)
	}
	if len(resp.Notifications) != 0 || len(resp.View.Available.Items) != 0 {
		t.Fatalf("blank add must not toast or insert: %+v", resp)
	}
}

func TestHandler_ErrorStatuses(t *testing.T) {
	t.Parallel()

	store := &failingStore{InMemoryStore: seeded(t, 1)}
	c := newTestClient(t, store)
	_, first := c.do(http.MethodGet, "/api/view", "")
	id := first.View.Available.Items[0].ID

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
		code   string
	}{
		{name: "bad json", method: http.MethodPost, path: "/api/gifts", body: `{"name":`, want: http.StatusBadRequest, code: "bad_request"},
		{name: "unknown field", method: http.MethodPut, path: "/api/draft", body: `{"txt":"x"}`, want: http.StatusBadRequest, code: "bad_request"},
		{name: "missing body", method: http.MethodPost, path: "/api/claim/open", want: http.StatusBadRequest, code: "bad_request"},
		{name: "unknown list", method: http.MethodPost, path: "/api/pages/wishlist/next", want: http.StatusBadRequest, code: "unknown_list"},
		{name: "unknown gift", method: http.MethodPost, path: "/api/claim/open", body: `{"gift_id":"nope"}`, want: http.StatusNotFound, code: "unknown_gift"},
		{name: "no dialog", method: http.MethodPost, path: "/api/claim/confirm", body: `{"name":"Bob"}`, want: http.StatusConflict, code: "no_pending_claim"},
	}
	for _, tc := range cases {
		status, resp := c.do(tc.method, tc.path, tc.body)
		if status != tc.want {
			t.Fatalf("%s: status=%d want %d", tc.name, status, tc.want)
		}
		if tc.code == "bad_request" {
			continue
		}
		if resp.OK || resp.Error == nil || resp.Error.Code != tc.code {
			t.Fatalf("%s: unexpected body %+v", tc.name, resp)
		}
	}

	store.failUpdate = true
	_, _ = c.do(http.MethodPost, "/api/claim/open", `{"gift_id":"`+id+`"}`)
	status, resp := c.do(http.MethodPost, "/api/claim/confirm", `{"name":"Bob"}`)
	if status != http.StatusBadGateway || resp.Error == nil || resp.Error.Code != "store_failure" {
		t.Fatalf("store failure: status=%d resp=%+v", status, resp)
	}
	if len(resp.Notifications) != 1 || resp.Notifications[0].Message != "Erro ao selecionar presente" {
		t.Fatalf("store failure toasts: %+v", resp.Notifications)
	}
	if resp.View.Dialog == nil || resp.View.Dialog.Claimant != "Bob" {
		t.Fatalf("dialog should stay open with the claimant kept: %+v", resp.View.Dialog)
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, seeded(t, 0))
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/view"},
		{http.MethodGet, "/api/gifts"},
		{http.MethodPost, "/api/draft"},
		{http.MethodGet, "/api/claim/cancel"},
	} {
		if status, _ := c.do(tc.method, tc.path, ""); status != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s: status=%d", tc.method, tc.path, status)
		}
	}
}

func TestHandler_CancelClearsDialog(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, seeded(t, 1))
	_, first := c.do(http.MethodGet, "/api/view", "")
	id := first.View.Available.Items[0].ID

	_, _ = c.do(http.MethodPost, "/api/claim/open", `{"gift_id":"`+id+`"}`)
	_, _ = c.do(http.MethodPut, "/api/claim/name", `{"text":"Al"}`)
	status, resp := c.do(http.MethodPost, "/api/claim/cancel", "")
	if status != http.StatusOK || resp.View.Dialog != nil {
		t.Fatalf("cancel: status=%d dialog=%+v", status, resp.View.Dialog)
	}
}
