package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"giftlist/cmd/internal/gift"
	"giftlist/cmd/internal/session"
	v1 "giftlist/shared/contracts/registry/v1"
)

type testEnv struct {
	srv   *httptest.Server
	hub   *Hub
	mgr   *session.Manager
	wsURL string
}

func newTestEnv(t *testing.T, store gift.Store) *testEnv {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(log)
	mgr, err := session.NewManager(store, session.DefaultConfig(), session.WithLogger(log), session.WithPublisher(hub))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(mgr.Close)

	gw, err := NewWSGateway(log, hub, mgr, DefaultGatewayConfig())
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	srv := httptest.NewServer(gw)
	t.Cleanup(srv.Close)

	return &testEnv{
		srv:   srv,
		hub:   hub,
		mgr:   mgr,
		wsURL: "ws" + strings.TrimPrefix(srv.URL, "http"),
	}
}

func (e *testEnv) dial(t *testing.T, ctx context.Context, cookie string) (*websocket.Conn, string) {
	t.Helper()

	h := http.Header{}
	h.Set("Origin", "http://localhost")
	if cookie != "" {
		h.Set("Cookie", session.CookieName+"="+cookie)
	}
	conn, resp, err := websocket.Dial(ctx, e.wsURL, &websocket.DialOptions{
		Subprotocols: []string{v1.Subprotocol},
		HTTPHeader:   h,
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })

	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName {
			cookie = c.Value
		}
	}
	return conn, cookie
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, payload any) {
	t.Helper()

	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	env := v1.Envelope{V: v1.Version, Type: typ, ID: newEnvelopeID(time.Now()), TS: time.Now().UTC(), Payload: b}
	if err := wsjson.Write(ctx, conn, env); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readType(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string) v1.Envelope {
	t.Helper()

	for {
		var env v1.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			t.Fatalf("read waiting for %s: %v", typ, err)
		}
		if env.Type == typ {
			return env
		}
	}
}

func hello(t *testing.T, ctx context.Context, conn *websocket.Conn) v1.HelloAckPayload {
	t.Helper()

	send(t, ctx, conn, v1.TypeHello, v1.HelloPayload{})
	env := readType(t, ctx, conn, v1.TypeHelloAck)
	var ack v1.HelloAckPayload
	if err := json.Unmarshal(env.Payload, &ack); err != nil {
		t.Fatalf("decode hello_ack: %v", err)
	}
	return ack
}

func TestWSGateway_HelloAndAddGift(t *testing.T) {
	t.Parallel()

	store := gift.NewInMemoryStore()
	_ = store.Insert(context.Background(), "Toalhas")
	e := newTestEnv(t, store)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, cookie := e.dial(t, ctx, "")
	if cookie == "" {
		t.Fatalf("expected a session cookie on the upgrade response")
	}

	ack := hello(t, ctx, conn)
	if ack.SessionID != cookie {
		t.Fatalf("hello_ack session %q != cookie %q", ack.SessionID, cookie)
	}
	if len(ack.View.Available.Items) != 1 || ack.View.Available.Items[0].Name != "Toalhas" {
		t.Fatalf("unexpected initial view: %+v", ack.View.Available)
	}

	send(t, ctx, conn, v1.TypeCommand, v1.CommandPayload{Command: v1.CommandAddGift, Text: "Panela"})

	nenv := readType(t, ctx, conn, v1.TypeNotification)
	var n v1.NotificationPayload
	_ = json.Unmarshal(nenv.Payload, &n)
	if n.Level != "success" || n.Message != "Presente adicionado!" {
		t.Fatalf("unexpected notification: %+v", n)
	}

	venv := readType(t, ctx, conn, v1.TypeView)
	var view v1.ViewPayload
	_ = json.Unmarshal(venv.Payload, &view)
	if len(view.Available.Items) != 2 || view.Available.Items[1].Name != "Panela" {
		t.Fatalf("unexpected view after add: %+v", view.Available)
	}
}

func TestWSGateway_FansOutToEveryTab(t *testing.T) {
	t.Parallel()

	store := gift.NewInMemoryStore()
	_ = store.Insert(context.Background(), "Vaso")
	e := newTestEnv(t, store)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tab1, cookie := e.dial(t, ctx, "")
	ack1 := hello(t, ctx, tab1)
	tab2, _ := e.dial(t, ctx, cookie)
	ack2 := hello(t, ctx, tab2)

	if ack1.SessionID != ack2.SessionID {
		t.Fatalf("tabs should share the session: %q vs %q", ack1.SessionID, ack2.SessionID)
	}
	if got := e.hub.Connections(ack1.SessionID); got != 2 {
		t.Fatalf("expected 2 connections, got %d", got)
	}

	id := ack1.View.Available.Items[0].ID
	send(t, ctx, tab1, v1.TypeCommand, v1.CommandPayload{Command: v1.CommandOpenClaim, GiftID: id})

	venv := readType(t, ctx, tab2, v1.TypeView)
	var view v1.ViewPayload
	_ = json.Unmarshal(venv.Payload, &view)
	if view.Dialog == nil || view.Dialog.Gift.ID != id {
		t.Fatalf("tab2 should see the open dialog: %+v", view.Dialog)
	}
}

func TestWSGateway_CommandErrors(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, gift.NewInMemoryStore())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _ := e.dial(t, ctx, "")

	send(t, ctx, conn, v1.TypeCommand, v1.CommandPayload{Command: v1.CommandLoad})
	if code := errorCode(t, readType(t, ctx, conn, v1.TypeError)); code != "hello_required" {
		t.Fatalf("expected hello_required, got %q", code)
	}

	hello(t, ctx, conn)

	cases := []struct {
		cmd  v1.CommandPayload
		want string
	}{
		{v1.CommandPayload{Command: v1.CommandOpenClaim, GiftID: "missing"}, v1.CodeUnknownGift},
		{v1.CommandPayload{Command: v1.CommandPageNext, List: "wishlist"}, v1.CodeUnknownList},
		{v1.CommandPayload{Command: v1.CommandConfirmClaim}, v1.CodeNoPendingClaim},
		{v1.CommandPayload{Command: "drop_table"}, v1.CodeUnknownCommand},
		{v1.CommandPayload{Command: v1.CommandSetDraft, Text: strings.Repeat("x", maxCommandTextChars+1)}, v1.CodeBadRequest},
	}
	for _, tc := range cases {
		send(t, ctx, conn, v1.TypeCommand, tc.cmd)
		if code := errorCode(t, readType(t, ctx, conn, v1.TypeError)); code != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.cmd.Command, tc.want, code)
		}
	}
}

func TestWSGateway_RejectsForeignOrigin(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, gift.NewInMemoryStore())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h := http.Header{}
	h.Set("Origin", "https://evil.example")
	_, resp, err := websocket.Dial(ctx, e.wsURL, &websocket.DialOptions{
		Subprotocols: []string{v1.Subprotocol},
		HTTPHeader:   h,
	})
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %+v", resp)
	}
	if e.mgr.Len() != 0 {
		t.Fatalf("rejected upgrade must not create a session")
	}
}

func errorCode(t *testing.T, env v1.Envelope) string {
	t.Helper()
	var p v1.ErrorPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	return p.Code
}
