// Package main is a CI-friendly WebSocket smoke test for the giftlist gateway.
//
// It checks:
//   - handshake + subprotocol selection
//   - hello/ack with a session cookie
//   - a second tab sharing the cookie joins the same session
//   - add_gift fans a view out to both tabs
//   - open_claim + confirm_claim moves the gift to the selected list
//   - empty claimant is rejected with an error envelope
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	v1 "giftlist/shared/contracts/registry/v1"

	"github.com/coder/websocket"
)

const maxReadBytes = 1 << 20

type smokeClient struct {
	name      string
	conn      *websocket.Conn
	sessionID string
	cookie    string

	inbox chan v1.Envelope
	errCh chan error
}

func main() {
	var (
		wsURL    = flag.String("url", "ws://127.0.0.1:8080/ws", "WebSocket URL")
		origin   = flag.String("origin", "http://localhost", "Origin header to send (browser-like WS handshake)")
		giftName = flag.String("gift", "", "Gift name to add (default: unique per run)")
		claimant = flag.String("claimant", "Smoke Test", "Claimant name for the claim step")
		timeout  = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateWSURL(*wsURL); err != nil {
		fatalf("invalid -url: %v", err)
	}
	if err := validateOrigin(*origin); err != nil {
		fatalf("invalid -origin: %v", err)
	}
	if strings.TrimSpace(*giftName) == "" {
		*giftName = fmt.Sprintf("smoke-gift-%d", time.Now().UnixNano())
	}

	root := context.Background()

	a := mustConnect(root, "A", *wsURL, *origin, "", *timeout)
	defer closeWS(a.conn)

	b := mustConnect(root, "B", *wsURL, *origin, a.cookie, *timeout)
	defer closeWS(b.conn)

	if a.sessionID != b.sessionID {
		fatalf("tabs sharing a cookie got different sessions: A=%s B=%s", a.sessionID, b.sessionID)
	}
	if *verbose {
		fmt.Printf("connected: session=%s origin=%q\n", a.sessionID, *origin)
	}

	mustCommand(root, a, v1.CommandPayload{Command: v1.CommandAddGift, Text: *giftName}, *timeout)

	gift := mustViewWith(root, a, *timeout, func(v v1.ViewPayload) (v1.GiftPayload, bool) {
		return findGift(v.Available.Items, *giftName)
	})
	mustViewWith(root, b, *timeout, func(v v1.ViewPayload) (v1.GiftPayload, bool) {
		return findGift(v.Available.Items, *giftName)
	})
	if *verbose {
		fmt.Printf("added: id=%s name=%q\n", gift.ID, gift.Name)
	}

	mustCommand(root, a, v1.CommandPayload{Command: v1.CommandOpenClaim, GiftID: gift.ID}, *timeout)
	mustViewWith(root, b, *timeout, func(v v1.ViewPayload) (v1.GiftPayload, bool) {
		if v.Dialog == nil {
			return v1.GiftPayload{}, false
		}
		return v.Dialog.Gift, v.Dialog.Gift.ID == gift.ID
	})

	mustCommand(root, a, v1.CommandPayload{Command: v1.CommandConfirmClaim, Text: " "}, *timeout)
	mustError(root, a, v1.CodeEmptyClaimant, *timeout)

	mustCommand(root, a, v1.CommandPayload{Command: v1.CommandConfirmClaim, Text: *claimant}, *timeout)
	claimed := mustViewWith(root, b, *timeout, func(v v1.ViewPayload) (v1.GiftPayload, bool) {
		g, ok := findGift(v.Selected.Items, *giftName)
		return g, ok && v.Dialog == nil
	})
	if claimed.SelectedBy == nil || *claimed.SelectedBy != *claimant {
		fatalf("claimed gift selected_by mismatch: got=%v want=%q", claimed.SelectedBy, *claimant)
	}

	fmt.Printf("OK: session=%s gift_id=%s selected_by=%q\n", a.sessionID, claimed.ID, *claimed.SelectedBy)
}

func validateWSURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	if strings.TrimSpace(u.Path) == "" {
		return errors.New("missing path")
	}
	return nil
}

func validateOrigin(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin must be http/https, got: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("origin missing host")
	}
	return nil
}

func mustConnect(parent context.Context, name, wsURL, origin, cookie string, stepTimeout time.Duration) *smokeClient {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}
	if cookie != "" {
		h.Set("Cookie", cookie)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{v1.Subprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("connect %s: %v", name, err)
	}

	assertSubprotocol(resp, v1.Subprotocol)
	conn.SetReadLimit(maxReadBytes)

	c := &smokeClient{
		name:   name,
		conn:   conn,
		cookie: cookie,
		inbox:  make(chan v1.Envelope, 512),
		errCh:  make(chan error, 1),
	}
	if c.cookie == "" {
		c.cookie = sessionCookie(resp)
	}
	c.startReadLoop()

	mustWriteWithTimeout(parent, conn, v1.Envelope{
		V:       v1.Version,
		Type:    v1.TypeHello,
		ID:      fmt.Sprintf("%s-hello", name),
		TS:      time.Now().UTC(),
		Payload: mustJSON(v1.HelloPayload{}),
	}, stepTimeout)

	ack := c.mustReadUntilType(parent, v1.TypeHelloAck, stepTimeout, nil)

	var p v1.HelloAckPayload
	if err := json.Unmarshal(ack.Payload, &p); err != nil {
		fatalf("unmarshal hello_ack payload (%s): %v", name, err)
	}
	if strings.TrimSpace(p.SessionID) == "" {
		fatalf("hello_ack missing session_id (%s)", name)
	}
	if !p.View.Loaded {
		fatalf("hello_ack view not loaded (%s)", name)
	}
	c.sessionID = p.SessionID
	return c
}

// sessionCookie extracts the cookie pair set on the 101 response.
func sessionCookie(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == "giftlist_session" {
			return ck.Name + "=" + ck.Value
		}
	}
	return ""
}

func assertSubprotocol(resp *http.Response, want string) {
	if resp == nil {
		return
	}
	got := strings.TrimSpace(resp.Header.Get("Sec-WebSocket-Protocol"))
	if got == "" {
		return
	}
	if got != want {
		fatalf("subprotocol mismatch: got=%q want=%q", got, want)
	}
}

func (c *smokeClient) startReadLoop() {
	go func() {
		defer close(c.inbox)

		for {
			mt, data, err := c.conn.Read(context.Background())
			if err != nil {
				c.fail(err)
				return
			}
			if mt != websocket.MessageText && mt != websocket.MessageBinary {
				c.fail(fmt.Errorf("unsupported message type: %v", mt))
				return
			}

			var env v1.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				c.fail(fmt.Errorf("bad json: %w", err))
				return
			}
			if err := env.Validate(); err != nil {
				c.fail(fmt.Errorf("bad envelope: %w", err))
				return
			}

			select {
			case c.inbox <- env:
			default:
				c.fail(errors.New("inbox overflow: consumer too slow"))
				return
			}
		}
	}()
}

func (c *smokeClient) fail(err error) {
	select {
	case c.errCh <- err:
	default:
	}
}

func mustCommand(parent context.Context, c *smokeClient, p v1.CommandPayload, stepTimeout time.Duration) {
	mustWriteWithTimeout(parent, c.conn, v1.Envelope{
		V:       v1.Version,
		Type:    v1.TypeCommand,
		ID:      fmt.Sprintf("%s-%s-%d", c.name, p.Command, time.Now().UnixNano()),
		TS:      time.Now().UTC(),
		Payload: mustJSON(p),
	}, stepTimeout)
}

// mustViewWith reads view envelopes until match accepts one. Notifications
// are skipped.
func mustViewWith(parent context.Context, c *smokeClient, stepTimeout time.Duration, match func(v1.ViewPayload) (v1.GiftPayload, bool)) v1.GiftPayload {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	skip := map[string]struct{}{v1.TypeNotification: {}}
	for {
		env := c.mustReadUntilType(ctx, v1.TypeView, stepTimeout, skip)

		var v v1.ViewPayload
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			fatalf("unmarshal view payload (%s): %v", c.name, err)
		}
		if g, ok := match(v); ok {
			return g
		}
	}
}

func mustError(parent context.Context, c *smokeClient, wantCode string, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			fatalf("timeout waiting for error %q (%s)", wantCode, c.name)
		case err := <-c.errCh:
			fatalf("connection error while waiting for error %q (%s): %v", wantCode, c.name, err)
		case env, ok := <-c.inbox:
			if !ok {
				fatalf("connection closed while waiting for error %q (%s)", wantCode, c.name)
			}
			if env.Type != v1.TypeError {
				continue
			}
			var ep v1.ErrorPayload
			if err := json.Unmarshal(env.Payload, &ep); err != nil {
				fatalf("unmarshal error payload (%s): %v", c.name, err)
			}
			if ep.Code != wantCode {
				fatalf("error code mismatch (%s): got=%q want=%q", c.name, ep.Code, wantCode)
			}
			return
		}
	}
}

func findGift(items []v1.GiftPayload, name string) (v1.GiftPayload, bool) {
	for _, g := range items {
		if g.Name == name {
			return g, true
		}
	}
	return v1.GiftPayload{}, false
}

func (c *smokeClient) mustReadUntilType(parent context.Context, wantType string, stepTimeout time.Duration, skipTypes map[string]struct{}) v1.Envelope {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			fatalf("timeout waiting for %q (%s): %v", wantType, c.name, ctx.Err())
		case err := <-c.errCh:
			fatalf("connection error while waiting for %q (%s): %v", wantType, c.name, err)
		case env, ok := <-c.inbox:
			if !ok {
				fatalf("connection closed while waiting for %q (%s)", wantType, c.name)
			}
			if env.Type == wantType {
				return env
			}
			if env.Type == v1.TypeError {
				var ep v1.ErrorPayload
				_ = json.Unmarshal(env.Payload, &ep)
				fatalf("server error (%s): code=%q msg=%q", c.name, ep.Code, ep.Message)
			}
			if _, ok := skipTypes[env.Type]; ok {
				continue
			}
			fatalf("unexpected envelope type (%s): got=%q want=%q", c.name, env.Type, wantType)
		}
	}
}

func mustWriteWithTimeout(parent context.Context, conn *websocket.Conn, env v1.Envelope, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		fatalf("marshal envelope: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
		fatalf("write failed: %v", err)
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func closeWS(conn *websocket.Conn) {
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
