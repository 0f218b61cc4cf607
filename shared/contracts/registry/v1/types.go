// Package v1 defines the gift registry wire contract v1.
//
// It is shared by the HTTP API, the WebSocket gateway and clients, and
// depends on the standard library only.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Version is the protocol version identifier embedded into every envelope.
const Version = "v1"

// Subprotocol is the WebSocket subprotocol negotiated by the gateway.
const Subprotocol = "giftlist.registry.v1"

// Type constants (wire-stable).
const (
	// TypeHello starts a session handshake (client -> server).
	TypeHello = "hello"
	// TypeHelloAck acknowledges the handshake with the session id and a snapshot (server -> client).
	TypeHelloAck = "hello_ack"

	// TypeCommand carries one view command (client -> server).
	TypeCommand = "command"

	// TypeView pushes the current view snapshot (server -> every tab of the session).
	TypeView = "view"
	// TypeNotification pushes one toast (server -> every tab of the session).
	TypeNotification = "notification"

	// TypeError is a generic error envelope (server -> client).
	TypeError = "error"
)

// Command names accepted in CommandPayload.Command.
const (
	CommandLoad         = "load"
	CommandSetDraft     = "set_draft"
	CommandAddGift      = "add_gift"
	CommandOpenClaim    = "open_claim"
	CommandSetClaimant  = "set_claimant"
	CommandConfirmClaim = "confirm_claim"
	CommandCancelClaim  = "cancel_claim"
	CommandPageNext     = "page_next"
	CommandPagePrev     = "page_prev"
)

// Error codes used in ErrorPayload and API responses.
const (
	CodeBadRequest     = "bad_request"
	CodeUnknownCommand = "unknown_command"
	CodeUnknownList    = "unknown_list"
	CodeUnknownGift    = "unknown_gift"
	CodeNoPendingClaim = "no_pending_claim"
	CodeEmptyClaimant  = "empty_claimant"
	CodeStoreFailure   = "store_failure"
	CodeRateLimited    = "rate_limited"
	CodeInternal       = "internal"
)

// Envelope is the canonical wire wrapper.
type Envelope struct {
	V       string          `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	TS      time.Time       `json:"ts,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate performs strict structural validation for an Envelope.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.V) == "" {
		return errors.New("missing field: v")
	}
	if e.V != Version {
		return fmt.Errorf("unsupported protocol version: %q", e.V)
	}
	if strings.TrimSpace(e.Type) == "" {
		return errors.New("missing field: type")
	}

	switch e.Type {
	case TypeHello,
		TypeHelloAck,
		TypeCommand,
		TypeView,
		TypeNotification,
		TypeError:
		return nil
	default:
		return fmt.Errorf("unknown type: %q", e.Type)
	}
}

// ---- Payloads ----

// HelloPayload is sent by the client to initiate a session.
type HelloPayload struct{}

// HelloAckPayload carries the session bound to the connection and its current view.
type HelloAckPayload struct {
	SessionID string      `json:"session_id"`
	View      ViewPayload `json:"view"`
}

// CommandPayload is one view command. Only the fields the command needs are read.
type CommandPayload struct {
	Command string `json:"command"`
	GiftID  string `json:"gift_id,omitempty"`
	Text    string `json:"text,omitempty"`
	List    string `json:"list,omitempty"`
}

// ViewPayload is the full render of a registry view.
type ViewPayload struct {
	Title            string              `json:"title"`
	Subtitle         string              `json:"subtitle"`
	Loaded           bool                `json:"loaded"`
	Draft            string              `json:"draft"`
	DraftPlaceholder string              `json:"draft_placeholder"`
	AddLabel         string              `json:"add_label"`
	Available        ListPayload         `json:"available"`
	Selected         ListPayload         `json:"selected"`
	Dialog           *ClaimDialogPayload `json:"dialog,omitempty"`
}

// ListPayload is the visible page of one list.
type ListPayload struct {
	List         string        `json:"list"`
	Title        string        `json:"title"`
	Items        []GiftPayload `json:"items"`
	Page         int           `json:"page"`
	TotalPages   int           `json:"total_pages"`
	ShowControls bool          `json:"show_controls"`
	CanPrev      bool          `json:"can_prev"`
	CanNext      bool          `json:"can_next"`
	PageLabel    string        `json:"page_label"`
	EmptyText    string        `json:"empty_text"`
}

// GiftPayload is one row.
type GiftPayload struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Selected   bool      `json:"selected"`
	SelectedBy *string   `json:"selected_by"`
	CreatedAt  time.Time `json:"created_at"`
	Action     string    `json:"action,omitempty"`
	Caption    string    `json:"caption,omitempty"`
}

// ClaimDialogPayload is the open claim confirmation overlay.
type ClaimDialogPayload struct {
	Gift            GiftPayload `json:"gift"`
	Title           string      `json:"title"`
	Prompt          string      `json:"prompt"`
	Claimant        string      `json:"claimant"`
	NamePlaceholder string      `json:"name_placeholder"`
	CancelLabel     string      `json:"cancel_label"`
	ConfirmLabel    string      `json:"confirm_label"`
}

// NotificationPayload is one transient toast.
type NotificationPayload struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// ErrorPayload is a generic error response payload.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
