// Package registryapi exposes the registry view commands over HTTP JSON.
package registryapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"giftlist/cmd/internal/gift"
	"giftlist/cmd/internal/registry"
	"giftlist/cmd/internal/session"
	v1 "giftlist/shared/contracts/registry/v1"
)

const defaultMaxBodyBytes = 16 << 10

// Handler maps registry routes to session commands.
type Handler struct {
	log      *slog.Logger
	sessions *session.Manager
	maxBody  int64
}

// HandlerOption configures optional handler behavior.
type HandlerOption func(*Handler)

// WithMaxBodyBytes bounds request bodies (default 16 KiB).
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// NewHandler constructs a Handler over the session manager.
func NewHandler(log *slog.Logger, sessions *session.Manager, opts ...HandlerOption) (*Handler, error) {
	if sessions == nil {
		return nil, errors.New("registryapi: nil session manager")
	}
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		log:      log,
		sessions: sessions,
		maxBody:  defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires registry routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/view", h.handleView)
	mux.HandleFunc("/api/load", h.handleLoad)
	mux.HandleFunc("/api/draft", h.handleDraft)
	mux.HandleFunc("/api/gifts", h.handleAddGift)
	mux.HandleFunc("/api/claim/open", h.handleClaimOpen)
	mux.HandleFunc("/api/claim/name", h.handleClaimName)
	mux.HandleFunc("/api/claim/confirm", h.handleClaimConfirm)
	mux.HandleFunc("/api/claim/cancel", h.handleClaimCancel)
	mux.HandleFunc("/api/pages/{list}/{dir}", h.handlePage)
}

// ---- handlers ----

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respond(w, s, nil)
}

func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, http.MethodPost, func(ctx context.Context, s *session.Session) error {
		return s.Do(ctx, session.Command{Name: v1.CommandLoad})
	})
}

func (h *Handler) handleDraft(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !h.decode(w, r, http.MethodPut, &req, false) {
		return
	}
	h.command(w, r, http.MethodPut, func(ctx context.Context, s *session.Session) error {
		return s.Do(ctx, session.Command{Name: v1.CommandSetDraft, Text: req.Text})
	})
}

func (h *Handler) handleAddGift(w http.ResponseWriter, r *http.Request) {
	var req addGiftRequest
	if !h.decode(w, r, http.MethodPost, &req, true) {
		return
	}
	h.command(w, r, http.MethodPost, func(ctx context.Context, s *session.Session) error {
		return s.Do(ctx, session.Command{Name: v1.CommandAddGift, Text: req.Name})
	})
}

func (h *Handler) handleClaimOpen(w http.ResponseWriter, r *http.Request) {
	var req openClaimRequest
	if !h.decode(w, r, http.MethodPost, &req, false) {
		return
	}
	h.command(w, r, http.MethodPost, func(ctx context.Context, s *session.Session) error {
		return s.Do(ctx, session.Command{Name: v1.CommandOpenClaim, GiftID: req.GiftID})
	})
}

func (h *Handler) handleClaimName(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !h.decode(w, r, http.MethodPut, &req, false) {
		return
	}
	h.command(w, r, http.MethodPut, func(ctx context.Context, s *session.Session) error {
		return s.Do(ctx, session.Command{Name: v1.CommandSetClaimant, Text: req.Text})
	})
}

func (h *Handler) handleClaimConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmClaimRequest
	if !h.decode(w, r, http.MethodPost, &req, true) {
		return
	}
	h.command(w, r, http.MethodPost, func(ctx context.Context, s *session.Session) error {
		return s.Do(ctx, session.Command{Name: v1.CommandConfirmClaim, Text: req.Name})
	})
}

func (h *Handler) handleClaimCancel(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, http.MethodPost, func(ctx context.Context, s *session.Session) error {
		return s.Do(ctx, session.Command{Name: v1.CommandCancelClaim})
	})
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	var name string
	switch r.PathValue("dir") {
	case "next":
		name = v1.CommandPageNext
	case "prev":
		name = v1.CommandPagePrev
	default:
		http.NotFound(w, r)
		return
	}
	list := r.PathValue("list")
	h.command(w, r, http.MethodPost, func(ctx context.Context, s *session.Session) error {
		return s.Do(ctx, session.Command{Name: name, List: list})
	})
}

// ---- helpers ----

// decode enforces the method and reads the body. It writes the error
// response itself and reports whether the handler should continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, method string, dst any, optional bool) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	if err := decodeJSON(w, r, h.maxBody, dst, optional); err != nil {
		writeError(w, http.StatusBadRequest, v1.CodeBadRequest, "invalid json")
		return false
	}
	return true
}

func (h *Handler) command(w http.ResponseWriter, r *http.Request, method string, run func(context.Context, *session.Session) error) {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	err := run(r.Context(), s)
	if err != nil && !errors.Is(err, registry.ErrEmptyName) {
		h.log.Debug("registry.command.fail",
			slog.String("session_id", s.ID),
			slog.String("path", r.URL.Path),
			slog.Any("err", err),
		)
	}
	h.respond(w, s, err)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.FromRequest(w, r)
	if err != nil {
		h.log.Error("session.open.fail", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, v1.CodeInternal, "session unavailable")
		return nil, false
	}
	return s, true
}

func (h *Handler) respond(w http.ResponseWriter, s *session.Session, err error) {
	status, apiErr := classify(err)
	writeJSON(w, status, viewResponse{
		OK:            apiErr == nil,
		Error:         apiErr,
		View:          s.Snapshot(),
		Notifications: session.RenderNotifications(s.Drain()),
	})
}

// classify maps a command error to its HTTP status. A blank gift name is
// a silent no-op and reported as success.
func classify(err error) (int, *apiError) {
	switch {
	case err == nil, errors.Is(err, registry.ErrEmptyName):
		return http.StatusOK, nil
	case errors.Is(err, session.ErrUnknownList):
		return http.StatusBadRequest, &apiError{Code: v1.CodeUnknownList, Message: "unknown list"}
	case errors.Is(err, session.ErrUnknownItem):
		return http.StatusNotFound, &apiError{Code: v1.CodeUnknownGift, Message: "gift not available"}
	case errors.Is(err, registry.ErrNoPendingClaim):
		return http.StatusConflict, &apiError{Code: v1.CodeNoPendingClaim, Message: "no claim dialog open"}
	case errors.Is(err, registry.ErrEmptyClaimant):
		return http.StatusUnprocessableEntity, &apiError{Code: v1.CodeEmptyClaimant, Message: "claimant name required"}
	case gift.IsRequestFailure(err):
		return http.StatusBadGateway, &apiError{Code: v1.CodeStoreFailure, Message: "store request failed"}
	case errors.Is(err, session.ErrUnknownCommand):
		return http.StatusBadRequest, &apiError{Code: v1.CodeUnknownCommand, Message: "unknown command"}
	default:
		return http.StatusInternalServerError, &apiError{Code: v1.CodeInternal, Message: "internal error"}
	}
}
