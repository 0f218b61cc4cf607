// Package app wires the giftlist server runtime: config, logging, metrics,
// the item store, sessions, the HTTP API and the realtime gateway.
package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"giftlist/cmd/internal/realtime"
	"giftlist/cmd/internal/registryapi"
	"giftlist/cmd/internal/session"
)

// App is the giftlist server runtime.
type App struct {
	cfg Config
	log *slog.Logger

	store    *storeHandle
	backend  string
	sessions *session.Manager
	hub      *realtime.Hub
	metrics  *Metrics

	handler http.Handler
}

// New constructs a fully wired App from cfg. A nil log builds one from cfg.
func New(ctx context.Context, cfg Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	a := &App{cfg: cfg, log: log}
	a.metrics = NewMetrics(func() int {
		if a.sessions == nil {
			return 0
		}
		return a.sessions.Len()
	})

	st, err := openStore(ctx, cfg, log, a.metrics.Store)
	if err != nil {
		return nil, err
	}
	a.store, a.backend = st, st.backend

	hub := realtime.NewHub(log)
	sessions, err := session.NewManager(st, session.Config{
		MaxSessions:  cfg.SessionMax,
		TTL:          cfg.SessionTTL,
		OutboxSize:   cfg.SessionOutbox,
		Locale:       cfg.Locale,
		CookieSecure: cfg.CookieSecure,
	}, session.WithLogger(log), session.WithPublisher(hub))
	if err != nil {
		_ = st.close()
		return nil, err
	}
	a.sessions, a.hub = sessions, hub

	gwCfg := realtime.DefaultGatewayConfig()
	gwCfg.AllowedOrigins = cfg.WSAllowedOrigins
	gwCfg.OriginRequired = cfg.WSOriginRequired
	gwCfg.DevInsecure = cfg.WSDevInsecure
	ws, err := realtime.NewWSGateway(log, hub, sessions, gwCfg)
	if err != nil {
		a.closeResources()
		return nil, err
	}

	api, err := registryapi.NewHandler(log, sessions, registryapi.WithMaxBodyBytes(int64(cfg.MaxBodyBytes)))
	if err != nil {
		a.closeResources()
		return nil, err
	}

	mux := http.NewServeMux()
	registerHTTP(mux, routes{
		log:     log,
		cfg:     cfg,
		backend: st.backend,
		pool:    st.pool,
		metrics: a.metrics,
		ws:      ws,
		api:     api,
	})

	var h http.Handler = mux
	h = WithCORS(h, cfg, log)
	h = WithSecurityHeaders(h)
	h = WithMetrics(h, a.metrics)
	h = WithRequestLogging(h, log)
	a.handler = h

	return a, nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Backend reports the active store backend.
func (a *App) Backend() string { return a.backend }

// Run serves HTTP until ctx is canceled or the server fails, then shuts down
// gracefully and releases the store.
func (a *App) Run(ctx context.Context) error {
	defer a.closeResources()

	ln, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		a.log.Error("server.listen.fail", "addr", a.cfg.HTTPAddr, "err", err)
		return err
	}

	// Long-lived WebSocket handlers watch this context; Shutdown does not
	// track hijacked connections.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
		ErrorLog:          slog.NewLogLogger(a.log.Handler(), slog.LevelWarn),
	}
	srv.RegisterOnShutdown(cancelBase)

	base := runtimeBaseURL(ln.Addr().String())
	a.log.Info("server.start",
		"addr", ln.Addr().String(),
		"url", base,
		"ws_url", wsBaseURL(base)+"/ws",
		"store", a.backend,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("server.fail", "err", err)
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("server.stop", "reason", context.Cause(gctx))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("server.shutdown.fail", "err", err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.log.Info("server.stopped")
	return nil
}

// Close releases sessions and the store without serving. Run calls it itself.
func (a *App) Close() { a.closeResources() }

func (a *App) closeResources() {
	if a.sessions != nil {
		a.sessions.Close()
	}
	if a.store != nil {
		if err := a.store.close(); err != nil {
			a.log.Error("store.close.fail", "err", err)
		}
		a.store = nil
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
