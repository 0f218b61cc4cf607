package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"giftlist/cmd/internal/gift"
)

// storeHandle bundles the item store with the resources the app owns for it.
type storeHandle struct {
	gift.Store

	backend string
	// pool is owned here; PostgresStore.Close does not close it.
	pool *pgxpool.Pool
}

func (h *storeHandle) close() error {
	err := h.Store.Close()
	if h.pool != nil {
		h.pool.Close()
	}
	return err
}

// openStore selects the backend from cfg and wraps it with metrics when sm
// is non-nil.
func openStore(ctx context.Context, cfg Config, log *slog.Logger, sm *gift.StoreMetrics) (*storeHandle, error) {
	backend := cfg.StoreBackend()

	var (
		st   gift.Store
		pool *pgxpool.Pool
	)

	switch backend {
	case StorePostgres:
		p, err := NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		pg, err := gift.NewPostgresStore(p, gift.WithSchema(cfg.DBSchema))
		if err != nil {
			p.Close()
			return nil, err
		}
		st, pool = pg, p
		log.Info("store.enabled", "backend", backend, "schema", pg.Schema())

	case StoreREST:
		rs, err := gift.NewRESTStore(cfg.RESTURL, cfg.RESTKey,
			gift.WithTable(cfg.RESTTable),
			gift.WithHTTPClient(&http.Client{Timeout: cfg.RESTTimeout}),
		)
		if err != nil {
			return nil, err
		}
		st = rs
		log.Info("store.enabled", "backend", backend, "table", cfg.RESTTable)

	case StoreMemory:
		st = gift.NewInMemoryStore()
		log.Info("store.enabled", "backend", backend)

	default:
		return nil, fmt.Errorf("store: unknown backend %q", backend)
	}

	return &storeHandle{
		Store:   gift.Instrument(st, backend, sm, log),
		backend: backend,
		pool:    pool,
	}, nil
}
