package gift

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics holds the collectors recorded by Instrument.
type StoreMetrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewStoreMetrics creates the store collectors and registers them on reg when non-nil.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "giftlist_store_requests_total",
			Help: "Item store requests by operation and result.",
		}, []string{"op", "result"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "giftlist_store_request_duration_seconds",
			Help:    "Item store request latency by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.Duration)
	}
	return m
}

type instrumentedStore struct {
	next    Store
	metrics *StoreMetrics
	log     *slog.Logger
	backend string
}

// Instrument wraps next so every call is counted, timed and failures are logged.
func Instrument(next Store, backend string, metrics *StoreMetrics, log *slog.Logger) Store {
	if next == nil || metrics == nil {
		return next
	}
	if log == nil {
		log = slog.Default()
	}
	return &instrumentedStore{next: next, metrics: metrics, log: log, backend: backend}
}

func (s *instrumentedStore) List(ctx context.Context) ([]Item, error) {
	start := time.Now()
	items, err := s.next.List(ctx)
	s.observe("list", start, err, slog.Int("count", len(items)))
	return items, err
}

func (s *instrumentedStore) Insert(ctx context.Context, name string) error {
	start := time.Now()
	err := s.next.Insert(ctx, name)
	s.observe("insert", start, err)
	return err
}

func (s *instrumentedStore) UpdateClaim(ctx context.Context, id, selectedBy string) error {
	start := time.Now()
	err := s.next.UpdateClaim(ctx, id, selectedBy)
	s.observe("update_claim", start, err, slog.String("gift_id", id))
	return err
}

func (s *instrumentedStore) Close() error { return s.next.Close() }

func (s *instrumentedStore) observe(op string, start time.Time, err error, attrs ...slog.Attr) {
	d := time.Since(start)
	s.metrics.Duration.WithLabelValues(op).Observe(d.Seconds())

	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.Requests.WithLabelValues(op, result).Inc()

	if err == nil {
		return
	}
	args := []any{
		slog.String("backend", s.backend),
		slog.Int64("duration_ms", d.Milliseconds()),
		slog.Any("err", err),
	}
	for _, a := range attrs {
		args = append(args, a)
	}
	s.log.Warn("store."+op+".fail", args...)
}
