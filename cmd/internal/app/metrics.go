package app

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"giftlist/cmd/internal/gift"
)

// Metrics owns a private registry so tests and multiple App instances never
// collide on the global one.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	Sessions     prometheus.GaugeFunc

	Store *gift.StoreMetrics
}

// NewMetrics registers the runtime collectors. liveSessions may be nil.
func NewMetrics(liveSessions func() int) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "giftlist_http_requests_total",
			Help: "HTTP requests by route, method and status class.",
		}, []string{"route", "method", "class"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "giftlist_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		Store: gift.NewStoreMetrics(reg),
	}
	reg.MustRegister(m.HTTPRequests, m.HTTPDuration)

	if liveSessions != nil {
		m.Sessions = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "giftlist_sessions_live",
			Help: "Registry views currently held in the session cache.",
		}, func() float64 { return float64(liveSessions()) })
		reg.MustRegister(m.Sessions)
	}
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) observeHTTP(route, method string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, method, statusClass(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// routeLabel keeps label cardinality bounded: unknown paths collapse to "other".
func routeLabel(path string) string {
	switch path {
	case "/healthz", "/readyz", "/metrics", "/ws",
		"/api/view", "/api/load", "/api/draft", "/api/gifts",
		"/api/claim/open", "/api/claim/name", "/api/claim/confirm", "/api/claim/cancel":
		return path
	}
	if strings.HasPrefix(path, "/api/pages/") {
		return "/api/pages"
	}
	return "other"
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
