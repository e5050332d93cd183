package internal

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "shop_admin"

// Metrics provides Prometheus metrics on a private registry: HTTP traffic
// plus a few business counters the dashboard cares about.
type Metrics struct {
	reqTotal     *prometheus.CounterVec
	reqLatency   *prometheus.HistogramVec
	tokenRefresh *prometheus.CounterVec
	transactions *prometheus.CounterVec
	stockMoves   *prometheus.CounterVec
	importRows   *prometheus.CounterVec
	registry     *prometheus.Registry
}

// NewMetrics creates a new Metrics instance with a private Prometheus registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		reqLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		tokenRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "token_refresh_total",
			Help:      "Refresh token exchanges by result",
		}, []string{"result"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "transactions_created_total",
			Help:      "Transactions recorded by type",
		}, []string{"type"}),
		stockMoves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "stock_adjustments_total",
			Help:      "Inventory rows adjusted by transactions, by direction",
		}, []string{"direction"}),
		importRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "import_rows_total",
			Help:      "Inventory import rows by outcome",
		}, []string{"outcome"}),
		registry: registry,
	}

	registry.MustRegister(
		m.reqTotal, m.reqLatency, m.tokenRefresh, m.transactions, m.stockMoves, m.importRows,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Middleware returns a Chi middleware that collects metrics
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

			next.ServeHTTP(rw, r)

			status := strconv.Itoa(rw.code)
			path := routePattern(r)
			m.reqTotal.WithLabelValues(r.Method, path, status).Inc()
			m.reqLatency.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler returns an http.Handler that serves Prometheus metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// The record helpers are nil-safe so handlers can call them unconditionally.

func (m *Metrics) recordRefresh(result string) {
	if m != nil {
		m.tokenRefresh.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) recordTransaction(typ string) {
	if m != nil {
		m.transactions.WithLabelValues(typ).Inc()
	}
}

func (m *Metrics) recordStockMove(direction string, rows int) {
	if m != nil && rows > 0 {
		m.stockMoves.WithLabelValues(direction).Add(float64(rows))
	}
}

// RecordImport counts import outcomes.
func (m *Metrics) RecordImport(inserted, updated, skipped int) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues("inserted").Add(float64(inserted))
	m.importRows.WithLabelValues("updated").Add(float64(updated))
	m.importRows.WithLabelValues("skipped").Add(float64(skipped))
}

// routePattern prefers Chi's route pattern over the raw path to keep label
// cardinality bounded.
func routePattern(r *http.Request) string {
	if chiCtx := chi.RouteContext(r.Context()); chiCtx != nil && len(chiCtx.RoutePatterns) > 0 {
		return chiCtx.RoutePatterns[len(chiCtx.RoutePatterns)-1]
	}
	return r.URL.Path
}

// statusRecorder captures the HTTP status code and body size
type statusRecorder struct {
	http.ResponseWriter
	code  int
	bytes int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.code = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}
