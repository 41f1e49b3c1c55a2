package api

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/nodecalc/pkg/observability"
)

// Metrics exports the observability hooks as Prometheus metrics. It
// implements every hook interface.
type Metrics struct {
	compiles        *prometheus.CounterVec
	compileDuration *prometheus.HistogramVec
	compileDims     *prometheus.HistogramVec
	resolver        *prometheus.CounterVec
	consolidated    prometheus.Counter
	cacheRequests   *prometheus.CounterVec
	cacheBytes      *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

var (
	_ observability.CompilerHooks = (*Metrics)(nil)
	_ observability.ResolverHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		compiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nodecalc",
			Name:      "compile_total",
			Help:      "Operations compiled into host nodes.",
		}, []string{"op", "status"}),
		compileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nodecalc",
			Name:      "compile_duration_seconds",
			Help:      "Time to create and wire one operation node.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}, []string{"op"}),
		compileDims: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nodecalc",
			Name:      "compile_dimensions",
			Help:      "Widest argument wired into an operation node.",
			Buckets:   []float64{1, 2, 3, 4, 16},
		}, []string{"op"}),
		resolver: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nodecalc",
			Name:      "resolver_events_total",
			Help:      "Values set and connections made by the connection resolver.",
		}, []string{"kind"}),
		consolidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nodecalc",
			Name:      "resolver_consolidated_children_total",
			Help:      "Child connections replaced by a parent connection.",
		}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nodecalc",
			Name:      "cache_requests_total",
			Help:      "Cache lookups by result.",
		}, []string{"type", "result"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nodecalc",
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache.",
		}, []string{"type"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nodecalc",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nodecalc",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nodecalc",
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests being served.",
		}),
	}
	reg.MustRegister(
		m.compiles, m.compileDuration, m.compileDims,
		m.resolver, m.consolidated,
		m.cacheRequests, m.cacheBytes,
		m.requests, m.requestDuration, m.inFlight,
	)
	return m
}

// Register installs m as the global observability hooks.
func (m *Metrics) Register() {
	observability.SetCompilerHooks(m)
	observability.SetResolverHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

func (m *Metrics) OnCompile(_ context.Context, op, _ string, maxDim int, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.compiles.WithLabelValues(op, status).Inc()
	m.compileDuration.WithLabelValues(op).Observe(d.Seconds())
	if err == nil {
		m.compileDims.WithLabelValues(op).Observe(float64(maxDim))
	}
}

func (m *Metrics) OnSet(context.Context, string) {
	m.resolver.WithLabelValues("set").Inc()
}

func (m *Metrics) OnConnect(context.Context, string, string) {
	m.resolver.WithLabelValues("connect").Inc()
}

func (m *Metrics) OnConsolidate(_ context.Context, _, _ string, children int) {
	m.resolver.WithLabelValues("consolidate").Inc()
	m.consolidated.Add(float64(children))
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheRequests.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheRequests.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (m *Metrics) OnRequest(context.Context, string, string) {
	m.inFlight.Inc()
}

func (m *Metrics) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	m.inFlight.Dec()
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
