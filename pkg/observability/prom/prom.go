// Package prom exports observability hooks as Prometheus metrics.
//
//	reg := prometheus.NewRegistry()
//	m, err := prom.Register(reg)
//	router.Handle("/metrics", prom.Handler(reg))
package prom

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/factorial/trendline/pkg/errors"
	"github.com/factorial/trendline/pkg/observability"
)

const namespace = "trendline"

// Metrics holds every collector and implements all observability hooks.
type Metrics struct {
	GenerateTotal    *prometheus.CounterVec
	GenerateDuration prometheus.Histogram
	CurvesTotal      prometheus.Counter
	RenderTotal      *prometheus.CounterVec
	RenderDuration   prometheus.Histogram
	FallbackTotal    *prometheus.CounterVec

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
	CacheBytes  *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPInFlight        prometheus.Gauge
}

// New creates an unregistered metrics set.
func New() *Metrics {
	return &Metrics{
		GenerateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "generate_total",
			Help:      "Simulation runs by result code",
		}, []string{"code"}),
		GenerateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "generate_duration_seconds",
			Help:      "Simulation duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}),
		CurvesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "curves_total",
			Help:      "Curves generated",
		}),
		RenderTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "render_total",
			Help:      "Render passes by formats and result code",
		}, []string{"formats", "code"}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "render_duration_seconds",
			Help:      "Render duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		FallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "fallback_total",
			Help:      "Empty charts served in place of a failed simulation",
		}, []string{"code"}),

		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache hits by key type",
		}, []string{"type"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache misses by key type",
		}, []string{"type"}),
		CacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "written_bytes_total",
			Help:      "Bytes written to the cache by key type",
		}, []string{"type"}),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		HTTPInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served",
		}),
	}
}

// Collectors returns every collector in the set.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.GenerateTotal,
		m.GenerateDuration,
		m.CurvesTotal,
		m.RenderTotal,
		m.RenderDuration,
		m.FallbackTotal,
		m.CacheHits,
		m.CacheMisses,
		m.CacheBytes,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPInFlight,
	}
}

// Register registers all collectors with reg and installs the metrics as
// the global observability hooks.
func Register(reg prometheus.Registerer) (*Metrics, error) {
	m := New()
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "register metric")
		}
	}
	observability.SetPipelineHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
	return m, nil
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func resultCode(err error) string {
	if err == nil {
		return "ok"
	}
	if code := errors.GetCode(err); code != "" {
		return string(code)
	}
	return string(errors.ErrCodeInternal)
}

// OnGenerateStart is a no-op; durations are recorded on completion.
func (m *Metrics) OnGenerateStart(context.Context, int, int) {}

// OnGenerateComplete records a simulation run.
func (m *Metrics) OnGenerateComplete(_ context.Context, curves int, d time.Duration, err error) {
	m.GenerateTotal.WithLabelValues(resultCode(err)).Inc()
	m.GenerateDuration.Observe(d.Seconds())
	if err == nil {
		m.CurvesTotal.Add(float64(curves))
	}
}

// OnRenderStart is a no-op; durations are recorded on completion.
func (m *Metrics) OnRenderStart(context.Context, []string) {}

// OnRenderComplete records a render pass.
func (m *Metrics) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	m.RenderTotal.WithLabelValues(strings.Join(formats, ","), resultCode(err)).Inc()
	m.RenderDuration.Observe(d.Seconds())
}

// OnFallback records an empty-chart fallback.
func (m *Metrics) OnFallback(_ context.Context, err error) {
	m.FallbackTotal.WithLabelValues(resultCode(err)).Inc()
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.CacheHits.WithLabelValues(keyType).Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.CacheMisses.WithLabelValues(keyType).Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.CacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (m *Metrics) OnRequest(context.Context, string, string) {
	m.HTTPInFlight.Inc()
}

func (m *Metrics) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	m.HTTPInFlight.Dec()
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)
