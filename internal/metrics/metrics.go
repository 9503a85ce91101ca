// Package metrics exposes Prometheus instrumentation for the conversation
// cache, completion calls, uploads and HTTP requests.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/assure/inspectd/internal/completion"
)

type Metrics struct {
	registry *prometheus.Registry

	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	CacheEvictions prometheus.Counter
	CacheResident  prometheus.Gauge

	CompletionDuration *prometheus.HistogramVec
	Uploads            *prometheus.CounterVec

	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inspectd_conversation_cache_hits_total",
			Help: "Conversation lookups served from the cache",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inspectd_conversation_cache_misses_total",
			Help: "Conversation lookups that built a new conversation",
		}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inspectd_conversation_cache_evictions_total",
			Help: "Conversations dropped to stay within capacity",
		}),
		CacheResident: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inspectd_conversation_cache_resident",
			Help: "Conversations currently held in the report cache",
		}),
		CompletionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "inspectd_completion_duration_seconds",
				Help:    "Latency of completion service calls",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"operation", "outcome"},
		),
		Uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inspectd_uploads_total",
				Help: "Uploaded documents by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
	}
	m.registry.MustRegister(
		m.CacheHits, m.CacheMisses, m.CacheEvictions, m.CacheResident,
		m.CompletionDuration, m.Uploads, m.RequestCounter, m.RequestDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Cache observer methods; Metrics satisfies conversation.Observer.

func (m *Metrics) CacheHit()              { m.CacheHits.Inc() }
func (m *Metrics) CacheMiss()             { m.CacheMisses.Inc() }
func (m *Metrics) CacheEvicted(id string) { m.CacheEvictions.Inc() }
func (m *Metrics) CacheSize(n int)        { m.CacheResident.Set(float64(n)) }

// ObserveUpload counts one upload attempt of kind ("report", "warranty").
func (m *Metrics) ObserveUpload(kind string, err error) {
	m.Uploads.WithLabelValues(kind, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

type opKey struct{}

// WithOperation labels completion calls made with ctx.
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, opKey{}, op)
}

func operation(ctx context.Context) string {
	if op, ok := ctx.Value(opKey{}).(string); ok {
		return op
	}
	return "unknown"
}

type timedCompleter struct {
	next completion.Completer
	hist *prometheus.HistogramVec
}

// WrapCompleter times every Complete call, labelled by the operation set
// with WithOperation.
func (m *Metrics) WrapCompleter(c completion.Completer) completion.Completer {
	return &timedCompleter{next: c, hist: m.CompletionDuration}
}

func (t *timedCompleter) Complete(ctx context.Context, req completion.Request) (string, error) {
	start := time.Now()
	out, err := t.next.Complete(ctx, req)
	t.hist.WithLabelValues(operation(ctx), outcome(err)).Observe(time.Since(start).Seconds())
	return out, err
}

// Middleware records request counts and durations by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			endpoint = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}
