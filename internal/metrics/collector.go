// Package metrics exposes Prometheus collectors for the tokenization server.
package metrics

import (
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for tokenize requests.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeInvalid  = "invalid"
	OutcomeTooLong  = "too_long"
	OutcomeTimeout  = "timeout"
	OutcomeError    = "error"
)

// LabelOther replaces label values outside the known set, so clients cannot
// create unbounded series.
const LabelOther = "other"

var knownMethods = map[string]bool{
	http.MethodGet: true, http.MethodHead: true, http.MethodPost: true,
	http.MethodPut: true, http.MethodPatch: true, http.MethodDelete: true,
	http.MethodOptions: true,
}

// Collector owns a private registry so tests and embedders never collide
// on the global one.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	tokenizeTotal    *prometheus.CounterVec
	tokenizeDuration *prometheus.HistogramVec
	tokenizePieces   *prometheus.HistogramVec
	inflight         prometheus.Gauge
}

// New registers every collector under namespace on a fresh registry,
// together with the Go runtime and process collectors.
func New(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	f := promauto.With(reg)

	return &Collector{
		registry: reg,

		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		tokenizeTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokenize_requests_total",
				Help:      "Tokenize calls by language, method and outcome",
			},
			[]string{"language", "method", "outcome"},
		),
		tokenizeDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tokenize_duration_seconds",
				Help:      "Time spent normalizing, segmenting and encoding",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"language", "method"},
		),
		tokenizePieces: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tokenize_pieces",
				Help:      "Number of pieces per successful tokenization",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 9),
			},
			[]string{"language", "method"},
		),
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tokenize_inflight",
			Help:      "Tokenize calls currently running",
		}),
	}
}

// Registry returns the registry the collectors live on.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// RecordHTTPRequest records one served HTTP request. route should come from a
// fixed set; unknown methods and non-UTF-8 routes are recorded as LabelOther.
func (c *Collector) RecordHTTPRequest(method, route, status string, d time.Duration) {
	if !knownMethods[method] {
		method = LabelOther
	}
	if !utf8.ValidString(route) {
		route = LabelOther
	}

	c.httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordTokenize records one tokenize call. pieces is ignored unless the
// outcome is OutcomeOK.
func (c *Collector) RecordTokenize(language, method, outcome string, d time.Duration, pieces int) {
	c.tokenizeTotal.WithLabelValues(language, method, outcome).Inc()
	if outcome != OutcomeOK {
		return
	}

	c.tokenizeDuration.WithLabelValues(language, method).Observe(d.Seconds())
	c.tokenizePieces.WithLabelValues(language, method).Observe(float64(pieces))
}

// TrackInflight increments the in-flight gauge and returns its release.
func (c *Collector) TrackInflight() func() {
	c.inflight.Inc()
	return c.inflight.Dec
}
