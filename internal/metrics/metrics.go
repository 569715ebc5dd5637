// Package metrics exposes Prometheus collectors for notification and
// error-response activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/feedback/pkg/toast"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "feedback").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "feedback",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the collectors. It implements toast.Observer.
type Metrics struct {
	notificationsShown  *prometheus.CounterVec
	notificationsClosed *prometheus.CounterVec
	notificationsActive prometheus.Gauge
	sessionsActive      prometheus.Gauge
	parseFailures       *prometheus.CounterVec
	errorResponses      *prometheus.CounterVec
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
}

var _ toast.Observer = (*Metrics)(nil)

// New registers the collectors.
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		notificationsShown: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_shown_total",
			Help:        "Total number of notification cards shown",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		notificationsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_dismissed_total",
			Help:        "Total number of notification cards dismissed",
			ConstLabels: config.ConstLabels,
		}, []string{"reason"}),

		notificationsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_active",
			Help:        "Number of notification cards currently in the stack",
			ConstLabels: config.ConstLabels,
		}),

		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "sessions_active",
			Help:        "Number of browser sessions holding a notification stack",
			ConstLabels: config.ConstLabels,
		}),

		parseFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "response_parse_failures_total",
			Help:        "Total number of error responses whose body could not be parsed",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		errorResponses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "error_responses_total",
			Help:        "Total number of error responses normalized into descriptors",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests served",
			ConstLabels: config.ConstLabels,
		}, []string{"method", "route", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"method", "route"}),
	}
}

// CardShown implements toast.Observer.
func (m *Metrics) CardShown(c *toast.Card) {
	m.notificationsShown.WithLabelValues(string(c.Type)).Inc()
	m.notificationsActive.Inc()
}

// CardDismissed implements toast.Observer.
func (m *Metrics) CardDismissed(_ *toast.Card, reason toast.DismissReason) {
	m.notificationsClosed.WithLabelValues(string(reason)).Inc()
}

// CardRemoved implements toast.Observer.
func (m *Metrics) CardRemoved(*toast.Card) {
	m.notificationsActive.Dec()
}

// SessionOpened counts a new browser session.
func (m *Metrics) SessionOpened() {
	m.sessionsActive.Inc()
}

// SessionClosed counts an expired or evicted browser session.
func (m *Metrics) SessionClosed() {
	m.sessionsActive.Dec()
}

// ParseFailed matches apierr.Parser.OnFailure.
func (m *Metrics) ParseFailed(status int, _ error) {
	m.parseFailures.WithLabelValues(strconv.Itoa(status)).Inc()
}

// ErrorResponse counts a normalized error response.
func (m *Metrics) ErrorResponse(status int) {
	m.errorResponses.WithLabelValues(strconv.Itoa(status)).Inc()
}

// Middleware records request counts and latencies by chi route pattern.
// Requests that match no route are labelled "unmatched".
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
