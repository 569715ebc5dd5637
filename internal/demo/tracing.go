package demo

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "github.com/vango-dev/feedback/internal/demo"

// TracingConfig configures the tracing middleware.
type TracingConfig struct {
	// TracerName is the name of the tracer.
	TracerName string

	// Tracer overrides the tracer resolved from the global provider.
	Tracer trace.Tracer

	// Filter determines which requests to trace.
	// If nil, all requests are traced.
	Filter func(r *http.Request) bool

	// AttributeExtractor adds custom attributes to each span.
	AttributeExtractor func(r *http.Request) []attribute.KeyValue
}

// TracingOption configures the tracing middleware.
type TracingOption func(*TracingConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithTracer sets the tracer directly.
func WithTracer(t trace.Tracer) TracingOption {
	return func(c *TracingConfig) {
		c.Tracer = t
	}
}

// WithRequestFilter sets a filter function for requests.
func WithRequestFilter(filter func(r *http.Request) bool) TracingOption {
	return func(c *TracingConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(r *http.Request) []attribute.KeyValue) TracingOption {
	return func(c *TracingConfig) {
		c.AttributeExtractor = extractor
	}
}

func defaultTracingConfig() TracingConfig {
	return TracingConfig{
		TracerName: defaultTracerName,
	}
}

// Tracing creates middleware that starts a server span for every request.
// The span is named after the matched chi route, carries the request id,
// and is marked as an error for 5xx responses. Downstream calls made with
// the request context, such as the signup API call, become child spans.
func Tracing(opts ...TracingOption) func(http.Handler) http.Handler {
	config := defaultTracingConfig()
	for _, opt := range opts {
		opt(&config)
	}
	tracer := config.Tracer
	if tracer == nil {
		tracer = otel.Tracer(config.TracerName)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.Filter != nil && !config.Filter(r) {
				next.ServeHTTP(w, r)
				return
			}

			attrs := []attribute.KeyValue{
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			}
			if id := chimiddleware.GetReqID(r.Context()); id != "" {
				attrs = append(attrs, attribute.String("http.request.id", id))
			}
			if config.AttributeExtractor != nil {
				attrs = append(attrs, config.AttributeExtractor(r)...)
			}

			ctx, span := tracer.Start(r.Context(),
				fmt.Sprintf("%s %s", r.Method, r.URL.Path),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			if rctx := chi.RouteContext(ctx); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					span.SetName(fmt.Sprintf("%s %s", r.Method, pattern))
					span.SetAttributes(attribute.String("http.route", pattern))
				}
			}

			status := ww.Status()
			span.SetAttributes(attribute.Int("http.response.status_code", status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
		})
	}
}
