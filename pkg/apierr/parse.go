package apierr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxBodyBytes caps how much of an error body is read.
const DefaultMaxBodyBytes int64 = 1 << 20

const tracerName = "github.com/vango-dev/feedback/pkg/apierr"

// ErrBodyTooLarge is reported when a body exceeds Parser.MaxBodyBytes.
var ErrBodyTooLarge = errors.New("apierr: response body too large")

// Parser normalizes error responses. The zero value is ready to use.
type Parser struct {
	// Logger receives body-parsing failures. If nil, slog.Default() is used.
	Logger *slog.Logger

	// MaxBodyBytes caps the body read. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// Tracer traces each parse. If nil, the global tracer provider is used.
	Tracer trace.Tracer

	// OnFailure is called after a body could not be read or decoded.
	OnFailure func(status int, err error)
}

var defaultParser = &Parser{}

// ParseErrorResponse normalizes resp with the default Parser.
func ParseErrorResponse(ctx context.Context, resp *http.Response) *Descriptor {
	return defaultParser.Parse(ctx, resp)
}

// Parse normalizes resp into a Descriptor. It always returns a descriptor;
// read and decode failures are logged and replaced with a generic one.
// The response body is closed.
func (p *Parser) Parse(ctx context.Context, resp *http.Response) *Descriptor {
	if resp == nil {
		return &Descriptor{Status: 0, Message: GenericMessage}
	}
	if resp.Body != nil {
		defer resp.Body.Close()
	}

	status := resp.StatusCode
	contentType := resp.Header.Get("Content-Type")

	ctx, span := p.tracer().Start(ctx, "apierr.Parse",
		trace.WithAttributes(
			attribute.Int("http.response.status_code", status),
			attribute.String("http.response.content_type", contentType),
		),
	)
	defer span.End()

	d, err := p.parse(ctx, status, contentType, resp.Body)
	if err != nil {
		p.logger().ErrorContext(ctx, "Error parsing response body",
			"status", status,
			"content_type", contentType,
			"error", err,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "response body parse failed")
		if p.OnFailure != nil {
			p.OnFailure(status, err)
		}
		return &Descriptor{Status: status, Message: FallbackMessage(status)}
	}

	span.SetAttributes(
		attribute.Bool("apierr.structured", isStructured(d.Body)),
		attribute.Int("apierr.field_errors", len(d.Errors)),
	)
	return d
}

func (p *Parser) parse(ctx context.Context, status int, contentType string, body io.Reader) (*Descriptor, error) {
	raw, err := p.readBody(ctx, body)
	if err != nil {
		return nil, err
	}

	if IsJSONContentType(contentType) {
		return decodeStructured(status, raw)
	}

	text := strings.TrimSpace(string(raw))
	msg := text
	if msg == "" {
		msg = FallbackMessage(status)
	}
	return &Descriptor{
		Status:  status,
		Message: msg,
		Body:    &TextBody{Text: string(raw)},
	}, nil
}

func (p *Parser) readBody(ctx context.Context, body io.Reader) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	limit := p.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	raw, err := io.ReadAll(io.LimitReader(&ctxReader{ctx: ctx, r: body}, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(raw)) > limit {
		return nil, ErrBodyTooLarge
	}
	return raw, nil
}

func (p *Parser) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p *Parser) tracer() trace.Tracer {
	if p.Tracer != nil {
		return p.Tracer
	}
	return otel.Tracer(tracerName)
}

// IsJSONContentType reports whether a Content-Type header denotes JSON:
// application/json or any structured-syntax +json type.
func IsJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "application/json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func isStructured(b Body) bool {
	_, ok := b.(*StructuredBody)
	return ok
}

// ctxReader stops reading once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
