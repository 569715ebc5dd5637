// Package live pushes a presenter's notification stack to browsers over
// WebSocket and feeds their click and animationend events back.
//
// Server to client:
//
//	{"type":"stack","html":"<div id=\"notificationStack\" ...>...</div>"}
//
// Client to server:
//
//	{"type":"click","id":"01J..."}
//	{"type":"animationend","id":"01J..."}
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/feedback/pkg/toast"
)

const tracerName = "github.com/vango-dev/feedback/pkg/live"

// MaxEventBytes caps a client frame. Larger frames close the connection.
const MaxEventBytes = 4096

// MessageType is the type of a server message.
type MessageType string

const (
	MessageStack MessageType = "stack"
)

// Message is sent to browsers.
type Message struct {
	Type MessageType `json:"type"`
	HTML string      `json:"html"`
}

// Event is sent by browsers. Type is toast.EventClick or
// toast.EventAnimationEnd; ID is the card's data-notification-id.
type Event struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// HubOption configures a Hub.
type HubOption func(*hubConfig)

type hubConfig struct {
	logger       *slog.Logger
	checkOrigin  func(r *http.Request) bool
	writeTimeout time.Duration
	tracer       trace.Tracer
}

func defaultHubConfig() hubConfig {
	return hubConfig{
		writeTimeout: 10 * time.Second,
	}
}

// WithLogger sets the structured logger. If nil, slog.Default() is used.
func WithLogger(l *slog.Logger) HubOption {
	return func(c *hubConfig) {
		c.logger = l
	}
}

// WithCheckOrigin sets the upgrade origin check. The default accepts
// same-origin requests only.
func WithCheckOrigin(fn func(r *http.Request) bool) HubOption {
	return func(c *hubConfig) {
		c.checkOrigin = fn
	}
}

// WithTracer sets the tracer for client events. If unset, the global
// tracer provider is used.
func WithTracer(t trace.Tracer) HubOption {
	return func(c *hubConfig) {
		c.tracer = t
	}
}

// WithWriteTimeout bounds each write to a client.
func WithWriteTimeout(d time.Duration) HubOption {
	return func(c *hubConfig) {
		c.writeTimeout = d
	}
}

// Hub manages WebSocket connections for one presenter.
type Hub struct {
	presenter *toast.Presenter
	cfg       hubConfig
	logger    *slog.Logger
	upgrader  websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}

	changed chan struct{}
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(data []byte, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if timeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

var _ toast.Observer = (*Hub)(nil)

// NewHub creates a hub and registers it as an observer of p.
func NewHub(p *toast.Presenter, opts ...HubOption) *Hub {
	cfg := defaultHubConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.tracer == nil {
		cfg.tracer = otel.Tracer(tracerName)
	}

	h := &Hub{
		presenter: p,
		cfg:       cfg,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.checkOrigin,
		},
		clients: make(map[*client]struct{}),
		changed: make(chan struct{}, 1),
	}
	p.AddObserver(h)
	return h
}

// CardShown implements toast.Observer.
func (h *Hub) CardShown(*toast.Card) { h.signal() }

// CardDismissed implements toast.Observer.
func (h *Hub) CardDismissed(*toast.Card, toast.DismissReason) { h.signal() }

// CardRemoved implements toast.Observer.
func (h *Hub) CardRemoved(*toast.Card) { h.signal() }

// signal runs under the presenter lock and must not block.
func (h *Hub) signal() {
	select {
	case h.changed <- struct{}{}:
	default:
	}
}

// Run broadcasts the stack after every change until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.changed:
			h.Broadcast()
		}
	}
}

// ServeHTTP upgrades the connection, sends the current stack and then
// applies the client's events until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	conn.SetReadLimit(MaxEventBytes)

	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	if data, err := h.stackMessage(); err == nil {
		if err := c.write(data, h.cfg.writeTimeout); err != nil {
			h.drop(c)
			return
		}
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			h.logger.Debug("invalid client event", "error", err)
			continue
		}
		h.handle(r.Context(), ev)
	}

	h.drop(c)
}

func (h *Hub) handle(ctx context.Context, ev Event) {
	ctx, span := h.cfg.tracer.Start(ctx, "feedback."+ev.Type,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("feedback.event_type", ev.Type),
			attribute.String("feedback.card_id", ev.ID),
		),
	)
	defer span.End()

	card, ok := h.presenter.Card(ev.ID)
	if !ok {
		h.logger.DebugContext(ctx, "event for unknown card", "type", ev.Type, "id", ev.ID)
		span.SetStatus(codes.Error, "unknown card")
		return
	}
	switch ev.Type {
	case toast.EventClick:
		h.presenter.Close(card)
	case toast.EventAnimationEnd:
		h.presenter.AnimationEnd(card)
	default:
		h.logger.DebugContext(ctx, "unknown client event", "type", ev.Type, "id", ev.ID)
		span.SetStatus(codes.Error, "unknown event type")
		return
	}
	span.SetAttributes(attribute.String("feedback.card_state", card.State().String()))
}

// Broadcast sends the current stack to every client.
func (h *Hub) Broadcast() {
	data, err := h.stackMessage()
	if err != nil {
		h.logger.Error("encode stack message", "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data, h.cfg.writeTimeout); err != nil {
			h.logger.Debug("websocket write failed", "error", err)
			h.drop(c)
		}
	}
}

func (h *Hub) stackMessage() ([]byte, error) {
	return json.Marshal(Message{Type: MessageStack, HTML: h.presenter.StackHTML()})
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.conn.Close()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close closes all client connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		c.conn.Close()
		delete(h.clients, c)
	}
}
