// Package demo is an HTTP server that exercises the feedback packages end
// to end: a JSON API that answers with Spring-style error payloads, a
// server-rendered signup form that calls it, and a live notification stack.
package demo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/vango-dev/feedback/internal/config"
	"github.com/vango-dev/feedback/internal/metrics"
	"github.com/vango-dev/feedback/pkg/apierr"
	"github.com/vango-dev/feedback/pkg/live"
	"github.com/vango-dev/feedback/pkg/toast"
)

const shutdownTimeout = 5 * time.Second

// Server is the demo application. Each browser session gets its own
// notification stack.
type Server struct {
	cfg           *config.Config
	logger        *slog.Logger
	presenterOpts []toast.PresenterOption
	sessions      *sessionStore
	metrics       *metrics.Metrics
	registry      *prometheus.Registry
	parser        *apierr.Parser
	client        *http.Client
	apiBase       string
	limiter       *RateLimiter
	validate      *validator.Validate
	router        chi.Router
}

// Option configures a Server.
type Option func(*options)

type options struct {
	logger        *slog.Logger
	client        *http.Client
	registry      *prometheus.Registry
	presenterOpts []toast.PresenterOption
	tracingOpts   []TracingOption
}

// WithLogger sets the structured logger. If nil, slog.Default() is used.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithHTTPClient sets the client used to call the API.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithRegistry sets the Prometheus registry served on /metrics.
func WithRegistry(r *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithPresenterOptions appends presenter options after the configured ones.
func WithPresenterOptions(opts ...toast.PresenterOption) Option {
	return func(o *options) {
		o.presenterOpts = append(o.presenterOpts, opts...)
	}
}

// WithTracingOptions configures the request tracing middleware.
func WithTracingOptions(opts ...TracingOption) Option {
	return func(o *options) {
		o.tracingOpts = append(o.tracingOpts, opts...)
	}
}

// New builds the server from cfg.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: 10 * time.Second}
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}

	apiBase, err := resolveAPIBase(cfg.Server)
	if err != nil {
		return nil, err
	}

	m := metrics.New(
		metrics.WithRegistry(o.registry),
		metrics.WithNamespace(cfg.Metrics.Namespace),
	)

	presenterOpts := append(cfg.Toast.PresenterOptions(),
		toast.WithObserver(m),
		toast.WithLogger(o.logger),
	)

	s := &Server{
		cfg:           cfg,
		logger:        o.logger,
		presenterOpts: append(presenterOpts, o.presenterOpts...),
		metrics:       m,
		registry:      o.registry,
		parser: &apierr.Parser{
			Logger:       o.logger,
			MaxBodyBytes: cfg.Client.MaxBodyBytes,
			OnFailure:    m.ParseFailed,
		},
		client:   o.client,
		apiBase:  apiBase,
		limiter:  NewRateLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst),
		validate: newValidator(),
	}

	s.sessions, err = newSessionStore(cfg.Server.MaxSessions, cfg.Server.SessionTTL, s.newSession, m.SessionClosed)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	s.router = s.routes(o.tracingOpts)
	return s, nil
}

// resolveAPIBase picks the URL the form handler posts to. It never depends
// on the incoming request: without a configured URL it is this server's
// own port on the loopback interface.
func resolveAPIBase(cfg config.ServerConfig) (string, error) {
	if cfg.APIBaseURL != "" {
		return strings.TrimSuffix(cfg.APIBaseURL, "/"), nil
	}
	host, port, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		return "", fmt.Errorf("server address %q: %w", cfg.Addr, err)
	}
	return loopbackURL(host, port), nil
}

func loopbackURL(host, port string) string {
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func (s *Server) newSession(ctx context.Context, id string) *session {
	p := toast.New(s.presenterOpts...)
	h := live.NewHub(p, live.WithLogger(s.logger))
	go h.Run(ctx)
	s.metrics.SessionOpened()
	return &session{id: id, presenter: p, hub: h}
}

func (s *Server) routes(tracing []TracingOption) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	if s.cfg.Server.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(Tracing(tracing...))
	r.Use(s.metrics.Middleware)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/", s.handlePage)
	r.Post("/signup", s.handleSignupForm)
	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.handleLive)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.Server.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
		r.Post("/signup", s.handleSignupAPI)
		r.With(s.limiter.Limit).Post("/notify", s.handleNotify)
		r.Get("/fail/{kind}", s.handleFail)
	})
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SessionPresenter returns the notification presenter of the session
// with the given id.
func (s *Server) SessionPresenter(id string) (*toast.Presenter, bool) {
	sess, ok := s.sessions.get(id)
	if !ok {
		return nil, false
	}
	return sess.presenter, true
}

// Sessions returns the number of live sessions.
func (s *Server) Sessions() int {
	return s.sessions.Len()
}

// Close stops every session's hub and drops its cards.
func (s *Server) Close() {
	s.sessions.Close()
}

// Run serves on the configured address until ctx is done, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	if s.cfg.Server.APIBaseURL == "" {
		// The configured port may be 0; use the one actually bound.
		if addr, ok := ln.Addr().(*net.TCPAddr); ok {
			host, _, _ := net.SplitHostPort(s.cfg.Server.Addr)
			s.apiBase = loopbackURL(host, strconv.Itoa(addr.Port))
		}
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sessions.Run(ctx)
	go s.limiter.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLive connects the browser to its own session's hub.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.lookup(r)
	if !ok {
		writeError(w, r, http.StatusForbidden, "No session")
		return
	}
	sess.hub.ServeHTTP(w, r)
}
