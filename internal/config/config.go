// Package config loads the feedback server configuration from the
// environment.
//
// Variables use the FEEDBACK_ prefix and a double underscore between
// nesting levels, so FEEDBACK_TOAST__EXIT_DELAY maps to toast.exit_delay.
// A .env file in the working directory is loaded first when present.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/vango-dev/feedback/pkg/apierr"
	"github.com/vango-dev/feedback/pkg/toast"
)

// EnvPrefix is the prefix of every configuration variable.
const EnvPrefix = "FEEDBACK_"

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server" validate:"required"`
	Toast   ToastConfig   `koanf:"toast" validate:"required"`
	Log     LogConfig     `koanf:"log" validate:"required"`
	Client  ClientConfig  `koanf:"client" validate:"required"`
	Metrics MetricsConfig `koanf:"metrics" validate:"required"`
}

// ServerConfig configures the demo HTTP server.
type ServerConfig struct {
	Addr string `koanf:"addr" validate:"required,hostname_port"`

	// APIBaseURL is where the form handler sends API requests.
	// Empty means the server's own listener on the loopback interface.
	APIBaseURL string `koanf:"api_base_url" validate:"omitempty,url"`

	AllowedOrigins []string `koanf:"allowed_origins"`

	// RateLimit is the sustained /api/notify rate per second.
	RateLimit float64 `koanf:"rate_limit" validate:"gt=0"`
	RateBurst int     `koanf:"rate_burst" validate:"gte=1"`

	// TrustProxy takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable it only behind a proxy that sets them.
	TrustProxy bool `koanf:"trust_proxy"`

	// SessionTTL is how long an idle browser session keeps its stack.
	SessionTTL time.Duration `koanf:"session_ttl" validate:"min=1s"`

	// MaxSessions caps the number of live stacks; the least recently
	// used one is dropped first.
	MaxSessions int `koanf:"max_sessions" validate:"gte=1"`
}

// ToastConfig configures the notification presenter.
type ToastConfig struct {
	DefaultTimeout    time.Duration `koanf:"default_timeout" validate:"min=0s"`
	ExitDelay         time.Duration `koanf:"exit_delay" validate:"min=0s"`
	AwaitAnimationEnd bool          `koanf:"await_animation_end"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// ClientConfig configures error response parsing.
type ClientConfig struct {
	MaxBodyBytes int64 `koanf:"max_body_bytes" validate:"gt=0"`
}

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	Namespace string `koanf:"namespace" validate:"required"`
}

// Default returns the configuration used when no variables are set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
			RateLimit:      5,
			RateBurst:      10,
			SessionTTL:     30 * time.Minute,
			MaxSessions:    1000,
		},
		Toast: ToastConfig{
			DefaultTimeout: toast.DefaultTimeout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Client: ClientConfig{
			MaxBodyBytes: apierr.DefaultMaxBodyBytes,
		},
		Metrics: MetricsConfig{
			Namespace: "feedback",
		},
	}
}

// listKeys are comma-separated in the environment.
var listKeys = map[string]struct{}{
	"server.allowed_origins": {},
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load reads FEEDBACK_ variables over the defaults and validates the result.
func Load() (*Config, error) {
	return load(EnvPrefix)
}

func load(prefix string) (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.ProviderWithValue(prefix, ".", func(s, v string) (string, interface{}) {
		key := strings.ToLower(strings.TrimPrefix(s, prefix))
		key = strings.ReplaceAll(key, "__", ".")
		if _, ok := listKeys[key]; ok {
			return key, splitList(v)
		}
		return key, v
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// PresenterOptions converts the toast section into presenter options.
func (c ToastConfig) PresenterOptions() []toast.PresenterOption {
	return []toast.PresenterOption{
		toast.WithDefaultTimeout(c.DefaultTimeout),
		toast.WithExitDelay(c.ExitDelay),
		toast.WithAwaitAnimationEnd(c.AwaitAnimationEnd),
	}
}
