package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrefix = "FEEDBACKTEST_"

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(testPrefix)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 6*time.Second, cfg.Toast.DefaultTimeout)
	assert.Equal(t, int64(1<<20), cfg.Client.MaxBodyBytes)
	assert.False(t, cfg.Server.TrustProxy)
	assert.Equal(t, 30*time.Minute, cfg.Server.SessionTTL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(testPrefix+"SERVER__ADDR", "127.0.0.1:9000")
	t.Setenv(testPrefix+"SERVER__API_BASE_URL", "http://api.internal:8081")
	t.Setenv(testPrefix+"SERVER__RATE_LIMIT", "2.5")
	t.Setenv(testPrefix+"SERVER__RATE_BURST", "3")
	t.Setenv(testPrefix+"SERVER__TRUST_PROXY", "true")
	t.Setenv(testPrefix+"SERVER__SESSION_TTL", "5m")
	t.Setenv(testPrefix+"SERVER__MAX_SESSIONS", "50")
	t.Setenv(testPrefix+"TOAST__DEFAULT_TIMEOUT", "10s")
	t.Setenv(testPrefix+"TOAST__EXIT_DELAY", "300ms")
	t.Setenv(testPrefix+"TOAST__AWAIT_ANIMATION_END", "true")
	t.Setenv(testPrefix+"LOG__LEVEL", "debug")
	t.Setenv(testPrefix+"LOG__FORMAT", "json")
	t.Setenv(testPrefix+"CLIENT__MAX_BODY_BYTES", "4096")
	t.Setenv(testPrefix+"METRICS__NAMESPACE", "ui")

	cfg, err := load(testPrefix)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "http://api.internal:8081", cfg.Server.APIBaseURL)
	assert.Equal(t, 2.5, cfg.Server.RateLimit)
	assert.Equal(t, 3, cfg.Server.RateBurst)
	assert.True(t, cfg.Server.TrustProxy)
	assert.Equal(t, 5*time.Minute, cfg.Server.SessionTTL)
	assert.Equal(t, 50, cfg.Server.MaxSessions)
	assert.Equal(t, 10*time.Second, cfg.Toast.DefaultTimeout)
	assert.Equal(t, 300*time.Millisecond, cfg.Toast.ExitDelay)
	assert.True(t, cfg.Toast.AwaitAnimationEnd)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, int64(4096), cfg.Client.MaxBodyBytes)
	assert.Equal(t, "ui", cfg.Metrics.Namespace)
}

func TestLoadAllowedOrigins(t *testing.T) {
	t.Setenv(testPrefix+"SERVER__ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := load(testPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad level", "LOG__LEVEL", "verbose"},
		{"bad format", "LOG__FORMAT", "xml"},
		{"bad url", "SERVER__API_BASE_URL", "not a url"},
		{"zero rate", "SERVER__RATE_LIMIT", "0"},
		{"negative timeout", "TOAST__DEFAULT_TIMEOUT", "-1s"},
		{"zero body limit", "CLIENT__MAX_BODY_BYTES", "0"},
		{"addr without port", "SERVER__ADDR", "localhost"},
		{"zero sessions", "SERVER__MAX_SESSIONS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(testPrefix+tt.key, tt.value)
			_, err := load(testPrefix)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validate config")
		})
	}
}

func TestPresenterOptions(t *testing.T) {
	opts := ToastConfig{DefaultTimeout: time.Second}.PresenterOptions()
	assert.Len(t, opts, 3)
}
