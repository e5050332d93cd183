package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range serverEnv {
		if v, ok := os.LookupEnv(env); ok {
			os.Unsetenv(env)
			t.Cleanup(func() { os.Setenv(env, v) })
		}
	}
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	assert.Equal(t, defaultSecret, cfg.JWTSecret)
	assert.Equal(t, defaultSecret, cfg.JWTRefreshSecret, "refresh secret falls back to the access secret")
	assert.Equal(t, "shop-admin-api", cfg.JWTIssuer)
	assert.Equal(t, "shop-admin-api", cfg.JWTAudience)
	assert.Equal(t, 15*time.Minute, cfg.JWTExpiry)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshExpiry)
	assert.Equal(t, 10, cfg.MaxRefreshCount)
	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.RLSEnabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadWithEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("JWT_ISS", "test-issuer")
	t.Setenv("JWT_AUD", "test-audience")
	t.Setenv("JWT_EXPIRY", "2h")
	t.Setenv("JWT_MAX_REFRESH", "3")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("RLS_ENABLED", "true")
	t.Setenv("LOG_FORMAT", "json")

	cfg := Load()

	assert.Equal(t, "test-secret-key", cfg.JWTSecret)
	assert.Equal(t, "test-issuer", cfg.JWTIssuer)
	assert.Equal(t, "test-audience", cfg.JWTAudience)
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 3, cfg.MaxRefreshCount)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.True(t, cfg.RLSEnabled)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("port: \"9090\"\njwt:\n  issuer: file-issuer\n  expiry: 30m\n"), 0o600))
	t.Setenv("CONFIG_FILE", file)
	t.Setenv("JWT_ISS", "env-issuer")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.JWTExpiry)
	assert.Equal(t, "env-issuer", cfg.JWTIssuer, "environment wins over file")
}

func validConfig() *Config {
	return &Config{
		JWTSecret:       "valid-secret-that-is-long-enough-for-testing",
		JWTIssuer:       "test-issuer",
		JWTAudience:     "test-audience",
		JWTExpiry:       time.Hour,
		RefreshExpiry:   24 * time.Hour,
		MaxRefreshCount: 5,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "empty secret", mutate: func(c *Config) { c.JWTSecret = "" }, expectError: true},
		{name: "secret too short", mutate: func(c *Config) { c.JWTSecret = "short" }, expectError: true},
		{name: "refresh secret too short", mutate: func(c *Config) { c.JWTRefreshSecret = "short" }, expectError: true},
		{name: "empty issuer", mutate: func(c *Config) { c.JWTIssuer = "" }, expectError: true},
		{name: "empty audience", mutate: func(c *Config) { c.JWTAudience = "" }, expectError: true},
		{name: "negative expiry", mutate: func(c *Config) { c.JWTExpiry = -time.Hour }, expectError: true},
		{name: "zero expiry", mutate: func(c *Config) { c.JWTExpiry = 0 }, expectError: true},
		{name: "expiry too short", mutate: func(c *Config) { c.JWTExpiry = 30 * time.Second }, expectError: true},
		{name: "expiry too long", mutate: func(c *Config) { c.JWTExpiry = 31 * 24 * time.Hour }, expectError: true},
		{name: "refresh shorter than access", mutate: func(c *Config) { c.RefreshExpiry = time.Minute }, expectError: true},
		{name: "zero refresh cap", mutate: func(c *Config) { c.MaxRefreshCount = 0 }, expectError: true},
		{
			name: "default secret in production",
			mutate: func(c *Config) {
				c.Environment = "production"
				c.JWTSecret = defaultSecret
			},
			expectError: true,
		},
		{
			name: "default secret in development",
			mutate: func(c *Config) {
				c.Environment = "development"
				c.JWTSecret = defaultSecret
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadAndValidate(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "valid-secret-that-is-long-enough-for-testing")

	cfg, err := LoadAndValidate()
	require.NoError(t, err)
	assert.Equal(t, "valid-secret-that-is-long-enough-for-testing", cfg.JWTSecret)

	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", defaultSecret)
	t.Setenv("JWT_REFRESH_SECRET", "")
	_, err = LoadAndValidate()
	assert.Error(t, err)
}

func TestLoadClient(t *testing.T) {
	t.Setenv("SHOPCTL_BASE_URL", "http://api.example.com/")
	t.Setenv("SHOPCTL_SESSION_FILE", "/tmp/session.json")

	cfg := LoadClient()

	assert.Equal(t, "http://api.example.com", cfg.BaseURL)
	assert.Equal(t, "/tmp/session.json", cfg.SessionFile)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}
