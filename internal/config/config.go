package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"shop-admin-api/internal/logger"
)

const defaultSecret = "your-secret-key-change-in-production"

type Config struct {
	Environment string
	Port        string
	DatabaseURL string

	JWTSecret        string
	JWTRefreshSecret string
	JWTIssuer        string
	JWTAudience      string
	JWTExpiry        time.Duration
	RefreshExpiry    time.Duration
	MaxRefreshCount  int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	EnableMetrics bool
	EnableSwagger bool
	RLSEnabled    bool

	ImportMappingPath string

	Log logger.Config

	loadErr error
}

// serverEnv maps config keys to the environment variables that set them.
var serverEnv = map[string]string{
	"environment":        "ENVIRONMENT",
	"port":               "PORT",
	"database_url":       "DB_DSN",
	"jwt.secret":         "JWT_SECRET",
	"jwt.refresh_secret": "JWT_REFRESH_SECRET",
	"jwt.issuer":         "JWT_ISS",
	"jwt.audience":       "JWT_AUD",
	"jwt.expiry":         "JWT_EXPIRY",
	"jwt.refresh_expiry": "JWT_REFRESH_EXPIRY",
	"jwt.max_refresh":    "JWT_MAX_REFRESH",
	"redis.addr":         "REDIS_ADDR",
	"redis.password":     "REDIS_PASSWORD",
	"redis.db":           "REDIS_DB",
	"metrics.enabled":    "ENABLE_METRICS",
	"swagger.enabled":    "ENABLE_SWAGGER",
	"rls.enabled":        "RLS_ENABLED",
	"imports.mapping":    "IMPORT_MAPPING",
	"log.level":          "LOG_LEVEL",
	"log.format":         "LOG_FORMAT",
	"log.output":         "LOG_OUTPUT",
}

// Load reads configuration from the environment and an optional
// config.yaml in the working directory (or the file named by CONFIG_FILE).
// Environment variables win over the file.
func Load() *Config {
	v := viper.New()
	v.SetDefault("environment", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("jwt.secret", defaultSecret)
	v.SetDefault("jwt.issuer", "shop-admin-api")
	v.SetDefault("jwt.audience", "shop-admin-api")
	v.SetDefault("jwt.expiry", 15*time.Minute)
	v.SetDefault("jwt.refresh_expiry", 7*24*time.Hour)
	v.SetDefault("jwt.max_refresh", 10)
	v.SetDefault("imports.mapping", "configs/mapping/inventory.yaml")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	for key, env := range serverEnv {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}
	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			cfg.loadErr = fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg.Environment = v.GetString("environment")
	cfg.Port = v.GetString("port")
	cfg.DatabaseURL = v.GetString("database_url")
	cfg.JWTSecret = v.GetString("jwt.secret")
	cfg.JWTRefreshSecret = v.GetString("jwt.refresh_secret")
	cfg.JWTIssuer = v.GetString("jwt.issuer")
	cfg.JWTAudience = v.GetString("jwt.audience")
	cfg.JWTExpiry = v.GetDuration("jwt.expiry")
	cfg.RefreshExpiry = v.GetDuration("jwt.refresh_expiry")
	cfg.MaxRefreshCount = v.GetInt("jwt.max_refresh")
	cfg.RedisAddr = v.GetString("redis.addr")
	cfg.RedisPassword = v.GetString("redis.password")
	cfg.RedisDB = v.GetInt("redis.db")
	cfg.EnableMetrics = v.GetBool("metrics.enabled")
	cfg.EnableSwagger = v.GetBool("swagger.enabled")
	cfg.RLSEnabled = v.GetBool("rls.enabled")
	cfg.ImportMappingPath = v.GetString("imports.mapping")
	cfg.Log = logger.Config{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
		Output: v.GetString("log.output"),
	}
	if cfg.JWTRefreshSecret == "" {
		cfg.JWTRefreshSecret = cfg.JWTSecret
	}
	return cfg
}

// LoadAndValidate loads the configuration and validates it.
func LoadAndValidate() (*Config, error) {
	cfg := Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the JWT settings and, in production, rejects the
// built-in development secret.
func (c *Config) Validate() error {
	if c.loadErr != nil {
		return c.loadErr
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters, got %d", len(c.JWTSecret))
	}
	if c.JWTRefreshSecret != "" && len(c.JWTRefreshSecret) < 32 {
		return fmt.Errorf("JWT_REFRESH_SECRET must be at least 32 characters, got %d", len(c.JWTRefreshSecret))
	}
	if strings.EqualFold(c.Environment, "production") && c.JWTSecret == defaultSecret {
		return errors.New("JWT_SECRET must be changed in production")
	}
	if c.JWTIssuer == "" {
		return errors.New("JWT_ISS is required")
	}
	if c.JWTAudience == "" {
		return errors.New("JWT_AUD is required")
	}
	if c.JWTExpiry < time.Minute {
		return fmt.Errorf("JWT_EXPIRY must be at least 1m, got %v", c.JWTExpiry)
	}
	if c.JWTExpiry > 30*24*time.Hour {
		return fmt.Errorf("JWT_EXPIRY must be at most 720h, got %v", c.JWTExpiry)
	}
	if c.RefreshExpiry < c.JWTExpiry {
		return fmt.Errorf("JWT_REFRESH_EXPIRY (%v) must not be shorter than JWT_EXPIRY (%v)", c.RefreshExpiry, c.JWTExpiry)
	}
	if c.MaxRefreshCount < 1 {
		return errors.New("JWT_MAX_REFRESH must be positive")
	}
	return nil
}

// ClientConfig configures shopctl.
type ClientConfig struct {
	BaseURL     string
	SessionFile string
	Timeout     time.Duration
	Log         logger.Config
}

// LoadClient reads SHOPCTL_* environment variables.
func LoadClient() *ClientConfig {
	v := viper.New()
	v.SetEnvPrefix("SHOPCTL")
	v.AutomaticEnv()
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("log_level", "warn")

	session := v.GetString("session_file")
	if session == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = os.TempDir()
		}
		session = filepath.Join(dir, "shopctl", "session.json")
	}
	return &ClientConfig{
		BaseURL:     strings.TrimRight(v.GetString("base_url"), "/"),
		SessionFile: session,
		Timeout:     v.GetDuration("timeout"),
		Log: logger.Config{
			Level:  v.GetString("log_level"),
			Format: "console",
			Output: "stderr",
		},
	}
}
