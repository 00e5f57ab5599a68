// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL"`   // trace|debug|info|warn|error
	Format   string `yaml:"format" env:"LOG_FORMAT"` // json|console
	Sampling bool   `yaml:"sampling"`                // enable sampling in prod
	File     string `yaml:"file" env:"LOG_FILE"`     // optional rotating file sink
	MaxSize  int    `yaml:"max_size_mb"`
	MaxAge   int    `yaml:"max_age_days"`
}

type HTTPConfig struct {
	Port               int           `yaml:"port" env:"HTTP_PORT"`
	ReadTimeout        time.Duration `yaml:"read_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	RedirectSuccessURL string        `yaml:"redirect_success_url" env:"REDIRECT_SUCCESS_URL"`
	RedirectFailureURL string        `yaml:"redirect_failure_url" env:"REDIRECT_FAILURE_URL"`
	AllowedOrigin      string        `yaml:"allowed_origin" env:"CORS_ALLOWED_ORIGIN"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url" env:"DATABASE_URL"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url" env:"REDIS_URL"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	Issuer    string `yaml:"issuer" env:"AUTH_ISSUER"`
}

type RazorpayConfig struct {
	KeyID           string        `yaml:"key_id" env:"RAZORPAY_KEY_ID"`
	KeySecret       string        `yaml:"key_secret" env:"RAZORPAY_KEY_SECRET"`
	WebhookSecret   string        `yaml:"webhook_secret" env:"RAZORPAY_WEBHOOK_SECRET"`
	BaseURL         string        `yaml:"base_url" env:"RAZORPAY_BASE_URL"`
	Timeout         time.Duration `yaml:"timeout"`
	DefaultCurrency string        `yaml:"default_currency"`
}

type PaymentConfig struct {
	Razorpay RazorpayConfig `yaml:"razorpay"`
}

type RateLimitConfig struct {
	OrderPerMinute int `yaml:"order_per_minute"`
}

type ReconcilerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	StaleAfter time.Duration `yaml:"stale_after"`
	Batch      int           `yaml:"batch"`
	LockTTL    time.Duration `yaml:"lock_ttl"`
}

type Config struct {
	Log        LogConfig        `yaml:"log"`
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Auth       AuthConfig       `yaml:"auth"`
	Payment    PaymentConfig    `yaml:"payment"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path (optional when empty or missing in
// dev), applies environment overrides and defaults, then validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist) && dev:
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	cfg.Runtime.Dev = dev
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.MaxSize <= 0 {
		cfg.Log.MaxSize = 100
	}
	if cfg.Log.MaxAge <= 0 {
		cfg.Log.MaxAge = 14
	}
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 8080
	}
	cfg.HTTP.ReadTimeout = orDefault(cfg.HTTP.ReadTimeout, 10*time.Second)
	cfg.HTTP.WriteTimeout = orDefault(cfg.HTTP.WriteTimeout, 15*time.Second)
	cfg.HTTP.RequestTimeout = orDefault(cfg.HTTP.RequestTimeout, 10*time.Second)
	if cfg.HTTP.AllowedOrigin == "" {
		cfg.HTTP.AllowedOrigin = "*"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	rp := &cfg.Payment.Razorpay
	if rp.BaseURL == "" {
		rp.BaseURL = "https://api.razorpay.com/v1"
	}
	rp.Timeout = orDefault(rp.Timeout, 10*time.Second)
	if rp.DefaultCurrency == "" {
		rp.DefaultCurrency = "INR"
	}

	if cfg.RateLimit.OrderPerMinute <= 0 {
		cfg.RateLimit.OrderPerMinute = 10
	}
	cfg.Reconciler.Interval = orDefault(cfg.Reconciler.Interval, time.Minute)
	cfg.Reconciler.StaleAfter = orDefault(cfg.Reconciler.StaleAfter, 2*time.Minute)
	cfg.Reconciler.LockTTL = orDefault(cfg.Reconciler.LockTTL, 30*time.Second)
	if cfg.Reconciler.Batch <= 0 {
		cfg.Reconciler.Batch = 50
	}
}

// Validate fails fast on missing secrets. Gateway credentials may be left out
// in dev, where the no-op gateway is used.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Runtime.Dev {
		return nil
	}
	rp := c.Payment.Razorpay
	if rp.KeyID == "" || rp.KeySecret == "" {
		return errors.New("payment.razorpay.key_id and key_secret are required")
	}
	if rp.WebhookSecret == "" {
		return errors.New("payment.razorpay.webhook_secret is required")
	}
	return nil
}

// UseNoopGateway reports whether the dev gateway replaces Razorpay.
func (c *Config) UseNoopGateway() bool {
	rp := c.Payment.Razorpay
	return c.Runtime.Dev && (rp.KeyID == "" || rp.KeySecret == "" || rp.WebhookSecret == "")
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
