// Package config loads the service configuration from an optional YAML file
// and BLOSSOM_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "BLOSSOM_"

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogFile  string `koanf:"log_file"`
		LogLevel string `koanf:"log_level"`
		// AllowOrigins is the CORS origin list, comma separated.
		AllowOrigins string `koanf:"allow_origins"`
	} `koanf:"app"`

	Auth struct {
		JWTSecret  string        `koanf:"jwt_secret"`
		SessionTTL time.Duration `koanf:"session_ttl"`
	} `koanf:"auth"`

	Storage struct {
		Driver string `koanf:"driver"`
		Dir    string `koanf:"dir"`
		// CartIdle is how long an untouched cart stays in memory.
		CartIdle time.Duration `koanf:"cart_idle"`
	} `koanf:"storage"`

	Catalog struct {
		Driver string `koanf:"driver"`
	} `koanf:"catalog"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Database struct {
		URL string `koanf:"url"`
	} `koanf:"database"`

	Payment struct {
		BaseURL       string        `koanf:"base_url"`
		Timeout       time.Duration `koanf:"timeout"`
		RedirectDelay time.Duration `koanf:"redirect_delay"`
		DashboardPath string        `koanf:"dashboard_path"`
		CallbackURL   string        `koanf:"callback_url"`
	} `koanf:"payment"`

	Newsletter struct {
		BaseURL string `koanf:"base_url"`
	} `koanf:"newsletter"`
}

var (
	ErrMissingSecret = errors.New("auth.jwt_secret required")
	ErrUnknownDriver = errors.New("unknown driver")
)

// Load reads .env (if present), then path (if it exists), then the
// environment. BLOSSOM_PAYMENT__BASE_URL sets payment.base_url.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "blossom-storefront"
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = ":8080"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.AllowOrigins == "" {
		c.App.AllowOrigins = "*"
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 30 * 24 * time.Hour
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = "./data/carts"
	}
	if c.Storage.CartIdle == 0 {
		c.Storage.CartIdle = 30 * time.Minute
	}
	if c.Catalog.Driver == "" {
		c.Catalog.Driver = "memory"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Payment.BaseURL == "" {
		c.Payment.BaseURL = "http://localhost:5000/api"
	}
	if c.Payment.Timeout == 0 {
		c.Payment.Timeout = 20 * time.Second
	}
	if c.Payment.RedirectDelay == 0 {
		c.Payment.RedirectDelay = 3 * time.Second
	}
	if c.Payment.DashboardPath == "" {
		c.Payment.DashboardPath = "/dashboard"
	}
	if c.Newsletter.BaseURL == "" {
		c.Newsletter.BaseURL = c.Payment.BaseURL
	}
}

func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return ErrMissingSecret
	}
	switch c.Storage.Driver {
	case "memory", "file", "redis", "postgres":
	default:
		return fmt.Errorf("storage.driver %q: %w", c.Storage.Driver, ErrUnknownDriver)
	}
	switch c.Catalog.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("catalog.driver %q: %w", c.Catalog.Driver, ErrUnknownDriver)
	}
	if (c.Storage.Driver == "postgres" || c.Catalog.Driver == "postgres") && c.Database.URL == "" {
		return fmt.Errorf("database.url required for the postgres driver")
	}
	if c.Payment.RedirectDelay <= 0 {
		return fmt.Errorf("payment.redirect_delay must be positive")
	}
	if c.Payment.Timeout < 0 {
		return fmt.Errorf("payment.timeout must not be negative")
	}
	return nil
}

// NeedsDatabase reports whether any component is backed by Postgres.
func (c Config) NeedsDatabase() bool {
	return c.Storage.Driver == "postgres" || c.Catalog.Driver == "postgres"
}
