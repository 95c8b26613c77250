package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

var supportedCurrencies = map[string]bool{"NGN": true, "USD": true, "EUR": true, "GBP": true}

type Config struct {
	Port            string        `mapstructure:"PORT"`
	Env             string        `mapstructure:"ENV"`
	Store           string        `mapstructure:"STORE"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32         `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir   string        `mapstructure:"MIGRATIONS_DIR"`
	UploadDir       string        `mapstructure:"UPLOAD_DIR"`
	MaxPhotoBytes   int64         `mapstructure:"MAX_PHOTO_BYTES"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS    float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	AuthSigningKey  string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthTokenTTL    time.Duration `mapstructure:"AUTH_TOKEN_TTL"`
	DefaultCountry  string        `mapstructure:"DEFAULT_COUNTRY"`
	DefaultCurrency string        `mapstructure:"DEFAULT_CURRENCY"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "3001")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE", StorePostgres)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("UPLOAD_DIR", "uploads/patients")
	v.SetDefault("MAX_PHOTO_BYTES", 5*1024*1024)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("AUTH_TOKEN_TTL", "24h")
	v.SetDefault("DEFAULT_COUNTRY", "Nigeria")
	v.SetDefault("DEFAULT_CURRENCY", "NGN")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "STORE", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"MIGRATIONS_DIR", "UPLOAD_DIR", "MAX_PHOTO_BYTES", "CORS_ORIGINS",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT",
		"AUTH_SIGNING_KEY", "AUTH_TOKEN_TTL", "DEFAULT_COUNTRY", "DEFAULT_CURRENCY",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	origins := v.GetString("CORS_ORIGINS")
	if origins != "" {
		cfg.CORSOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	cfg.DefaultCurrency = strings.ToUpper(cfg.DefaultCurrency)

	if cfg.Store == StorePostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when STORE=%s", StorePostgres)
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UsesPostgres reports whether the durable store is selected.
func (c *Config) UsesPostgres() bool {
	return c.Store == StorePostgres
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.Store != StorePostgres && c.Store != StoreMemory {
		return fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}
	if c.IsProduction() && c.Store == StoreMemory {
		return fmt.Errorf("STORE=%s is not allowed in production", StoreMemory)
	}
	if c.IsProduction() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required in production")
	}
	if !supportedCurrencies[c.DefaultCurrency] {
		return fmt.Errorf("DEFAULT_CURRENCY must be one of NGN, USD, EUR, GBP, got %q", c.DefaultCurrency)
	}
	if c.MaxPhotoBytes <= 0 {
		return fmt.Errorf("MAX_PHOTO_BYTES must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR is required")
	}
	return nil
}

// SigningKey returns the HMAC key used for stub auth tokens. Development
// falls back to a fixed key so tokens survive restarts.
func (c *Config) SigningKey() []byte {
	if c.AuthSigningKey != "" {
		return []byte(c.AuthSigningKey)
	}
	return []byte("plural-dev-signing-key")
}
