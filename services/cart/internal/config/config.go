package config

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/cart"
	pkgconfig "github.com/Zchasse63/vercelpickle-sub006/pkg/config"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/database"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/kafka"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/middleware"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/tracing"
)

// Config holds all configuration for the cart service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort   int      `env:"CART_HTTP_PORT" envDefault:"8003"`
	PprofCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`

	// JWTSecret enables bearer-token auth on cart routes. Empty means the
	// service trusts X-User-ID from the gateway.
	JWTSecret string `env:"JWT_SECRET"`

	// Cart TTL in hours (default: 7 days)
	CartTTLHours int `env:"CART_TTL_HOURS" envDefault:"168"`

	SlowQueryThreshold time.Duration `env:"SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	Redis     database.RedisConfig
	Postgres  database.PostgresConfig
	Kafka     kafka.ProducerConfig
	Tracing   tracing.Config
	RateLimit middleware.RateLimitConfig
	CORS      middleware.CORSConfig
	Pricing   cart.PricingPolicy
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load cart config: %w", err)
	}
	cfg.Tracing.ServiceName = "cart-service"
	cfg.Tracing.Environment = cfg.Environment
	return cfg, nil
}

// CartTTL is the idle lifetime of a stored cart.
func (c *Config) CartTTL() time.Duration {
	return time.Duration(c.CartTTLHours) * time.Hour
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.CartTTLHours < 1 {
		return fmt.Errorf("CART_TTL_HOURS must be positive, got %d", c.CartTTLHours)
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes, got %d", len(c.JWTSecret))
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative, got %v", c.RateLimit.RPS)
	}
	for _, cidr := range c.PprofCIDRs {
		if _, err := netip.ParsePrefix(cidr); err != nil {
			return fmt.Errorf("PPROF_ALLOWED_CIDRS: %w", err)
		}
	}
	if err := c.Tracing.Validate(); err != nil {
		return err
	}
	return c.Pricing.Validate()
}
