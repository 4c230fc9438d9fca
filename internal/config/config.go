package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	pkgconfig "github.com/ajoedv/fotolio/pkg/config"
)

const defaultJWTSecret = "change-this-to-a-secure-secret"

// Config holds all configuration for the shop service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"SHOP_HTTP_PORT" envDefault:"8080"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"fotolio"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"fotolio_secret"`
	PostgresDB   string `env:"SHOP_DB_NAME" envDefault:"shop_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Redis (checkout sessions)
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Checkout session TTL in minutes; an untouched checkout is abandoned
	// after this long.
	CheckoutTTL int `env:"CHECKOUT_TTL_MINUTES" envDefault:"60"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Auth
	JWTSecret string `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`

	// Payment processor. An empty secret key disables payment processing;
	// browsing and shipping collection keep working without it.
	PaymentSecretKey  string `env:"PAYMENT_SECRET_KEY" envDefault:""`
	PaymentPublicKey  string `env:"PAYMENT_PUBLIC_KEY" envDefault:""`
	PaymentAPIBaseURL string `env:"PAYMENT_API_BASE_URL" envDefault:"https://api.stripe.com"`
	PaymentCurrency   string `env:"PAYMENT_CURRENCY" envDefault:"sek"`

	// Pricing
	VATRate           string `env:"VAT_RATE" envDefault:"0.25"`
	OrderNumberPrefix string `env:"ORDER_NUMBER_PREFIX" envDefault:"FO"`

	// Rate limiting for the payment endpoint
	PaymentRateRPS   int `env:"PAYMENT_RATE_LIMIT_RPS" envDefault:"2"`
	PaymentRateBurst int `env:"PAYMENT_RATE_LIMIT_BURST" envDefault:"5"`

	// Tracing
	ServiceVersion string  `env:"SERVICE_VERSION" envDefault:"dev"`
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	vatRate decimal.Decimal
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load shop config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.CheckoutTTL < 1 {
		return fmt.Errorf("invalid checkout TTL: %d minutes", c.CheckoutTTL)
	}
	if len(c.PaymentCurrency) != 3 {
		return fmt.Errorf("invalid payment currency: %q", c.PaymentCurrency)
	}
	if c.Environment != "development" && c.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", c.Environment)
	}

	rate, err := decimal.NewFromString(c.VATRate)
	if err != nil {
		return fmt.Errorf("invalid VAT rate %q: %w", c.VATRate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("VAT rate must be in [0, 1), got %s", rate)
	}
	c.vatRate = rate

	return nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}

// VAT returns the parsed VAT rate. Only valid after Load.
func (c *Config) VAT() decimal.Decimal {
	return c.vatRate
}

// SessionTTL returns the checkout session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.CheckoutTTL) * time.Minute
}

// PaymentEnabled reports whether processor credentials are configured.
func (c *Config) PaymentEnabled() bool {
	return c.PaymentSecretKey != ""
}
