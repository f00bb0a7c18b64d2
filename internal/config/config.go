package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the process configuration read from the environment.
type Config struct {
	ServiceName string `validate:"required"`
	Env         string `validate:"required,oneof=dev staging prod test"`
	HTTPAddr    string `validate:"required"`
	LogFile     string
	LogLevel    string `validate:"omitempty,oneof=debug info warn error"`
	StoreName   string `validate:"required"`

	// AdminEmail seeds the admin contact of the in-memory store.
	AdminEmail string `validate:"omitempty,email"`

	// DatabaseURL selects Postgres; empty runs on the in-memory store.
	DatabaseURL string `validate:"omitempty,url"`

	// RedisAddr enables the idempotency fast path.
	RedisAddr      string        `validate:"omitempty,hostname_port"`
	IdempotencyTTL time.Duration `validate:"gt=0"`

	// StripeSecretKey selects Stripe; empty runs the simulated processor.
	StripeSecretKey      string  `validate:"omitempty,startswith=sk_"`
	SimulatedSuccessRate float64 `validate:"gt=0,lte=1"`
	Currency             string  `validate:"required,len=3,lowercase"`

	RingCategory         string `validate:"required"`
	RestoreSizedOnCancel bool

	SMTP SMTP
}

type SMTP struct {
	Host     string
	Port     int `validate:"required_with=Host,omitempty,min=1,max=65535"`
	Username string
	Password string
	From     string `validate:"required_with=Host,omitempty,email"`
}

// Enabled reports whether mail should go through an SMTP relay.
func (s SMTP) Enabled() bool { return s.Host != "" }

// Load reads an optional .env file and the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv and validates it.
func FromEnv(getenv func(string) string) (Config, error) {
	p := parser{getenv: getenv}
	cfg := Config{
		ServiceName:          p.str("SERVICE_NAME", "joyeria"),
		Env:                  p.str("ENV", "dev"),
		HTTPAddr:             p.str("HTTP_ADDR", ":8080"),
		LogFile:              p.str("LOG_FILE", ""),
		LogLevel:             strings.ToLower(p.str("LOG_LEVEL", "info")),
		StoreName:            p.str("STORE_NAME", "Joyería"),
		AdminEmail:           p.str("ADMIN_EMAIL", ""),
		DatabaseURL:          p.str("DATABASE_URL", ""),
		RedisAddr:            p.str("REDIS_ADDR", ""),
		IdempotencyTTL:       p.duration("IDEMPOTENCY_TTL", 10*time.Minute),
		StripeSecretKey:      p.str("STRIPE_SECRET_KEY", ""),
		SimulatedSuccessRate: p.float("SIMULATED_SUCCESS_RATE", 1),
		Currency:             strings.ToLower(p.str("CURRENCY", "mxn")),
		RingCategory:         p.str("RING_CATEGORY", "anillos"),
		RestoreSizedOnCancel: p.bool("RESTORE_SIZED_ON_CANCEL", true),
		SMTP: SMTP{
			Host:     p.str("SMTP_HOST", ""),
			Port:     p.int("SMTP_PORT", 587),
			Username: p.str("SMTP_USERNAME", ""),
			Password: p.str("SMTP_PASSWORD", ""),
			From:     p.str("MAIL_FROM", ""),
		},
	}
	if len(p.errs) > 0 {
		return Config{}, errors.Join(p.errs...)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("config: %s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("config: %s: %w", key, err))
		return def
	}
	return f
}

func (p *parser) bool(key string, def bool) bool {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("config: %s: %w", key, err))
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("config: %s: %w", key, err))
		return def
	}
	return d
}
