package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(nil))
	require.NoError(t, err)

	assert.Equal(t, "joyeria", cfg.ServiceName)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "mxn", cfg.Currency)
	assert.Equal(t, "anillos", cfg.RingCategory)
	assert.True(t, cfg.RestoreSizedOnCancel)
	assert.Equal(t, 10*time.Minute, cfg.IdempotencyTTL)
	assert.Empty(t, cfg.DatabaseURL)
	assert.False(t, cfg.SMTP.Enabled())
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"ENV":                     "prod",
		"DATABASE_URL":            "postgres://u:p@db:5432/joyeria?sslmode=disable",
		"REDIS_ADDR":              "redis:6379",
		"IDEMPOTENCY_TTL":         "2m",
		"STRIPE_SECRET_KEY":       "sk_test_123",
		"CURRENCY":                "MXN",
		"RESTORE_SIZED_ON_CANCEL": "false",
		"SMTP_HOST":               "smtp.example.com",
		"SMTP_PORT":               "2525",
		"MAIL_FROM":               "tienda@example.com",
	}))
	require.NoError(t, err)

	assert.Equal(t, "mxn", cfg.Currency)
	assert.Equal(t, 2*time.Minute, cfg.IdempotencyTTL)
	assert.False(t, cfg.RestoreSizedOnCancel)
	assert.True(t, cfg.SMTP.Enabled())
	assert.Equal(t, 2525, cfg.SMTP.Port)
}

func TestFromEnvRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad duration", env: map[string]string{"IDEMPOTENCY_TTL": "soon"}},
		{name: "bad bool", env: map[string]string{"RESTORE_SIZED_ON_CANCEL": "maybe"}},
		{name: "unknown env", env: map[string]string{"ENV": "qa"}},
		{name: "currency length", env: map[string]string{"CURRENCY": "pesos"}},
		{name: "stripe key", env: map[string]string{"STRIPE_SECRET_KEY": "pk_live_1"}},
		{name: "smtp without sender", env: map[string]string{"SMTP_HOST": "smtp.example.com"}},
		{name: "success rate", env: map[string]string{"SIMULATED_SUCCESS_RATE": "1.5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(env(tt.env))
			assert.Error(t, err)
		})
	}
}
