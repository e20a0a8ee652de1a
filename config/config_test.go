package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("JWT_SECRET", "  s3cret ")

	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Auth.AcceptLegacyTokens)
	assert.Equal(t, "pdf", cfg.DocumentRenderer)
	assert.Equal(t, "none", cfg.MQ.Backend)
	assert.Equal(t, "none", cfg.Storage.Backend)
	assert.Equal(t, "log", cfg.Mail.Transport)
	assert.Equal(t, "New Daybreak Home Support", cfg.AgencyName)
	assert.Equal(t, 8, cfg.Relay.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Relay.RetryBackoff)
	assert.Equal(t, time.Hour, cfg.Relay.MaxBackoff)
	assert.Equal(t, 30*time.Second, cfg.MQ.RetryDelay)
	assert.Equal(t, 10, cfg.MQ.MaxDeliveries)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_TTL", "90m")
	t.Setenv("AUTH_ACCEPT_LEGACY_TOKENS", "true")
	t.Setenv("DOCUMENT_RENDERER", "NONE")
	t.Setenv("MQ_BACKEND", "RabbitMQ")
	t.Setenv("DB_USE_SSL", "yes-please")
	t.Setenv("RELAY_INTERVAL", "-5s")
	t.Setenv("RELAY_MAX_ATTEMPTS", "3")
	t.Setenv("MQ_RETRY_DELAY", "2s")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, 90*time.Minute, cfg.Auth.TokenTTL)
	assert.True(t, cfg.Auth.AcceptLegacyTokens)
	assert.Equal(t, "none", cfg.DocumentRenderer)
	assert.Equal(t, "rabbitmq", cfg.MQ.Backend)
	assert.Equal(t, 3, cfg.Relay.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.MQ.RetryDelay)
	// unparseable values fall back to defaults
	assert.False(t, cfg.Database.UseSSL)
	assert.Equal(t, 10*time.Second, cfg.Relay.Interval)
}
