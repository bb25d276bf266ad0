package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.SweepCfg.Interval)
	assert.Equal(t, 5, cfg.AuthCfg.MaxLoginAttempts)
	assert.False(t, cfg.RabbitMQCfg.Enabled)
}

func TestNew_ReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SWEEP_INTERVAL", "1h")
	t.Setenv("SMTP_ENABLED", "true")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := New()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, time.Hour, cfg.SweepCfg.Interval)
	assert.True(t, cfg.SMTPCfg.Enabled)
	assert.Equal(t, 2525, cfg.SMTPCfg.Port)
	assert.Equal(t, 0, cfg.RedisCfg.DB)
}
