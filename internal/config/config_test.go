package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 5*time.Minute, cfg.DatesCacheTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("DATES_CACHE_TTL", "30s")
	t.Setenv("RATE_LIMIT_PER_MIN", "10")

	cfg := Load()
	assert.Equal(t, "9999", cfg.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.DatesCacheTTL)
	assert.Equal(t, 10, cfg.RateLimitPerMin)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("DATES_CACHE_TTL", "soon")
	t.Setenv("RATE_LIMIT_PER_MIN", "lots")

	cfg := Load()
	assert.Equal(t, 5*time.Minute, cfg.DatesCacheTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
}
