package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.StoreBackend)
	assert.Equal(t, "store", cfg.RateLimitBackend)
	assert.Equal(t, "snow_paradise_default", cfg.PushChannelID)
	assert.Equal(t, "en", cfg.NotifyLocale)
	assert.Equal(t, time.Minute, cfg.KeywordRateWindow)
	assert.Equal(t, 20, cfg.KeywordRateMax)
	assert.Equal(t, 10*time.Minute, cfg.ReportRateWindow)
	assert.Equal(t, 5, cfg.ReportRateMax)
	assert.Nil(t, cfg.CORSAllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("KEYWORD_RATE_MAX", "7")
	t.Setenv("EVENT_ACK_WAIT", "45s")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("NOTIFY_LOCALE", "ko")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg := Load()

	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 7, cfg.KeywordRateMax)
	assert.Equal(t, 45*time.Second, cfg.EventAckWait)
	assert.True(t, cfg.TracingEnabled)
	assert.Equal(t, "ko", cfg.NotifyLocale)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("KEYWORD_RATE_MAX", "many")
	t.Setenv("EVENT_ACK_WAIT", "soon")

	cfg := Load()

	assert.Equal(t, 20, cfg.KeywordRateMax)
	assert.Equal(t, 30*time.Second, cfg.EventAckWait)
}
