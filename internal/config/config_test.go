package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "")
	t.Setenv("DEFAULT_CURRENCY", "")

	cfg := Load()
	assert.Equal(t, "postgres", cfg.DBType)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 20, cfg.RateLimit.WriteBurst)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DEFAULT_CURRENCY", " eur ")
	t.Setenv("SCHEDULER_ENABLED", "off")
	t.Setenv("RATE_LIMIT_ENABLED", "yes")
	t.Setenv("RATE_LIMIT_WRITE_RATE", "0.5")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()
	assert.Equal(t, "EUR", cfg.DefaultCurrency)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 0.5, cfg.RateLimit.WriteRate)
	assert.Equal(t, 0, cfg.Redis.DB)
}

func TestIsProduction(t *testing.T) {
	assert.True(t, Config{Environment: " Production "}.IsProduction())
	assert.False(t, Config{Environment: "staging"}.IsProduction())
}

func TestLoadOtelAndDatabaseLogging(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "GRPC")
	t.Setenv("OTEL_METRIC_EXPORT_INTERVAL", "")
	t.Setenv("DATABASE_SLOW_QUERY_MS", "750")

	cfg := Load()
	assert.Equal(t, "grpc", cfg.OtelProtocol)
	assert.Equal(t, 10000, cfg.OtelMetricIntervalMS)
	assert.Equal(t, 750, cfg.DBSlowQueryMS)

	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "http/protobuf")
	assert.Equal(t, "http/protobuf", Load().OtelProtocol)
}
