package observability

import (
	"strings"
	"time"

	"github.com/smallbiznis/repairdesk/internal/config"
	"github.com/smallbiznis/repairdesk/internal/observability/logger"
	"github.com/smallbiznis/repairdesk/internal/observability/metrics"
	"github.com/smallbiznis/repairdesk/internal/observability/tracing"
)

// Config is the slice of application config the telemetry stack reads.
type Config struct {
	Service ServiceInfo
	Log     LogSettings
	Otel    OtelSettings
}

type ServiceInfo struct {
	Name        string
	Environment string
	Version     string
}

type LogSettings struct {
	Level  string
	Format string
	File   string
}

type OtelSettings struct {
	Enabled        bool
	Endpoint       string
	Protocol       string
	SamplingRatio  float64
	MetricInterval time.Duration
}

func LoadConfig(cfg config.Config) Config {
	return Config{
		Service: ServiceInfo{
			Name:        orDefault(cfg.AppName, "repairdesk"),
			Environment: strings.TrimSpace(cfg.Environment),
			Version:     strings.TrimSpace(cfg.AppVersion),
		},
		Log: LogSettings{
			Level:  strings.ToLower(orDefault(cfg.LogLevel, "info")),
			Format: strings.ToLower(orDefault(cfg.LogFormat, "json")),
			File:   strings.TrimSpace(cfg.LogFile),
		},
		Otel: OtelSettings{
			Enabled:        cfg.OtelEnabled,
			Endpoint:       strings.TrimSpace(cfg.OTLPEndpoint),
			Protocol:       strings.ToLower(orDefault(cfg.OtelProtocol, "http")),
			SamplingRatio:  cfg.OtelSamplingRatio,
			MetricInterval: time.Duration(cfg.OtelMetricIntervalMS) * time.Millisecond,
		},
	}
}

// Debug is true for debug logging or any non-production style environment.
func (c Config) Debug() bool {
	if c.Log.Level == "debug" {
		return true
	}
	switch strings.ToLower(c.Service.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func (c Config) loggerConfig() logger.Config {
	return logger.Config{
		ServiceName:         c.Service.Name,
		Environment:         c.Service.Environment,
		Version:             c.Service.Version,
		Level:               c.Log.Level,
		Format:              c.Log.Format,
		File:                c.Log.File,
		Debug:               c.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: c.Debug(),
	}
}

func (c Config) tracingConfig() tracing.Config {
	return tracing.Config{
		Enabled:          c.Otel.Enabled,
		ServiceName:      c.Service.Name,
		ServiceVersion:   c.Service.Version,
		Environment:      c.Service.Environment,
		ExporterEndpoint: c.Otel.Endpoint,
		ExporterProtocol: c.Otel.Protocol,
		SamplingRatio:    c.Otel.SamplingRatio,
	}
}

func (c Config) metricsConfig() metrics.Config {
	return metrics.Config{
		Enabled:          c.Otel.Enabled,
		ExporterEndpoint: c.Otel.Endpoint,
		ExporterProtocol: c.Otel.Protocol,
		ExportInterval:   c.Otel.MetricInterval,
		ServiceName:      c.Service.Name,
		Environment:      c.Service.Environment,
	}
}

func orDefault(value, def string) string {
	if value = strings.TrimSpace(value); value == "" {
		return def
	}
	return value
}
