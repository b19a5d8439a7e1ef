// Package metricspush ships the process registry to Prometheus when the
// process is too short-lived to be scraped, as with the one-shot SLA sweep.
package metricspush

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/repairdesk/internal/config"
	"go.uber.org/zap"
)

const (
	ExporterRemoteWrite = "prometheus_remote_write"
	ExporterPushgateway = "prometheus_pushgateway"

	pushTimeout = 5 * time.Second
)

// Pusher sends one snapshot of gatherer. Implementations are nil-safe.
type Pusher interface {
	Push(ctx context.Context, gatherer prometheus.Gatherer) error
}

// NewFromConfig returns nil when pushing is off or misconfigured. A bad
// push setting never fails the sweep; it is only logged.
func NewFromConfig(cfg config.Config, log *zap.Logger) Pusher {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("metricspush")

	exporter := strings.ToLower(strings.TrimSpace(cfg.MetricsPush.Exporter))
	if exporter == "" {
		return nil
	}
	endpoint := strings.TrimSpace(cfg.MetricsPush.Endpoint)
	if endpoint == "" {
		log.Warn("metrics push disabled: METRICS_PUSH_ENDPOINT is empty", zap.String("exporter", exporter))
		return nil
	}
	env := strings.TrimSpace(cfg.Environment)

	switch exporter {
	case ExporterRemoteWrite:
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			log.Warn("metrics push disabled: bad endpoint", zap.String("endpoint", endpoint), zap.Error(err))
			return nil
		}
		return NewRemoteWritePusher(endpoint, cfg.MetricsPush.AuthToken, WithExternalLabels(map[string]string{
			"environment": env,
		}))
	case ExporterPushgateway:
		return NewPushgatewayPusher(endpoint, cfg.AppName, map[string]string{"environment": env})
	default:
		log.Warn("metrics push disabled: unknown exporter", zap.String("exporter", exporter))
		return nil
	}
}
