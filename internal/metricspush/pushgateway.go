package metricspush

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	errNoGateway = errors.New("metricspush: pushgateway endpoint is required")
	errNoJob     = errors.New("metricspush: pushgateway job is required")
)

// PushgatewayPusher replaces the job's group on a Prometheus Pushgateway.
type PushgatewayPusher struct {
	endpoint string
	job      string
	grouping map[string]string
}

func NewPushgatewayPusher(endpoint, job string, grouping map[string]string) *PushgatewayPusher {
	cleaned := make(map[string]string, len(grouping))
	for key, value := range grouping {
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key != "" && value != "" {
			cleaned[key] = value
		}
	}
	return &PushgatewayPusher{
		endpoint: strings.TrimSpace(endpoint),
		job:      strings.TrimSpace(job),
		grouping: cleaned,
	}
}

func (p *PushgatewayPusher) Push(ctx context.Context, gatherer prometheus.Gatherer) error {
	if p == nil || gatherer == nil {
		return nil
	}
	switch {
	case p.endpoint == "":
		return errNoGateway
	case p.job == "":
		return errNoJob
	}

	req := push.New(p.endpoint, p.job).Gatherer(gatherer)
	for _, key := range slices.Sorted(maps.Keys(p.grouping)) {
		req = req.Grouping(key, p.grouping[key])
	}
	return req.PushContext(ctx)
}
