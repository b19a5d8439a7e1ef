package metrics

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	counterStockMovements    = "repairdesk_stock_movements_total"
	counterStockUnits        = "repairdesk_stock_units_total"
	counterStatusTransitions = "repairdesk_request_status_transitions_total"
	counterAuditFailures     = "repairdesk_audit_write_failures_total"
	counterNotifications     = "repairdesk_notification_intents_total"
	counterOverdueFlagged    = "repairdesk_requests_overdue_flagged_total"
)

var domainCounters = []struct {
	name        string
	description string
	unit        string
}{
	{counterStockMovements, "Spare-part stock changes by movement kind.", "{movement}"},
	{counterStockUnits, "Absolute pieces moved by stock changes.", "{piece}"},
	{counterStatusTransitions, "Committed repair request status changes.", "{transition}"},
	{counterAuditFailures, "Audit rows that could not be written.", "{row}"},
	{counterNotifications, "Notification intents by type and publish outcome.", "{intent}"},
	{counterOverdueFlagged, "Repair requests newly marked overdue.", "{request}"},
}

// labelKeys bounds metric cardinality: ids and free text never become labels.
var labelKeys = map[attribute.Key]struct{}{
	"movement":   {},
	"from":       {},
	"to":         {},
	"audit_kind": {},
	"event_type": {},
	"outcome":    {},
	"source":     {},
}

// Metrics holds the domain counters. A nil *Metrics records nothing.
type Metrics struct {
	counters map[string]metric.Int64Counter
}

// New registers the domain counters on provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(cfg.serviceName())
	m := &Metrics{counters: make(map[string]metric.Int64Counter, len(domainCounters))}
	for _, def := range domainCounters {
		counter, err := meter.Int64Counter(def.name,
			metric.WithDescription(def.description),
			metric.WithUnit(def.unit),
		)
		if err != nil {
			return nil, err
		}
		m.counters[def.name] = counter
	}
	return m, nil
}

// NewNoop is for tests and tools that do not export metrics.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

// FilterAttributes drops any attribute whose key is not an allowed label.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	kept := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := labelKeys[attr.Key]; ok {
			kept = append(kept, attr)
		}
	}
	return kept
}

func (m *Metrics) add(ctx context.Context, name string, n int64, attrs ...attribute.KeyValue) {
	if m == nil {
		return
	}
	counter, ok := m.counters[name]
	if !ok {
		return
	}
	counter.Add(ctx, n, metric.WithAttributes(FilterAttributes(attrs...)...))
}

func label(key, value string) attribute.KeyValue {
	return attribute.String(key, strings.TrimSpace(value))
}

// RecordStockMovement counts one stock change and the pieces it moved,
// regardless of direction.
func (m *Metrics) RecordStockMovement(ctx context.Context, kind string, units int) {
	movement := label("movement", kind)
	m.add(ctx, counterStockMovements, 1, movement)
	if units < 0 {
		units = -units
	}
	m.add(ctx, counterStockUnits, int64(units), movement)
}

func (m *Metrics) RecordStatusTransition(ctx context.Context, from, to string) {
	m.add(ctx, counterStatusTransitions, 1, label("from", from), label("to", to))
}

func (m *Metrics) RecordAuditFailure(ctx context.Context, kind string) {
	m.add(ctx, counterAuditFailures, 1, label("audit_kind", kind))
}

// RecordNotification counts an intent as published, failed or plan_failed.
func (m *Metrics) RecordNotification(ctx context.Context, intentType, outcome string) {
	m.add(ctx, counterNotifications, 1, label("event_type", intentType), label("outcome", outcome))
}

// RecordOverdueFlagged counts requests flagged by the sweep or on read.
func (m *Metrics) RecordOverdueFlagged(ctx context.Context, source string, count int) {
	if count <= 0 {
		return
	}
	m.add(ctx, counterOverdueFlagged, int64(count), label("source", source))
}
