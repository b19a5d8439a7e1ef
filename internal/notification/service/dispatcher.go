package service

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/repairdesk/internal/config"
	"github.com/smallbiznis/repairdesk/internal/notification/domain"
	"github.com/smallbiznis/repairdesk/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultDispatchTimeout = 5 * time.Second

type DispatcherParams struct {
	fx.In

	Lifecycle fx.Lifecycle `optional:"true"`
	Config    config.Config
	Log       *zap.Logger
	Planner   domain.Planner
	Publisher domain.Publisher
	Metrics   *metrics.Metrics `optional:"true"`
}

// Dispatcher plans and publishes intents on its own goroutine, detached from
// the caller's cancellation, so a slow or failing transport never reaches the
// mutation that produced the event.
type Dispatcher struct {
	log       *zap.Logger
	planner   domain.Planner
	publisher domain.Publisher
	metrics   *metrics.Metrics
	timeout   time.Duration
	wg        sync.WaitGroup
}

func NewDispatcher(p DispatcherParams) *Dispatcher {
	timeout := time.Duration(p.Config.Notify.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	d := &Dispatcher{
		log:       p.Log.Named("notification.dispatcher"),
		planner:   p.Planner,
		publisher: p.Publisher,
		metrics:   p.Metrics,
		timeout:   timeout,
	}
	if p.Lifecycle != nil {
		p.Lifecycle.Append(fx.Hook{
			OnStop: d.Wait,
		})
	}
	return d
}

func NewNotifier(d *Dispatcher) domain.Notifier {
	return d
}

func (d *Dispatcher) Notify(ctx context.Context, event domain.Event) {
	if d == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("notification dispatch panicked", zap.Any("panic", r))
			}
		}()
		d.dispatch(context.WithoutCancel(ctx), event)
	}()
}

func (d *Dispatcher) dispatch(ctx context.Context, event domain.Event) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	intents, err := d.planner.Plan(ctx, event)
	if err != nil {
		d.log.Warn("failed to plan notifications",
			zap.String("kind", string(event.Kind)),
			zap.String("request_id", event.RequestID.String()),
			zap.Error(err),
		)
		d.metrics.RecordNotification(ctx, string(event.Kind), "plan_failed")
		return
	}

	for _, intent := range intents {
		if err := d.publisher.Publish(ctx, intent); err != nil {
			d.log.Warn("failed to publish notification",
				zap.String("intent_id", intent.ID),
				zap.String("type", string(intent.Type)),
				zap.String("recipient_user_id", intent.RecipientUserID.String()),
				zap.Error(err),
			)
			d.metrics.RecordNotification(ctx, string(intent.Type), "failed")
			continue
		}
		d.metrics.RecordNotification(ctx, string(intent.Type), "published")
	}
}

// Wait blocks until in-flight dispatches finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
