package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/repairdesk/internal/config"
	"github.com/smallbiznis/repairdesk/internal/notification/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubPlanner struct {
	intents []domain.Intent
	err     error
}

func (p stubPlanner) Plan(ctx context.Context, event domain.Event) ([]domain.Intent, error) {
	return p.intents, p.err
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []domain.Intent
	failFor   string
}

func (p *recordingPublisher) Publish(ctx context.Context, intent domain.Intent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if intent.ID == p.failFor {
		return errors.New("transport down")
	}
	p.published = append(p.published, intent)
	return nil
}

func TestDispatcher_PublishesAfterCallerCancels(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(DispatcherParams{
		Config:    config.Config{},
		Log:       zap.NewNop(),
		Planner:   stubPlanner{intents: []domain.Intent{{ID: "a"}, {ID: "b"}}},
		Publisher: pub,
	})

	ctx, cancel := context.WithCancel(context.Background())
	d.Notify(ctx, domain.Event{Kind: domain.EventAssigned})
	cancel()

	waitCtx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()
	require.NoError(t, d.Wait(waitCtx))
	assert.Len(t, pub.published, 2)
}

func TestDispatcher_FailuresAreLoggedNotPropagated(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	pub := &recordingPublisher{failFor: "a"}
	d := NewDispatcher(DispatcherParams{
		Config:    config.Config{Notify: config.NotifyConfig{TimeoutSeconds: 1}},
		Log:       zap.New(core),
		Planner:   stubPlanner{intents: []domain.Intent{{ID: "a"}, {ID: "b"}}},
		Publisher: pub,
	})

	d.Notify(context.Background(), domain.Event{Kind: domain.EventStatusChanged})
	require.NoError(t, d.Wait(context.Background()))

	assert.Len(t, pub.published, 1)
	assert.Equal(t, 1, logs.FilterMessage("failed to publish notification").Len())
}

func TestDispatcher_PlanErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewDispatcher(DispatcherParams{
		Log:       zap.New(core),
		Planner:   stubPlanner{err: errors.New("directory down")},
		Publisher: &recordingPublisher{},
	})

	d.Notify(context.Background(), domain.Event{Kind: domain.EventSLAOverdue})
	require.NoError(t, d.Wait(context.Background()))
	assert.Equal(t, 1, logs.FilterMessage("failed to plan notifications").Len())
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher
	d.Notify(context.Background(), domain.Event{})
}
