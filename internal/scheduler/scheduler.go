package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/clock"
	obsmetrics "github.com/smallbiznis/repairdesk/internal/observability/metrics"
	"github.com/smallbiznis/repairdesk/internal/sla"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const JobOverdueSweep = "sla_overdue_sweep"

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

// OverdueSweeper flags overdue requests in batches.
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context, limit int) (int, error)
}

type Params struct {
	fx.In

	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	SLA    *sla.Service
	Locker *Locker
	Config Config `optional:"true"`
}

type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	locker  *Locker
	sweeper OverdueSweeper
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.SLA == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		genID:   p.GenID,
		clock:   p.Clock,
		locker:  p.Locker,
		sweeper: p.SLA,
	}, nil
}

// runJob runs fn while holding the job lock. A lock held by another replica
// skips the run. Hitting the timeout ends the run early but is not an error:
// the remaining requests are picked up on the next tick.
func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context, run *jobRun) error,
) error {
	jobs := obsmetrics.Jobs()

	token, acquired, err := s.locker.TryLock(parent, name, s.cfg.LockTTL)
	if err != nil {
		jobs.Failed(name, err)
		return fmt.Errorf("%s: acquire lock: %w", name, err)
	}
	if !acquired {
		jobs.Skipped(name, obsmetrics.JobSkipReasonLockHeld)
		s.log.Debug("job skipped, lock held elsewhere",
			zap.String("job", name),
			zap.String("holder", s.locker.Holder(parent, name)),
		)
		return nil
	}
	defer s.release(name, token)

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.startRun(ctx, name, batchSize)
	jobs.Started(name)

	err = fn(ctx, run)
	s.finishRun(ctx, run, err)

	switch {
	case err == nil:
		return nil
	case obsmetrics.ClassifyJobError(err).Reason == obsmetrics.JobReasonTimeout:
		return nil
	default:
		return fmt.Errorf("%s: %w", name, err)
	}
}

func (s *Scheduler) release(name, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.locker.Release(ctx, name, token); err != nil {
		s.log.Warn("job lock release failed", zap.String("job", name), zap.Error(err))
	}
}

// RunOnce performs a single overdue sweep.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runJob(ctx, JobOverdueSweep, s.cfg.BatchSize, s.cfg.JobTimeout, s.OverdueSweepJob)
}

// RunForever sweeps on every tick until ctx is cancelled.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	due := s.clock.Now().Add(s.cfg.RunInterval)

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("overdue sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		obsmetrics.Jobs().LoopLag(s.clock.Now().Sub(due))
		due = due.Add(s.cfg.RunInterval)
	}
}

// OverdueSweepJob drains overdue requests batch by batch until a batch comes
// back short.
func (s *Scheduler) OverdueSweepJob(ctx context.Context, run *jobRun) error {
	for {
		flagged, err := s.sweeper.SweepOverdue(ctx, run.batchSize)
		if err != nil {
			s.failStep(ctx, run, "overdue batch failed", err)
			return err
		}
		run.addProcessed(flagged)
		obsmetrics.Jobs().Processed(run.job, obsmetrics.ResourceServiceRequest, flagged)
		if flagged < run.batchSize {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}
