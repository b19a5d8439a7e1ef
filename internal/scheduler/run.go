package scheduler

import (
	"context"
	"time"

	obscontext "github.com/smallbiznis/repairdesk/internal/observability/context"
	obslogger "github.com/smallbiznis/repairdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/repairdesk/internal/observability/metrics"
	"go.uber.org/zap"
)

// jobRun is the bookkeeping for one execution of a job. Each run gets its own
// id so the log lines of a sweep that spans several batches can be grouped.
type jobRun struct {
	job       string
	id        string
	batchSize int
	started   time.Time
	processed int
	failures  int
}

func (s *Scheduler) startRun(ctx context.Context, job string, batchSize int) (context.Context, *jobRun) {
	run := &jobRun{
		job:       job,
		id:        s.genID.Generate().String(),
		batchSize: batchSize,
		started:   s.clock.Now(),
	}
	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	ctx = obscontext.WithRequestID(ctx, run.id)

	s.runLogger(ctx, run).Info("job started", zap.Int("batch_size", batchSize))
	return ctx, run
}

func (r *jobRun) addProcessed(n int) {
	if n > 0 {
		r.processed += n
	}
}

func (s *Scheduler) runLogger(ctx context.Context, run *jobRun) *zap.Logger {
	return obslogger.WithContext(ctx, s.log).With(
		zap.String("job", run.job),
		zap.String("run_id", run.id),
	)
}

// failStep logs a failure inside the job body. The caller still returns the
// error so the run is recorded as failed.
func (s *Scheduler) failStep(ctx context.Context, run *jobRun, msg string, err error) {
	run.failures++
	classified := obsmetrics.ClassifyJobError(err)
	s.runLogger(ctx, run).Error(msg,
		zap.String("reason", classified.Reason),
		zap.Bool("retryable", classified.Retryable),
		zap.Error(err),
	)
}

// finishRun records metrics and the closing log line for a run.
func (s *Scheduler) finishRun(ctx context.Context, run *jobRun, err error) {
	now := s.clock.Now()
	elapsed := now.Sub(run.started)
	obsmetrics.Jobs().Finished(run.job, elapsed, now, err)

	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int("processed", run.processed),
	}
	log := s.runLogger(ctx, run)
	switch {
	case err == nil:
		log.Info("job finished", fields...)
	case obsmetrics.ClassifyJobError(err).Reason == obsmetrics.JobReasonTimeout:
		log.Warn("job timed out", append(fields, zap.Error(err))...)
	default:
		if run.failures == 0 {
			run.failures = 1
		}
		log.Warn("job failed", append(fields, zap.Int("failures", run.failures), zap.Error(err))...)
	}
}
