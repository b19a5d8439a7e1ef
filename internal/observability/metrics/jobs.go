package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/repairdesk/internal/authorization"
	pkgdb "github.com/smallbiznis/repairdesk/pkg/db"
	"gorm.io/gorm"
)

// Error reasons used as the "reason" label on job error counters.
const (
	JobReasonTimeout       = "timeout"
	JobReasonForbidden     = "forbidden"
	JobReasonLockTimeout   = "db_lock_timeout"
	JobReasonConflict      = "db_conflict"
	JobReasonDuplicate     = "unique_violation"
	JobReasonDatabase      = "db"
	JobReasonBusinessRule  = "business_rule"
	JobSkipReasonLockHeld  = "lock_held"
	ResourceServiceRequest = "service_request"
)

// JobError is the low-cardinality view of a failed job run.
type JobError struct {
	Reason    string
	Retryable bool
}

// ClassifyJobError maps a job error onto a metric label and a retry hint.
// Deadlines, lock waits and serialization conflicts clear up on the next
// tick; authorization and business-rule failures do not.
func ClassifyJobError(err error) JobError {
	switch {
	case err == nil:
		return JobError{}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return JobError{Reason: JobReasonTimeout, Retryable: true}
	case errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrInvalidActor),
		errors.Is(err, authorization.ErrInvalidObject):
		return JobError{Reason: JobReasonForbidden}
	case pkgdb.IsLockTimeout(err):
		return JobError{Reason: JobReasonLockTimeout, Retryable: true}
	case pkgdb.IsRetryableConflict(err):
		return JobError{Reason: JobReasonConflict, Retryable: true}
	case pkgdb.IsUniqueViolation(err):
		return JobError{Reason: JobReasonDuplicate}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return JobError{Reason: JobReasonBusinessRule}
	case isGormError(err):
		return JobError{Reason: JobReasonDatabase, Retryable: true}
	default:
		return JobError{Reason: JobReasonBusinessRule}
	}
}

func isGormError(err error) bool {
	for _, target := range []error{
		gorm.ErrInvalidDB,
		gorm.ErrInvalidTransaction,
		gorm.ErrInvalidData,
		gorm.ErrInvalidValue,
		gorm.ErrMissingWhereClause,
		gorm.ErrUnsupportedDriver,
		gorm.ErrNotImplemented,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// JobMetrics tracks background jobs: the in-process sweep loop and the
// one-shot sla-sweep command, which pushes these series on exit.
type JobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	errs        *prometheus.CounterVec
	skipped     *prometheus.CounterVec
	processed   *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
	loopLag     prometheus.Histogram
}

var (
	jobsOnce sync.Once
	jobs     *JobMetrics
)

// Jobs returns the process-wide job metrics.
func Jobs() *JobMetrics {
	return JobsWithConfig(Config{})
}

// JobsWithConfig registers the job collectors on first use. Later calls
// return the same instance whatever the config.
func JobsWithConfig(cfg Config) *JobMetrics {
	jobsOnce.Do(func() {
		jobs = newJobMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return jobs
}

// ResetJobsForTest drops the singleton so a test can register on a fresh
// registry.
func ResetJobsForTest() {
	jobsOnce = sync.Once{}
	jobs = nil
}

func newJobMetrics(registerer prometheus.Registerer, cfg Config) *JobMetrics {
	labels := prometheus.Labels{
		"service": orUnknown(cfg.ServiceName, "repairdesk"),
		"env":     orUnknown(cfg.Environment, "unknown"),
	}
	m := &JobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "repairdesk_job_runs_total", Help: "Job runs started.", ConstLabels: labels,
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "repairdesk_job_duration_seconds", Help: "Job run latency.", ConstLabels: labels,
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"job"}),
		errs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "repairdesk_job_errors_total", Help: "Failed job runs by reason.", ConstLabels: labels,
		}, []string{"job", "reason"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "repairdesk_job_skipped_total", Help: "Job runs skipped, usually because another replica holds the lock.", ConstLabels: labels,
		}, []string{"job", "reason"}),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "repairdesk_job_items_processed_total", Help: "Items a job acted on.", ConstLabels: labels,
		}, []string{"job", "resource"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "repairdesk_job_last_success_timestamp_seconds", Help: "Unix time of the last successful run.", ConstLabels: labels,
		}, []string{"job"}),
		loopLag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "repairdesk_job_loop_lag_seconds", Help: "Delay of a tick past its scheduled time.", ConstLabels: labels,
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
	}
	registerer.MustRegister(m.runs, m.duration, m.errs, m.skipped, m.processed, m.lastSuccess, m.loopLag)
	return m
}

func (m *JobMetrics) Started(job string) {
	if m != nil {
		m.runs.WithLabelValues(job).Inc()
	}
}

// Finished records the run latency and either its failure reason or the
// success timestamp.
func (m *JobMetrics) Finished(job string, elapsed time.Duration, finishedAt time.Time, err error) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(job).Observe(elapsed.Seconds())
	if err != nil {
		m.errs.WithLabelValues(job, ClassifyJobError(err).Reason).Inc()
		return
	}
	m.lastSuccess.WithLabelValues(job).Set(float64(finishedAt.Unix()))
}

// Failed counts an error raised before the job body ran, such as a lock
// backend outage.
func (m *JobMetrics) Failed(job string, err error) {
	if m != nil && err != nil {
		m.errs.WithLabelValues(job, ClassifyJobError(err).Reason).Inc()
	}
}

func (m *JobMetrics) Skipped(job, reason string) {
	if m != nil {
		m.skipped.WithLabelValues(job, reason).Inc()
	}
}

func (m *JobMetrics) Processed(job, resource string, count int) {
	if m != nil && count > 0 {
		m.processed.WithLabelValues(job, resource).Add(float64(count))
	}
}

func (m *JobMetrics) LoopLag(lag time.Duration) {
	if m != nil && lag > 0 {
		m.loopLag.Observe(lag.Seconds())
	}
}

func orUnknown(value, def string) string {
	if value = strings.TrimSpace(value); value == "" {
		return def
	}
	return value
}
