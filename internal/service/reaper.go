package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openbench/jurisync/config"
	"github.com/openbench/jurisync/internal/core"
	"github.com/openbench/jurisync/internal/domain/model"
	obserrors "github.com/openbench/jurisync/internal/observability/errors"
	"github.com/openbench/jurisync/internal/observability/metrics"
	"github.com/openbench/jurisync/internal/observability/statsd"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Repo    core.ReaperRepository // Required: reaper repository
	Config  config.ReaperConfig   // Required: reaper configuration
	Logger  *slog.Logger          // Optional: structured logger
	Metrics statsd.Sink           // Optional: metrics sink (StatsD-compatible)
}

// ReaperService keeps the sync queue and report store healthy over time.
//
// Each tick it:
// - Requeues running jobs whose lease expired so another worker can claim them.
// - Fails pending jobs that were never picked up within the max age.
// - Deletes old completed, failed, and cancelled jobs to prevent table bloat.
// - Trims validation reports past the retention window.
type ReaperService struct {
	repo    core.ReaperRepository
	config  config.ReaperConfig
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ReaperRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reaper_service")
		logger.Debug("ReaperService initialized",
			"interval", opts.Config.Interval,
			"pending_max_age", opts.Config.PendingMaxAge,
			"completed_max_age", opts.Config.CompletedMaxAge,
			"failed_max_age", opts.Config.FailedMaxAge,
			"cancelled_max_age", opts.Config.CancelledMaxAge,
			"report_max_age", opts.Config.ReportMaxAge,
		)
	}

	return &ReaperService{
		repo:    opts.Repo,
		config:  opts.Config,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
// It performs cleanup operations at the configured interval.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)
	}

	// Add jitter to prevent thundering herd if multiple instances start together
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Run cleanup immediately after jitter
	if err := s.runCleanup(ctx); err != nil {
		s.logCleanupError(err, "initial cleanup")
	}

	return s.runLoop(ctx, ticker)
}

// waitWithJitter adds a random delay up to 10% of the interval to prevent thundering herd.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// If crypto/rand fails, skip jitter rather than failing startup
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	// Use modulo on uint64 before converting to avoid overflow
	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
		// Graceful shutdown during jitter
	}
}

// runLoop runs the cleanup loop until context is cancelled.
func (s *ReaperService) runLoop(ctx context.Context, ticker *time.Ticker) error {
	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			}
			// Return nil on graceful shutdown to avoid treating it as a failure
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if err := s.runCleanup(ctx); err != nil {
				s.logCleanupError(err, "cleanup")
				if isContextCancellation(err) {
					continue
				}
				// Continue running despite errors
			}
		}
	}
}

// runCleanup performs all cleanup operations in a fixed order. Requeueing
// expired leases goes first so stalled work returns to the queue before any
// retention trimming.
func (s *ReaperService) runCleanup(ctx context.Context) error {
	start := time.Now()

	steps := []cleanupStep{
		{operation: "requeue_expired", label: "requeue expired leases", fn: s.requeueExpiredLeases},
		{operation: "fail_pending", label: "fail stale pending jobs", fn: s.failStalePendingJobs},
		{operation: "delete_completed", label: "delete old completed jobs", fn: s.deleteOldJobs(model.JobStatusCompleted)},
		{operation: "delete_failed", label: "delete old failed jobs", fn: s.deleteOldJobs(model.JobStatusFailed)},
		{operation: "delete_cancelled", label: "delete old cancelled jobs", fn: s.deleteOldJobs(model.JobStatusCancelled)},
		{operation: "delete_reports", label: "delete old validation reports", fn: s.deleteOldReports},
	}

	var (
		errs               []error
		allContextCanceled = true
		outcomes           = make([]cleanupStepOutcome, 0, len(steps))
	)
	for _, step := range steps {
		outcome := s.executeCleanupStep(ctx, step)
		outcomes = append(outcomes, outcome)
		if outcome.aggregateErr != nil {
			errs = append(errs, outcome.aggregateErr)
			allContextCanceled = allContextCanceled && outcome.canceled
		}
	}

	s.emitCleanupMetrics(outcomes, time.Since(start))

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		if allContextCanceled && isContextCancellation(joined) {
			return context.Canceled
		}
		return fmt.Errorf("cleanup failed: %w", joined)
	}

	return nil
}

type cleanupFunc func(context.Context) (int64, error)

type cleanupStep struct {
	operation string
	label     string
	fn        cleanupFunc
}

type cleanupStepOutcome struct {
	operation    string
	count        int64
	metricErr    error
	aggregateErr error
	canceled     bool
}

func (s *ReaperService) executeCleanupStep(ctx context.Context, step cleanupStep) cleanupStepOutcome {
	count, err := step.fn(ctx)
	outcome := cleanupStepOutcome{
		operation: step.operation,
		count:     count,
		metricErr: suppressContextCancellation(err),
		canceled:  isContextCancellation(err),
	}
	if err != nil {
		outcome.aggregateErr = fmt.Errorf("%s: %w", step.label, err)
	}
	return outcome
}

// drainBatches calls fn until it reports zero rows affected, checking the
// context between batches. Batching prevents long locks on large tables.
func drainBatches(ctx context.Context, fn func(context.Context) (int64, error)) (int64, error) {
	var total int64
	for {
		count, err := fn(ctx)
		total += count
		if err != nil {
			return total, err
		}
		if count == 0 {
			return total, nil
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}
}

// requeueExpiredLeases returns running jobs with expired leases to pending so
// another worker can claim them.
func (s *ReaperService) requeueExpiredLeases(ctx context.Context) (int64, error) {
	total, err := drainBatches(ctx, func(ctx context.Context) (int64, error) {
		return s.repo.RequeueExpiredLeases(ctx, s.config.BatchSize)
	})
	if err != nil {
		return total, err
	}

	if total > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "requeued jobs with expired leases", "count", total)
	}
	return total, nil
}

// failStalePendingJobs marks pending jobs older than the configured max age as failed.
func (s *ReaperService) failStalePendingJobs(ctx context.Context) (int64, error) {
	total, err := drainBatches(ctx, func(ctx context.Context) (int64, error) {
		return s.repo.FailStalePendingJobs(ctx, s.config.PendingMaxAge, s.config.BatchSize)
	})
	if err != nil {
		return total, err
	}

	if total > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "failed stale pending jobs",
			"count", total,
			"max_age", s.config.PendingMaxAge,
		)
	}
	return total, nil
}

// deleteOldJobs builds the retention step for one terminal job status.
func (s *ReaperService) deleteOldJobs(status model.JobStatus) cleanupFunc {
	return func(ctx context.Context) (int64, error) {
		maxAge := s.jobRetention(status)
		total, err := drainBatches(ctx, func(ctx context.Context) (int64, error) {
			return s.repo.DeleteOldJobs(ctx, core.DeleteOldJobsParams{
				Status:    status,
				MaxAge:    maxAge,
				BatchSize: s.config.BatchSize,
			})
		})
		if err != nil {
			return total, err
		}

		if total > 0 && s.logger != nil {
			s.logger.InfoContext(ctx, "deleted old jobs",
				"status", status,
				"count", total,
				"max_age", maxAge,
			)
		}
		return total, nil
	}
}

func (s *ReaperService) jobRetention(status model.JobStatus) time.Duration {
	switch status {
	case model.JobStatusCompleted:
		return s.config.CompletedMaxAge
	case model.JobStatusFailed:
		return s.config.FailedMaxAge
	case model.JobStatusCancelled:
		return s.config.CancelledMaxAge
	default:
		return s.config.CompletedMaxAge
	}
}

// deleteOldReports trims validation reports past the retention window.
func (s *ReaperService) deleteOldReports(ctx context.Context) (int64, error) {
	total, err := drainBatches(ctx, func(ctx context.Context) (int64, error) {
		return s.repo.DeleteOldReports(ctx, core.DeleteOldReportsParams{
			MaxAge:    s.config.ReportMaxAge,
			BatchSize: s.config.BatchSize,
		})
	})
	if err != nil {
		return total, err
	}

	if total > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "deleted old validation reports",
			"count", total,
			"max_age", s.config.ReportMaxAge,
		)
	}
	return total, nil
}

func (s *ReaperService) emitCleanupMetrics(outcomes []cleanupStepOutcome, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}

	var totalCount int64
	var firstErr error
	for _, outcome := range outcomes {
		totalCount += outcome.count
		if firstErr == nil {
			firstErr = outcome.metricErr
		}
	}

	result := metrics.ResultSuccess
	if firstErr != nil {
		result = metrics.ResultError
	} else if totalCount == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{
		"result": result,
	}
	if firstErr != nil {
		if class := obserrors.Classify(firstErr); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("reaper.cleanup", 1, tags)

	if elapsed > 0 {
		s.metrics.Timing("reaper.cleanup_duration", elapsed, metrics.CloneTags(tags))
	}

	for _, outcome := range outcomes {
		s.emitCleanupOperationMetric(outcome)
	}

	if firstErr == nil {
		s.metrics.Gauge("reaper.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}

func (s *ReaperService) emitCleanupOperationMetric(outcome cleanupStepOutcome) {
	result := metrics.ResultSuccess
	if outcome.metricErr != nil {
		result = metrics.ResultError
	} else if outcome.count == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{
		"operation": outcome.operation,
		"result":    result,
	}
	if outcome.metricErr != nil {
		if class := obserrors.Classify(outcome.metricErr); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("reaper.cleanup_operation", 1, tags)

	if outcome.metricErr == nil && outcome.count > 0 {
		s.metrics.Count("reaper.jobs_processed", outcome.count, metrics.CloneTags(tags))
	}
}

func (s *ReaperService) logCleanupError(err error, label string) {
	if err == nil || s.logger == nil {
		return
	}

	if isContextCancellation(err) {
		s.logger.Debug(label+" cancelled by context", "error", err)
		return
	}

	s.logger.Error(label+" failed", "error", err)
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
