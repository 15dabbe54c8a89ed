// Package service provides business logic services for the jurisync sync and
// data-quality system.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/openbench/jurisync/internal/core"
	"github.com/openbench/jurisync/internal/domain/model"
	domainqueue "github.com/openbench/jurisync/internal/domain/queue"
	"github.com/openbench/jurisync/internal/observability/notify"
	"github.com/openbench/jurisync/internal/service/failurenotifier"
)

// QueueServiceOptions groups dependencies for QueueService.
type QueueServiceOptions struct {
	Repo            core.SyncQueueRepository    // Required: sync queue repository
	DefaultLease    time.Duration               // Required: default lease duration for claims
	Logger          *slog.Logger                // Optional: structured logger
	FailureNotifier *failurenotifier.Service    // Optional: dead-letter notification fan-out
	LeasePolicy     *domainqueue.LeasePolicy    // Optional: override default lease policy
	Notifier        domainqueue.Notifier        // Optional: custom job availability notifier
	NotifierOptions domainqueue.NotifierOptions // Optional: configure default notifier behaviour
}

// QueueService provides business logic for sync queue operations including
// pub/sub notifications.
//
// This service manages:
// - Enqueue and lookup of sync jobs
// - Job claiming and lease management
// - Pub/sub notification system for job availability
// - Dead-letter notification fan-out
// - Graceful shutdown of all listeners.
type QueueService struct {
	repo            core.SyncQueueRepository
	leasePolicy     *domainqueue.LeasePolicy
	notifier        domainqueue.Notifier
	logger          *slog.Logger
	failureNotifier *failurenotifier.Service
}

// NewQueueService constructs a new QueueService.
func NewQueueService(opts QueueServiceOptions) (*QueueService, error) {
	if opts.Repo == nil {
		return nil, errors.New("SyncQueueRepository is required")
	}

	var leasePolicy *domainqueue.LeasePolicy
	switch {
	case opts.LeasePolicy != nil:
		leasePolicy = opts.LeasePolicy
	case opts.DefaultLease > 0:
		var err error
		leasePolicy, err = domainqueue.NewLeasePolicy(opts.DefaultLease)
		if err != nil {
			return nil, fmt.Errorf("create lease policy: %w", err)
		}
	default:
		return nil, errors.New("DefaultLease must be positive")
	}

	notifier := opts.Notifier
	if notifier == nil {
		options := opts.NotifierOptions
		if options.Waiter == nil {
			options.Waiter = opts.Repo
		}
		var err error
		notifier, err = domainqueue.NewNotifier(options)
		if err != nil {
			return nil, fmt.Errorf("create queue notifier: %w", err)
		}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "queue_service")
		logger.Debug("QueueService initialized",
			"default_lease", leasePolicy.Default(),
		)
	}

	return &QueueService{
		repo:            opts.Repo,
		leasePolicy:     leasePolicy,
		notifier:        notifier,
		logger:          logger,
		failureNotifier: opts.FailureNotifier,
	}, nil
}

// MustNewQueueService constructs a new QueueService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewQueueService(opts QueueServiceOptions) *QueueService {
	svc, err := NewQueueService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create QueueService: %v", err))
	}
	return svc
}

// Enqueue creates a new sync job from the given request.
func (s *QueueService) Enqueue(ctx context.Context, req *model.EnqueueRequest) (*model.SyncJob, error) {
	job, err := s.repo.Enqueue(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	if s.logger != nil {
		s.logger.DebugContext(
			ctx,
			"job enqueued",
			"id",
			job.ID,
			"entity_type",
			job.EntityType,
			"external_id",
			job.EntityExternalID,
			"status",
			job.Status,
		)
	}

	return job, nil
}

// ReserveNext claims the next available job of the given entity type.
// Returns model.ErrNoJobsAvailable when the queue is empty for the type.
func (s *QueueService) ReserveNext(
	ctx context.Context,
	entityType model.EntityType,
	lease time.Duration,
) (*model.SyncJob, error) {
	decision := s.leasePolicy.Resolve(lease)
	if decision.Clamped() && s.logger != nil {
		s.logger.DebugContext(ctx, "clamped sub-second lease duration to 1 second",
			"requested_duration", decision.Requested,
			"entity_type", entityType)
	}

	job, err := s.repo.ReserveNext(ctx, entityType, decision.Seconds)
	if err != nil {
		if errors.Is(err, model.ErrNoJobsAvailable) {
			return nil, model.ErrNoJobsAvailable
		}
		return nil, fmt.Errorf("reserve next job: %w", err)
	}

	if s.logger != nil && job != nil {
		s.logger.DebugContext(
			ctx,
			"job claimed",
			"id",
			job.ID,
			"entity_type",
			entityType,
			"lease_seconds",
			decision.Seconds,
		)
	}

	return job, nil
}

// Subscribe creates a subscription for job notifications of the given entity type.
// Returns an unsubscribe function and a channel that receives notifications.
func (s *QueueService) Subscribe(entityType model.EntityType) (func(), <-chan struct{}) {
	if s.notifier == nil {
		ch := make(chan struct{})
		close(ch)
		return func() {}, ch
	}
	return s.notifier.Subscribe(entityType)
}

// WaitForNotification waits for a notification indicating new jobs are available.
func (s *QueueService) WaitForNotification(ctx context.Context, entityType model.EntityType) error {
	return s.repo.WaitForNotification(ctx, entityType)
}

// Heartbeat extends the lease on a job to indicate it's still being processed.
func (s *QueueService) Heartbeat(ctx context.Context, id string, extend time.Duration) (bool, error) {
	decision := s.leasePolicy.Resolve(extend)
	if decision.Clamped() && s.logger != nil {
		s.logger.DebugContext(ctx, "clamped sub-second heartbeat duration to 1 second",
			"requested_duration", decision.Requested,
			"job_id", id)
	}

	updated, err := s.repo.Heartbeat(ctx, id, decision.Seconds)
	if err != nil {
		return false, fmt.Errorf("heartbeat job %s: %w", id, err)
	}

	if s.logger != nil && updated {
		s.logger.DebugContext(ctx, "job heartbeat updated", "id", id, "extend_seconds", decision.Seconds)
	}

	return updated, nil
}

// Complete marks a job as completed successfully.
func (s *QueueService) Complete(ctx context.Context, id string) (bool, error) {
	completed, err := s.repo.Complete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("complete job %s: %w", id, err)
	}

	if s.logger != nil && completed {
		s.logger.DebugContext(ctx, "job completed", "id", id)
	}

	return completed, nil
}

// Fail records a failed attempt with the given error message. The repository
// requeues the job with backoff or dead-letters it once attempts are exhausted.
func (s *QueueService) Fail(ctx context.Context, id, errMsg string) (bool, error) {
	return s.FailWithDetails(ctx, id, errMsg, JobFailureDetails{})
}

// JobFailureDetails captures optional context for dead-letter notifications.
type JobFailureDetails struct {
	Phase      string
	ErrorClass string
	Metadata   map[string]string
	Severity   string
	OccurredAt time.Time
	// RetryBackoffFloor, when positive, keeps the retry from being scheduled
	// sooner than this. Set from the upstream's Retry-After hint so a whole
	// worker pool honors the requested pause instead of hammering through
	// exponential backoff.
	RetryBackoffFloor time.Duration
}

// backoffFloorFailer is the optional repository capability to floor the retry
// delay. Repositories without it fall back to plain exponential backoff.
type backoffFloorFailer interface {
	FailWithBackoffFloor(ctx context.Context, id, errMsg string, floor time.Duration) (bool, error)
}

// FailWithDetails records a failed attempt and, when the failure exhausts the
// job's attempts, fans the dead-letter out to the failure notifier.
func (s *QueueService) FailWithDetails(
	ctx context.Context,
	id, errMsg string,
	details JobFailureDetails,
) (bool, error) {
	if errMsg == "" {
		return false, errors.New("error message required")
	}

	job := s.loadJobForNotification(ctx, id)

	var failed bool
	var err error
	if floorer, ok := s.repo.(backoffFloorFailer); ok && details.RetryBackoffFloor > 0 {
		failed, err = floorer.FailWithBackoffFloor(ctx, id, errMsg, details.RetryBackoffFloor)
	} else {
		failed, err = s.repo.Fail(ctx, id, errMsg)
	}
	if err != nil {
		return false, fmt.Errorf("fail job %s: %w", id, err)
	}

	if s.logger != nil && failed {
		s.logger.DebugContext(ctx, "job attempt failed", "id", id, "error", errMsg)
	}

	if failed && job != nil && deadLetters(job) {
		s.notifyDeadLetter(ctx, jobFailurePayloadInput{
			ID:      id,
			Job:     job,
			ErrMsg:  errMsg,
			Details: details,
		})
	}

	return failed, nil
}

// FailPermanently dead-letters a job immediately, skipping any remaining
// attempts. Used for errors that cannot succeed on retry.
func (s *QueueService) FailPermanently(
	ctx context.Context,
	id, errMsg string,
	details JobFailureDetails,
) (bool, error) {
	if errMsg == "" {
		return false, errors.New("error message required")
	}

	job := s.loadJobForNotification(ctx, id)

	failed, err := s.repo.FailPermanently(ctx, id, errMsg)
	if err != nil {
		return false, fmt.Errorf("fail job permanently %s: %w", id, err)
	}

	if s.logger != nil && failed {
		s.logger.DebugContext(ctx, "job dead-lettered", "id", id, "error", errMsg)
	}

	if failed {
		s.notifyDeadLetter(ctx, jobFailurePayloadInput{
			ID:      id,
			Job:     job,
			ErrMsg:  errMsg,
			Details: details,
		})
	}

	return failed, nil
}

// loadJobForNotification fetches the job snapshot used to build dead-letter
// payloads. Returns nil when no notifier is configured or the load fails.
func (s *QueueService) loadJobForNotification(ctx context.Context, id string) *model.SyncJob {
	if s.failureNotifier == nil || !s.failureNotifier.Enabled() {
		return nil
	}
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to load job for dead-letter notification", "job_id", id, "error", err)
		}
		return nil
	}
	return job
}

// deadLetters replicates the repository's terminal-state arithmetic: the
// attempt being recorded is the one that pushes attempt_count to max_attempts.
func deadLetters(job *model.SyncJob) bool {
	return job.AttemptCount+1 >= job.MaxAttempts
}

func (s *QueueService) notifyDeadLetter(ctx context.Context, input jobFailurePayloadInput) {
	if s.failureNotifier == nil {
		return
	}
	s.failureNotifier.NotifyJobFailure(ctx, buildJobFailurePayload(input))
}

type jobFailurePayloadInput struct {
	ID      string
	Job     *model.SyncJob
	ErrMsg  string
	Details JobFailureDetails
}

func buildJobFailurePayload(input jobFailurePayloadInput) notify.JobFailurePayload {
	payload := baseFailurePayload(input.ID, input.ErrMsg, input.Details)
	if input.Job != nil {
		applyJobContext(&payload, input.Job)
	}
	if payload.ErrorClass != "" {
		payload.Metadata = mergeMetadata(payload.Metadata, map[string]string{
			"error_class": payload.ErrorClass,
		})
	}

	if len(payload.Metadata) == 0 {
		payload.Metadata = nil
	}

	return payload
}

func baseFailurePayload(id, errMsg string, details JobFailureDetails) notify.JobFailurePayload {
	payload := notify.JobFailurePayload{
		JobID:      id,
		Phase:      details.Phase,
		Error:      errMsg,
		ErrorClass: details.ErrorClass,
		Severity:   details.Severity,
		OccurredAt: details.OccurredAt,
		Metadata:   copyMetadata(details.Metadata),
	}

	if payload.Severity == "" {
		payload.Severity = notify.SeverityCritical
	}
	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = time.Now()
	}

	return payload
}

func applyJobContext(payload *notify.JobFailurePayload, job *model.SyncJob) {
	payload.JobType = string(job.EntityType)
	payload.EntityType = string(job.EntityType)
	payload.ExternalID = job.EntityExternalID

	attempts := job.AttemptCount + 1
	if attempts < 0 {
		attempts = 0
	}
	payload.AttemptCount = attempts

	metadata := map[string]string{
		"operation":    string(job.Operation),
		"priority":     strconv.Itoa(job.Priority),
		"max_attempts": strconv.Itoa(job.MaxAttempts),
	}
	payload.Metadata = mergeMetadata(payload.Metadata, metadata)
}

func copyMetadata(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		if strings.TrimSpace(k) == "" {
			continue
		}
		if strings.TrimSpace(v) == "" {
			continue
		}
		dst[k] = v
	}
	return dst
}

func mergeMetadata(base, extra map[string]string) map[string]string {
	out := copyMetadata(base)
	if out == nil && len(extra) == 0 {
		return nil
	}
	if out == nil {
		out = make(map[string]string, len(extra))
	}
	for k, v := range extra {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	return out
}

// Cancel withdraws a pending job. Running jobs cannot be cancelled mid-flight;
// their workers observe the cancellation at the next status-guarded write.
func (s *QueueService) Cancel(ctx context.Context, id string) (bool, error) {
	cancelled, err := s.repo.Cancel(ctx, id)
	if err != nil {
		return false, fmt.Errorf("cancel job %s: %w", id, err)
	}

	if s.logger != nil && cancelled {
		s.logger.InfoContext(ctx, "job cancelled", "id", id)
	}

	return cancelled, nil
}

// Stats returns per-status counts for jobs of the given entity type. An empty
// entity type counts the whole queue.
func (s *QueueService) Stats(ctx context.Context, entityType model.EntityType) (*model.QueueStats, error) {
	stats, err := s.repo.Stats(ctx, entityType)
	if err != nil {
		return nil, fmt.Errorf("get queue stats for type %s: %w", entityType, err)
	}
	return stats, nil
}

// GetStatus returns the status information for a specific job.
func (s *QueueService) GetStatus(ctx context.Context, id string) (*model.JobStatusView, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}

	return &model.JobStatusView{
		Status:      job.Status,
		CompletedAt: job.CompletedAt,
		LastError:   job.LastError,
	}, nil
}

// GetByID returns a job by its ID.
func (s *QueueService) GetByID(ctx context.Context, id string) (*model.SyncJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job by id %s: %w", id, err)
	}
	return job, nil
}

// paginationParams holds normalized pagination parameters.
type paginationParams struct {
	Limit  int
	Offset int
}

// normalizePagination clamps pagination parameters to safe defaults.
// Default limit: 50, max limit: 1000, min offset: 0.
func normalizePagination(limit, offset int) paginationParams {
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	return paginationParams{Limit: limit, Offset: offset}
}

// List returns jobs matching the given filters for operational tooling.
// Pagination defaults are normalized here to avoid drift across layers.
func (s *QueueService) List(
	ctx context.Context,
	opts *model.JobListOptions,
) ([]*model.SyncJob, error) {
	if opts == nil {
		opts = &model.JobListOptions{}
	}

	p := normalizePagination(opts.Limit, opts.Offset)
	opts.Limit = p.Limit
	opts.Offset = p.Offset

	jobs, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// Delete safely deletes a job by ID with state machine safety checks.
// Only jobs without an active lease can be deleted.
func (s *QueueService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("job id is required")
	}

	err := s.repo.Delete(ctx, id)
	if err != nil {
		if s.logger != nil {
			s.logger.DebugContext(ctx, "failed to delete job", "id", id, "error", err)
		}
		return fmt.Errorf("delete job %s: %w", id, err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job deleted", "id", id)
	}

	return nil
}

// StopAllListeners stops all active job notification listeners.
// This should be called during graceful shutdown to clean up goroutines.
func (s *QueueService) StopAllListeners() {
	if s.logger != nil {
		s.logger.Info("stopping all queue listeners")
	}

	if s.notifier != nil {
		s.notifier.StopAll()
	}
}
