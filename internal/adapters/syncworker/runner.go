// Package syncworker pulls sync jobs off the durable queue and drives the
// entity pipelines. Each claimable entity type gets its own worker pool so a
// burst of decision jobs cannot starve court or judge syncs.
package syncworker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openbench/jurisync/internal/domain/model"
	obserrors "github.com/openbench/jurisync/internal/observability/errors"
	"github.com/openbench/jurisync/internal/observability/metrics"
	"github.com/openbench/jurisync/internal/observability/statsd"
	"github.com/openbench/jurisync/internal/service"
	"github.com/openbench/jurisync/internal/upstream"
)

// HandlerFunc processes a claimed job. A returned error fails the job; the
// queue decides between retry and dead-letter based on the error's class.
type HandlerFunc func(ctx context.Context, job *model.SyncJob) error

// Pipelines groups the entity services the built-in handlers dispatch to.
// Nil entries leave the corresponding entity type unregistered.
type Pipelines struct {
	Courts    *service.CourtSyncService
	Judges    *service.JudgeSyncService
	Decisions *service.DecisionSyncService
	Full      *service.FullSyncService
	Cleanup   *service.CleanupService
}

// RunnerOptions configures the sync worker adapter.
type RunnerOptions struct {
	Queue     *service.QueueService
	Pipelines Pipelines
	Logger    *slog.Logger
	Metrics   statsd.Sink

	// Lease is the per-job claim duration; heartbeats extend it while the
	// handler is still working. Defaults to 2 minutes.
	Lease time.Duration

	// Concurrency maps entity types to pool sizes. Missing or non-positive
	// entries default to 1.
	Concurrency map[model.EntityType]int

	// PollInterval bounds how long an idle worker waits before re-polling the
	// queue. In-process enqueues wake workers immediately through the queue
	// notifier; the poll catches jobs enqueued by other processes, such as a
	// scheduler replica. Defaults to 5 seconds.
	PollInterval time.Duration
}

// Runner claims jobs per entity type and executes the registered handlers.
type Runner struct {
	queue       *service.QueueService
	logger      *slog.Logger
	metrics     statsd.Sink
	lease       time.Duration
	poll        time.Duration
	concurrency map[model.EntityType]int
	handlers    map[model.EntityType]HandlerFunc
}

// NewRunner wires the built-in handlers and constructs a sync worker runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Queue == nil {
		return nil, errors.New("queue service is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lease := opts.Lease
	if lease <= 0 {
		lease = 2 * time.Minute
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = 5 * time.Second
	}

	r := &Runner{
		queue:       opts.Queue,
		logger:      logger,
		metrics:     opts.Metrics,
		lease:       lease,
		poll:        poll,
		concurrency: opts.Concurrency,
		handlers:    make(map[model.EntityType]HandlerFunc),
	}
	r.registerPipelines(opts.Pipelines)
	if len(r.handlers) == 0 {
		return nil, errors.New("no pipelines configured")
	}
	return r, nil
}

func (r *Runner) registerPipelines(p Pipelines) {
	if p.Courts != nil {
		r.handlers[model.EntityTypeCourt] = func(ctx context.Context, job *model.SyncJob) error {
			return p.Courts.SyncOne(ctx, job.EntityExternalID)
		}
	}
	if p.Judges != nil {
		r.handlers[model.EntityTypeJudge] = func(ctx context.Context, job *model.SyncJob) error {
			return p.Judges.SyncOne(ctx, job.EntityExternalID)
		}
	}
	if p.Decisions != nil {
		r.handlers[model.EntityTypeDecision] = func(ctx context.Context, job *model.SyncJob) error {
			return p.Decisions.SyncOne(ctx, job.EntityExternalID)
		}
	}
	if p.Full != nil {
		r.handlers[model.EntityTypeFull] = r.handleFullSweep(p.Full)
	}
	if p.Cleanup != nil {
		r.handlers[model.EntityTypeCleanup] = r.handleCleanup(p.Cleanup)
	}
}

func (r *Runner) handleFullSweep(svc *service.FullSyncService) HandlerFunc {
	return func(ctx context.Context, job *model.SyncJob) error {
		var params service.FullSweepParams
		if len(job.Payload) > 0 {
			if err := json.Unmarshal(job.Payload, &params); err != nil {
				return &permanentJobError{fmt.Errorf("decode full sweep payload: %w", err)}
			}
		}
		if !params.Courts && !params.Judges {
			params.Courts = true
			params.Judges = true
		}
		summary, err := svc.Run(ctx, params)
		if err != nil {
			return err
		}
		r.logger.InfoContext(ctx, "full sweep finished",
			"job_id", job.ID,
			"courts_enqueued", summary.CourtsEnqueued,
			"judges_enqueued", summary.JudgesEnqueued,
			"pages_walked", summary.PagesWalked)
		return nil
	}
}

func (r *Runner) handleCleanup(svc *service.CleanupService) HandlerFunc {
	return func(ctx context.Context, job *model.SyncJob) error {
		var params service.CleanupParams
		if len(job.Payload) > 0 {
			if err := json.Unmarshal(job.Payload, &params); err != nil {
				return &permanentJobError{fmt.Errorf("decode cleanup payload: %w", err)}
			}
		}
		summary, err := svc.Run(ctx, params)
		if err != nil {
			return err
		}
		r.logger.InfoContext(ctx, "cleanup run finished",
			"job_id", job.ID,
			"fixes_applied", summary.FixesApplied,
			"judges_recounted", summary.JudgesRecounted,
			"resyncs_enqueued", summary.ResyncsEnqueued)
		return nil
	}
}

// permanentJobError marks a handler error that retrying cannot cure, such as
// a malformed payload.
type permanentJobError struct{ err error }

func (e *permanentJobError) Error() string { return e.err.Error() }
func (e *permanentJobError) Unwrap() error { return e.err }

// Run starts one worker pool per registered entity type and processes jobs
// until the context is cancelled. The first pool error cancels the rest.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for entityType, handler := range r.handlers {
		workers := r.concurrency[entityType]
		if workers <= 0 {
			workers = 1
		}
		r.logger.InfoContext(ctx, "starting sync worker pool",
			"entity_type", entityType, "workers", workers, "lease", r.lease)

		unsub, notify := r.queue.Subscribe(entityType)
		defer unsub()

		for range workers {
			et, h := entityType, handler
			g.Go(func() error {
				return r.workerLoop(ctx, et, h, notify)
			})
		}
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (r *Runner) workerLoop(
	ctx context.Context,
	entityType model.EntityType,
	handler HandlerFunc,
	notify <-chan struct{},
) error {
	for ctx.Err() == nil {
		job, err := r.queue.ReserveNext(ctx, entityType, r.lease)
		switch {
		case err == nil:
			if job != nil {
				r.processJob(ctx, entityType, job, handler)
			}
		case errors.Is(err, model.ErrNoJobsAvailable):
			if !r.waitForNotify(ctx, notify) {
				return ctx.Err()
			}
		default:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reserve next %s job: %w", entityType, err)
		}
	}
	return ctx.Err()
}

func (r *Runner) waitForNotify(ctx context.Context, notify <-chan struct{}) bool {
	timer := time.NewTimer(r.poll)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-notify:
		return true
	case <-timer.C:
		return true
	}
}

func (r *Runner) processJob(
	ctx context.Context,
	entityType model.EntityType,
	job *model.SyncJob,
	handler HandlerFunc,
) {
	start := time.Now()
	emit := func(transition, result string, err error) {
		metrics.EmitJobLifecycle(r.metrics, metrics.JobMetric{
			JobType:    "sync",
			EntityType: string(entityType),
			Transition: transition,
			Result:     result,
			Duration:   time.Since(start),
			Err:        err,
		})
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	go r.heartbeatLoop(hbCtx, job.ID)

	err := handler(ctx, job)
	stopHeartbeat()

	if err != nil {
		if ctx.Err() != nil {
			// Shutdown mid-job: leave the lease to expire so the reaper
			// requeues it for another worker.
			return
		}
		r.failJob(ctx, entityType, job, err)
		emit("failed", metrics.ResultError, err)
		return
	}

	if completed, cerr := r.queue.Complete(ctx, job.ID); cerr != nil {
		r.logger.ErrorContext(ctx, "complete job error", "job_id", job.ID, "error", cerr)
		emit("completed", metrics.ResultError, cerr)
	} else {
		result := metrics.ResultNoop
		if completed {
			result = metrics.ResultSuccess
		}
		emit("completed", result, nil)
	}
}

// heartbeatLoop extends the job lease at a third of its duration until the
// handler returns. A lost lease is logged but does not abort the handler; the
// status-guarded completion write resolves the race.
func (r *Runner) heartbeatLoop(ctx context.Context, jobID string) {
	interval := r.lease / 3
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			extended, err := r.queue.Heartbeat(ctx, jobID, r.lease)
			if err != nil {
				if ctx.Err() == nil {
					r.logger.WarnContext(ctx, "heartbeat error", "job_id", jobID, "error", err)
				}
				continue
			}
			if !extended {
				r.logger.WarnContext(ctx, "job lease lost", "job_id", jobID)
				return
			}
		}
	}
}

// failJob routes a handler error to the right queue transition. Permanent
// upstream rejections dead-letter immediately; rate limits floor the retry
// backoff with the upstream's Retry-After hint; everything else takes the
// normal retry path.
func (r *Runner) failJob(ctx context.Context, entityType model.EntityType, job *model.SyncJob, cause error) {
	details := service.JobFailureDetails{
		Phase:      service.FailurePhase(cause),
		ErrorClass: obserrors.Classify(cause),
		Metadata: map[string]string{
			"component": componentLabel(entityType),
		},
		OccurredAt: time.Now().UTC(),
	}

	var perm *permanentJobError
	if upstream.IsPermanent(cause) || errors.As(cause, &perm) {
		if _, err := r.queue.FailPermanently(ctx, job.ID, cause.Error(), details); err != nil {
			r.logger.ErrorContext(ctx, "fail job permanently error",
				"job_id", job.ID, "error", err, "original_error", cause)
		}
		return
	}
	if upstream.IsRateLimited(cause) {
		if hint, ok := upstream.RetryAfterHint(cause); ok {
			details.RetryBackoffFloor = hint
		}
	}

	if _, err := r.queue.FailWithDetails(ctx, job.ID, cause.Error(), details); err != nil {
		r.logger.ErrorContext(ctx, "fail job error",
			"job_id", job.ID, "error", err, "original_error", cause)
	}
}

func componentLabel(entityType model.EntityType) string {
	switch entityType {
	case model.EntityTypeCourt:
		return "court_sync_worker"
	case model.EntityTypeJudge:
		return "judge_sync_worker"
	case model.EntityTypeDecision:
		return "decision_sync_worker"
	case model.EntityTypeFull:
		return "full_sweep_worker"
	case model.EntityTypeCleanup:
		return "cleanup_worker"
	default:
		return "sync_worker"
	}
}
