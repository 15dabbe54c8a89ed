package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/openbench/jurisync/internal/core"
	"github.com/openbench/jurisync/internal/data"
	"github.com/openbench/jurisync/internal/domain/model"
	"github.com/openbench/jurisync/internal/domain/schedule"
)

// sweepEntityPayload is the optional envelope a sweep payload may carry to
// target a single entity instead of the whole catalog.
type sweepEntityPayload struct {
	ExternalID string `json:"external_id"`
}

// SchedulerService implements the SweepScheduler interface.
// It processes due sweeps, applies overrun strategy, enqueues sync jobs, and updates last_queued_at.
// Safe under concurrent replicas through database-level concurrency controls.
type SchedulerService struct {
	repo         core.SweepRepository
	queue        core.SyncQueueRepository
	introspector core.JobIntrospector
	cfg          core.SchedulerConfig
	timeProvider data.TimeProvider
	logger       *slog.Logger

	sweepProcessor *schedule.Processor
}

// NewSchedulerService creates a new SchedulerService with the given dependencies.
func NewSchedulerService(opts SchedulerServiceOptions) *SchedulerService {
	if opts.TimeProvider == nil {
		opts.TimeProvider = &data.RealTimeProvider{}
	}
	if opts.Config == nil {
		defaultCfg := core.DefaultSchedulerConfig()
		opts.Config = &defaultCfg
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &SchedulerService{
		repo:         opts.Repo,
		queue:        opts.Queue,
		introspector: opts.JobIntrospector,
		cfg:          *opts.Config,
		timeProvider: opts.TimeProvider,
		logger:       opts.Logger,
		sweepProcessor: schedule.NewProcessor(schedule.ProcessorOptions{
			DefaultPolicy: opts.Config.Strategy.Overrun,
			DefaultStates: opts.Config.Strategy.OverrunStates,
			StateReader:   opts.JobIntrospector,
		}),
	}
}

// SchedulerServiceOptions holds the dependencies for creating a SchedulerService.
// Uses an options struct to keep parameter count ≤ 3 as per project conventions.
type SchedulerServiceOptions struct {
	Repo            core.SweepRepository
	Queue           core.SyncQueueRepository
	JobIntrospector core.JobIntrospector
	Config          *core.SchedulerConfig
	TimeProvider    data.TimeProvider
	Logger          *slog.Logger
}

// Tick processes due sweeps and enqueues sync jobs according to strategy.
// Returns the number of sweeps processed.
//
// Algorithm:
// 1. Find due sweeps using batch size limit
// 2. For each sweep, try to acquire advisory lock by sweep name
// 3. If lock acquired, apply overrun policy and potentially enqueue job
// 4. Update last_queued_at timestamp
//
// Concurrency safety:
// - FindDue uses FOR UPDATE SKIP LOCKED to prevent double-processing
// - TryWithSweepLock uses advisory locks to ensure only one replica processes each sweep.
func (s *SchedulerService) Tick(ctx context.Context, now time.Time) (int, error) {
	// Find due sweeps
	due, err := s.repo.FindDue(ctx, now, s.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("find due sweeps: %w", err)
	}

	processed := 0
	for _, sweep := range due {
		worked := false
		// Try to acquire advisory lock for this sweep
		lockOK, lockErr := s.repo.TryWithSweepLock(ctx, sweep.Name, func(ctx context.Context, tx *sql.Tx) error {
			w, processErr := s.processSweep(ctx, tx, sweep)
			if w {
				worked = true
			}
			return processErr
		})
		if lockErr != nil {
			return processed, fmt.Errorf("process sweep %s: %w", sweep.Name, lockErr)
		}
		if lockOK && worked {
			processed++
		}
		// If ok==false, another replica is handling this sweep; skip
	}

	return processed, nil
}

// processSweep handles a single due sweep within a transaction.
// Returns worked=true if this invocation actually made a change (updated last_queued_at or created a job).
// This function is called within TryWithSweepLock, so it has exclusive access to the sweep during execution.
func (s *SchedulerService) processSweep(
	ctx context.Context,
	tx *sql.Tx,
	sweep schedule.Sweep,
) (bool, error) {
	now := s.timeProvider.Now()

	if s.sweepProcessor == nil {
		return false, errors.New("sweep processor is not configured")
	}

	result, err := s.sweepProcessor.Process(ctx, schedule.ProcessParams{
		Sweep: sweep,
		Now:   now,
		Store: sweepStoreAdapter{
			repo: s.repo,
			tx:   tx,
		},
		Enqueuer: sweepEnqueuer{
			service: s,
			tx:      tx,
		},
	})
	if err != nil {
		return false, err
	}
	if result == nil {
		return false, nil
	}
	return result.Worked, nil
}

type sweepStoreAdapter struct {
	repo core.SweepRepository
	tx   *sql.Tx
}

func (a sweepStoreAdapter) MarkQueued(ctx context.Context, params schedule.MarkQueuedParams) (bool, error) {
	return a.repo.MarkQueuedTx(ctx, a.tx, params)
}

func (a sweepStoreAdapter) UpdateActiveFireKey(ctx context.Context, params schedule.UpdateActiveFireKeyParams) error {
	return a.repo.UpdateActiveFireKeyTx(ctx, a.tx, params)
}

type sweepEnqueuer struct {
	service *SchedulerService
	tx      *sql.Tx
}

func (e sweepEnqueuer) Enqueue(ctx context.Context, sweep schedule.Sweep, fireKey string) (bool, error) {
	return e.service.enqueueJob(ctx, enqueueJobParams{
		Tx:      e.tx,
		Sweep:   sweep,
		FireKey: fireKey,
	})
}

type enqueueJobParams struct {
	Tx      *sql.Tx
	Sweep   schedule.Sweep
	FireKey string
}

// enqueueJob creates a new sync job for the due sweep.
// Returns created=true if a new job was inserted (not a duplicate), otherwise false.
func (s *SchedulerService) enqueueJob(ctx context.Context, params enqueueJobParams) (bool, error) {
	sweep := params.Sweep

	// Parse payload to extract the optional single-entity target
	payloadData, parseErr := parseSweepPayload(sweep.Payload)
	if parseErr != nil {
		return false, fmt.Errorf("parse sweep payload: %w", parseErr)
	}

	req := s.buildEnqueueRequest(sweep, payloadData, params.FireKey)

	// Create the job (idempotent via unique fire key)
	created, err := s.createJobDeduped(ctx, params.Tx, req)
	if err != nil {
		return false, err
	}
	return created, nil
}

// parseSweepPayload extracts the optional entity target from a sweep payload.
// Catalog-wide sweeps (full, cleanup) typically carry no target at all.
func parseSweepPayload(payload json.RawMessage) (sweepEntityPayload, error) {
	var payloadData sweepEntityPayload
	if len(payload) == 0 {
		return payloadData, nil
	}
	err := json.Unmarshal(payload, &payloadData)
	return payloadData, err
}

// buildEnqueueRequest creates an EnqueueRequest carrying scheduler metadata.
func (s *SchedulerService) buildEnqueueRequest(
	sweep schedule.Sweep,
	payloadData sweepEntityPayload,
	fireKey string,
) *model.EnqueueRequest {
	return &model.EnqueueRequest{
		EntityType:       sweep.EntityType,
		EntityExternalID: payloadData.ExternalID,
		Operation:        model.OperationUpdate,
		Priority:         s.cfg.DefaultPriority,
		Payload:          sweep.Payload,
		Metadata:         buildSweepMetadata(sweep, fireKey),
		MaxAttempts:      s.cfg.MaxAttempts,
	}
}

// createJobDeduped creates a job with idempotency handling.
// Returns created=true if a new job row was inserted; false if it was a duplicate/no-op.
func (s *SchedulerService) createJobDeduped(
	ctx context.Context,
	tx *sql.Tx,
	req *model.EnqueueRequest,
) (bool, error) {
	err := s.insertJob(ctx, tx, req)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			// Duplicate due to unique fire key; treat as success/no-op
			return false, nil
		}
		return false, fmt.Errorf("create job: %w", err)
	}
	return true, nil
}

func (s *SchedulerService) insertJob(ctx context.Context, tx *sql.Tx, req *model.EnqueueRequest) error {
	if tx == nil {
		_, err := s.queue.Enqueue(ctx, req)
		return err
	}

	if creator, ok := s.queue.(core.SyncQueueRepositoryTx); ok {
		_, err := creator.EnqueueInTx(ctx, tx, req)
		return err
	}

	if s.logger != nil {
		s.logger.WarnContext(
			ctx,
			"sync queue repository missing transactional support; falling back to non-transactional enqueue",
		)
	}

	_, err := s.queue.Enqueue(ctx, req)
	return err
}

// buildSweepMetadata prepares scheduler metadata with the idempotent fire key.
// The queue repository reads scheduler.sweep_name and scheduler.fire_key back
// on terminal transitions to release the sweep's active fire key.
func buildSweepMetadata(sweep schedule.Sweep, fireKey string) map[string]any {
	m := map[string]any{
		"scheduler.sweep_name": sweep.Name,
		"scheduler.fire_key":   fireKey,
	}
	if sweep.CronExpr != nil && *sweep.CronExpr != "" {
		m["scheduler.cron"] = *sweep.CronExpr
	} else {
		m["scheduler.interval"] = sweep.Interval.String()
	}
	return m
}
