package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openbench/jurisync/internal/core"
	"github.com/openbench/jurisync/internal/domain/model"
)

// FixApplier applies the auto-fixable findings of the most recent validation
// report. AutoFixService satisfies it.
type FixApplier interface {
	ApplyLatest(ctx context.Context) (*FixSummary, error)
}

// ResyncQueue is the queue slice the cleanup pass needs: enqueue refresh jobs
// and list what is already in flight so stale entities are not double-queued.
type ResyncQueue interface {
	Enqueue(ctx context.Context, req *model.EnqueueRequest) (*model.SyncJob, error)
	List(ctx context.Context, opts *model.JobListOptions) ([]*model.SyncJob, error)
}

// CleanupConfig holds tunables for the maintenance pass.
type CleanupConfig struct {
	// RecountBatchSize is how many progress rows one recount page loads.
	RecountBatchSize int `json:"recount_batch_size"`
	// AnalyticsCaseThreshold is the minimum observed case volume for the
	// readiness flag, mirroring the sync pipeline's gate.
	AnalyticsCaseThreshold int `json:"analytics_case_threshold"`
	// JudgeStaleAfter marks judges stale once their last sync is older.
	JudgeStaleAfter time.Duration `json:"judge_stale_after"`
	// CourtStaleAfter marks courts stale once their last sync is older.
	CourtStaleAfter time.Duration `json:"court_stale_after"`
	// StaleScanLimit bounds stale rows considered per entity type per run.
	StaleScanLimit int `json:"stale_scan_limit"`
	// ResyncPriority is the queue priority for stale-refresh jobs.
	ResyncPriority int `json:"resync_priority"`
}

// DefaultCleanupConfig returns a CleanupConfig with sensible defaults.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		RecountBatchSize:       100,
		AnalyticsCaseThreshold: 500,
		JudgeStaleAfter:        180 * 24 * time.Hour,
		CourtStaleAfter:        365 * 24 * time.Hour,
		StaleScanLimit:         500,
		ResyncPriority:         0,
	}
}

// CleanupParams scopes one maintenance run; the fields double as the payload
// schema of cleanup jobs.
type CleanupParams struct {
	// StaleOnly restricts the run to stale-entity resync enqueueing, skipping
	// fixes and recounts. Scheduled resweeps use it between full maintenance
	// runs.
	StaleOnly bool `json:"stale_only"`
}

// CleanupSummary reports what one maintenance run changed.
type CleanupSummary struct {
	FixesApplied     int `json:"fixes_applied"`
	FixesSkipped     int `json:"fixes_skipped"`
	FixesFailed      int `json:"fixes_failed"`
	JudgesRecounted  int `json:"judges_recounted"`
	ReadinessChanges int `json:"readiness_changes"`
	ResyncsEnqueued  int `json:"resyncs_enqueued"`
}

// CleanupServiceOptions groups dependencies for CleanupService.
type CleanupServiceOptions struct {
	Fixer    FixApplier              // Required: auto-fix pass over the latest report
	Judges   core.JudgeRepository    // Required: case-count recomputation
	Progress core.ProgressRepository // Required: progress rows and readiness flag
	Quality  core.QualityRepository  // Required: stale-entity scans
	Queue    ResyncQueue             // Required: resync job fan-out
	Config   *CleanupConfig          // Optional: tunables
	Logger   *slog.Logger            // Optional: structured logger
}

// CleanupService runs the periodic maintenance pass: apply outstanding
// auto-fixes, reconcile denormalized judge case counts and the analytics
// readiness flag, and enqueue refresh jobs for entities whose last sync is
// past the staleness threshold.
type CleanupService struct {
	fixer    FixApplier
	judges   core.JudgeRepository
	progress core.ProgressRepository
	quality  core.QualityRepository
	queue    ResyncQueue
	cfg      CleanupConfig
	logger   *slog.Logger
}

// NewCleanupService constructs a new CleanupService.
func NewCleanupService(opts CleanupServiceOptions) (*CleanupService, error) {
	if opts.Fixer == nil {
		return nil, errors.New("FixApplier is required")
	}
	if opts.Judges == nil {
		return nil, errors.New("JudgeRepository is required")
	}
	if opts.Progress == nil {
		return nil, errors.New("ProgressRepository is required")
	}
	if opts.Quality == nil {
		return nil, errors.New("QualityRepository is required")
	}
	if opts.Queue == nil {
		return nil, errors.New("ResyncQueue is required")
	}

	cfg := DefaultCleanupConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	defaults := DefaultCleanupConfig()
	if cfg.RecountBatchSize <= 0 {
		cfg.RecountBatchSize = defaults.RecountBatchSize
	}
	if cfg.AnalyticsCaseThreshold <= 0 {
		cfg.AnalyticsCaseThreshold = defaults.AnalyticsCaseThreshold
	}
	if cfg.JudgeStaleAfter <= 0 {
		cfg.JudgeStaleAfter = defaults.JudgeStaleAfter
	}
	if cfg.CourtStaleAfter <= 0 {
		cfg.CourtStaleAfter = defaults.CourtStaleAfter
	}
	if cfg.StaleScanLimit <= 0 {
		cfg.StaleScanLimit = defaults.StaleScanLimit
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "cleanup_service")
	}

	return &CleanupService{
		fixer:    opts.Fixer,
		judges:   opts.Judges,
		progress: opts.Progress,
		quality:  opts.Quality,
		queue:    opts.Queue,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Run executes one maintenance pass. StaleOnly runs skip the fix and recount
// stages. Stage failures do not stop later stages; all failures are joined
// into the returned error.
func (s *CleanupService) Run(ctx context.Context, params CleanupParams) (*CleanupSummary, error) {
	summary := &CleanupSummary{}

	if params.StaleOnly {
		if err := s.enqueueStaleResyncs(ctx, summary); err != nil {
			return summary, err
		}
		s.logRun(ctx, summary, true)
		return summary, nil
	}

	var errs []error

	fixes, err := s.fixer.ApplyLatest(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("apply fixes: %w", err))
	} else if fixes != nil {
		summary.FixesApplied = fixes.Applied
		summary.FixesSkipped = fixes.Skipped
		summary.FixesFailed = fixes.Failed
	}

	if err := ctx.Err(); err != nil {
		return summary, errors.Join(append(errs, err)...)
	}

	if err := s.recountJudges(ctx, summary); err != nil {
		errs = append(errs, fmt.Errorf("recount judges: %w", err))
	}

	if err := ctx.Err(); err != nil {
		return summary, errors.Join(append(errs, err)...)
	}

	if err := s.enqueueStaleResyncs(ctx, summary); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return summary, errors.Join(errs...)
	}
	s.logRun(ctx, summary, false)
	return summary, nil
}

// recountJudges walks every judge progress row, refreshes the denormalized
// case count on the judge row, and re-derives the readiness flag from the
// observed case volume. Per-judge failures are logged and skipped so one bad
// row cannot stall the sweep.
func (s *CleanupService) recountJudges(ctx context.Context, summary *CleanupSummary) error {
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := s.progress.List(ctx, model.EntityTypeJudge, s.cfg.RecountBatchSize, offset)
		if err != nil {
			return fmt.Errorf("list judge progress: %w", err)
		}
		for _, row := range rows {
			judge, err := s.judges.GetByExternalID(ctx, row.EntityExternalID)
			if err != nil {
				s.warn(ctx, "judge lookup failed during recount", row.EntityExternalID, err)
				continue
			}
			if judge == nil {
				continue
			}
			if _, err := s.judges.RecomputeCaseCount(ctx, judge.ID); err != nil {
				s.warn(ctx, "case count recompute failed", row.EntityExternalID, err)
				continue
			}
			summary.JudgesRecounted++

			ready := row.CaseCount >= s.cfg.AnalyticsCaseThreshold
			if ready == row.IsAnalyticsReady {
				continue
			}
			changed, err := s.progress.SetAnalyticsReady(ctx, model.EntityTypeJudge, row.EntityExternalID, ready)
			if err != nil {
				s.warn(ctx, "readiness update failed", row.EntityExternalID, err)
				continue
			}
			if changed {
				summary.ReadinessChanges++
			}
		}
		if len(rows) < s.cfg.RecountBatchSize {
			return nil
		}
		offset += len(rows)
	}
}

// enqueueStaleResyncs finds entities whose last sync predates the per-type
// threshold and enqueues refresh jobs for them, skipping any entity that
// already has a pending or running job.
func (s *CleanupService) enqueueStaleResyncs(ctx context.Context, summary *CleanupSummary) error {
	sweeps := []struct {
		entityType model.EntityType
		olderThan  time.Duration
	}{
		{model.EntityTypeJudge, s.cfg.JudgeStaleAfter},
		{model.EntityTypeCourt, s.cfg.CourtStaleAfter},
	}

	var errs []error
	for _, sweep := range sweeps {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		enqueued, err := s.resyncStale(ctx, sweep.entityType, sweep.olderThan)
		summary.ResyncsEnqueued += enqueued
		if err != nil {
			errs = append(errs, fmt.Errorf("resync stale %s: %w", sweep.entityType, err))
		}
	}
	return errors.Join(errs...)
}

func (s *CleanupService) resyncStale(
	ctx context.Context,
	entityType model.EntityType,
	olderThan time.Duration,
) (int, error) {
	active, err := activeJobExternalIDs(ctx, s.queue, entityType)
	if err != nil {
		return 0, err
	}

	stale, err := s.quality.StaleEntities(ctx, core.StaleScanParams{
		EntityType: entityType,
		OlderThan:  olderThan,
		Limit:      s.cfg.StaleScanLimit,
	})
	if err != nil {
		return 0, fmt.Errorf("scan stale entities: %w", err)
	}

	enqueued := 0
	for _, entity := range stale {
		if entity.ExternalID == "" {
			continue
		}
		if _, busy := active[entity.ExternalID]; busy {
			continue
		}
		_, err := s.queue.Enqueue(ctx, &model.EnqueueRequest{
			EntityType:       entityType,
			EntityExternalID: entity.ExternalID,
			Operation:        model.OperationUpdate,
			Priority:         s.cfg.ResyncPriority,
			Metadata: map[string]any{
				"sync.origin": "stale_resweep",
			},
		})
		if err != nil {
			return enqueued, fmt.Errorf("enqueue resync %s: %w", entity.ExternalID, err)
		}
		enqueued++
	}

	if s.logger != nil && enqueued > 0 {
		s.logger.DebugContext(ctx, "stale entities queued for resync",
			"entity_type", entityType,
			"enqueued", enqueued,
			"scanned", len(stale),
		)
	}
	return enqueued, nil
}

func (s *CleanupService) warn(ctx context.Context, msg, externalID string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.WarnContext(ctx, msg, "external_id", externalID, "error", err)
}

func (s *CleanupService) logRun(ctx context.Context, summary *CleanupSummary, staleOnly bool) {
	if s.logger == nil {
		return
	}
	s.logger.InfoContext(ctx, "maintenance run finished",
		"stale_only", staleOnly,
		"fixes_applied", summary.FixesApplied,
		"fixes_skipped", summary.FixesSkipped,
		"fixes_failed", summary.FixesFailed,
		"judges_recounted", summary.JudgesRecounted,
		"readiness_changes", summary.ReadinessChanges,
		"resyncs_enqueued", summary.ResyncsEnqueued,
	)
}
