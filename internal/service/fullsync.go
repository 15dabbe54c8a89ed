package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openbench/jurisync/internal/domain/model"
	"github.com/openbench/jurisync/internal/upstream"
)

// DiscoveryCatalog is the slice of the upstream client the full-sweep
// handler reads.
type DiscoveryCatalog interface {
	ListCourts(ctx context.Context, pageURL string) (*upstream.CourtPage, error)
	ListJudges(ctx context.Context, pageURL string) (*upstream.JudgePage, error)
}

// FullSyncConfig holds tunables for the discovery sweep.
type FullSyncConfig struct {
	// CourtPageCap bounds court-listing pages walked per sweep.
	CourtPageCap int `json:"court_page_cap"`
	// JudgePageCap bounds judge-listing pages walked per sweep.
	JudgePageCap int `json:"judge_page_cap"`
}

// DefaultFullSyncConfig returns a FullSyncConfig with sensible defaults.
func DefaultFullSyncConfig() FullSyncConfig {
	return FullSyncConfig{
		CourtPageCap: 100,
		JudgePageCap: 500,
	}
}

// FullSweepParams scopes one discovery sweep. A zero value sweeps everything;
// the fields double as the payload schema of full-sweep jobs.
type FullSweepParams struct {
	Courts   bool `json:"courts"`
	Judges   bool `json:"judges"`
	Priority int  `json:"priority"`
}

// FullSweepSummary reports what one discovery sweep enqueued.
type FullSweepSummary struct {
	CourtsEnqueued int `json:"courts_enqueued"`
	JudgesEnqueued int `json:"judges_enqueued"`
	PagesWalked    int `json:"pages_walked"`
}

// FullSyncServiceOptions groups dependencies for FullSyncService.
type FullSyncServiceOptions struct {
	Catalog DiscoveryCatalog // Required: upstream listing endpoints
	Queue   JobEnqueuer      // Required: per-entity job fan-out
	Config  *FullSyncConfig  // Optional: tunables
	Logger  *slog.Logger     // Optional: structured logger
}

// FullSyncService walks the upstream catalog listings and fans out one sync
// job per court and judge discovered. The per-entity jobs carry their own
// retry lifecycle, so a sweep stays cheap and restartable.
type FullSyncService struct {
	catalog DiscoveryCatalog
	queue   JobEnqueuer
	cfg     FullSyncConfig
	logger  *slog.Logger
}

// NewFullSyncService constructs a new FullSyncService.
func NewFullSyncService(opts FullSyncServiceOptions) (*FullSyncService, error) {
	if opts.Catalog == nil {
		return nil, errors.New("DiscoveryCatalog is required")
	}
	if opts.Queue == nil {
		return nil, errors.New("JobEnqueuer is required")
	}

	cfg := DefaultFullSyncConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	defaults := DefaultFullSyncConfig()
	if cfg.CourtPageCap <= 0 {
		cfg.CourtPageCap = defaults.CourtPageCap
	}
	if cfg.JudgePageCap <= 0 {
		cfg.JudgePageCap = defaults.JudgePageCap
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "full_sync_service")
	}

	return &FullSyncService{
		catalog: opts.Catalog,
		queue:   opts.Queue,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Run executes one discovery sweep over the scoped catalog listings.
func (s *FullSyncService) Run(ctx context.Context, params FullSweepParams) (*FullSweepSummary, error) {
	if !params.Courts && !params.Judges {
		params.Courts, params.Judges = true, true
	}

	summary := &FullSweepSummary{}
	if params.Courts {
		if err := s.sweepCourts(ctx, params.Priority, summary); err != nil {
			return summary, phaseErr(model.PhaseDiscovery, err)
		}
	}
	if params.Judges {
		if err := s.sweepJudges(ctx, params.Priority, summary); err != nil {
			return summary, phaseErr(model.PhaseDiscovery, err)
		}
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "discovery sweep finished",
			"courts_enqueued", summary.CourtsEnqueued,
			"judges_enqueued", summary.JudgesEnqueued,
			"pages_walked", summary.PagesWalked,
		)
	}
	return summary, nil
}

func (s *FullSyncService) sweepCourts(ctx context.Context, priority int, summary *FullSweepSummary) error {
	seen := make(map[string]struct{})
	pageURL := ""

	for page := 0; page < s.cfg.CourtPageCap; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		listing, err := s.catalog.ListCourts(ctx, pageURL)
		if err != nil {
			return fmt.Errorf("list courts page %d: %w", page+1, err)
		}
		summary.PagesWalked++
		for _, record := range listing.Courts {
			if record.ID == "" {
				continue
			}
			if _, dup := seen[record.ID]; dup {
				continue
			}
			seen[record.ID] = struct{}{}
			if err := s.enqueueEntity(ctx, model.EntityTypeCourt, record.ID, priority); err != nil {
				return err
			}
			summary.CourtsEnqueued++
		}
		if listing.NextPage == "" {
			return nil
		}
		pageURL = listing.NextPage
	}

	if s.logger != nil {
		s.logger.WarnContext(ctx, "court sweep hit page cap", "cap", s.cfg.CourtPageCap)
	}
	return nil
}

func (s *FullSyncService) sweepJudges(ctx context.Context, priority int, summary *FullSweepSummary) error {
	seen := make(map[string]struct{})
	pageURL := ""

	for page := 0; page < s.cfg.JudgePageCap; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		listing, err := s.catalog.ListJudges(ctx, pageURL)
		if err != nil {
			return fmt.Errorf("list judges page %d: %w", page+1, err)
		}
		summary.PagesWalked++
		for _, record := range listing.Judges {
			if record.ID == "" {
				continue
			}
			if _, dup := seen[record.ID]; dup {
				continue
			}
			seen[record.ID] = struct{}{}
			if err := s.enqueueEntity(ctx, model.EntityTypeJudge, record.ID, priority); err != nil {
				return err
			}
			summary.JudgesEnqueued++
		}
		if listing.NextPage == "" {
			return nil
		}
		pageURL = listing.NextPage
	}

	if s.logger != nil {
		s.logger.WarnContext(ctx, "judge sweep hit page cap", "cap", s.cfg.JudgePageCap)
	}
	return nil
}

func (s *FullSyncService) enqueueEntity(
	ctx context.Context,
	entityType model.EntityType,
	externalID string,
	priority int,
) error {
	_, err := s.queue.Enqueue(ctx, &model.EnqueueRequest{
		EntityType:       entityType,
		EntityExternalID: externalID,
		Operation:        model.OperationUpdate,
		Priority:         priority,
		Metadata: map[string]any{
			"sync.origin": "full_sweep",
		},
	})
	if err != nil {
		return fmt.Errorf("enqueue %s %s: %w", entityType, externalID, err)
	}
	return nil
}
