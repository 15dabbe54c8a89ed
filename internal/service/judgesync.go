package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openbench/jurisync/internal/core"
	"github.com/openbench/jurisync/internal/data"
	"github.com/openbench/jurisync/internal/domain/model"
	"github.com/openbench/jurisync/internal/domain/normalize"
	"github.com/openbench/jurisync/internal/upstream"
)

// JudgeCatalog is the slice of the upstream client the judge pipeline reads.
type JudgeCatalog interface {
	GetJudge(ctx context.Context, externalID string) (*upstream.JudgeRecord, error)
	ListJudgeOpinions(ctx context.Context, judgeExternalID, pageURL string) (*upstream.OpinionPage, error)
	ListJudgeDockets(ctx context.Context, judgeExternalID, pageURL string) (*upstream.DocketPage, error)
}

// JudgeSyncConfig holds tunables for the judge pipeline.
type JudgeSyncConfig struct {
	// OpinionPageCap bounds opinion-listing pages walked per judge.
	OpinionPageCap int `json:"opinion_page_cap"`
	// DocketPageCap bounds docket-listing pages walked per judge.
	DocketPageCap int `json:"docket_page_cap"`
	// EnqueueCap bounds decision jobs fanned out per judge sync.
	EnqueueCap int `json:"enqueue_cap"`
	// DecisionPriority is the queue priority for fanned-out jobs.
	DecisionPriority int `json:"decision_priority"`
	// AnalyticsCaseThreshold is the minimum observed case volume before the
	// judge's analytics readiness flag is set.
	AnalyticsCaseThreshold int `json:"analytics_case_threshold"`
}

// DefaultJudgeSyncConfig returns a JudgeSyncConfig with sensible defaults.
func DefaultJudgeSyncConfig() JudgeSyncConfig {
	return JudgeSyncConfig{
		OpinionPageCap:         10,
		DocketPageCap:          5,
		EnqueueCap:             200,
		DecisionPriority:       0,
		AnalyticsCaseThreshold: 500,
	}
}

// JudgeSyncServiceOptions groups dependencies for JudgeSyncService.
type JudgeSyncServiceOptions struct {
	Catalog      JudgeCatalog                // Required: upstream judge endpoints
	Judges       core.JudgeRepository        // Required: judge persistence
	Decisions    core.DecisionRepository     // Required: local decision lookups
	Progress     core.ProgressRepository     // Required: per-entity sync progress
	Queue        JobEnqueuer                 // Required: decision job fan-out
	RefCache     *core.ReferenceCacheService // Required: position court resolution
	Config       *JudgeSyncConfig            // Optional: tunables
	TimeProvider data.TimeProvider           // Optional: clock override for tests
	Logger       *slog.Logger                // Optional: structured logger
}

// JudgeSyncService runs the full judge pipeline: discovery, assignment
// replacement from position history, record upsert, opinion fan-out, docket
// reconciliation, and analytics-readiness derivation.
type JudgeSyncService struct {
	catalog      JudgeCatalog
	judges       core.JudgeRepository
	decisions    core.DecisionRepository
	progress     core.ProgressRepository
	queue        JobEnqueuer
	refCache     *core.ReferenceCacheService
	cfg          JudgeSyncConfig
	timeProvider data.TimeProvider
	logger       *slog.Logger
}

// NewJudgeSyncService constructs a new JudgeSyncService.
func NewJudgeSyncService(opts JudgeSyncServiceOptions) (*JudgeSyncService, error) {
	if opts.Catalog == nil {
		return nil, errors.New("JudgeCatalog is required")
	}
	if opts.Judges == nil {
		return nil, errors.New("JudgeRepository is required")
	}
	if opts.Decisions == nil {
		return nil, errors.New("DecisionRepository is required")
	}
	if opts.Progress == nil {
		return nil, errors.New("ProgressRepository is required")
	}
	if opts.Queue == nil {
		return nil, errors.New("JobEnqueuer is required")
	}
	if opts.RefCache == nil {
		return nil, errors.New("ReferenceCacheService is required")
	}

	cfg := DefaultJudgeSyncConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	defaults := DefaultJudgeSyncConfig()
	if cfg.OpinionPageCap <= 0 {
		cfg.OpinionPageCap = defaults.OpinionPageCap
	}
	if cfg.DocketPageCap <= 0 {
		cfg.DocketPageCap = defaults.DocketPageCap
	}
	if cfg.EnqueueCap <= 0 {
		cfg.EnqueueCap = defaults.EnqueueCap
	}
	if cfg.AnalyticsCaseThreshold <= 0 {
		cfg.AnalyticsCaseThreshold = defaults.AnalyticsCaseThreshold
	}

	timeProvider := opts.TimeProvider
	if timeProvider == nil {
		timeProvider = &data.RealTimeProvider{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "judge_sync_service")
	}

	return &JudgeSyncService{
		catalog:      opts.Catalog,
		judges:       opts.Judges,
		decisions:    opts.Decisions,
		progress:     opts.Progress,
		queue:        opts.Queue,
		refCache:     opts.RefCache,
		cfg:          cfg,
		timeProvider: timeProvider,
		logger:       logger,
	}, nil
}

// SyncOne runs the judge pipeline for one catalog identifier.
func (s *JudgeSyncService) SyncOne(ctx context.Context, externalID string) error {
	if externalID == "" {
		return errors.New("judge external id is required")
	}

	record, err := s.catalog.GetJudge(ctx, externalID)
	if err != nil {
		fetchErr := fmt.Errorf("fetch judge %s: %w", externalID, err)
		s.recordFailure(ctx, externalID, fetchErr)
		return phaseErr(model.PhaseDiscovery, fetchErr)
	}
	if _, err := s.advance(ctx, externalID, model.PhaseDiscovery, nil); err != nil {
		return phaseErr(model.PhaseDiscovery, err)
	}

	// Assignments reference the judge row, so the record upsert happens
	// before the positions phase it is reported under.
	judge, err := s.upsertRecord(ctx, record)
	if err != nil {
		s.recordFailure(ctx, externalID, err)
		return phaseErr(model.PhaseDetails, err)
	}

	if err := ctx.Err(); err != nil {
		return phaseErr(model.PhasePositions, err)
	}
	if err := s.syncPositions(ctx, judge, record.Positions); err != nil {
		s.recordFailure(ctx, externalID, err)
		return phaseErr(model.PhasePositions, err)
	}
	if _, err := s.advance(ctx, externalID, model.PhasePositions, nil); err != nil {
		return phaseErr(model.PhasePositions, err)
	}
	if _, err := s.advance(ctx, externalID, model.PhaseDetails, nil); err != nil {
		return phaseErr(model.PhaseDetails, err)
	}

	if err := ctx.Err(); err != nil {
		return phaseErr(model.PhaseOpinions, err)
	}
	observed, err := s.syncOpinions(ctx, judge)
	if err != nil {
		s.recordFailure(ctx, externalID, err)
		return phaseErr(model.PhaseOpinions, err)
	}
	if _, err := s.advance(ctx, externalID, model.PhaseOpinions, &observed); err != nil {
		return phaseErr(model.PhaseOpinions, err)
	}

	if err := ctx.Err(); err != nil {
		return phaseErr(model.PhaseDockets, err)
	}
	if err := s.syncDockets(ctx, judge); err != nil {
		s.recordFailure(ctx, externalID, err)
		return phaseErr(model.PhaseDockets, err)
	}
	if _, err := s.advance(ctx, externalID, model.PhaseDockets, nil); err != nil {
		return phaseErr(model.PhaseDockets, err)
	}

	ready := observed >= s.cfg.AnalyticsCaseThreshold
	if _, err := s.progress.SetAnalyticsReady(ctx, model.EntityTypeJudge, externalID, ready); err != nil {
		return phaseErr(model.PhaseComplete, fmt.Errorf("set analytics ready: %w", err))
	}
	if _, err := s.advance(ctx, externalID, model.PhaseComplete, nil); err != nil {
		return phaseErr(model.PhaseComplete, err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "judge synced",
			"external_id", externalID,
			"observed_cases", observed,
			"analytics_ready", ready,
		)
	}
	return nil
}

// upsertRecord normalizes and persists the judge record, then primes the
// reference cache so decision syncs resolve the judge without a DB hit.
func (s *JudgeSyncService) upsertRecord(ctx context.Context, record *upstream.JudgeRecord) (*model.Judge, error) {
	params, err := buildJudgeUpsert(record)
	if err != nil {
		return nil, fmt.Errorf("normalize judge %s: %w", record.ID, err)
	}

	judge, err := s.judges.Upsert(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("upsert judge %s: %w", record.ID, err)
	}

	if err := s.refCache.StoreJudgeID(ctx, judge.ExternalID, judge.ID); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to prime judge reference cache",
			"external_id", judge.ExternalID, "error", err)
	}
	return judge, nil
}

// syncPositions derives the judge's assignment set from upstream position
// history and swaps it in atomically.
func (s *JudgeSyncService) syncPositions(ctx context.Context, judge *model.Judge, positions []upstream.PositionRecord) error {
	assignments, err := s.deriveAssignments(ctx, judge, positions)
	if err != nil {
		return err
	}
	if err := s.judges.ReplaceAssignments(ctx, judge.ID, assignments); err != nil {
		return fmt.Errorf("replace assignments: %w", err)
	}
	return nil
}

// deriveAssignments maps position history onto assignment rows. The first
// position lacking a termination date is the primary seat; when every
// position has ended, the most recently started one is. Positions whose
// court has not been synced yet are skipped, with a court job enqueued so
// the next resync resolves them.
func (s *JudgeSyncService) deriveAssignments(
	ctx context.Context,
	judge *model.Judge,
	positions []upstream.PositionRecord,
) ([]model.ReplaceAssignmentParams, error) {
	type parsedPosition struct {
		record upstream.PositionRecord
		start  time.Time
		end    *time.Time
	}

	parsed := make([]parsedPosition, 0, len(positions))
	for _, position := range positions {
		start, err := parseCatalogDate(position.DateStart)
		if err != nil {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "skipping position with unparseable start date",
					"judge_external_id", judge.ExternalID,
					"court_external_id", position.CourtID,
					"date_start", position.DateStart,
				)
			}
			continue
		}
		parsed = append(parsed, parsedPosition{
			record: position,
			start:  start,
			end:    parseCatalogDatePtr(position.DateTermination),
		})
	}
	if len(parsed) == 0 {
		return nil, nil
	}

	primary := -1
	for i, p := range parsed {
		if p.end == nil {
			primary = i
			break
		}
	}
	if primary == -1 {
		for i, p := range parsed {
			if primary == -1 || p.start.After(parsed[primary].start) {
				primary = i
			}
		}
	}

	assignments := make([]model.ReplaceAssignmentParams, 0, len(parsed))
	for i, p := range parsed {
		courtID, err := s.resolveCourt(ctx, p.record.CourtID)
		if err != nil {
			return nil, err
		}
		if courtID == "" {
			s.enqueueMissingCourt(ctx, judge, p.record.CourtID)
			continue
		}

		params := model.ReplaceAssignmentParams{
			CourtID:        courtID,
			AssignmentType: classifyPosition(i == primary, p.record.PositionType, p.end),
			StartDate:      p.start,
			EndDate:        p.end,
		}
		if err := params.Validate(); err != nil {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "skipping invalid position",
					"judge_external_id", judge.ExternalID,
					"court_external_id", p.record.CourtID,
					"error", err,
				)
			}
			continue
		}
		assignments = append(assignments, params)
	}
	return assignments, nil
}

// resolveCourt maps an upstream court identifier to a local row id through
// the reference cache. Returns "" when the court has not been synced yet.
func (s *JudgeSyncService) resolveCourt(ctx context.Context, courtExternalID string) (string, error) {
	id, err := s.refCache.CourtID(ctx, courtExternalID)
	if err != nil {
		return "", fmt.Errorf("resolve court %s: %w", courtExternalID, err)
	}
	return id, nil
}

// enqueueMissingCourt fans out a court job for a position whose court is not
// local yet. Best effort: a failed enqueue only delays resolution to the next
// catalog sweep.
func (s *JudgeSyncService) enqueueMissingCourt(ctx context.Context, judge *model.Judge, courtExternalID string) {
	if courtExternalID == "" {
		return
	}
	_, err := s.queue.Enqueue(ctx, &model.EnqueueRequest{
		EntityType:       model.EntityTypeCourt,
		EntityExternalID: courtExternalID,
		Operation:        model.OperationCreate,
		Priority:         s.cfg.DecisionPriority,
		Metadata: map[string]any{
			"sync.origin":            "judge_positions",
			"sync.judge_external_id": judge.ExternalID,
		},
	})
	if s.logger == nil {
		return
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to enqueue court for unresolved position",
			"judge_external_id", judge.ExternalID,
			"court_external_id", courtExternalID,
			"error", err,
		)
		return
	}
	s.logger.DebugContext(ctx, "position court not synced yet; court job enqueued",
		"judge_external_id", judge.ExternalID,
		"court_external_id", courtExternalID,
	)
}

// syncOpinions walks the judge's opinion listing, fans out decision jobs for
// opinions not yet synced locally, and refreshes the denormalized case count.
// Returns the upstream case volume observed.
func (s *JudgeSyncService) syncOpinions(ctx context.Context, judge *model.Judge) (int, error) {
	observed := 0
	walked := 0
	enqueued := 0
	pageURL := ""

	for page := 0; page < s.cfg.OpinionPageCap; page++ {
		if err := ctx.Err(); err != nil {
			return observed, err
		}
		listing, err := s.catalog.ListJudgeOpinions(ctx, judge.ExternalID, pageURL)
		if err != nil {
			return observed, fmt.Errorf("list opinions page %d: %w", page+1, err)
		}
		if page == 0 {
			observed = listing.Total
		}
		for i := range listing.Opinions {
			opinion := &listing.Opinions[i]
			walked++
			if opinion.ID == "" || enqueued >= s.cfg.EnqueueCap {
				continue
			}
			existing, err := s.decisions.GetByExternalID(ctx, opinion.ID)
			if err != nil {
				return observed, fmt.Errorf("check decision %s: %w", opinion.ID, err)
			}
			if existing != nil {
				continue
			}
			if err := s.enqueueDecision(ctx, judge, opinion.ID, model.OperationCreate, "judge_opinions"); err != nil {
				return observed, err
			}
			enqueued++
		}
		if listing.NextPage == "" {
			break
		}
		pageURL = listing.NextPage
	}

	// A catalog that omits envelope counts still yields what the walk saw.
	if observed < walked {
		observed = walked
	}

	if _, err := s.judges.RecomputeCaseCount(ctx, judge.ID); err != nil {
		return observed, fmt.Errorf("recompute case count: %w", err)
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "opinion discovery finished",
			"judge_external_id", judge.ExternalID,
			"observed", observed,
			"walked", walked,
			"enqueued", enqueued,
		)
	}
	return observed, nil
}

// syncDockets reconciles docket headers against local decisions: a decision
// matching a docket number but missing its filed date gets a refresh job so
// the next decision sync backfills it.
func (s *JudgeSyncService) syncDockets(ctx context.Context, judge *model.Judge) error {
	dockets := make(map[string]upstream.DocketRecord)
	pageURL := ""

	for page := 0; page < s.cfg.DocketPageCap; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		listing, err := s.catalog.ListJudgeDockets(ctx, judge.ExternalID, pageURL)
		if err != nil {
			return fmt.Errorf("list dockets page %d: %w", page+1, err)
		}
		for _, docket := range listing.Dockets {
			if docket.DocketNumber != "" {
				dockets[docket.DocketNumber] = docket
			}
		}
		if listing.NextPage == "" {
			break
		}
		pageURL = listing.NextPage
	}
	if len(dockets) == 0 {
		return nil
	}

	refreshed := 0
	const pageSize = 200
	for offset := 0; ; offset += pageSize {
		decisions, err := s.decisions.ListByJudge(ctx, judge.ID, pageSize, offset)
		if err != nil {
			return fmt.Errorf("list local decisions: %w", err)
		}
		for _, decision := range decisions {
			if decision.DocketNumber == nil || decision.FiledDate != nil {
				continue
			}
			docket, ok := dockets[*decision.DocketNumber]
			if !ok || docket.DateFiled == nil {
				continue
			}
			if err := s.enqueueDecision(ctx, judge, decision.ExternalID, model.OperationUpdate, "docket_reconciliation"); err != nil {
				return err
			}
			refreshed++
		}
		if len(decisions) < pageSize {
			break
		}
	}

	if s.logger != nil && refreshed > 0 {
		s.logger.DebugContext(ctx, "docket reconciliation enqueued refreshes",
			"judge_external_id", judge.ExternalID,
			"dockets", len(dockets),
			"refreshes", refreshed,
		)
	}
	return nil
}

func (s *JudgeSyncService) enqueueDecision(
	ctx context.Context,
	judge *model.Judge,
	opinionExternalID string,
	op model.Operation,
	origin string,
) error {
	_, err := s.queue.Enqueue(ctx, &model.EnqueueRequest{
		EntityType:       model.EntityTypeDecision,
		EntityExternalID: opinionExternalID,
		Operation:        op,
		Priority:         s.cfg.DecisionPriority,
		Metadata: map[string]any{
			"sync.origin":            origin,
			"sync.judge_external_id": judge.ExternalID,
		},
	})
	if err != nil {
		return fmt.Errorf("enqueue decision %s: %w", opinionExternalID, err)
	}
	return nil
}

func (s *JudgeSyncService) advance(
	ctx context.Context,
	externalID string,
	phase model.SyncPhase,
	caseCount *int,
) (*model.SyncProgress, error) {
	return s.progress.AdvancePhase(ctx, core.AdvancePhaseParams{
		EntityType: model.EntityTypeJudge,
		EntityID:   externalID,
		Phase:      phase,
		CaseCount:  caseCount,
		Now:        s.timeProvider.Now(),
	})
}

// recordFailure stores the failure on the progress row, best effort.
func (s *JudgeSyncService) recordFailure(ctx context.Context, externalID string, cause error) {
	err := s.progress.RecordError(ctx, core.RecordSyncErrorParams{
		EntityType: model.EntityTypeJudge,
		EntityID:   externalID,
		Message:    cause.Error(),
		Now:        s.timeProvider.Now(),
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to record sync error",
			"entity_type", model.EntityTypeJudge, "external_id", externalID, "error", err)
	}
}

// buildJudgeUpsert maps one upstream judge record onto normalized upsert
// params: person-name standardization, jurisdiction canonicalization, slug
// derivation.
func buildJudgeUpsert(record *upstream.JudgeRecord) (model.UpsertJudgeParams, error) {
	name := normalize.PersonName(record.Name)
	if name.Value == "" {
		return model.UpsertJudgeParams{}, errors.New("judge name is empty")
	}

	jurisdiction, ok := normalize.Jurisdiction(record.Jurisdiction)
	if !ok {
		return model.UpsertJudgeParams{}, fmt.Errorf("unmappable jurisdiction %q", record.Jurisdiction)
	}

	slug := normalize.Slug(record.Slug)
	if slug == "" {
		slug = normalize.Slug(name.Value)
	}

	params := model.UpsertJudgeParams{
		ExternalID:   record.ID,
		Name:         name.Value,
		Slug:         slug,
		Jurisdiction: model.Jurisdiction(jurisdiction.Value),
		BirthYear:    record.BirthYear,
		Appointer:    optionalStringPtr(record.Appointer),
	}
	if err := params.Validate(); err != nil {
		return model.UpsertJudgeParams{}, err
	}
	return params, nil
}

// classifyPosition maps a position onto an assignment type. The primary seat
// keeps its marker even when terminated; other concluded seats are retired;
// other open seats classify by the upstream position_type.
func classifyPosition(primary bool, positionType string, end *time.Time) model.AssignmentType {
	if primary {
		return model.AssignmentPrimary
	}
	if end != nil {
		return model.AssignmentRetired
	}
	kind := strings.ToLower(positionType)
	switch {
	case strings.Contains(kind, "vis"):
		return model.AssignmentVisiting
	case strings.Contains(kind, "act"), strings.Contains(kind, "temp"):
		return model.AssignmentTemporary
	case strings.Contains(kind, "ret"):
		return model.AssignmentRetired
	default:
		return model.AssignmentVisiting
	}
}
