package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/openbench/jurisync/internal/core"
	"github.com/openbench/jurisync/internal/data"
	"github.com/openbench/jurisync/internal/domain/model"
	"github.com/openbench/jurisync/internal/domain/normalize"
	"github.com/openbench/jurisync/internal/upstream"
)

// OpinionCatalog is the slice of the upstream client the decision pipeline reads.
type OpinionCatalog interface {
	GetOpinion(ctx context.Context, externalID string) (*upstream.OpinionRecord, error)
}

// OutcomeEvaluator abstracts JMESPath probing for testability.
type OutcomeEvaluator interface {
	Evaluate(expr string, data any) (any, error)
}

// jmespathOutcomeEvaluator implements OutcomeEvaluator using go-jmespath.
type jmespathOutcomeEvaluator struct{}

func (jmespathOutcomeEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// outcomeProbes are the JMESPath expressions probed, in order, over the raw
// opinion body when the decoded disposition field is empty. Catalog sources
// disagree about where the disposition lives.
var outcomeProbes = []string{
	"disposition",
	"cluster.disposition",
	"casebody.data.disposition",
	"outcome",
	"result",
}

// DecisionSyncServiceOptions groups dependencies for DecisionSyncService.
type DecisionSyncServiceOptions struct {
	Catalog      OpinionCatalog              // Required: upstream opinion endpoint
	Decisions    core.DecisionRepository     // Required: decision persistence
	Progress     core.ProgressRepository     // Required: per-entity sync progress
	RefCache     *core.ReferenceCacheService // Required: judge/court resolution
	Evaluator    OutcomeEvaluator            // Optional: defaults to the jmespath library
	TimeProvider data.TimeProvider           // Optional: clock override for tests
	Logger       *slog.Logger                // Optional: structured logger
}

// DecisionSyncService syncs one decision at a time: fetch the opinion, map
// its disposition onto the canonical outcome taxonomy, resolve judge and
// court references through the cache, and upsert keyed by external id.
type DecisionSyncService struct {
	catalog      OpinionCatalog
	decisions    core.DecisionRepository
	progress     core.ProgressRepository
	refCache     *core.ReferenceCacheService
	evaluator    OutcomeEvaluator
	timeProvider data.TimeProvider
	logger       *slog.Logger
}

// NewDecisionSyncService constructs a new DecisionSyncService.
func NewDecisionSyncService(opts DecisionSyncServiceOptions) (*DecisionSyncService, error) {
	if opts.Catalog == nil {
		return nil, errors.New("OpinionCatalog is required")
	}
	if opts.Decisions == nil {
		return nil, errors.New("DecisionRepository is required")
	}
	if opts.Progress == nil {
		return nil, errors.New("ProgressRepository is required")
	}
	if opts.RefCache == nil {
		return nil, errors.New("ReferenceCacheService is required")
	}

	evaluator := opts.Evaluator
	if evaluator == nil {
		evaluator = jmespathOutcomeEvaluator{}
	}

	timeProvider := opts.TimeProvider
	if timeProvider == nil {
		timeProvider = &data.RealTimeProvider{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "decision_sync_service")
	}

	return &DecisionSyncService{
		catalog:      opts.Catalog,
		decisions:    opts.Decisions,
		progress:     opts.Progress,
		refCache:     opts.RefCache,
		evaluator:    evaluator,
		timeProvider: timeProvider,
		logger:       logger,
	}, nil
}

// SyncOne fetches and upserts a single decision by its catalog identifier.
func (s *DecisionSyncService) SyncOne(ctx context.Context, externalID string) error {
	if externalID == "" {
		return errors.New("decision external id is required")
	}

	record, err := s.catalog.GetOpinion(ctx, externalID)
	if err != nil {
		fetchErr := fmt.Errorf("fetch opinion %s: %w", externalID, err)
		s.recordFailure(ctx, externalID, fetchErr)
		return phaseErr(model.PhaseDiscovery, fetchErr)
	}
	if _, err := s.advance(ctx, externalID, model.PhaseDiscovery); err != nil {
		return phaseErr(model.PhaseDiscovery, err)
	}

	if err := ctx.Err(); err != nil {
		return phaseErr(model.PhaseDetails, err)
	}

	params, err := s.buildUpsert(ctx, record)
	if err != nil {
		s.recordFailure(ctx, externalID, err)
		return phaseErr(model.PhaseDetails, err)
	}
	decision, err := s.decisions.Upsert(ctx, params)
	if err != nil {
		upsertErr := fmt.Errorf("upsert decision %s: %w", externalID, err)
		s.recordFailure(ctx, externalID, upsertErr)
		return phaseErr(model.PhaseDetails, upsertErr)
	}
	if _, err := s.advance(ctx, externalID, model.PhaseDetails); err != nil {
		return phaseErr(model.PhaseDetails, err)
	}

	if _, err := s.advance(ctx, externalID, model.PhaseComplete); err != nil {
		return phaseErr(model.PhaseComplete, err)
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "decision synced",
			"external_id", externalID,
			"decision_id", decision.ID,
			"outcome", decision.Outcome,
		)
	}
	return nil
}

// buildUpsert normalizes one upstream opinion record into upsert params,
// resolving judge and court references through the cache.
func (s *DecisionSyncService) buildUpsert(
	ctx context.Context,
	record *upstream.OpinionRecord,
) (model.UpsertDecisionParams, error) {
	caseName := collapseWhitespace(record.CaseName)
	if caseName == "" {
		return model.UpsertDecisionParams{}, errors.New("case name is empty")
	}

	outcome, rawOutcome := s.extractOutcome(record)

	courtID, err := s.resolveRef(ctx, "court", record.CourtID, s.refCache.CourtID)
	if err != nil {
		return model.UpsertDecisionParams{}, err
	}
	judgeID, err := s.resolveRef(ctx, "judge", record.JudgeID, s.refCache.JudgeID)
	if err != nil {
		return model.UpsertDecisionParams{}, err
	}

	params := model.UpsertDecisionParams{
		ExternalID:   record.ID,
		CaseName:     caseName,
		DocketNumber: optionalStringPtr(record.DocketNumber),
		CourtID:      courtID,
		JudgeID:      judgeID,
		Outcome:      outcome,
		RawOutcome:   rawOutcome,
		DecisionDate: parseCatalogDatePtr(record.DateDecided),
		FiledDate:    parseCatalogDatePtr(record.DateFiled),
		Summary:      optionalStringPtr(record.Summary),
	}
	if err := params.Validate(); err != nil {
		return model.UpsertDecisionParams{}, err
	}
	return params, nil
}

// extractOutcome maps the upstream disposition onto the canonical taxonomy.
// When the decoded field is empty the raw body is probed with the ordered
// JMESPath expressions. Values no heuristic can place land on OutcomeOther
// with the raw string preserved for the validator.
func (s *DecisionSyncService) extractOutcome(record *upstream.OpinionRecord) (model.Outcome, *string) {
	raw := ""
	if record.Disposition != nil {
		raw = collapseWhitespace(*record.Disposition)
	}
	if raw == "" {
		raw = s.probeRawOutcome(record.Raw)
	}
	if raw == "" {
		return model.OutcomeOther, nil
	}

	suggestion := normalize.Outcome(raw)
	outcome := model.Outcome(suggestion.Value)
	if !outcome.Valid() {
		outcome = model.OutcomeOther
	}
	rawCopy := raw
	return outcome, &rawCopy
}

// probeRawOutcome runs the ordered probe expressions over the raw opinion
// body. The first probe yielding a non-empty string wins.
func (s *DecisionSyncService) probeRawOutcome(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	for _, expr := range outcomeProbes {
		value, err := s.evaluator.Evaluate(expr, body)
		if err != nil {
			continue
		}
		str, ok := value.(string)
		if !ok {
			continue
		}
		if trimmed := collapseWhitespace(str); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// resolveRef maps an upstream external identifier to a local row id through
// the reference cache. Unsynced references become nil so the row keeps its
// other fields; a later refresh relinks them.
func (s *DecisionSyncService) resolveRef(
	ctx context.Context,
	kind string,
	externalID *string,
	lookup func(context.Context, string) (string, error),
) (*string, error) {
	if externalID == nil || *externalID == "" {
		return nil, nil
	}
	id, err := lookup(ctx, *externalID)
	if err != nil {
		return nil, fmt.Errorf("resolve %s %s: %w", kind, *externalID, err)
	}
	if id == "" {
		if s.logger != nil {
			s.logger.DebugContext(ctx, "decision references unsynced entity",
				"kind", kind, "external_id", *externalID)
		}
		return nil, nil
	}
	return &id, nil
}

func (s *DecisionSyncService) advance(ctx context.Context, externalID string, phase model.SyncPhase) (*model.SyncProgress, error) {
	return s.progress.AdvancePhase(ctx, core.AdvancePhaseParams{
		EntityType: model.EntityTypeDecision,
		EntityID:   externalID,
		Phase:      phase,
		Now:        s.timeProvider.Now(),
	})
}

// recordFailure stores the failure on the progress row, best effort.
func (s *DecisionSyncService) recordFailure(ctx context.Context, externalID string, cause error) {
	err := s.progress.RecordError(ctx, core.RecordSyncErrorParams{
		EntityType: model.EntityTypeDecision,
		EntityID:   externalID,
		Message:    cause.Error(),
		Now:        s.timeProvider.Now(),
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to record sync error",
			"entity_type", model.EntityTypeDecision, "external_id", externalID, "error", err)
	}
}
