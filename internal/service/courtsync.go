package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openbench/jurisync/internal/core"
	"github.com/openbench/jurisync/internal/data"
	"github.com/openbench/jurisync/internal/domain/model"
	"github.com/openbench/jurisync/internal/domain/normalize"
	"github.com/openbench/jurisync/internal/upstream"
)

// CourtCatalog is the slice of the upstream client the court pipeline reads.
type CourtCatalog interface {
	GetCourt(ctx context.Context, externalID string) (*upstream.CourtRecord, error)
}

// CourtSyncServiceOptions groups dependencies for CourtSyncService.
type CourtSyncServiceOptions struct {
	Catalog      CourtCatalog                // Required: upstream court endpoint
	Courts       core.CourtRepository        // Required: court persistence
	Progress     core.ProgressRepository     // Required: per-entity sync progress
	RefCache     *core.ReferenceCacheService // Optional: primes external-id lookups after upserts
	TimeProvider data.TimeProvider           // Optional: clock override for tests
	Logger       *slog.Logger                // Optional: structured logger
}

// CourtSyncService syncs one court at a time from the upstream catalog:
// fetch, normalize, upsert keyed by external id, advance sync progress.
type CourtSyncService struct {
	catalog      CourtCatalog
	courts       core.CourtRepository
	progress     core.ProgressRepository
	refCache     *core.ReferenceCacheService
	timeProvider data.TimeProvider
	logger       *slog.Logger
}

// NewCourtSyncService constructs a new CourtSyncService.
func NewCourtSyncService(opts CourtSyncServiceOptions) (*CourtSyncService, error) {
	if opts.Catalog == nil {
		return nil, errors.New("CourtCatalog is required")
	}
	if opts.Courts == nil {
		return nil, errors.New("CourtRepository is required")
	}
	if opts.Progress == nil {
		return nil, errors.New("ProgressRepository is required")
	}

	timeProvider := opts.TimeProvider
	if timeProvider == nil {
		timeProvider = &data.RealTimeProvider{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "court_sync_service")
	}

	return &CourtSyncService{
		catalog:      opts.Catalog,
		courts:       opts.Courts,
		progress:     opts.Progress,
		refCache:     opts.RefCache,
		timeProvider: timeProvider,
		logger:       logger,
	}, nil
}

// SyncOne fetches and upserts a single court by its catalog identifier.
func (s *CourtSyncService) SyncOne(ctx context.Context, externalID string) error {
	if externalID == "" {
		return errors.New("court external id is required")
	}

	record, err := s.catalog.GetCourt(ctx, externalID)
	if err != nil {
		fetchErr := fmt.Errorf("fetch court %s: %w", externalID, err)
		s.recordFailure(ctx, externalID, fetchErr)
		return phaseErr(model.PhaseDiscovery, fetchErr)
	}
	if _, err := s.advance(ctx, externalID, model.PhaseDiscovery); err != nil {
		return phaseErr(model.PhaseDiscovery, err)
	}

	if err := ctx.Err(); err != nil {
		return phaseErr(model.PhaseDetails, err)
	}

	court, err := s.upsertRecord(ctx, record)
	if err != nil {
		s.recordFailure(ctx, externalID, err)
		return phaseErr(model.PhaseDetails, err)
	}
	if _, err := s.advance(ctx, externalID, model.PhaseDetails); err != nil {
		return phaseErr(model.PhaseDetails, err)
	}

	if _, err := s.advance(ctx, externalID, model.PhaseComplete); err != nil {
		return phaseErr(model.PhaseComplete, err)
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "court synced",
			"external_id", externalID,
			"court_id", court.ID,
			"jurisdiction", court.Jurisdiction,
		)
	}
	return nil
}

// upsertRecord normalizes and persists one upstream court record, then primes
// the reference cache so decision syncs resolve the court without a DB hit.
func (s *CourtSyncService) upsertRecord(ctx context.Context, record *upstream.CourtRecord) (*model.Court, error) {
	params, err := buildCourtUpsert(record)
	if err != nil {
		return nil, fmt.Errorf("normalize court %s: %w", record.ID, err)
	}

	court, err := s.courts.Upsert(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("upsert court %s: %w", record.ID, err)
	}

	if s.refCache != nil {
		if err := s.refCache.StoreCourtID(ctx, court.ExternalID, court.ID); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to prime court reference cache",
				"external_id", court.ExternalID, "error", err)
		}
	}
	return court, nil
}

func (s *CourtSyncService) advance(ctx context.Context, externalID string, phase model.SyncPhase) (*model.SyncProgress, error) {
	return s.progress.AdvancePhase(ctx, core.AdvancePhaseParams{
		EntityType: model.EntityTypeCourt,
		EntityID:   externalID,
		Phase:      phase,
		Now:        s.timeProvider.Now(),
	})
}

// recordFailure stores the failure on the progress row, best effort.
func (s *CourtSyncService) recordFailure(ctx context.Context, externalID string, cause error) {
	err := s.progress.RecordError(ctx, core.RecordSyncErrorParams{
		EntityType: model.EntityTypeCourt,
		EntityID:   externalID,
		Message:    cause.Error(),
		Now:        s.timeProvider.Now(),
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to record sync error",
			"entity_type", model.EntityTypeCourt, "external_id", externalID, "error", err)
	}
}

// buildCourtUpsert maps one upstream court record onto normalized upsert
// params. Unmappable jurisdictions fail the record rather than guessing.
func buildCourtUpsert(record *upstream.CourtRecord) (model.UpsertCourtParams, error) {
	name := collapseWhitespace(record.Name)
	if name == "" {
		name = collapseWhitespace(record.ShortName)
	}
	if name == "" {
		return model.UpsertCourtParams{}, errors.New("court name is empty")
	}

	jurisdiction, ok := normalize.Jurisdiction(record.Jurisdiction)
	if !ok {
		return model.UpsertCourtParams{}, fmt.Errorf("unmappable jurisdiction %q", record.Jurisdiction)
	}

	slug := normalize.Slug(record.Slug)
	if slug == "" {
		slug = normalize.Slug(name)
	}

	params := model.UpsertCourtParams{
		ExternalID:   record.ID,
		Name:         name,
		ShortName:    optionalString(record.ShortName),
		Slug:         slug,
		Jurisdiction: model.Jurisdiction(jurisdiction.Value),
		CourtType:    optionalString(record.CourtType),
		URL:          optionalString(record.URL),
	}
	if err := params.Validate(); err != nil {
		return model.UpsertCourtParams{}, err
	}
	return params, nil
}
