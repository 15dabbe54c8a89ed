package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openbench/jurisync/internal/core"
	"github.com/openbench/jurisync/internal/data"
	"github.com/openbench/jurisync/internal/domain/model"
	"github.com/openbench/jurisync/internal/mocks"
	"github.com/openbench/jurisync/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type courtSyncFixture struct {
	catalog  *stubCourtCatalog
	courts   *mocks.MockCourtRepository
	progress *mocks.MockProgressRepository
	clock    *data.FixedTimeProvider
	svc      *CourtSyncService
}

func newCourtSyncTest(t *testing.T) *courtSyncFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	f := &courtSyncFixture{
		catalog:  &stubCourtCatalog{},
		courts:   mocks.NewMockCourtRepository(ctrl),
		progress: mocks.NewMockProgressRepository(ctrl),
		clock:    data.NewFixedTimeProvider(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
	}

	svc, err := NewCourtSyncService(CourtSyncServiceOptions{
		Catalog:      f.catalog,
		Courts:       f.courts,
		Progress:     f.progress,
		TimeProvider: f.clock,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *courtSyncFixture) expectAdvance(externalID string, phase model.SyncPhase) *gomock.Call {
	return f.progress.EXPECT().
		AdvancePhase(gomock.Any(), core.AdvancePhaseParams{
			EntityType: model.EntityTypeCourt,
			EntityID:   externalID,
			Phase:      phase,
			Now:        f.clock.Now(),
		}).
		Return(&model.SyncProgress{}, nil)
}

func TestNewCourtSyncService(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	courts := mocks.NewMockCourtRepository(ctrl)
	progress := mocks.NewMockProgressRepository(ctrl)

	t.Run("missing catalog", func(t *testing.T) {
		_, err := NewCourtSyncService(CourtSyncServiceOptions{Courts: courts, Progress: progress})
		require.ErrorContains(t, err, "CourtCatalog is required")
	})

	t.Run("missing courts", func(t *testing.T) {
		_, err := NewCourtSyncService(CourtSyncServiceOptions{Catalog: &stubCourtCatalog{}, Progress: progress})
		require.ErrorContains(t, err, "CourtRepository is required")
	})

	t.Run("missing progress", func(t *testing.T) {
		_, err := NewCourtSyncService(CourtSyncServiceOptions{Catalog: &stubCourtCatalog{}, Courts: courts})
		require.ErrorContains(t, err, "ProgressRepository is required")
	})
}

func TestCourtSyncOne(t *testing.T) {
	t.Parallel()

	f := newCourtSyncTest(t)
	ctx := context.Background()

	f.catalog.getCourt = func(_ context.Context, externalID string) (*upstream.CourtRecord, error) {
		assert.Equal(t, "ca9", externalID)
		return &upstream.CourtRecord{
			ID:           "ca9",
			Name:         "  Court of Appeals for the   Ninth Circuit ",
			ShortName:    "9th Cir.",
			Slug:         "ca9",
			Jurisdiction: "F",
			CourtType:    "appellate",
			URL:          "https://www.courts.example/ca9",
		}, nil
	}

	f.courts.EXPECT().
		Upsert(ctx, model.UpsertCourtParams{
			ExternalID:   "ca9",
			Name:         "Court of Appeals for the Ninth Circuit",
			ShortName:    stringPtr("9th Cir."),
			Slug:         "ca9",
			Jurisdiction: model.JurisdictionFederal,
			CourtType:    stringPtr("appellate"),
			URL:          stringPtr("https://www.courts.example/ca9"),
		}).
		Return(&model.Court{
			ID:           "court-uuid-1",
			ExternalID:   "ca9",
			Name:         "Court of Appeals for the Ninth Circuit",
			Jurisdiction: model.JurisdictionFederal,
		}, nil).
		Times(1)

	gomock.InOrder(
		f.expectAdvance("ca9", model.PhaseDiscovery),
		f.expectAdvance("ca9", model.PhaseDetails),
		f.expectAdvance("ca9", model.PhaseComplete),
	)

	require.NoError(t, f.svc.SyncOne(ctx, "ca9"))
}

func TestCourtSyncOnePrimesReferenceCache(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	courts := mocks.NewMockCourtRepository(ctrl)
	progress := mocks.NewMockProgressRepository(ctrl)
	cache := newMemCache()

	refCache := core.NewReferenceCacheService(core.ReferenceCacheServiceOptions{
		Cache:  cache,
		Courts: courts,
		Judges: mocks.NewMockJudgeRepository(ctrl),
	})

	catalog := &stubCourtCatalog{
		getCourt: func(_ context.Context, _ string) (*upstream.CourtRecord, error) {
			return &upstream.CourtRecord{ID: "scotus", Name: "Supreme Court", Jurisdiction: "federal"}, nil
		},
	}
	svc, err := NewCourtSyncService(CourtSyncServiceOptions{
		Catalog:  catalog,
		Courts:   courts,
		Progress: progress,
		RefCache: refCache,
	})
	require.NoError(t, err)

	ctx := context.Background()
	courts.EXPECT().
		Upsert(ctx, gomock.Any()).
		Return(&model.Court{ID: "court-uuid-9", ExternalID: "scotus"}, nil)
	progress.EXPECT().
		AdvancePhase(ctx, gomock.Any()).
		Return(&model.SyncProgress{}, nil).
		Times(3)

	require.NoError(t, svc.SyncOne(ctx, "scotus"))

	// The upsert should have primed the cache so the next resolve skips the DB.
	id, err := refCache.CourtID(ctx, "scotus")
	require.NoError(t, err)
	assert.Equal(t, "court-uuid-9", id)
}

func TestCourtSyncOneFetchFailure(t *testing.T) {
	t.Parallel()

	f := newCourtSyncTest(t)
	ctx := context.Background()
	fetchErr := errors.New("upstream unavailable")

	f.catalog.getCourt = func(_ context.Context, _ string) (*upstream.CourtRecord, error) {
		return nil, fetchErr
	}
	f.progress.EXPECT().
		RecordError(ctx, core.RecordSyncErrorParams{
			EntityType: model.EntityTypeCourt,
			EntityID:   "ca9",
			Message:    "fetch court ca9: upstream unavailable",
			Now:        f.clock.Now(),
		}).
		Return(nil).
		Times(1)

	err := f.svc.SyncOne(ctx, "ca9")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fetchErr))
	assert.Equal(t, "discovery", FailurePhase(err))
}

func TestCourtSyncOneUnmappableJurisdiction(t *testing.T) {
	t.Parallel()

	f := newCourtSyncTest(t)
	ctx := context.Background()

	f.catalog.getCourt = func(_ context.Context, _ string) (*upstream.CourtRecord, error) {
		return &upstream.CourtRecord{ID: "x1", Name: "Mystery Court", Jurisdiction: "galactic"}, nil
	}
	f.expectAdvance("x1", model.PhaseDiscovery)
	f.progress.EXPECT().
		RecordError(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.RecordSyncErrorParams) error {
			assert.Contains(t, params.Message, `unmappable jurisdiction "galactic"`)
			return nil
		}).
		Times(1)

	err := f.svc.SyncOne(ctx, "x1")
	require.Error(t, err)
	assert.Equal(t, "details", FailurePhase(err))
	assert.Contains(t, err.Error(), "unmappable jurisdiction")
}

func TestCourtSyncOneEmptyExternalID(t *testing.T) {
	t.Parallel()

	f := newCourtSyncTest(t)
	err := f.svc.SyncOne(context.Background(), "")
	require.ErrorContains(t, err, "court external id is required")
}

func TestCourtSyncOneCancelledContext(t *testing.T) {
	t.Parallel()

	f := newCourtSyncTest(t)
	ctx, cancel := context.WithCancel(context.Background())

	f.catalog.getCourt = func(_ context.Context, _ string) (*upstream.CourtRecord, error) {
		return &upstream.CourtRecord{ID: "ca1", Name: "First Circuit", Jurisdiction: "federal"}, nil
	}
	f.progress.EXPECT().
		AdvancePhase(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ core.AdvancePhaseParams) (*model.SyncProgress, error) {
			cancel()
			return &model.SyncProgress{}, nil
		}).
		Times(1)

	err := f.svc.SyncOne(ctx, "ca1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, "details", FailurePhase(err))
}

func TestBuildCourtUpsert(t *testing.T) {
	t.Parallel()

	t.Run("falls back to short name and derives slug", func(t *testing.T) {
		t.Parallel()
		params, err := buildCourtUpsert(&upstream.CourtRecord{
			ID:           "nyed",
			ShortName:    "E.D.N.Y.",
			Jurisdiction: "federal",
		})
		require.NoError(t, err)
		assert.Equal(t, "E.D.N.Y.", params.Name)
		assert.Equal(t, "e-d-n-y", params.Slug)
	})

	t.Run("prefers record slug", func(t *testing.T) {
		t.Parallel()
		params, err := buildCourtUpsert(&upstream.CourtRecord{
			ID:           "nyed",
			Name:         "Eastern District of New York",
			Slug:         "nyed",
			Jurisdiction: "federal",
		})
		require.NoError(t, err)
		assert.Equal(t, "nyed", params.Slug)
	})

	t.Run("empty name fails", func(t *testing.T) {
		t.Parallel()
		_, err := buildCourtUpsert(&upstream.CourtRecord{ID: "x", Jurisdiction: "federal"})
		require.ErrorContains(t, err, "court name is empty")
	})
}
