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

type judgeSyncFixture struct {
	catalog   *stubJudgeCatalog
	judges    *mocks.MockJudgeRepository
	decisions *mocks.MockDecisionRepository
	progress  *mocks.MockProgressRepository
	queue     *mocks.MockSyncQueueRepository
	refCache  *core.ReferenceCacheService
	clock     *data.FixedTimeProvider
	svc       *JudgeSyncService
}

func newJudgeSyncTest(t *testing.T, cfg *JudgeSyncConfig) *judgeSyncFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	f := &judgeSyncFixture{
		catalog: &stubJudgeCatalog{
			listOpinions: func(_ context.Context, _, _ string) (*upstream.OpinionPage, error) {
				return &upstream.OpinionPage{}, nil
			},
			listDockets: func(_ context.Context, _, _ string) (*upstream.DocketPage, error) {
				return &upstream.DocketPage{}, nil
			},
		},
		judges:    mocks.NewMockJudgeRepository(ctrl),
		decisions: mocks.NewMockDecisionRepository(ctrl),
		progress:  mocks.NewMockProgressRepository(ctrl),
		queue:     mocks.NewMockSyncQueueRepository(ctrl),
		clock:     data.NewFixedTimeProvider(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
	}

	courts := mocks.NewMockCourtRepository(ctrl)
	courts.EXPECT().GetByExternalID(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	f.refCache = core.NewReferenceCacheService(core.ReferenceCacheServiceOptions{
		Cache:  newMemCache(),
		Courts: courts,
		Judges: f.judges,
	})

	svc, err := NewJudgeSyncService(JudgeSyncServiceOptions{
		Catalog:      f.catalog,
		Judges:       f.judges,
		Decisions:    f.decisions,
		Progress:     f.progress,
		Queue:        f.queue,
		RefCache:     f.refCache,
		Config:       cfg,
		TimeProvider: f.clock,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

// primeCourt seeds the reference cache so position courts resolve locally.
func (f *judgeSyncFixture) primeCourt(t *testing.T, externalID, id string) {
	t.Helper()
	require.NoError(t, f.refCache.StoreCourtID(context.Background(), externalID, id))
}

func (f *judgeSyncFixture) expectAdvance(externalID string, phase model.SyncPhase, caseCount *int) *gomock.Call {
	return f.progress.EXPECT().
		AdvancePhase(gomock.Any(), core.AdvancePhaseParams{
			EntityType: model.EntityTypeJudge,
			EntityID:   externalID,
			Phase:      phase,
			CaseCount:  caseCount,
			Now:        f.clock.Now(),
		}).
		Return(&model.SyncProgress{}, nil)
}

func TestNewJudgeSyncService(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	judges := mocks.NewMockJudgeRepository(ctrl)
	courts := mocks.NewMockCourtRepository(ctrl)
	refCache := core.NewReferenceCacheService(core.ReferenceCacheServiceOptions{
		Cache:  newMemCache(),
		Courts: courts,
		Judges: judges,
	})

	opts := JudgeSyncServiceOptions{
		Catalog:   &stubJudgeCatalog{},
		Judges:    judges,
		Decisions: mocks.NewMockDecisionRepository(ctrl),
		Progress:  mocks.NewMockProgressRepository(ctrl),
		Queue:     mocks.NewMockSyncQueueRepository(ctrl),
		RefCache:  refCache,
	}

	t.Run("defaults applied", func(t *testing.T) {
		svc, err := NewJudgeSyncService(opts)
		require.NoError(t, err)
		assert.Equal(t, DefaultJudgeSyncConfig(), svc.cfg)
	})

	t.Run("zero config fields fall back to defaults", func(t *testing.T) {
		withCfg := opts
		withCfg.Config = &JudgeSyncConfig{OpinionPageCap: 3}
		svc, err := NewJudgeSyncService(withCfg)
		require.NoError(t, err)
		assert.Equal(t, 3, svc.cfg.OpinionPageCap)
		assert.Equal(t, DefaultJudgeSyncConfig().EnqueueCap, svc.cfg.EnqueueCap)
	})

	t.Run("missing queue", func(t *testing.T) {
		broken := opts
		broken.Queue = nil
		_, err := NewJudgeSyncService(broken)
		require.ErrorContains(t, err, "JobEnqueuer is required")
	})

	t.Run("missing ref cache", func(t *testing.T) {
		broken := opts
		broken.RefCache = nil
		_, err := NewJudgeSyncService(broken)
		require.ErrorContains(t, err, "ReferenceCacheService is required")
	})
}

func TestJudgeSyncOne(t *testing.T) {
	t.Parallel()

	f := newJudgeSyncTest(t, nil)
	ctx := context.Background()
	f.primeCourt(t, "ca2", "court-ca2")
	f.primeCourt(t, "scotus", "court-scotus")

	f.catalog.getJudge = func(_ context.Context, externalID string) (*upstream.JudgeRecord, error) {
		assert.Equal(t, "j42", externalID)
		return &upstream.JudgeRecord{
			ID:           "j42",
			Name:         "Sotomayor, Sonia",
			Jurisdiction: "federal",
			BirthYear:    intPtr(1954),
			Appointer:    stringPtr("President Obama"),
			Positions: []upstream.PositionRecord{
				{CourtID: "ca2", PositionType: "jud", DateStart: "1998-10-07", DateTermination: stringPtr("2009-08-06")},
				{CourtID: "scotus", PositionType: "jud", DateStart: "2009-08-08"},
			},
		}, nil
	}
	f.catalog.listOpinions = func(_ context.Context, judgeExternalID, pageURL string) (*upstream.OpinionPage, error) {
		assert.Equal(t, "j42", judgeExternalID)
		assert.Equal(t, "", pageURL)
		return &upstream.OpinionPage{
			Total: 2,
			Opinions: []upstream.OpinionRecord{
				{ID: "op-1", CaseName: "Already Synced v. Local"},
				{ID: "op-2", CaseName: "New v. Upstream"},
			},
		}, nil
	}
	f.catalog.listDockets = func(_ context.Context, judgeExternalID, pageURL string) (*upstream.DocketPage, error) {
		return &upstream.DocketPage{
			Dockets: []upstream.DocketRecord{
				{ID: "d-1", DocketNumber: "22-123", CaseName: "Already Synced v. Local", DateFiled: stringPtr("2022-01-05")},
			},
		}, nil
	}

	f.judges.EXPECT().
		Upsert(ctx, model.UpsertJudgeParams{
			ExternalID:   "j42",
			Name:         "Sonia Sotomayor",
			Slug:         "sonia-sotomayor",
			Jurisdiction: model.JurisdictionFederal,
			BirthYear:    intPtr(1954),
			Appointer:    stringPtr("President Obama"),
		}).
		Return(&model.Judge{ID: "judge-1", ExternalID: "j42"}, nil)

	f.judges.EXPECT().
		ReplaceAssignments(ctx, "judge-1", []model.ReplaceAssignmentParams{
			{
				CourtID:        "court-ca2",
				AssignmentType: model.AssignmentRetired,
				StartDate:      time.Date(1998, 10, 7, 0, 0, 0, 0, time.UTC),
				EndDate:        timePtr(time.Date(2009, 8, 6, 0, 0, 0, 0, time.UTC)),
			},
			{
				CourtID:        "court-scotus",
				AssignmentType: model.AssignmentPrimary,
				StartDate:      time.Date(2009, 8, 8, 0, 0, 0, 0, time.UTC),
			},
		}).
		Return(nil)

	f.decisions.EXPECT().GetByExternalID(ctx, "op-1").Return(&model.Decision{ID: "dec-1", ExternalID: "op-1"}, nil)
	f.decisions.EXPECT().GetByExternalID(ctx, "op-2").Return(nil, nil)
	f.queue.EXPECT().
		Enqueue(ctx, &model.EnqueueRequest{
			EntityType:       model.EntityTypeDecision,
			EntityExternalID: "op-2",
			Operation:        model.OperationCreate,
			Metadata: map[string]any{
				"sync.origin":            "judge_opinions",
				"sync.judge_external_id": "j42",
			},
		}).
		Return(&model.SyncJob{ID: "job-1"}, nil)
	f.judges.EXPECT().RecomputeCaseCount(ctx, "judge-1").Return(2, nil)

	f.decisions.EXPECT().
		ListByJudge(ctx, "judge-1", 200, 0).
		Return([]*model.Decision{
			{ID: "dec-1", ExternalID: "op-1", DocketNumber: stringPtr("22-123")},
		}, nil)
	f.queue.EXPECT().
		Enqueue(ctx, &model.EnqueueRequest{
			EntityType:       model.EntityTypeDecision,
			EntityExternalID: "op-1",
			Operation:        model.OperationUpdate,
			Metadata: map[string]any{
				"sync.origin":            "docket_reconciliation",
				"sync.judge_external_id": "j42",
			},
		}).
		Return(&model.SyncJob{ID: "job-2"}, nil)

	f.progress.EXPECT().
		SetAnalyticsReady(ctx, model.EntityTypeJudge, "j42", false).
		Return(true, nil)

	gomock.InOrder(
		f.expectAdvance("j42", model.PhaseDiscovery, nil),
		f.expectAdvance("j42", model.PhasePositions, nil),
		f.expectAdvance("j42", model.PhaseDetails, nil),
		f.expectAdvance("j42", model.PhaseOpinions, intPtr(2)),
		f.expectAdvance("j42", model.PhaseDockets, nil),
		f.expectAdvance("j42", model.PhaseComplete, nil),
	)

	require.NoError(t, f.svc.SyncOne(ctx, "j42"))
}

func TestJudgeSyncFetchFailure(t *testing.T) {
	t.Parallel()

	f := newJudgeSyncTest(t, nil)
	ctx := context.Background()
	upstreamErr := errors.New("status 502")

	f.catalog.getJudge = func(_ context.Context, _ string) (*upstream.JudgeRecord, error) {
		return nil, upstreamErr
	}
	f.progress.EXPECT().
		RecordError(ctx, core.RecordSyncErrorParams{
			EntityType: model.EntityTypeJudge,
			EntityID:   "j9",
			Message:    "fetch judge j9: status 502",
			Now:        f.clock.Now(),
		}).
		Return(nil)

	err := f.svc.SyncOne(ctx, "j9")
	require.Error(t, err)
	assert.True(t, errors.Is(err, upstreamErr))
	assert.Equal(t, "discovery", FailurePhase(err))
}

func TestJudgeSyncEnqueuesMissingCourt(t *testing.T) {
	t.Parallel()

	f := newJudgeSyncTest(t, nil)
	ctx := context.Background()
	judge := &model.Judge{ID: "judge-1", ExternalID: "j42"}

	// "cafc" is never primed and the court repo returns no row, so the
	// position is skipped and a court job queued in its place.
	f.queue.EXPECT().
		Enqueue(ctx, &model.EnqueueRequest{
			EntityType:       model.EntityTypeCourt,
			EntityExternalID: "cafc",
			Operation:        model.OperationCreate,
			Metadata: map[string]any{
				"sync.origin":            "judge_positions",
				"sync.judge_external_id": "j42",
			},
		}).
		Return(&model.SyncJob{ID: "job-1"}, nil)

	assignments, err := f.svc.deriveAssignments(ctx, judge, []upstream.PositionRecord{
		{CourtID: "cafc", PositionType: "jud", DateStart: "2015-01-01"},
	})
	require.NoError(t, err)
	assert.Empty(t, assignments)
}

func TestJudgeSyncPrimarySeatWhenAllTerminated(t *testing.T) {
	t.Parallel()

	f := newJudgeSyncTest(t, nil)
	ctx := context.Background()
	f.primeCourt(t, "c1", "court-1")
	f.primeCourt(t, "c2", "court-2")
	f.primeCourt(t, "c3", "court-3")
	judge := &model.Judge{ID: "judge-1", ExternalID: "j42"}

	assignments, err := f.svc.deriveAssignments(ctx, judge, []upstream.PositionRecord{
		{CourtID: "c1", DateStart: "1990-01-01", DateTermination: stringPtr("1995-06-30")},
		{CourtID: "c2", DateStart: "2000-03-01", DateTermination: stringPtr("2005-12-31")},
		{CourtID: "c3", DateStart: "1993-09-01", DateTermination: stringPtr("1999-01-15")},
	})
	require.NoError(t, err)
	require.Len(t, assignments, 3)
	// The most recently started seat is the primary; the rest are retired.
	assert.Equal(t, model.AssignmentRetired, assignments[0].AssignmentType)
	assert.Equal(t, model.AssignmentPrimary, assignments[1].AssignmentType)
	assert.Equal(t, model.AssignmentRetired, assignments[2].AssignmentType)
}

func TestJudgeSyncSkipsUnparseablePositionDates(t *testing.T) {
	t.Parallel()

	f := newJudgeSyncTest(t, nil)
	ctx := context.Background()
	judge := &model.Judge{ID: "judge-1", ExternalID: "j42"}

	assignments, err := f.svc.deriveAssignments(ctx, judge, []upstream.PositionRecord{
		{CourtID: "c1", DateStart: "not a date"},
	})
	require.NoError(t, err)
	assert.Nil(t, assignments)
}

func TestClassifyPosition(t *testing.T) {
	t.Parallel()

	ended := timePtr(time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name         string
		primary      bool
		positionType string
		end          *time.Time
		want         model.AssignmentType
	}{
		{name: "primary wins even when terminated", primary: true, positionType: "jud", end: ended, want: model.AssignmentPrimary},
		{name: "terminated non-primary is retired", positionType: "jud", end: ended, want: model.AssignmentRetired},
		{name: "visiting position type", positionType: "Visiting Judge", want: model.AssignmentVisiting},
		{name: "acting position type", positionType: "acting chief judge", want: model.AssignmentTemporary},
		{name: "temporary position type", positionType: "temp assignment", want: model.AssignmentTemporary},
		{name: "retired position type without end date", positionType: "ret-senior", want: model.AssignmentRetired},
		{name: "unknown open seat defaults to visiting", positionType: "jud", want: model.AssignmentVisiting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, classifyPosition(tt.primary, tt.positionType, tt.end))
		})
	}
}

func TestJudgeSyncOpinionFanout(t *testing.T) {
	t.Parallel()

	t.Run("respects enqueue cap", func(t *testing.T) {
		t.Parallel()
		f := newJudgeSyncTest(t, &JudgeSyncConfig{EnqueueCap: 1})
		ctx := context.Background()
		judge := &model.Judge{ID: "judge-1", ExternalID: "j42"}

		f.catalog.listOpinions = func(_ context.Context, _, _ string) (*upstream.OpinionPage, error) {
			return &upstream.OpinionPage{
				Total: 3,
				Opinions: []upstream.OpinionRecord{
					{ID: "op-1"}, {ID: "op-2"}, {ID: "op-3"},
				},
			}, nil
		}
		f.decisions.EXPECT().GetByExternalID(ctx, "op-1").Return(nil, nil)
		f.queue.EXPECT().Enqueue(ctx, gomock.Any()).Return(&model.SyncJob{ID: "job-1"}, nil).Times(1)
		f.judges.EXPECT().RecomputeCaseCount(ctx, "judge-1").Return(1, nil)

		observed, err := f.svc.syncOpinions(ctx, judge)
		require.NoError(t, err)
		assert.Equal(t, 3, observed)
	})

	t.Run("observed falls back to walked count", func(t *testing.T) {
		t.Parallel()
		f := newJudgeSyncTest(t, nil)
		ctx := context.Background()
		judge := &model.Judge{ID: "judge-1", ExternalID: "j42"}

		pages := map[string]*upstream.OpinionPage{
			"": {
				Opinions: []upstream.OpinionRecord{{ID: "op-1"}, {ID: "op-2"}},
				NextPage: "cursor-2",
			},
			"cursor-2": {
				Opinions: []upstream.OpinionRecord{{ID: "op-3"}},
			},
		}
		f.catalog.listOpinions = func(_ context.Context, _, pageURL string) (*upstream.OpinionPage, error) {
			page, ok := pages[pageURL]
			require.True(t, ok, "unexpected page url %q", pageURL)
			return page, nil
		}
		f.decisions.EXPECT().GetByExternalID(ctx, gomock.Any()).Return(&model.Decision{ID: "dec"}, nil).Times(3)
		f.judges.EXPECT().RecomputeCaseCount(ctx, "judge-1").Return(3, nil)

		observed, err := f.svc.syncOpinions(ctx, judge)
		require.NoError(t, err)
		assert.Equal(t, 3, observed)
	})

	t.Run("listing failure surfaces page number", func(t *testing.T) {
		t.Parallel()
		f := newJudgeSyncTest(t, nil)
		ctx := context.Background()
		judge := &model.Judge{ID: "judge-1", ExternalID: "j42"}

		f.catalog.listOpinions = func(_ context.Context, _, _ string) (*upstream.OpinionPage, error) {
			return nil, errors.New("rate limited")
		}

		_, err := f.svc.syncOpinions(ctx, judge)
		require.ErrorContains(t, err, "list opinions page 1")
	})
}

func TestJudgeSyncAnalyticsReadiness(t *testing.T) {
	t.Parallel()

	f := newJudgeSyncTest(t, &JudgeSyncConfig{AnalyticsCaseThreshold: 2})
	ctx := context.Background()
	f.catalog.getJudge = func(_ context.Context, _ string) (*upstream.JudgeRecord, error) {
		return &upstream.JudgeRecord{ID: "j42", Name: "Ruth Bader Ginsburg", Jurisdiction: "federal"}, nil
	}
	f.catalog.listOpinions = func(_ context.Context, _, _ string) (*upstream.OpinionPage, error) {
		return &upstream.OpinionPage{Total: 2}, nil
	}

	f.judges.EXPECT().
		Upsert(ctx, gomock.Any()).
		Return(&model.Judge{ID: "judge-1", ExternalID: "j42"}, nil)
	f.judges.EXPECT().ReplaceAssignments(ctx, "judge-1", nil).Return(nil)
	f.judges.EXPECT().RecomputeCaseCount(ctx, "judge-1").Return(0, nil)
	f.progress.EXPECT().
		AdvancePhase(gomock.Any(), gomock.Any()).
		Return(&model.SyncProgress{}, nil).
		Times(6)
	f.progress.EXPECT().
		SetAnalyticsReady(ctx, model.EntityTypeJudge, "j42", true).
		Return(true, nil)

	require.NoError(t, f.svc.SyncOne(ctx, "j42"))
}
