package service

import (
	"context"
	"errors"
	"testing"

	"github.com/openbench/jurisync/internal/domain/model"
	"github.com/openbench/jurisync/internal/mocks"
	"github.com/openbench/jurisync/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// stubDiscoveryCatalog satisfies DiscoveryCatalog with per-call functions.
type stubDiscoveryCatalog struct {
	listCourts func(ctx context.Context, pageURL string) (*upstream.CourtPage, error)
	listJudges func(ctx context.Context, pageURL string) (*upstream.JudgePage, error)
}

func (s *stubDiscoveryCatalog) ListCourts(ctx context.Context, pageURL string) (*upstream.CourtPage, error) {
	return s.listCourts(ctx, pageURL)
}

func (s *stubDiscoveryCatalog) ListJudges(ctx context.Context, pageURL string) (*upstream.JudgePage, error) {
	return s.listJudges(ctx, pageURL)
}

func newFullSyncTest(t *testing.T, cfg *FullSyncConfig) (*stubDiscoveryCatalog, *mocks.MockSyncQueueRepository, *FullSyncService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	catalog := &stubDiscoveryCatalog{
		listCourts: func(_ context.Context, _ string) (*upstream.CourtPage, error) {
			return &upstream.CourtPage{}, nil
		},
		listJudges: func(_ context.Context, _ string) (*upstream.JudgePage, error) {
			return &upstream.JudgePage{}, nil
		},
	}
	queue := mocks.NewMockSyncQueueRepository(ctrl)
	svc, err := NewFullSyncService(FullSyncServiceOptions{
		Catalog: catalog,
		Queue:   queue,
		Config:  cfg,
	})
	require.NoError(t, err)
	return catalog, queue, svc
}

func TestNewFullSyncService(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	queue := mocks.NewMockSyncQueueRepository(ctrl)

	t.Run("missing catalog", func(t *testing.T) {
		_, err := NewFullSyncService(FullSyncServiceOptions{Queue: queue})
		require.ErrorContains(t, err, "DiscoveryCatalog is required")
	})

	t.Run("missing queue", func(t *testing.T) {
		_, err := NewFullSyncService(FullSyncServiceOptions{Catalog: &stubDiscoveryCatalog{}})
		require.ErrorContains(t, err, "JobEnqueuer is required")
	})

	t.Run("zero caps fall back to defaults", func(t *testing.T) {
		svc, err := NewFullSyncService(FullSyncServiceOptions{
			Catalog: &stubDiscoveryCatalog{},
			Queue:   queue,
			Config:  &FullSyncConfig{CourtPageCap: 7},
		})
		require.NoError(t, err)
		assert.Equal(t, 7, svc.cfg.CourtPageCap)
		assert.Equal(t, DefaultFullSyncConfig().JudgePageCap, svc.cfg.JudgePageCap)
	})
}

func TestFullSyncRun(t *testing.T) {
	t.Parallel()

	catalog, queue, svc := newFullSyncTest(t, nil)
	ctx := context.Background()

	courtPages := map[string]*upstream.CourtPage{
		"": {
			Courts:   []upstream.CourtRecord{{ID: "ca1"}, {ID: "ca2"}, {ID: ""}},
			NextPage: "courts-2",
		},
		// ca2 repeats across pages and is enqueued once.
		"courts-2": {
			Courts: []upstream.CourtRecord{{ID: "ca2"}, {ID: "ca3"}},
		},
	}
	catalog.listCourts = func(_ context.Context, pageURL string) (*upstream.CourtPage, error) {
		page, ok := courtPages[pageURL]
		require.True(t, ok, "unexpected court page %q", pageURL)
		return page, nil
	}
	catalog.listJudges = func(_ context.Context, pageURL string) (*upstream.JudgePage, error) {
		assert.Equal(t, "", pageURL)
		return &upstream.JudgePage{Judges: []upstream.JudgeRecord{{ID: "j1"}}}, nil
	}

	var enqueued []*model.EnqueueRequest
	queue.EXPECT().
		Enqueue(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, req *model.EnqueueRequest) (*model.SyncJob, error) {
			enqueued = append(enqueued, req)
			return &model.SyncJob{ID: "job"}, nil
		}).
		Times(4)

	summary, err := svc.Run(ctx, FullSweepParams{Priority: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.CourtsEnqueued)
	assert.Equal(t, 1, summary.JudgesEnqueued)
	assert.Equal(t, 3, summary.PagesWalked)

	require.Len(t, enqueued, 4)
	assert.Equal(t, model.EntityTypeCourt, enqueued[0].EntityType)
	assert.Equal(t, "ca1", enqueued[0].EntityExternalID)
	assert.Equal(t, model.OperationUpdate, enqueued[0].Operation)
	assert.Equal(t, 2, enqueued[0].Priority)
	assert.Equal(t, map[string]any{"sync.origin": "full_sweep"}, enqueued[0].Metadata)
	assert.Equal(t, model.EntityTypeJudge, enqueued[3].EntityType)
	assert.Equal(t, "j1", enqueued[3].EntityExternalID)
}

func TestFullSyncRunCourtsOnly(t *testing.T) {
	t.Parallel()

	catalog, queue, svc := newFullSyncTest(t, nil)
	ctx := context.Background()

	catalog.listCourts = func(_ context.Context, _ string) (*upstream.CourtPage, error) {
		return &upstream.CourtPage{Courts: []upstream.CourtRecord{{ID: "ca1"}}}, nil
	}
	catalog.listJudges = func(_ context.Context, _ string) (*upstream.JudgePage, error) {
		t.Fatal("judge listing should not be called for a courts-only sweep")
		return nil, nil
	}
	queue.EXPECT().Enqueue(ctx, gomock.Any()).Return(&model.SyncJob{ID: "job"}, nil)

	summary, err := svc.Run(ctx, FullSweepParams{Courts: true})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.CourtsEnqueued)
	assert.Equal(t, 0, summary.JudgesEnqueued)
}

func TestFullSyncRunListFailure(t *testing.T) {
	t.Parallel()

	catalog, _, svc := newFullSyncTest(t, nil)

	catalog.listCourts = func(_ context.Context, _ string) (*upstream.CourtPage, error) {
		return nil, errors.New("rate limited")
	}

	summary, err := svc.Run(context.Background(), FullSweepParams{Courts: true})
	require.ErrorContains(t, err, "list courts page 1")
	assert.Equal(t, "discovery", FailurePhase(err))
	assert.NotNil(t, summary)
}

func TestFullSyncRunEnqueueFailure(t *testing.T) {
	t.Parallel()

	catalog, queue, svc := newFullSyncTest(t, nil)
	ctx := context.Background()

	catalog.listJudges = func(_ context.Context, _ string) (*upstream.JudgePage, error) {
		return &upstream.JudgePage{Judges: []upstream.JudgeRecord{{ID: "j1"}}}, nil
	}
	queue.EXPECT().Enqueue(ctx, gomock.Any()).Return(nil, errors.New("queue full"))

	_, err := svc.Run(ctx, FullSweepParams{Judges: true})
	require.ErrorContains(t, err, "enqueue judge j1")
}

func TestFullSyncRunStopsAtPageCap(t *testing.T) {
	t.Parallel()

	catalog, queue, svc := newFullSyncTest(t, &FullSyncConfig{CourtPageCap: 2, JudgePageCap: 1})
	ctx := context.Background()

	pagesServed := 0
	catalog.listCourts = func(_ context.Context, _ string) (*upstream.CourtPage, error) {
		pagesServed++
		return &upstream.CourtPage{
			Courts:   []upstream.CourtRecord{{ID: "same-court"}},
			NextPage: "more",
		}, nil
	}
	queue.EXPECT().Enqueue(ctx, gomock.Any()).Return(&model.SyncJob{ID: "job"}, nil).Times(1)

	summary, err := svc.Run(ctx, FullSweepParams{Courts: true})
	require.NoError(t, err)
	assert.Equal(t, 2, pagesServed)
	assert.Equal(t, 1, summary.CourtsEnqueued)
	assert.Equal(t, 2, summary.PagesWalked)
}
