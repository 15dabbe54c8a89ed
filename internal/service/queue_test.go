package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/openbench/jurisync/internal/domain/model"
	domainqueue "github.com/openbench/jurisync/internal/domain/queue"
	"github.com/openbench/jurisync/internal/mocks"
	"github.com/openbench/jurisync/internal/observability/notify"
	"github.com/openbench/jurisync/internal/service/failurenotifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type stubQueueNotifier struct {
	subscribeCalls []model.EntityType
	stopCalled     bool
	subscribeFn    func(model.EntityType) (func(), <-chan struct{})
	stopAllFn      func()
}

func (s *stubQueueNotifier) Subscribe(entityType model.EntityType) (func(), <-chan struct{}) {
	s.subscribeCalls = append(s.subscribeCalls, entityType)
	if s.subscribeFn != nil {
		return s.subscribeFn(entityType)
	}
	ch := make(chan struct{})
	unsub := func() {
		select {
		case <-ch:
		default:
		}
		close(ch)
	}
	return unsub, ch
}

func (s *stubQueueNotifier) StopAll() {
	s.stopCalled = true
	if s.stopAllFn != nil {
		s.stopAllFn()
	}
}

var _ domainqueue.Notifier = (*stubQueueNotifier)(nil)

func newTestQueueService(t *testing.T, repo *mocks.MockSyncQueueRepository) (*QueueService, *stubQueueNotifier) {
	t.Helper()
	notifier := &stubQueueNotifier{}
	svc := MustNewQueueService(QueueServiceOptions{
		Repo:         repo,
		DefaultLease: 30 * time.Second,
		Notifier:     notifier,
	})
	return svc, notifier
}

// captureSink records every payload delivered to it.
type captureSink struct {
	mu       sync.Mutex
	failures []notify.JobFailurePayload
}

func (c *captureSink) sink() notify.Sink {
	return notify.Funcs{
		JobFailure: func(_ context.Context, payload notify.JobFailurePayload) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.failures = append(c.failures, payload)
			return nil
		},
	}
}

func (c *captureSink) captured() []notify.JobFailurePayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]notify.JobFailurePayload, len(c.failures))
	copy(out, c.failures)
	return out
}

func newCaptureNotifier(c *captureSink) *failurenotifier.Service {
	return failurenotifier.NewService(failurenotifier.Options{
		Logger: slog.Default(),
		Sinks: []failurenotifier.SinkRegistration{
			{Name: "test", Sink: c.sink()},
		},
	})
}

func TestNewQueueService(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSyncQueueRepository(ctrl)
	notifierOpts := domainqueue.NotifierOptions{
		WaitWindow: 2 * time.Second,
		Backoff:    50 * time.Millisecond,
	}

	t.Run("success", func(t *testing.T) {
		notifier := &stubQueueNotifier{}
		svc, err := NewQueueService(QueueServiceOptions{
			Repo:            repo,
			DefaultLease:    30 * time.Second,
			Notifier:        notifier,
			NotifierOptions: notifierOpts,
		})
		require.NoError(t, err)
		assert.NotNil(t, svc)
		assert.Equal(t, repo, svc.repo)
		assert.Equal(t, 30*time.Second, svc.leasePolicy.Default())
		assert.Equal(t, notifier, svc.notifier)
	})

	t.Run("success with logger", func(t *testing.T) {
		logger := slog.Default()
		notifier := &stubQueueNotifier{}
		svc, err := NewQueueService(QueueServiceOptions{
			Repo:            repo,
			DefaultLease:    30 * time.Second,
			Logger:          logger,
			Notifier:        notifier,
			NotifierOptions: notifierOpts,
		})
		require.NoError(t, err)
		assert.NotNil(t, svc)
		assert.NotNil(t, svc.logger)
	})

	t.Run("missing repo", func(t *testing.T) {
		svc, err := NewQueueService(QueueServiceOptions{
			DefaultLease: 30 * time.Second,
		})
		require.Error(t, err)
		assert.Nil(t, svc)
		assert.Contains(t, err.Error(), "SyncQueueRepository is required")
	})

	t.Run("invalid default lease", func(t *testing.T) {
		svc, err := NewQueueService(QueueServiceOptions{
			Repo:         repo,
			DefaultLease: 0,
			Notifier:     &stubQueueNotifier{},
		})
		require.Error(t, err)
		assert.Nil(t, svc)
		assert.Contains(t, err.Error(), "DefaultLease must be positive")
	})
}

func TestMustNewQueueService(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSyncQueueRepository(ctrl)

	t.Run("success", func(t *testing.T) {
		svc := MustNewQueueService(QueueServiceOptions{
			Repo:         repo,
			DefaultLease: 30 * time.Second,
			Notifier:     &stubQueueNotifier{},
		})
		assert.NotNil(t, svc)
	})

	t.Run("panic on error", func(t *testing.T) {
		assert.Panics(t, func() {
			MustNewQueueService(QueueServiceOptions{
				DefaultLease:    30 * time.Second,
				NotifierOptions: domainqueue.NotifierOptions{WaitWindow: time.Second},
				// Missing repo
			})
		})
	})
}

func TestQueueService_Enqueue(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSyncQueueRepository(ctrl)
	svc, _ := newTestQueueService(t, repo)

	req := &model.EnqueueRequest{
		EntityType:       model.EntityTypeJudge,
		EntityExternalID: "judge-9000",
		Operation:        model.OperationUpdate,
	}

	expectedJob := &model.SyncJob{
		ID:               "job-123",
		EntityType:       model.EntityTypeJudge,
		EntityExternalID: "judge-9000",
		Status:           model.JobStatusPending,
	}

	repo.EXPECT().Enqueue(gomock.Any(), req).Return(expectedJob, nil)

	job, err := svc.Enqueue(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, expectedJob, job)
}

func TestQueueService_ReserveNext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSyncQueueRepository(ctrl)
	svc, _ := newTestQueueService(t, repo)

	expectedJob := &model.SyncJob{
		ID:         "job-123",
		EntityType: model.EntityTypeCourt,
		Status:     model.JobStatusRunning,
	}

	t.Run("with custom lease", func(t *testing.T) {
		lease := 60 * time.Second
		repo.EXPECT().ReserveNext(gomock.Any(), model.EntityTypeCourt, 60).Return(expectedJob, nil)

		job, err := svc.ReserveNext(context.Background(), model.EntityTypeCourt, lease)
		require.NoError(t, err)
		assert.Equal(t, expectedJob, job)
	})

	t.Run("with default lease", func(t *testing.T) {
		repo.EXPECT().ReserveNext(gomock.Any(), model.EntityTypeCourt, 30).Return(expectedJob, nil)

		job, err := svc.ReserveNext(context.Background(), model.EntityTypeCourt, 0)
		require.NoError(t, err)
		assert.Equal(t, expectedJob, job)
	})

	t.Run("with sub-second lease clamped to 1 second", func(t *testing.T) {
		repo.EXPECT().ReserveNext(gomock.Any(), model.EntityTypeCourt, 1).Return(expectedJob, nil)

		job, err := svc.ReserveNext(context.Background(), model.EntityTypeCourt, 500*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, expectedJob, job)
	})

	t.Run("empty queue surfaces sentinel unwrapped", func(t *testing.T) {
		repo.EXPECT().
			ReserveNext(gomock.Any(), model.EntityTypeCourt, 30).
			Return(nil, model.ErrNoJobsAvailable)

		job, err := svc.ReserveNext(context.Background(), model.EntityTypeCourt, 0)
		require.ErrorIs(t, err, model.ErrNoJobsAvailable)
		assert.Nil(t, job)
	})
}

func TestQueueService_Heartbeat(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSyncQueueRepository(ctrl)
	svc, _ := newTestQueueService(t, repo)

	t.Run("with custom extend", func(t *testing.T) {
		extend := 60 * time.Second
		repo.EXPECT().Heartbeat(gomock.Any(), "job-123", 60).Return(true, nil)

		updated, err := svc.Heartbeat(context.Background(), "job-123", extend)
		require.NoError(t, err)
		assert.True(t, updated)
	})

	t.Run("with default extend", func(t *testing.T) {
		repo.EXPECT().Heartbeat(gomock.Any(), "job-123", 30).Return(true, nil)

		updated, err := svc.Heartbeat(context.Background(), "job-123", 0)
		require.NoError(t, err)
		assert.True(t, updated)
	})

	t.Run("with sub-second extend clamped to 1 second", func(t *testing.T) {
		repo.EXPECT().Heartbeat(gomock.Any(), "job-123", 1).Return(true, nil)

		updated, err := svc.Heartbeat(context.Background(), "job-123", 750*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, updated)
	})
}

func TestQueueService_Complete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSyncQueueRepository(ctrl)
	svc, _ := newTestQueueService(t, repo)

	repo.EXPECT().Complete(gomock.Any(), "job-123").Return(true, nil)

	completed, err := svc.Complete(context.Background(), "job-123")
	require.NoError(t, err)
	assert.True(t, completed)
}

func TestQueueService_Fail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSyncQueueRepository(ctrl)
	svc, _ := newTestQueueService(t, repo)

	t.Run("success", func(t *testing.T) {
		repo.EXPECT().Fail(gomock.Any(), "job-123", "test error").Return(true, nil)

		failed, err := svc.Fail(context.Background(), "job-123", "test error")
		require.NoError(t, err)
		assert.True(t, failed)
	})

	t.Run("empty error message", func(t *testing.T) {
		failed, err := svc.Fail(context.Background(), "job-123", "")
		require.Error(t, err)
		assert.False(t, failed)
		assert.Contains(t, err.Error(), "error message required")
	})
}

func TestQueueService_FailWithDetails_NotifiesOnDeadLetter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSyncQueueRepository(ctrl)

	// The attempt being recorded is the third of three, so this failure
	// dead-letters the job.
	job := &model.SyncJob{
		ID:               "job-123",
		EntityType:       model.EntityTypeDecision,
		EntityExternalID: "op-5521",
		Operation:        model.OperationUpdate,
		Status:           model.JobStatusRunning,
		AttemptCount:     2,
		MaxAttempts:      3,
		Priority:         10,
	}

	repo.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
	repo.EXPECT().Fail(gomock.Any(), job.ID, "boom").Return(true, nil)

	capture := &captureSink{}
	svc := MustNewQueueService(QueueServiceOptions{
		Repo:            repo,
		DefaultLease:    30 * time.Second,
		FailureNotifier: newCaptureNotifier(capture),
		Notifier:        &stubQueueNotifier{},
	})

	details := JobFailureDetails{
		Phase:      "details",
		ErrorClass: "upstream_http",
		Metadata:   map[string]string{"component": "sync_runner"},
	}

	failed, err := svc.FailWithDetails(context.Background(), job.ID, "boom", details)
	require.NoError(t, err)
	require.True(t, failed)

	captured := capture.captured()
	require.Len(t, captured, 1)
	evt := captured[0]

	assert.Equal(t, job.ID, evt.JobID)
	assert.Equal(t, string(job.EntityType), evt.JobType)
	assert.Equal(t, string(job.EntityType), evt.EntityType)
	assert.Equal(t, job.EntityExternalID, evt.ExternalID)
	assert.Equal(t, "details", evt.Phase)
	assert.Equal(t, 3, evt.AttemptCount)
	assert.Equal(t, "boom", evt.Error)
	assert.Equal(t, "upstream_http", evt.ErrorClass)
	assert.Equal(t, notify.SeverityCritical, evt.Severity)
	assert.False(t, evt.OccurredAt.IsZero())
	assert.Equal(t, "sync_runner", evt.Metadata["component"])
	assert.Equal(t, "update", evt.Metadata["operation"])
	assert.Equal(t, "10", evt.Metadata["priority"])
	assert.Equal(t, "3", evt.Metadata["max_attempts"])
	assert.Equal(t, "upstream_http", evt.Metadata["error_class"])
}

func TestQueueService_FailWithDetails_SkipsUntilAttemptsExhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSyncQueueRepository(ctrl)

	job := &model.SyncJob{
		ID:           "job-123",
		EntityType:   model.EntityTypeJudge,
		Status:       model.JobStatusRunning,
		AttemptCount: 0,
		MaxAttempts:  3,
	}

	repo.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
	repo.EXPECT().Fail(gomock.Any(), job.ID, "boom").Return(true, nil)

	capture := &captureSink{}
	svc := MustNewQueueService(QueueServiceOptions{
		Repo:            repo,
		DefaultLease:    30 * time.Second,
		FailureNotifier: newCaptureNotifier(capture),
		Notifier:        &stubQueueNotifier{},
	})

	failed, err := svc.FailWithDetails(context.Background(), job.ID, "boom", JobFailureDetails{})
	require.NoError(t, err)
	require.True(t, failed)
	assert.Empty(t, capture.captured(), "notification should be deferred until attempts are exhausted")
}

func TestQueueService_FailWithDetails_SkipsNotifyWhenLoadFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSyncQueueRepository(ctrl)

	repo.EXPECT().GetByID(gomock.Any(), "job-123").Return(nil, errors.New("connection reset"))
	repo.EXPECT().Fail(gomock.Any(), "job-123", "boom").Return(true, nil)

	capture := &captureSink{}
	svc := MustNewQueueService(QueueServiceOptions{
		Repo:            repo,
		DefaultLease:    30 * time.Second,
		FailureNotifier: newCaptureNotifier(capture),
		Notifier:        &stubQueueNotifier{},
	})

	failed, err := svc.FailWithDetails(context.Background(), "job-123", "boom", JobFailureDetails{})
	require.NoError(t, err)
	require.True(t, failed)
	assert.Empty(t, capture.captured())
}

func TestQueueService_FailPermanently_AlwaysNotifies(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSyncQueueRepository(ctrl)

	// First attempt, but the error is not retryable.
	job := &model.SyncJob{
		ID:               "job-123",
		EntityType:       model.EntityTypeCourt,
		EntityExternalID: "court-ca9",
		Operation:        model.OperationCreate,
		Status:           model.JobStatusRunning,
		AttemptCount:     0,
		MaxAttempts:      5,
	}

	repo.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
	repo.EXPECT().FailPermanently(gomock.Any(), job.ID, "schema mismatch").Return(true, nil)

	capture := &captureSink{}
	svc := MustNewQueueService(QueueServiceOptions{
		Repo:            repo,
		DefaultLease:    30 * time.Second,
		FailureNotifier: newCaptureNotifier(capture),
		Notifier:        &stubQueueNotifier{},
	})

	failed, err := svc.FailPermanently(context.Background(), job.ID, "schema mismatch", JobFailureDetails{
		ErrorClass: "payload_invalid",
	})
	require.NoError(t, err)
	require.True(t, failed)

	captured := capture.captured()
	require.Len(t, captured, 1)
	assert.Equal(t, "court-ca9", captured[0].ExternalID)
	assert.Equal(t, "payload_invalid", captured[0].ErrorClass)
	assert.Equal(t, 1, captured[0].AttemptCount)
}

func TestQueueService_Cancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSyncQueueRepository(ctrl)
	svc, _ := newTestQueueService(t, repo)

	t.Run("pending job cancelled", func(t *testing.T) {
		repo.EXPECT().Cancel(gomock.Any(), "job-123").Return(true, nil)

		cancelled, err := svc.Cancel(context.Background(), "job-123")
		require.NoError(t, err)
		assert.True(t, cancelled)
	})

	t.Run("running job not cancellable", func(t *testing.T) {
		repo.EXPECT().Cancel(gomock.Any(), "job-456").Return(false, nil)

		cancelled, err := svc.Cancel(context.Background(), "job-456")
		require.NoError(t, err)
		assert.False(t, cancelled)
	})
}

func TestQueueService_GetByID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSyncQueueRepository(ctrl)
	svc, _ := newTestQueueService(t, repo)

	expectedJob := &model.SyncJob{
		ID:         "job-123",
		EntityType: model.EntityTypeJudge,
		Status:     model.JobStatusCompleted,
	}

	repo.EXPECT().GetByID(gomock.Any(), "job-123").Return(expectedJob, nil)

	job, err := svc.GetByID(context.Background(), "job-123")
	require.NoError(t, err)
	assert.Equal(t, expectedJob, job)
}

func TestQueueService_Stats(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSyncQueueRepository(ctrl)
	svc, _ := newTestQueueService(t, repo)

	expectedStats := &model.QueueStats{
		Pending:   5,
		Running:   2,
		Completed: 10,
		Failed:    1,
	}

	repo.EXPECT().Stats(gomock.Any(), model.EntityTypeJudge).Return(expectedStats, nil)

	stats, err := svc.Stats(context.Background(), model.EntityTypeJudge)
	require.NoError(t, err)
	assert.Equal(t, expectedStats, stats)
}

func TestQueueService_GetStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSyncQueueRepository(ctrl)
	svc, _ := newTestQueueService(t, repo)

	completedAt := time.Now()
	job := &model.SyncJob{
		ID:          "job-123",
		Status:      model.JobStatusCompleted,
		CompletedAt: &completedAt,
		LastError:   nil,
	}

	repo.EXPECT().GetByID(gomock.Any(), "job-123").Return(job, nil)

	status, err := svc.GetStatus(context.Background(), "job-123")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, status.Status)
	assert.Equal(t, &completedAt, status.CompletedAt)
	assert.Nil(t, status.LastError)
}

func TestQueueService_Subscribe(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSyncQueueRepository(ctrl)
	n := &stubQueueNotifier{
		subscribeFn: func(model.EntityType) (func(), <-chan struct{}) {
			ch := make(chan struct{})
			return func() {
				select {
				case <-ch:
				default:
				}
				close(ch)
			}, ch
		},
	}
	svc := MustNewQueueService(QueueServiceOptions{
		Repo:         repo,
		DefaultLease: 30 * time.Second,
		Notifier:     n,
	})

	unsub, ch := svc.Subscribe(model.EntityTypeDecision)
	require.NotNil(t, unsub)
	require.NotNil(t, ch)
	require.Len(t, n.subscribeCalls, 1)
	assert.Equal(t, model.EntityTypeDecision, n.subscribeCalls[0])

	unsub()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed on unsubscribe")
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected channel to close after unsubscribe")
	}
}

func TestQueueService_StopAllListeners(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSyncQueueRepository(ctrl)
	n := &stubQueueNotifier{
		subscribeFn: func(model.EntityType) (func(), <-chan struct{}) {
			return func() {}, make(chan struct{})
		},
	}
	svc := MustNewQueueService(QueueServiceOptions{
		Repo:         repo,
		DefaultLease: 30 * time.Second,
		Notifier:     n,
	})

	svc.StopAllListeners()
	assert.True(t, n.stopCalled)
}

func TestQueueService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSyncQueueRepository(ctrl)
	svc, _ := newTestQueueService(t, repo)

	t.Run("pagination normalization", func(t *testing.T) {
		opts := &model.JobListOptions{
			Limit:  2000, // Should be clamped to 1000
			Offset: -5,   // Should be normalized to 0
		}

		expectedOpts := &model.JobListOptions{
			Limit:  1000,
			Offset: 0,
		}

		expectedJobs := []*model.SyncJob{
			{ID: "job-1", EntityType: model.EntityTypeCourt},
		}

		repo.EXPECT().List(gomock.Any(), expectedOpts).Return(expectedJobs, nil)

		jobs, err := svc.List(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, expectedJobs, jobs)
	})

	t.Run("nil options default", func(t *testing.T) {
		expectedOpts := &model.JobListOptions{
			Limit:  50,
			Offset: 0,
		}

		repo.EXPECT().List(gomock.Any(), expectedOpts).Return(nil, nil)

		jobs, err := svc.List(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, jobs)
	})

	t.Run("repository error", func(t *testing.T) {
		opts := &model.JobListOptions{Limit: 50, Offset: 0}
		expectedErr := errors.New("database error")

		repo.EXPECT().List(gomock.Any(), opts).Return(nil, expectedErr)

		jobs, err := svc.List(context.Background(), opts)
		require.Error(t, err)
		assert.Nil(t, jobs)
		assert.Contains(t, err.Error(), "list jobs")
	})
}

func TestQueueService_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSyncQueueRepository(ctrl)
	svc, _ := newTestQueueService(t, repo)

	t.Run("success", func(t *testing.T) {
		jobID := "job-123"
		repo.EXPECT().Delete(gomock.Any(), jobID).Return(nil)

		err := svc.Delete(context.Background(), jobID)
		require.NoError(t, err)
	})

	t.Run("empty job id", func(t *testing.T) {
		err := svc.Delete(context.Background(), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "job id is required")
	})

	t.Run("repository error", func(t *testing.T) {
		jobID := "job-456"
		expectedErr := errors.New("job not found")
		repo.EXPECT().Delete(gomock.Any(), jobID).Return(expectedErr)

		err := svc.Delete(context.Background(), jobID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "delete job")
	})
}
