package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/openbench/jurisync/internal/core"
	"github.com/openbench/jurisync/internal/data"
	"github.com/openbench/jurisync/internal/domain/model"
	"github.com/openbench/jurisync/internal/domain/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testSweepID     = "sweep-1"
	testPayloadJSON = `{"external_id": "ca9"}`
)

// Mock implementations for testing.
type mockSweepRepo struct {
	mock.Mock
}

func (m *mockSweepRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]schedule.Sweep, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]schedule.Sweep), args.Error(1)
}

func (m *mockSweepRepo) FindDueTx(
	ctx context.Context,
	tx *sql.Tx,
	p schedule.FindDueParams,
) ([]schedule.Sweep, error) {
	args := m.Called(ctx, tx, p)
	return args.Get(0).([]schedule.Sweep), args.Error(1)
}

func (m *mockSweepRepo) MarkQueued(ctx context.Context, p schedule.MarkQueuedParams) (bool, error) {
	args := m.Called(ctx, p)
	return args.Bool(0), args.Error(1)
}

func (m *mockSweepRepo) MarkQueuedTx(ctx context.Context, tx *sql.Tx, p schedule.MarkQueuedParams) (bool, error) {
	args := m.Called(ctx, tx, p)
	return args.Bool(0), args.Error(1)
}

func (m *mockSweepRepo) TryWithSweepLock(
	ctx context.Context,
	sweepName string,
	fn func(context.Context, *sql.Tx) error,
) (bool, error) {
	args := m.Called(ctx, sweepName, fn)
	if args.Bool(0) {
		// Simulate successful lock acquisition by calling the function
		return true, fn(ctx, nil) // Pass nil tx for unit tests
	}
	return false, args.Error(1)
}

func (m *mockSweepRepo) UpdateActiveFireKeyTx(
	ctx context.Context,
	tx *sql.Tx,
	p schedule.UpdateActiveFireKeyParams,
) error {
	args := m.Called(ctx, tx, p)
	return args.Error(0)
}

type mockQueueRepo struct {
	mock.Mock
}

func (m *mockQueueRepo) Enqueue(ctx context.Context, req *model.EnqueueRequest) (*model.SyncJob, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SyncJob), args.Error(1)
}

func (m *mockQueueRepo) EnqueueInTx(
	ctx context.Context,
	tx *sql.Tx,
	req *model.EnqueueRequest,
) (*model.SyncJob, error) {
	args := m.Called(ctx, tx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SyncJob), args.Error(1)
}

func (m *mockQueueRepo) GetByID(ctx context.Context, id string) (*model.SyncJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SyncJob), args.Error(1)
}

func (m *mockQueueRepo) ReserveNext(
	ctx context.Context,
	entityType model.EntityType,
	leaseSeconds int,
) (*model.SyncJob, error) {
	args := m.Called(ctx, entityType, leaseSeconds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SyncJob), args.Error(1)
}

func (m *mockQueueRepo) WaitForNotification(ctx context.Context, entityType model.EntityType) error {
	args := m.Called(ctx, entityType)
	return args.Error(0)
}

func (m *mockQueueRepo) Heartbeat(ctx context.Context, jobID string, leaseSeconds int) (bool, error) {
	args := m.Called(ctx, jobID, leaseSeconds)
	return args.Bool(0), args.Error(1)
}

func (m *mockQueueRepo) Complete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockQueueRepo) Fail(ctx context.Context, id, errMsg string) (bool, error) {
	args := m.Called(ctx, id, errMsg)
	return args.Bool(0), args.Error(1)
}

func (m *mockQueueRepo) FailPermanently(ctx context.Context, id, errMsg string) (bool, error) {
	args := m.Called(ctx, id, errMsg)
	return args.Bool(0), args.Error(1)
}

func (m *mockQueueRepo) Cancel(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockQueueRepo) Stats(ctx context.Context, entityType model.EntityType) (*model.QueueStats, error) {
	args := m.Called(ctx, entityType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QueueStats), args.Error(1)
}

func (m *mockQueueRepo) List(ctx context.Context, opts *model.JobListOptions) ([]*model.SyncJob, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.SyncJob), args.Error(1)
}

func (m *mockQueueRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockJobIntrospector struct {
	mock.Mock
}

func (m *mockJobIntrospector) JobStatesBySweep(
	ctx context.Context,
	sweepName string,
	now time.Time,
) (schedule.OverrunStateMask, error) {
	args := m.Called(ctx, sweepName, now)
	mask, _ := args.Get(0).(schedule.OverrunStateMask)
	return mask, args.Error(1)
}

func TestSchedulerService_Tick_NoSweeps(t *testing.T) {
	mockRepo := &mockSweepRepo{}
	mockQueue := &mockQueueRepo{}
	mockJobq := &mockJobIntrospector{}
	timeProvider := data.NewFixedTimeProvider(time.Now())

	scheduler := NewSchedulerService(SchedulerServiceOptions{
		Repo:            mockRepo,
		Queue:           mockQueue,
		JobIntrospector: mockJobq,
		TimeProvider:    timeProvider,
	})

	ctx := context.Background()
	now := timeProvider.Now()

	// Mock FindDue to return empty slice
	mockRepo.On("FindDue", ctx, now, 25).Return([]schedule.Sweep{}, nil)

	processed, err := scheduler.Tick(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 0, processed)
	mockRepo.AssertExpectations(t)
}

func TestSchedulerService_Tick_SingleSweep_QueuePolicy(t *testing.T) {
	mockRepo := &mockSweepRepo{}
	mockQueue := &mockQueueRepo{}
	mockJobq := &mockJobIntrospector{}
	timeProvider := data.NewFixedTimeProvider(time.Now())

	cfg := core.DefaultSchedulerConfig()
	cfg.Strategy.Overrun = schedule.OverrunPolicyQueue

	scheduler := NewSchedulerService(SchedulerServiceOptions{
		Repo:            mockRepo,
		Queue:           mockQueue,
		JobIntrospector: mockJobq,
		Config:          &cfg,
		TimeProvider:    timeProvider,
	})

	ctx := context.Background()
	now := timeProvider.Now()

	sweep := schedule.Sweep{
		ID:         testSweepID,
		Name:       "court:ca9",
		EntityType: model.EntityTypeCourt,
		Payload:    json.RawMessage(testPayloadJSON),
		Interval:   5 * time.Minute,
	}

	// Mock FindDue to return one sweep
	mockRepo.On("FindDue", ctx, now, 25).Return([]schedule.Sweep{sweep}, nil)

	// Mock TryWithSweepLock to succeed
	mockRepo.On("TryWithSweepLock", ctx, "court:ca9", mock.Anything).Return(true, nil)

	// Mock job creation
	expectedJob := &model.SyncJob{ID: "job-1", EntityType: model.EntityTypeCourt}
	mockQueue.On("Enqueue", ctx, mock.MatchedBy(func(req *model.EnqueueRequest) bool {
		return req.EntityType == model.EntityTypeCourt &&
			req.EntityExternalID == "ca9" &&
			req.Priority == 0 &&
			req.MaxAttempts == 3 &&
			string(req.Payload) == testPayloadJSON
	})).Return(expectedJob, nil)

	// Mock MarkQueuedTx for Queue policy (called after enqueue)
	mockRepo.On("MarkQueuedTx", ctx, (*sql.Tx)(nil), mock.MatchedBy(func(p schedule.MarkQueuedParams) bool {
		return p.ID == testSweepID && p.Now.Equal(now) && p.ActiveFireKey != nil && *p.ActiveFireKey != "" &&
			p.ActiveFireKeySetAt != nil
	})).Return(true, nil)

	processed, err := scheduler.Tick(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	mockRepo.AssertExpectations(t)
	mockQueue.AssertExpectations(t)
}

func TestSchedulerService_Tick_SingleSweep_SkipPolicy_NoOutstandingJobs(t *testing.T) {
	mockRepo := &mockSweepRepo{}
	mockQueue := &mockQueueRepo{}
	mockJobq := &mockJobIntrospector{}
	timeProvider := data.NewFixedTimeProvider(time.Now())

	cfg := core.DefaultSchedulerConfig()
	cfg.Strategy.Overrun = schedule.OverrunPolicySkip

	scheduler := NewSchedulerService(SchedulerServiceOptions{
		Repo:            mockRepo,
		Queue:           mockQueue,
		JobIntrospector: mockJobq,
		Config:          &cfg,
		TimeProvider:    timeProvider,
	})

	ctx := context.Background()
	now := timeProvider.Now()

	sweep := schedule.Sweep{
		ID:         testSweepID,
		Name:       "court:ca9",
		EntityType: model.EntityTypeCourt,
		Payload:    json.RawMessage(testPayloadJSON),
		Interval:   5 * time.Minute,
	}

	// Mock FindDue to return one sweep
	mockRepo.On("FindDue", ctx, now, 25).Return([]schedule.Sweep{sweep}, nil)

	// Mock TryWithSweepLock to succeed
	mockRepo.On("TryWithSweepLock", ctx, "court:ca9", mock.Anything).Return(true, nil)

	// Mock no outstanding job states
	mockJobq.On("JobStatesBySweep", ctx, "court:ca9", now).Return(schedule.OverrunStateMask(0), nil)

	// Mock MarkQueuedTx for Skip policy (called before enqueue)
	mockRepo.On("MarkQueuedTx", ctx, (*sql.Tx)(nil), mock.MatchedBy(func(p schedule.MarkQueuedParams) bool {
		return p.ID == testSweepID && p.Now.Equal(now)
	})).Return(true, nil)
	mockRepo.On("UpdateActiveFireKeyTx", ctx, (*sql.Tx)(nil), mock.MatchedBy(func(p schedule.UpdateActiveFireKeyParams) bool {
		return p.ID == testSweepID && p.FireKey != nil && *p.FireKey != ""
	})).
		Return(nil)

	// Mock job creation
	expectedJob := &model.SyncJob{ID: "job-1", EntityType: model.EntityTypeCourt}
	mockQueue.On("Enqueue", ctx, mock.AnythingOfType("*model.EnqueueRequest")).Return(expectedJob, nil)

	processed, err := scheduler.Tick(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	mockRepo.AssertExpectations(t)
	mockQueue.AssertExpectations(t)
	mockJobq.AssertExpectations(t)
}

func TestSchedulerService_Tick_SkipPolicy_SetActiveFireKeyError(t *testing.T) {
	mockRepo := &mockSweepRepo{}
	mockQueue := &mockQueueRepo{}
	mockJobq := &mockJobIntrospector{}
	timeProvider := data.NewFixedTimeProvider(time.Now())

	cfg := core.DefaultSchedulerConfig()
	cfg.Strategy.Overrun = schedule.OverrunPolicySkip

	scheduler := NewSchedulerService(SchedulerServiceOptions{
		Repo:            mockRepo,
		Queue:           mockQueue,
		JobIntrospector: mockJobq,
		Config:          &cfg,
		TimeProvider:    timeProvider,
	})

	ctx := context.Background()
	now := timeProvider.Now()

	sweep := schedule.Sweep{
		ID:         testSweepID,
		Name:       "court:ca9",
		EntityType: model.EntityTypeCourt,
		Payload:    json.RawMessage(testPayloadJSON),
		Interval:   5 * time.Minute,
	}

	mockRepo.On("FindDue", ctx, now, 25).Return([]schedule.Sweep{sweep}, nil)
	mockRepo.On("TryWithSweepLock", ctx, "court:ca9", mock.Anything).Return(true, nil)
	mockJobq.On("JobStatesBySweep", ctx, "court:ca9", now).Return(schedule.OverrunStateMask(0), nil)
	mockRepo.On("MarkQueuedTx", ctx, (*sql.Tx)(nil), mock.MatchedBy(func(p schedule.MarkQueuedParams) bool {
		return p.ID == testSweepID && p.Now.Equal(now)
	})).Return(true, nil)
	mockQueue.On("Enqueue", ctx, mock.AnythingOfType("*model.EnqueueRequest")).
		Return(&model.SyncJob{ID: "job-1"}, nil)
	mockRepo.On("UpdateActiveFireKeyTx", ctx, (*sql.Tx)(nil), mock.AnythingOfType("schedule.UpdateActiveFireKeyParams")).
		Return(errors.New("set key failed"))

	processed, err := scheduler.Tick(ctx, now)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "set active fire key")
	assert.Equal(t, 0, processed)
	mockRepo.AssertExpectations(t)
	mockQueue.AssertExpectations(t)
	mockJobq.AssertExpectations(t)
}

func TestSchedulerService_Tick_SingleSweep_SkipPolicy_RunningJobExists(t *testing.T) {
	mockRepo := &mockSweepRepo{}
	mockQueue := &mockQueueRepo{}
	mockJobq := &mockJobIntrospector{}
	timeProvider := data.NewFixedTimeProvider(time.Now())

	cfg := core.DefaultSchedulerConfig()
	cfg.Strategy.Overrun = schedule.OverrunPolicySkip

	scheduler := NewSchedulerService(SchedulerServiceOptions{
		Repo:            mockRepo,
		Queue:           mockQueue,
		JobIntrospector: mockJobq,
		Config:          &cfg,
		TimeProvider:    timeProvider,
	})

	ctx := context.Background()
	now := timeProvider.Now()

	sweep := schedule.Sweep{
		ID:         testSweepID,
		Name:       "court:ca9",
		EntityType: model.EntityTypeCourt,
		Payload:    json.RawMessage(testPayloadJSON),
		Interval:   5 * time.Minute,
	}

	// Mock FindDue to return one sweep
	mockRepo.On("FindDue", ctx, now, 25).Return([]schedule.Sweep{sweep}, nil)

	// Mock TryWithSweepLock to succeed
	mockRepo.On("TryWithSweepLock", ctx, "court:ca9", mock.Anything).Return(true, nil)

	// Mock running job exists - should skip enqueue
	mockJobq.On("JobStatesBySweep", ctx, "court:ca9", now).Return(schedule.OverrunStateRunning, nil)

	// Mock MarkQueuedTx for Skip policy (called before enqueue check)
	mockRepo.On("MarkQueuedTx", ctx, (*sql.Tx)(nil), mock.MatchedBy(func(p schedule.MarkQueuedParams) bool {
		return p.ID == testSweepID && p.Now.Equal(now)
	})).Return(true, nil)

	// Job creation should NOT be called since we skip

	processed, err := scheduler.Tick(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	mockRepo.AssertExpectations(t)
	mockQueue.AssertExpectations(t)
	mockJobq.AssertExpectations(t)
}

func TestSchedulerService_Tick_SkipPolicy_PendingStateBlocks(t *testing.T) {
	mockRepo := &mockSweepRepo{}
	mockQueue := &mockQueueRepo{}
	mockJobq := &mockJobIntrospector{}
	timeProvider := data.NewFixedTimeProvider(time.Now())

	cfg := core.DefaultSchedulerConfig()
	cfg.Strategy.Overrun = schedule.OverrunPolicySkip

	scheduler := NewSchedulerService(SchedulerServiceOptions{
		Repo:            mockRepo,
		Queue:           mockQueue,
		JobIntrospector: mockJobq,
		Config:          &cfg,
		TimeProvider:    timeProvider,
	})

	ctx := context.Background()
	now := timeProvider.Now()

	stateMask := schedule.OverrunStateRunning | schedule.OverrunStatePending | schedule.OverrunStateRetrying
	sweep := schedule.Sweep{
		ID:            testSweepID,
		Name:          "court:ca9",
		EntityType:    model.EntityTypeCourt,
		Payload:       json.RawMessage(testPayloadJSON),
		Interval:      5 * time.Minute,
		OverrunStates: &stateMask,
	}

	mockRepo.On("FindDue", ctx, now, 25).Return([]schedule.Sweep{sweep}, nil)
	mockRepo.On("TryWithSweepLock", ctx, "court:ca9", mock.Anything).Return(true, nil)
	mockJobq.On("JobStatesBySweep", ctx, "court:ca9", now).Return(schedule.OverrunStatePending, nil)
	mockRepo.On("MarkQueuedTx", ctx, (*sql.Tx)(nil), mock.MatchedBy(func(p schedule.MarkQueuedParams) bool {
		return p.ID == testSweepID && p.Now.Equal(now)
	})).Return(true, nil)

	processed, err := scheduler.Tick(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	mockQueue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
	mockJobq.AssertExpectations(t)
}

func TestSchedulerService_Tick_SingleSweep_ReschedulePolicy(t *testing.T) {
	mockRepo := &mockSweepRepo{}
	mockQueue := &mockQueueRepo{}
	mockJobq := &mockJobIntrospector{}
	timeProvider := data.NewFixedTimeProvider(time.Now())

	cfg := core.DefaultSchedulerConfig()
	cfg.Strategy.Overrun = schedule.OverrunPolicyReschedule

	scheduler := NewSchedulerService(SchedulerServiceOptions{
		Repo:            mockRepo,
		Queue:           mockQueue,
		JobIntrospector: mockJobq,
		Config:          &cfg,
		TimeProvider:    timeProvider,
	})

	ctx := context.Background()
	now := timeProvider.Now()

	sweep := schedule.Sweep{
		ID:         testSweepID,
		Name:       "court:ca9",
		EntityType: model.EntityTypeCourt,
		Payload:    json.RawMessage(testPayloadJSON),
		Interval:   5 * time.Minute,
	}

	// Mock FindDue to return one sweep
	mockRepo.On("FindDue", ctx, now, 25).Return([]schedule.Sweep{sweep}, nil)

	// Mock TryWithSweepLock to succeed
	mockRepo.On("TryWithSweepLock", ctx, "court:ca9", mock.Anything).Return(true, nil)

	// Mock MarkQueuedTx for Reschedule policy (called before enqueue check)
	mockRepo.On("MarkQueuedTx", ctx, (*sql.Tx)(nil), mock.MatchedBy(func(p schedule.MarkQueuedParams) bool {
		return p.ID == testSweepID && p.Now.Equal(now)
	})).Return(true, nil)

	// Job creation should NOT be called since we reschedule without enqueue

	processed, err := scheduler.Tick(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	mockRepo.AssertExpectations(t)
	mockQueue.AssertExpectations(t)
}

func TestSchedulerService_Tick_LockNotAcquired(t *testing.T) {
	mockRepo := &mockSweepRepo{}
	mockQueue := &mockQueueRepo{}
	mockJobq := &mockJobIntrospector{}
	timeProvider := data.NewFixedTimeProvider(time.Now())

	scheduler := NewSchedulerService(SchedulerServiceOptions{
		Repo:            mockRepo,
		Queue:           mockQueue,
		JobIntrospector: mockJobq,
		TimeProvider:    timeProvider,
	})

	ctx := context.Background()
	now := timeProvider.Now()

	sweep := schedule.Sweep{
		ID:         testSweepID,
		Name:       "court:ca9",
		EntityType: model.EntityTypeCourt,
		Payload:    json.RawMessage(testPayloadJSON),
		Interval:   5 * time.Minute,
	}

	// Mock FindDue to return one sweep
	mockRepo.On("FindDue", ctx, now, 25).Return([]schedule.Sweep{sweep}, nil)

	// Mock TryWithSweepLock to fail (another replica has the lock)
	mockRepo.On("TryWithSweepLock", ctx, "court:ca9", mock.Anything).Return(false, nil)

	processed, err := scheduler.Tick(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 0, processed) // No sweeps processed since lock not acquired
	mockRepo.AssertExpectations(t)
}

func TestSchedulerService_Tick_FindDueError(t *testing.T) {
	mockRepo := &mockSweepRepo{}
	mockQueue := &mockQueueRepo{}
	mockJobq := &mockJobIntrospector{}
	timeProvider := data.NewFixedTimeProvider(time.Now())

	scheduler := NewSchedulerService(SchedulerServiceOptions{
		Repo:            mockRepo,
		Queue:           mockQueue,
		JobIntrospector: mockJobq,
		TimeProvider:    timeProvider,
	})

	ctx := context.Background()
	now := timeProvider.Now()

	// Mock FindDue to return error
	mockRepo.On("FindDue", ctx, now, 25).Return([]schedule.Sweep{}, errors.New("database error"))

	processed, err := scheduler.Tick(ctx, now)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "find due sweeps")
	assert.Equal(t, 0, processed)
	mockRepo.AssertExpectations(t)
}

func TestSchedulerService_Tick_JobCreationError(t *testing.T) {
	mockRepo := &mockSweepRepo{}
	mockQueue := &mockQueueRepo{}
	mockJobq := &mockJobIntrospector{}
	timeProvider := data.NewFixedTimeProvider(time.Now())

	cfg := core.DefaultSchedulerConfig()
	cfg.Strategy.Overrun = schedule.OverrunPolicyQueue

	scheduler := NewSchedulerService(SchedulerServiceOptions{
		Repo:            mockRepo,
		Queue:           mockQueue,
		JobIntrospector: mockJobq,
		Config:          &cfg,
		TimeProvider:    timeProvider,
	})

	ctx := context.Background()
	now := timeProvider.Now()

	sweep := schedule.Sweep{
		ID:         testSweepID,
		Name:       "court:ca9",
		EntityType: model.EntityTypeCourt,
		Payload:    json.RawMessage(testPayloadJSON),
		Interval:   5 * time.Minute,
	}

	// Mock FindDue to return one sweep
	mockRepo.On("FindDue", ctx, now, 25).Return([]schedule.Sweep{sweep}, nil)

	// Mock TryWithSweepLock to succeed
	mockRepo.On("TryWithSweepLock", ctx, "court:ca9", mock.Anything).Return(true, nil)

	// Mock job creation to fail
	mockQueue.On("Enqueue", ctx, mock.AnythingOfType("*model.EnqueueRequest")).
		Return(nil, errors.New("job creation failed"))

	processed, err := scheduler.Tick(ctx, now)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "process sweep court:ca9")
	assert.Contains(t, err.Error(), "enqueue job")
	assert.Equal(t, 0, processed)
	mockRepo.AssertExpectations(t)
	mockQueue.AssertExpectations(t)
}

func TestSchedulerService_Tick_JobIntrospectorError(t *testing.T) {
	mockRepo := &mockSweepRepo{}
	mockQueue := &mockQueueRepo{}
	mockJobq := &mockJobIntrospector{}
	timeProvider := data.NewFixedTimeProvider(time.Now())

	cfg := core.DefaultSchedulerConfig()
	cfg.Strategy.Overrun = schedule.OverrunPolicySkip

	scheduler := NewSchedulerService(SchedulerServiceOptions{
		Repo:            mockRepo,
		Queue:           mockQueue,
		JobIntrospector: mockJobq,
		Config:          &cfg,
		TimeProvider:    timeProvider,
	})

	ctx := context.Background()
	now := timeProvider.Now()

	sweep := schedule.Sweep{
		ID:         testSweepID,
		Name:       "court:ca9",
		EntityType: model.EntityTypeCourt,
		Payload:    json.RawMessage(testPayloadJSON),
		Interval:   5 * time.Minute,
	}

	// Mock FindDue to return one sweep
	mockRepo.On("FindDue", ctx, now, 25).Return([]schedule.Sweep{sweep}, nil)

	// Mock TryWithSweepLock to succeed
	mockRepo.On("TryWithSweepLock", ctx, "court:ca9", mock.Anything).Return(true, nil)

	// Mock job introspector to fail
	mockJobq.On("JobStatesBySweep", ctx, "court:ca9", now).
		Return(schedule.OverrunStateMask(0), errors.New("introspector error"))

	processed, err := scheduler.Tick(ctx, now)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "process sweep court:ca9")
	assert.Contains(t, err.Error(), "check overrun policy")
	assert.Equal(t, 0, processed)
	mockRepo.AssertExpectations(t)
	mockJobq.AssertExpectations(t)
}

func TestSchedulerService_Tick_MarkQueuedError(t *testing.T) {
	mockRepo := &mockSweepRepo{}
	mockQueue := &mockQueueRepo{}
	mockJobq := &mockJobIntrospector{}
	timeProvider := data.NewFixedTimeProvider(time.Now())

	cfg := core.DefaultSchedulerConfig()
	cfg.Strategy.Overrun = schedule.OverrunPolicySkip

	scheduler := NewSchedulerService(SchedulerServiceOptions{
		Repo:            mockRepo,
		Queue:           mockQueue,
		JobIntrospector: mockJobq,
		Config:          &cfg,
		TimeProvider:    timeProvider,
	})

	ctx := context.Background()
	now := timeProvider.Now()

	sweep := schedule.Sweep{
		ID:         testSweepID,
		Name:       "court:ca9",
		EntityType: model.EntityTypeCourt,
		Payload:    json.RawMessage(testPayloadJSON),
		Interval:   5 * time.Minute,
	}

	// Mock FindDue to return one sweep
	mockRepo.On("FindDue", ctx, now, 25).Return([]schedule.Sweep{sweep}, nil)

	// Mock TryWithSweepLock to succeed
	mockRepo.On("TryWithSweepLock", ctx, "court:ca9", mock.Anything).Return(true, nil)

	// Mock no outstanding job states
	mockJobq.On("JobStatesBySweep", ctx, "court:ca9", now).Return(schedule.OverrunStateMask(0), nil)

	// Mock MarkQueuedTx to fail
	mockRepo.On("MarkQueuedTx", ctx, (*sql.Tx)(nil), mock.MatchedBy(func(p schedule.MarkQueuedParams) bool {
		return p.ID == testSweepID && p.Now.Equal(now)
	})).Return(false, errors.New("mark queued failed"))

	processed, err := scheduler.Tick(ctx, now)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "process sweep court:ca9")
	assert.Contains(t, err.Error(), "mark sweep queued")
	assert.Equal(t, 0, processed)
	mockRepo.AssertExpectations(t)
	mockJobq.AssertExpectations(t)
}

func TestSchedulerService_Tick_DueRecheck_SweepNoLongerDue(t *testing.T) {
	mockRepo := &mockSweepRepo{}
	mockQueue := &mockQueueRepo{}
	mockJobq := &mockJobIntrospector{}

	// Use a fixed time provider that we can control
	fixedTime := time.Now()
	timeProvider := data.NewFixedTimeProvider(fixedTime)

	scheduler := NewSchedulerService(SchedulerServiceOptions{
		Repo:            mockRepo,
		Queue:           mockQueue,
		JobIntrospector: mockJobq,
		TimeProvider:    timeProvider,
	})

	ctx := context.Background()
	now := fixedTime

	// Create a sweep that was due when FindDue was called, but is no longer due
	// when the recheck under the lock happens (simulating a race with another replica)
	sweep := schedule.Sweep{
		ID:           testSweepID,
		Name:         "court:ca9",
		EntityType:   model.EntityTypeCourt,
		Payload:      json.RawMessage(testPayloadJSON),
		Interval:     5 * time.Minute,
		LastQueuedAt: &fixedTime, // Just queued, so not due anymore
	}

	// Mock FindDue to return the sweep (as if it was due at query time)
	mockRepo.On("FindDue", ctx, now, 25).Return([]schedule.Sweep{sweep}, nil)

	// Mock TryWithSweepLock to succeed
	mockRepo.On("TryWithSweepLock", ctx, "court:ca9", mock.Anything).Return(true, nil)

	// No other mocks should be called since the recheck should skip the sweep

	processed, err := scheduler.Tick(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 0, processed) // No-op due to recheck; no state change performed
	mockRepo.AssertExpectations(t)
	mockQueue.AssertExpectations(t)
	mockJobq.AssertExpectations(t)
}

func TestSchedulerService_Tick_TimeBoundaryEdgeCase(t *testing.T) {
	mockRepo := &mockSweepRepo{}
	mockQueue := &mockQueueRepo{}
	mockJobq := &mockJobIntrospector{}

	// Test with a sweep that becomes due exactly at the boundary
	baseTime := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	timeProvider := data.NewFixedTimeProvider(baseTime)

	cfg := core.DefaultSchedulerConfig()
	cfg.Strategy.Overrun = schedule.OverrunPolicyQueue

	scheduler := NewSchedulerService(SchedulerServiceOptions{
		Repo:            mockRepo,
		Queue:           mockQueue,
		JobIntrospector: mockJobq,
		Config:          &cfg,
		TimeProvider:    timeProvider,
	})

	ctx := context.Background()
	now := baseTime

	// Sweep was last queued exactly 5 minutes ago, with 5-minute interval
	lastQueued := baseTime.Add(-5 * time.Minute)
	sweep := schedule.Sweep{
		ID:           testSweepID,
		Name:         "boundary-sweep",
		EntityType:   model.EntityTypeCourt,
		Payload:      json.RawMessage(testPayloadJSON),
		Interval:     5 * time.Minute,
		LastQueuedAt: &lastQueued,
	}

	// Mock FindDue to return the sweep
	mockRepo.On("FindDue", ctx, now, 25).Return([]schedule.Sweep{sweep}, nil)

	// Mock TryWithSweepLock to succeed
	mockRepo.On("TryWithSweepLock", ctx, "boundary-sweep", mock.Anything).Return(true, nil)

	// Mock job creation
	expectedJob := &model.SyncJob{ID: "job-1", EntityType: model.EntityTypeCourt}
	mockQueue.On("Enqueue", ctx, mock.AnythingOfType("*model.EnqueueRequest")).Return(expectedJob, nil)

	// Mock MarkQueuedTx for Queue policy
	mockRepo.On("MarkQueuedTx", ctx, (*sql.Tx)(nil), mock.MatchedBy(func(p schedule.MarkQueuedParams) bool {
		return p.ID == testSweepID && p.Now.Equal(now)
	})).Return(true, nil)

	processed, err := scheduler.Tick(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	mockRepo.AssertExpectations(t)
	mockQueue.AssertExpectations(t)
}

func TestSchedulerService_Tick_MultipleSweeps_PartialFailure(t *testing.T) {
	mockRepo := &mockSweepRepo{}
	mockQueue := &mockQueueRepo{}
	mockJobq := &mockJobIntrospector{}
	timeProvider := data.NewFixedTimeProvider(time.Now())

	cfg := core.DefaultSchedulerConfig()
	cfg.Strategy.Overrun = schedule.OverrunPolicyQueue

	scheduler := NewSchedulerService(SchedulerServiceOptions{
		Repo:            mockRepo,
		Queue:           mockQueue,
		JobIntrospector: mockJobq,
		Config:          &cfg,
		TimeProvider:    timeProvider,
	})

	ctx := context.Background()
	now := timeProvider.Now()

	sweep1 := schedule.Sweep{
		ID:         "sweep-1",
		Name:       "success-sweep",
		EntityType: model.EntityTypeCourt,
		Payload:    json.RawMessage(testPayloadJSON),
		Interval:   5 * time.Minute,
	}

	sweep2 := schedule.Sweep{
		ID:         "sweep-2",
		Name:       "failure-sweep",
		EntityType: model.EntityTypeJudge,
		Payload:    json.RawMessage(testPayloadJSON),
		Interval:   5 * time.Minute,
	}

	// Mock FindDue to return both sweeps
	mockRepo.On("FindDue", ctx, now, 25).Return([]schedule.Sweep{sweep1, sweep2}, nil)

	// Mock first sweep to succeed
	mockRepo.On("TryWithSweepLock", ctx, "success-sweep", mock.Anything).Return(true, nil)
	expectedJob := &model.SyncJob{ID: "job-1", EntityType: model.EntityTypeCourt}
	mockQueue.On("Enqueue", ctx, mock.MatchedBy(func(req *model.EnqueueRequest) bool {
		return req.EntityType == model.EntityTypeCourt
	})).Return(expectedJob, nil).Once()
	mockRepo.On("MarkQueuedTx", ctx, (*sql.Tx)(nil), mock.MatchedBy(func(p schedule.MarkQueuedParams) bool {
		return p.ID == "sweep-1"
	})).Return(true, nil)

	// Mock second sweep to fail during job creation
	mockRepo.On("TryWithSweepLock", ctx, "failure-sweep", mock.Anything).Return(true, nil)
	mockQueue.On("Enqueue", ctx, mock.MatchedBy(func(req *model.EnqueueRequest) bool {
		return req.EntityType == model.EntityTypeJudge
	})).Return(nil, errors.New("job creation failed")).Once()

	processed, err := scheduler.Tick(ctx, now)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "process sweep failure-sweep")
	assert.Equal(t, 1, processed) // First sweep was processed successfully
	mockRepo.AssertExpectations(t)
	mockQueue.AssertExpectations(t)
}

func TestSchedulerService_Configuration_Defaults(t *testing.T) {
	mockRepo := &mockSweepRepo{}
	mockQueue := &mockQueueRepo{}
	mockJobq := &mockJobIntrospector{}

	// Test with nil config - should use defaults
	scheduler := NewSchedulerService(SchedulerServiceOptions{
		Repo:            mockRepo,
		Queue:           mockQueue,
		JobIntrospector: mockJobq,
		Config:          nil, // Should use defaults
		TimeProvider:    nil, // Should use real time provider
	})

	// Verify defaults are applied
	assert.Equal(t, 25, scheduler.cfg.BatchSize)
	assert.Equal(t, 0, scheduler.cfg.DefaultPriority)
	assert.Equal(t, 3, scheduler.cfg.MaxAttempts)
	assert.Equal(t, schedule.OverrunPolicySkip, scheduler.cfg.Strategy.Overrun)
	assert.NotNil(t, scheduler.timeProvider)
}

func TestSchedulerService_Configuration_CustomValues(t *testing.T) {
	mockRepo := &mockSweepRepo{}
	mockQueue := &mockQueueRepo{}
	mockJobq := &mockJobIntrospector{}
	timeProvider := data.NewFixedTimeProvider(time.Now())

	// Test with custom config
	cfg := core.SchedulerConfig{
		BatchSize:       50,
		DefaultPriority: 10,
		MaxAttempts:     5,
		Strategy: schedule.StrategyOptions{
			Overrun: schedule.OverrunPolicyQueue,
		},
	}

	scheduler := NewSchedulerService(SchedulerServiceOptions{
		Repo:            mockRepo,
		Queue:           mockQueue,
		JobIntrospector: mockJobq,
		Config:          &cfg,
		TimeProvider:    timeProvider,
	})

	// Verify custom values are used
	assert.Equal(t, 50, scheduler.cfg.BatchSize)
	assert.Equal(t, 10, scheduler.cfg.DefaultPriority)
	assert.Equal(t, 5, scheduler.cfg.MaxAttempts)
	assert.Equal(t, schedule.OverrunPolicyQueue, scheduler.cfg.Strategy.Overrun)
	assert.Equal(t, timeProvider, scheduler.timeProvider)
}

func TestSchedulerService_EnqueueJob_SchedulerMetadata(t *testing.T) {
	mockRepo := &mockSweepRepo{}
	mockQueue := &mockQueueRepo{}
	mockJobq := &mockJobIntrospector{}
	timeProvider := data.NewFixedTimeProvider(time.Now())

	scheduler := NewSchedulerService(SchedulerServiceOptions{
		Repo:            mockRepo,
		Queue:           mockQueue,
		JobIntrospector: mockJobq,
		TimeProvider:    timeProvider,
	})

	ctx := context.Background()

	sweep := schedule.Sweep{
		ID:         testSweepID,
		Name:       "court:ca9",
		EntityType: model.EntityTypeCourt,
		Payload:    json.RawMessage(testPayloadJSON),
		Interval:   5 * time.Minute,
	}

	fireKey := schedule.ComputeFireKey(sweep, timeProvider.Now())

	// Mock job creation with expected scheduler metadata and entity target
	mockQueue.On("Enqueue", ctx, mock.MatchedBy(func(req *model.EnqueueRequest) bool {
		return req.EntityExternalID == "ca9" &&
			req.Operation == model.OperationUpdate &&
			req.Metadata["scheduler.sweep_name"] == "court:ca9" &&
			req.Metadata["scheduler.fire_key"] == fireKey &&
			req.Metadata["scheduler.interval"] == "5m0s"
	})).Return(&model.SyncJob{ID: "job-123"}, nil)

	// Execute
	created, err := scheduler.enqueueJob(ctx, enqueueJobParams{
		Sweep:   sweep,
		FireKey: fireKey,
	})

	// Assert
	require.NoError(t, err)
	require.True(t, created)
	mockQueue.AssertExpectations(t)
}

func TestSchedulerService_EnqueueJob_CronMetadata(t *testing.T) {
	mockRepo := &mockSweepRepo{}
	mockQueue := &mockQueueRepo{}
	mockJobq := &mockJobIntrospector{}
	timeProvider := data.NewFixedTimeProvider(time.Now())

	scheduler := NewSchedulerService(SchedulerServiceOptions{
		Repo:            mockRepo,
		Queue:           mockQueue,
		JobIntrospector: mockJobq,
		TimeProvider:    timeProvider,
	})

	ctx := context.Background()

	cronExpr := "0 6 * * *"
	nextRun := time.Date(2023, 6, 1, 6, 0, 0, 0, time.UTC)
	sweep := schedule.Sweep{
		ID:         testSweepID,
		Name:       "full:nightly",
		EntityType: model.EntityTypeFull,
		CronExpr:   &cronExpr,
		NextRunAt:  &nextRun,
	}

	fireKey := schedule.ComputeFireKey(sweep, timeProvider.Now())

	// Cron sweeps carry the expression instead of an interval
	mockQueue.On("Enqueue", ctx, mock.MatchedBy(func(req *model.EnqueueRequest) bool {
		_, hasInterval := req.Metadata["scheduler.interval"]
		return req.EntityType == model.EntityTypeFull &&
			req.EntityExternalID == "" &&
			req.Metadata["scheduler.cron"] == cronExpr &&
			!hasInterval
	})).Return(&model.SyncJob{ID: "job-123"}, nil)

	created, err := scheduler.enqueueJob(ctx, enqueueJobParams{
		Sweep:   sweep,
		FireKey: fireKey,
	})

	require.NoError(t, err)
	require.True(t, created)
	mockQueue.AssertExpectations(t)
}

func TestSchedulerService_EnqueueJob_UsesTransactionalRepository(t *testing.T) {
	mockRepo := &mockSweepRepo{}
	mockQueue := &mockQueueRepo{}
	mockJobq := &mockJobIntrospector{}
	timeProvider := data.NewFixedTimeProvider(time.Now())

	scheduler := NewSchedulerService(SchedulerServiceOptions{
		Repo:            mockRepo,
		Queue:           mockQueue,
		JobIntrospector: mockJobq,
		TimeProvider:    timeProvider,
	})

	ctx := context.Background()
	sweep := schedule.Sweep{
		ID:         testSweepID,
		Name:       "court:ca9",
		EntityType: model.EntityTypeCourt,
		Payload:    json.RawMessage(testPayloadJSON),
		Interval:   time.Minute,
	}

	var dummyTx sql.Tx
	mockQueue.On("EnqueueInTx", ctx, &dummyTx, mock.AnythingOfType("*model.EnqueueRequest")).
		Return(&model.SyncJob{ID: "job-456"}, nil)

	fireKey := schedule.ComputeFireKey(sweep, timeProvider.Now())

	created, err := scheduler.enqueueJob(ctx, enqueueJobParams{
		Tx:      &dummyTx,
		Sweep:   sweep,
		FireKey: fireKey,
	})

	require.NoError(t, err)
	assert.True(t, created)
	mockQueue.AssertCalled(t, "EnqueueInTx", ctx, &dummyTx, mock.AnythingOfType("*model.EnqueueRequest"))
	mockQueue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}

func TestSchedulerService_EnqueueJob_DuplicateFireKey(t *testing.T) {
	mockRepo := &mockSweepRepo{}
	mockQueue := &mockQueueRepo{}
	mockJobq := &mockJobIntrospector{}
	timeProvider := data.NewFixedTimeProvider(time.Now())

	scheduler := NewSchedulerService(SchedulerServiceOptions{
		Repo:            mockRepo,
		Queue:           mockQueue,
		JobIntrospector: mockJobq,
		TimeProvider:    timeProvider,
	})

	ctx := context.Background()
	sweep := schedule.Sweep{
		ID:         testSweepID,
		Name:       "court:ca9",
		EntityType: model.EntityTypeCourt,
		Payload:    json.RawMessage(testPayloadJSON),
		Interval:   5 * time.Minute,
	}

	// Unique violation on the fire key index means another replica already
	// enqueued this slot; the scheduler treats it as a no-op
	mockQueue.On("Enqueue", ctx, mock.AnythingOfType("*model.EnqueueRequest")).
		Return(nil, &pgconn.PgError{Code: pgerrcode.UniqueViolation})

	fireKey := schedule.ComputeFireKey(sweep, timeProvider.Now())

	created, err := scheduler.enqueueJob(ctx, enqueueJobParams{
		Sweep:   sweep,
		FireKey: fireKey,
	})

	require.NoError(t, err)
	assert.False(t, created)
	mockQueue.AssertExpectations(t)
}

func TestSchedulerService_EnqueueJob_InvalidPayload(t *testing.T) {
	mockRepo := &mockSweepRepo{}
	mockQueue := &mockQueueRepo{}
	mockJobq := &mockJobIntrospector{}
	timeProvider := data.NewFixedTimeProvider(time.Now())

	scheduler := NewSchedulerService(SchedulerServiceOptions{
		Repo:            mockRepo,
		Queue:           mockQueue,
		JobIntrospector: mockJobq,
		TimeProvider:    timeProvider,
	})

	ctx := context.Background()

	// Create sweep with invalid JSON payload
	sweep := schedule.Sweep{
		ID:         testSweepID,
		Name:       "invalid-sweep",
		EntityType: model.EntityTypeCourt,
		Payload:    json.RawMessage(`{invalid json`),
		Interval:   5 * time.Minute,
	}

	fireKey := schedule.ComputeFireKey(sweep, timeProvider.Now())

	// Execute - should fail while parsing the payload
	created, err := scheduler.enqueueJob(ctx, enqueueJobParams{
		Sweep:   sweep,
		FireKey: fireKey,
	})

	// Assert - should fail due to invalid JSON
	require.Error(t, err)
	require.False(t, created)
	require.Contains(t, err.Error(), "parse sweep payload")
}
