// Package core provides the business logic and service layer for the jurisync sync system.
package core

import (
	"context"
	"database/sql"
	"time"

	"github.com/openbench/jurisync/internal/domain/schedule"
)

// SweepRepository defines the interface for sync schedule data operations.
// It provides concurrency-safe operations for managing recurring sweeps.
type SweepRepository interface {
	// FindDue finds sweeps that are due for execution.
	// Uses FOR UPDATE SKIP LOCKED to prevent concurrent schedulers from processing the same sweeps.
	// A sweep is due when enabled AND (next_run_at <= now OR next_run_at IS NULL AND
	// (last_queued_at IS NULL OR last_queued_at + interval <= now)).
	FindDue(ctx context.Context, now time.Time, limit int) ([]schedule.Sweep, error)

	// FindDueTx is the transactional variant of FindDue; rows remain locked until tx ends.
	FindDueTx(ctx context.Context, tx *sql.Tx, p schedule.FindDueParams) ([]schedule.Sweep, error)

	// MarkQueued updates last_queued_at (and next_run_at when provided) for a sweep.
	// Return semantics:
	//   - (true, nil): sweep found and updated
	//   - (false, nil): sweep not found
	//   - (false, err): update failed due to error
	MarkQueued(ctx context.Context, p schedule.MarkQueuedParams) (bool, error)

	// MarkQueuedTx updates last_queued_at within an existing transaction.
	MarkQueuedTx(ctx context.Context, tx *sql.Tx, p schedule.MarkQueuedParams) (bool, error)

	// UpdateActiveFireKeyTx sets or clears the active fire key for a sweep within the provided transaction.
	UpdateActiveFireKeyTx(ctx context.Context, tx *sql.Tx, p schedule.UpdateActiveFireKeyParams) error

	// TryWithSweepLock attempts to acquire an advisory lock for the given sweep name.
	// Uses FNV-1a 64-bit hash of the sweep name for the lock key.
	// If the lock is acquired, executes fn within the same transaction.
	// Return semantics:
	//   - (false, nil): lock not acquired; fn was not executed
	//   - (true, nil): lock acquired; fn executed and succeeded
	//   - (true, err): lock acquired; fn executed and failed with err
	TryWithSweepLock(
		ctx context.Context,
		sweepName string,
		fn func(context.Context, *sql.Tx) error,
	) (bool, error)
}

// SweepAdminRepository defines minimal admin operations for creating/updating/removing sweeps by name.
// Used by operational tooling to reconcile scheduler state.
type SweepAdminRepository interface {
	// UpsertByName creates or updates a sweep identified by name.
	// If the sweep exists, updates payload and cadence; preserves last_queued_at.
	UpsertByName(ctx context.Context, req schedule.UpsertSweepParams) error
	// SetEnabled toggles a sweep without losing its cadence state. Returns true if a row changed.
	SetEnabled(ctx context.Context, name string, enabled bool) (bool, error)
	// DeleteByName deletes a sweep by its name. Returns true if a row was deleted.
	DeleteByName(ctx context.Context, name string) (bool, error)
	// List returns all sweeps ordered by name.
	List(ctx context.Context) ([]schedule.Sweep, error)
}

// JobIntrospector defines the interface for inspecting jobs spawned by sweeps.
// Note: "running" means status='running' AND lease_expires_at > now (unexpired lease).
type JobIntrospector interface {
	// JobStatesBySweep returns a bitmask describing which overrun states
	// currently exist for jobs carrying the sweep's name in their metadata.
	JobStatesBySweep(ctx context.Context, sweepName string, now time.Time) (schedule.OverrunStateMask, error)
}

// SweepScheduler defines the interface for the scheduler service.
type SweepScheduler interface {
	// Tick processes due sweeps and enqueues sync jobs according to strategy.
	// Returns the number of sweeps processed.
	Tick(ctx context.Context, now time.Time) (int, error)
}

// SchedulerConfig holds configuration for the sweep scheduler.
type SchedulerConfig struct {
	BatchSize       int                      `json:"batch_size"`
	DefaultPriority int                      `json:"default_priority"`
	MaxAttempts     int                      `json:"max_attempts"`
	Strategy        schedule.StrategyOptions `json:"strategy"`
}

// DefaultSchedulerConfig returns a SchedulerConfig with sensible defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		BatchSize:       25,
		DefaultPriority: 0,
		MaxAttempts:     3,
		Strategy: schedule.StrategyOptions{
			Overrun:       schedule.OverrunPolicySkip,
			OverrunStates: schedule.OverrunStatesDefault,
		},
	}
}
