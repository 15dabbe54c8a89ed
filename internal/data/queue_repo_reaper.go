package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/openbench/jurisync/internal/core"
	"github.com/openbench/jurisync/internal/data/pgxutil"
)

// Advisory lock namespace for reaper operations so concurrent reapers on
// separate instances never double-process a batch.
const (
	advisoryLockReaperMajor          int64 = 1000
	advisoryLockReaperFailPending    int64 = 1
	advisoryLockReaperDelete         int64 = 2
	advisoryLockReaperDeleteReports  int64 = 3
	advisoryLockReaperRequeueExpired int64 = 4
)

const defaultReaperBatchSize = 100

func normalizeReaperBatchSize(batchSize int) int {
	if batchSize <= 0 {
		return defaultReaperBatchSize
	}
	return batchSize
}

// withReaperLock runs fn inside a transaction holding the given reaper
// advisory lock. When another instance holds the lock the call returns
// (0, nil) without doing work.
func (r *QueueRepo) withReaperLock(
	ctx context.Context,
	minorKey int64,
	fn func(tx *sql.Tx) (int64, error),
) (int64, error) {
	var affected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx,
				"SELECT pg_try_advisory_xact_lock($1::integer, $2::integer)",
				advisoryLockReaperMajor, minorKey,
			).Scan(&locked); err != nil {
				return fmt.Errorf("acquire reaper advisory lock: %w", err)
			}
			if !locked {
				affected = 0
				return nil
			}

			n, fnErr := fn(tx)
			if fnErr != nil {
				return fnErr
			}
			affected = n
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// RequeueExpiredLeases returns running jobs with expired leases to pending
// across all entity types.
func (r *QueueRepo) RequeueExpiredLeases(ctx context.Context, batchSize int) (int64, error) {
	batchSize = normalizeReaperBatchSize(batchSize)
	currentTime := r.timeProvider.Now().UTC()

	return r.withReaperLock(ctx, advisoryLockReaperRequeueExpired, func(tx *sql.Tx) (int64, error) {
		res, err := tx.ExecContext(ctx, `
			UPDATE sync_queue
			SET status = 'pending',
			    claimed_by = NULL,
			    claimed_at = NULL,
			    lease_expires_at = NULL,
			    updated_at = $1
			WHERE id IN (
				SELECT id FROM sync_queue
				WHERE status = 'running'
				  AND lease_expires_at IS NOT NULL
				  AND lease_expires_at < $1
				ORDER BY lease_expires_at ASC
				LIMIT $2
			)
		`, currentTime, batchSize)
		if err != nil {
			return 0, fmt.Errorf("requeue expired leases: %w", err)
		}
		return res.RowsAffected()
	})
}

// FailStalePendingJobs dead-letters pending jobs older than maxAge. Covers
// jobs for a pipeline no worker is draining.
func (r *QueueRepo) FailStalePendingJobs(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	batchSize = normalizeReaperBatchSize(batchSize)
	currentTime := r.timeProvider.Now().UTC()
	cutoff := currentTime.Add(-maxAge)

	return r.withReaperLock(ctx, advisoryLockReaperFailPending, func(tx *sql.Tx) (int64, error) {
		res, err := tx.ExecContext(ctx, `
			UPDATE sync_queue
			SET status = 'failed',
			    last_error = 'Job timed out waiting for a worker',
			    completed_at = $1,
			    updated_at = $1
			WHERE id IN (
				SELECT id FROM sync_queue
				WHERE status = 'pending' AND created_at < $2
				ORDER BY created_at ASC
				LIMIT $3
			)
		`, currentTime, cutoff, batchSize)
		if err != nil {
			return 0, fmt.Errorf("fail stale pending jobs: %w", err)
		}
		return res.RowsAffected()
	})
}

// DeleteOldJobs removes terminal jobs of the given status older than MaxAge.
// Jobs that never completed fall back to updated_at for age.
func (r *QueueRepo) DeleteOldJobs(ctx context.Context, params core.DeleteOldJobsParams) (int64, error) {
	if !params.Status.Terminal() {
		return 0, fmt.Errorf("status %q is not terminal", params.Status)
	}

	batchSize := normalizeReaperBatchSize(params.BatchSize)
	cutoff := r.timeProvider.Now().UTC().Add(-params.MaxAge)

	return r.withReaperLock(ctx, advisoryLockReaperDelete, func(tx *sql.Tx) (int64, error) {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM sync_queue
			WHERE id IN (
				SELECT id FROM sync_queue
				WHERE status = $1
				  AND (completed_at < $2 OR (completed_at IS NULL AND updated_at < $2))
				ORDER BY COALESCE(completed_at, updated_at) ASC
				LIMIT $3
			)
		`, params.Status, cutoff, batchSize)
		if err != nil {
			return 0, fmt.Errorf("delete old jobs: %w", err)
		}
		return res.RowsAffected()
	})
}

// DeleteOldReports trims validation reports past the retention window.
func (r *QueueRepo) DeleteOldReports(ctx context.Context, params core.DeleteOldReportsParams) (int64, error) {
	batchSize := normalizeReaperBatchSize(params.BatchSize)
	cutoff := r.timeProvider.Now().UTC().Add(-params.MaxAge)

	return r.withReaperLock(ctx, advisoryLockReaperDeleteReports, func(tx *sql.Tx) (int64, error) {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM validation_reports
			WHERE id IN (
				SELECT id FROM validation_reports
				WHERE run_at < $1
				ORDER BY run_at ASC
				LIMIT $2
			)
		`, cutoff, batchSize)
		if err != nil {
			return 0, fmt.Errorf("delete old reports: %w", err)
		}
		return res.RowsAffected()
	})
}
