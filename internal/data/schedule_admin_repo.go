package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/openbench/jurisync/internal/data/pgxutil"
	"github.com/openbench/jurisync/internal/domain/schedule"
)

// SweepAdminRepo provides admin operations for sync_schedules (upsert/delete by name).
// This is separate from the concurrency-focused SweepRepo used by the scheduler tick loop.
type SweepAdminRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewSweepAdminRepo creates a new SweepAdminRepo instance with the given database connection.
func NewSweepAdminRepo(db *sql.DB) *SweepAdminRepo {
	return &SweepAdminRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewSweepAdminRepoWithTimeProvider allows injecting a custom time provider (for testing).
func NewSweepAdminRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *SweepAdminRepo {
	return &SweepAdminRepo{DB: db, timeProvider: tp}
}

// UpsertByName creates or updates a sweep identified by name.
// Updates payload and cadence; preserves last_queued_at. Cron sweeps get
// next_run_at precomputed so the due-sweep scan never parses expressions.
func (r *SweepAdminRepo) UpsertByName(ctx context.Context, req schedule.UpsertSweepParams) error {
	if err := req.Validate(); err != nil {
		return err
	}

	now := r.timeProvider.Now().UTC()

	var secsVal any
	if secs := int64(req.Interval / time.Second); secs > 0 {
		secsVal = secs
	}

	payload := []byte(`{}`)
	if req.Payload != nil {
		payload = req.Payload
	}

	var nextRunVal any
	if req.CronExpr != nil && *req.CronExpr != "" {
		probe := schedule.Sweep{Name: req.Name, Interval: req.Interval, CronExpr: req.CronExpr}
		next, err := probe.NextRun(now)
		if err != nil {
			return err
		}
		nextRunVal = next.UTC()
	}

	var policyVal any
	if req.OverrunPolicy != nil {
		policyVal = string(*req.OverrunPolicy)
	}

	var stateVal any
	if req.OverrunStates != nil {
		stateVal = int16(*req.OverrunStates)
	}

	q := `
		INSERT INTO sync_schedules (name, entity_type, payload, sweep_interval, cron_expr, enabled, next_run_at, overrun_policy, overrun_state_mask, created_at, updated_at)
		VALUES ($1, $2, $3, ($4::bigint * interval '1 second'), $5, $6, $7, $8, $9, $10, $10)
	ON CONFLICT (name) DO UPDATE
	SET entity_type = EXCLUDED.entity_type,
	    payload = EXCLUDED.payload,
	    sweep_interval = EXCLUDED.sweep_interval,
	    cron_expr = EXCLUDED.cron_expr,
	    enabled = EXCLUDED.enabled,
	    next_run_at = EXCLUDED.next_run_at,
	    overrun_policy = COALESCE(EXCLUDED.overrun_policy, sync_schedules.overrun_policy),
	    overrun_state_mask = COALESCE(EXCLUDED.overrun_state_mask, sync_schedules.overrun_state_mask),
	    updated_at = EXCLUDED.updated_at
	`
	_, err := r.DB.ExecContext(ctx, q,
		req.Name,
		req.EntityType,
		payload,
		secsVal,
		req.CronExpr,
		req.Enabled,
		nextRunVal,
		policyVal,
		stateVal,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert sweep: %w", err)
	}
	return nil
}

// SetEnabled toggles a sweep without losing its cadence state.
func (r *SweepAdminRepo) SetEnabled(ctx context.Context, name string, enabled bool) (bool, error) {
	if name == "" {
		return false, errors.New("name is required")
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE sync_schedules
		SET enabled = $2, updated_at = $3
		WHERE name = $1
	`, name, enabled, r.timeProvider.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("set sweep enabled: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteByName deletes a sweep identified by name.
func (r *SweepAdminRepo) DeleteByName(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, errors.New("name is required")
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM sync_schedules WHERE name = $1`, name)
	if err != nil {
		return false, fmt.Errorf("delete sweep: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// List returns all sweeps ordered by name.
func (r *SweepAdminRepo) List(ctx context.Context) ([]schedule.Sweep, error) {
	var sweeps []schedule.Sweep
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			SELECT `+sweepColumns+`
			FROM sync_schedules
			ORDER BY name ASC
		`)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()

		collected, cerr := pgx.CollectRows(rows, rowToSweep)
		if cerr != nil {
			return cerr
		}
		sweeps = collected
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list sweeps: %w", err)
	}
	return sweeps, nil
}
