package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/openbench/jurisync/internal/data/pgxutil"
	"github.com/openbench/jurisync/internal/domain/model"
	"github.com/openbench/jurisync/internal/domain/schedule"
)

// ErrSweepNotFound is returned when a sweep does not exist.
var ErrSweepNotFound = errors.New("sweep not found")

// SweepRepo provides database operations for recurring sweep management.
type SweepRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewSweepRepo creates a new SweepRepo instance with the given database connection.
func NewSweepRepo(db *sql.DB) *SweepRepo {
	return &SweepRepo{
		DB:           db,
		timeProvider: &RealTimeProvider{},
	}
}

// NewSweepRepoWithTimeProvider creates a SweepRepo with a custom TimeProvider (useful for testing).
func NewSweepRepoWithTimeProvider(db *sql.DB, timeProvider TimeProvider) *SweepRepo {
	return &SweepRepo{
		DB:           db,
		timeProvider: timeProvider,
	}
}

// fnvHash computes FNV-1a 64-bit hash of the given string for use as advisory lock key.
func fnvHash(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	// Advisory locks accept BIGINT; constrain the unsigned hash into int64 range before casting.
	u := h.Sum64()
	if u > uint64(math.MaxInt64) {
		u %= uint64(math.MaxInt64)
	}
	return int64(u) // #nosec G115 -- value is explicitly bounded to <= MaxInt64 before casting to int64.
}

const sweepColumns = `
  id,
  name,
  entity_type,
  payload,
  EXTRACT(EPOCH FROM sweep_interval)::bigint AS interval_seconds,
  cron_expr,
  enabled,
  last_queued_at,
  next_run_at,
  updated_at,
  overrun_policy,
  overrun_state_mask,
  active_fire_key
`

// dueSweepPredicate selects enabled sweeps whose precomputed next_run_at has
// arrived, falling back to last_queued_at plus interval for rows that have
// never been advanced (cron sweeps always carry next_run_at).
const dueSweepPredicate = `
		enabled
		AND (
			next_run_at <= $1
			OR (next_run_at IS NULL AND (last_queued_at IS NULL OR last_queued_at + sweep_interval <= $1))
		)
`

// FindDue finds sweeps that are due for execution.
// Uses FOR UPDATE SKIP LOCKED to prevent concurrent schedulers from processing the same sweeps.
func (r *SweepRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]schedule.Sweep, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	query := `
		SELECT ` + sweepColumns + `
		FROM sync_schedules
		WHERE ` + dueSweepPredicate + `
		ORDER BY
			CASE WHEN last_queued_at IS NULL THEN 0 ELSE 1 END,
			last_queued_at ASC,
			created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`

	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			_ = cerr
		}
	}()

	var sweeps []schedule.Sweep
	err = conn.Raw(func(dc any) error {
		stdConn, ok := dc.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection type: %T", dc)
		}
		pgxConn := stdConn.Conn()
		rows, queryErr := pgxConn.Query(ctx, query, now.UTC(), limit)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		collected, collectErr := pgx.CollectRows(rows, rowToSweep)
		if collectErr != nil {
			return collectErr
		}
		sweeps = collected
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query due sweeps: %w", err)
	}

	return sweeps, nil
}

// FindDueTx is the transactional variant of FindDue. It must be paired with any updates
// (e.g., MarkQueuedTx) within the same transaction to ensure SKIP LOCKED semantics hold
// across selection and subsequent updates.
func (r *SweepRepo) FindDueTx(
	ctx context.Context,
	tx *sql.Tx,
	p schedule.FindDueParams,
) ([]schedule.Sweep, error) {
	if p.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", p.Limit)
	}

	query := `
		SELECT ` + sweepColumns + `
		FROM sync_schedules
		WHERE ` + dueSweepPredicate + `
		ORDER BY
			CASE WHEN last_queued_at IS NULL THEN 0 ELSE 1 END,
			last_queued_at ASC,
			created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`

	rows, queryErr := tx.QueryContext(ctx, query, p.Now.UTC(), p.Limit)
	if queryErr != nil {
		return nil, fmt.Errorf("query due sweeps: %w", queryErr)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	var sweeps []schedule.Sweep
	for rows.Next() {
		sweep, scanErr := scanSweepFromSQLRows(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan sweep: %w", scanErr)
		}
		sweeps = append(sweeps, sweep)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate sweeps: %w", rowsErr)
	}

	return sweeps, nil
}

// markQueuedStatement builds the UPDATE for MarkQueued variants. NextRunAt,
// when provided, advances the precomputed fire time in the same statement.
func (r *SweepRepo) markQueuedStatement(p schedule.MarkQueuedParams) (string, []any) {
	currentTime := r.timeProvider.Now()

	clauses := []string{"last_queued_at = $2", "updated_at = $3"}
	args := []any{p.ID, p.Now.UTC(), currentTime.UTC()}

	if p.NextRunAt != nil {
		idx := len(args) + 1
		clauses = append(clauses, fmt.Sprintf("next_run_at = $%d", idx))
		args = append(args, p.NextRunAt.UTC())
	}

	clauses, args = appendActiveFireKeyUpdate(
		clauses,
		args,
		activeFireKeyUpdateParams{keyPtr: p.ActiveFireKey, setAt: p.ActiveFireKeySetAt, fallback: currentTime.UTC()},
	)

	var queryBuilder strings.Builder
	queryBuilder.WriteString("UPDATE sync_schedules SET ")
	queryBuilder.WriteString(strings.Join(clauses, ", "))
	queryBuilder.WriteString(" WHERE id = $1")

	return queryBuilder.String(), args
}

// MarkQueued updates the last_queued_at timestamp for a sweep.
// Return semantics:
//   - (true, nil): sweep found and updated
//   - (false, nil): sweep not found
//   - (false, err): update failed due to error
func (r *SweepRepo) MarkQueued(ctx context.Context, p schedule.MarkQueuedParams) (bool, error) {
	query, args := r.markQueuedStatement(p)

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update sweep: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// MarkQueuedTx updates last_queued_at within an existing transaction.
// Use this with FindDueTx to ensure selection and update happen under the same locks.
func (r *SweepRepo) MarkQueuedTx(ctx context.Context, tx *sql.Tx, p schedule.MarkQueuedParams) (bool, error) {
	query, args := r.markQueuedStatement(p)

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update sweep (tx): %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected (tx): %w", err)
	}

	return rowsAffected > 0, nil
}

// UpdateActiveFireKeyTx updates or clears the active fire key for a sweep within a transaction.
func (r *SweepRepo) UpdateActiveFireKeyTx(
	ctx context.Context,
	tx *sql.Tx,
	p schedule.UpdateActiveFireKeyParams,
) error {
	currentTime := r.timeProvider.Now().UTC()
	updateAt := currentTime
	if !p.SetAt.IsZero() {
		updateAt = p.SetAt.UTC()
	}

	clauses := []string{"updated_at = $2"}
	args := []any{p.ID, currentTime}

	clauses, args = appendActiveFireKeyUpdate(
		clauses,
		args,
		activeFireKeyUpdateParams{keyPtr: p.FireKey, setAt: &p.SetAt, fallback: updateAt},
	)

	var queryBuilder strings.Builder
	queryBuilder.WriteString("UPDATE sync_schedules SET ")
	queryBuilder.WriteString(strings.Join(clauses, ", "))
	queryBuilder.WriteString(" WHERE id = $1")

	if _, err := tx.ExecContext(ctx, queryBuilder.String(), args...); err != nil {
		return fmt.Errorf("update active fire key: %w", err)
	}
	return nil
}

// TryWithSweepLock attempts to acquire an advisory lock for the given sweep name.
// Uses FNV-1a 64-bit hash of the sweep name for the lock key.
// If the lock is acquired, executes fn within the same transaction.
// Return semantics:
//   - (false, nil): lock not acquired; fn was not executed
//   - (true, nil): lock acquired; fn executed and succeeded
//   - (true, err): lock acquired; fn executed and failed with err
func (r *SweepRepo) TryWithSweepLock(
	ctx context.Context,
	sweepName string,
	fn func(context.Context, *sql.Tx) error,
) (bool, error) {
	lockKey := fnvHash(sweepName)

	var locked bool
	var fnErr error

	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1)", lockKey).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock for sweep %s: %w", sweepName, err)
			}

			if !locked {
				return nil
			}

			// The transaction commits regardless of fnErr; schedule updates
			// made by fn stick even when enqueueing partially failed, and the
			// error surfaces to the caller separately.
			fnErr = fn(ctx, tx)
			return nil
		},
	})
	if err != nil {
		return false, err
	}

	return locked, fnErr
}

// sweepRow represents the database row structure for sweeps.
// This struct matches the database schema exactly, allowing pgx.RowToStructByName to work.
type sweepRow struct {
	ID               string         `db:"id"`
	Name             string         `db:"name"`
	EntityType       string         `db:"entity_type"`
	Payload          []byte         `db:"payload"`
	IntervalSeconds  sql.NullInt64  `db:"interval_seconds"`
	CronExpr         sql.NullString `db:"cron_expr"`
	Enabled          bool           `db:"enabled"`
	LastQueuedAt     sql.NullTime   `db:"last_queued_at"`
	NextRunAt        sql.NullTime   `db:"next_run_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
	OverrunPolicy    sql.NullString `db:"overrun_policy"`
	OverrunStateMask sql.NullInt64  `db:"overrun_state_mask"`
	ActiveFireKey    sql.NullString `db:"active_fire_key"`
}

// toDomainSweep converts a sweepRow to schedule.Sweep.
func (r *sweepRow) toDomainSweep() schedule.Sweep {
	if r == nil {
		return schedule.Sweep{}
	}

	sweep := schedule.Sweep{
		ID:         r.ID,
		Name:       r.Name,
		EntityType: model.EntityType(r.EntityType),
		Enabled:    r.Enabled,
		UpdatedAt:  r.UpdatedAt,
	}

	if r.IntervalSeconds.Valid {
		sweep.Interval = time.Duration(r.IntervalSeconds.Int64) * time.Second
	}
	if r.Payload != nil {
		sweep.Payload = json.RawMessage(r.Payload)
	}
	if r.CronExpr.Valid {
		expr := strings.TrimSpace(r.CronExpr.String)
		if expr != "" {
			sweep.CronExpr = &expr
		}
	}
	if r.LastQueuedAt.Valid {
		sweep.LastQueuedAt = &r.LastQueuedAt.Time
	}
	if r.NextRunAt.Valid {
		sweep.NextRunAt = &r.NextRunAt.Time
	}
	if r.OverrunPolicy.Valid {
		p := schedule.OverrunPolicy(r.OverrunPolicy.String)
		sweep.OverrunPolicy = &p
	}
	if r.OverrunStateMask.Valid {
		if val := r.OverrunStateMask.Int64; val >= 0 && val <= math.MaxUint8 {
			mask := schedule.OverrunStateMask(val)
			sweep.OverrunStates = &mask
		}
	}
	if r.ActiveFireKey.Valid {
		key := strings.TrimSpace(r.ActiveFireKey.String)
		if key != "" {
			sweep.ActiveFireKey = &key
		}
	}

	return sweep
}

// rowToSweep maps a pgx row to schedule.Sweep using pgx v5 generics.
func rowToSweep(row pgx.CollectableRow) (schedule.Sweep, error) {
	dbRow, err := pgx.RowToStructByName[sweepRow](row)
	if err != nil {
		return schedule.Sweep{}, fmt.Errorf("scan sweep row: %w", err)
	}
	return dbRow.toDomainSweep(), nil
}

type activeFireKeyUpdateParams struct {
	keyPtr   *string
	setAt    *time.Time
	fallback time.Time
}

func appendActiveFireKeyUpdate(
	clauses []string,
	args []any,
	params activeFireKeyUpdateParams,
) ([]string, []any) {
	if params.keyPtr == nil {
		clauses = append(clauses, "active_fire_key = NULL", "active_fire_key_set_at = NULL")
		return clauses, args
	}

	key := strings.TrimSpace(*params.keyPtr)
	if key == "" {
		clauses = append(clauses, "active_fire_key = NULL", "active_fire_key_set_at = NULL")
		return clauses, args
	}

	idx := len(args) + 1
	clauses = append(clauses, fmt.Sprintf("active_fire_key = $%d", idx))
	args = append(args, key)
	idx++

	ts := params.fallback
	if params.setAt != nil && !params.setAt.IsZero() {
		ts = params.setAt.UTC()
	}
	clauses = append(clauses, fmt.Sprintf("active_fire_key_set_at = $%d", idx))
	args = append(args, ts)

	return clauses, args
}

// scanSweepFromSQLRows scans a database/sql row into a Sweep struct.
// This is used for methods that work with database/sql instead of pgx.
func scanSweepFromSQLRows(rows *sql.Rows) (schedule.Sweep, error) {
	var dbRow sweepRow
	err := rows.Scan(
		&dbRow.ID,
		&dbRow.Name,
		&dbRow.EntityType,
		&dbRow.Payload,
		&dbRow.IntervalSeconds,
		&dbRow.CronExpr,
		&dbRow.Enabled,
		&dbRow.LastQueuedAt,
		&dbRow.NextRunAt,
		&dbRow.UpdatedAt,
		&dbRow.OverrunPolicy,
		&dbRow.OverrunStateMask,
		&dbRow.ActiveFireKey,
	)
	if err != nil {
		return schedule.Sweep{}, fmt.Errorf("scan sweep row: %w", err)
	}
	return dbRow.toDomainSweep(), nil
}
