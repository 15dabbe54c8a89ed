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

var (
	// ErrJobNotFound is returned when a sync job is not found.
	ErrJobNotFound = errors.New("sync job not found")
	// ErrJobNotDeletable is returned when attempting to delete a job that is not in a deletable state.
	ErrJobNotDeletable = errors.New("sync job cannot be deleted (must be pending, completed, failed, or cancelled)")
	// ErrJobReserved is returned when attempting to delete a job that has an active lease.
	ErrJobReserved = errors.New("sync job is leased and cannot be deleted")
)

// RepoConfig holds configuration options for the queue repository.
type RepoConfig struct {
	// WorkerID identifies this process in claimed_by. Usually hostname plus pid.
	WorkerID string
	// BackoffBaseSeconds is the delay after the first failed attempt.
	BackoffBaseSeconds int
	// BackoffCapSeconds bounds the exponential retry delay.
	BackoffCapSeconds int
	TimeProvider       TimeProvider
}

const (
	defaultBackoffBaseSeconds = 30
	defaultBackoffCapSeconds  = 3600
)

// QueueRepo provides database operations for the durable sync job queue.
type QueueRepo struct {
	DB           *sql.DB
	cfg          RepoConfig
	timeProvider TimeProvider
}

// NewQueueRepo creates a new QueueRepo instance with the given database connection and configuration.
func NewQueueRepo(db *sql.DB, cfg RepoConfig) *QueueRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}

	return &QueueRepo{
		DB:           db,
		cfg:          cfg,
		timeProvider: tp,
	}
}

func (r *QueueRepo) backoffBase() int {
	if r.cfg.BackoffBaseSeconds > 0 {
		return r.cfg.BackoffBaseSeconds
	}
	return defaultBackoffBaseSeconds
}

func (r *QueueRepo) backoffCap() int {
	if r.cfg.BackoffCapSeconds > 0 {
		return r.cfg.BackoffCapSeconds
	}
	return defaultBackoffCapSeconds
}

const syncJobColumns = `
  id,
  entity_type,
  entity_external_id,
  operation,
  priority,
  status,
  attempt_count,
  max_attempts,
  scheduled_for,
  claimed_by,
  claimed_at,
  lease_expires_at,
  payload,
  metadata,
  last_error,
  completed_at,
  created_at,
  updated_at
`

// SQL used by ReserveNext to atomically claim the next job. Priority wins,
// then earliest scheduled_for, then insertion order.
const reserveNextUpdateSQL = `
  WITH cte AS (
    SELECT id FROM sync_queue
    WHERE entity_type = $1 AND status = 'pending' AND scheduled_for <= $2
    ORDER BY priority DESC, scheduled_for ASC, created_at ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
  )
  UPDATE sync_queue q
  SET
    status = 'running',
    claimed_by = $3,
    claimed_at = $4,
    lease_expires_at = $5,
    updated_at = $6
  FROM cte
  WHERE q.id = cte.id
  RETURNING q.id, q.entity_type, q.entity_external_id, q.operation, q.priority, q.status, q.attempt_count, q.max_attempts, q.scheduled_for, q.claimed_by, q.claimed_at, q.lease_expires_at, q.payload, q.metadata, q.last_error, q.completed_at, q.created_at, q.updated_at`

// insertJobParams groups parameters for inserting a job within a transaction.
type insertJobParams struct {
	Req         *model.EnqueueRequest
	Payload     []byte
	Meta        []byte
	MaxAttempts int
}

// Enqueue creates a new sync job in the queue and notifies listening workers.
func (r *QueueRepo) Enqueue(ctx context.Context, req *model.EnqueueRequest) (*model.SyncJob, error) {
	if req == nil {
		return nil, errors.New("enqueue request is required")
	}

	if validateErr := req.Validate(); validateErr != nil {
		return nil, validateErr
	}

	params, err := r.prepareJobData(req)
	if err != nil {
		return nil, err
	}

	var job *model.SyncJob
	if txErr := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			var insertErr error
			job, insertErr = r.insertJobInTx(ctx, tx, params)
			return insertErr
		},
	}); txErr != nil {
		return nil, txErr
	}

	return job, nil
}

// EnqueueInTx inserts a sync job within an existing SQL transaction. The
// notification rides the same transaction, so listeners only wake after commit.
func (r *QueueRepo) EnqueueInTx(
	ctx context.Context,
	sqlTx *sql.Tx,
	req *model.EnqueueRequest,
) (*model.SyncJob, error) {
	if sqlTx == nil {
		return nil, errors.New("transaction is required")
	}
	if req == nil {
		return nil, errors.New("enqueue request is required")
	}
	if validateErr := req.Validate(); validateErr != nil {
		return nil, validateErr
	}

	params, prepErr := r.prepareJobData(req)
	if prepErr != nil {
		return nil, prepErr
	}

	query, args := r.buildInsertQuery(params)
	row := sqlTx.QueryRowContext(ctx, query, args...)

	job, scanErr := scanSyncJobFromRow(row)
	if scanErr != nil {
		return nil, fmt.Errorf("collect sync job: %w", scanErr)
	}

	channel := "sync_jobs_" + string(req.EntityType)
	if _, notifyErr := sqlTx.ExecContext(ctx, `SELECT pg_notify($1::text, $2::text)`, channel, job.ID); notifyErr != nil {
		return nil, fmt.Errorf("send job notification: %w", notifyErr)
	}

	return job, nil
}

// prepareJobData marshals payload and metadata and resolves max attempts.
func (r *QueueRepo) prepareJobData(req *model.EnqueueRequest) (*insertJobParams, error) {
	payload := []byte(`{}`)
	if req.Payload != nil {
		payload = append([]byte(nil), req.Payload...)
	}

	meta := []byte(`{}`)
	if req.Metadata != nil {
		var err error
		meta, err = json.Marshal(req.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
	}

	maxAttempts := 3
	if req.MaxAttempts > 0 {
		maxAttempts = req.MaxAttempts
	}

	return &insertJobParams{
		Req:         req,
		Payload:     payload,
		Meta:        meta,
		MaxAttempts: maxAttempts,
	}, nil
}

// insertJobInTx inserts a job within a pgx.Tx and returns the created job.
func (r *QueueRepo) insertJobInTx(ctx context.Context, tx pgx.Tx, params *insertJobParams) (*model.SyncJob, error) {
	if params == nil || params.Req == nil {
		return nil, errors.New("insert job params are required")
	}

	query, args := r.buildInsertQuery(params)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("insert sync job: %w", err)
	}
	job, collectErr := collectSyncJobFromRows(rows)
	rows.Close()
	if collectErr != nil {
		return nil, fmt.Errorf("collect sync job: %w", collectErr)
	}

	channel := "sync_jobs_" + string(params.Req.EntityType)
	if _, execErr := tx.Exec(ctx, `SELECT pg_notify($1::text, $2::text)`, channel, job.ID); execErr != nil {
		return nil, fmt.Errorf("send job notification: %w", execErr)
	}

	return job, nil
}

// buildInsertQuery builds an INSERT statement for a sync job.
func (r *QueueRepo) buildInsertQuery(p *insertJobParams) (string, []any) {
	if p == nil || p.Req == nil {
		return "", nil
	}

	query := `
      INSERT INTO sync_queue(entity_type, entity_external_id, operation, status, priority, payload, metadata, scheduled_for, max_attempts)
      VALUES ($1,$2,$3,'pending',$4,$5,$6,$7,$8)
      RETURNING ` + syncJobColumns

	var scheduledFor time.Time
	if p.Req.ScheduledFor != nil {
		scheduledFor = p.Req.ScheduledFor.UTC()
	} else {
		scheduledFor = r.timeProvider.Now().UTC()
	}

	args := []any{
		p.Req.EntityType,
		p.Req.EntityExternalID,
		p.Req.Operation,
		p.Req.Priority,
		p.Payload,
		p.Meta,
		scheduledFor,
		p.MaxAttempts,
	}
	return query, args
}

// collectSyncJobFromRows collects a single job from pgx rows.
func collectSyncJobFromRows(rows pgx.Rows) (*model.SyncJob, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}

	job, err := scanSyncJobFromRow(rows)
	if err != nil {
		return nil, err
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}

	return job, nil
}

type syncJobRowScanner interface {
	Scan(dest ...any) error
}

type syncJobRowData struct {
	payload, metadata                 []byte
	claimedBy, lastError              sql.NullString
	claimedAt, leaseExpiresAt, doneAt sql.NullTime
}

func (d *syncJobRowData) scanInto(scanner syncJobRowScanner, job *model.SyncJob) error {
	return scanner.Scan(
		&job.ID,
		&job.EntityType,
		&job.EntityExternalID,
		&job.Operation,
		&job.Priority,
		&job.Status,
		&job.AttemptCount,
		&job.MaxAttempts,
		&job.ScheduledFor,
		&d.claimedBy,
		&d.claimedAt,
		&d.leaseExpiresAt,
		&d.payload,
		&d.metadata,
		&d.lastError,
		&d.doneAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
}

func (d *syncJobRowData) apply(job *model.SyncJob) {
	job.Payload = cloneJSON(d.payload)
	job.Metadata = cloneJSON(d.metadata)
	job.ClaimedBy = cloneNullableString(d.claimedBy)
	job.ClaimedAt = cloneNullableTime(d.claimedAt)
	job.LeaseExpiresAt = cloneNullableTime(d.leaseExpiresAt)
	job.LastError = cloneNullableString(d.lastError)
	job.CompletedAt = cloneNullableTime(d.doneAt)
}

func scanSyncJobFromRow(scanner syncJobRowScanner) (*model.SyncJob, error) {
	job := &model.SyncJob{}
	var data syncJobRowData
	if err := data.scanInto(scanner, job); err != nil {
		return nil, err
	}

	data.apply(job)
	return job, nil
}

func cloneJSON(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return append(json.RawMessage(nil), raw...)
}

func cloneNullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func cloneNullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// Advisory lock namespace for requeueExpired to avoid cross-pipeline contention.
const advisoryLockRequeueMajor int64 = 1001

func advisoryLockRequeueMinor(entityType model.EntityType) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(entityType))
	hashValue := h.Sum32()
	maxInt32 := uint32(math.MaxInt32)
	if hashValue > maxInt32 {
		hashValue &= maxInt32
	}
	return int64(hashValue)
}

// requeueExpired returns expired leases of one pipeline to pending so the
// caller can claim them. Runs under an advisory lock keyed by entity type.
func (r *QueueRepo) requeueExpired(ctx context.Context, entityType model.EntityType) (int64, error) {
	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			minorKey := advisoryLockRequeueMinor(entityType)
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1::integer, $2::integer)", advisoryLockRequeueMajor, minorKey).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			currentTime := r.timeProvider.Now()
			res, err := tx.ExecContext(ctx, `
          UPDATE sync_queue
          SET status = 'pending', claimed_by = NULL, claimed_at = NULL, lease_expires_at = NULL
          WHERE entity_type = $1 AND status = 'running'
            AND lease_expires_at IS NOT NULL
            AND lease_expires_at < $2
        `, entityType, currentTime.UTC())
			if err != nil {
				return fmt.Errorf("requeue expired: %w", err)
			}
			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}

// ReserveNext claims the next available job of the given entity type. Expired
// leases for the type are requeued first, so abandoned work is reclaimed even
// when no reaper is running.
func (r *QueueRepo) ReserveNext(
	ctx context.Context,
	entityType model.EntityType,
	leaseSeconds int,
) (*model.SyncJob, error) {
	if !entityType.Valid() {
		return nil, fmt.Errorf("invalid entity type: %s", entityType)
	}
	if leaseSeconds <= 0 {
		return nil, ErrLeaseSecondsRequired
	}

	if _, err := r.requeueExpired(ctx, entityType); err != nil {
		return nil, fmt.Errorf("requeue expired jobs: %w", err)
	}

	var job *model.SyncJob
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{
			Isolation: sql.LevelReadCommitted,
			ReadOnly:  false,
		},
		Fn: func(tx pgx.Tx) error {
			currentTime := r.timeProvider.Now()
			leaseExpiresAt := currentTime.Add(time.Duration(leaseSeconds) * time.Second)

			rows, qerr := tx.Query(
				ctx,
				reserveNextUpdateSQL,
				entityType,
				currentTime.UTC(),
				r.cfg.WorkerID,
				currentTime.UTC(),
				leaseExpiresAt.UTC(),
				currentTime.UTC(),
			)
			if qerr != nil {
				return fmt.Errorf("reserve job: %w", qerr)
			}
			defer rows.Close()

			j, cerr := collectSyncJobFromRows(rows)
			if errors.Is(cerr, pgx.ErrNoRows) {
				return model.ErrNoJobsAvailable
			}
			if cerr != nil {
				return fmt.Errorf("reserve job: %w", cerr)
			}
			job = j
			return nil
		},
	})
	if err != nil {
		if errors.Is(err, model.ErrNoJobsAvailable) {
			return nil, model.ErrNoJobsAvailable
		}
		return nil, err
	}
	return job, nil
}

// Heartbeat refreshes the lease on a running job.
func (r *QueueRepo) Heartbeat(ctx context.Context, jobID string, leaseSeconds int) (bool, error) {
	if leaseSeconds <= 0 {
		return false, ErrLeaseSecondsRequired
	}

	currentTime := r.timeProvider.Now().UTC()
	leaseExpiration := currentTime.Add(time.Duration(leaseSeconds) * time.Second)

	query := `
		UPDATE sync_queue
		SET lease_expires_at = $2,
		    updated_at = $3
		WHERE id = $1 AND status = 'running'
	`

	res, err := r.DB.ExecContext(ctx, query, jobID, leaseExpiration, currentTime)
	if err != nil {
		return false, fmt.Errorf("heartbeat job: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("heartbeat rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return false, nil
	}

	return true, nil
}

// Complete marks a job as completed successfully. The status guard means a
// worker whose lease expired and was reclaimed cannot complete the job twice.
func (r *QueueRepo) Complete(ctx context.Context, id string) (bool, error) {
	currentTime := r.timeProvider.Now().UTC()

	query := `
		UPDATE sync_queue
		SET status = 'completed',
		    completed_at = $2,
		    updated_at = $3,
		    claimed_by = NULL,
		    lease_expires_at = NULL,
		    last_error = NULL
		WHERE id = $1 AND status = 'running'
		RETURNING metadata->>'scheduler.sweep_name', metadata->>'scheduler.fire_key'
	`

	var sweepName, fireKey sql.NullString
	if err := r.DB.QueryRowContext(ctx, query, id, currentTime, currentTime).Scan(&sweepName, &fireKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("complete job: %w", err)
	}

	r.clearFireKeyBestEffort(ctx, sweepName, fireKey)
	return true, nil
}

// Fail records a failed attempt. The job is requeued with exponential backoff
// until attempts are exhausted, then dead-lettered. attempt_count is
// pre-increment inside the delay formula, so the first retry waits the base
// delay.
func (r *QueueRepo) Fail(ctx context.Context, id, errMsg string) (bool, error) {
	return r.failWithFloor(ctx, id, errMsg, 0)
}

// FailWithBackoffFloor records a failed attempt like Fail, but never schedules
// the retry sooner than floor from now. Used when the upstream names its own
// wait via Retry-After.
func (r *QueueRepo) FailWithBackoffFloor(
	ctx context.Context,
	id, errMsg string,
	floor time.Duration,
) (bool, error) {
	return r.failWithFloor(ctx, id, errMsg, floor.Seconds())
}

func (r *QueueRepo) failWithFloor(ctx context.Context, id, errMsg string, floorSeconds float64) (bool, error) {
	currentTime := r.timeProvider.Now()
	if floorSeconds < 0 {
		floorSeconds = 0
	}

	query := `
      UPDATE sync_queue
      SET
        last_error = $2,
        attempt_count = attempt_count + 1,
        status = CASE WHEN attempt_count + 1 >= max_attempts THEN 'failed' ELSE 'pending' END,
        completed_at = CASE WHEN attempt_count + 1 >= max_attempts THEN $3::timestamptz ELSE NULL END,
        claimed_by = NULL,
        claimed_at = NULL,
        lease_expires_at = NULL,
        scheduled_for = CASE WHEN attempt_count + 1 >= max_attempts THEN scheduled_for
                             ELSE $3::timestamptz + make_interval(secs => GREATEST($6::double precision, LEAST($4::double precision, $5::double precision * power(2, attempt_count)))) END,
        updated_at = $3
      WHERE id = $1 AND status = 'running'
      RETURNING status, metadata->>'scheduler.sweep_name', metadata->>'scheduler.fire_key'
    `

	var status string
	var sweepName, fireKey sql.NullString
	if err := r.DB.QueryRowContext(
		ctx, query,
		id, errMsg, currentTime.UTC(), float64(r.backoffCap()), float64(r.backoffBase()), floorSeconds,
	).Scan(&status, &sweepName, &fireKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("fail job: %w", err)
	}

	if status == string(model.JobStatusFailed) {
		r.clearFireKeyBestEffort(ctx, sweepName, fireKey)
	}
	return true, nil
}

// FailPermanently dead-letters a running job immediately, skipping any
// remaining attempts. Used for errors that cannot succeed on retry.
func (r *QueueRepo) FailPermanently(ctx context.Context, id, errMsg string) (bool, error) {
	currentTime := r.timeProvider.Now().UTC()

	query := `
		UPDATE sync_queue
		SET status = 'failed',
		    last_error = $2,
		    attempt_count = attempt_count + 1,
		    completed_at = $3,
		    updated_at = $3,
		    claimed_by = NULL,
		    claimed_at = NULL,
		    lease_expires_at = NULL
		WHERE id = $1 AND status = 'running'
		RETURNING metadata->>'scheduler.sweep_name', metadata->>'scheduler.fire_key'
	`

	var sweepName, fireKey sql.NullString
	if err := r.DB.QueryRowContext(ctx, query, id, errMsg, currentTime).Scan(&sweepName, &fireKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("fail job permanently: %w", err)
	}

	r.clearFireKeyBestEffort(ctx, sweepName, fireKey)
	return true, nil
}

// Cancel withdraws a pending job. Running jobs cannot be cancelled; their
// workers hold the lease until completion or lease expiry.
func (r *QueueRepo) Cancel(ctx context.Context, id string) (bool, error) {
	currentTime := r.timeProvider.Now().UTC()

	query := `
		UPDATE sync_queue
		SET status = 'cancelled',
		    completed_at = $2,
		    updated_at = $2
		WHERE id = $1 AND status = 'pending'
		RETURNING metadata->>'scheduler.sweep_name', metadata->>'scheduler.fire_key'
	`

	var sweepName, fireKey sql.NullString
	if err := r.DB.QueryRowContext(ctx, query, id, currentTime).Scan(&sweepName, &fireKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("cancel job: %w", err)
	}

	r.clearFireKeyBestEffort(ctx, sweepName, fireKey)
	return true, nil
}

// clearFireKeyBestEffort releases a sweep's active fire key once its job
// reaches a terminal state. Failure to clear only delays the next fire until
// the scheduler's stale-key fallback kicks in, so errors are swallowed.
func (r *QueueRepo) clearFireKeyBestEffort(ctx context.Context, sweepName, fireKey sql.NullString) {
	if !sweepName.Valid || !fireKey.Valid {
		return
	}
	_ = r.clearActiveFireKey(ctx, sweepName.String, fireKey.String)
}

func (r *QueueRepo) clearActiveFireKey(ctx context.Context, sweepName, fireKey string) error {
	if strings.TrimSpace(sweepName) == "" || strings.TrimSpace(fireKey) == "" {
		return nil
	}

	query := `
		UPDATE sync_schedules
		SET active_fire_key = NULL,
		    active_fire_key_set_at = NULL,
		    updated_at = $3
		WHERE name = $1
		  AND active_fire_key = $2
	`

	if _, err := r.DB.ExecContext(ctx, query, sweepName, fireKey, r.timeProvider.Now().UTC()); err != nil {
		return fmt.Errorf("clear active fire key: %w", err)
	}
	return nil
}

// Stats returns per-status counts. An empty entity type counts the whole queue.
func (r *QueueRepo) Stats(ctx context.Context, entityType model.EntityType) (*model.QueueStats, error) {
	var s model.QueueStats
	err := r.DB.QueryRowContext(ctx, `
  SELECT
    count(*) FILTER (WHERE status = 'pending')   AS pending,
    count(*) FILTER (WHERE status = 'running')   AS running,
    count(*) FILTER (WHERE status = 'completed') AS completed,
    count(*) FILTER (WHERE status = 'failed')    AS failed,
    count(*) FILTER (WHERE status = 'cancelled') AS cancelled
  FROM sync_queue
  WHERE ($1 = '' OR entity_type = $1)
  `, string(entityType)).Scan(
		&s.Pending,
		&s.Running,
		&s.Completed,
		&s.Failed,
		&s.Cancelled,
	)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	return &s, nil
}

// WaitForNotification blocks until a notification signals new jobs for the
// given entity type, or the context ends.
func (r *QueueRepo) WaitForNotification(ctx context.Context, entityType model.EntityType) error {
	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			_ = cerr
		}
	}()

	channel := "sync_jobs_" + string(entityType)
	quoted := pgx.Identifier{channel}.Sanitize()

	if _, execErr := conn.ExecContext(ctx, "LISTEN "+quoted); execErr != nil {
		return fmt.Errorf("listen %s: %w", channel, execErr)
	}
	defer func() {
		if _, execErr := conn.ExecContext(context.Background(), "UNLISTEN "+quoted); execErr != nil {
			_ = execErr
		}
	}()

	return conn.Raw(func(dc any) error {
		sc, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		_, notifyErr := sc.Conn().WaitForNotification(ctx)
		return notifyErr
	})
}

// GetByID retrieves a sync job by its ID.
func (r *QueueRepo) GetByID(ctx context.Context, id string) (*model.SyncJob, error) {
	var job *model.SyncJob
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, `
			SELECT `+syncJobColumns+`
			FROM sync_queue
			WHERE id = $1
		`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		job, err = collectSyncJobFromRows(rows)
		return err
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sync job: %w", err)
	}
	return job, nil
}

// JobStatesBySweep returns a bitmask describing which overrun states currently
// exist for jobs spawned by the named sweep. "Running" requires an unexpired
// lease, so an abandoned job does not suppress the next fire forever.
func (r *QueueRepo) JobStatesBySweep(
	ctx context.Context,
	sweepName string,
	now time.Time,
) (schedule.OverrunStateMask, error) {
	query := `
		SELECT
			COALESCE(bool_or(status = 'running' AND lease_expires_at > $1), FALSE) AS has_running,
			COALESCE(bool_or(status = 'pending'), FALSE) AS has_pending,
			COALESCE(bool_or(status = 'pending' AND COALESCE(attempt_count, 0) > 0), FALSE) AS has_retrying
		FROM sync_queue
		WHERE metadata->>'scheduler.sweep_name' = $2
		  AND status IN ('running', 'pending')
	`

	var hasRunning, hasPending, hasRetrying bool
	if err := r.DB.QueryRowContext(ctx, query, now.UTC(), sweepName).Scan(&hasRunning, &hasPending, &hasRetrying); err != nil {
		return 0, fmt.Errorf("check job states by sweep: %w", err)
	}

	var mask schedule.OverrunStateMask
	if hasRunning {
		mask |= schedule.OverrunStateRunning
	}
	if hasPending {
		mask |= schedule.OverrunStatePending
	}
	if hasRetrying {
		mask |= schedule.OverrunStateRetrying
	}

	return mask, nil
}

// Delete removes a terminal or pending job by ID. Leased jobs are refused.
func (r *QueueRepo) Delete(ctx context.Context, id string) error {
	currentTime := r.timeProvider.Now()
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM sync_queue
		WHERE id = $1
		  AND status IN ('pending', 'completed', 'failed', 'cancelled')
		  AND (lease_expires_at IS NULL OR lease_expires_at <= $2)
	`, id, currentTime.UTC())
	if err != nil {
		return fmt.Errorf("delete sync job: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		return nil
	}

	job, err := r.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return ErrJobNotFound
		}
		return fmt.Errorf("re-check job after delete attempt: %w", err)
	}

	if !isJobStatusDeletable(job.Status) {
		return ErrJobNotDeletable
	}

	if job.LeaseExpiresAt != nil && currentTime.Before(*job.LeaseExpiresAt) {
		return ErrJobReserved
	}

	return errors.New("unexpected state: job is in deletable state but delete failed")
}

// isJobStatusDeletable returns true if a job in the given status can be safely deleted.
func isJobStatusDeletable(status model.JobStatus) bool {
	return status == model.JobStatusPending ||
		status == model.JobStatusCompleted ||
		status == model.JobStatusFailed ||
		status == model.JobStatusCancelled
}
