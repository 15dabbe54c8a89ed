package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/openbench/jurisync/internal/core"
	"github.com/openbench/jurisync/internal/data/pgxutil"
	"github.com/openbench/jurisync/internal/domain/model"
)

// ProgressRepo implements the ProgressRepository interface using PostgreSQL.
type ProgressRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewProgressRepo creates a new ProgressRepo with the given database connection.
func NewProgressRepo(db *sql.DB) *ProgressRepo {
	return &ProgressRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

const progressColumns = `id, entity_type, entity_external_id, phase, case_count, is_analytics_ready, last_error, started_at, updated_at, completed_at`

// phaseRankSQL maps a phase column or value to its pipeline position so
// forward-only checks can run inside a single statement.
func phaseRankSQL(expr string) string {
	return `CASE ` + expr + `
		WHEN 'discovery' THEN 0
		WHEN 'positions' THEN 1
		WHEN 'details'   THEN 2
		WHEN 'opinions'  THEN 3
		WHEN 'dockets'   THEN 4
		WHEN 'complete'  THEN 5
		ELSE -1 END`
}

// Get returns the progress row for one entity, or (nil, nil) when the
// pipelines have not touched it yet.
func (r *ProgressRepo) Get(ctx context.Context, entityType model.EntityType, entityID string) (*model.SyncProgress, error) {
	if strings.TrimSpace(entityID) == "" {
		return nil, errors.New("entityID is required")
	}

	var out model.SyncProgress
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			SELECT `+progressColumns+`
			FROM sync_progress
			WHERE entity_type = $1 AND entity_external_id = $2
		`, entityType, entityID)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()
		var cerr error
		out, cerr = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.SyncProgress])
		return cerr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sync progress: %w", err)
	}
	return &out, nil
}

// List returns progress rows, most recently updated first. An empty entity
// type lists every pipeline.
func (r *ProgressRepo) List(ctx context.Context, entityType model.EntityType, limit, offset int) ([]*model.SyncProgress, error) {
	limit = normalizeJobListLimit(limit)
	offset = max(offset, 0)

	var out []*model.SyncProgress
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			SELECT `+progressColumns+`
			FROM sync_progress
			WHERE ($1 = '' OR entity_type = $1)
			ORDER BY updated_at DESC, id DESC
			LIMIT $2 OFFSET $3
		`, string(entityType), limit, offset)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()
		collected, cerr := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.SyncProgress])
		if cerr != nil {
			return cerr
		}
		out = collected
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list sync progress: %w", err)
	}
	return out, nil
}

// AdvancePhase moves an entity's progress row forward, creating it on first
// touch. Backward and same-phase requests return the current row unchanged,
// so concurrent pipelines and retried jobs cannot regress a phase. A
// successful advance clears last_error.
func (r *ProgressRepo) AdvancePhase(ctx context.Context, params core.AdvancePhaseParams) (*model.SyncProgress, error) {
	if !params.EntityType.Valid() {
		return nil, fmt.Errorf("invalid entity type: %q", params.EntityType)
	}
	if strings.TrimSpace(params.EntityID) == "" {
		return nil, errors.New("entity id is required")
	}
	if !params.Phase.Valid() {
		return nil, fmt.Errorf("invalid phase: %q", params.Phase)
	}

	now := params.Now
	if now.IsZero() {
		now = r.timeProvider.Now()
	}
	now = now.UTC()

	query := `
		INSERT INTO sync_progress (entity_type, entity_external_id, phase, case_count, started_at, updated_at, completed_at)
		VALUES ($1, $2, $3, COALESCE($4, 0), $5, $5, CASE WHEN $3 = 'complete' THEN $5 ELSE NULL END)
		ON CONFLICT (entity_type, entity_external_id) DO UPDATE
		SET phase = EXCLUDED.phase,
		    case_count = COALESCE($4, sync_progress.case_count),
		    last_error = NULL,
		    updated_at = EXCLUDED.updated_at,
		    completed_at = CASE WHEN EXCLUDED.phase = 'complete' THEN EXCLUDED.updated_at ELSE sync_progress.completed_at END
		WHERE ` + phaseRankSQL("EXCLUDED.phase") + ` > ` + phaseRankSQL("sync_progress.phase") + `
		RETURNING ` + progressColumns

	var out model.SyncProgress
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, query, params.EntityType, params.EntityID, params.Phase, params.CaseCount, now)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()
		var cerr error
		out, cerr = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.SyncProgress])
		return cerr
	})
	if err == nil {
		return &out, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("advance phase: %w", err)
	}

	// The conflict target matched but the forward check refused the update.
	current, getErr := r.Get(ctx, params.EntityType, params.EntityID)
	if getErr != nil {
		return nil, fmt.Errorf("advance phase re-check: %w", getErr)
	}
	if current == nil {
		return nil, errors.New("advance phase: row vanished during re-check")
	}
	return current, nil
}

// SetAnalyticsReady flips the readiness gate. Returns false when the entity
// has no progress row.
func (r *ProgressRepo) SetAnalyticsReady(ctx context.Context, entityType model.EntityType, entityID string, ready bool) (bool, error) {
	if strings.TrimSpace(entityID) == "" {
		return false, errors.New("entityID is required")
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE sync_progress
		SET is_analytics_ready = $3,
		    updated_at = $4
		WHERE entity_type = $1 AND entity_external_id = $2
	`, entityType, entityID, ready, r.timeProvider.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("set analytics ready: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// RecordError stores the most recent sync failure on the entity's progress
// row, creating the row when the failure precedes any successful phase.
func (r *ProgressRepo) RecordError(ctx context.Context, params core.RecordSyncErrorParams) error {
	if !params.EntityType.Valid() {
		return fmt.Errorf("invalid entity type: %q", params.EntityType)
	}
	if strings.TrimSpace(params.EntityID) == "" {
		return errors.New("entity id is required")
	}

	now := params.Now
	if now.IsZero() {
		now = r.timeProvider.Now()
	}
	now = now.UTC()

	message := truncateErrorMessage(params.Message)

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO sync_progress (entity_type, entity_external_id, phase, last_error, started_at, updated_at)
		VALUES ($1, $2, 'discovery', $3, $4, $4)
		ON CONFLICT (entity_type, entity_external_id) DO UPDATE
		SET last_error = EXCLUDED.last_error,
		    updated_at = EXCLUDED.updated_at
	`, params.EntityType, params.EntityID, message, now)
	if err != nil {
		return fmt.Errorf("record sync error: %w", err)
	}
	return nil
}

const maxStoredErrorLength = 2000

// truncateErrorMessage bounds stored error text; upstream bodies can be huge.
func truncateErrorMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	if len(msg) <= maxStoredErrorLength {
		return msg
	}
	return msg[:maxStoredErrorLength]
}
