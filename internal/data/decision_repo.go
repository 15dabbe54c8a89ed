package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/openbench/jurisync/internal/data/pgxutil"
	"github.com/openbench/jurisync/internal/domain/model"
	apperrors "github.com/openbench/jurisync/internal/errors"
)

// ErrDecisionNotFound is returned when a decision does not exist.
var ErrDecisionNotFound = errors.New("decision not found")

// DecisionRepo implements the DecisionRepository interface using PostgreSQL.
type DecisionRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewDecisionRepo creates a new DecisionRepo with the given database connection.
func NewDecisionRepo(db *sql.DB) *DecisionRepo {
	return &DecisionRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

const decisionColumns = `id, external_id, case_name, docket_number, court_id, judge_id, outcome, raw_outcome, decision_date, filed_date, summary, created_at, updated_at, last_synced_at`

// Upsert inserts a decision or refreshes the existing row keyed by external_id.
func (r *DecisionRepo) Upsert(ctx context.Context, params model.UpsertDecisionParams) (*model.Decision, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	currentTime := r.timeProvider.Now().UTC()

	var out model.Decision
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			INSERT INTO decisions (external_id, case_name, docket_number, court_id, judge_id, outcome, raw_outcome, decision_date, filed_date, summary, created_at, updated_at, last_synced_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11, $11)
			ON CONFLICT (external_id) DO UPDATE
			SET case_name = EXCLUDED.case_name,
			    docket_number = EXCLUDED.docket_number,
			    court_id = EXCLUDED.court_id,
			    judge_id = EXCLUDED.judge_id,
			    outcome = EXCLUDED.outcome,
			    raw_outcome = EXCLUDED.raw_outcome,
			    decision_date = EXCLUDED.decision_date,
			    filed_date = EXCLUDED.filed_date,
			    summary = EXCLUDED.summary,
			    updated_at = EXCLUDED.updated_at,
			    last_synced_at = EXCLUDED.last_synced_at
			RETURNING `+decisionColumns,
			params.ExternalID,
			params.CaseName,
			params.DocketNumber,
			params.CourtID,
			params.JudgeID,
			params.Outcome,
			params.RawOutcome,
			params.DecisionDate,
			params.FiledDate,
			params.Summary,
			currentTime,
		)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()
		var cerr error
		out, cerr = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Decision])
		return cerr
	})
	if err != nil {
		return nil, fmt.Errorf("upsert decision: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// GetByID returns a decision by primary key.
func (r *DecisionRepo) GetByID(ctx context.Context, id string) (*model.Decision, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("id is required")
	}

	var out model.Decision
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `SELECT `+decisionColumns+` FROM decisions WHERE id = $1`, id)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()
		var cerr error
		out, cerr = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Decision])
		return cerr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDecisionNotFound
		}
		return nil, fmt.Errorf("get decision: %w", err)
	}
	return &out, nil
}

// GetByExternalID returns a decision by upstream identifier, or (nil, nil)
// when no row matches.
func (r *DecisionRepo) GetByExternalID(ctx context.Context, externalID string) (*model.Decision, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, errors.New("externalID is required")
	}

	var out model.Decision
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `SELECT `+decisionColumns+` FROM decisions WHERE external_id = $1`, externalID)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()
		var cerr error
		out, cerr = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Decision])
		return cerr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get decision by external id: %w", err)
	}
	return &out, nil
}

// ListByJudge returns a judge's decisions, newest decision date first.
// Undated decisions sort last so recent opinions surface first.
func (r *DecisionRepo) ListByJudge(ctx context.Context, judgeID string, limit, offset int) ([]*model.Decision, error) {
	if strings.TrimSpace(judgeID) == "" {
		return nil, errors.New("judgeID is required")
	}
	limit = normalizeJobListLimit(limit)
	offset = max(offset, 0)

	var decisions []*model.Decision
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			SELECT `+decisionColumns+`
			FROM decisions
			WHERE judge_id = $1
			ORDER BY decision_date DESC NULLS LAST, created_at DESC, id DESC
			LIMIT $2 OFFSET $3
		`, judgeID, limit, offset)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()
		collected, cerr := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Decision])
		if cerr != nil {
			return cerr
		}
		decisions = collected
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list decisions by judge: %w", err)
	}
	return decisions, nil
}

// CountByJudge returns the number of decisions referencing the judge.
func (r *DecisionRepo) CountByJudge(ctx context.Context, judgeID string) (int, error) {
	if strings.TrimSpace(judgeID) == "" {
		return 0, errors.New("judgeID is required")
	}

	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM decisions WHERE judge_id = $1`, judgeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count decisions by judge: %w", err)
	}
	return count, nil
}

// Delete removes a decision by ID. Returns false when no row matched.
func (r *DecisionRepo) Delete(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, errors.New("id is required")
	}

	res, err := r.DB.ExecContext(ctx, `DELETE FROM decisions WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete decision: %w", apperrors.MapDBError(err))
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// NullifyJudge clears a dangling judge reference on a decision.
func (r *DecisionRepo) NullifyJudge(ctx context.Context, decisionID string) (bool, error) {
	return r.nullifyColumn(ctx, decisionID, "judge_id")
}

// NullifyCourt clears a dangling court reference on a decision.
func (r *DecisionRepo) NullifyCourt(ctx context.Context, decisionID string) (bool, error) {
	return r.nullifyColumn(ctx, decisionID, "court_id")
}

func (r *DecisionRepo) nullifyColumn(ctx context.Context, decisionID, column string) (bool, error) {
	if strings.TrimSpace(decisionID) == "" {
		return false, errors.New("decisionID is required")
	}

	// column is one of two compile-time constants, never caller input.
	query := fmt.Sprintf(`UPDATE decisions SET %s = NULL, updated_at = $2 WHERE id = $1`, column)

	res, err := r.DB.ExecContext(ctx, query, decisionID, r.timeProvider.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("nullify %s: %w", column, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}
