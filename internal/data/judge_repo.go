package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/openbench/jurisync/internal/data/pgxutil"
	"github.com/openbench/jurisync/internal/domain/model"
	apperrors "github.com/openbench/jurisync/internal/errors"
)

// ErrJudgeNotFound is returned when a judge does not exist.
var ErrJudgeNotFound = errors.New("judge not found")

// JudgeRepo implements the JudgeRepository interface using PostgreSQL.
type JudgeRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewJudgeRepo creates a new JudgeRepo with the given database connection.
func NewJudgeRepo(db *sql.DB) *JudgeRepo {
	return &JudgeRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

const judgeColumns = `id, external_id, name, slug, jurisdiction, birth_year, appointer, case_count, created_at, updated_at, last_synced_at`

const assignmentColumns = `id, judge_id, court_id, assignment_type, start_date, end_date, created_at, updated_at`

// Upsert inserts a judge or refreshes the existing row keyed by external_id.
// case_count is never written here; RecomputeCaseCount owns it.
func (r *JudgeRepo) Upsert(ctx context.Context, params model.UpsertJudgeParams) (*model.Judge, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	currentTime := r.timeProvider.Now().UTC()

	var out model.Judge
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			INSERT INTO judges (external_id, name, slug, jurisdiction, birth_year, appointer, created_at, updated_at, last_synced_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $7)
			ON CONFLICT (external_id) DO UPDATE
			SET name = EXCLUDED.name,
			    slug = EXCLUDED.slug,
			    jurisdiction = EXCLUDED.jurisdiction,
			    birth_year = EXCLUDED.birth_year,
			    appointer = EXCLUDED.appointer,
			    updated_at = EXCLUDED.updated_at,
			    last_synced_at = EXCLUDED.last_synced_at
			RETURNING `+judgeColumns,
			params.ExternalID,
			params.Name,
			params.Slug,
			params.Jurisdiction,
			params.BirthYear,
			params.Appointer,
			currentTime,
		)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()
		var cerr error
		out, cerr = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Judge])
		return cerr
	})
	if err != nil {
		return nil, fmt.Errorf("upsert judge: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// GetByID returns a judge by primary key.
func (r *JudgeRepo) GetByID(ctx context.Context, id string) (*model.Judge, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("id is required")
	}

	var out model.Judge
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `SELECT `+judgeColumns+` FROM judges WHERE id = $1`, id)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()
		var cerr error
		out, cerr = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Judge])
		return cerr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJudgeNotFound
		}
		return nil, fmt.Errorf("get judge: %w", err)
	}
	return &out, nil
}

// GetByExternalID returns a judge by upstream identifier, or (nil, nil) when
// no row matches.
func (r *JudgeRepo) GetByExternalID(ctx context.Context, externalID string) (*model.Judge, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, errors.New("externalID is required")
	}

	var out model.Judge
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `SELECT `+judgeColumns+` FROM judges WHERE external_id = $1`, externalID)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()
		var cerr error
		out, cerr = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Judge])
		return cerr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get judge by external id: %w", err)
	}
	return &out, nil
}

// List returns judges ordered by name.
func (r *JudgeRepo) List(ctx context.Context, limit, offset int) ([]*model.Judge, error) {
	limit = normalizeJobListLimit(limit)
	offset = max(offset, 0)

	var judges []*model.Judge
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			SELECT `+judgeColumns+`
			FROM judges
			ORDER BY name ASC, id ASC
			LIMIT $1 OFFSET $2
		`, limit, offset)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()
		collected, cerr := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Judge])
		if cerr != nil {
			return cerr
		}
		judges = collected
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list judges: %w", err)
	}
	return judges, nil
}

// Delete removes a judge by ID. Assignments cascade in the schema.
func (r *JudgeRepo) Delete(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, errors.New("id is required")
	}

	res, err := r.DB.ExecContext(ctx, `DELETE FROM judges WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete judge: %w", apperrors.MapDBError(err))
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ReplaceAssignments swaps a judge's assignment set in one transaction. The
// new rows come from upstream position history, so partial updates would
// leave the set inconsistent with any source snapshot.
func (r *JudgeRepo) ReplaceAssignments(
	ctx context.Context,
	judgeID string,
	assignments []model.ReplaceAssignmentParams,
) error {
	if strings.TrimSpace(judgeID) == "" {
		return errors.New("judgeID is required")
	}
	for i := range assignments {
		if err := assignments[i].Validate(); err != nil {
			return fmt.Errorf("assignment %d: %w", i, err)
		}
	}

	currentTime := r.timeProvider.Now().UTC()

	courtIDs := make([]string, len(assignments))
	types := make([]string, len(assignments))
	starts := make([]time.Time, len(assignments))
	ends := make([]*time.Time, len(assignments))
	for i, a := range assignments {
		courtIDs[i] = a.CourtID
		types[i] = string(a.AssignmentType)
		starts[i] = a.StartDate.UTC()
		if a.EndDate != nil {
			e := a.EndDate.UTC()
			ends[i] = &e
		}
	}

	return pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, `DELETE FROM court_assignments WHERE judge_id = $1`, judgeID); err != nil {
				return fmt.Errorf("clear assignments: %w", err)
			}
			if len(assignments) == 0 {
				return nil
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO court_assignments (judge_id, court_id, assignment_type, start_date, end_date, created_at, updated_at)
				SELECT $1, u.court_id, u.assignment_type, u.start_date, u.end_date, $6, $6
				FROM UNNEST($2::uuid[], $3::text[], $4::date[], $5::date[])
				  AS u(court_id, assignment_type, start_date, end_date)
			`, judgeID, courtIDs, types, starts, ends, currentTime); err != nil {
				return fmt.Errorf("insert assignments: %w", apperrors.MapDBError(err))
			}
			return nil
		},
	})
}

// ListAssignments returns a judge's assignments, most recent start first.
func (r *JudgeRepo) ListAssignments(ctx context.Context, judgeID string) ([]*model.CourtAssignment, error) {
	if strings.TrimSpace(judgeID) == "" {
		return nil, errors.New("judgeID is required")
	}

	var assignments []*model.CourtAssignment
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			SELECT `+assignmentColumns+`
			FROM court_assignments
			WHERE judge_id = $1
			ORDER BY start_date DESC, id ASC
		`, judgeID)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()
		collected, cerr := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.CourtAssignment])
		if cerr != nil {
			return cerr
		}
		assignments = collected
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// RecomputeCaseCount refreshes the judge's denormalized case_count from the
// decisions table and returns the new value.
func (r *JudgeRepo) RecomputeCaseCount(ctx context.Context, judgeID string) (int, error) {
	if strings.TrimSpace(judgeID) == "" {
		return 0, errors.New("judgeID is required")
	}

	query := `
		UPDATE judges
		SET case_count = sub.cnt,
		    updated_at = $2
		FROM (SELECT count(*) AS cnt FROM decisions WHERE judge_id = $1) sub
		WHERE id = $1
		RETURNING case_count
	`

	var count int
	err := r.DB.QueryRowContext(ctx, query, judgeID, r.timeProvider.Now().UTC()).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrJudgeNotFound
		}
		return 0, fmt.Errorf("recompute case count: %w", err)
	}
	return count, nil
}
