package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/openbench/jurisync/internal/core"
	"github.com/openbench/jurisync/internal/data/pgxutil"
	"github.com/openbench/jurisync/internal/domain/model"
)

const (
	defaultScanLimit = 500
	maxScanLimit     = 5000
)

// QualityRepo implements the QualityRepository scan queries using PostgreSQL.
// Every query is bounded and read-only so the validator can run alongside
// sync workers without holding locks.
type QualityRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewQualityRepo creates a new QualityRepo with the given database connection.
func NewQualityRepo(db *sql.DB) *QualityRepo {
	return &QualityRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

func normalizeScanLimit(limit int) int {
	if limit <= 0 {
		return defaultScanLimit
	}
	if limit > maxScanLimit {
		return maxScanLimit
	}
	return limit
}

// entityTable maps a syncable entity type onto its table. Queue-only types
// (cleanup, full) have no table and are rejected.
func entityTable(entityType model.EntityType) (string, error) {
	switch entityType {
	case model.EntityTypeCourt:
		return "courts", nil
	case model.EntityTypeJudge:
		return "judges", nil
	case model.EntityTypeDecision:
		return "decisions", nil
	default:
		return "", fmt.Errorf("entity type %q has no backing table", entityType)
	}
}

// EntityCounts returns row counts for every scanned table.
func (r *QualityRepo) EntityCounts(ctx context.Context) (*model.EntityCounts, error) {
	var counts model.EntityCounts
	err := r.DB.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM courts),
			(SELECT count(*) FROM judges),
			(SELECT count(*) FROM decisions),
			(SELECT count(*) FROM court_assignments)
	`).Scan(&counts.Courts, &counts.Judges, &counts.Decisions, &counts.Assignments)
	if err != nil {
		return nil, fmt.Errorf("entity counts: %w", err)
	}
	return &counts, nil
}

// OrphanedDecisions returns decisions whose judge or court reference no
// longer resolves. A decision dangling on both sides yields two rows.
func (r *QualityRepo) OrphanedDecisions(ctx context.Context, limit int) ([]core.OrphanedDecision, error) {
	limit = normalizeScanLimit(limit)

	var out []core.OrphanedDecision
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			SELECT id::text, external_id, dangling_column, dangling_id FROM (
				SELECT d.id, d.external_id, 'judge_id' AS dangling_column, d.judge_id::text AS dangling_id, d.created_at
				FROM decisions d
				WHERE d.judge_id IS NOT NULL
				  AND NOT EXISTS (SELECT 1 FROM judges j WHERE j.id = d.judge_id)
				UNION ALL
				SELECT d.id, d.external_id, 'court_id', d.court_id::text, d.created_at
				FROM decisions d
				WHERE d.court_id IS NOT NULL
				  AND NOT EXISTS (SELECT 1 FROM courts c WHERE c.id = d.court_id)
			) orphans
			ORDER BY created_at ASC, id ASC
			LIMIT $1
		`, limit)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()

		for rows.Next() {
			var row core.OrphanedDecision
			if serr := rows.Scan(&row.DecisionID, &row.ExternalID, &row.DanglingColumn, &row.DanglingID); serr != nil {
				return serr
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("orphaned decisions: %w", err)
	}
	return out, nil
}

// OrphanedAssignments returns assignment rows pointing at a judge or court
// that no longer exists.
func (r *QualityRepo) OrphanedAssignments(ctx context.Context, limit int) ([]core.OrphanedAssignment, error) {
	limit = normalizeScanLimit(limit)

	var out []core.OrphanedAssignment
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			SELECT id::text, dangling_column, dangling_id FROM (
				SELECT a.id, 'judge_id' AS dangling_column, a.judge_id::text AS dangling_id, a.created_at
				FROM court_assignments a
				WHERE NOT EXISTS (SELECT 1 FROM judges j WHERE j.id = a.judge_id)
				UNION ALL
				SELECT a.id, 'court_id', a.court_id::text, a.created_at
				FROM court_assignments a
				WHERE NOT EXISTS (SELECT 1 FROM courts c WHERE c.id = a.court_id)
			) orphans
			ORDER BY created_at ASC, id ASC
			LIMIT $1
		`, limit)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()

		for rows.Next() {
			var row core.OrphanedAssignment
			if serr := rows.Scan(&row.AssignmentID, &row.DanglingColumn, &row.DanglingID); serr != nil {
				return serr
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("orphaned assignments: %w", err)
	}
	return out, nil
}

// DuplicateExternalIDs groups rows sharing an external identifier. The
// upsert path keys on external_id, so hits here mean constraint drift and
// are always worth surfacing.
func (r *QualityRepo) DuplicateExternalIDs(ctx context.Context, entityType model.EntityType) ([]core.DuplicateGroup, error) {
	table, err := entityTable(entityType)
	if err != nil {
		return nil, err
	}

	// table comes from the entityTable whitelist, never caller input.
	query := fmt.Sprintf(`
		SELECT external_id, count(*)::int AS cnt, array_agg(id::text ORDER BY created_at ASC) AS ids
		FROM %s
		GROUP BY external_id
		HAVING count(*) > 1
		ORDER BY cnt DESC, external_id ASC
	`, table)

	return r.collectDuplicateGroups(ctx, query)
}

// DuplicateDocketNumbers groups decisions sharing a docket number. Dockets
// are not unique upstream, so these are review candidates rather than
// guaranteed defects.
func (r *QualityRepo) DuplicateDocketNumbers(ctx context.Context) ([]core.DuplicateGroup, error) {
	query := `
		SELECT docket_number, count(*)::int AS cnt, array_agg(id::text ORDER BY created_at ASC) AS ids
		FROM decisions
		WHERE docket_number IS NOT NULL AND btrim(docket_number) <> ''
		GROUP BY docket_number
		HAVING count(*) > 1
		ORDER BY cnt DESC, docket_number ASC
	`

	return r.collectDuplicateGroups(ctx, query)
}

func (r *QualityRepo) collectDuplicateGroups(ctx context.Context, query string) ([]core.DuplicateGroup, error) {
	var out []core.DuplicateGroup
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, query)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()

		for rows.Next() {
			var group core.DuplicateGroup
			if serr := rows.Scan(&group.ExternalID, &group.Count, &group.EntityIDs); serr != nil {
				return serr
			}
			out = append(out, group)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("duplicate groups: %w", err)
	}
	return out, nil
}

// StaleEntities returns rows whose last successful sync predates the
// threshold, never-synced rows first.
func (r *QualityRepo) StaleEntities(ctx context.Context, params core.StaleScanParams) ([]core.StaleEntity, error) {
	table, err := entityTable(params.EntityType)
	if err != nil {
		return nil, err
	}

	nameColumn := "name"
	if params.EntityType == model.EntityTypeDecision {
		nameColumn = "case_name"
	}

	limit := normalizeScanLimit(params.Limit)
	cutoff := r.timeProvider.Now().UTC().Add(-params.OlderThan)

	// table and nameColumn come from the entityTable whitelist.
	query := fmt.Sprintf(`
		SELECT id::text, external_id, %s, last_synced_at
		FROM %s
		WHERE last_synced_at IS NULL OR last_synced_at < $1
		ORDER BY last_synced_at ASC NULLS FIRST, created_at ASC
		LIMIT $2
	`, nameColumn, table)

	var out []core.StaleEntity
	qerr := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, cutoff, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var row core.StaleEntity
			if serr := rows.Scan(&row.EntityID, &row.ExternalID, &row.Name, &row.LastSyncedAt); serr != nil {
				return serr
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	if qerr != nil {
		return nil, fmt.Errorf("stale entities: %w", qerr)
	}
	return out, nil
}

// MissingRequiredFields returns rows with blank required text fields. The
// schema blocks NULLs, so the scan looks for empty and whitespace values the
// upstream feed occasionally produces.
func (r *QualityRepo) MissingRequiredFields(ctx context.Context, entityType model.EntityType, limit int) ([]core.FieldGap, error) {
	limit = normalizeScanLimit(limit)

	var query string
	switch entityType {
	case model.EntityTypeCourt:
		query = `
			SELECT id::text, external_id, array_remove(ARRAY[
				CASE WHEN btrim(name) = '' THEN 'name' END,
				CASE WHEN btrim(slug) = '' THEN 'slug' END,
				CASE WHEN btrim(jurisdiction) = '' THEN 'jurisdiction' END
			], NULL) AS missing
			FROM courts
			WHERE btrim(name) = '' OR btrim(slug) = '' OR btrim(jurisdiction) = ''
			ORDER BY created_at ASC
			LIMIT $1
		`
	case model.EntityTypeJudge:
		query = `
			SELECT id::text, external_id, array_remove(ARRAY[
				CASE WHEN btrim(name) = '' THEN 'name' END,
				CASE WHEN btrim(slug) = '' THEN 'slug' END,
				CASE WHEN btrim(jurisdiction) = '' THEN 'jurisdiction' END
			], NULL) AS missing
			FROM judges
			WHERE btrim(name) = '' OR btrim(slug) = '' OR btrim(jurisdiction) = ''
			ORDER BY created_at ASC
			LIMIT $1
		`
	case model.EntityTypeDecision:
		query = `
			SELECT id::text, external_id, array_remove(ARRAY[
				CASE WHEN btrim(case_name) = '' THEN 'case_name' END,
				CASE WHEN btrim(outcome) = '' THEN 'outcome' END
			], NULL) AS missing
			FROM decisions
			WHERE btrim(case_name) = '' OR btrim(outcome) = ''
			ORDER BY created_at ASC
			LIMIT $1
		`
	default:
		return nil, fmt.Errorf("entity type %q has no required-field scan", entityType)
	}

	var out []core.FieldGap
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, query, limit)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()

		for rows.Next() {
			var gap core.FieldGap
			if serr := rows.Scan(&gap.EntityID, &gap.ExternalID, &gap.Missing); serr != nil {
				return serr
			}
			out = append(out, gap)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("missing required fields: %w", err)
	}
	return out, nil
}

// PrimaryConflicts returns judges holding more than one open primary
// assignment.
func (r *QualityRepo) PrimaryConflicts(ctx context.Context, limit int) ([]core.PrimaryConflict, error) {
	limit = normalizeScanLimit(limit)

	var out []core.PrimaryConflict
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			SELECT j.id::text, j.name, count(*)::int AS active_primary_count
			FROM court_assignments a
			JOIN judges j ON j.id = a.judge_id
			WHERE a.assignment_type = 'primary' AND a.end_date IS NULL
			GROUP BY j.id, j.name
			HAVING count(*) > 1
			ORDER BY count(*) DESC, j.name ASC
			LIMIT $1
		`, limit)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()

		for rows.Next() {
			var row core.PrimaryConflict
			if serr := rows.Scan(&row.JudgeID, &row.JudgeName, &row.ActivePrimaryCount); serr != nil {
				return serr
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("primary conflicts: %w", err)
	}
	return out, nil
}

// OverlapCandidates returns the full assignment sets of every (judge, court)
// pair holding more than one row, ordered so the validator can run pairwise
// interval checks in a single pass.
func (r *QualityRepo) OverlapCandidates(ctx context.Context, limit int) ([]*model.CourtAssignment, error) {
	limit = normalizeScanLimit(limit)

	var out []*model.CourtAssignment
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			SELECT `+assignmentColumns+`
			FROM court_assignments
			WHERE (judge_id, court_id) IN (
				SELECT judge_id, court_id
				FROM court_assignments
				GROUP BY judge_id, court_id
				HAVING count(*) > 1
			)
			ORDER BY judge_id ASC, court_id ASC, start_date ASC, id ASC
			LIMIT $1
		`, limit)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()

		collected, cerr := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.CourtAssignment])
		if cerr != nil {
			return cerr
		}
		out = collected
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("overlap candidates: %w", err)
	}
	return out, nil
}

// JurisdictionMismatches returns open assignments where the court's
// jurisdiction disagrees with the judge's.
func (r *QualityRepo) JurisdictionMismatches(ctx context.Context, limit int) ([]core.JurisdictionMismatch, error) {
	limit = normalizeScanLimit(limit)

	var out []core.JurisdictionMismatch
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			SELECT j.id::text, j.name, j.jurisdiction, c.id::text, c.name, c.jurisdiction
			FROM court_assignments a
			JOIN judges j ON j.id = a.judge_id
			JOIN courts c ON c.id = a.court_id
			WHERE a.end_date IS NULL
			  AND j.jurisdiction <> c.jurisdiction
			ORDER BY j.name ASC, c.name ASC
			LIMIT $1
		`, limit)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()

		for rows.Next() {
			var row core.JurisdictionMismatch
			if serr := rows.Scan(
				&row.JudgeID,
				&row.JudgeName,
				&row.JudgeJurisdiction,
				&row.CourtID,
				&row.CourtName,
				&row.CourtJurisdiction,
			); serr != nil {
				return serr
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("jurisdiction mismatches: %w", err)
	}
	return out, nil
}

// UnmappedOutcomes returns decisions whose upstream disposition fell through
// the outcome taxonomy into the catch-all bucket.
func (r *QualityRepo) UnmappedOutcomes(ctx context.Context, limit int) ([]core.OutcomeReviewRow, error) {
	limit = normalizeScanLimit(limit)

	var out []core.OutcomeReviewRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			SELECT id::text, external_id, raw_outcome
			FROM decisions
			WHERE outcome = 'other'
			  AND raw_outcome IS NOT NULL
			  AND btrim(raw_outcome) <> ''
			ORDER BY created_at ASC
			LIMIT $1
		`, limit)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()

		for rows.Next() {
			var row core.OutcomeReviewRow
			if serr := rows.Scan(&row.DecisionID, &row.ExternalID, &row.RawOutcome); serr != nil {
				return serr
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("unmapped outcomes: %w", err)
	}
	return out, nil
}

// JudgesBelowCaseThreshold returns judges whose denormalized case count sits
// under the analytics readiness minimum.
func (r *QualityRepo) JudgesBelowCaseThreshold(ctx context.Context, threshold, limit int) ([]core.JudgeCaseCount, error) {
	limit = normalizeScanLimit(limit)

	var out []core.JudgeCaseCount
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			SELECT id::text, external_id, name, case_count
			FROM judges
			WHERE case_count < $1
			ORDER BY case_count ASC, name ASC
			LIMIT $2
		`, threshold, limit)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()

		for rows.Next() {
			var row core.JudgeCaseCount
			if serr := rows.Scan(&row.JudgeID, &row.ExternalID, &row.Name, &row.CaseCount); serr != nil {
				return serr
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("judges below case threshold: %w", err)
	}
	return out, nil
}

// CaseCountDrift returns judges whose stored case_count disagrees with the
// actual decision count, biggest drift first.
func (r *QualityRepo) CaseCountDrift(ctx context.Context, limit int) ([]core.CaseCountDrift, error) {
	limit = normalizeScanLimit(limit)

	var out []core.CaseCountDrift
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			SELECT j.id::text, j.case_count, COALESCE(d.cnt, 0)::int
			FROM judges j
			LEFT JOIN (
				SELECT judge_id, count(*) AS cnt
				FROM decisions
				WHERE judge_id IS NOT NULL
				GROUP BY judge_id
			) d ON d.judge_id = j.id
			WHERE j.case_count <> COALESCE(d.cnt, 0)
			ORDER BY abs(j.case_count - COALESCE(d.cnt, 0)) DESC, j.id ASC
			LIMIT $1
		`, limit)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()

		for rows.Next() {
			var row core.CaseCountDrift
			if serr := rows.Scan(&row.JudgeID, &row.Stored, &row.Actual); serr != nil {
				return serr
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("case count drift: %w", err)
	}
	return out, nil
}
