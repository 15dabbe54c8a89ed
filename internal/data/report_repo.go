package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openbench/jurisync/internal/domain/model"
)

// ErrReportNotFound is returned when a validation report does not exist.
var ErrReportNotFound = errors.New("validation report not found")

// ReportRepo implements the append-only ReportRepository using PostgreSQL.
// Report rows are never updated after insert.
type ReportRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewReportRepo creates a new ReportRepo with the given database connection.
func NewReportRepo(db *sql.DB) *ReportRepo {
	return &ReportRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

const reportColumns = `id, run_at, duration_ms, entities, total_issues, by_severity, by_type, issues, recommendations, created_at`

// Insert appends a validation report and returns the stored row.
func (r *ReportRepo) Insert(ctx context.Context, report *model.ValidationReport) (*model.ValidationReport, error) {
	if report == nil {
		return nil, errors.New("report is required")
	}
	if report.RunAt.IsZero() {
		return nil, errors.New("run_at is required")
	}

	entities, err := json.Marshal(report.Entities)
	if err != nil {
		return nil, fmt.Errorf("marshal entities: %w", err)
	}
	bySeverity, err := json.Marshal(report.BySeverity)
	if err != nil {
		return nil, fmt.Errorf("marshal by_severity: %w", err)
	}
	byType, err := json.Marshal(report.ByType)
	if err != nil {
		return nil, fmt.Errorf("marshal by_type: %w", err)
	}
	issues := []byte(`[]`)
	if report.Issues != nil {
		issues, err = json.Marshal(report.Issues)
		if err != nil {
			return nil, fmt.Errorf("marshal issues: %w", err)
		}
	}
	recommendations := []byte(`[]`)
	if report.Recommendations != nil {
		recommendations, err = json.Marshal(report.Recommendations)
		if err != nil {
			return nil, fmt.Errorf("marshal recommendations: %w", err)
		}
	}

	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO validation_reports (run_at, duration_ms, entities, total_issues, by_severity, by_type, issues, recommendations, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+reportColumns,
		report.RunAt.UTC(),
		report.Duration.Milliseconds(),
		entities,
		report.TotalIssues,
		bySeverity,
		byType,
		issues,
		recommendations,
		r.timeProvider.Now().UTC(),
	)

	stored, err := scanReportRow(row)
	if err != nil {
		return nil, fmt.Errorf("insert validation report: %w", err)
	}
	return stored, nil
}

// GetByID returns one report by primary key.
func (r *ReportRepo) GetByID(ctx context.Context, id string) (*model.ValidationReport, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("id is required")
	}

	row := r.DB.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM validation_reports WHERE id = $1`, id)
	report, err := scanReportRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("get validation report: %w", err)
	}
	return report, nil
}

// Latest returns the most recent report by run time.
func (r *ReportRepo) Latest(ctx context.Context) (*model.ValidationReport, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+reportColumns+`
		FROM validation_reports
		ORDER BY run_at DESC, created_at DESC
		LIMIT 1
	`)
	report, err := scanReportRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("get latest validation report: %w", err)
	}
	return report, nil
}

// List returns reports newest first, optionally bounded to runs at or after
// opts.Since.
func (r *ReportRepo) List(ctx context.Context, opts *model.ReportListOptions) ([]*model.ValidationReport, error) {
	if opts == nil {
		opts = &model.ReportListOptions{}
	}

	limit := normalizeJobListLimit(opts.Limit)
	offset := max(opts.Offset, 0)

	var since *time.Time
	if opts.Since != nil {
		utc := opts.Since.UTC()
		since = &utc
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+reportColumns+`
		FROM validation_reports
		WHERE ($1::timestamptz IS NULL OR run_at >= $1)
		ORDER BY run_at DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`, since, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list validation reports: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var reports []*model.ValidationReport
	for rows.Next() {
		report, scanErr := scanReportRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan validation report: %w", scanErr)
		}
		reports = append(reports, report)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("list validation reports: %w", rowsErr)
	}
	return reports, nil
}

type reportRowScanner interface {
	Scan(dest ...any) error
}

func scanReportRow(scanner reportRowScanner) (*model.ValidationReport, error) {
	var (
		report          model.ValidationReport
		durationMS      int64
		entities        []byte
		bySeverity      []byte
		byType          []byte
		issues          []byte
		recommendations []byte
	)

	if err := scanner.Scan(
		&report.ID,
		&report.RunAt,
		&durationMS,
		&entities,
		&report.TotalIssues,
		&bySeverity,
		&byType,
		&issues,
		&recommendations,
		&report.CreatedAt,
	); err != nil {
		return nil, err
	}

	report.Duration = time.Duration(durationMS) * time.Millisecond

	if err := json.Unmarshal(entities, &report.Entities); err != nil {
		return nil, fmt.Errorf("unmarshal entities: %w", err)
	}
	if err := json.Unmarshal(bySeverity, &report.BySeverity); err != nil {
		return nil, fmt.Errorf("unmarshal by_severity: %w", err)
	}
	if err := json.Unmarshal(byType, &report.ByType); err != nil {
		return nil, fmt.Errorf("unmarshal by_type: %w", err)
	}
	if err := json.Unmarshal(issues, &report.Issues); err != nil {
		return nil, fmt.Errorf("unmarshal issues: %w", err)
	}
	if err := json.Unmarshal(recommendations, &report.Recommendations); err != nil {
		return nil, fmt.Errorf("unmarshal recommendations: %w", err)
	}

	return &report, nil
}
