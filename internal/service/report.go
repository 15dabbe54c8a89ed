package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openbench/jurisync/internal/core"
	"github.com/openbench/jurisync/internal/domain/model"
)

// ReportServiceOptions groups dependencies for ReportService.
type ReportServiceOptions struct {
	Repo   core.ReportRepository // Required: validation report store
	Logger *slog.Logger          // Optional: structured logger
}

// ReportService exposes read access to the append-only validation report
// history for operational tooling.
type ReportService struct {
	repo   core.ReportRepository
	logger *slog.Logger
}

// NewReportService constructs a new ReportService.
func NewReportService(opts ReportServiceOptions) (*ReportService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ReportRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "report_service")
	}

	return &ReportService{
		repo:   opts.Repo,
		logger: logger,
	}, nil
}

// GetByID returns a full report including its issue list.
func (s *ReportService) GetByID(ctx context.Context, id string) (*model.ValidationReport, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("report id is required")
	}
	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}
	return report, nil
}

// Latest returns the most recent report.
func (s *ReportService) Latest(ctx context.Context) (*model.ValidationReport, error) {
	report, err := s.repo.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("get latest report: %w", err)
	}
	return report, nil
}

// List returns reports newest first. Pagination defaults are normalized here
// to avoid drift across layers.
func (s *ReportService) List(
	ctx context.Context,
	opts *model.ReportListOptions,
) ([]*model.ValidationReport, error) {
	if opts == nil {
		opts = &model.ReportListOptions{}
	}

	p := normalizePagination(opts.Limit, opts.Offset)
	opts.Limit = p.Limit
	opts.Offset = p.Offset

	reports, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// ReportSummary is the compact listing row shown by operational tooling.
type ReportSummary struct {
	ID          string        `json:"id"`
	RunAt       time.Time     `json:"run_at"`
	Duration    time.Duration `json:"duration"`
	TotalIssues int           `json:"total_issues"`
	Critical    int           `json:"critical"`
	Fixable     int           `json:"fixable"`
	HealthScore float64       `json:"health_score"`
}

// Summarize flattens a report into its listing row.
func Summarize(report *model.ValidationReport) ReportSummary {
	return ReportSummary{
		ID:          report.ID,
		RunAt:       report.RunAt,
		Duration:    report.Duration,
		TotalIssues: report.TotalIssues,
		Critical:    report.CriticalCount(),
		Fixable:     len(report.FixableIssues()),
		HealthScore: report.HealthScore(),
	}
}

// ListSummaries returns compact rows for recent reports, newest first.
func (s *ReportService) ListSummaries(
	ctx context.Context,
	opts *model.ReportListOptions,
) ([]ReportSummary, error) {
	reports, err := s.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	summaries := make([]ReportSummary, 0, len(reports))
	for _, report := range reports {
		summaries = append(summaries, Summarize(report))
	}
	return summaries, nil
}
