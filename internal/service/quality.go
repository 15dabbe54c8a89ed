package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/openbench/jurisync/internal/core"
	"github.com/openbench/jurisync/internal/data"
	"github.com/openbench/jurisync/internal/domain/model"
	"github.com/openbench/jurisync/internal/domain/normalize"
	"github.com/openbench/jurisync/internal/observability/metrics"
	"github.com/openbench/jurisync/internal/observability/notify"
	"github.com/openbench/jurisync/internal/observability/statsd"
	"github.com/openbench/jurisync/internal/service/failurenotifier"
)

// ValidationConfig holds tunables for the data-quality battery.
type ValidationConfig struct {
	// JudgeStaleAfter marks judges stale once their last sync is older.
	JudgeStaleAfter time.Duration `json:"judge_stale_after"`
	// CourtStaleAfter marks courts stale once their last sync is older.
	CourtStaleAfter time.Duration `json:"court_stale_after"`
	// AnalyticsCaseThreshold is the minimum case volume for reliable analytics.
	AnalyticsCaseThreshold int `json:"analytics_case_threshold"`
	// ScanLimit bounds the rows each check considers per run.
	ScanLimit int `json:"scan_limit"`
	// AlertCriticalThreshold is the critical-issue count at which a run is
	// forwarded to the failure notifier.
	AlertCriticalThreshold int `json:"alert_critical_threshold"`
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		JudgeStaleAfter:        180 * 24 * time.Hour,
		CourtStaleAfter:        365 * 24 * time.Hour,
		AnalyticsCaseThreshold: 500,
		ScanLimit:              1000,
		AlertCriticalThreshold: 1,
	}
}

// ValidationServiceOptions groups dependencies for ValidationService.
type ValidationServiceOptions struct {
	Quality         core.QualityRepository   // Required: scan queries
	Reports         core.ReportRepository    // Required: report persistence
	Judges          core.JudgeRepository     // Required: name-convention scan
	Courts          core.CourtRepository     // Required: website-integrity scan
	Config          *ValidationConfig        // Optional: tunables
	FailureNotifier *failurenotifier.Service // Optional: critical-report alerting
	Metrics         statsd.Sink              // Optional: metrics sink
	TimeProvider    data.TimeProvider        // Optional: clock, defaults to real time
	Logger          *slog.Logger             // Optional: structured logger
}

// ValidationService runs the data-quality battery: a fixed sequence of bounded
// read-only checks over the synced corpus, assembled into one immutable
// report. Runs are safe to execute concurrently with sync workers; every scan
// is a snapshot read, so findings can be momentarily stale.
type ValidationService struct {
	quality         core.QualityRepository
	reports         core.ReportRepository
	judges          core.JudgeRepository
	courts          core.CourtRepository
	cfg             ValidationConfig
	failureNotifier *failurenotifier.Service
	metrics         statsd.Sink
	timeProvider    data.TimeProvider
	logger          *slog.Logger
}

// NewValidationService constructs a new ValidationService.
func NewValidationService(opts ValidationServiceOptions) (*ValidationService, error) {
	if opts.Quality == nil {
		return nil, errors.New("QualityRepository is required")
	}
	if opts.Reports == nil {
		return nil, errors.New("ReportRepository is required")
	}
	if opts.Judges == nil {
		return nil, errors.New("JudgeRepository is required")
	}
	if opts.Courts == nil {
		return nil, errors.New("CourtRepository is required")
	}

	cfg := DefaultValidationConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	defaults := DefaultValidationConfig()
	if cfg.JudgeStaleAfter <= 0 {
		cfg.JudgeStaleAfter = defaults.JudgeStaleAfter
	}
	if cfg.CourtStaleAfter <= 0 {
		cfg.CourtStaleAfter = defaults.CourtStaleAfter
	}
	if cfg.AnalyticsCaseThreshold <= 0 {
		cfg.AnalyticsCaseThreshold = defaults.AnalyticsCaseThreshold
	}
	if cfg.ScanLimit <= 0 {
		cfg.ScanLimit = defaults.ScanLimit
	}
	if cfg.AlertCriticalThreshold <= 0 {
		cfg.AlertCriticalThreshold = defaults.AlertCriticalThreshold
	}

	timeProvider := opts.TimeProvider
	if timeProvider == nil {
		timeProvider = &data.RealTimeProvider{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "validation_service")
	}

	return &ValidationService{
		quality:         opts.Quality,
		reports:         opts.Reports,
		judges:          opts.Judges,
		courts:          opts.Courts,
		cfg:             cfg,
		failureNotifier: opts.FailureNotifier,
		metrics:         opts.Metrics,
		timeProvider:    timeProvider,
		logger:          logger,
	}, nil
}

// Run executes the full check battery and appends the resulting report to the
// report store. A failed check aborts the run; partial reports are never
// persisted.
func (s *ValidationService) Run(ctx context.Context, triggeredBy string) (*model.ValidationReport, error) {
	if triggeredBy == "" {
		triggeredBy = "manual"
	}
	start := s.timeProvider.Now().UTC()

	counts, err := s.quality.EntityCounts(ctx)
	if err != nil {
		return s.fail(triggeredBy, start, fmt.Errorf("entity counts: %w", err))
	}

	checks := []struct {
		name string
		run  func(context.Context) ([]model.ValidationIssue, error)
	}{
		{"orphans", s.checkOrphans},
		{"duplicates", s.checkDuplicates},
		{"stale", s.checkStale},
		{"missing_fields", s.checkMissingFields},
		{"relationships", s.checkRelationships},
		{"outcomes", s.checkOutcomes},
		{"sample_size", s.checkSampleSize},
		{"case_count_drift", s.checkCaseCountDrift},
		{"court_urls", s.checkCourtURLs},
	}

	var issues []model.ValidationIssue
	for _, check := range checks {
		if err := ctx.Err(); err != nil {
			return s.fail(triggeredBy, start, err)
		}
		found, err := check.run(ctx)
		if err != nil {
			return s.fail(triggeredBy, start, fmt.Errorf("check %s: %w", check.name, err))
		}
		issues = append(issues, found...)
	}

	report := s.assemble(start, counts, issues)
	inserted, err := s.reports.Insert(ctx, report)
	if err != nil {
		return s.fail(triggeredBy, start, fmt.Errorf("insert report: %w", err))
	}

	metrics.EmitValidationRun(s.metrics, metrics.ValidationMetric{
		TriggeredBy:      triggeredBy,
		Duration:         inserted.Duration,
		IssuesBySeverity: severityCounts(inserted.BySeverity),
	})
	s.alertIfCritical(ctx, triggeredBy, inserted)

	if s.logger != nil {
		s.logger.InfoContext(ctx, "validation run finished",
			"report_id", inserted.ID,
			"triggered_by", triggeredBy,
			"total_issues", inserted.TotalIssues,
			"critical", inserted.CriticalCount(),
			"health_score", inserted.HealthScore(),
			"duration", inserted.Duration,
		)
	}
	return inserted, nil
}

func (s *ValidationService) fail(triggeredBy string, start time.Time, err error) (*model.ValidationReport, error) {
	metrics.EmitValidationRun(s.metrics, metrics.ValidationMetric{
		TriggeredBy: triggeredBy,
		Duration:    s.timeProvider.Now().UTC().Sub(start),
		Err:         err,
	})
	return nil, err
}

func (s *ValidationService) assemble(start time.Time, counts *model.EntityCounts, issues []model.ValidationIssue) *model.ValidationReport {
	bySeverity := make(map[model.Severity]int)
	byType := make(map[model.IssueType]int)
	for _, issue := range issues {
		bySeverity[issue.Severity]++
		byType[issue.Type]++
	}

	report := &model.ValidationReport{
		RunAt:       start,
		Duration:    s.timeProvider.Now().UTC().Sub(start),
		Entities:    *counts,
		TotalIssues: len(issues),
		BySeverity:  bySeverity,
		ByType:      byType,
		Issues:      issues,
	}
	report.Recommendations = buildRecommendations(report)
	return report
}

func (s *ValidationService) checkOrphans(ctx context.Context) ([]model.ValidationIssue, error) {
	var issues []model.ValidationIssue

	decisions, err := s.quality.OrphanedDecisions(ctx, s.cfg.ScanLimit)
	if err != nil {
		return nil, err
	}
	for _, row := range decisions {
		metadata := map[string]string{
			"external_id":     row.ExternalID,
			"dangling_column": row.DanglingColumn,
		}
		if row.DanglingID != nil {
			metadata["dangling_id"] = *row.DanglingID
		}
		issues = append(issues, model.ValidationIssue{
			Type:            model.IssueOrphanedRecord,
			Severity:        model.SeverityHigh,
			Entity:          string(model.EntityTypeDecision),
			EntityID:        row.DecisionID,
			Message:         fmt.Sprintf("decision %s has a %s pointing at a row that no longer exists", row.ExternalID, row.DanglingColumn),
			SuggestedAction: "nullify the dangling reference; the next refresh relinks it",
			AutoFixable:     true,
			Metadata:        metadata,
		})
	}

	assignments, err := s.quality.OrphanedAssignments(ctx, s.cfg.ScanLimit)
	if err != nil {
		return nil, err
	}
	for _, row := range assignments {
		metadata := map[string]string{
			"dangling_column": row.DanglingColumn,
		}
		if row.DanglingID != nil {
			metadata["dangling_id"] = *row.DanglingID
		}
		issues = append(issues, model.ValidationIssue{
			Type:            model.IssueOrphanedRecord,
			Severity:        model.SeverityHigh,
			Entity:          "assignment",
			EntityID:        row.AssignmentID,
			Message:         fmt.Sprintf("assignment has a %s pointing at a row that no longer exists", row.DanglingColumn),
			SuggestedAction: "review the assignment and restore or remove it",
			AutoFixable:     false,
			Metadata:        metadata,
		})
	}
	return issues, nil
}

func (s *ValidationService) checkDuplicates(ctx context.Context) ([]model.ValidationIssue, error) {
	var issues []model.ValidationIssue

	for _, entityType := range []model.EntityType{model.EntityTypeCourt, model.EntityTypeJudge, model.EntityTypeDecision} {
		groups, err := s.quality.DuplicateExternalIDs(ctx, entityType)
		if err != nil {
			return nil, err
		}
		for _, group := range groups {
			issues = append(issues, model.ValidationIssue{
				Type:            model.IssueDuplicateIdentifier,
				Severity:        model.SeverityHigh,
				Entity:          string(entityType),
				EntityID:        group.ExternalID,
				Message:         fmt.Sprintf("%d %s rows share external id %q", group.Count, entityType, group.ExternalID),
				SuggestedAction: "merge or remove the duplicate rows",
				AutoFixable:     false,
				Metadata:        map[string]string{"entity_ids": strings.Join(group.EntityIDs, ",")},
			})
		}
	}

	dockets, err := s.quality.DuplicateDocketNumbers(ctx)
	if err != nil {
		return nil, err
	}
	for _, group := range dockets {
		issues = append(issues, model.ValidationIssue{
			Type:            model.IssueDuplicateIdentifier,
			Severity:        model.SeverityMedium,
			Entity:          string(model.EntityTypeDecision),
			EntityID:        group.ExternalID,
			Message:         fmt.Sprintf("%d decisions share docket number %q", group.Count, group.ExternalID),
			SuggestedAction: "confirm the filings are distinct or deduplicate",
			AutoFixable:     false,
			Metadata:        map[string]string{"entity_ids": strings.Join(group.EntityIDs, ",")},
		})
	}
	return issues, nil
}

func (s *ValidationService) checkStale(ctx context.Context) ([]model.ValidationIssue, error) {
	now := s.timeProvider.Now().UTC()
	sweeps := []struct {
		entityType model.EntityType
		olderThan  time.Duration
	}{
		{model.EntityTypeJudge, s.cfg.JudgeStaleAfter},
		{model.EntityTypeCourt, s.cfg.CourtStaleAfter},
	}

	var issues []model.ValidationIssue
	for _, sweep := range sweeps {
		rows, err := s.quality.StaleEntities(ctx, core.StaleScanParams{
			EntityType: sweep.entityType,
			OlderThan:  sweep.olderThan,
			Limit:      s.cfg.ScanLimit,
		})
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			severity := model.SeverityMedium
			var message string
			if row.LastSyncedAt == nil {
				severity = model.SeverityHigh
				message = fmt.Sprintf("%s %q has never completed a sync", sweep.entityType, row.Name)
			} else {
				age := now.Sub(*row.LastSyncedAt)
				if age >= 2*sweep.olderThan {
					severity = model.SeverityHigh
				}
				message = fmt.Sprintf("%s %q last synced %d days ago", sweep.entityType, row.Name, int(age.Hours()/24))
			}
			issues = append(issues, model.ValidationIssue{
				Type:            model.IssueStaleData,
				Severity:        severity,
				Entity:          string(sweep.entityType),
				EntityID:        row.EntityID,
				Message:         message,
				SuggestedAction: "enqueue a refresh job",
				AutoFixable:     true,
				Metadata:        map[string]string{"external_id": row.ExternalID},
			})
		}
	}
	return issues, nil
}

func (s *ValidationService) checkMissingFields(ctx context.Context) ([]model.ValidationIssue, error) {
	var issues []model.ValidationIssue

	for _, entityType := range []model.EntityType{model.EntityTypeCourt, model.EntityTypeJudge, model.EntityTypeDecision} {
		gaps, err := s.quality.MissingRequiredFields(ctx, entityType, s.cfg.ScanLimit)
		if err != nil {
			return nil, err
		}
		for _, gap := range gaps {
			fixable := slugOnlyGap(gap.Missing)
			severity := model.SeverityHigh
			action := "backfill the missing fields from the upstream record"
			if fixable {
				severity = model.SeverityLow
				action = "derive the slug from the entity name"
			}
			issues = append(issues, model.ValidationIssue{
				Type:            model.IssueMissingField,
				Severity:        severity,
				Entity:          string(entityType),
				EntityID:        gap.EntityID,
				Message:         fmt.Sprintf("%s %s is missing required fields: %s", entityType, gap.ExternalID, strings.Join(gap.Missing, ", ")),
				SuggestedAction: action,
				AutoFixable:     fixable,
				Metadata: map[string]string{
					"external_id": gap.ExternalID,
					"missing":     strings.Join(gap.Missing, ","),
				},
			})
		}
	}
	return issues, nil
}

// slugOnlyGap reports whether every missing field can be derived, which today
// means the slug alone is blank.
func slugOnlyGap(missing []string) bool {
	if len(missing) == 0 {
		return false
	}
	for _, field := range missing {
		if field != "slug" {
			return false
		}
	}
	return true
}

func (s *ValidationService) checkRelationships(ctx context.Context) ([]model.ValidationIssue, error) {
	var issues []model.ValidationIssue

	conflicts, err := s.quality.PrimaryConflicts(ctx, s.cfg.ScanLimit)
	if err != nil {
		return nil, err
	}
	for _, row := range conflicts {
		issues = append(issues, model.ValidationIssue{
			Type:            model.IssueInconsistentRelationship,
			Severity:        model.SeverityCritical,
			Entity:          string(model.EntityTypeJudge),
			EntityID:        row.JudgeID,
			Message:         fmt.Sprintf("judge %q holds %d active primary assignments", row.JudgeName, row.ActivePrimaryCount),
			SuggestedAction: "retire all but the current primary seat",
			AutoFixable:     false,
			Metadata:        map[string]string{"active_primary_count": strconv.Itoa(row.ActivePrimaryCount)},
		})
	}

	overlaps, err := s.overlapIssues(ctx)
	if err != nil {
		return nil, err
	}
	issues = append(issues, overlaps...)

	mismatches, err := s.quality.JurisdictionMismatches(ctx, s.cfg.ScanLimit)
	if err != nil {
		return nil, err
	}
	for _, row := range mismatches {
		issues = append(issues, model.ValidationIssue{
			Type:     model.IssueInconsistentRelationship,
			Severity: model.SeverityMedium,
			Entity:   string(model.EntityTypeJudge),
			EntityID: row.JudgeID,
			Message: fmt.Sprintf("judge %q (%s) holds an active seat at %q (%s)",
				row.JudgeName, row.JudgeJurisdiction, row.CourtName, row.CourtJurisdiction),
			SuggestedAction: "verify the seat or correct the jurisdiction",
			AutoFixable:     false,
			Metadata: map[string]string{
				"court_id":           row.CourtID,
				"judge_jurisdiction": string(row.JudgeJurisdiction),
				"court_jurisdiction": string(row.CourtJurisdiction),
			},
		})
	}

	names, err := s.nameIssues(ctx)
	if err != nil {
		return nil, err
	}
	return append(issues, names...), nil
}

// overlapIssues walks assignment candidates grouped by (judge, court) and
// flags rows whose interval intersects an earlier one. Ordering by start date
// lets a running max-end catch every overlap in one pass, and strict Before
// keeps boundary-adjacent intervals clean.
func (s *ValidationService) overlapIssues(ctx context.Context) ([]model.ValidationIssue, error) {
	rows, err := s.quality.OverlapCandidates(ctx, s.cfg.ScanLimit)
	if err != nil {
		return nil, err
	}

	var issues []model.ValidationIssue
	var groupJudge, groupCourt string
	var openEnded bool
	var maxEnd time.Time

	for i, row := range rows {
		if i == 0 || row.JudgeID != groupJudge || row.CourtID != groupCourt {
			groupJudge, groupCourt = row.JudgeID, row.CourtID
			openEnded = row.EndDate == nil
			maxEnd = time.Time{}
			if row.EndDate != nil {
				maxEnd = *row.EndDate
			}
			continue
		}

		if openEnded || row.StartDate.Before(maxEnd) {
			issues = append(issues, model.ValidationIssue{
				Type:            model.IssueInconsistentRelationship,
				Severity:        model.SeverityHigh,
				Entity:          "assignment",
				EntityID:        row.ID,
				Message:         "assignment interval overlaps an earlier assignment for the same judge and court",
				SuggestedAction: "close the earlier interval where the later one starts",
				AutoFixable:     false,
				Metadata: map[string]string{
					"judge_id":   row.JudgeID,
					"court_id":   row.CourtID,
					"start_date": row.StartDate.Format("2006-01-02"),
				},
			})
		}

		if row.EndDate == nil {
			openEnded = true
		} else if row.EndDate.After(maxEnd) {
			maxEnd = *row.EndDate
		}
	}
	return issues, nil
}

func (s *ValidationService) nameIssues(ctx context.Context) ([]model.ValidationIssue, error) {
	var issues []model.ValidationIssue
	scanned := 0
	offset := 0

	for scanned < s.cfg.ScanLimit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageSize := 200
		if remaining := s.cfg.ScanLimit - scanned; remaining < pageSize {
			pageSize = remaining
		}
		judges, err := s.judges.List(ctx, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("list judges: %w", err)
		}
		for _, judge := range judges {
			violations := normalize.NameViolations(judge.Name)
			if len(violations) == 0 {
				continue
			}
			suggestion := normalize.PersonName(judge.Name)
			action := "review the name manually"
			if suggestion.Value != "" && suggestion.Value != judge.Name {
				action = fmt.Sprintf("standardize to %q", suggestion.Value)
			}
			issues = append(issues, model.ValidationIssue{
				Type:            model.IssueInconsistentRelationship,
				Severity:        model.SeverityLow,
				Entity:          string(model.EntityTypeJudge),
				EntityID:        judge.ID,
				Message:         fmt.Sprintf("judge name %q violates naming conventions: %s", judge.Name, strings.Join(violations, ", ")),
				SuggestedAction: action,
				AutoFixable:     false,
				Confidence:      suggestion.Confidence,
				Metadata: map[string]string{
					"external_id":    judge.ExternalID,
					"violations":     strings.Join(violations, ","),
					"suggested_name": suggestion.Value,
				},
			})
		}
		scanned += len(judges)
		if len(judges) < pageSize {
			break
		}
		offset += len(judges)
	}
	return issues, nil
}

func (s *ValidationService) checkOutcomes(ctx context.Context) ([]model.ValidationIssue, error) {
	rows, err := s.quality.UnmappedOutcomes(ctx, s.cfg.ScanLimit)
	if err != nil {
		return nil, err
	}

	var issues []model.ValidationIssue
	for _, row := range rows {
		raw := ""
		if row.RawOutcome != nil {
			raw = *row.RawOutcome
		}
		suggestion := normalize.Outcome(raw)
		hasSuggestion := suggestion.Confidence > 0 && suggestion.Value != string(model.OutcomeOther)

		severity := model.SeverityMedium
		action := "classify the outcome manually"
		if hasSuggestion {
			severity = model.SeverityLow
			action = fmt.Sprintf("map %q to %q", raw, suggestion.Value)
		}
		metadata := map[string]string{
			"external_id": row.ExternalID,
			"raw_outcome": raw,
		}
		if hasSuggestion {
			metadata["suggested_outcome"] = suggestion.Value
		}
		issues = append(issues, model.ValidationIssue{
			Type:            model.IssueDataIntegrity,
			Severity:        severity,
			Entity:          string(model.EntityTypeDecision),
			EntityID:        row.DecisionID,
			Message:         fmt.Sprintf("decision outcome %q is outside the canonical taxonomy", raw),
			SuggestedAction: action,
			AutoFixable:     hasSuggestion,
			Confidence:      suggestion.Confidence,
			Metadata:        metadata,
		})
	}
	return issues, nil
}

func (s *ValidationService) checkSampleSize(ctx context.Context) ([]model.ValidationIssue, error) {
	threshold := s.cfg.AnalyticsCaseThreshold
	rows, err := s.quality.JudgesBelowCaseThreshold(ctx, threshold, s.cfg.ScanLimit)
	if err != nil {
		return nil, err
	}

	var issues []model.ValidationIssue
	for _, row := range rows {
		ratio := float64(row.CaseCount) / float64(threshold)
		severity := model.SeverityCritical
		switch {
		case ratio >= 0.8:
			severity = model.SeverityLow
		case ratio >= 0.5:
			severity = model.SeverityMedium
		case ratio >= 0.2:
			severity = model.SeverityHigh
		}
		issues = append(issues, model.ValidationIssue{
			Type:            model.IssueDataIntegrity,
			Severity:        severity,
			Entity:          string(model.EntityTypeJudge),
			EntityID:        row.JudgeID,
			Message:         fmt.Sprintf("judge %q has %d decided cases, below the %d analytics minimum", row.Name, row.CaseCount, threshold),
			SuggestedAction: "hold analytics readiness until more cases sync",
			AutoFixable:     false,
			Metadata: map[string]string{
				"external_id": row.ExternalID,
				"case_count":  strconv.Itoa(row.CaseCount),
				"threshold":   strconv.Itoa(threshold),
			},
		})
	}
	return issues, nil
}

func (s *ValidationService) checkCaseCountDrift(ctx context.Context) ([]model.ValidationIssue, error) {
	rows, err := s.quality.CaseCountDrift(ctx, s.cfg.ScanLimit)
	if err != nil {
		return nil, err
	}

	var issues []model.ValidationIssue
	for _, row := range rows {
		issues = append(issues, model.ValidationIssue{
			Type:            model.IssueDataIntegrity,
			Severity:        model.SeverityMedium,
			Entity:          string(model.EntityTypeJudge),
			EntityID:        row.JudgeID,
			Message:         fmt.Sprintf("stored case count %d disagrees with the actual decision count %d", row.Stored, row.Actual),
			SuggestedAction: "recompute the denormalized case count",
			AutoFixable:     true,
			Metadata: map[string]string{
				"stored": strconv.Itoa(row.Stored),
				"actual": strconv.Itoa(row.Actual),
			},
		})
	}
	return issues, nil
}

func (s *ValidationService) checkCourtURLs(ctx context.Context) ([]model.ValidationIssue, error) {
	var issues []model.ValidationIssue
	scanned := 0
	offset := 0

	for scanned < s.cfg.ScanLimit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageSize := 200
		if remaining := s.cfg.ScanLimit - scanned; remaining < pageSize {
			pageSize = remaining
		}
		courts, err := s.courts.List(ctx, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("list courts: %w", err)
		}
		for _, court := range courts {
			if court.URL == nil {
				continue
			}
			raw := strings.TrimSpace(*court.URL)
			if raw == "" {
				continue
			}
			reason := courtURLProblem(raw)
			if reason == "" {
				continue
			}
			issues = append(issues, model.ValidationIssue{
				Type:            model.IssueDataIntegrity,
				Severity:        model.SeverityLow,
				Entity:          string(model.EntityTypeCourt),
				EntityID:        court.ID,
				Message:         fmt.Sprintf("court website %q %s", raw, reason),
				SuggestedAction: "verify the URL against the upstream record",
				AutoFixable:     false,
				Metadata: map[string]string{
					"external_id": court.ExternalID,
					"url":         raw,
				},
			})
		}
		scanned += len(courts)
		if len(courts) < pageSize {
			break
		}
		offset += len(courts)
	}
	return issues, nil
}

// courtURLProblem returns a short description of why the URL fails the
// integrity check, or "" when it passes.
func courtURLProblem(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "does not parse"
	}
	host := parsed.Hostname()
	if host == "" {
		return "has no host"
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(host); err != nil {
		return "does not resolve to a registrable domain"
	}
	return ""
}

func buildRecommendations(report *model.ValidationReport) []string {
	if report.TotalIssues == 0 {
		return []string{"No issues found."}
	}

	var recs []string
	if n := report.ByType[model.IssueOrphanedRecord]; n > 0 {
		recs = append(recs, fmt.Sprintf("Run the auto-fix pass to clear %d orphaned references.", n))
	}
	if n := report.ByType[model.IssueStaleData]; n > 0 {
		recs = append(recs, fmt.Sprintf("Schedule a stale resweep; %d entities are past their refresh threshold.", n))
	}
	if n := report.ByType[model.IssueDuplicateIdentifier]; n > 0 {
		recs = append(recs, fmt.Sprintf("Review %d duplicate identifier groups before the next full sweep.", n))
	}
	if n := report.ByType[model.IssueMissingField]; n > 0 {
		recs = append(recs, fmt.Sprintf("Backfill %d rows with missing required fields; slugs can be derived automatically.", n))
	}
	if n := report.CriticalCount(); n > 0 {
		recs = append([]string{fmt.Sprintf("Resolve %d critical issues before trusting downstream analytics.", n)}, recs...)
	}
	return recs
}

func (s *ValidationService) alertIfCritical(ctx context.Context, triggeredBy string, report *model.ValidationReport) {
	if s.failureNotifier == nil || !s.failureNotifier.Enabled() {
		return
	}
	if report.CriticalCount() < s.cfg.AlertCriticalThreshold {
		return
	}
	s.failureNotifier.NotifyReportAlert(ctx, notify.ReportAlertPayload{
		ReportID:      report.ID,
		TriggeredBy:   triggeredBy,
		TotalIssues:   report.TotalIssues,
		CriticalCount: report.CriticalCount(),
		HighCount:     report.BySeverity[model.SeverityHigh],
		HealthScore:   report.HealthScore(),
		OccurredAt:    report.RunAt,
	})
}

func severityCounts(bySeverity map[model.Severity]int) map[string]int {
	out := make(map[string]int, len(bySeverity))
	for severity, count := range bySeverity {
		out[string(severity)] = count
	}
	return out
}
