package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openbench/jurisync/internal/core"
	"github.com/openbench/jurisync/internal/data"
	"github.com/openbench/jurisync/internal/domain/model"
	"github.com/openbench/jurisync/internal/domain/normalize"
	"github.com/openbench/jurisync/internal/observability/statsd"
)

// autofixRunLockKey is the cache key guarding against concurrent fix passes
// across processes.
const autofixRunLockKey = "autofix:run-lock"

// ErrFixRunActive is returned when another auto-fix pass holds the run lock.
var ErrFixRunActive = errors.New("another auto-fix pass is already running")

// FixStatus is the outcome of one attempted fix.
type FixStatus string

const (
	FixStatusApplied FixStatus = "applied"
	FixStatusSkipped FixStatus = "skipped"
	FixStatusFailed  FixStatus = "failed"
)

// FixResult records one attempted fix and why it ended the way it did.
type FixResult struct {
	IssueType model.IssueType `json:"issue_type"`
	Entity    string          `json:"entity"`
	EntityID  string          `json:"entity_id"`
	Action    string          `json:"action"`
	Status    FixStatus       `json:"status"`
	Reason    string          `json:"reason,omitempty"`
}

// FixSummary aggregates the outcomes of one auto-fix pass.
type FixSummary struct {
	ReportID string      `json:"report_id"`
	Applied  int         `json:"applied"`
	Skipped  int         `json:"skipped"`
	Failed   int         `json:"failed"`
	Results  []FixResult `json:"results"`
}

func (s *FixSummary) record(result FixResult) {
	s.Results = append(s.Results, result)
	switch result.Status {
	case FixStatusApplied:
		s.Applied++
	case FixStatusSkipped:
		s.Skipped++
	case FixStatusFailed:
		s.Failed++
	}
}

// AutoFixConfig holds tunables for the auto-fix pass.
type AutoFixConfig struct {
	// OutcomeConfidenceMin is the minimum mapping confidence before an
	// outcome reclassification is applied without review.
	OutcomeConfidenceMin float64 `json:"outcome_confidence_min"`
	// ConfirmFromSeverity marks the severity at which fixes need human
	// confirmation instead of automatic application.
	ConfirmFromSeverity model.Severity `json:"confirm_from_severity"`
	// JudgeStaleAfter mirrors the validator's judge staleness threshold.
	JudgeStaleAfter time.Duration `json:"judge_stale_after"`
	// CourtStaleAfter mirrors the validator's court staleness threshold.
	CourtStaleAfter time.Duration `json:"court_stale_after"`
	// AnalyticsCaseThreshold is the readiness gate re-derived after recounts.
	AnalyticsCaseThreshold int `json:"analytics_case_threshold"`
	// ResyncPriority is the queue priority for stale-refresh jobs.
	ResyncPriority int `json:"resync_priority"`
	// RunLockTTL bounds how long a crashed pass can hold the run lock.
	RunLockTTL time.Duration `json:"run_lock_ttl"`
}

// DefaultAutoFixConfig returns an AutoFixConfig with sensible defaults.
func DefaultAutoFixConfig() AutoFixConfig {
	return AutoFixConfig{
		OutcomeConfidenceMin:   0.9,
		ConfirmFromSeverity:    model.SeverityHigh,
		JudgeStaleAfter:        180 * 24 * time.Hour,
		CourtStaleAfter:        365 * 24 * time.Hour,
		AnalyticsCaseThreshold: 500,
		ResyncPriority:         0,
		RunLockTTL:             10 * time.Minute,
	}
}

// AutoFixServiceOptions groups dependencies for AutoFixService.
type AutoFixServiceOptions struct {
	Reports      core.ReportRepository   // Required: source of fixable issues
	Fixes        core.FixRepository      // Required: targeted conditional writes
	Decisions    core.DecisionRepository // Required: orphan revalidation and nullify
	Judges       core.JudgeRepository    // Required: recounts and revalidation
	Courts       core.CourtRepository    // Required: revalidation and slug derivation
	Progress     core.ProgressRepository // Required: readiness re-derivation
	Queue        ResyncQueue             // Required: stale-refresh fan-out
	Cache        core.CacheRepository    // Optional: cross-process run lock
	Config       *AutoFixConfig          // Optional: tunables
	Metrics      statsd.Sink             // Optional: metrics sink
	TimeProvider data.TimeProvider       // Optional: clock, defaults to real time
	Logger       *slog.Logger            // Optional: structured logger
}

// AutoFixService applies the auto-fixable findings of a validation report.
// Every fix revalidates its precondition before writing, so replaying a pass
// over an old report is harmless: fixes whose defect has since healed are
// skipped, not reapplied.
type AutoFixService struct {
	reports      core.ReportRepository
	fixes        core.FixRepository
	decisions    core.DecisionRepository
	judges       core.JudgeRepository
	courts       core.CourtRepository
	progress     core.ProgressRepository
	queue        ResyncQueue
	cache        core.CacheRepository
	cfg          AutoFixConfig
	metrics      statsd.Sink
	timeProvider data.TimeProvider
	logger       *slog.Logger
}

// NewAutoFixService constructs a new AutoFixService.
func NewAutoFixService(opts AutoFixServiceOptions) (*AutoFixService, error) {
	if opts.Reports == nil {
		return nil, errors.New("ReportRepository is required")
	}
	if opts.Fixes == nil {
		return nil, errors.New("FixRepository is required")
	}
	if opts.Decisions == nil {
		return nil, errors.New("DecisionRepository is required")
	}
	if opts.Judges == nil {
		return nil, errors.New("JudgeRepository is required")
	}
	if opts.Courts == nil {
		return nil, errors.New("CourtRepository is required")
	}
	if opts.Progress == nil {
		return nil, errors.New("ProgressRepository is required")
	}
	if opts.Queue == nil {
		return nil, errors.New("ResyncQueue is required")
	}

	cfg := DefaultAutoFixConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	defaults := DefaultAutoFixConfig()
	if cfg.OutcomeConfidenceMin <= 0 {
		cfg.OutcomeConfidenceMin = defaults.OutcomeConfidenceMin
	}
	if !cfg.ConfirmFromSeverity.Valid() {
		cfg.ConfirmFromSeverity = defaults.ConfirmFromSeverity
	}
	if cfg.JudgeStaleAfter <= 0 {
		cfg.JudgeStaleAfter = defaults.JudgeStaleAfter
	}
	if cfg.CourtStaleAfter <= 0 {
		cfg.CourtStaleAfter = defaults.CourtStaleAfter
	}
	if cfg.AnalyticsCaseThreshold <= 0 {
		cfg.AnalyticsCaseThreshold = defaults.AnalyticsCaseThreshold
	}
	if cfg.RunLockTTL <= 0 {
		cfg.RunLockTTL = defaults.RunLockTTL
	}

	timeProvider := opts.TimeProvider
	if timeProvider == nil {
		timeProvider = &data.RealTimeProvider{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "autofix_service")
	}

	return &AutoFixService{
		reports:      opts.Reports,
		fixes:        opts.Fixes,
		decisions:    opts.Decisions,
		judges:       opts.Judges,
		courts:       opts.Courts,
		progress:     opts.Progress,
		queue:        opts.Queue,
		cache:        opts.Cache,
		cfg:          cfg,
		metrics:      opts.Metrics,
		timeProvider: timeProvider,
		logger:       logger,
	}, nil
}

// ApplyLatest runs the pass over the most recent validation report. When no
// report exists yet the pass is a no-op.
func (s *AutoFixService) ApplyLatest(ctx context.Context) (*FixSummary, error) {
	report, err := s.reports.Latest(ctx)
	if err != nil {
		if errors.Is(err, data.ErrReportNotFound) {
			if s.logger != nil {
				s.logger.DebugContext(ctx, "no validation report to fix yet")
			}
			return &FixSummary{}, nil
		}
		return nil, fmt.Errorf("load latest report: %w", err)
	}
	return s.Apply(ctx, report)
}

// ApplyReport runs the pass over a specific report.
func (s *AutoFixService) ApplyReport(ctx context.Context, reportID string) (*FixSummary, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", reportID, err)
	}
	return s.Apply(ctx, report)
}

// Apply walks the report's auto-fixable issues and applies each fix whose
// precondition still holds.
func (s *AutoFixService) Apply(ctx context.Context, report *model.ValidationReport) (*FixSummary, error) {
	if report == nil {
		return nil, errors.New("report is required")
	}

	release, err := s.acquireRunLock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	run := &fixRun{active: make(map[model.EntityType]map[string]struct{})}
	summary := &FixSummary{ReportID: report.ID}
	fixable := report.FixableIssues()

	for _, issue := range fixable {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		result := s.applyIssue(ctx, run, issue)
		summary.record(result)
		s.emitFix(issue, result)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "auto-fix pass finished",
			"report_id", report.ID,
			"fixable", len(fixable),
			"applied", summary.Applied,
			"skipped", summary.Skipped,
			"failed", summary.Failed,
		)
	}
	return summary, nil
}

// acquireRunLock takes the cross-process run lock when a cache is configured.
// A cancelled release leaves the key to expire via its TTL.
func (s *AutoFixService) acquireRunLock(ctx context.Context) (func(), error) {
	if s.cache == nil {
		return func() {}, nil
	}
	stamp := []byte(s.timeProvider.Now().UTC().Format(time.RFC3339))
	acquired, err := s.cache.SetIfNotExists(ctx, autofixRunLockKey, stamp, s.cfg.RunLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !acquired {
		return nil, ErrFixRunActive
	}
	return func() {
		if _, err := s.cache.Delete(ctx, autofixRunLockKey); err != nil && s.logger != nil {
			s.logger.Warn("failed to release auto-fix run lock", "error", err)
		}
	}, nil
}

// fixRun caches per-pass scan state so repeated stale fixes do not re-list
// the queue for every issue.
type fixRun struct {
	active map[model.EntityType]map[string]struct{}
}

func (s *AutoFixService) applyIssue(ctx context.Context, run *fixRun, issue model.ValidationIssue) FixResult {
	switch issue.Type {
	case model.IssueOrphanedRecord:
		return s.fixOrphan(ctx, issue)
	case model.IssueStaleData:
		return s.fixStale(ctx, run, issue)
	case model.IssueMissingField:
		return s.fixSlug(ctx, issue)
	case model.IssueDataIntegrity:
		if issue.Metadata["suggested_outcome"] != "" {
			return s.fixOutcome(ctx, issue)
		}
		return s.fixCaseCount(ctx, issue)
	default:
		return skippedFix(issue, "none", "no automated fix for this issue type")
	}
}

func (s *AutoFixService) fixOrphan(ctx context.Context, issue model.ValidationIssue) FixResult {
	const action = "nullify_reference"
	if issue.Entity != string(model.EntityTypeDecision) {
		return skippedFix(issue, action, "assignment orphans need human review")
	}

	decision, err := s.decisions.GetByID(ctx, issue.EntityID)
	if err != nil {
		if errors.Is(err, data.ErrDecisionNotFound) {
			return skippedFix(issue, action, "decision no longer exists")
		}
		return failedFix(issue, action, err.Error())
	}

	switch issue.Metadata["dangling_column"] {
	case "judge_id":
		if decision.JudgeID == nil {
			return skippedFix(issue, action, "reference already cleared")
		}
		resolved, err := s.judgeExists(ctx, *decision.JudgeID)
		if err != nil {
			return failedFix(issue, action, err.Error())
		}
		if resolved {
			return skippedFix(issue, action, "reference resolves again")
		}
		return s.nullify(issue, action, func() (bool, error) {
			return s.decisions.NullifyJudge(ctx, issue.EntityID)
		})
	case "court_id":
		if decision.CourtID == nil {
			return skippedFix(issue, action, "reference already cleared")
		}
		resolved, err := s.courtExists(ctx, *decision.CourtID)
		if err != nil {
			return failedFix(issue, action, err.Error())
		}
		if resolved {
			return skippedFix(issue, action, "reference resolves again")
		}
		return s.nullify(issue, action, func() (bool, error) {
			return s.decisions.NullifyCourt(ctx, issue.EntityID)
		})
	default:
		return failedFix(issue, action, fmt.Sprintf("unknown dangling column %q", issue.Metadata["dangling_column"]))
	}
}

func (s *AutoFixService) nullify(issue model.ValidationIssue, action string, clear func() (bool, error)) FixResult {
	ok, err := clear()
	if err != nil {
		return failedFix(issue, action, err.Error())
	}
	if !ok {
		return skippedFix(issue, action, "decision no longer exists")
	}
	return appliedFix(issue, action)
}

func (s *AutoFixService) judgeExists(ctx context.Context, id string) (bool, error) {
	_, err := s.judges.GetByID(ctx, id)
	if errors.Is(err, data.ErrJudgeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *AutoFixService) courtExists(ctx context.Context, id string) (bool, error) {
	_, err := s.courts.GetByID(ctx, id)
	if errors.Is(err, data.ErrCourtNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *AutoFixService) fixStale(ctx context.Context, run *fixRun, issue model.ValidationIssue) FixResult {
	const action = "enqueue_resync"
	externalID := issue.Metadata["external_id"]
	if externalID == "" {
		return failedFix(issue, action, "issue carries no external id")
	}

	entityType := model.EntityType(issue.Entity)
	var lastSynced *time.Time
	var threshold time.Duration
	switch entityType {
	case model.EntityTypeJudge:
		judge, err := s.judges.GetByExternalID(ctx, externalID)
		if err != nil {
			return failedFix(issue, action, err.Error())
		}
		if judge == nil {
			return skippedFix(issue, action, "row no longer exists")
		}
		lastSynced, threshold = judge.LastSyncedAt, s.cfg.JudgeStaleAfter
	case model.EntityTypeCourt:
		court, err := s.courts.GetByExternalID(ctx, externalID)
		if err != nil {
			return failedFix(issue, action, err.Error())
		}
		if court == nil {
			return skippedFix(issue, action, "row no longer exists")
		}
		lastSynced, threshold = court.LastSyncedAt, s.cfg.CourtStaleAfter
	default:
		return failedFix(issue, action, fmt.Sprintf("unsupported entity %q", issue.Entity))
	}

	if lastSynced != nil && s.timeProvider.Now().UTC().Sub(*lastSynced) < threshold {
		return skippedFix(issue, action, "no longer stale")
	}

	active, err := s.activeSet(ctx, run, entityType)
	if err != nil {
		return failedFix(issue, action, err.Error())
	}
	if _, busy := active[externalID]; busy {
		return skippedFix(issue, action, "refresh job already queued")
	}

	_, err = s.queue.Enqueue(ctx, &model.EnqueueRequest{
		EntityType:       entityType,
		EntityExternalID: externalID,
		Operation:        model.OperationUpdate,
		Priority:         s.cfg.ResyncPriority,
		Metadata: map[string]any{
			"sync.origin": "autofix",
		},
	})
	if err != nil {
		return failedFix(issue, action, err.Error())
	}
	active[externalID] = struct{}{}
	return appliedFix(issue, action)
}

func (s *AutoFixService) activeSet(ctx context.Context, run *fixRun, entityType model.EntityType) (map[string]struct{}, error) {
	if set, ok := run.active[entityType]; ok {
		return set, nil
	}
	set, err := activeJobExternalIDs(ctx, s.queue, entityType)
	if err != nil {
		return nil, err
	}
	run.active[entityType] = set
	return set, nil
}

func (s *AutoFixService) fixOutcome(ctx context.Context, issue model.ValidationIssue) FixResult {
	const action = "apply_outcome_mapping"
	suggested := model.Outcome(issue.Metadata["suggested_outcome"])
	if !suggested.Valid() {
		return failedFix(issue, action, fmt.Sprintf("invalid suggested outcome %q", issue.Metadata["suggested_outcome"]))
	}
	if issue.Confidence < s.cfg.OutcomeConfidenceMin {
		return skippedFix(issue, action, fmt.Sprintf("confidence %.2f below %.2f", issue.Confidence, s.cfg.OutcomeConfidenceMin))
	}
	if issue.Severity.Rank() <= s.cfg.ConfirmFromSeverity.Rank() {
		return skippedFix(issue, action, "severity requires confirmation")
	}

	ok, err := s.fixes.SetDecisionOutcome(ctx, issue.EntityID, suggested)
	if err != nil {
		return failedFix(issue, action, err.Error())
	}
	if !ok {
		return skippedFix(issue, action, "outcome already reclassified")
	}
	return appliedFix(issue, action)
}

func (s *AutoFixService) fixCaseCount(ctx context.Context, issue model.ValidationIssue) FixResult {
	const action = "recompute_case_count"
	if issue.Entity != string(model.EntityTypeJudge) {
		return skippedFix(issue, action, "no automated fix for this issue")
	}

	judge, err := s.judges.GetByID(ctx, issue.EntityID)
	if err != nil {
		if errors.Is(err, data.ErrJudgeNotFound) {
			return skippedFix(issue, action, "judge no longer exists")
		}
		return failedFix(issue, action, err.Error())
	}

	if _, err := s.judges.RecomputeCaseCount(ctx, judge.ID); err != nil {
		return failedFix(issue, action, err.Error())
	}

	row, err := s.progress.Get(ctx, model.EntityTypeJudge, judge.ExternalID)
	if err != nil {
		return failedFix(issue, action, err.Error())
	}
	if row != nil {
		ready := row.CaseCount >= s.cfg.AnalyticsCaseThreshold
		if ready != row.IsAnalyticsReady {
			if _, err := s.progress.SetAnalyticsReady(ctx, model.EntityTypeJudge, judge.ExternalID, ready); err != nil {
				return failedFix(issue, action, err.Error())
			}
		}
	}
	return appliedFix(issue, action)
}

func (s *AutoFixService) fixSlug(ctx context.Context, issue model.ValidationIssue) FixResult {
	const action = "derive_slug"
	entityType := model.EntityType(issue.Entity)

	var name, currentSlug string
	switch entityType {
	case model.EntityTypeCourt:
		court, err := s.courts.GetByID(ctx, issue.EntityID)
		if err != nil {
			if errors.Is(err, data.ErrCourtNotFound) {
				return skippedFix(issue, action, "row no longer exists")
			}
			return failedFix(issue, action, err.Error())
		}
		name, currentSlug = court.Name, court.Slug
	case model.EntityTypeJudge:
		judge, err := s.judges.GetByID(ctx, issue.EntityID)
		if err != nil {
			if errors.Is(err, data.ErrJudgeNotFound) {
				return skippedFix(issue, action, "row no longer exists")
			}
			return failedFix(issue, action, err.Error())
		}
		name, currentSlug = judge.Name, judge.Slug
	default:
		return skippedFix(issue, action, "no slug to derive for this entity")
	}

	if strings.TrimSpace(currentSlug) != "" {
		return skippedFix(issue, action, "slug already set")
	}
	slug := normalize.Slug(name)
	if slug == "" {
		return failedFix(issue, action, "cannot derive a slug from an empty name")
	}

	ok, err := s.fixes.SetSlug(ctx, entityType, issue.EntityID, slug)
	if err != nil {
		return failedFix(issue, action, err.Error())
	}
	if !ok {
		return skippedFix(issue, action, "slug already set")
	}
	return appliedFix(issue, action)
}

func (s *AutoFixService) emitFix(issue model.ValidationIssue, result FixResult) {
	if s.metrics == nil {
		return
	}
	s.metrics.Count("autofix.fix", 1, map[string]string{
		"issue_type": string(issue.Type),
		"result":     string(result.Status),
	})
}

func fixOutcomeResult(issue model.ValidationIssue, action string, status FixStatus, reason string) FixResult {
	return FixResult{
		IssueType: issue.Type,
		Entity:    issue.Entity,
		EntityID:  issue.EntityID,
		Action:    action,
		Status:    status,
		Reason:    reason,
	}
}

func appliedFix(issue model.ValidationIssue, action string) FixResult {
	return fixOutcomeResult(issue, action, FixStatusApplied, "")
}

func skippedFix(issue model.ValidationIssue, action, reason string) FixResult {
	return fixOutcomeResult(issue, action, FixStatusSkipped, reason)
}

func failedFix(issue model.ValidationIssue, action, reason string) FixResult {
	return fixOutcomeResult(issue, action, FixStatusFailed, reason)
}
