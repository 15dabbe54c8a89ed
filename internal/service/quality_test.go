package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/openbench/jurisync/internal/core"
	"github.com/openbench/jurisync/internal/data"
	"github.com/openbench/jurisync/internal/domain/model"
	"github.com/openbench/jurisync/internal/mocks"
	"github.com/openbench/jurisync/internal/observability/notify"
	"github.com/openbench/jurisync/internal/service/failurenotifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type recordedMetric struct {
	name  string
	value int64
	tags  map[string]string
}

// recordingSink is an in-memory statsd.Sink for asserting metric emission.
type recordingSink struct {
	mu      sync.Mutex
	counts  []recordedMetric
	timings []recordedMetric
	gauges  []recordedMetric
}

func (s *recordingSink) Count(name string, value int64, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = append(s.counts, recordedMetric{name: name, value: value, tags: tags})
}

func (s *recordingSink) Gauge(name string, value float64, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gauges = append(s.gauges, recordedMetric{name: name, value: int64(value), tags: tags})
}

func (s *recordingSink) Timing(name string, value time.Duration, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timings = append(s.timings, recordedMetric{name: name, tags: tags})
}

func (s *recordingSink) countsNamed(name string) []recordedMetric {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []recordedMetric
	for _, m := range s.counts {
		if m.name == name {
			out = append(out, m)
		}
	}
	return out
}

// reportAlertCapture records report alerts delivered through the notifier.
type reportAlertCapture struct {
	mu       sync.Mutex
	payloads []notify.ReportAlertPayload
}

func (c *reportAlertCapture) sink() notify.Sink {
	return notify.Funcs{
		ReportAlert: func(_ context.Context, payload notify.ReportAlertPayload) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.payloads = append(c.payloads, payload)
			return nil
		},
	}
}

func (c *reportAlertCapture) captured() []notify.ReportAlertPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]notify.ReportAlertPayload, len(c.payloads))
	copy(out, c.payloads)
	return out
}

type validationFixture struct {
	quality *mocks.MockQualityRepository
	reports *mocks.MockReportRepository
	judges  *mocks.MockJudgeRepository
	courts  *mocks.MockCourtRepository
	sink    *recordingSink
	alerts  *reportAlertCapture
	clock   *data.FixedTimeProvider
	svc     *ValidationService
}

func newValidationTest(t *testing.T, cfg *ValidationConfig) *validationFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	f := &validationFixture{
		quality: mocks.NewMockQualityRepository(ctrl),
		reports: mocks.NewMockReportRepository(ctrl),
		judges:  mocks.NewMockJudgeRepository(ctrl),
		courts:  mocks.NewMockCourtRepository(ctrl),
		sink:    &recordingSink{},
		alerts:  &reportAlertCapture{},
		clock:   data.NewFixedTimeProvider(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
	}

	notifier := failurenotifier.NewService(failurenotifier.Options{
		Sinks: []failurenotifier.SinkRegistration{
			{Name: "test", Sink: f.alerts.sink()},
		},
	})

	svc, err := NewValidationService(ValidationServiceOptions{
		Quality:         f.quality,
		Reports:         f.reports,
		Judges:          f.judges,
		Courts:          f.courts,
		Config:          cfg,
		FailureNotifier: notifier,
		Metrics:         f.sink,
		TimeProvider:    f.clock,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

// corpusFindings holds the per-scan results one validation run should see.
// Zero-valued fields read as clean scans.
type corpusFindings struct {
	counts         model.EntityCounts
	orphanDecs     []core.OrphanedDecision
	orphanAssigns  []core.OrphanedAssignment
	dupCourts      []core.DuplicateGroup
	dupJudges      []core.DuplicateGroup
	dupDecisions   []core.DuplicateGroup
	dupDockets     []core.DuplicateGroup
	staleJudges    []core.StaleEntity
	staleCourts    []core.StaleEntity
	gapsCourt      []core.FieldGap
	gapsJudge      []core.FieldGap
	gapsDecision   []core.FieldGap
	conflicts      []core.PrimaryConflict
	overlaps       []*model.CourtAssignment
	mismatches     []core.JurisdictionMismatch
	outcomes       []core.OutcomeReviewRow
	belowThreshold []core.JudgeCaseCount
	drift          []core.CaseCountDrift
	judgeRows      []*model.Judge
	courtRows      []*model.Court
}

// expectFullBattery wires every scan the run performs, in any order.
func (f *validationFixture) expectFullBattery(ctx context.Context, findings corpusFindings) {
	limit := f.svc.cfg.ScanLimit

	f.quality.EXPECT().EntityCounts(ctx).Return(&findings.counts, nil)
	f.quality.EXPECT().OrphanedDecisions(ctx, limit).Return(findings.orphanDecs, nil)
	f.quality.EXPECT().OrphanedAssignments(ctx, limit).Return(findings.orphanAssigns, nil)
	f.quality.EXPECT().DuplicateExternalIDs(ctx, model.EntityTypeCourt).Return(findings.dupCourts, nil)
	f.quality.EXPECT().DuplicateExternalIDs(ctx, model.EntityTypeJudge).Return(findings.dupJudges, nil)
	f.quality.EXPECT().DuplicateExternalIDs(ctx, model.EntityTypeDecision).Return(findings.dupDecisions, nil)
	f.quality.EXPECT().DuplicateDocketNumbers(ctx).Return(findings.dupDockets, nil)
	f.quality.EXPECT().
		StaleEntities(ctx, core.StaleScanParams{
			EntityType: model.EntityTypeJudge,
			OlderThan:  f.svc.cfg.JudgeStaleAfter,
			Limit:      limit,
		}).
		Return(findings.staleJudges, nil)
	f.quality.EXPECT().
		StaleEntities(ctx, core.StaleScanParams{
			EntityType: model.EntityTypeCourt,
			OlderThan:  f.svc.cfg.CourtStaleAfter,
			Limit:      limit,
		}).
		Return(findings.staleCourts, nil)
	f.quality.EXPECT().MissingRequiredFields(ctx, model.EntityTypeCourt, limit).Return(findings.gapsCourt, nil)
	f.quality.EXPECT().MissingRequiredFields(ctx, model.EntityTypeJudge, limit).Return(findings.gapsJudge, nil)
	f.quality.EXPECT().MissingRequiredFields(ctx, model.EntityTypeDecision, limit).Return(findings.gapsDecision, nil)
	f.quality.EXPECT().PrimaryConflicts(ctx, limit).Return(findings.conflicts, nil)
	f.quality.EXPECT().OverlapCandidates(ctx, limit).Return(findings.overlaps, nil)
	f.quality.EXPECT().JurisdictionMismatches(ctx, limit).Return(findings.mismatches, nil)
	f.quality.EXPECT().UnmappedOutcomes(ctx, limit).Return(findings.outcomes, nil)
	f.quality.EXPECT().JudgesBelowCaseThreshold(ctx, f.svc.cfg.AnalyticsCaseThreshold, limit).Return(findings.belowThreshold, nil)
	f.quality.EXPECT().CaseCountDrift(ctx, limit).Return(findings.drift, nil)
	f.judges.EXPECT().List(ctx, 200, 0).Return(findings.judgeRows, nil)
	f.courts.EXPECT().List(ctx, 200, 0).Return(findings.courtRows, nil)
}

func TestNewValidationService(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	opts := ValidationServiceOptions{
		Quality: mocks.NewMockQualityRepository(ctrl),
		Reports: mocks.NewMockReportRepository(ctrl),
		Judges:  mocks.NewMockJudgeRepository(ctrl),
		Courts:  mocks.NewMockCourtRepository(ctrl),
	}

	t.Run("missing quality repo", func(t *testing.T) {
		broken := opts
		broken.Quality = nil
		_, err := NewValidationService(broken)
		require.ErrorContains(t, err, "QualityRepository is required")
	})

	t.Run("zero config fields fall back to defaults", func(t *testing.T) {
		withCfg := opts
		withCfg.Config = &ValidationConfig{ScanLimit: 50}
		svc, err := NewValidationService(withCfg)
		require.NoError(t, err)
		assert.Equal(t, 50, svc.cfg.ScanLimit)
		assert.Equal(t, DefaultValidationConfig().AlertCriticalThreshold, svc.cfg.AlertCriticalThreshold)
	})
}

func TestValidationRun(t *testing.T) {
	t.Parallel()

	f := newValidationTest(t, nil)
	ctx := context.Background()

	f.expectFullBattery(ctx, corpusFindings{
		counts: model.EntityCounts{Courts: 10, Judges: 5, Decisions: 100, Assignments: 8},
		orphanDecs: []core.OrphanedDecision{
			{DecisionID: "dec-1", ExternalID: "op-1", DanglingColumn: "judge_id", DanglingID: stringPtr("judge-9")},
		},
		dupCourts: []core.DuplicateGroup{
			{ExternalID: "ca9", Count: 2, EntityIDs: []string{"court-1", "court-2"}},
		},
		staleJudges: []core.StaleEntity{
			{EntityID: "judge-1", ExternalID: "j1", Name: "Ada Example"},
		},
		gapsCourt: []core.FieldGap{
			{EntityID: "court-3", ExternalID: "ca3", Missing: []string{"slug"}},
		},
		conflicts: []core.PrimaryConflict{
			{JudgeID: "judge-3", JudgeName: "Two Seats", ActivePrimaryCount: 2},
		},
		outcomes: []core.OutcomeReviewRow{
			{DecisionID: "dec-2", ExternalID: "op-2", RawOutcome: stringPtr("Petition granted")},
		},
		belowThreshold: []core.JudgeCaseCount{
			{JudgeID: "judge-4", ExternalID: "j4", Name: "Light Docket", CaseCount: 450},
		},
		drift: []core.CaseCountDrift{
			{JudgeID: "judge-5", Stored: 10, Actual: 12},
		},
		judgeRows: []*model.Judge{
			{ID: "judge-6", ExternalID: "j6", Name: "SMITH, JOHN"},
		},
		courtRows: []*model.Court{
			{ID: "court-4", ExternalID: "ca4", URL: stringPtr("https://www.uscourts.example.gov")},
			{ID: "court-5", ExternalID: "ca5", URL: stringPtr("https://intranet")},
		},
	})

	var captured *model.ValidationReport
	f.reports.EXPECT().
		Insert(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, report *model.ValidationReport) (*model.ValidationReport, error) {
			captured = report
			inserted := *report
			inserted.ID = "rep-1"
			return &inserted, nil
		})

	report, err := f.svc.Run(ctx, "scheduled")
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, "rep-1", report.ID)

	assert.Equal(t, 10, report.TotalIssues)
	assert.Equal(t, map[model.Severity]int{
		model.SeverityCritical: 1,
		model.SeverityHigh:     3,
		model.SeverityMedium:   1,
		model.SeverityLow:      5,
	}, report.BySeverity)
	assert.Equal(t, map[model.IssueType]int{
		model.IssueOrphanedRecord:           1,
		model.IssueDuplicateIdentifier:      1,
		model.IssueStaleData:                1,
		model.IssueMissingField:             1,
		model.IssueInconsistentRelationship: 2,
		model.IssueDataIntegrity:            4,
	}, report.ByType)

	// The critical recommendation leads the list.
	require.NotEmpty(t, report.Recommendations)
	assert.Contains(t, report.Recommendations[0], "critical issues")

	byEntity := make(map[string]model.ValidationIssue)
	for _, issue := range report.Issues {
		byEntity[issue.EntityID] = issue
	}
	assert.True(t, byEntity["dec-1"].AutoFixable)
	assert.Equal(t, "judge_id", byEntity["dec-1"].Metadata["dangling_column"])
	assert.Equal(t, model.SeverityHigh, byEntity["judge-1"].Severity, "never-synced entities escalate")
	assert.True(t, byEntity["court-3"].AutoFixable, "slug-only gaps are derivable")
	assert.Equal(t, model.SeverityLow, byEntity["court-3"].Severity)
	assert.Equal(t, "granted", byEntity["dec-2"].Metadata["suggested_outcome"])
	assert.True(t, byEntity["dec-2"].AutoFixable)
	assert.Equal(t, model.SeverityLow, byEntity["judge-4"].Severity, "ratio 0.9 lands in the low band")
	assert.Equal(t, "John Smith", byEntity["judge-6"].Metadata["suggested_name"])
	assert.Contains(t, byEntity["judge-6"].Message, "all_caps")
	assert.Contains(t, byEntity["court-5"].Message, "registrable domain")
	assert.NotContains(t, byEntity, "court-4", "well-formed URLs pass")

	runs := f.sink.countsNamed("validation.run")
	require.Len(t, runs, 1)
	assert.Equal(t, "success", runs[0].tags["result"])
	assert.Equal(t, "scheduled", runs[0].tags["triggered_by"])
	assert.Len(t, f.sink.countsNamed("validation.issues"), 4)

	alerts := f.alerts.captured()
	require.Len(t, alerts, 1)
	assert.Equal(t, "rep-1", alerts[0].ReportID)
	assert.Equal(t, 1, alerts[0].CriticalCount)
	assert.Equal(t, 10, alerts[0].TotalIssues)
	assert.Equal(t, "scheduled", alerts[0].TriggeredBy)
}

func TestValidationRunCleanCorpus(t *testing.T) {
	t.Parallel()

	f := newValidationTest(t, nil)
	ctx := context.Background()

	f.expectFullBattery(ctx, corpusFindings{
		counts: model.EntityCounts{Courts: 3, Judges: 2, Decisions: 40},
	})
	f.reports.EXPECT().
		Insert(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, report *model.ValidationReport) (*model.ValidationReport, error) {
			inserted := *report
			inserted.ID = "rep-2"
			return &inserted, nil
		})

	report, err := f.svc.Run(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalIssues)
	assert.Equal(t, []string{"No issues found."}, report.Recommendations)

	runs := f.sink.countsNamed("validation.run")
	require.Len(t, runs, 1)
	assert.Equal(t, "manual", runs[0].tags["triggered_by"], "blank trigger defaults to manual")

	assert.Empty(t, f.alerts.captured(), "clean runs do not page anyone")
}

func TestValidationRunAbortsOnCheckFailure(t *testing.T) {
	t.Parallel()

	f := newValidationTest(t, nil)
	ctx := context.Background()

	f.quality.EXPECT().
		EntityCounts(ctx).
		Return(&model.EntityCounts{}, nil)
	f.quality.EXPECT().
		OrphanedDecisions(ctx, gomock.Any()).
		Return(nil, errors.New("scan timeout"))

	report, err := f.svc.Run(ctx, "scheduled")
	require.ErrorContains(t, err, "check orphans: scan timeout")
	assert.Nil(t, report, "partial reports are never persisted")

	runs := f.sink.countsNamed("validation.run")
	require.Len(t, runs, 1)
	assert.Equal(t, "error", runs[0].tags["result"])
}

func TestOverlapIssues(t *testing.T) {
	t.Parallel()

	f := newValidationTest(t, nil)
	ctx := context.Background()

	date := func(y, m, d int) time.Time {
		return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	}

	f.quality.EXPECT().
		OverlapCandidates(ctx, gomock.Any()).
		Return([]*model.CourtAssignment{
			// Group (j1, c1): adjacent boundary is clean, the third row overlaps.
			{ID: "a1", JudgeID: "j1", CourtID: "c1", StartDate: date(2000, 1, 1), EndDate: timePtr(date(2005, 1, 1))},
			{ID: "a2", JudgeID: "j1", CourtID: "c1", StartDate: date(2005, 1, 1), EndDate: timePtr(date(2010, 1, 1))},
			{ID: "a3", JudgeID: "j1", CourtID: "c1", StartDate: date(2009, 6, 1), EndDate: nil},
			// Group (j1, c2): the first seat never ended, so any later row overlaps.
			{ID: "b1", JudgeID: "j1", CourtID: "c2", StartDate: date(2012, 1, 1), EndDate: nil},
			{ID: "b2", JudgeID: "j1", CourtID: "c2", StartDate: date(2015, 1, 1), EndDate: timePtr(date(2016, 1, 1))},
		}, nil)

	issues, err := f.svc.overlapIssues(ctx)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, "a3", issues[0].EntityID)
	assert.Equal(t, "b2", issues[1].EntityID)
	assert.Equal(t, model.IssueInconsistentRelationship, issues[0].Type)
	assert.Equal(t, model.SeverityHigh, issues[0].Severity)
}

func TestSlugOnlyGap(t *testing.T) {
	t.Parallel()

	assert.False(t, slugOnlyGap(nil))
	assert.False(t, slugOnlyGap([]string{}))
	assert.True(t, slugOnlyGap([]string{"slug"}))
	assert.False(t, slugOnlyGap([]string{"slug", "name"}))
	assert.False(t, slugOnlyGap([]string{"name"}))
}

func TestCourtURLProblem(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "registrable domain passes", url: "https://www.ca9.uscourts.gov/cases", want: ""},
		{name: "unparseable", url: "://courts.example.gov", want: "does not parse"},
		{name: "no host", url: "mailto:clerk@example.gov", want: "has no host"},
		{name: "bare intranet host", url: "https://intranet", want: "does not resolve to a registrable domain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, courtURLProblem(tt.url))
		})
	}
}
