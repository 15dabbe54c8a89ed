package core

import (
	"context"
	"database/sql"
	"time"

	"github.com/openbench/jurisync/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// SyncQueueRepository defines the interface for sync job data operations.
type SyncQueueRepository interface {
	Enqueue(ctx context.Context, req *model.EnqueueRequest) (*model.SyncJob, error)
	GetByID(ctx context.Context, id string) (*model.SyncJob, error)
	ReserveNext(ctx context.Context, entityType model.EntityType, leaseSeconds int) (*model.SyncJob, error)
	WaitForNotification(ctx context.Context, entityType model.EntityType) error
	Heartbeat(ctx context.Context, jobID string, leaseSeconds int) (bool, error)
	Complete(ctx context.Context, id string) (bool, error)
	// Fail increments attempt_count and either requeues the job with backoff
	// or dead-letters it once attempts are exhausted.
	Fail(ctx context.Context, id, errMsg string) (bool, error)
	// FailPermanently dead-letters the job immediately, skipping remaining attempts.
	FailPermanently(ctx context.Context, id, errMsg string) (bool, error)
	// Cancel withdraws a pending job. Running jobs cannot be cancelled mid-flight;
	// their workers observe the cancellation at the next status-guarded write.
	Cancel(ctx context.Context, id string) (bool, error)
	Stats(ctx context.Context, entityType model.EntityType) (*model.QueueStats, error)
	List(ctx context.Context, opts *model.JobListOptions) ([]*model.SyncJob, error)
	Delete(ctx context.Context, id string) error
}

// SyncQueueRepositoryTx defines optional transactional job creation support.
type SyncQueueRepositoryTx interface {
	EnqueueInTx(ctx context.Context, tx *sql.Tx, req *model.EnqueueRequest) (*model.SyncJob, error)
}

// CourtRepository defines the interface for court data operations.
// GetByExternalID returns (nil, nil) when no row matches; the same convention
// holds for every by-external-id lookup below.
type CourtRepository interface {
	Upsert(ctx context.Context, params model.UpsertCourtParams) (*model.Court, error)
	GetByID(ctx context.Context, id string) (*model.Court, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.Court, error)
	List(ctx context.Context, limit, offset int) ([]*model.Court, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// JudgeRepository defines the interface for judge data operations.
type JudgeRepository interface {
	Upsert(ctx context.Context, params model.UpsertJudgeParams) (*model.Judge, error)
	GetByID(ctx context.Context, id string) (*model.Judge, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.Judge, error)
	List(ctx context.Context, limit, offset int) ([]*model.Judge, error)
	Delete(ctx context.Context, id string) (bool, error)

	// ReplaceAssignments atomically swaps the judge's assignment set for the
	// one derived from the latest upstream position history.
	ReplaceAssignments(ctx context.Context, judgeID string, assignments []model.ReplaceAssignmentParams) error
	ListAssignments(ctx context.Context, judgeID string) ([]*model.CourtAssignment, error)

	// RecomputeCaseCount refreshes the denormalized case_count from the
	// decisions table and returns the new value.
	RecomputeCaseCount(ctx context.Context, judgeID string) (int, error)
}

// DecisionRepository defines the interface for decision data operations.
type DecisionRepository interface {
	Upsert(ctx context.Context, params model.UpsertDecisionParams) (*model.Decision, error)
	GetByID(ctx context.Context, id string) (*model.Decision, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.Decision, error)
	ListByJudge(ctx context.Context, judgeID string, limit, offset int) ([]*model.Decision, error)
	CountByJudge(ctx context.Context, judgeID string) (int, error)
	Delete(ctx context.Context, id string) (bool, error)

	// NullifyJudge clears a dangling judge reference. Returns false when the
	// decision no longer exists.
	NullifyJudge(ctx context.Context, decisionID string) (bool, error)
	// NullifyCourt clears a dangling court reference.
	NullifyCourt(ctx context.Context, decisionID string) (bool, error)
}

// AdvancePhaseParams groups parameters for ProgressRepository.AdvancePhase.
// CaseCount, when set, records how many cases the phase observed.
type AdvancePhaseParams struct {
	EntityType model.EntityType
	EntityID   string
	Phase      model.SyncPhase
	CaseCount  *int
	Now        time.Time
}

// RecordSyncErrorParams groups parameters for ProgressRepository.RecordError.
type RecordSyncErrorParams struct {
	EntityType model.EntityType
	EntityID   string
	Message    string
	Now        time.Time
}

// ProgressRepository defines the interface for per-entity sync progress tracking.
type ProgressRepository interface {
	Get(ctx context.Context, entityType model.EntityType, entityID string) (*model.SyncProgress, error)
	List(ctx context.Context, entityType model.EntityType, limit, offset int) ([]*model.SyncProgress, error)
	// AdvancePhase moves the entity's progress row forward. Backward
	// transitions are rejected in SQL so concurrent pipelines cannot regress
	// a phase.
	AdvancePhase(ctx context.Context, params AdvancePhaseParams) (*model.SyncProgress, error)
	// SetAnalyticsReady flips the derived readiness gate once the entity's
	// case count clears the configured minimum.
	SetAnalyticsReady(ctx context.Context, entityType model.EntityType, entityID string, ready bool) (bool, error)
	RecordError(ctx context.Context, params RecordSyncErrorParams) error
}

// ReportRepository defines the append-only store for validation reports.
type ReportRepository interface {
	Insert(ctx context.Context, report *model.ValidationReport) (*model.ValidationReport, error)
	GetByID(ctx context.Context, id string) (*model.ValidationReport, error)
	Latest(ctx context.Context) (*model.ValidationReport, error)
	List(ctx context.Context, opts *model.ReportListOptions) ([]*model.ValidationReport, error)
}

// DuplicateGroup describes one external identifier shared by several rows.
type DuplicateGroup struct {
	ExternalID string   `json:"external_id"`
	Count      int      `json:"count"`
	EntityIDs  []string `json:"entity_ids"`
}

// StaleEntity is one row whose last successful sync is older than the
// type-specific threshold.
type StaleEntity struct {
	EntityID     string     `json:"entity_id"`
	ExternalID   string     `json:"external_id"`
	Name         string     `json:"name"`
	LastSyncedAt *time.Time `json:"last_synced_at"`
}

// StaleScanParams groups parameters for QualityRepository.StaleEntities.
type StaleScanParams struct {
	EntityType model.EntityType
	OlderThan  time.Duration
	Limit      int
}

// FieldGap is one row failing the required-field scan, with the missing
// column names resolved in SQL.
type FieldGap struct {
	EntityID   string   `json:"entity_id"`
	ExternalID string   `json:"external_id"`
	Missing    []string `json:"missing"`
}

// OrphanedDecision is a decision row whose judge or court reference no longer
// resolves.
type OrphanedDecision struct {
	DecisionID     string  `json:"decision_id"`
	ExternalID     string  `json:"external_id"`
	DanglingColumn string  `json:"dangling_column"`
	DanglingID     *string `json:"dangling_id"`
}

// OrphanedAssignment is an assignment row pointing at a judge or court that
// no longer exists.
type OrphanedAssignment struct {
	AssignmentID   string  `json:"assignment_id"`
	DanglingColumn string  `json:"dangling_column"`
	DanglingID     *string `json:"dangling_id"`
}

// PrimaryConflict is a judge carrying more than one open primary assignment.
type PrimaryConflict struct {
	JudgeID            string `json:"judge_id"`
	JudgeName          string `json:"judge_name"`
	ActivePrimaryCount int    `json:"active_primary_count"`
}

// JurisdictionMismatch is an active assignment whose court jurisdiction
// disagrees with the judge's own.
type JurisdictionMismatch struct {
	JudgeID           string             `json:"judge_id"`
	JudgeName         string             `json:"judge_name"`
	JudgeJurisdiction model.Jurisdiction `json:"judge_jurisdiction"`
	CourtID           string             `json:"court_id"`
	CourtName         string             `json:"court_name"`
	CourtJurisdiction model.Jurisdiction `json:"court_jurisdiction"`
}

// OutcomeReviewRow is a decision whose upstream outcome string did not map
// onto the canonical taxonomy.
type OutcomeReviewRow struct {
	DecisionID string  `json:"decision_id"`
	ExternalID string  `json:"external_id"`
	RawOutcome *string `json:"raw_outcome"`
}

// JudgeCaseCount pairs a judge with its denormalized case count.
type JudgeCaseCount struct {
	JudgeID    string `json:"judge_id"`
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	CaseCount  int    `json:"case_count"`
}

// CaseCountDrift is a judge whose stored case_count disagrees with the
// actual decision count.
type CaseCountDrift struct {
	JudgeID string `json:"judge_id"`
	Stored  int    `json:"stored"`
	Actual  int    `json:"actual"`
}

// QualityRepository defines the read-side scan queries the validator runs.
// Every method is a bounded, index-friendly query so validation can run
// concurrently with sync workers.
type QualityRepository interface {
	EntityCounts(ctx context.Context) (*model.EntityCounts, error)
	OrphanedDecisions(ctx context.Context, limit int) ([]OrphanedDecision, error)
	OrphanedAssignments(ctx context.Context, limit int) ([]OrphanedAssignment, error)
	DuplicateExternalIDs(ctx context.Context, entityType model.EntityType) ([]DuplicateGroup, error)
	DuplicateDocketNumbers(ctx context.Context) ([]DuplicateGroup, error)
	StaleEntities(ctx context.Context, params StaleScanParams) ([]StaleEntity, error)
	MissingRequiredFields(ctx context.Context, entityType model.EntityType, limit int) ([]FieldGap, error)
	PrimaryConflicts(ctx context.Context, limit int) ([]PrimaryConflict, error)
	// OverlapCandidates returns the assignments of every (judge, court) pair
	// that has more than one row, ordered so pairwise interval checks can run
	// in a single pass.
	OverlapCandidates(ctx context.Context, limit int) ([]*model.CourtAssignment, error)
	JurisdictionMismatches(ctx context.Context, limit int) ([]JurisdictionMismatch, error)
	UnmappedOutcomes(ctx context.Context, limit int) ([]OutcomeReviewRow, error)
	JudgesBelowCaseThreshold(ctx context.Context, threshold, limit int) ([]JudgeCaseCount, error)
	CaseCountDrift(ctx context.Context, limit int) ([]CaseCountDrift, error)
}

// FixRepository defines the targeted writes the auto-fix pass applies. Each
// update re-checks its precondition in SQL, so a fix racing a sync refresh
// quietly affects zero rows.
type FixRepository interface {
	// SetDecisionOutcome reclassifies a decision still sitting in the
	// catch-all outcome bucket. Returns false when the row is gone or has
	// already been reclassified.
	SetDecisionOutcome(ctx context.Context, decisionID string, outcome model.Outcome) (bool, error)
	// SetSlug fills a blank slug. Returns false when the row is gone or the
	// slug is no longer blank.
	SetSlug(ctx context.Context, entityType model.EntityType, entityID, slug string) (bool, error)
}

// DeleteOldJobsParams groups parameters for DeleteOldJobs to keep param count ≤3.
type DeleteOldJobsParams struct {
	Status    model.JobStatus
	MaxAge    time.Duration
	BatchSize int
}

// DeleteOldReportsParams groups parameters for DeleteOldReports.
type DeleteOldReportsParams struct {
	MaxAge    time.Duration
	BatchSize int
}

// ReaperRepository defines the interface for queue hygiene operations.
type ReaperRepository interface {
	// RequeueExpiredLeases returns running jobs with expired leases to pending
	// so another worker can claim them. Processes up to batchSize jobs per
	// call. Returns the number of jobs requeued.
	RequeueExpiredLeases(ctx context.Context, batchSize int) (int64, error)

	// FailStalePendingJobs marks pending jobs older than maxAge as failed.
	// Processes up to batchSize jobs per call to prevent long locks.
	// Returns the number of jobs marked as failed.
	FailStalePendingJobs(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)

	// DeleteOldJobs deletes jobs with the given status older than maxAge.
	// Processes up to batchSize jobs per call to prevent long locks.
	// Returns the number of jobs deleted.
	DeleteOldJobs(ctx context.Context, params DeleteOldJobsParams) (int64, error)

	// DeleteOldReports trims the append-only report store down to the
	// configured retention window.
	DeleteOldReports(ctx context.Context, params DeleteOldReportsParams) (int64, error)
}
