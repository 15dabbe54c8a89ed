// Package mocks provides mock implementations for testing the jurisync sync system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockSyncQueueRepository(ctrl)
//	mockRepo.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(job, nil)
package mocks

// Generate mock for SyncQueueRepository interface from internal/core package.
// This creates MockSyncQueueRepository with methods for all SyncQueueRepository interface methods:
// Enqueue, GetByID, ReserveNext, WaitForNotification, Heartbeat, Complete, Fail, FailPermanently, Cancel, Stats, List, Delete
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=sync_queue_repository_mock.go github.com/openbench/jurisync/internal/core SyncQueueRepository

// Generate mock for SweepRepository interface from internal/core package.
// This creates MockSweepRepository with methods for all SweepRepository interface methods:
// FindDue, FindDueTx, MarkQueued, MarkQueuedTx, UpdateActiveFireKeyTx, TryWithSweepLock
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=sweep_repository_mock.go github.com/openbench/jurisync/internal/core SweepRepository

// Generate mock for JobIntrospector interface from internal/core package.
// This creates MockJobIntrospector with methods for all JobIntrospector interface methods:
// JobStatesBySweep
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_introspector_mock.go github.com/openbench/jurisync/internal/core JobIntrospector

// Generate mock for CourtRepository interface from internal/core package.
// This creates MockCourtRepository with methods for all CourtRepository interface methods:
// Upsert, GetByID, GetByExternalID, List, Delete
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=court_repository_mock.go github.com/openbench/jurisync/internal/core CourtRepository

// Generate mock for JudgeRepository interface from internal/core package.
// This creates MockJudgeRepository with methods for all JudgeRepository interface methods:
// Upsert, GetByID, GetByExternalID, List, Delete, ReplaceAssignments, ListAssignments, RecomputeCaseCount
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=judge_repository_mock.go github.com/openbench/jurisync/internal/core JudgeRepository

// Generate mock for DecisionRepository interface from internal/core package.
// This creates MockDecisionRepository with methods for all DecisionRepository interface methods:
// Upsert, GetByID, GetByExternalID, ListByJudge, CountByJudge, Delete, NullifyJudge, NullifyCourt
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=decision_repository_mock.go github.com/openbench/jurisync/internal/core DecisionRepository

// Generate mock for ProgressRepository interface from internal/core package.
// This creates MockProgressRepository with methods for all ProgressRepository interface methods:
// Get, List, AdvancePhase, SetAnalyticsReady, RecordError
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=progress_repository_mock.go github.com/openbench/jurisync/internal/core ProgressRepository

// Generate mock for ReportRepository interface from internal/core package.
// This creates MockReportRepository with methods for all ReportRepository interface methods:
// Insert, GetByID, Latest, List
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=report_repository_mock.go github.com/openbench/jurisync/internal/core ReportRepository

// Generate mock for QualityRepository interface from internal/core package.
// This creates MockQualityRepository with methods for all QualityRepository scan queries:
// EntityCounts, OrphanedDecisions, OrphanedAssignments, DuplicateExternalIDs, DuplicateDocketNumbers,
// StaleEntities, MissingRequiredFields, PrimaryConflicts, OverlapCandidates, JurisdictionMismatches,
// UnmappedOutcomes, JudgesBelowCaseThreshold, CaseCountDrift
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=quality_repository_mock.go github.com/openbench/jurisync/internal/core QualityRepository

// Generate mock for ReaperRepository interface from internal/core package.
// This creates MockReaperRepository with methods for all ReaperRepository interface methods:
// RequeueExpiredLeases, FailStalePendingJobs, DeleteOldJobs, DeleteOldReports
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=reaper_repository_mock.go github.com/openbench/jurisync/internal/core ReaperRepository

// Generate mock for CacheRepository interface from internal/core package.
// This creates MockCacheRepository with methods for all CacheRepository interface methods:
// Set, Get, Delete, Exists, SetTTL, SetIfNotExists, Health
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_repository_mock.go github.com/openbench/jurisync/internal/core CacheRepository

// Generate mock for FixRepository interface from internal/core package.
// This creates MockFixRepository with methods for the auto-fix targeted writes:
// SetDecisionOutcome, SetSlug
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=fix_repository_mock.go github.com/openbench/jurisync/internal/core FixRepository
