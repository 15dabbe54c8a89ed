package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openbench/jurisync/internal/domain/model"
	"github.com/openbench/jurisync/internal/domain/schedule"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeSyncWorker runs the sync job worker pools.
	ServiceModeSyncWorker ServiceMode = "sync-worker"
	// ServiceModeScheduler runs the sweep scheduler.
	ServiceModeScheduler ServiceMode = "scheduler"
	// ServiceModeReaper runs the queue reaper for lease recovery and retention.
	ServiceModeReaper ServiceMode = "reaper"
	// ServiceModeValidator runs the data-quality validation loop.
	ServiceModeValidator ServiceMode = "validator"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeSyncWorker,
		ServiceModeScheduler,
		ServiceModeReaper,
		ServiceModeValidator,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeSyncWorker,
			ServiceModeScheduler,
			ServiceModeReaper,
			ServiceModeValidator:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: sync-worker, scheduler, reaper, validator)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// SyncWorkerConfig contains sync worker service configuration.
// Each claimable entity type gets its own worker pool.
type SyncWorkerConfig struct {
	// CourtConcurrency is the number of court sync workers.
	CourtConcurrency int `env:"SYNC_WORKER_COURT_CONCURRENCY" envDefault:"2"`

	// JudgeConcurrency is the number of judge sync workers.
	JudgeConcurrency int `env:"SYNC_WORKER_JUDGE_CONCURRENCY" envDefault:"2"`

	// DecisionConcurrency is the number of decision sync workers.
	DecisionConcurrency int `env:"SYNC_WORKER_DECISION_CONCURRENCY" envDefault:"4"`

	// FullConcurrency is the number of workers for full discovery sweeps.
	FullConcurrency int `env:"SYNC_WORKER_FULL_CONCURRENCY" envDefault:"1"`

	// CleanupConcurrency is the number of workers for cleanup passes.
	CleanupConcurrency int `env:"SYNC_WORKER_CLEANUP_CONCURRENCY" envDefault:"1"`

	// JobLease is the duration to lease a claimed sync job. Heartbeats extend
	// the lease while the handler is still working.
	JobLease time.Duration `env:"SYNC_WORKER_JOB_LEASE" envDefault:"2m"`

	// PollInterval bounds how long an idle worker waits before re-polling the
	// queue for jobs enqueued by other processes.
	PollInterval time.Duration `env:"SYNC_WORKER_POLL_INTERVAL" envDefault:"5s"`
}

// ConcurrencyFor returns the configured pool size for an entity type.
func (s *SyncWorkerConfig) ConcurrencyFor(entityType model.EntityType) int {
	switch entityType {
	case model.EntityTypeCourt:
		return s.CourtConcurrency
	case model.EntityTypeJudge:
		return s.JudgeConcurrency
	case model.EntityTypeDecision:
		return s.DecisionConcurrency
	case model.EntityTypeFull:
		return s.FullConcurrency
	case model.EntityTypeCleanup:
		return s.CleanupConcurrency
	default:
		return 1
	}
}

// Sanitize applies guardrails to sync worker configuration values.
func (s *SyncWorkerConfig) Sanitize() {
	if s.CourtConcurrency < 1 {
		s.CourtConcurrency = 1
	}
	if s.JudgeConcurrency < 1 {
		s.JudgeConcurrency = 1
	}
	if s.DecisionConcurrency < 1 {
		s.DecisionConcurrency = 1
	}
	if s.FullConcurrency < 1 {
		s.FullConcurrency = 1
	}
	if s.CleanupConcurrency < 1 {
		s.CleanupConcurrency = 1
	}
	if s.JobLease < 10*time.Second {
		s.JobLease = 10 * time.Second
	}
	if s.PollInterval < time.Second {
		s.PollInterval = time.Second
	}
}

// SyncConfig tunes the entity sync pipelines and the staleness/readiness
// thresholds shared by the validator, auto-fix, and cleanup passes.
type SyncConfig struct {
	// JudgeStaleAfter marks judges stale once their last sync is older.
	JudgeStaleAfter time.Duration `env:"SYNC_JUDGE_STALE_AFTER" envDefault:"4320h"` // 180 days

	// CourtStaleAfter marks courts stale once their last sync is older.
	CourtStaleAfter time.Duration `env:"SYNC_COURT_STALE_AFTER" envDefault:"8760h"` // 365 days

	// AnalyticsCaseThreshold is the minimum observed case volume before a
	// judge's analytics readiness flag is set.
	AnalyticsCaseThreshold int `env:"SYNC_ANALYTICS_CASE_THRESHOLD" envDefault:"500"`

	// OpinionPageCap bounds opinion-listing pages walked per judge sync.
	OpinionPageCap int `env:"SYNC_OPINION_PAGE_CAP" envDefault:"10"`

	// DocketPageCap bounds docket-listing pages walked per judge sync.
	DocketPageCap int `env:"SYNC_DOCKET_PAGE_CAP" envDefault:"5"`

	// DecisionEnqueueCap bounds decision jobs fanned out per judge sync.
	DecisionEnqueueCap int `env:"SYNC_DECISION_ENQUEUE_CAP" envDefault:"200"`

	// DecisionPriority is the queue priority for fanned-out decision jobs.
	DecisionPriority int `env:"SYNC_DECISION_PRIORITY" envDefault:"0"`

	// FullCourtPageCap bounds court-listing pages walked per full sweep.
	FullCourtPageCap int `env:"SYNC_FULL_COURT_PAGE_CAP" envDefault:"100"`

	// FullJudgePageCap bounds judge-listing pages walked per full sweep.
	FullJudgePageCap int `env:"SYNC_FULL_JUDGE_PAGE_CAP" envDefault:"500"`

	// RecountBatchSize is how many progress rows one cleanup recount page loads.
	RecountBatchSize int `env:"SYNC_RECOUNT_BATCH_SIZE" envDefault:"100"`

	// StaleScanLimit bounds stale rows considered per entity type per cleanup run.
	StaleScanLimit int `env:"SYNC_STALE_SCAN_LIMIT" envDefault:"500"`

	// ResyncPriority is the queue priority for stale-refresh jobs.
	ResyncPriority int `env:"SYNC_RESYNC_PRIORITY" envDefault:"0"`
}

// Sanitize applies guardrails to sync pipeline configuration values.
func (s *SyncConfig) Sanitize() {
	if s.JudgeStaleAfter < 24*time.Hour {
		s.JudgeStaleAfter = 24 * time.Hour
	}
	if s.CourtStaleAfter < 24*time.Hour {
		s.CourtStaleAfter = 24 * time.Hour
	}
	if s.AnalyticsCaseThreshold < 1 {
		s.AnalyticsCaseThreshold = 1
	}
	if s.OpinionPageCap < 1 {
		s.OpinionPageCap = 1
	}
	if s.DocketPageCap < 1 {
		s.DocketPageCap = 1
	}
	if s.DecisionEnqueueCap < 1 {
		s.DecisionEnqueueCap = 1
	}
	if s.FullCourtPageCap < 1 {
		s.FullCourtPageCap = 1
	}
	if s.FullJudgePageCap < 1 {
		s.FullJudgePageCap = 1
	}

	// Enforce batch bounds to prevent long transactions on large tables
	if s.RecountBatchSize < 1 {
		s.RecountBatchSize = 1
	}
	if s.RecountBatchSize > 10000 {
		s.RecountBatchSize = 10000
	}
	if s.StaleScanLimit < 1 {
		s.StaleScanLimit = 1
	}
}

// SchedulerConfig contains sweep scheduler service configuration.
type SchedulerConfig struct {
	// BatchSize is the number of due sweeps to process per tick.
	BatchSize int `env:"SCHEDULER_BATCH_SIZE" envDefault:"25"`

	// DefaultPriority is the default priority for sweep-enqueued jobs.
	DefaultPriority int `env:"SCHEDULER_DEFAULT_PRIORITY" envDefault:"0"`

	// MaxAttempts is the attempt budget for sweep-enqueued jobs.
	MaxAttempts int `env:"SCHEDULER_MAX_ATTEMPTS" envDefault:"3"`

	// OverrunPolicy determines how to handle sweeps whose previous job is still active.
	// Valid values: skip, queue, reschedule
	OverrunPolicy schedule.OverrunPolicy `env:"SCHEDULER_OVERRUN" envDefault:"skip"`

	// OverrunStates defines which job states block new enqueue attempts when OverrunPolicy=skip.
	// Comma-separated list of: running, pending, retrying.
	OverrunStates schedule.OverrunStateMask `env:"SCHEDULER_OVERRUN_STATES" envDefault:"running"`

	// Interval is the scheduler tick interval.
	Interval time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"15s"`
}

// Sanitize applies guardrails to scheduler configuration values.
func (s *SchedulerConfig) Sanitize() {
	if s.BatchSize < 1 {
		s.BatchSize = 1
	}
	if s.MaxAttempts < 1 {
		s.MaxAttempts = 1
	}
	if s.OverrunStates == 0 {
		s.OverrunStates = schedule.OverrunStatesDefault
	}
	if s.Interval < time.Second {
		s.Interval = time.Second
	}
}

// ValidatorConfig contains data-quality validation loop configuration.
type ValidatorConfig struct {
	// Interval is how often the validation battery runs.
	Interval time.Duration `env:"VALIDATOR_INTERVAL" envDefault:"24h"`

	// RunOnStart runs one validation pass immediately at service start.
	RunOnStart bool `env:"VALIDATOR_RUN_ON_START" envDefault:"false"`

	// ScanLimit bounds the rows each check considers per run.
	ScanLimit int `env:"VALIDATOR_SCAN_LIMIT" envDefault:"1000"`

	// AlertCriticalThreshold is the critical-issue count at which a run is
	// forwarded to the failure notifier.
	AlertCriticalThreshold int `env:"VALIDATOR_ALERT_CRITICAL_THRESHOLD" envDefault:"1"`
}

// Sanitize applies guardrails to validator configuration values.
func (v *ValidatorConfig) Sanitize() {
	// Enforce a minimum interval to prevent continuous table scans
	if v.Interval < 5*time.Minute {
		v.Interval = 5 * time.Minute
	}
	if v.ScanLimit < 1 {
		v.ScanLimit = 1
	}
	if v.ScanLimit > 100000 {
		v.ScanLimit = 100000
	}
	if v.AlertCriticalThreshold < 1 {
		v.AlertCriticalThreshold = 1
	}
}

// AutoFixConfig contains auto-fix pass configuration.
type AutoFixConfig struct {
	// OutcomeConfidenceMin is the minimum mapping confidence before an
	// outcome reclassification is applied without review.
	OutcomeConfidenceMin float64 `env:"AUTOFIX_OUTCOME_CONFIDENCE_MIN" envDefault:"0.9"`

	// ConfirmFromSeverity marks the severity at which fixes need human
	// confirmation instead of automatic application.
	// Valid values: critical, high, medium, low.
	ConfirmFromSeverity model.Severity `env:"AUTOFIX_CONFIRM_FROM_SEVERITY" envDefault:"high"`

	// RunLockTTL bounds how long a crashed pass can hold the run lock.
	RunLockTTL time.Duration `env:"AUTOFIX_RUN_LOCK_TTL" envDefault:"10m"`
}

// Sanitize applies guardrails to auto-fix configuration values.
func (a *AutoFixConfig) Sanitize() {
	if a.OutcomeConfidenceMin <= 0 || a.OutcomeConfidenceMin > 1 {
		a.OutcomeConfidenceMin = 0.9
	}
	if !a.ConfirmFromSeverity.Valid() {
		a.ConfirmFromSeverity = model.SeverityHigh
	}
	if a.RunLockTTL < time.Minute {
		a.RunLockTTL = time.Minute
	}
}

// ReaperConfig contains queue reaper service configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"5m"`

	// PendingMaxAge is the maximum age for pending jobs before they are marked as failed.
	// Jobs stuck in pending status longer than this will be failed.
	PendingMaxAge time.Duration `env:"REAPER_PENDING_MAX_AGE" envDefault:"1h"`

	// CompletedMaxAge is the maximum age for completed jobs before deletion.
	CompletedMaxAge time.Duration `env:"REAPER_COMPLETED_MAX_AGE" envDefault:"168h"` // 7 days

	// FailedMaxAge is the maximum age for failed jobs before deletion.
	FailedMaxAge time.Duration `env:"REAPER_FAILED_MAX_AGE" envDefault:"168h"` // 7 days

	// CancelledMaxAge is the maximum age for cancelled jobs before deletion.
	CancelledMaxAge time.Duration `env:"REAPER_CANCELLED_MAX_AGE" envDefault:"168h"` // 7 days

	// ReportMaxAge is the maximum age for validation reports before deletion.
	// Reports keep quality history long after the jobs that produced the data are gone.
	ReportMaxAge time.Duration `env:"REAPER_REPORT_MAX_AGE" envDefault:"2160h"` // 90 days

	// BatchSize is the maximum number of rows to process per operation.
	// Batching prevents long locks and I/O spikes on large tables.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"1000"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	// Enforce minimum intervals to prevent excessive database load
	if r.Interval < 1*time.Minute {
		r.Interval = 1 * time.Minute
	}
	if r.PendingMaxAge < 5*time.Minute {
		r.PendingMaxAge = 5 * time.Minute
	}
	if r.CompletedMaxAge < 1*time.Hour {
		r.CompletedMaxAge = 1 * time.Hour
	}
	if r.FailedMaxAge < 1*time.Hour {
		r.FailedMaxAge = 1 * time.Hour
	}
	if r.CancelledMaxAge < 1*time.Hour {
		r.CancelledMaxAge = 1 * time.Hour
	}
	if r.ReportMaxAge < 24*time.Hour {
		r.ReportMaxAge = 24 * time.Hour
	}

	// Enforce batch size bounds to prevent excessive locks or inefficiency
	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
	if r.BatchSize > 10000 {
		r.BatchSize = 10000
	}
}
