package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openbench/jurisync/config"
	"github.com/openbench/jurisync/internal/adapters/reaper"
	schedrunner "github.com/openbench/jurisync/internal/adapters/scheduler"
	"github.com/openbench/jurisync/internal/adapters/syncworker"
	"github.com/openbench/jurisync/internal/adapters/validator"
	"github.com/openbench/jurisync/internal/core"
	"github.com/openbench/jurisync/internal/domain/model"
	"github.com/openbench/jurisync/internal/domain/schedule"
	"github.com/openbench/jurisync/internal/observability/statsd"
	"github.com/openbench/jurisync/internal/service"
)

// SyncWorkerRunnerConfig contains configuration for the sync worker.
type SyncWorkerRunnerConfig struct {
	Services ServiceContainer
	Logger   *slog.Logger
	Worker   config.SyncWorkerConfig
	Metrics  statsd.Sink
}

// RunSyncWorker starts the per-entity-type worker pools.
func RunSyncWorker(ctx context.Context, cfg SyncWorkerRunnerConfig) error {
	if cfg.Services.Queue == nil {
		return errors.New("sync worker requires the queue service")
	}
	if cfg.Services.CourtSync == nil {
		return errors.New("sync worker requires an upstream catalog; set UPSTREAM_BASE_URL")
	}

	runner, err := syncworker.NewRunner(syncworker.RunnerOptions{
		Queue: cfg.Services.Queue,
		Pipelines: syncworker.Pipelines{
			Courts:    cfg.Services.CourtSync,
			Judges:    cfg.Services.JudgeSync,
			Decisions: cfg.Services.DecisionSync,
			Full:      cfg.Services.FullSync,
			Cleanup:   cfg.Services.Cleanup,
		},
		Logger:       cfg.Logger,
		Metrics:      cfg.Metrics,
		Lease:        cfg.Worker.JobLease,
		PollInterval: cfg.Worker.PollInterval,
		Concurrency: map[model.EntityType]int{
			model.EntityTypeCourt:    cfg.Worker.CourtConcurrency,
			model.EntityTypeJudge:    cfg.Worker.JudgeConcurrency,
			model.EntityTypeDecision: cfg.Worker.DecisionConcurrency,
			model.EntityTypeFull:     cfg.Worker.FullConcurrency,
			model.EntityTypeCleanup:  cfg.Worker.CleanupConcurrency,
		},
	})
	if err != nil {
		return fmt.Errorf("create sync worker runner: %w", err)
	}

	if runErr := runner.Run(ctx); runErr != nil {
		return fmt.Errorf("run sync worker runner: %w", runErr)
	}
	return nil
}

// SchedulerRunnerConfig contains configuration for the sweep scheduler.
type SchedulerRunnerConfig struct {
	DB              *sql.DB
	Logger          *slog.Logger
	BatchSize       int
	DefaultPriority int
	MaxAttempts     int
	OverrunPolicy   schedule.OverrunPolicy
	OverrunStates   schedule.OverrunStateMask
	Interval        time.Duration
	Metrics         statsd.Sink
}

// RunScheduler starts the sweep scheduler service.
func RunScheduler(ctx context.Context, cfg SchedulerRunnerConfig) error {
	schedulerCfg := core.SchedulerConfig{
		BatchSize:       cfg.BatchSize,
		DefaultPriority: cfg.DefaultPriority,
		MaxAttempts:     cfg.MaxAttempts,
		Strategy: schedule.StrategyOptions{
			Overrun:       cfg.OverrunPolicy,
			OverrunStates: cfg.OverrunStates,
		},
	}

	runner, err := schedrunner.NewRunner(schedrunner.RunnerOptions{
		DB:       cfg.DB,
		Config:   &schedulerCfg,
		Interval: cfg.Interval,
		Logger:   cfg.Logger,
		Metrics:  cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create scheduler runner: %w", err)
	}

	return runner.Run(ctx)
}

// ReaperRunnerConfig contains configuration for the queue reaper.
type ReaperRunnerConfig struct {
	DB      *sql.DB
	Logger  *slog.Logger
	Config  config.ReaperConfig
	Metrics statsd.Sink
}

// RunReaper starts the reaper service.
func RunReaper(ctx context.Context, cfg ReaperRunnerConfig) error {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		DB:      cfg.DB,
		Config:  cfg.Config,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create reaper runner: %w", err)
	}

	return runner.Run(ctx)
}

// ValidatorRunnerConfig contains configuration for the data-quality loop.
type ValidatorRunnerConfig struct {
	Validation *service.ValidationService
	Logger     *slog.Logger
	Config     config.ValidatorConfig
}

// RunValidator starts the data-quality validation loop.
func RunValidator(ctx context.Context, cfg ValidatorRunnerConfig) error {
	runner, err := validator.NewRunner(validator.RunnerOptions{
		Validation: cfg.Validation,
		Config:     cfg.Config,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return fmt.Errorf("create validator runner: %w", err)
	}

	return runner.Run(ctx)
}
