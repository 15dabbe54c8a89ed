// Package validator provides the adapter that runs the data-quality loop.
package validator

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/openbench/jurisync/config"
	"github.com/openbench/jurisync/internal/data"
	"github.com/openbench/jurisync/internal/observability/statsd"
	"github.com/openbench/jurisync/internal/service"
	"github.com/openbench/jurisync/internal/service/failurenotifier"
)

// Runner executes the validation battery on an interval. Every check is
// read-only and bounded, so runs are safe to execute alongside sync workers.
type Runner struct {
	validation *service.ValidationService
	interval   time.Duration
	runOnStart bool
	logger     *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Config config.ValidatorConfig
	Sync   config.SyncConfig
	Logger *slog.Logger

	// Optional dependency injections for testing/decoupling
	Validation      *service.ValidationService
	Metrics         statsd.Sink
	FailureNotifier *failurenotifier.Service
}

// NewRunner creates a new validator runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	validation := opts.Validation
	if validation == nil {
		var err error
		validation, err = wireValidationService(opts)
		if err != nil {
			return nil, err
		}
	}

	return &Runner{
		validation: validation,
		interval:   opts.Config.Interval,
		runOnStart: opts.Config.RunOnStart,
		logger:     opts.Logger,
	}, nil
}

func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.DB == nil && opts.Validation == nil {
		return errors.New("either DB or Validation service must be provided")
	}
	if opts.Config.Interval <= 0 {
		opts.Config.Interval = 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

func wireValidationService(opts RunnerOptions) (*service.ValidationService, error) {
	cfg := service.DefaultValidationConfig()
	cfg.JudgeStaleAfter = opts.Sync.JudgeStaleAfter
	cfg.CourtStaleAfter = opts.Sync.CourtStaleAfter
	cfg.AnalyticsCaseThreshold = opts.Sync.AnalyticsCaseThreshold
	cfg.ScanLimit = opts.Config.ScanLimit
	cfg.AlertCriticalThreshold = opts.Config.AlertCriticalThreshold

	return service.NewValidationService(service.ValidationServiceOptions{
		Quality:         data.NewQualityRepo(opts.DB),
		Reports:         data.NewReportRepo(opts.DB),
		Judges:          data.NewJudgeRepo(opts.DB),
		Courts:          data.NewCourtRepo(opts.DB),
		Config:          &cfg,
		FailureNotifier: opts.FailureNotifier,
		Metrics:         opts.Metrics,
		Logger:          opts.Logger,
	})
}

// Run executes the validation loop until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting validator runner",
		"interval", r.interval, "run_on_start", r.runOnStart)

	if r.runOnStart {
		r.runOnce(ctx)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "validator runner stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	report, err := r.validation.Run(ctx, "scheduled")
	if err != nil {
		if ctx.Err() == nil {
			// Keep the loop alive; the next tick gets a fresh attempt.
			r.logger.ErrorContext(ctx, "validation run error", "error", err)
		}
		return
	}
	r.logger.InfoContext(ctx, "validation run finished",
		"report_id", report.ID,
		"total_issues", report.TotalIssues,
		"critical_issues", report.CriticalCount(),
		"health_score", report.HealthScore())
}
