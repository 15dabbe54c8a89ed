// Package reaper provides the adapter that runs the queue hygiene loop.
package reaper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openbench/jurisync/config"
	"github.com/openbench/jurisync/internal/core"
	"github.com/openbench/jurisync/internal/data"
	"github.com/openbench/jurisync/internal/observability/statsd"
	"github.com/openbench/jurisync/internal/service"
)

// Runner provides a simple adapter to run the reaper loop. It constructs the
// reaper service and runs lease recovery and retention cleanup until cancelled.
type Runner struct {
	reaper  *service.ReaperService
	logger  *slog.Logger
	metrics statsd.Sink
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Config config.ReaperConfig
	Logger *slog.Logger

	// Optional dependency injection for testing/decoupling
	Repo    core.ReaperRepository
	Metrics statsd.Sink
}

// NewRunner creates a new reaper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	reaper, err := wireReaperService(opts)
	if err != nil {
		return nil, fmt.Errorf("wire reaper service: %w", err)
	}

	return &Runner{
		reaper:  reaper,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}, nil
}

func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.DB == nil && opts.Repo == nil {
		return errors.New("either DB or Repo must be provided")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

func wireReaperService(opts RunnerOptions) (*service.ReaperService, error) {
	repo := opts.Repo
	if repo == nil {
		repo = data.NewQueueRepo(opts.DB, data.RepoConfig{})
	}

	return service.NewReaperService(service.ReaperServiceOptions{
		Repo:    repo,
		Config:  opts.Config,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
}

// Run starts the reaper loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reaper runner")
	return r.reaper.Run(ctx)
}
