// Package scheduler provides the adapter that runs the sweep scheduler loop.
package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/openbench/jurisync/internal/core"
	"github.com/openbench/jurisync/internal/data"
	obserrors "github.com/openbench/jurisync/internal/observability/errors"
	"github.com/openbench/jurisync/internal/observability/metrics"
	"github.com/openbench/jurisync/internal/observability/statsd"
	"github.com/openbench/jurisync/internal/service"
)

// Runner drives the sweep scheduler on a fixed interval. Each tick finds due
// sweeps and fans out sync jobs; advisory locks in the repository keep
// concurrent scheduler replicas from double-firing the same sweep.
type Runner struct {
	scheduler core.SweepScheduler
	interval  time.Duration
	logger    *slog.Logger
	metrics   statsd.Sink
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB       *sql.DB
	Config   *core.SchedulerConfig
	Interval time.Duration
	Logger   *slog.Logger
	Metrics  statsd.Sink

	// Optional dependency injections for testing/decoupling
	Sweeps          core.SweepRepository
	Queue           core.SyncQueueRepository
	JobIntrospector core.JobIntrospector
}

// NewRunner creates a new scheduler runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	svc := service.NewSchedulerService(wireSchedulerDependencies(opts))

	return &Runner{
		scheduler: svc,
		interval:  opts.Interval,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}, nil
}

func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.DB == nil && (opts.Sweeps == nil || opts.Queue == nil) {
		return errors.New("either DB or Sweeps and Queue repositories must be provided")
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

func wireSchedulerDependencies(opts RunnerOptions) service.SchedulerServiceOptions {
	sweeps := opts.Sweeps
	if sweeps == nil {
		sweeps = data.NewSweepRepo(opts.DB)
	}

	queue := opts.Queue
	if queue == nil {
		queue = data.NewQueueRepo(opts.DB, data.RepoConfig{})
	}

	introspector := opts.JobIntrospector
	if introspector == nil {
		if x, ok := queue.(core.JobIntrospector); ok {
			introspector = x
		} else {
			introspector = data.NewQueueRepo(opts.DB, data.RepoConfig{})
		}
	}

	return service.SchedulerServiceOptions{
		Repo:            sweeps,
		Queue:           queue,
		JobIntrospector: introspector,
		Config:          opts.Config,
		Logger:          opts.Logger,
	}
}

// Run starts the scheduler loop and runs until the context is cancelled.
// It calls Tick() at the configured interval and logs the results.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting scheduler runner", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "scheduler runner stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case now := <-ticker.C:
			start := time.Now()
			processed, err := r.scheduler.Tick(ctx, now)
			elapsed := time.Since(start)

			r.emitTickMetrics(processed, elapsed, err)

			if err != nil {
				// Keep ticking; a failed tick leaves the due sweeps for the next one.
				r.logger.ErrorContext(ctx, "scheduler tick error", "error", err)
			} else if processed > 0 {
				r.logger.InfoContext(ctx, "scheduler processed sweeps", "count", processed)
			}
		}
	}
}

func (r *Runner) emitTickMetrics(processed int, elapsed time.Duration, err error) {
	if r.metrics == nil {
		return
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	} else if processed == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{
		"result": result,
	}

	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	r.metrics.Count("scheduler.tick", 1, tags)

	if processed > 0 {
		r.metrics.Count("scheduler.sweeps_processed", int64(processed), tags)
	}

	if elapsed > 0 {
		r.metrics.Timing("scheduler.tick_duration", elapsed, metrics.CloneTags(tags))
	}

	if err == nil {
		r.metrics.Gauge("scheduler.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}
