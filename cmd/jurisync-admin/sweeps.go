package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/openbench/jurisync/internal/data"
	"github.com/openbench/jurisync/internal/domain/model"
	"github.com/openbench/jurisync/internal/domain/schedule"
)

// defaultSweeps is the schedule set a fresh deployment gets: a nightly
// discovery sweep over the upstream catalog, a six-hourly pass that re-enqueues
// stale entities, and a daily cleanup run. Seeding is idempotent; re-running
// refreshes cadence and payload without touching enabled flags history.
func defaultSweeps() []schedule.UpsertSweepParams {
	fullCron := "0 2 * * *"
	cleanupCron := "30 3 * * *"
	return []schedule.UpsertSweepParams{
		{
			Name:       "full-nightly",
			EntityType: model.EntityTypeFull,
			Payload:    json.RawMessage(`{"courts":true,"judges":true}`),
			CronExpr:   &fullCron,
			Enabled:    true,
		},
		{
			Name:       "stale-resweep",
			EntityType: model.EntityTypeCleanup,
			Payload:    json.RawMessage(`{"stale_only":true}`),
			Interval:   6 * time.Hour,
			Enabled:    true,
		},
		{
			Name:       "cleanup-daily",
			EntityType: model.EntityTypeCleanup,
			Payload:    json.RawMessage(`{}`),
			CronExpr:   &cleanupCron,
			Enabled:    true,
		},
	}
}

type seedSweepsOptions struct {
	Timeout time.Duration
}

func parseSeedSweepsFlags(args []string) (seedSweepsOptions, error) {
	fs := flag.NewFlagSet("seed-sweeps", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := seedSweepsOptions{Timeout: defaultCommandTimeout}
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration to wait for seeding to complete")

	if err := fs.Parse(args); err != nil {
		return seedSweepsOptions{}, err
	}
	if opts.Timeout <= 0 {
		return seedSweepsOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func runSeedSweeps(cmdCtx *commandContext, args []string) error {
	opts, err := parseSeedSweepsFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		repo := data.NewSweepAdminRepo(db)
		for _, params := range defaultSweeps() {
			if upsertErr := repo.UpsertByName(ctx, params); upsertErr != nil {
				return fmt.Errorf("seed sweep %q: %w", params.Name, upsertErr)
			}
			cmdCtx.Logger.Info("sweep seeded", "name", params.Name, "entity_type", params.EntityType)
		}
		cmdCtx.Logger.Info("default sweeps installed", "count", len(defaultSweeps()))
		return nil
	})
}

func runSweepList(cmdCtx *commandContext, _ []string) error {
	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		repo := data.NewSweepAdminRepo(db)
		sweeps, err := repo.List(ctx)
		if err != nil {
			return fmt.Errorf("list sweeps: %w", err)
		}
		return printSweeps(sweeps)
	})
}

func printSweeps(sweeps []schedule.Sweep) error {
	if len(sweeps) == 0 {
		return writeln(os.Stdout, "(no sweeps configured)")
	}

	sort.Slice(sweeps, func(i, j int) bool { return sweeps[i].Name < sweeps[j].Name })

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "NAME\tENTITY\tCADENCE\tENABLED\tNEXT RUN"); err != nil {
		return err
	}
	for i := range sweeps {
		s := &sweeps[i]
		if err := writef(tw, "%s\t%s\t%s\t%t\t%s\n",
			s.Name, s.EntityType, sweepCadence(s), s.Enabled, sweepNextRun(s)); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush sweep table: %w", err)
	}
	return nil
}

func sweepCadence(s *schedule.Sweep) string {
	if s.CronExpr != nil && *s.CronExpr != "" {
		return "cron " + *s.CronExpr
	}
	return "every " + s.Interval.String()
}

func sweepNextRun(s *schedule.Sweep) string {
	if s.NextRunAt == nil {
		return "-"
	}
	return s.NextRunAt.UTC().Format(time.RFC3339)
}

func runSweepEnable(cmdCtx *commandContext, args []string) error {
	return setSweepEnabled(cmdCtx, args, "sweep-enable", true)
}

func runSweepDisable(cmdCtx *commandContext, args []string) error {
	return setSweepEnabled(cmdCtx, args, "sweep-disable", false)
}

func setSweepEnabled(cmdCtx *commandContext, args []string, cmdName string, enabled bool) error {
	fs := flag.NewFlagSet(cmdName, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	name := fs.String("name", "", "Sweep schedule name (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return errors.New("--name is required")
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		repo := data.NewSweepAdminRepo(db)
		found, err := repo.SetEnabled(ctx, *name, enabled)
		if err != nil {
			return fmt.Errorf("set sweep enabled: %w", err)
		}
		if !found {
			return fmt.Errorf("sweep %q not found", *name)
		}
		cmdCtx.Logger.Info("sweep updated", "name", *name, "enabled", enabled)
		return nil
	})
}
