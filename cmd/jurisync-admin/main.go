// Command jurisync-admin bundles the operational tooling for a jurisync
// deployment: migrations, sweep schedule management, queue inspection, and
// manual data-quality runs.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/openbench/jurisync/config"
	"github.com/openbench/jurisync/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultCommandTimeout   = 2 * time.Minute
)

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrations,
		},
		"seed-sweeps": {
			name:        "seed-sweeps",
			description: "Install or refresh the default sweep schedules",
			run:         runSeedSweeps,
		},
		"sweep-list": {
			name:        "sweep-list",
			description: "List configured sweep schedules",
			run:         runSweepList,
		},
		"sweep-enable": {
			name:        "sweep-enable",
			description: "Enable a sweep schedule by name",
			run:         runSweepEnable,
		},
		"sweep-disable": {
			name:        "sweep-disable",
			description: "Disable a sweep schedule by name",
			run:         runSweepDisable,
		},
		"queue-stats": {
			name:        "queue-stats",
			description: "Show sync queue depth by entity type and status",
			run:         runQueueStats,
		},
		"queue-list": {
			name:        "queue-list",
			description: "List sync jobs with optional status/entity filters",
			run:         runQueueList,
		},
		"queue-enqueue": {
			name:        "queue-enqueue",
			description: "Enqueue a single sync job",
			run:         runQueueEnqueue,
		},
		"queue-cancel": {
			name:        "queue-cancel",
			description: "Cancel a pending or scheduled sync job by ID",
			run:         runQueueCancel,
		},
		"validate": {
			name:        "validate",
			description: "Run the data-quality validation battery once and print the report",
			run:         runValidate,
		},
		"autofix": {
			name:        "autofix",
			description: "Apply auto-fixable findings from a validation report",
			run:         runAutoFix,
		},
		"report-list": {
			name:        "report-list",
			description: "List recent validation report summaries",
			run:         runReportList,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: jurisync-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	for _, c := range commands() {
		if err := writef(os.Stdout, "  %-24s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

type migrateOptions struct {
	Timeout time.Duration
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := migrateOptions{
		Timeout: defaultMigrationTimeout,
	}

	fs.DurationVar(
		&opts.Timeout,
		"timeout",
		defaultMigrationTimeout,
		"Maximum duration to wait for migrations to complete",
	)

	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}

	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be greater than zero")
	}

	return opts, nil
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		cmdCtx.Logger.Info("running database migrations")

		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return fmt.Errorf("run migrations: %w", migrateErr)
		}

		cmdCtx.Logger.Info("migrations completed successfully")
		return nil
	})
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	if len(args) == 0 {
		_, err := fmt.Fprintln(w)
		return err
	}
	_, err := fmt.Fprintln(w, args...)
	return err
}
