package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/openbench/jurisync/internal/bootstrap"
	"github.com/openbench/jurisync/internal/domain/model"
	"github.com/openbench/jurisync/internal/service"
)

const defaultValidationTimeout = 10 * time.Minute

func runValidate(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	timeout := fs.Duration("timeout", defaultValidationTimeout, "Maximum duration to wait for the validation run")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *timeout <= 0 {
		return errors.New("--timeout must be greater than zero")
	}

	return withServices(cmdCtx, *timeout, func(ctx context.Context, services *bootstrap.ServiceContainer) error {
		report, err := services.Validation.Run(ctx, "manual")
		if err != nil {
			return fmt.Errorf("validation run: %w", err)
		}
		return printValidationReport(report)
	})
}

func printValidationReport(report *model.ValidationReport) error {
	if err := writef(os.Stdout, "\nValidation report %s\n", report.ID); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Run at: %s (took %s)\n",
		report.RunAt.UTC().Format(time.RFC3339), report.Duration.Round(time.Millisecond)); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Scanned: %d courts, %d judges, %d decisions, %d assignments\n",
		report.Entities.Courts, report.Entities.Judges,
		report.Entities.Decisions, report.Entities.Assignments); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Issues: %d total (%d critical, %d auto-fixable), health score %.1f\n",
		report.TotalIssues, report.CriticalCount(), len(report.FixableIssues()), report.HealthScore()); err != nil {
		return err
	}

	if report.TotalIssues == 0 {
		return writeln(os.Stdout, "\nNo issues found.")
	}

	if err := writeln(os.Stdout, "\nBy severity:"); err != nil {
		return err
	}
	for _, severity := range []model.Severity{
		model.SeverityCritical, model.SeverityHigh, model.SeverityMedium, model.SeverityLow,
	} {
		if count := report.BySeverity[severity]; count > 0 {
			if err := writef(os.Stdout, "  %-10s %d\n", severity, count); err != nil {
				return err
			}
		}
	}

	if len(report.Recommendations) > 0 {
		if err := writeln(os.Stdout, "\nRecommendations:"); err != nil {
			return err
		}
		for _, rec := range report.Recommendations {
			if err := writef(os.Stdout, "  - %s\n", rec); err != nil {
				return err
			}
		}
	}
	return nil
}

type autoFixOptions struct {
	ReportID string
	Timeout  time.Duration
}

func parseAutoFixFlags(args []string) (autoFixOptions, error) {
	fs := flag.NewFlagSet("autofix", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := autoFixOptions{Timeout: defaultValidationTimeout}
	fs.StringVar(&opts.ReportID, "report", "", "Report ID to apply fixes from (defaults to the latest report)")
	fs.DurationVar(&opts.Timeout, "timeout", defaultValidationTimeout, "Maximum duration to wait for the fix pass")

	if err := fs.Parse(args); err != nil {
		return autoFixOptions{}, err
	}
	if opts.Timeout <= 0 {
		return autoFixOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func runAutoFix(cmdCtx *commandContext, args []string) error {
	opts, err := parseAutoFixFlags(args)
	if err != nil {
		return err
	}

	return withServices(cmdCtx, opts.Timeout, func(ctx context.Context, services *bootstrap.ServiceContainer) error {
		var (
			summary *service.FixSummary
			fixErr  error
		)
		if opts.ReportID == "" {
			summary, fixErr = services.AutoFix.ApplyLatest(ctx)
		} else {
			summary, fixErr = services.AutoFix.ApplyReport(ctx, opts.ReportID)
		}
		if fixErr != nil {
			return fmt.Errorf("apply fixes: %w", fixErr)
		}
		return printFixSummary(summary)
	})
}

func printFixSummary(summary *service.FixSummary) error {
	if err := writef(os.Stdout, "\nAuto-fix pass for report %s\n", summary.ReportID); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Applied: %d, skipped: %d, failed: %d\n",
		summary.Applied, summary.Skipped, summary.Failed); err != nil {
		return err
	}
	if len(summary.Results) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "\nISSUE\tENTITY\tACTION\tSTATUS\tREASON"); err != nil {
		return err
	}
	for _, result := range summary.Results {
		reason := result.Reason
		if reason == "" {
			reason = "-"
		}
		if err := writef(tw, "%s\t%s %s\t%s\t%s\t%s\n",
			result.IssueType, result.Entity, result.EntityID,
			result.Action, result.Status, reason); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush fix table: %w", err)
	}
	return nil
}

type reportListOptions struct {
	Limit int
	Since time.Duration
}

func parseReportListFlags(args []string) (reportListOptions, error) {
	fs := flag.NewFlagSet("report-list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := reportListOptions{Limit: 10}
	fs.IntVar(&opts.Limit, "limit", 10, "Maximum reports to display")
	fs.DurationVar(&opts.Since, "since", 0, "Only show reports from the last duration (e.g. 72h)")

	if err := fs.Parse(args); err != nil {
		return reportListOptions{}, err
	}
	return opts, nil
}

func runReportList(cmdCtx *commandContext, args []string) error {
	opts, err := parseReportListFlags(args)
	if err != nil {
		return err
	}

	listOpts := &model.ReportListOptions{Limit: opts.Limit}
	if opts.Since > 0 {
		since := time.Now().Add(-opts.Since)
		listOpts.Since = &since
	}

	return withServices(cmdCtx, defaultCommandTimeout, func(ctx context.Context, services *bootstrap.ServiceContainer) error {
		summaries, listErr := services.Reports.ListSummaries(ctx, listOpts)
		if listErr != nil {
			return fmt.Errorf("list reports: %w", listErr)
		}
		return printReportSummaries(summaries)
	})
}

func printReportSummaries(summaries []service.ReportSummary) error {
	if len(summaries) == 0 {
		return writeln(os.Stdout, "(no reports found)")
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "ID\tRUN AT\tDURATION\tISSUES\tCRITICAL\tFIXABLE\tHEALTH"); err != nil {
		return err
	}
	for _, s := range summaries {
		if err := writef(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%.1f\n",
			s.ID, s.RunAt.UTC().Format(time.RFC3339), s.Duration.Round(time.Millisecond),
			s.TotalIssues, s.Critical, s.Fixable, s.HealthScore); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush report table: %w", err)
	}
	return nil
}
