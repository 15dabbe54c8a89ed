package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/openbench/jurisync/internal/bootstrap"
	"github.com/openbench/jurisync/internal/domain/model"
)

// queueEntityTypes is the display order for per-entity queue stats.
var queueEntityTypes = []model.EntityType{
	model.EntityTypeCourt,
	model.EntityTypeJudge,
	model.EntityTypeDecision,
	model.EntityTypeFull,
	model.EntityTypeCleanup,
}

func runQueueStats(cmdCtx *commandContext, _ []string) error {
	return withServices(cmdCtx, defaultCommandTimeout, func(ctx context.Context, services *bootstrap.ServiceContainer) error {
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		if err := writeln(tw, "ENTITY\tPENDING\tRUNNING\tCOMPLETED\tFAILED\tCANCELLED\tTOTAL"); err != nil {
			return err
		}
		for _, entityType := range queueEntityTypes {
			stats, err := services.Queue.Stats(ctx, entityType)
			if err != nil {
				return fmt.Errorf("stats for %s: %w", entityType, err)
			}
			if err := writef(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
				entityType, stats.Pending, stats.Running, stats.Completed,
				stats.Failed, stats.Cancelled, stats.Total()); err != nil {
				return err
			}
		}
		if err := tw.Flush(); err != nil {
			return fmt.Errorf("flush stats table: %w", err)
		}
		return nil
	})
}

type queueListOptions struct {
	EntityType string
	Status     string
	Limit      int
	Offset     int
}

func parseQueueListFlags(args []string) (queueListOptions, error) {
	fs := flag.NewFlagSet("queue-list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts queueListOptions
	fs.StringVar(&opts.EntityType, "entity", "", "Filter by entity type (court, judge, decision, full, cleanup)")
	fs.StringVar(&opts.Status, "status", "", "Filter by status (pending, running, completed, failed, cancelled)")
	fs.IntVar(&opts.Limit, "limit", 25, "Maximum jobs to display")
	fs.IntVar(&opts.Offset, "offset", 0, "Pagination offset")

	if err := fs.Parse(args); err != nil {
		return queueListOptions{}, err
	}
	return opts, nil
}

func (o *queueListOptions) toListOptions() (*model.JobListOptions, error) {
	list := &model.JobListOptions{Limit: o.Limit, Offset: o.Offset}
	if o.EntityType != "" {
		et := model.EntityType(o.EntityType)
		if !et.Valid() {
			return nil, fmt.Errorf("invalid entity type %q", o.EntityType)
		}
		list.EntityType = &et
	}
	if o.Status != "" {
		st := model.JobStatus(o.Status)
		if !st.Valid() {
			return nil, fmt.Errorf("invalid status %q", o.Status)
		}
		list.Status = &st
	}
	return list, nil
}

func runQueueList(cmdCtx *commandContext, args []string) error {
	opts, err := parseQueueListFlags(args)
	if err != nil {
		return err
	}
	listOpts, err := opts.toListOptions()
	if err != nil {
		return err
	}

	return withServices(cmdCtx, defaultCommandTimeout, func(ctx context.Context, services *bootstrap.ServiceContainer) error {
		jobs, listErr := services.Queue.List(ctx, listOpts)
		if listErr != nil {
			return listErr
		}
		return printJobs(jobs)
	})
}

func printJobs(jobs []*model.SyncJob) error {
	if len(jobs) == 0 {
		return writeln(os.Stdout, "(no jobs matched)")
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "ID\tENTITY\tEXTERNAL ID\tOP\tSTATUS\tATTEMPTS\tPRIORITY\tSCHEDULED FOR\tLAST ERROR"); err != nil {
		return err
	}
	for _, job := range jobs {
		lastErr := "-"
		if job.LastError != nil {
			lastErr = truncate(*job.LastError, 60)
		}
		externalID := job.EntityExternalID
		if externalID == "" {
			externalID = "-"
		}
		if err := writef(tw, "%s\t%s\t%s\t%s\t%s\t%d/%d\t%d\t%s\t%s\n",
			job.ID, job.EntityType, externalID, job.Operation, job.Status,
			job.AttemptCount, job.MaxAttempts, job.Priority,
			job.ScheduledFor.UTC().Format(time.RFC3339), lastErr); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush job table: %w", err)
	}
	return nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

type queueEnqueueOptions struct {
	EntityType string
	ExternalID string
	Operation  string
	Priority   int
	Payload    string
}

func parseQueueEnqueueFlags(args []string) (queueEnqueueOptions, error) {
	fs := flag.NewFlagSet("queue-enqueue", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts queueEnqueueOptions
	fs.StringVar(&opts.EntityType, "entity", "", "Entity type to sync (required)")
	fs.StringVar(&opts.ExternalID, "id", "", "Upstream external ID (required except for full/cleanup)")
	fs.StringVar(&opts.Operation, "operation", string(model.OperationUpdate), "Operation: create or update")
	fs.IntVar(&opts.Priority, "priority", 0, "Job priority (0-100, higher first)")
	fs.StringVar(&opts.Payload, "payload", "", "Optional JSON payload")

	if err := fs.Parse(args); err != nil {
		return queueEnqueueOptions{}, err
	}
	if opts.EntityType == "" {
		return queueEnqueueOptions{}, errors.New("--entity is required")
	}
	if opts.Payload != "" && !json.Valid([]byte(opts.Payload)) {
		return queueEnqueueOptions{}, errors.New("--payload must be valid JSON")
	}
	return opts, nil
}

func runQueueEnqueue(cmdCtx *commandContext, args []string) error {
	opts, err := parseQueueEnqueueFlags(args)
	if err != nil {
		return err
	}

	req := &model.EnqueueRequest{
		EntityType:       model.EntityType(opts.EntityType),
		EntityExternalID: opts.ExternalID,
		Operation:        model.Operation(opts.Operation),
		Priority:         opts.Priority,
		Metadata:         map[string]any{"enqueued_via": "jurisync-admin"},
	}
	if opts.Payload != "" {
		req.Payload = json.RawMessage(opts.Payload)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	return withServices(cmdCtx, defaultCommandTimeout, func(ctx context.Context, services *bootstrap.ServiceContainer) error {
		job, enqueueErr := services.Queue.Enqueue(ctx, req)
		if enqueueErr != nil {
			return enqueueErr
		}
		cmdCtx.Logger.Info("job enqueued",
			"id", job.ID,
			"entity_type", job.EntityType,
			"external_id", job.EntityExternalID,
			"status", job.Status)
		return nil
	})
}

func runQueueCancel(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("queue-cancel", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	jobID := fs.String("id", "", "Job ID to cancel (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *jobID == "" {
		return errors.New("--id is required")
	}

	return withServices(cmdCtx, defaultCommandTimeout, func(ctx context.Context, services *bootstrap.ServiceContainer) error {
		cancelled, err := services.Queue.Cancel(ctx, *jobID)
		if err != nil {
			return fmt.Errorf("cancel job: %w", err)
		}
		if !cancelled {
			return fmt.Errorf("job %q not found or not cancellable", *jobID)
		}
		cmdCtx.Logger.Info("job cancelled", "id", *jobID)
		return nil
	})
}
