package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openbench/jurisync/internal/domain/model"
)

// PhaseError wraps a pipeline failure with the sync phase it occurred in, so
// the job layer can report which stage of a multi-phase sync went wrong.
type PhaseError struct {
	Phase model.SyncPhase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("phase %s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// phaseErr tags err with the phase it happened in. nil stays nil.
func phaseErr(phase model.SyncPhase, err error) error {
	if err == nil {
		return nil
	}
	return &PhaseError{Phase: phase, Err: err}
}

// FailurePhase extracts the failing phase from a pipeline error chain.
// Returns "" when the error carries no phase information.
func FailurePhase(err error) string {
	var pe *PhaseError
	if errors.As(err, &pe) {
		return string(pe.Phase)
	}
	return ""
}

// JobEnqueuer is the slice of the queue the pipelines use to fan work out.
// Both QueueService and the queue repository satisfy it.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, req *model.EnqueueRequest) (*model.SyncJob, error)
}

// catalogDateLayouts are the formats upstream date strings arrive in.
var catalogDateLayouts = []string{"2006-01-02", time.RFC3339}

// parseCatalogDate parses an upstream ISO date string.
func parseCatalogDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	var lastErr error
	for _, layout := range catalogDateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// parseCatalogDatePtr parses an optional upstream date. Absent or
// unparseable values yield nil.
func parseCatalogDatePtr(raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	t, err := parseCatalogDate(*raw)
	if err != nil {
		return nil
	}
	return &t
}

// optionalString converts an upstream string field to a nullable column value.
func optionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// optionalStringPtr is optionalString for fields that already arrive as pointers.
func optionalStringPtr(v *string) *string {
	if v == nil {
		return nil
	}
	return optionalString(*v)
}

// collapseWhitespace squeezes runs of whitespace down to single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// activeJobExternalIDs returns the external ids with a pending or running job
// of the given type. Resync sweeps consult it so they do not stack duplicate
// work on entities already in flight.
func activeJobExternalIDs(ctx context.Context, queue ResyncQueue, entityType model.EntityType) (map[string]struct{}, error) {
	active := make(map[string]struct{})
	for _, status := range []model.JobStatus{model.JobStatusPending, model.JobStatusRunning} {
		st := status
		et := entityType
		jobs, err := queue.List(ctx, &model.JobListOptions{
			Status:     &st,
			EntityType: &et,
			Limit:      1000,
		})
		if err != nil {
			return nil, fmt.Errorf("list %s jobs: %w", status, err)
		}
		for _, job := range jobs {
			if job.EntityExternalID != "" {
				active[job.EntityExternalID] = struct{}{}
			}
		}
	}
	return active, nil
}
