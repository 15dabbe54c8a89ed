package notify

import (
	"context"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// JobFailurePayload captures the canonical data emitted when a sync job
// exhausts its attempts and dead-letters.
type JobFailurePayload struct {
	JobID        string
	JobType      string
	EntityType   string
	ExternalID   string
	Phase        string
	AttemptCount int
	Error        string
	ErrorClass   string
	Severity     string
	OccurredAt   time.Time
	Metadata     map[string]string
}

// ReportAlertPayload summarises a validation report whose findings crossed
// the alerting threshold. Aggregate counts only; finding detail stays in
// the report store.
type ReportAlertPayload struct {
	ReportID      string
	TriggeredBy   string
	TotalIssues   int
	CriticalCount int
	HighCount     int
	HealthScore   float64
	OccurredAt    time.Time
}

// Sink describes a destination capable of consuming operational alerts.
type Sink interface {
	SendJobFailure(ctx context.Context, payload JobFailurePayload) error
	SendReportAlert(ctx context.Context, payload ReportAlertPayload) error
}

// Funcs adapts plain functions to the Sink interface (useful for tests).
// Nil members report success without doing anything.
type Funcs struct {
	JobFailure  func(ctx context.Context, payload JobFailurePayload) error
	ReportAlert func(ctx context.Context, payload ReportAlertPayload) error
}

// SendJobFailure implements the Sink interface.
func (f Funcs) SendJobFailure(ctx context.Context, payload JobFailurePayload) error {
	if f.JobFailure == nil {
		return nil
	}
	return f.JobFailure(ctx, payload)
}

// SendReportAlert implements the Sink interface.
func (f Funcs) SendReportAlert(ctx context.Context, payload ReportAlertPayload) error {
	if f.ReportAlert == nil {
		return nil
	}
	return f.ReportAlert(ctx, payload)
}
