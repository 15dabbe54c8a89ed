// Package failurenotifier fans operational alerts out to the configured
// notification sinks (Slack, PagerDuty). It carries two event shapes: sync
// jobs that dead-letter, and validation reports whose findings cross the
// alerting threshold.
package failurenotifier

import (
	"context"
	"log/slog"
	"sync"

	"github.com/openbench/jurisync/internal/observability/notify"
)

// SinkRegistration pairs a sink implementation with a human-readable name for logging.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Options configures the failure notifier service.
type Options struct {
	Logger *slog.Logger
	Sinks  []SinkRegistration
}

// Service dispatches failure events to all registered sinks.
type Service struct {
	logger *slog.Logger
	sinks  []SinkRegistration
}

// NewService constructs a failure notifier.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "failure_notifier")
	}

	var sinks []SinkRegistration
	for _, entry := range opts.Sinks {
		if entry.Sink == nil {
			continue
		}
		name := entry.Name
		if name == "" {
			name = "sink"
		}
		sinks = append(sinks, SinkRegistration{
			Name: name,
			Sink: entry.Sink,
		})
	}

	return &Service{
		logger: logger,
		sinks:  sinks,
	}
}

// NotifyJobFailure fan-outs a dead-letter payload to all sinks.
func (s *Service) NotifyJobFailure(ctx context.Context, payload notify.JobFailurePayload) {
	if len(s.sinks) == 0 {
		return
	}

	if payload.Severity == "" {
		payload.Severity = notify.SeverityCritical
	}

	var wg sync.WaitGroup
	for _, entry := range s.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := entry.Sink.SendJobFailure(ctx, payload); err != nil {
				s.logger.Error("failure notifier delivery error",
					"sink", entry.Name,
					"job_id", payload.JobID,
					"entity_type", payload.EntityType,
					"error", err,
				)
			}
		}()
	}
	wg.Wait()
}

// NotifyReportAlert fan-outs a validation report summary to all sinks.
func (s *Service) NotifyReportAlert(ctx context.Context, payload notify.ReportAlertPayload) {
	if len(s.sinks) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, entry := range s.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := entry.Sink.SendReportAlert(ctx, payload); err != nil {
				s.logger.Error("report alert delivery error",
					"sink", entry.Name,
					"report_id", payload.ReportID,
					"error", err,
				)
			}
		}()
	}
	wg.Wait()
}

// Enabled reports whether the notifier has any active sinks.
func (s *Service) Enabled() bool {
	return len(s.sinks) > 0
}
