package metrics

import (
	"time"

	obserrors "github.com/openbench/jurisync/internal/observability/errors"
	"github.com/openbench/jurisync/internal/observability/statsd"
)

// ValidationMetric captures one validator run for metric emission.
type ValidationMetric struct {
	TriggeredBy      string
	Duration         time.Duration
	IssuesBySeverity map[string]int
	Err              error
}

// EmitValidationRun emits a run counter, its duration, and per-severity
// issue counts.
func EmitValidationRun(sink statsd.Sink, in ValidationMetric) {
	if sink == nil {
		return
	}

	result := ResultSuccess
	tags := map[string]string{
		"triggered_by": in.TriggeredBy,
	}
	if in.Err != nil {
		result = ResultError
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}
	tags["result"] = result

	sink.Count("validation.run", 1, tags)
	if in.Duration > 0 {
		sink.Timing("validation.duration", in.Duration, CloneTags(tags))
	}

	for severity, count := range in.IssuesBySeverity {
		if count < 0 {
			continue
		}
		sink.Count("validation.issues", int64(count), map[string]string{"severity": severity})
	}
}
