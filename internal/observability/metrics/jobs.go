package metrics

import (
	"time"

	"github.com/openbench/jurisync/internal/domain/model"
	obserrors "github.com/openbench/jurisync/internal/observability/errors"
	"github.com/openbench/jurisync/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// JobMetric captures details about a job lifecycle event for metric emission.
type JobMetric struct {
	JobType    string
	EntityType string
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitJobLifecycle emits standardised job lifecycle metrics.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"job_type":   in.JobType,
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.EntityType != "" {
		tags["entity_type"] = in.EntityType
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, CloneTags(tags))
	}
}

// EmitQueueDepth emits per-status depth gauges for one entity type's queue.
func EmitQueueDepth(sink statsd.Sink, entityType string, stats model.QueueStats) {
	if sink == nil {
		return
	}

	byStatus := map[string]int{
		"pending":   stats.Pending,
		"running":   stats.Running,
		"completed": stats.Completed,
		"failed":    stats.Failed,
		"cancelled": stats.Cancelled,
	}
	for status, depth := range byStatus {
		sink.Gauge("queue.depth", float64(depth), map[string]string{
			"entity_type": entityType,
			"status":      status,
		})
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
