// Package schedule contains the domain types and overrun-policy logic for
// recurring sync sweeps. A sweep describes a sync job template that the
// scheduler service turns into queue entries on a fixed interval or a cron
// expression.
package schedule

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/openbench/jurisync/internal/domain/model"
)

// cronParser accepts the standard five-field cron syntax (minute through
// day-of-week).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Sweep is a recurring sync sweep definition. Cadence comes from either
// Interval or CronExpr; when both are set the cron expression wins.
type Sweep struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	EntityType model.EntityType `json:"entity_type"`
	Payload    json.RawMessage  `json:"payload"`
	// Interval is the scheduling cadence for interval-based sweeps.
	// Note: encoding/json marshals time.Duration as a number of nanoseconds.
	Interval time.Duration `json:"interval"`
	// CronExpr holds a five-field cron expression for calendar-based sweeps.
	CronExpr     *string    `json:"cron_expr,omitempty"`
	Enabled      bool       `json:"enabled"`
	LastQueuedAt *time.Time `json:"last_queued_at,omitempty"`
	// NextRunAt is the precomputed next fire time, maintained on every queue
	// transition so due-sweep scans stay index-friendly.
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
	// OverrunPolicy overrides the scheduler strategy when set; otherwise global defaults are used.
	OverrunPolicy *OverrunPolicy `json:"overrun_policy,omitempty"`
	// OverrunStates defines which job states should block new enqueue attempts.
	OverrunStates *OverrunStateMask `json:"overrun_states,omitempty"`
	// ActiveFireKey tracks the currently outstanding fire key (if any) for the sweep.
	ActiveFireKey *string `json:"active_fire_key,omitempty"`
}

// DueAt reports whether the sweep should fire at the given time. Disabled
// sweeps are never due. NextRunAt, when present, is authoritative; otherwise
// the sweep falls back to LastQueuedAt plus Interval.
func (s Sweep) DueAt(now time.Time) bool {
	if !s.Enabled {
		return false
	}
	if s.NextRunAt != nil {
		return !s.NextRunAt.After(now)
	}
	if s.LastQueuedAt == nil {
		return true
	}
	return !s.LastQueuedAt.Add(s.Interval).After(now)
}

// NextRun computes the fire time following `from`. Cron sweeps consult the
// parsed expression; interval sweeps add the interval. Sweeps with neither a
// valid cron expression nor a positive interval return an error so callers
// can surface the misconfiguration instead of hot-looping.
func (s Sweep) NextRun(from time.Time) (time.Time, error) {
	if s.CronExpr != nil && *s.CronExpr != "" {
		spec, err := cronParser.Parse(*s.CronExpr)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse cron expression %q: %w", *s.CronExpr, err)
		}
		return spec.Next(from), nil
	}
	if s.Interval <= 0 {
		return time.Time{}, fmt.Errorf("sweep %q has no cron expression and a non-positive interval", s.Name)
	}
	return from.Add(s.Interval), nil
}

// ValidateCadence checks that the sweep's cadence configuration can produce
// fire times.
func (s Sweep) ValidateCadence() error {
	_, err := s.NextRun(time.Unix(0, 0).UTC())
	return err
}

// OverrunPolicy defines how to handle scheduling when a previous job is still running.
type OverrunPolicy string

const (
	// OverrunPolicySkip skips scheduling if a running job with unexpired lease exists.
	// Expired leases should not block scheduling (addresses upstream/network failures).
	OverrunPolicySkip OverrunPolicy = "skip"

	// OverrunPolicyQueue always enqueues a new job regardless of running jobs.
	OverrunPolicyQueue OverrunPolicy = "queue"

	// OverrunPolicyReschedule updates last_queued_at but does not enqueue a job.
	OverrunPolicyReschedule OverrunPolicy = "reschedule"
)

// UnmarshalText implements encoding.TextUnmarshaler to parse OverrunPolicy from env or text.
func (p *OverrunPolicy) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch OverrunPolicy(v) {
	case OverrunPolicySkip, OverrunPolicyQueue, OverrunPolicyReschedule:
		*p = OverrunPolicy(v)
		return nil
	default:
		return fmt.Errorf("invalid OverrunPolicy: %q", v)
	}
}

// OverrunStateMask controls which job states block new enqueue attempts when using OverrunPolicySkip.
// Bitmask values allow callers to toggle multiple states at once.
type OverrunStateMask uint8

const (
	// OverrunStateRunning blocks when an in-progress job with an active lease exists.
	OverrunStateRunning OverrunStateMask = 1 << iota
	// OverrunStatePending blocks when a pending job exists (covers freshly enqueued jobs).
	OverrunStatePending
	// OverrunStateRetrying blocks when a pending job exists with attempt_count > 0.
	OverrunStateRetrying
)

// OverrunStatesDefault blocks only on running jobs.
const OverrunStatesDefault = OverrunStateRunning

// Has reports whether the mask includes the provided flag.
func (m *OverrunStateMask) Has(flag OverrunStateMask) bool {
	if m == nil {
		return false
	}
	return (*m)&flag != 0
}

// String returns a stable, comma-separated representation of the mask.
func (m *OverrunStateMask) String() string {
	if m == nil {
		return ""
	}
	mask := *m
	if mask == 0 {
		return ""
	}

	var parts []string
	for _, entry := range []struct {
		name string
		flag OverrunStateMask
	}{
		{"running", OverrunStateRunning},
		{"pending", OverrunStatePending},
		{"retrying", OverrunStateRetrying},
	} {
		if mask&entry.flag != 0 {
			parts = append(parts, entry.name)
		}
	}
	return strings.Join(parts, ",")
}

// ParseOverrunStateMask parses a comma-separated list of state names into a mask.
func ParseOverrunStateMask(v string) (OverrunStateMask, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	var mask OverrunStateMask
	for _, part := range strings.Split(v, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		flag, err := parseOverrunStateName(name)
		if err != nil {
			return 0, err
		}
		mask |= flag
	}
	return mask, nil
}

// MarshalText implements encoding.TextMarshaler.
func (m *OverrunStateMask) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *OverrunStateMask) UnmarshalText(text []byte) error {
	mask, err := ParseOverrunStateMask(string(text))
	if err != nil {
		return err
	}
	*m = mask
	return nil
}

func parseOverrunStateName(name string) (OverrunStateMask, error) {
	switch name {
	case "running":
		return OverrunStateRunning, nil
	case "pending":
		return OverrunStatePending, nil
	case "retrying":
		return OverrunStateRetrying, nil
	default:
		return 0, fmt.Errorf("invalid overrun state: %q", name)
	}
}

// StrategyOptions holds configuration for the scheduling strategy.
type StrategyOptions struct {
	Overrun       OverrunPolicy    `json:"overrun"`
	OverrunStates OverrunStateMask `json:"overrun_states"`
}

// FindDueParams holds inputs for transactional FindDue.
type FindDueParams struct {
	Now   time.Time
	Limit int
}

// MarkQueuedParams holds inputs for transactional MarkQueued. NextRunAt, when
// set, advances the sweep's precomputed fire time in the same statement.
type MarkQueuedParams struct {
	ID                 string
	Now                time.Time
	NextRunAt          *time.Time
	ActiveFireKey      *string
	ActiveFireKeySetAt *time.Time
}

// UpdateActiveFireKeyParams updates the outstanding fire key for a sweep.
// Provide FireKey=nil to clear the active key.
type UpdateActiveFireKeyParams struct {
	ID      string
	FireKey *string
	SetAt   time.Time
}

// UpsertSweepParams holds parameters for admin upsert-by-name in sync_schedules.
type UpsertSweepParams struct {
	Name       string
	EntityType model.EntityType
	Payload    json.RawMessage
	Interval   time.Duration
	CronExpr   *string
	Enabled    bool
	// Optional overrides. When nil the scheduler applies global defaults.
	OverrunPolicy *OverrunPolicy
	OverrunStates *OverrunStateMask
}

// Validate checks the upsert parameters for obvious misconfiguration.
func (p UpsertSweepParams) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("sweep name is required")
	}
	if !p.EntityType.Valid() {
		return fmt.Errorf("invalid entity type: %q", p.EntityType)
	}
	probe := Sweep{Name: p.Name, Interval: p.Interval, CronExpr: p.CronExpr}
	return probe.ValidateCadence()
}
