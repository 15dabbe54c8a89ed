// Package model defines the core data types used throughout the jurisync sync and validation system.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// EntityType identifies which sync pipeline a queued job belongs to.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type EntityType string

// Operation describes the upsert intent carried by a sync job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type Operation string

// JobStatus represents the current status of a sync job.
type JobStatus string

const (
	// EntityTypeCourt syncs a single court record.
	EntityTypeCourt EntityType = "court"
	// EntityTypeJudge syncs a judge with positions, opinions, and dockets.
	EntityTypeJudge EntityType = "judge"
	// EntityTypeDecision syncs a single decision/opinion record.
	EntityTypeDecision EntityType = "decision"
	// EntityTypeCleanup runs the idempotent auto-fix and recount pass.
	EntityTypeCleanup EntityType = "cleanup"
	// EntityTypeFull runs a paginated discovery sweep across the upstream catalog.
	EntityTypeFull EntityType = "full"

	// OperationCreate indicates the entity is not expected to exist locally yet.
	OperationCreate Operation = "create"
	// OperationUpdate indicates a refresh of an entity that was synced before.
	OperationUpdate Operation = "update"

	// JobStatusPending indicates a job is waiting to be claimed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates a job is claimed by exactly one worker.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates a job finished successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates a job exhausted its attempts (dead-lettered).
	JobStatusFailed JobStatus = "failed"
	// JobStatusCancelled indicates a job was withdrawn out-of-band before completion.
	JobStatusCancelled JobStatus = "cancelled"
)

// ErrNoJobsAvailable is returned when no claimable jobs exist for a worker.
var ErrNoJobsAvailable = errors.New("no jobs available")

// UnmarshalText implements encoding.TextUnmarshaler for EntityType to allow env parsing.
func (t *EntityType) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	et := EntityType(v)
	if et.Valid() {
		*t = et
		return nil
	}
	return fmt.Errorf("invalid EntityType: %q", v)
}

// Valid returns true if the EntityType is one of the known pipeline types.
func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeCourt, EntityTypeJudge, EntityTypeDecision, EntityTypeCleanup, EntityTypeFull:
		return true
	}
	return false
}

// UnmarshalText implements encoding.TextUnmarshaler for Operation.
func (o *Operation) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	op := Operation(v)
	if op.Valid() {
		*o = op
		return nil
	}
	return fmt.Errorf("invalid Operation: %q", v)
}

// Valid returns true if the Operation is a known upsert intent.
func (o Operation) Valid() bool {
	return o == OperationCreate || o == OperationUpdate
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status ends the job lifecycle.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// SyncJob is one durable unit of sync work in the queue.
//
// attempt_count counts failed attempts: a job that succeeds on its third claim
// after two transient failures completes with AttemptCount == 2.
type SyncJob struct {
	ID               string          `json:"id"                         db:"id"`
	EntityType       EntityType      `json:"entity_type"                db:"entity_type"`
	EntityExternalID string          `json:"entity_external_id"         db:"entity_external_id"`
	Operation        Operation       `json:"operation"                  db:"operation"`
	Priority         int             `json:"priority"                   db:"priority"`
	Status           JobStatus       `json:"status"                     db:"status"`
	AttemptCount     int             `json:"attempt_count"              db:"attempt_count"`
	MaxAttempts      int             `json:"max_attempts"               db:"max_attempts"`
	ScheduledFor     time.Time       `json:"scheduled_for"              db:"scheduled_for"`
	ClaimedBy        *string         `json:"claimed_by,omitempty"       db:"claimed_by"`
	ClaimedAt        *time.Time      `json:"claimed_at,omitempty"       db:"claimed_at"`
	LeaseExpiresAt   *time.Time      `json:"lease_expires_at,omitempty" db:"lease_expires_at"`
	Payload          json.RawMessage `json:"payload"                    db:"payload"`
	// Metadata carries orchestration context (sweep name, fire key) that is
	// not part of the entity payload handed to pipelines.
	Metadata    json.RawMessage `json:"metadata,omitempty"     db:"metadata"`
	LastError   *string         `json:"last_error,omitempty"   db:"last_error"`
	CompletedAt *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time       `json:"created_at"             db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"             db:"updated_at"`
}

// EnqueueRequest represents a request to enqueue a new sync job.
type EnqueueRequest struct {
	EntityType       EntityType      `json:"entity_type"`
	EntityExternalID string          `json:"entity_external_id"`
	Operation        Operation       `json:"operation"`
	Priority         int             `json:"priority,omitempty"`
	Payload          json.RawMessage `json:"payload,omitempty"`
	Metadata         map[string]any  `json:"metadata,omitempty"`
	ScheduledFor     *time.Time      `json:"scheduled_for,omitempty"`
	MaxAttempts      int             `json:"max_attempts"`
}

// Validate validates the EnqueueRequest fields.
func (r *EnqueueRequest) Validate() error {
	if !r.EntityType.Valid() {
		return errors.New("invalid entity type")
	}
	if !r.Operation.Valid() {
		return errors.New("invalid operation")
	}
	// Sweep-style jobs address the whole catalog rather than a single entity.
	if r.EntityExternalID == "" && r.EntityType != EntityTypeCleanup && r.EntityType != EntityTypeFull {
		return errors.New("entity external id is required")
	}
	if r.Priority < 0 || r.Priority > 100 {
		return errors.New("priority must be between 0 and 100")
	}
	if r.MaxAttempts < 0 {
		return errors.New("max attempts must be >= 0")
	}
	return nil
}

// QueueStats represents per-status counts for one entity type or the whole queue.
type QueueStats struct {
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// Total returns the number of jobs across all states.
func (s QueueStats) Total() int {
	return s.Pending + s.Running + s.Completed + s.Failed + s.Cancelled
}

// JobStatusView is the minimal status projection used by operational tooling.
type JobStatusView struct {
	Status      JobStatus  `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	LastError   *string    `json:"last_error,omitempty"`
}
