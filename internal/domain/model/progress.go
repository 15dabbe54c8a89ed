package model

import (
	"fmt"
	"strings"
	"time"
)

// SyncPhase is the per-entity completion phase tracked by SyncProgress.
// Phases only move forward; skipping ahead is allowed (court sync has no
// positions phase), moving backward is not.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type SyncPhase string

const (
	PhaseDiscovery SyncPhase = "discovery"
	PhasePositions SyncPhase = "positions"
	PhaseDetails   SyncPhase = "details"
	PhaseOpinions  SyncPhase = "opinions"
	PhaseDockets   SyncPhase = "dockets"
	PhaseComplete  SyncPhase = "complete"
)

// phaseOrder maps phases to their position in the pipeline sequence.
var phaseOrder = map[SyncPhase]int{
	PhaseDiscovery: 0,
	PhasePositions: 1,
	PhaseDetails:   2,
	PhaseOpinions:  3,
	PhaseDockets:   4,
	PhaseComplete:  5,
}

// Valid returns true if the SyncPhase is one of the known phases.
func (p SyncPhase) Valid() bool {
	_, ok := phaseOrder[p]
	return ok
}

// Order returns the phase's position in the pipeline sequence, -1 when unknown.
func (p SyncPhase) Order() int {
	n, ok := phaseOrder[p]
	if !ok {
		return -1
	}
	return n
}

// CanAdvanceTo reports whether moving from p to next is a forward transition.
func (p SyncPhase) CanAdvanceTo(next SyncPhase) bool {
	if !p.Valid() || !next.Valid() {
		return false
	}
	return next.Order() > p.Order()
}

// UnmarshalText implements encoding.TextUnmarshaler for SyncPhase.
func (p *SyncPhase) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	ph := SyncPhase(v)
	if ph.Valid() {
		*p = ph
		return nil
	}
	return fmt.Errorf("invalid SyncPhase: %q", v)
}

// SyncProgress tracks how far the pipelines have carried one entity.
// Rows are owned and mutated exclusively by the sync pipelines; the validator
// and external analytics consumers read them.
type SyncProgress struct {
	ID               string     `json:"id"                     db:"id"`
	EntityType       EntityType `json:"entity_type"            db:"entity_type"`
	EntityExternalID string     `json:"entity_external_id"     db:"entity_external_id"`
	Phase            SyncPhase  `json:"phase"                  db:"phase"`
	CaseCount        int        `json:"case_count"             db:"case_count"`
	IsAnalyticsReady bool       `json:"is_analytics_ready"     db:"is_analytics_ready"`
	LastError        *string    `json:"last_error,omitempty"   db:"last_error"`
	StartedAt        time.Time  `json:"started_at"             db:"started_at"`
	UpdatedAt        time.Time  `json:"updated_at"             db:"updated_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}
