package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Outcome is the closed taxonomy for case dispositions. Upstream values that
// do not map cleanly are stored as OutcomeOther and flagged by the validator.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type Outcome string

const (
	OutcomeSettled   Outcome = "settled"
	OutcomeDismissed Outcome = "dismissed"
	OutcomeJudgment  Outcome = "judgment"
	OutcomeGranted   Outcome = "granted"
	OutcomeDenied    Outcome = "denied"
	OutcomeWithdrawn Outcome = "withdrawn"
	OutcomeRemanded  Outcome = "remanded"
	OutcomeAffirmed  Outcome = "affirmed"
	OutcomeReversed  Outcome = "reversed"
	OutcomeVacated   Outcome = "vacated"
	OutcomeOther     Outcome = "other"
)

// CanonicalOutcomes lists every accepted outcome in display order.
func CanonicalOutcomes() []Outcome {
	return []Outcome{
		OutcomeSettled, OutcomeDismissed, OutcomeJudgment, OutcomeGranted, OutcomeDenied,
		OutcomeWithdrawn, OutcomeRemanded, OutcomeAffirmed, OutcomeReversed, OutcomeVacated,
		OutcomeOther,
	}
}

// Valid returns true if the Outcome belongs to the closed taxonomy.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeSettled, OutcomeDismissed, OutcomeJudgment, OutcomeGranted, OutcomeDenied,
		OutcomeWithdrawn, OutcomeRemanded, OutcomeAffirmed, OutcomeReversed, OutcomeVacated,
		OutcomeOther:
		return true
	}
	return false
}

// UnmarshalText implements encoding.TextUnmarshaler for Outcome.
func (o *Outcome) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	out := Outcome(v)
	if out.Valid() {
		*o = out
		return nil
	}
	return fmt.Errorf("invalid Outcome: %q", v)
}

// Decision represents one decided case synced from the upstream catalog.
// JudgeID and CourtID are nullable: orphan repair may sever a dangling link
// while keeping the decision itself.
type Decision struct {
	ID           string     `json:"id"                       db:"id"`
	ExternalID   string     `json:"external_id"              db:"external_id"`
	CaseName     string     `json:"case_name"                db:"case_name"`
	DocketNumber *string    `json:"docket_number,omitempty"  db:"docket_number"`
	CourtID      *string    `json:"court_id,omitempty"       db:"court_id"`
	JudgeID      *string    `json:"judge_id,omitempty"       db:"judge_id"`
	Outcome      Outcome    `json:"outcome"                  db:"outcome"`
	RawOutcome   *string    `json:"raw_outcome,omitempty"    db:"raw_outcome"`
	DecisionDate *time.Time `json:"decision_date,omitempty"  db:"decision_date"`
	FiledDate    *time.Time `json:"filed_date,omitempty"     db:"filed_date"`
	Summary      *string    `json:"summary,omitempty"        db:"summary"`
	CreatedAt    time.Time  `json:"created_at"               db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"               db:"updated_at"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty" db:"last_synced_at"`
}

// UpsertDecisionParams carries the normalized fields written by the decision pipeline.
// RawOutcome preserves the upstream disposition string for taxonomy auditing.
type UpsertDecisionParams struct {
	ExternalID   string
	CaseName     string
	DocketNumber *string
	CourtID      *string
	JudgeID      *string
	Outcome      Outcome
	RawOutcome   *string
	DecisionDate *time.Time
	FiledDate    *time.Time
	Summary      *string
}

// Validate checks the fields required for a decision upsert.
func (p *UpsertDecisionParams) Validate() error {
	if strings.TrimSpace(p.ExternalID) == "" {
		return errors.New("external id is required")
	}
	if strings.TrimSpace(p.CaseName) == "" {
		return errors.New("case name is required")
	}
	if !p.Outcome.Valid() {
		return fmt.Errorf("invalid outcome: %q", p.Outcome)
	}
	return nil
}
