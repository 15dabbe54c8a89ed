package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AssignmentType classifies a judge's relationship to a court.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type AssignmentType string

const (
	// AssignmentPrimary is the judge's current seat. At most one may be active.
	AssignmentPrimary AssignmentType = "primary"
	// AssignmentVisiting marks a visiting or designated assignment.
	AssignmentVisiting AssignmentType = "visiting"
	// AssignmentTemporary marks a short-term or acting assignment.
	AssignmentTemporary AssignmentType = "temporary"
	// AssignmentRetired marks a concluded assignment retained for history.
	AssignmentRetired AssignmentType = "retired"
)

// Valid returns true if the AssignmentType is one of the known values.
func (t AssignmentType) Valid() bool {
	switch t {
	case AssignmentPrimary, AssignmentVisiting, AssignmentTemporary, AssignmentRetired:
		return true
	}
	return false
}

// UnmarshalText implements encoding.TextUnmarshaler for AssignmentType.
func (t *AssignmentType) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	at := AssignmentType(v)
	if at.Valid() {
		*t = at
		return nil
	}
	return fmt.Errorf("invalid AssignmentType: %q", v)
}

// Judge represents one judge synced from the upstream catalog.
//
// CaseCount is denormalized from the decisions table by the judge pipeline and
// recomputed by the cleanup pass; treat it as a hint, not a source of truth.
type Judge struct {
	ID           string       `json:"id"                       db:"id"`
	ExternalID   string       `json:"external_id"              db:"external_id"`
	Name         string       `json:"name"                     db:"name"`
	Slug         string       `json:"slug"                     db:"slug"`
	Jurisdiction Jurisdiction `json:"jurisdiction"             db:"jurisdiction"`
	BirthYear    *int         `json:"birth_year,omitempty"     db:"birth_year"`
	Appointer    *string      `json:"appointer,omitempty"      db:"appointer"`
	CaseCount    int          `json:"case_count"               db:"case_count"`
	CreatedAt    time.Time    `json:"created_at"               db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"               db:"updated_at"`
	LastSyncedAt *time.Time   `json:"last_synced_at,omitempty" db:"last_synced_at"`
}

// CourtAssignment links a judge to a court for a dated interval.
// EndDate == nil means the assignment is still active (open-ended).
type CourtAssignment struct {
	ID             string         `json:"id"                 db:"id"`
	JudgeID        string         `json:"judge_id"           db:"judge_id"`
	CourtID        string         `json:"court_id"           db:"court_id"`
	AssignmentType AssignmentType `json:"assignment_type"    db:"assignment_type"`
	StartDate      time.Time      `json:"start_date"         db:"start_date"`
	EndDate        *time.Time     `json:"end_date,omitempty" db:"end_date"`
	CreatedAt      time.Time      `json:"created_at"         db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"         db:"updated_at"`
}

// Active reports whether the assignment has no termination date.
func (a CourtAssignment) Active() bool {
	return a.EndDate == nil
}

// Overlaps reports whether two [start, end) intervals intersect.
// Open-ended assignments are treated as ending far in the future, and
// boundary-adjacent intervals (one ends exactly where the other starts) do
// not overlap.
func (a CourtAssignment) Overlaps(b CourtAssignment) bool {
	aEnd := endOrFarFuture(a.EndDate)
	bEnd := endOrFarFuture(b.EndDate)
	return a.StartDate.Before(bEnd) && b.StartDate.Before(aEnd)
}

// farFuture stands in for the end of an open interval in overlap arithmetic.
var farFuture = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

func endOrFarFuture(end *time.Time) time.Time {
	if end == nil {
		return farFuture
	}
	return *end
}

// UpsertJudgeParams carries the normalized fields written by the judge pipeline.
type UpsertJudgeParams struct {
	ExternalID   string
	Name         string
	Slug         string
	Jurisdiction Jurisdiction
	BirthYear    *int
	Appointer    *string
}

// Validate checks the fields required for a judge upsert.
func (p *UpsertJudgeParams) Validate() error {
	if strings.TrimSpace(p.ExternalID) == "" {
		return errors.New("external id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(p.Slug) == "" {
		return errors.New("slug is required")
	}
	if !p.Jurisdiction.Valid() {
		return fmt.Errorf("invalid jurisdiction: %q", p.Jurisdiction)
	}
	return nil
}

// ReplaceAssignmentParams describes one assignment row derived from upstream
// position history. The judge pipeline replaces a judge's assignment set
// atomically, so rows carry no ids.
type ReplaceAssignmentParams struct {
	CourtID        string
	AssignmentType AssignmentType
	StartDate      time.Time
	EndDate        *time.Time
}

// Validate checks a single derived assignment row.
func (p *ReplaceAssignmentParams) Validate() error {
	if p.CourtID == "" {
		return errors.New("court id is required")
	}
	if !p.AssignmentType.Valid() {
		return fmt.Errorf("invalid assignment type: %q", p.AssignmentType)
	}
	if p.StartDate.IsZero() {
		return errors.New("start date is required")
	}
	if p.EndDate != nil && !p.EndDate.After(p.StartDate) {
		return errors.New("end date must be after start date")
	}
	return nil
}
