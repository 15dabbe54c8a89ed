package model

import (
	"fmt"
	"strings"
	"time"
)

// IssueType classifies a detected data-quality defect.
type IssueType string

const (
	// IssueOrphanedRecord marks a foreign key that no longer resolves.
	IssueOrphanedRecord IssueType = "orphaned_record"
	// IssueDuplicateIdentifier marks entities sharing an external id or docket number.
	IssueDuplicateIdentifier IssueType = "duplicate_identifier"
	// IssueStaleData marks entities past their resync threshold.
	IssueStaleData IssueType = "stale_data"
	// IssueMissingField marks required fields that are null or empty.
	IssueMissingField IssueType = "missing_field"
	// IssueInconsistentRelationship marks assignment/jurisdiction/name rule violations.
	IssueInconsistentRelationship IssueType = "inconsistent_relationship"
	// IssueDataIntegrity marks taxonomy, sample-size, and derived-value defects.
	IssueDataIntegrity IssueType = "data_integrity"
)

// Valid returns true if the IssueType is one of the known classifications.
func (t IssueType) Valid() bool {
	switch t {
	case IssueOrphanedRecord, IssueDuplicateIdentifier, IssueStaleData,
		IssueMissingField, IssueInconsistentRelationship, IssueDataIntegrity:
		return true
	}
	return false
}

// Severity ranks how urgently an issue needs attention.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// severityRank orders severities from most to least urgent.
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
}

// Valid returns true if the Severity is one of the known levels.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// Rank returns the severity's order, lower meaning more urgent. Unknown
// severities sort last.
func (s Severity) Rank() int {
	n, ok := severityRank[s]
	if !ok {
		return len(severityRank)
	}
	return n
}

// UnmarshalText implements encoding.TextUnmarshaler for Severity.
func (s *Severity) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	sev := Severity(v)
	if sev.Valid() {
		*s = sev
		return nil
	}
	return fmt.Errorf("invalid Severity: %q", v)
}

// ValidationIssue is one detected condition. Issues are produced fresh on
// every validation run and never mutated; they are not an error channel.
type ValidationIssue struct {
	Type            IssueType         `json:"type"`
	Severity        Severity          `json:"severity"`
	Entity          string            `json:"entity"`
	EntityID        string            `json:"entity_id"`
	Message         string            `json:"message"`
	SuggestedAction string            `json:"suggested_action,omitempty"`
	AutoFixable     bool              `json:"auto_fixable"`
	Confidence      float64           `json:"confidence,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// EntityCounts records how many rows each check battery scanned.
type EntityCounts struct {
	Courts      int `json:"courts"`
	Judges      int `json:"judges"`
	Decisions   int `json:"decisions"`
	Assignments int `json:"assignments"`
}

// ValidationReport is one immutable, timestamped validation run. Reports are
// appended to the report store and never updated, forming an audit trail.
type ValidationReport struct {
	ID              string            `json:"id"              db:"id"`
	RunAt           time.Time         `json:"run_at"          db:"run_at"`
	Duration        time.Duration     `json:"duration"        db:"duration_ms"`
	Entities        EntityCounts      `json:"entities"`
	TotalIssues     int               `json:"total_issues"    db:"total_issues"`
	BySeverity      map[Severity]int  `json:"by_severity"`
	ByType          map[IssueType]int `json:"by_type"`
	Issues          []ValidationIssue `json:"issues"`
	Recommendations []string          `json:"recommendations"`
	CreatedAt       time.Time         `json:"created_at"      db:"created_at"`
}

// CriticalCount returns the number of critical issues in the report.
func (r *ValidationReport) CriticalCount() int {
	return r.BySeverity[SeverityCritical]
}

// FixableIssues returns the subset of issues the auto-fix pass may touch.
func (r *ValidationReport) FixableIssues() []ValidationIssue {
	var fixable []ValidationIssue
	for _, issue := range r.Issues {
		if issue.AutoFixable {
			fixable = append(fixable, issue)
		}
	}
	return fixable
}

// HealthScore condenses a report into a 0-100 score for dashboards: each
// issue subtracts weight scaled by severity, floored at zero.
func (r *ValidationReport) HealthScore() float64 {
	scanned := r.Entities.Courts + r.Entities.Judges + r.Entities.Decisions + r.Entities.Assignments
	if scanned == 0 {
		return 100
	}
	weights := map[Severity]float64{
		SeverityCritical: 10,
		SeverityHigh:     5,
		SeverityMedium:   2,
		SeverityLow:      0.5,
	}
	var penalty float64
	for sev, count := range r.BySeverity {
		penalty += weights[sev] * float64(count)
	}
	score := 100 - penalty*100/float64(scanned)
	if score < 0 {
		return 0
	}
	return score
}
