package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverity_Rank(t *testing.T) {
	assert.Less(t, SeverityCritical.Rank(), SeverityHigh.Rank())
	assert.Less(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Less(t, SeverityMedium.Rank(), SeverityLow.Rank())
	assert.Greater(t, Severity("unknown").Rank(), SeverityLow.Rank())
}

func TestValidationReport_FixableIssues(t *testing.T) {
	report := ValidationReport{
		Issues: []ValidationIssue{
			{Type: IssueOrphanedRecord, AutoFixable: true, EntityID: "a"},
			{Type: IssueDuplicateIdentifier, AutoFixable: false, EntityID: "b"},
			{Type: IssueStaleData, AutoFixable: true, EntityID: "c"},
		},
	}

	fixable := report.FixableIssues()
	assert.Len(t, fixable, 2)
	assert.Equal(t, "a", fixable[0].EntityID)
	assert.Equal(t, "c", fixable[1].EntityID)
}

func TestValidationReport_HealthScore(t *testing.T) {
	clean := ValidationReport{Entities: EntityCounts{Judges: 100}}
	assert.InDelta(t, 100.0, clean.HealthScore(), 0.001)

	empty := ValidationReport{}
	assert.InDelta(t, 100.0, empty.HealthScore(), 0.001)

	// 2 critical issues over 100 entities: 100 - (2*10)*100/100 = 80.
	degraded := ValidationReport{
		Entities:   EntityCounts{Judges: 100},
		BySeverity: map[Severity]int{SeverityCritical: 2},
	}
	assert.InDelta(t, 80.0, degraded.HealthScore(), 0.001)

	// Enough issues to exhaust the score floor at zero.
	broken := ValidationReport{
		Entities:   EntityCounts{Judges: 10},
		BySeverity: map[Severity]int{SeverityCritical: 50},
	}
	assert.InDelta(t, 0.0, broken.HealthScore(), 0.001)
}

func TestValidationReport_CriticalCount(t *testing.T) {
	report := ValidationReport{
		BySeverity: map[Severity]int{SeverityCritical: 3, SeverityLow: 7},
	}
	assert.Equal(t, 3, report.CriticalCount())
	assert.Equal(t, 0, (&ValidationReport{}).CriticalCount())
}
