package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbench/jurisync/internal/domain/model"
	"github.com/openbench/jurisync/internal/testutil"
)

func sampleReport(runAt time.Time) *model.ValidationReport {
	return &model.ValidationReport{
		RunAt:    runAt,
		Duration: 1500 * time.Millisecond,
		Entities: model.EntityCounts{
			Courts:      12,
			Judges:      340,
			Decisions:   8900,
			Assignments: 410,
		},
		TotalIssues: 2,
		BySeverity: map[model.Severity]int{
			model.SeverityCritical: 1,
			model.SeverityLow:      1,
		},
		ByType: map[model.IssueType]int{
			model.IssueOrphanedRecord: 1,
			model.IssueStaleData:      1,
		},
		Issues: []model.ValidationIssue{
			{
				Type:            model.IssueOrphanedRecord,
				Severity:        model.SeverityCritical,
				Entity:          "decision",
				EntityID:        "dec-123",
				Message:         "decision references missing judge",
				SuggestedAction: "nullify judge reference",
				AutoFixable:     true,
				Confidence:      0.98,
				Metadata:        map[string]string{"judge_id": "judge-x"},
			},
			{
				Type:     model.IssueStaleData,
				Severity: model.SeverityLow,
				Entity:   "court",
				EntityID: "ca9",
				Message:  "court not synced in 45 days",
			},
		},
		Recommendations: []string{"run apply-fixes for orphaned records"},
	}
}

func TestReportRepo_Insert(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewReportRepo(db)
		ctx := context.Background()
		runAt := testutil.TestTime()

		stored, err := repo.Insert(ctx, sampleReport(runAt))
		require.NoError(t, err)
		require.NotNil(t, stored)

		assert.NotEmpty(t, stored.ID)
		assert.WithinDuration(t, runAt, stored.RunAt, time.Second)
		assert.Equal(t, 1500*time.Millisecond, stored.Duration)
		assert.Equal(t, 340, stored.Entities.Judges)
		assert.Equal(t, 2, stored.TotalIssues)
		assert.Equal(t, 1, stored.CriticalCount())
		assert.Equal(t, 1, stored.ByType[model.IssueStaleData])
		require.Len(t, stored.Issues, 2)
		assert.Equal(t, "dec-123", stored.Issues[0].EntityID)
		assert.True(t, stored.Issues[0].AutoFixable)
		assert.InDelta(t, 0.98, stored.Issues[0].Confidence, 0.001)
		assert.Equal(t, "judge-x", stored.Issues[0].Metadata["judge_id"])
		require.Len(t, stored.Recommendations, 1)
		assert.NotZero(t, stored.CreatedAt)
	})
}

func TestReportRepo_Insert_EmptyIssues(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewReportRepo(db)

		report := &model.ValidationReport{
			RunAt:      testutil.TestTime(),
			BySeverity: map[model.Severity]int{},
			ByType:     map[model.IssueType]int{},
		}

		stored, err := repo.Insert(context.Background(), report)
		require.NoError(t, err)
		assert.Empty(t, stored.Issues)
		assert.Empty(t, stored.Recommendations)
		assert.Equal(t, 0, stored.TotalIssues)
	})
}

func TestReportRepo_Insert_Validation(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewReportRepo(db)
		ctx := context.Background()

		_, err := repo.Insert(ctx, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "report is required")

		_, err = repo.Insert(ctx, &model.ValidationReport{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "run_at is required")
	})
}

func TestReportRepo_GetByID(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewReportRepo(db)
		ctx := context.Background()

		stored, err := repo.Insert(ctx, sampleReport(testutil.TestTime()))
		require.NoError(t, err)

		found, err := repo.GetByID(ctx, stored.ID)
		require.NoError(t, err)
		assert.Equal(t, stored.ID, found.ID)
		assert.Equal(t, stored.TotalIssues, found.TotalIssues)

		_, err = repo.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
		require.ErrorIs(t, err, ErrReportNotFound)
	})
}

func TestReportRepo_Latest(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewReportRepo(db)
		ctx := context.Background()
		base := testutil.TestTime()

		_, err := repo.Latest(ctx)
		require.ErrorIs(t, err, ErrReportNotFound)

		_, err = repo.Insert(ctx, sampleReport(base))
		require.NoError(t, err)
		newest, err := repo.Insert(ctx, sampleReport(base.Add(time.Hour)))
		require.NoError(t, err)

		latest, err := repo.Latest(ctx)
		require.NoError(t, err)
		assert.Equal(t, newest.ID, latest.ID)
	})
}

func TestReportRepo_List(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewReportRepo(db)
		ctx := context.Background()
		base := testutil.TestTime()

		var ids []string
		for i := 0; i < 3; i++ {
			stored, err := repo.Insert(ctx, sampleReport(base.Add(time.Duration(i)*time.Hour)))
			require.NoError(t, err)
			ids = append(ids, stored.ID)
		}

		all, err := repo.List(ctx, nil)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, ids[2], all[0].ID, "newest first")
		assert.Equal(t, ids[0], all[2].ID)

		since := base.Add(30 * time.Minute)
		recent, err := repo.List(ctx, &model.ReportListOptions{Since: &since})
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, ids[2], recent[0].ID)

		page, err := repo.List(ctx, &model.ReportListOptions{Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, ids[0], page[0].ID)
	})
}
