package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbench/jurisync/internal/domain/model"
	"github.com/openbench/jurisync/internal/domain/schedule"
)

func TestSweep_DueAt(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name  string
		sweep schedule.Sweep
		want  bool
	}{
		{
			name:  "disabled sweep never due",
			sweep: schedule.Sweep{Enabled: false, NextRunAt: &past},
			want:  false,
		},
		{
			name:  "never queued is due",
			sweep: schedule.Sweep{Enabled: true, Interval: time.Minute},
			want:  true,
		},
		{
			name: "interval not yet elapsed",
			sweep: schedule.Sweep{
				Enabled:      true,
				Interval:     2 * time.Hour,
				LastQueuedAt: &past,
			},
			want: false,
		},
		{
			name: "interval elapsed",
			sweep: schedule.Sweep{
				Enabled:      true,
				Interval:     30 * time.Minute,
				LastQueuedAt: &past,
			},
			want: true,
		},
		{
			name:  "next run in the past is due",
			sweep: schedule.Sweep{Enabled: true, NextRunAt: &past},
			want:  true,
		},
		{
			name:  "next run in the future is not due",
			sweep: schedule.Sweep{Enabled: true, NextRunAt: &future},
			want:  false,
		},
		{
			name: "next run takes precedence over interval",
			sweep: schedule.Sweep{
				Enabled:      true,
				Interval:     time.Minute,
				LastQueuedAt: &past,
				NextRunAt:    &future,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sweep.DueAt(now))
		})
	}
}

func TestSweep_NextRun(t *testing.T) {
	from := time.Date(2025, 3, 10, 12, 30, 0, 0, time.UTC)

	t.Run("interval sweep", func(t *testing.T) {
		sweep := schedule.Sweep{Interval: 45 * time.Minute}
		next, err := sweep.NextRun(from)
		require.NoError(t, err)
		assert.Equal(t, from.Add(45*time.Minute), next)
	})

	t.Run("cron sweep fires at next matching minute", func(t *testing.T) {
		expr := "0 3 * * *"
		sweep := schedule.Sweep{CronExpr: &expr}
		next, err := sweep.NextRun(from)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 3, 11, 3, 0, 0, 0, time.UTC), next)
	})

	t.Run("cron expression wins over interval", func(t *testing.T) {
		expr := "*/15 * * * *"
		sweep := schedule.Sweep{Interval: time.Hour, CronExpr: &expr}
		next, err := sweep.NextRun(from)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 3, 10, 12, 45, 0, 0, time.UTC), next)
	})

	t.Run("invalid cron expression", func(t *testing.T) {
		expr := "not a cron"
		sweep := schedule.Sweep{CronExpr: &expr}
		_, err := sweep.NextRun(from)
		require.Error(t, err)
	})

	t.Run("no cadence at all", func(t *testing.T) {
		sweep := schedule.Sweep{Name: "broken"}
		_, err := sweep.NextRun(from)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broken")
	})
}

func TestComputeFireKey(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 30, 0, 0, time.UTC)

	t.Run("interval sweeps share a key within one slot", func(t *testing.T) {
		sweep := schedule.Sweep{ID: "sweep-1", Interval: time.Minute}
		a := schedule.ComputeFireKey(sweep, now)
		b := schedule.ComputeFireKey(sweep, now.Add(20*time.Second))
		c := schedule.ComputeFireKey(sweep, now.Add(2*time.Minute))
		assert.Equal(t, a, b)
		assert.NotEqual(t, a, c)
	})

	t.Run("cron sweeps key on the precomputed fire time", func(t *testing.T) {
		expr := "0 3 * * *"
		fire := time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC)
		sweep := schedule.Sweep{ID: "sweep-2", CronExpr: &expr, NextRunAt: &fire}
		key := schedule.ComputeFireKey(sweep, now)
		assert.Equal(t, key, schedule.ComputeFireKey(sweep, now.Add(time.Hour)))
	})
}

func TestUpsertSweepParams_Validate(t *testing.T) {
	cronExpr := "*/5 * * * *"
	tests := []struct {
		name    string
		params  schedule.UpsertSweepParams
		wantErr bool
	}{
		{
			name: "interval sweep",
			params: schedule.UpsertSweepParams{
				Name:       "judge-refresh",
				EntityType: model.EntityTypeJudge,
				Interval:   time.Hour,
			},
		},
		{
			name: "cron sweep",
			params: schedule.UpsertSweepParams{
				Name:       "nightly-full",
				EntityType: model.EntityTypeFull,
				CronExpr:   &cronExpr,
			},
		},
		{
			name: "missing name",
			params: schedule.UpsertSweepParams{
				EntityType: model.EntityTypeCourt,
				Interval:   time.Hour,
			},
			wantErr: true,
		},
		{
			name: "bad entity type",
			params: schedule.UpsertSweepParams{
				Name:       "x",
				EntityType: model.EntityType("nope"),
				Interval:   time.Hour,
			},
			wantErr: true,
		},
		{
			name: "no cadence",
			params: schedule.UpsertSweepParams{
				Name:       "x",
				EntityType: model.EntityTypeCourt,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestParseOverrunStateMask(t *testing.T) {
	mask, err := schedule.ParseOverrunStateMask("running, pending")
	require.NoError(t, err)
	require.True(t, mask.Has(schedule.OverrunStateRunning))
	require.True(t, mask.Has(schedule.OverrunStatePending))
	require.False(t, mask.Has(schedule.OverrunStateRetrying))
	require.Equal(t, "running,pending", mask.String())
}

func TestParseOverrunStateMaskInvalid(t *testing.T) {
	_, err := schedule.ParseOverrunStateMask("unknown")
	require.Error(t, err)
}

func TestOverrunStateMaskMarshal(t *testing.T) {
	mask := schedule.OverrunStatePending | schedule.OverrunStateRetrying
	text, err := mask.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "pending,retrying", string(text))

	var roundTrip schedule.OverrunStateMask
	require.NoError(t, roundTrip.UnmarshalText(text))
	require.Equal(t, mask, roundTrip)
}
