package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityType_Valid(t *testing.T) {
	assert.True(t, EntityTypeCourt.Valid())
	assert.True(t, EntityTypeJudge.Valid())
	assert.True(t, EntityTypeDecision.Valid())
	assert.True(t, EntityTypeCleanup.Valid())
	assert.True(t, EntityTypeFull.Valid())
	assert.False(t, EntityType("docket").Valid())
	assert.False(t, EntityType("").Valid())
}

func TestEntityType_UnmarshalText(t *testing.T) {
	var et EntityType
	require.NoError(t, et.UnmarshalText([]byte("  Judge ")))
	assert.Equal(t, EntityTypeJudge, et)

	err := et.UnmarshalText([]byte("tribunal"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid EntityType")
}

func TestOperation_UnmarshalText(t *testing.T) {
	var op Operation
	require.NoError(t, op.UnmarshalText([]byte("UPDATE")))
	assert.Equal(t, OperationUpdate, op)
	require.Error(t, op.UnmarshalText([]byte("delete")))
}

func TestJobStatus_Terminal(t *testing.T) {
	assert.False(t, JobStatusPending.Terminal())
	assert.False(t, JobStatusRunning.Terminal())
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
	assert.True(t, JobStatusCancelled.Terminal())
}

func TestEnqueueRequest_Validate(t *testing.T) {
	scheduled := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		req         EnqueueRequest
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid judge job",
			req: EnqueueRequest{
				EntityType:       EntityTypeJudge,
				EntityExternalID: "person-2345",
				Operation:        OperationUpdate,
				Priority:         5,
				MaxAttempts:      3,
			},
		},
		{
			name: "full sweep needs no external id",
			req: EnqueueRequest{
				EntityType:  EntityTypeFull,
				Operation:   OperationCreate,
				MaxAttempts: 1,
			},
		},
		{
			name: "cleanup needs no external id",
			req: EnqueueRequest{
				EntityType:  EntityTypeCleanup,
				Operation:   OperationUpdate,
				MaxAttempts: 1,
			},
		},
		{
			name: "court job without external id",
			req: EnqueueRequest{
				EntityType:  EntityTypeCourt,
				Operation:   OperationCreate,
				MaxAttempts: 3,
			},
			expectError: true,
			errorMsg:    "entity external id is required",
		},
		{
			name: "invalid entity type",
			req: EnqueueRequest{
				EntityType:       EntityType("opinion"),
				EntityExternalID: "op-1",
				Operation:        OperationCreate,
			},
			expectError: true,
			errorMsg:    "invalid entity type",
		},
		{
			name: "invalid operation",
			req: EnqueueRequest{
				EntityType:       EntityTypeCourt,
				EntityExternalID: "scotus",
				Operation:        Operation("upsert"),
			},
			expectError: true,
			errorMsg:    "invalid operation",
		},
		{
			name: "priority above range",
			req: EnqueueRequest{
				EntityType:       EntityTypeCourt,
				EntityExternalID: "scotus",
				Operation:        OperationUpdate,
				Priority:         101,
			},
			expectError: true,
			errorMsg:    "priority must be between 0 and 100",
		},
		{
			name: "negative max attempts",
			req: EnqueueRequest{
				EntityType:       EntityTypeDecision,
				EntityExternalID: "op-9",
				Operation:        OperationCreate,
				ScheduledFor:     &scheduled,
				MaxAttempts:      -1,
			},
			expectError: true,
			errorMsg:    "max attempts must be >= 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQueueStats_Total(t *testing.T) {
	stats := QueueStats{Pending: 2, Running: 1, Completed: 10, Failed: 3, Cancelled: 1}
	assert.Equal(t, 17, stats.Total())
}

func TestSyncJob_JSONRoundTrip_OmitsEmptyClaims(t *testing.T) {
	job := SyncJob{
		ID:           "7f9c24e8-91ab-4a46-a2d8-d0a71c8e7531",
		EntityType:   EntityTypeCourt,
		Operation:    OperationCreate,
		Status:       JobStatusPending,
		Payload:      json.RawMessage(`{}`),
		ScheduledFor: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(job)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "claimed_by")
	assert.NotContains(t, string(data), "lease_expires_at")
	assert.Contains(t, string(data), `"entity_type":"court"`)
}
