package model

import "time"

// JobListOptions groups parameters for listing sync jobs with optional filters.
type JobListOptions struct {
	Status     *JobStatus  // Optional filter by status
	EntityType *EntityType // Optional filter by entity type
	ClaimedBy  *string     // Optional filter by worker identity
	SortBy     string      // Sort field: "created_at", "scheduled_for", "priority" (default: "created_at")
	SortOrder  string      // Sort order: "asc", "desc" (default: "desc")
	Limit      int         // Pagination limit
	Offset     int         // Pagination offset
}

// ReportListOptions groups parameters for listing validation reports by recency.
type ReportListOptions struct {
	Since  *time.Time // Optional: only reports run at or after this instant
	Limit  int        // Pagination limit
	Offset int        // Pagination offset
}
