package data

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/openbench/jurisync/internal/data/pgxutil"
	"github.com/openbench/jurisync/internal/domain/model"
)

const (
	defaultJobListLimit = 50
	maxJobListLimit     = 1000
)

// jobFilterBuilder accumulates WHERE clauses with positional args.
type jobFilterBuilder struct {
	query  strings.Builder
	args   []any
	argIdx int
}

func newJobFilterBuilder(base string) *jobFilterBuilder {
	b := &jobFilterBuilder{argIdx: 1}
	b.query.WriteString(base)
	return b
}

func (b *jobFilterBuilder) addFilter(condition string, value any) {
	b.query.WriteString(fmt.Sprintf(" AND %s = $%d", condition, b.argIdx))
	b.args = append(b.args, value)
	b.argIdx++
}

// validJobSortFields whitelists sortable columns so caller input never reaches
// the ORDER BY clause directly.
var validJobSortFields = map[string]string{
	"created_at":    "q.created_at",
	"scheduled_for": "q.scheduled_for",
	"priority":      "q.priority",
}

func (b *jobFilterBuilder) addSorting(sortBy, sortOrder string) {
	column, ok := validJobSortFields[sortBy]
	if !ok {
		b.query.WriteString(" ORDER BY q.created_at DESC, q.id DESC")
		return
	}

	direction := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		direction = "ASC"
	}

	b.query.WriteString(fmt.Sprintf(" ORDER BY %s %s, q.id %s", column, direction, direction))
}

func (b *jobFilterBuilder) addPagination(limit, offset int) {
	b.query.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", b.argIdx, b.argIdx+1))
	b.args = append(b.args, limit, offset)
	b.argIdx += 2
}

func normalizeJobListLimit(limit int) int {
	if limit <= 0 {
		return defaultJobListLimit
	}
	if limit > maxJobListLimit {
		return maxJobListLimit
	}
	return limit
}

// List returns sync jobs matching the given filters, newest first by default.
func (r *QueueRepo) List(ctx context.Context, opts *model.JobListOptions) ([]*model.SyncJob, error) {
	if opts == nil {
		opts = &model.JobListOptions{}
	}

	builder := newJobFilterBuilder(`SELECT ` + syncJobColumnsQualified + ` FROM sync_queue q WHERE TRUE`)

	if opts.Status != nil {
		builder.addFilter("q.status", string(*opts.Status))
	}
	if opts.EntityType != nil {
		builder.addFilter("q.entity_type", string(*opts.EntityType))
	}
	if opts.ClaimedBy != nil {
		builder.addFilter("q.claimed_by", *opts.ClaimedBy)
	}

	builder.addSorting(opts.SortBy, opts.SortOrder)
	builder.addPagination(normalizeJobListLimit(opts.Limit), max(opts.Offset, 0))

	var jobs []*model.SyncJob
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, builder.query.String(), builder.args...)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()

		collected, cerr := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.SyncJob])
		if cerr != nil {
			return cerr
		}
		jobs = collected
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list sync jobs: %w", err)
	}

	return jobs, nil
}

const syncJobColumnsQualified = `
  q.id,
  q.entity_type,
  q.entity_external_id,
  q.operation,
  q.priority,
  q.status,
  q.attempt_count,
  q.max_attempts,
  q.scheduled_for,
  q.claimed_by,
  q.claimed_at,
  q.lease_expires_at,
  q.payload,
  q.metadata,
  q.last_error,
  q.completed_at,
  q.created_at,
  q.updated_at
`
