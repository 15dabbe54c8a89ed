package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/openbench/jurisync/internal/domain/model"
)

// FixRepo implements the FixRepository targeted writes using PostgreSQL.
// Every update carries its precondition in the WHERE clause, so a fix that
// lost a race with a sync refresh affects zero rows instead of clobbering
// fresher data.
type FixRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewFixRepo creates a new FixRepo with the given database connection.
func NewFixRepo(db *sql.DB) *FixRepo {
	return &FixRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// SetDecisionOutcome reclassifies a decision that is still in the catch-all
// outcome bucket.
func (r *FixRepo) SetDecisionOutcome(ctx context.Context, decisionID string, outcome model.Outcome) (bool, error) {
	if strings.TrimSpace(decisionID) == "" {
		return false, errors.New("decisionID is required")
	}
	if !outcome.Valid() {
		return false, fmt.Errorf("invalid outcome %q", outcome)
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE decisions
		SET outcome = $2, updated_at = $3
		WHERE id = $1 AND outcome = 'other'
	`, decisionID, string(outcome), r.timeProvider.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("set decision outcome: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// SetSlug fills a blank slug on a court or judge row.
func (r *FixRepo) SetSlug(ctx context.Context, entityType model.EntityType, entityID, slug string) (bool, error) {
	if strings.TrimSpace(entityID) == "" {
		return false, errors.New("entityID is required")
	}
	if strings.TrimSpace(slug) == "" {
		return false, errors.New("slug is required")
	}
	table, err := entityTable(entityType)
	if err != nil {
		return false, err
	}
	if entityType == model.EntityTypeDecision {
		return false, fmt.Errorf("entity type %q has no slug column", entityType)
	}

	// table comes from the entityTable whitelist.
	query := fmt.Sprintf(`
		UPDATE %s
		SET slug = $2, updated_at = $3
		WHERE id = $1 AND btrim(slug) = ''
	`, table)

	res, err := r.DB.ExecContext(ctx, query, entityID, slug, r.timeProvider.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("set slug: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}
