package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/openbench/jurisync/internal/data/pgxutil"
	"github.com/openbench/jurisync/internal/domain/model"
	apperrors "github.com/openbench/jurisync/internal/errors"
)

// ErrCourtNotFound is returned when a court does not exist.
var ErrCourtNotFound = errors.New("court not found")

// CourtRepo implements the CourtRepository interface using PostgreSQL.
type CourtRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewCourtRepo creates a new CourtRepo with the given database connection.
func NewCourtRepo(db *sql.DB) *CourtRepo {
	return &CourtRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

const courtColumns = `id, external_id, name, short_name, slug, jurisdiction, court_type, url, created_at, updated_at, last_synced_at`

// Upsert inserts a court or refreshes the existing row keyed by external_id.
// last_synced_at always moves forward so staleness scans see the write.
func (r *CourtRepo) Upsert(ctx context.Context, params model.UpsertCourtParams) (*model.Court, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	currentTime := r.timeProvider.Now().UTC()

	var out model.Court
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			INSERT INTO courts (external_id, name, short_name, slug, jurisdiction, court_type, url, created_at, updated_at, last_synced_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8, $8)
			ON CONFLICT (external_id) DO UPDATE
			SET name = EXCLUDED.name,
			    short_name = EXCLUDED.short_name,
			    slug = EXCLUDED.slug,
			    jurisdiction = EXCLUDED.jurisdiction,
			    court_type = EXCLUDED.court_type,
			    url = EXCLUDED.url,
			    updated_at = EXCLUDED.updated_at,
			    last_synced_at = EXCLUDED.last_synced_at
			RETURNING `+courtColumns,
			params.ExternalID,
			params.Name,
			params.ShortName,
			params.Slug,
			params.Jurisdiction,
			params.CourtType,
			params.URL,
			currentTime,
		)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()
		var cerr error
		out, cerr = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Court])
		return cerr
	})
	if err != nil {
		return nil, fmt.Errorf("upsert court: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// GetByID returns a court by primary key.
func (r *CourtRepo) GetByID(ctx context.Context, id string) (*model.Court, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("id is required")
	}

	var out model.Court
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `SELECT `+courtColumns+` FROM courts WHERE id = $1`, id)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()
		var cerr error
		out, cerr = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Court])
		return cerr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCourtNotFound
		}
		return nil, fmt.Errorf("get court: %w", err)
	}
	return &out, nil
}

// GetByExternalID returns a court by upstream identifier, or (nil, nil) when
// no row matches.
func (r *CourtRepo) GetByExternalID(ctx context.Context, externalID string) (*model.Court, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, errors.New("externalID is required")
	}

	var out model.Court
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `SELECT `+courtColumns+` FROM courts WHERE external_id = $1`, externalID)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()
		var cerr error
		out, cerr = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Court])
		return cerr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get court by external id: %w", err)
	}
	return &out, nil
}

// List returns courts ordered by name.
func (r *CourtRepo) List(ctx context.Context, limit, offset int) ([]*model.Court, error) {
	limit = normalizeJobListLimit(limit)
	offset = max(offset, 0)

	var courts []*model.Court
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			SELECT `+courtColumns+`
			FROM courts
			ORDER BY name ASC, id ASC
			LIMIT $1 OFFSET $2
		`, limit, offset)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()
		collected, cerr := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Court])
		if cerr != nil {
			return cerr
		}
		courts = collected
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list courts: %w", err)
	}
	return courts, nil
}

// Delete removes a court by ID. Returns false when no row matched.
func (r *CourtRepo) Delete(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, errors.New("id is required")
	}

	res, err := r.DB.ExecContext(ctx, `DELETE FROM courts WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete court: %w", apperrors.MapDBError(err))
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}
