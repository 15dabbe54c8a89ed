package testhelpers

import (
	"database/sql"

	"github.com/openbench/jurisync/internal/data"
)

// NewQueueRepoWithTimeProvider creates a QueueRepo with the provided TimeProvider for tests.
func NewQueueRepoWithTimeProvider(db *sql.DB, cfg data.RepoConfig, tp data.TimeProvider) *data.QueueRepo {
	cfg.TimeProvider = tp
	return data.NewQueueRepo(db, cfg)
}
