package inmemdb

import (
	"context"

	"github.com/trezcool/inclusiva/core/audit"
)

type auditRepository struct {
	db *auditTable
}

func NewAuditRepository(db *DB) audit.Repository {
	return &auditRepository{db: db.audit}
}

func (repo *auditRepository) CreateEntry(_ context.Context, entry audit.Entry) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pk++
	entry.ID = repo.db.pk
	repo.db.entries = append(repo.db.entries, entry)
	return nil
}

// QueryEntries returns the latest entries of a workspace, newest first.
func (repo *auditRepository) QueryEntries(_ context.Context, workspaceID string, limit int) ([]audit.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]audit.Entry, 0)
	for i := len(repo.db.entries) - 1; i >= 0 && len(entries) < limit; i-- {
		if e := repo.db.entries[i]; e.WorkspaceID == workspaceID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}
