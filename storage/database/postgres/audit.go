package pgrepos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/inclusiva/core/audit"
)

type auditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) audit.Repository {
	return &auditRepository{db: db}
}

func (repo *auditRepository) CreateEntry(ctx context.Context, entry audit.Entry) error {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO access_logs (workspace_id, member_id, email, event, success, created_at)
		VALUES (NULLIF($1, '')::uuid, NULLIF($2, '')::uuid, $3, $4, $5, $6)`,
		entry.WorkspaceID, entry.MemberID, entry.Email, entry.Event, entry.Success, entry.CreatedAt,
	)
	return dbError("recording access log", err)
}

func (repo *auditRepository) QueryEntries(ctx context.Context, workspaceID string, limit int) ([]audit.Entry, error) {
	entries := []audit.Entry{}
	err := repo.db.SelectContext(ctx, &entries, `
		SELECT id, COALESCE(workspace_id::text, '') AS workspace_id, COALESCE(member_id::text, '') AS member_id,
			email, event, success, created_at
		FROM access_logs
		WHERE workspace_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		workspaceID, limit,
	)
	if err != nil {
		return nil, dbError("querying access logs", err)
	}
	return entries, nil
}
