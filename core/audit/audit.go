// Package audit records login attempts and other access events.
package audit

import (
	"context"
	"time"

	"github.com/trezcool/inclusiva/core"
)

// Events
const (
	EventPINLogin    = "pin_login"
	EventMasterLogin = "master_login"
	EventMemberLogin = "member_login"

	EventPasswordReset = "password_reset"
)

var NowFunc = time.Now // mockable

type Entry struct {
	ID          int64     `json:"id" db:"id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	MemberID    string    `json:"member_id" db:"member_id"`
	Email       string    `json:"email" db:"email"`
	Event       string    `json:"event" db:"event"`
	Success     bool      `json:"success" db:"success"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

type Repository interface {
	CreateEntry(ctx context.Context, entry Entry) error
	QueryEntries(ctx context.Context, workspaceID string, limit int) ([]Entry, error)
}

// Trail writes audit entries on a best-effort basis: a failing write is logged, never returned.
type Trail struct {
	repo   Repository
	logger core.Logger
}

func NewTrail(repo Repository, logger core.Logger) *Trail {
	return &Trail{repo: repo, logger: logger}
}

func (t *Trail) Record(ctx context.Context, entry Entry) {
	if t == nil || t.repo == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = NowFunc().UTC()
	}
	if err := t.repo.CreateEntry(ctx, entry); err != nil && t.logger != nil {
		t.logger.Warn("audit: recording entry failed", err, map[string]interface{}{
			"event":        entry.Event,
			"workspace_id": entry.WorkspaceID,
		})
	}
}

func (t *Trail) Recent(ctx context.Context, workspaceID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	entries, err := t.repo.QueryEntries(ctx, workspaceID, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}
