package pgrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/trezcool/inclusiva/core"
	"github.com/trezcool/inclusiva/core/workspace"
)

const workspaceColumns = `id, name, pin, plan, features, ai_engines, is_active, created_at, updated_at`

type workspaceRow struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	PIN       string         `db:"pin"`
	Plan      string         `db:"plan"`
	Features  pq.StringArray `db:"features"`
	AIEngines pq.StringArray `db:"ai_engines"`
	IsActive  bool           `db:"is_active"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r workspaceRow) workspace() workspace.Workspace {
	return workspace.Workspace{
		ID:        r.ID,
		Name:      r.Name,
		PIN:       r.PIN,
		Plan:      r.Plan,
		Features:  []string(r.Features),
		AIEngines: []string(r.AIEngines),
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type workspaceRepository struct {
	db *sqlx.DB
}

func NewWorkspaceRepository(db *sqlx.DB) workspace.Repository {
	return &workspaceRepository{db: db}
}

func workspaceError(op string, err error) error {
	err = dbError(op, err)
	switch {
	case err == core.ErrNotFound:
		return workspace.ErrNotFound
	case core.IsDuplicate(err):
		return workspace.ErrPINExists
	}
	return err
}

func nonNilArray(s []string) pq.StringArray {
	if s == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(s)
}

func (repo *workspaceRepository) CreateWorkspace(ctx context.Context, w workspace.Workspace) (workspace.Workspace, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	var row workspaceRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO workspaces (`+workspaceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+workspaceColumns,
		w.ID, w.Name, w.PIN, w.Plan, nonNilArray(w.Features), nonNilArray(w.AIEngines), w.IsActive, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return workspace.Workspace{}, workspaceError("creating workspace", err)
	}
	return row.workspace(), nil
}

func (repo *workspaceRepository) GetWorkspace(ctx context.Context, id string) (workspace.Workspace, error) {
	if _, err := uuid.Parse(id); err != nil {
		return workspace.Workspace{}, workspace.ErrNotFound
	}
	var row workspaceRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+workspaceColumns+` FROM workspaces WHERE id = $1`, id)
	if err != nil {
		return workspace.Workspace{}, workspaceError("getting workspace", err)
	}
	return row.workspace(), nil
}

func (repo *workspaceRepository) GetWorkspaceByPIN(ctx context.Context, pin string) (workspace.Workspace, error) {
	var row workspaceRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT `+workspaceColumns+` FROM workspaces WHERE pin = $1 AND is_active`, pin)
	if err != nil {
		return workspace.Workspace{}, workspaceError("getting workspace by PIN", err)
	}
	return row.workspace(), nil
}

func (repo *workspaceRepository) QueryWorkspaces(ctx context.Context) ([]workspace.Workspace, error) {
	var rows []workspaceRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT `+workspaceColumns+` FROM workspaces ORDER BY name`)
	if err != nil {
		return nil, workspaceError("querying workspaces", err)
	}
	ws := make([]workspace.Workspace, 0, len(rows))
	for _, row := range rows {
		ws = append(ws, row.workspace())
	}
	return ws, nil
}

func (repo *workspaceRepository) UpdateWorkspace(ctx context.Context, w workspace.Workspace) (workspace.Workspace, error) {
	var row workspaceRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE workspaces
		SET name = $2, pin = $3, plan = $4, features = $5, ai_engines = $6, is_active = $7, updated_at = $8
		WHERE id = $1
		RETURNING `+workspaceColumns,
		w.ID, w.Name, w.PIN, w.Plan, nonNilArray(w.Features), nonNilArray(w.AIEngines), w.IsActive, w.UpdatedAt,
	)
	if err != nil {
		return workspace.Workspace{}, workspaceError("updating workspace", err)
	}
	return row.workspace(), nil
}

func (repo *workspaceRepository) DeleteWorkspace(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return workspace.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM workspaces WHERE id = $1`, id)
	if err != nil {
		return workspaceError("deleting workspace", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return workspace.ErrNotFound
	}
	return nil
}

const masterColumns = `workspace_id, name, email, password_hash, created_at, updated_at`

func (repo *workspaceRepository) GetMaster(ctx context.Context, workspaceID string) (workspace.Master, error) {
	if _, err := uuid.Parse(workspaceID); err != nil {
		return workspace.Master{}, workspace.ErrMasterNotFound
	}
	var m workspace.Master
	err := repo.db.GetContext(ctx, &m,
		`SELECT `+masterColumns+` FROM workspace_masters WHERE workspace_id = $1`, workspaceID)
	if err != nil {
		if err = dbError("getting workspace master", err); err == core.ErrNotFound {
			return workspace.Master{}, workspace.ErrMasterNotFound
		}
		return workspace.Master{}, err
	}
	return m, nil
}

func (repo *workspaceRepository) SaveMaster(ctx context.Context, m workspace.Master) (workspace.Master, error) {
	var saved workspace.Master
	err := repo.db.GetContext(ctx, &saved, `
		INSERT INTO workspace_masters (`+masterColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (workspace_id) DO UPDATE
		SET name = EXCLUDED.name, email = EXCLUDED.email,
		    password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at
		RETURNING `+masterColumns,
		m.WorkspaceID, m.Name, m.Email, m.PasswordHash, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return workspace.Master{}, dbError("saving workspace master", err)
	}
	return saved, nil
}
