package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/inclusiva/core/workspace"
)

type workspaceRepository struct {
	db   *workspaceTable
	root *DB
}

func NewWorkspaceRepository(db *DB) workspace.Repository {
	return &workspaceRepository{db: db.workspace, root: db}
}

func cloneWorkspace(w workspace.Workspace) workspace.Workspace {
	w.Features = copyStrings(w.Features)
	w.AIEngines = copyStrings(w.AIEngines)
	return w
}

// pinTaken must be called with the lock held.
func (repo *workspaceRepository) pinTaken(pin, excludedID string) bool {
	for _, w := range repo.db.table {
		if w.PIN == pin && w.ID != excludedID {
			return true
		}
	}
	return false
}

func (repo *workspaceRepository) CreateWorkspace(_ context.Context, w workspace.Workspace) (workspace.Workspace, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.pinTaken(w.PIN, "") {
		return workspace.Workspace{}, workspace.ErrPINExists
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	w = cloneWorkspace(w)
	repo.db.table[w.ID] = &w
	return cloneWorkspace(w), nil
}

func (repo *workspaceRepository) GetWorkspace(_ context.Context, id string) (workspace.Workspace, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if w, ok := repo.db.table[id]; ok {
		return cloneWorkspace(*w), nil
	}
	return workspace.Workspace{}, workspace.ErrNotFound
}

func (repo *workspaceRepository) GetWorkspaceByPIN(_ context.Context, pin string) (workspace.Workspace, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, w := range repo.db.table {
		if w.PIN == pin && w.IsActive {
			return cloneWorkspace(*w), nil
		}
	}
	return workspace.Workspace{}, workspace.ErrNotFound
}

func (repo *workspaceRepository) QueryWorkspaces(_ context.Context) ([]workspace.Workspace, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ws := make([]workspace.Workspace, 0, len(repo.db.table))
	for _, w := range repo.db.table {
		ws = append(ws, cloneWorkspace(*w))
	}
	sort.Slice(ws, func(i, j int) bool { return ws[i].Name < ws[j].Name })
	return ws, nil
}

func (repo *workspaceRepository) UpdateWorkspace(_ context.Context, w workspace.Workspace) (workspace.Workspace, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[w.ID]
	if !ok {
		return workspace.Workspace{}, workspace.ErrNotFound
	}
	if repo.pinTaken(w.PIN, w.ID) {
		return workspace.Workspace{}, workspace.ErrPINExists
	}
	w.CreatedAt = orig.CreatedAt
	w = cloneWorkspace(w)
	repo.db.table[w.ID] = &w
	return cloneWorkspace(w), nil
}

func (repo *workspaceRepository) DeleteWorkspace(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return workspace.ErrNotFound
	}
	delete(repo.db.table, id)
	delete(repo.db.masters, id)
	repo.root.cascadeWorkspace(id)
	return nil
}

func (repo *workspaceRepository) GetMaster(_ context.Context, workspaceID string) (workspace.Master, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.masters[workspaceID]; ok {
		return *m, nil
	}
	return workspace.Master{}, workspace.ErrMasterNotFound
}

func (repo *workspaceRepository) SaveMaster(_ context.Context, m workspace.Master) (workspace.Master, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[m.WorkspaceID]; !ok {
		return workspace.Master{}, workspace.ErrNotFound
	}
	if orig, ok := repo.db.masters[m.WorkspaceID]; ok {
		m.CreatedAt = orig.CreatedAt
	}
	repo.db.masters[m.WorkspaceID] = &m
	return m, nil
}
