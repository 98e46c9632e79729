package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/inclusiva/core"
	"github.com/trezcool/inclusiva/core/member"
)

const emailConstraint = "members_workspace_email_key"

type memberRepository struct {
	db *memberTable
}

func NewMemberRepository(db *DB) member.Repository {
	return &memberRepository{db: db.member}
}

// emailTaken mirrors the (workspace_id, lower(email)) unique index. Call with the lock held.
func (repo *memberRepository) emailTaken(m member.Member) bool {
	for _, other := range repo.db.table {
		if other.ID != m.ID && other.WorkspaceID == m.WorkspaceID && strings.EqualFold(other.Email, m.Email) {
			return true
		}
	}
	return false
}

// setLinks must be called with the lock held.
func (repo *memberRepository) setLinks(memberID string, links member.Links) {
	delete(repo.db.assignments, memberID)
	delete(repo.db.links, memberID)
	if len(links.Assignments) > 0 {
		repo.db.assignments[memberID] = append([]member.ClassAssignment(nil), links.Assignments...)
	}
	if len(links.StudentIDs) > 0 {
		repo.db.links[memberID] = copyStrings(links.StudentIDs)
	}
}

func (repo *memberRepository) CreateMember(_ context.Context, m member.Member, links member.Links) (member.Member, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if repo.emailTaken(m) {
		return member.Member{}, &core.DuplicateError{Code: "23505", Constraint: emailConstraint}
	}
	repo.db.table[m.ID] = &m
	repo.setLinks(m.ID, links)
	return m, nil
}

func (repo *memberRepository) GetMember(_ context.Context, workspaceID, id string) (member.Member, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.table[id]; ok && m.WorkspaceID == workspaceID {
		return *m, nil
	}
	return member.Member{}, member.ErrNotFound
}

func (repo *memberRepository) GetMemberByEmail(_ context.Context, workspaceID, email string) (member.Member, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, m := range repo.db.table {
		if m.WorkspaceID == workspaceID && strings.EqualFold(m.Email, email) {
			return *m, nil
		}
	}
	return member.Member{}, member.ErrNotFound
}

func (repo *memberRepository) QueryMembers(
	_ context.Context,
	workspaceID string,
	filter *member.QueryFilter,
	ordering []core.DBOrdering,
) ([]member.Member, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	members := make([]member.Member, 0)
	for _, m := range repo.db.table {
		if m.WorkspaceID != workspaceID {
			continue
		}
		if filter != nil {
			if filter.Search != "" && !containsFold(m.Name, filter.Search) && !containsFold(m.Email, filter.Search) {
				continue
			}
			if filter.IsActive != nil && m.IsActive != *filter.IsActive {
				continue
			}
		}
		members = append(members, *m)
	}
	sortMembers(members, ordering)
	return members, nil
}

// sortMembers honours the first known ordering field, defaulting to name ascending.
func sortMembers(members []member.Member, ordering []core.DBOrdering) {
	ord := core.DBOrdering{Field: "name", Ascending: true}
	for _, o := range ordering {
		if o.Field == "name" || o.Field == "email" || o.Field == "created_at" {
			ord = o
			break
		}
	}
	less := func(i, j int) bool {
		switch ord.Field {
		case "email":
			return members[i].Email < members[j].Email
		case "created_at":
			return members[i].CreatedAt.Before(members[j].CreatedAt)
		default:
			return members[i].Name < members[j].Name
		}
	}
	sort.SliceStable(members, func(i, j int) bool {
		if ord.Ascending {
			return less(i, j)
		}
		return less(j, i)
	})
}

func (repo *memberRepository) UpdateMember(_ context.Context, m member.Member, links *member.Links) (member.Member, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[m.ID]
	if !ok || orig.WorkspaceID != m.WorkspaceID {
		return member.Member{}, member.ErrNotFound
	}
	if repo.emailTaken(m) {
		return member.Member{}, &core.DuplicateError{Code: "23505", Constraint: emailConstraint}
	}
	m.CreatedAt = orig.CreatedAt
	repo.db.table[m.ID] = &m
	if links != nil {
		repo.setLinks(m.ID, *links)
	}
	return m, nil
}

func (repo *memberRepository) SetMemberActive(_ context.Context, workspaceID, id string, active bool, updatedAt time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	m, ok := repo.db.table[id]
	if !ok || m.WorkspaceID != workspaceID {
		return member.ErrNotFound
	}
	m.IsActive = active
	m.UpdatedAt = updatedAt
	return nil
}

func (repo *memberRepository) DeleteMember(_ context.Context, workspaceID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	m, ok := repo.db.table[id]
	if !ok || m.WorkspaceID != workspaceID {
		return member.ErrNotFound
	}
	delete(repo.db.table, id)
	repo.setLinks(id, member.Links{})
	return nil
}

func (repo *memberRepository) QueryClassAssignments(_ context.Context, memberID string) ([]member.ClassAssignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return append([]member.ClassAssignment{}, repo.db.assignments[memberID]...), nil
}

func (repo *memberRepository) QueryStudentLinks(_ context.Context, memberID string) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := append([]string{}, repo.db.links[memberID]...)
	sort.Strings(ids)
	return ids, nil
}
