package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/inclusiva/core/student"
)

type studentRepository struct {
	db *studentTable
}

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, workspaceID, id string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.table[id]; ok && s.WorkspaceID == workspaceID {
		return *s, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(_ context.Context, workspaceID string, filter *student.QueryFilter) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]student.Student, 0)
	for _, s := range repo.db.table {
		if s.WorkspaceID != workspaceID {
			continue
		}
		if filter != nil {
			if filter.Search != "" && !containsFold(s.Name, filter.Search) {
				continue
			}
			if filter.Grade != "" && !strings.EqualFold(s.Grade, filter.Grade) {
				continue
			}
			if filter.ClassGroup != "" && !strings.EqualFold(s.ClassGroup, filter.ClassGroup) {
				continue
			}
		}
		students = append(students, *s)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].Name < students[j].Name })
	return students, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, workspaceID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	s, ok := repo.db.table[id]
	if !ok || s.WorkspaceID != workspaceID {
		return student.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
