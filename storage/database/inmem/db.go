package inmemdb

import (
	"strings"
	"sync"

	"github.com/trezcool/inclusiva/core/audit"
	"github.com/trezcool/inclusiva/core/member"
	"github.com/trezcool/inclusiva/core/student"
	"github.com/trezcool/inclusiva/core/workspace"
)

type (
	// DB is a process-local store used by tests and the "inmem" database engine.
	DB struct {
		workspace *workspaceTable
		member    *memberTable
		student   *studentTable
		audit     *auditTable
	}

	workspaceTable struct {
		sync.RWMutex
		table   map[string]*workspace.Workspace
		masters map[string]*workspace.Master
	}

	// memberTable keeps the visibility rows next to their members so both change atomically.
	memberTable struct {
		sync.RWMutex
		table       map[string]*member.Member
		assignments map[string][]member.ClassAssignment
		links       map[string][]string
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}

	auditTable struct {
		sync.RWMutex
		pk      int64
		entries []audit.Entry
	}
)

func Open() *DB {
	return &DB{
		workspace: &workspaceTable{
			table:   make(map[string]*workspace.Workspace),
			masters: make(map[string]*workspace.Master),
		},
		member: &memberTable{
			table:       make(map[string]*member.Member),
			assignments: make(map[string][]member.ClassAssignment),
			links:       make(map[string][]string),
		},
		student: &studentTable{table: make(map[string]*student.Student)},
		audit:   &auditTable{},
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// cascadeWorkspace drops every member and student owned by a deleted workspace.
func (db *DB) cascadeWorkspace(workspaceID string) {
	db.member.Lock()
	for id, m := range db.member.table {
		if m.WorkspaceID == workspaceID {
			delete(db.member.table, id)
			delete(db.member.assignments, id)
			delete(db.member.links, id)
		}
	}
	db.member.Unlock()

	db.student.Lock()
	for id, s := range db.student.table {
		if s.WorkspaceID == workspaceID {
			delete(db.student.table, id)
		}
	}
	db.student.Unlock()
}
