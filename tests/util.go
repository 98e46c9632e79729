package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap/zaptest"

	"github.com/trezcool/inclusiva/core"
	"github.com/trezcool/inclusiva/core/audit"
	"github.com/trezcool/inclusiva/core/member"
	"github.com/trezcool/inclusiva/core/student"
	"github.com/trezcool/inclusiva/core/workspace"
	"github.com/trezcool/inclusiva/services/email"
	"github.com/trezcool/inclusiva/services/logger"
	"github.com/trezcool/inclusiva/storage/cache"
	"github.com/trezcool/inclusiva/storage/database/inmem"
)

// Env bundles the in-memory repositories and services most tests need.
type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	DB         *inmemdb.DB
	Validate   *validator.Validate
	Translator ut.Translator
	Cache      *cache.Memory
	Mailer     *emailsvc.ConsoleServiceMock

	WorkspaceRepo workspace.Repository
	MemberRepo    member.Repository
	StudentRepo   student.Repository
	AuditRepo     audit.Repository
	Trail         *audit.Trail

	WorkspaceSvc *workspace.Service
	MemberSvc    *member.Service
	StudentSvc   *student.Service
}

// NewEnv wires a fresh in-memory store; nothing is shared between calls.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	e := &Env{
		Conf:       core.NewTestConfig(),
		Logger:     logsvc.WrapZap(zaptest.NewLogger(t)),
		DB:         inmemdb.Open(),
		Validate:   validator.New(),
		Translator: core.NewTranslator(),
		Cache:      cache.NewMemory(),
		Mailer:     emailsvc.NewConsoleServiceMock(),
	}
	core.InitValidators(e.Validate, e.Translator)
	member.InitValidators(e.Validate, e.Translator)
	workspace.InitValidators(e.Validate, e.Translator)

	e.WorkspaceRepo = inmemdb.NewWorkspaceRepository(e.DB)
	e.MemberRepo = inmemdb.NewMemberRepository(e.DB)
	e.StudentRepo = inmemdb.NewStudentRepository(e.DB)
	e.AuditRepo = inmemdb.NewAuditRepository(e.DB)
	e.Trail = audit.NewTrail(e.AuditRepo, e.Logger)

	e.WorkspaceSvc = workspace.NewService(e.WorkspaceRepo, e.Cache, e.Trail, e.Logger, e.Validate, e.Translator, e.Conf)
	e.MemberSvc = member.NewService(e.MemberRepo, e.Trail, e.Mailer, e.Validate, e.Translator, e.Conf)
	e.StudentSvc = student.NewService(e.StudentRepo, e.Validate, e.Translator, e.Conf)
	return e
}

// CreateWorkspace stores a workspace with a known PIN, bypassing PIN generation.
func CreateWorkspace(t *testing.T, repo workspace.Repository, name, pin string, isActive bool) workspace.Workspace {
	t.Helper()

	now := time.Now().UTC()
	w, err := repo.CreateWorkspace(context.Background(), workspace.Workspace{
		Name:      name,
		PIN:       pin,
		Plan:      workspace.PlanBasic,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateWorkspace() failed: %v", err)
	}
	return w
}

// CreateMember stores a member through the repository so that tests can seed any state,
// including an empty password hash when pwd is "".
func CreateMember(
	t *testing.T,
	repo member.Repository,
	workspaceID, name, email, pwd string,
	caps member.Capabilities,
	visibility string,
	links member.Links,
	isActive bool,
) member.Member {
	t.Helper()

	now := time.Now().UTC()
	m := member.Member{
		WorkspaceID:  workspaceID,
		Name:         name,
		Email:        email,
		Role:         "teacher",
		Capabilities: caps,
		Visibility:   visibility,
		IsActive:     isActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if pwd != "" {
		if err := m.SetPassword(pwd); err != nil {
			t.Fatalf("CreateMember() failed: %v", err)
		}
	}
	m, err := repo.CreateMember(context.Background(), m, links)
	if err != nil {
		t.Fatalf("CreateMember() failed: %v", err)
	}
	return m
}

func CreateStudent(t *testing.T, repo student.Repository, workspaceID, name, grade, classGroup string) student.Student {
	t.Helper()

	now := time.Now().UTC()
	s, err := repo.CreateStudent(context.Background(), student.Student{
		WorkspaceID: workspaceID,
		Name:        name,
		Grade:       grade,
		ClassGroup:  classGroup,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}
