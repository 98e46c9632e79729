package student

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/inclusiva/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound = errors.Wrap(core.ErrNotFound, "student")
)

type (
	// Repository is the student store, always scoped by workspace id.
	Repository interface {
		CreateStudent(ctx context.Context, s Student) (Student, error)
		GetStudent(ctx context.Context, workspaceID, id string) (Student, error)
		QueryStudents(ctx context.Context, workspaceID string, filter *QueryFilter) ([]Student, error)
		DeleteStudent(ctx context.Context, workspaceID, id string) error
	}

	ServiceInterface interface {
		Create(ctx context.Context, workspaceID string, ns NewStudent) (Student, error)
		Get(ctx context.Context, workspaceID, id string) (Student, error)
		Query(ctx context.Context, workspaceID string, filter *QueryFilter) ([]Student, error)
		Delete(ctx context.Context, workspaceID, id string) error
	}

	Service struct {
		repo       Repository
		validate   *validator.Validate
		translator ut.Translator
		timeout    time.Duration
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

func NewService(repo Repository, validate *validator.Validate, translator ut.Translator, conf *core.Config) *Service {
	return &Service{
		repo:       repo,
		validate:   validate,
		translator: translator,
		timeout:    conf.Database.QueryTimeout,
	}
}

func (svc *Service) Create(ctx context.Context, workspaceID string, ns NewStudent) (Student, error) {
	ns.Clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Student{}, core.TranslateValidationErrors(err, svc.translator)
	}

	now := NowFunc().UTC()
	s := Student{
		WorkspaceID: workspaceID,
		Name:        ns.Name,
		BirthDate:   ns.BirthDate,
		Grade:       ns.Grade,
		ClassGroup:  ns.ClassGroup,
		Diagnosis:   ns.Diagnosis,
		Notes:       ns.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx, cancel := core.QueryContext(ctx, svc.timeout)
	defer cancel()
	return svc.repo.CreateStudent(ctx, s)
}

func (svc *Service) Get(ctx context.Context, workspaceID, id string) (Student, error) {
	ctx, cancel := core.QueryContext(ctx, svc.timeout)
	defer cancel()
	return svc.repo.GetStudent(ctx, workspaceID, id)
}

func (svc *Service) Query(ctx context.Context, workspaceID string, filter *QueryFilter) ([]Student, error) {
	ctx, cancel := core.QueryContext(ctx, svc.timeout)
	defer cancel()

	students, err := svc.repo.QueryStudents(ctx, workspaceID, filter)
	if err != nil {
		return nil, err
	}
	if students == nil {
		students = []Student{}
	}
	return students, nil
}

// Delete removes a student of the workspace. Callers check visibility first.
func (svc *Service) Delete(ctx context.Context, workspaceID, id string) error {
	ctx, cancel := core.QueryContext(ctx, svc.timeout)
	defer cancel()
	return svc.repo.DeleteStudent(ctx, workspaceID, id)
}
