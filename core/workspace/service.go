package workspace

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/inclusiva/core"
	"github.com/trezcool/inclusiva/core/audit"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound       = errors.Wrap(core.ErrNotFound, "workspace")
	ErrMasterNotFound = errors.Wrap(core.ErrNotFound, "workspace master")
	ErrPINExists      = errors.New("a workspace with this PIN already exists")
)

const pinAttempts = 5

type (
	Repository interface {
		CreateWorkspace(ctx context.Context, w Workspace) (Workspace, error)
		GetWorkspace(ctx context.Context, id string) (Workspace, error)
		// GetWorkspaceByPIN only returns active workspaces.
		GetWorkspaceByPIN(ctx context.Context, pin string) (Workspace, error)
		QueryWorkspaces(ctx context.Context) ([]Workspace, error)
		UpdateWorkspace(ctx context.Context, w Workspace) (Workspace, error)
		DeleteWorkspace(ctx context.Context, id string) error
		GetMaster(ctx context.Context, workspaceID string) (Master, error)
		// SaveMaster creates or replaces the single master record of a workspace.
		SaveMaster(ctx context.Context, m Master) (Master, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, nw NewWorkspace) (Workspace, error)
		Get(ctx context.Context, id string) (Workspace, error)
		Query(ctx context.Context) ([]Workspace, error)
		RegeneratePIN(ctx context.Context, id string) (Workspace, error)
		SetActive(ctx context.Context, id string, active bool) error
		Delete(ctx context.Context, id string) error
		SetMaster(ctx context.Context, workspaceID, name, email, pwd string) (Master, error)
		GetByPIN(ctx context.Context, pin string) (Workspace, error)
		VerifyPIN(ctx context.Context, pin string) (Workspace, error)
		VerifyMasterCredentials(ctx context.Context, workspaceID, email, pwd string) (Master, bool, error)
		Plan(ctx context.Context, workspaceID string) (Plan, error)
	}

	Service struct {
		repo       Repository
		cache      core.Cache
		trail      *audit.Trail
		logger     core.Logger
		validate   *validator.Validate
		translator ut.Translator
		planTTL    time.Duration
		timeout    time.Duration
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

func NewService(
	repo Repository,
	cache core.Cache,
	trail *audit.Trail,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	conf *core.Config,
) *Service {
	return &Service{
		repo:       repo,
		cache:      cache,
		trail:      trail,
		logger:     logger,
		validate:   validate,
		translator: translator,
		planTTL:    conf.Cache.PlanTTL,
		timeout:    conf.Database.QueryTimeout,
	}
}

func (svc *Service) Create(ctx context.Context, nw NewWorkspace) (Workspace, error) {
	if err := nw.Validate(svc.validate, svc.translator); err != nil {
		return Workspace{}, err
	}

	now := NowFunc().UTC()
	w := Workspace{
		Name:      nw.Name,
		Plan:      nw.Plan,
		Features:  nw.Features,
		AIEngines: nw.AIEngines,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx, cancel := core.QueryContext(ctx, svc.timeout)
	defer cancel()

	// a freshly generated PIN may collide with an existing one
	for attempt := 1; ; attempt++ {
		pin, err := GeneratePIN()
		if err != nil {
			return Workspace{}, errors.Wrap(err, "generating PIN")
		}
		w.PIN = pin

		created, err := svc.repo.CreateWorkspace(ctx, w)
		if err == nil {
			return created, nil
		}
		if errors.Cause(err) != ErrPINExists || attempt == pinAttempts {
			return Workspace{}, err
		}
	}
}

func (svc *Service) Get(ctx context.Context, id string) (Workspace, error) {
	ctx, cancel := core.QueryContext(ctx, svc.timeout)
	defer cancel()
	return svc.repo.GetWorkspace(ctx, id)
}

func (svc *Service) Query(ctx context.Context) ([]Workspace, error) {
	ctx, cancel := core.QueryContext(ctx, svc.timeout)
	defer cancel()

	ws, err := svc.repo.QueryWorkspaces(ctx)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		ws = []Workspace{}
	}
	return ws, nil
}

// RegeneratePIN replaces the workspace PIN; the old one stops working immediately.
func (svc *Service) RegeneratePIN(ctx context.Context, id string) (Workspace, error) {
	ctx, cancel := core.QueryContext(ctx, svc.timeout)
	defer cancel()

	w, err := svc.repo.GetWorkspace(ctx, id)
	if err != nil {
		return Workspace{}, err
	}
	for attempt := 1; ; attempt++ {
		pin, err := GeneratePIN()
		if err != nil {
			return Workspace{}, errors.Wrap(err, "generating PIN")
		}
		w.PIN = pin
		w.UpdatedAt = NowFunc().UTC()

		updated, err := svc.repo.UpdateWorkspace(ctx, w)
		if err == nil {
			return updated, nil
		}
		if errors.Cause(err) != ErrPINExists || attempt == pinAttempts {
			return Workspace{}, err
		}
	}
}

// SetActive soft-(de)activates a workspace. Inactive workspaces keep their data but cannot log in.
func (svc *Service) SetActive(ctx context.Context, id string, active bool) error {
	ctx, cancel := core.QueryContext(ctx, svc.timeout)
	defer cancel()

	w, err := svc.repo.GetWorkspace(ctx, id)
	if err != nil {
		return err
	}
	w.IsActive = active
	w.UpdatedAt = NowFunc().UTC()
	if _, err = svc.repo.UpdateWorkspace(ctx, w); err != nil {
		return err
	}
	svc.forgetPlan(ctx, id)
	return nil
}

// Delete removes the workspace and everything it owns.
func (svc *Service) Delete(ctx context.Context, id string) error {
	ctx, cancel := core.QueryContext(ctx, svc.timeout)
	defer cancel()

	if err := svc.repo.DeleteWorkspace(ctx, id); err != nil {
		return err
	}
	svc.forgetPlan(ctx, id)
	return nil
}

func (svc *Service) SetMaster(ctx context.Context, workspaceID, name, email, pwd string) (Master, error) {
	email = core.CleanString(email, true /* lower */)
	if err := svc.validate.Var(email, "required,email"); err != nil {
		return Master{}, core.NewValidationError(nil, core.FieldError{Field: "email", Error: "a valid email is required"})
	}

	ctx, cancel := core.QueryContext(ctx, svc.timeout)
	defer cancel()

	if _, err := svc.repo.GetWorkspace(ctx, workspaceID); err != nil {
		return Master{}, err
	}

	now := NowFunc().UTC()
	m := Master{
		WorkspaceID: workspaceID,
		Name:        core.CleanString(name),
		Email:       email,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if pwd != "" {
		if err := m.SetPassword(pwd); err != nil {
			return Master{}, errors.Wrap(err, "hashing password")
		}
	}
	return svc.repo.SaveMaster(ctx, m)
}

// GetByPIN resolves an active workspace by its shared PIN.
func (svc *Service) GetByPIN(ctx context.Context, pin string) (Workspace, error) {
	ctx, cancel := core.QueryContext(ctx, svc.timeout)
	defer cancel()

	w, err := svc.repo.GetWorkspaceByPIN(ctx, NormalizePIN(pin))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Workspace{}, ErrNotFound
		}
		return Workspace{}, errors.Wrap(err, "finding workspace by PIN")
	}
	return w, nil
}

// VerifyPIN is GetByPIN for logins: a successful attempt is recorded.
func (svc *Service) VerifyPIN(ctx context.Context, pin string) (Workspace, error) {
	w, err := svc.GetByPIN(ctx, pin)
	if err != nil {
		return Workspace{}, err
	}

	svc.trail.Record(ctx, audit.Entry{WorkspaceID: w.ID, Event: audit.EventPINLogin, Success: true})
	return w, nil
}

// VerifyMasterCredentials checks email/password against the workspace master record.
// It fails closed like member.Service.VerifyCredentials.
func (svc *Service) VerifyMasterCredentials(ctx context.Context, workspaceID, email, pwd string) (Master, bool, error) {
	email = core.CleanString(email, true /* lower */)
	entry := audit.Entry{WorkspaceID: workspaceID, Email: email, Event: audit.EventMasterLogin}

	qctx, cancel := core.QueryContext(ctx, svc.timeout)
	m, err := svc.repo.GetMaster(qctx, workspaceID)
	cancel()
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			svc.trail.Record(ctx, entry)
			return Master{}, false, nil
		}
		return Master{}, false, errors.Wrap(err, "finding workspace master")
	}

	if m.Email != email || !m.CheckPassword(pwd) {
		svc.trail.Record(ctx, entry)
		return Master{}, false, nil
	}
	entry.Success = true
	svc.trail.Record(ctx, entry)
	return m, true, nil
}

func planCacheKey(workspaceID string) string {
	return "workspace:plan:" + workspaceID
}

// Plan returns the subscription plan and AI-engine allowlist of a workspace.
// Values are cached per workspace for the configured TTL; cache failures fall through to the store.
func (svc *Service) Plan(ctx context.Context, workspaceID string) (Plan, error) {
	key := planCacheKey(workspaceID)

	var p Plan
	if svc.cache != nil {
		found, err := svc.cache.Get(ctx, key, &p)
		if err != nil {
			svc.logger.Warn("workspace: reading plan cache failed", err)
		} else if found {
			return p, nil
		}
	}

	qctx, cancel := core.QueryContext(ctx, svc.timeout)
	w, err := svc.repo.GetWorkspace(qctx, workspaceID)
	cancel()
	if err != nil {
		return Plan{}, err
	}
	p = Plan{
		WorkspaceID: w.ID,
		Plan:        w.Plan,
		AIEngines:   nonNil(w.AIEngines),
		Features:    nonNil(w.Features),
	}

	if svc.cache != nil {
		if err = svc.cache.Set(ctx, key, p, svc.planTTL); err != nil {
			svc.logger.Warn("workspace: writing plan cache failed", err)
		}
	}
	return p, nil
}

func (svc *Service) forgetPlan(ctx context.Context, workspaceID string) {
	if svc.cache == nil {
		return
	}
	if err := svc.cache.Delete(ctx, planCacheKey(workspaceID)); err != nil {
		svc.logger.Warn("workspace: evicting plan cache failed", err)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
