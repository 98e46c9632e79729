package member

import (
	"context"
	"net/mail"
	"strings"
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
	ErrNotFound       = errors.Wrap(core.ErrNotFound, "member")
	ErrDuplicateEmail = core.ErrDuplicateEmail
)

type (
	// Repository is the member store. Every read is scoped by workspace id; empty results
	// are empty slices, not errors.
	Repository interface {
		CreateMember(ctx context.Context, m Member, links Links) (Member, error)
		GetMember(ctx context.Context, workspaceID, id string) (Member, error)
		GetMemberByEmail(ctx context.Context, workspaceID, email string) (Member, error)
		QueryMembers(ctx context.Context, workspaceID string, filter *QueryFilter, ordering []core.DBOrdering) ([]Member, error)
		// UpdateMember saves m; when links is not nil, the member's assignments and student
		// links are replaced by links in the same transaction.
		UpdateMember(ctx context.Context, m Member, links *Links) (Member, error)
		SetMemberActive(ctx context.Context, workspaceID, id string, active bool, updatedAt time.Time) error
		DeleteMember(ctx context.Context, workspaceID, id string) error
		QueryClassAssignments(ctx context.Context, memberID string) ([]ClassAssignment, error)
		QueryStudentLinks(ctx context.Context, memberID string) ([]string, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, workspaceID string, nm NewMember) (Member, error)
		Get(ctx context.Context, workspaceID, id string) (Member, error)
		Query(ctx context.Context, workspaceID string, filter *QueryFilter, ordering []core.DBOrdering) ([]Member, error)
		Update(ctx context.Context, workspaceID, id string, um UpdateMember) (Member, error)
		Deactivate(ctx context.Context, workspaceID, id string) error
		Reactivate(ctx context.Context, workspaceID, id string) error
		Delete(ctx context.Context, workspaceID, id string) error
		ClassAssignments(ctx context.Context, memberID string) ([]ClassKey, error)
		Assignments(ctx context.Context, memberID string) ([]ClassAssignment, error)
		StudentLinks(ctx context.Context, memberID string) ([]string, error)
		VerifyCredentials(ctx context.Context, workspaceID, email, pwd string) (Member, bool, error)
		SetPassword(ctx context.Context, workspaceID, email, pwd string) error
		RequestPasswordReset(ctx context.Context, workspaceID, email string) error
		ResetPassword(ctx context.Context, rp ResetPassword) error
	}

	Service struct {
		repo        Repository
		trail       *audit.Trail
		mailSvc     core.EmailService
		tokens      tokenGenerator
		frontendURL string
		validate    *validator.Validate
		translator  ut.Translator
		pwdMinLen   int
		timeout     time.Duration
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

func NewService(
	repo Repository,
	trail *audit.Trail,
	mailSvc core.EmailService,
	validate *validator.Validate,
	translator ut.Translator,
	conf *core.Config,
) *Service {
	pwdMinLen := conf.Auth.PasswordMinLength
	if pwdMinLen <= 0 {
		pwdMinLen = 4
	}
	return &Service{
		repo:    repo,
		trail:   trail,
		mailSvc: mailSvc,
		tokens: tokenGenerator{
			secret:  []byte(conf.SecretKey),
			timeout: conf.Auth.PasswordResetTimeout,
		},
		frontendURL: strings.TrimSuffix(conf.Email.FrontendBaseURL, "/"),
		validate:    validate,
		translator:  translator,
		pwdMinLen:   pwdMinLen,
		timeout:     conf.Database.QueryTimeout,
	}
}

func (svc *Service) Create(ctx context.Context, workspaceID string, nm NewMember) (Member, error) {
	if err := nm.Validate(svc.validate, svc.translator, svc.pwdMinLen); err != nil {
		return Member{}, err
	}

	now := NowFunc().UTC()
	m := Member{
		WorkspaceID:  workspaceID,
		Name:         nm.Name,
		Email:        nm.Email,
		Phone:        nm.Phone,
		Role:         nm.Role,
		Capabilities: nm.Capabilities,
		Visibility:   nm.Visibility,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.SetPassword(nm.Password); err != nil {
		return Member{}, errors.Wrap(err, "hashing password")
	}

	ctx, cancel := core.QueryContext(ctx, svc.timeout)
	defer cancel()
	return svc.repo.CreateMember(ctx, m, nm.links())
}

func (svc *Service) Get(ctx context.Context, workspaceID, id string) (Member, error) {
	ctx, cancel := core.QueryContext(ctx, svc.timeout)
	defer cancel()
	return svc.repo.GetMember(ctx, workspaceID, id)
}

func (svc *Service) Query(ctx context.Context, workspaceID string, filter *QueryFilter, ordering []core.DBOrdering) ([]Member, error) {
	ctx, cancel := core.QueryContext(ctx, svc.timeout)
	defer cancel()

	members, err := svc.repo.QueryMembers(ctx, workspaceID, filter, ordering)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []Member{}
	}
	return members, nil
}

// Update applies the set fields of um. A password shorter than the minimum length is
// ignored and the existing hash kept.
func (svc *Service) Update(ctx context.Context, workspaceID, id string, um UpdateMember) (Member, error) {
	if err := um.Validate(svc.validate, svc.translator); err != nil {
		return Member{}, err
	}

	ctx, cancel := core.QueryContext(ctx, svc.timeout)
	defer cancel()

	m, err := svc.repo.GetMember(ctx, workspaceID, id)
	if err != nil {
		return Member{}, err
	}
	links := um.apply(&m)
	if um.Password != nil && len(*um.Password) >= svc.pwdMinLen {
		if err = m.SetPassword(*um.Password); err != nil {
			return Member{}, errors.Wrap(err, "hashing password")
		}
	}
	m.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateMember(ctx, m, links)
}

func (svc *Service) setActive(ctx context.Context, workspaceID, id string, active bool) error {
	ctx, cancel := core.QueryContext(ctx, svc.timeout)
	defer cancel()
	return svc.repo.SetMemberActive(ctx, workspaceID, id, active, NowFunc().UTC())
}

// Deactivate blocks the member's logins but keeps the row and its history.
func (svc *Service) Deactivate(ctx context.Context, workspaceID, id string) error {
	return svc.setActive(ctx, workspaceID, id, false)
}

func (svc *Service) Reactivate(ctx context.Context, workspaceID, id string) error {
	return svc.setActive(ctx, workspaceID, id, true)
}

// Delete removes the member permanently, freeing its email for reuse.
func (svc *Service) Delete(ctx context.Context, workspaceID, id string) error {
	ctx, cancel := core.QueryContext(ctx, svc.timeout)
	defer cancel()
	return svc.repo.DeleteMember(ctx, workspaceID, id)
}

func (svc *Service) Assignments(ctx context.Context, memberID string) ([]ClassAssignment, error) {
	ctx, cancel := core.QueryContext(ctx, svc.timeout)
	defer cancel()

	as, err := svc.repo.QueryClassAssignments(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if as == nil {
		as = []ClassAssignment{}
	}
	return as, nil
}

// ClassAssignments returns the member's distinct (grade, class group) pairs.
func (svc *Service) ClassAssignments(ctx context.Context, memberID string) ([]ClassKey, error) {
	as, err := svc.Assignments(ctx, memberID)
	if err != nil {
		return nil, err
	}
	seen := make(map[ClassKey]bool, len(as))
	keys := make([]ClassKey, 0, len(as))
	for _, a := range as {
		key := ClassKey{Grade: a.Grade, ClassGroup: a.ClassGroup}
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys, nil
}

func (svc *Service) StudentLinks(ctx context.Context, memberID string) ([]string, error) {
	ctx, cancel := core.QueryContext(ctx, svc.timeout)
	defer cancel()

	ids, err := svc.repo.QueryStudentLinks(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// VerifyCredentials fails closed: unknown email, inactive member or a mismatching
// password all report false. A store failure is returned as an error, never as a match.
func (svc *Service) VerifyCredentials(ctx context.Context, workspaceID, email, pwd string) (Member, bool, error) {
	email = core.CleanString(email, true /* lower */)
	entry := audit.Entry{WorkspaceID: workspaceID, Email: email, Event: audit.EventMemberLogin}

	qctx, cancel := core.QueryContext(ctx, svc.timeout)
	m, err := svc.repo.GetMemberByEmail(qctx, workspaceID, email)
	cancel()
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			svc.trail.Record(ctx, entry)
			return Member{}, false, nil
		}
		return Member{}, false, errors.Wrap(err, "finding member by email")
	}

	entry.MemberID = m.ID
	if !m.IsActive || !m.CheckPassword(pwd) {
		svc.trail.Record(ctx, entry)
		return Member{}, false, nil
	}
	entry.Success = true
	svc.trail.Record(ctx, entry)
	return m, true, nil
}

// SetPassword replaces a member's password; used by the admin CLI.
func (svc *Service) SetPassword(ctx context.Context, workspaceID, email, pwd string) error {
	if len(pwd) < svc.pwdMinLen {
		return passwordTooShort(svc.pwdMinLen)
	}

	ctx, cancel := core.QueryContext(ctx, svc.timeout)
	defer cancel()

	m, err := svc.repo.GetMemberByEmail(ctx, workspaceID, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if err = m.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	m.UpdatedAt = NowFunc().UTC()
	_, err = svc.repo.UpdateMember(ctx, m, nil)
	return err
}

// RequestPasswordReset mails a reset link to the member holding email. Unknown and inactive
// members are reported as ErrNotFound; callers should not reveal which one occurred.
func (svc *Service) RequestPasswordReset(ctx context.Context, workspaceID, email string) error {
	ctx, cancel := core.QueryContext(ctx, svc.timeout)
	defer cancel()

	m, err := svc.repo.GetMemberByEmail(ctx, workspaceID, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if !m.IsActive {
		return ErrNotFound
	}
	if svc.mailSvc == nil {
		return errors.New("no email service configured")
	}

	token, err := svc.tokens.MakeToken(m)
	if err != nil {
		return errors.Wrap(err, "making reset token")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: m.Name, Address: m.Email}},
		Subject:      "Password reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Name": m.Name,
			"URL":  svc.frontendURL + "/password-reset/" + EncodeUID(m) + "/" + token,
		},
	})
	return nil
}

// ResetPassword sets a new password from a reset link. Every token problem is reported as a
// validation error on the "token" field, except a malformed uid which is reported on "uid".
func (svc *Service) ResetPassword(ctx context.Context, rp ResetPassword) error {
	if err := rp.Validate(svc.validate, svc.translator, svc.pwdMinLen); err != nil {
		return err
	}

	workspaceID, id, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "uid", Error: "invalid value"})
	}

	ctx, cancel := core.QueryContext(ctx, svc.timeout)
	defer cancel()

	m, err := svc.repo.GetMember(ctx, workspaceID, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.NewValidationError(err, core.FieldError{Field: "uid", Error: "invalid value"})
		}
		return err
	}
	if err = svc.tokens.verifyToken(m, rp.Token); err != nil {
		if err == ErrInvalidResetToken || err == ErrResetTokenExpired {
			return core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
		}
		return errors.Wrap(err, "verifying reset token")
	}

	if err = m.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	m.UpdatedAt = NowFunc().UTC()
	if _, err = svc.repo.UpdateMember(ctx, m, nil); err != nil {
		return err
	}
	svc.trail.Record(ctx, audit.Entry{WorkspaceID: m.WorkspaceID, MemberID: m.ID, Email: m.Email, Event: audit.EventPasswordReset, Success: true})
	return nil
}
