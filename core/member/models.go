package member

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/inclusiva/core"
)

// Visibility modes
const (
	VisibilityAll         = "all"
	VisibilityByClass     = "by-class"
	VisibilityByTutorLink = "by-tutor-link"
)

// Capability keys, one per functional area.
const (
	CapStudents   = "students"
	CapPEI        = "pei"
	CapPAEE       = "paee"
	CapHub        = "hub"
	CapLogbook    = "logbook"
	CapEvaluation = "evaluation"
	CapUsers      = "users"
)

var (
	VisibilityModes = []string{VisibilityAll, VisibilityByClass, VisibilityByTutorLink}
	AllCapabilities = []string{CapStudents, CapPEI, CapPAEE, CapHub, CapLogbook, CapEvaluation, CapUsers}
)

// Capabilities holds the per-area permission flags of a Member.
type Capabilities struct {
	Students   bool `json:"can_students" db:"can_students"`
	PEI        bool `json:"can_pei" db:"can_pei"`
	PAEE       bool `json:"can_paee" db:"can_paee"`
	Hub        bool `json:"can_hub" db:"can_hub"`
	Logbook    bool `json:"can_logbook" db:"can_logbook"`
	Evaluation bool `json:"can_evaluation" db:"can_evaluation"`
	Users      bool `json:"can_users" db:"can_users"`
}

// Has returns the flag named by key. Unknown keys are never granted.
func (c Capabilities) Has(key string) bool {
	switch key {
	case CapStudents:
		return c.Students
	case CapPEI:
		return c.PEI
	case CapPAEE:
		return c.PAEE
	case CapHub:
		return c.Hub
	case CapLogbook:
		return c.Logbook
	case CapEvaluation:
		return c.Evaluation
	case CapUsers:
		return c.Users
	default:
		return false
	}
}

// Map returns the flags keyed by capability key.
func (c Capabilities) Map() map[string]bool {
	m := make(map[string]bool, len(AllCapabilities))
	for _, key := range AllCapabilities {
		m[key] = c.Has(key)
	}
	return m
}

type Member struct {
	ID           string `json:"id" db:"id"`
	WorkspaceID  string `json:"workspace_id" db:"workspace_id"`
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	PasswordHash []byte `json:"-" db:"password_hash"`
	Phone        string `json:"phone" db:"phone"`
	Role         string `json:"role" db:"role"`
	Capabilities
	Visibility string    `json:"visibility" db:"visibility"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"` // UTC
}

func (m *Member) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	m.PasswordHash = hash
	return nil
}

// CheckPassword reports whether pwd matches the stored hash.
// Members created before passwords were enforced have no hash and always match.
func (m *Member) CheckPassword(pwd string) bool {
	if len(m.PasswordHash) == 0 {
		return true
	}
	return bcrypt.CompareHashAndPassword(m.PasswordHash, []byte(pwd)) == nil
}

func (m *Member) HasPassword() bool {
	return len(m.PasswordHash) > 0
}

// VisibilityMode returns the member's visibility mode, defaulting to VisibilityAll.
func (m *Member) VisibilityMode() string {
	if m == nil || m.Visibility == "" {
		return VisibilityAll
	}
	return m.Visibility
}

// ClassAssignment gives a member visibility over one class group for one curricular component.
type ClassAssignment struct {
	Grade      string `json:"grade" db:"grade" validate:"required"`
	ClassGroup string `json:"class_group" db:"class_group"`
	Component  string `json:"component" db:"component"`
}

// ClassKey is the (grade, class group) projection of a ClassAssignment.
type ClassKey struct {
	Grade      string `json:"grade"`
	ClassGroup string `json:"class_group"`
}

// Links holds the visibility rows of a member. Only the set matching the member's
// visibility mode is ever stored.
type Links struct {
	Assignments []ClassAssignment
	StudentIDs  []string
}

// NewMember contains information needed to create a new Member.
type NewMember struct {
	Name         string            `json:"name" validate:"required"`
	Email        string            `json:"email" validate:"required,email"`
	Password     string            `json:"password" validate:"required"`
	Phone        string            `json:"phone" validate:"omitempty,phone"`
	Role         string            `json:"role"`
	Capabilities                   // flattened can_* flags
	Visibility   string            `json:"visibility" validate:"omitempty,visibility"`
	Assignments  []ClassAssignment `json:"assignments" validate:"omitempty,dive"`
	StudentIDs   []string          `json:"student_ids" validate:"omitempty,dive,required"`
}

func (nm *NewMember) Clean() {
	nm.Name = core.CleanString(nm.Name)
	nm.Email = core.CleanString(nm.Email, true /* lower */)
	nm.Phone = core.CleanString(nm.Phone)
	nm.Role = core.CleanString(nm.Role)
	nm.Visibility = core.CleanString(nm.Visibility, true /* lower */)
	if nm.Visibility == "" {
		nm.Visibility = VisibilityAll
	}
}

// links keeps only the rows relevant to the chosen visibility mode.
func (nm *NewMember) links() Links {
	return linksFor(nm.Visibility, nm.Assignments, nm.StudentIDs)
}

// CapabilitiesUpdate sets individual capability flags; nil means "do not change".
type CapabilitiesUpdate struct {
	Students   *bool `json:"can_students"`
	PEI        *bool `json:"can_pei"`
	PAEE       *bool `json:"can_paee"`
	Hub        *bool `json:"can_hub"`
	Logbook    *bool `json:"can_logbook"`
	Evaluation *bool `json:"can_evaluation"`
	Users      *bool `json:"can_users"`
}

func (cu CapabilitiesUpdate) apply(c *Capabilities) {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&c.Students, cu.Students)
	set(&c.PEI, cu.PEI)
	set(&c.PAEE, cu.PAEE)
	set(&c.Hub, cu.Hub)
	set(&c.Logbook, cu.Logbook)
	set(&c.Evaluation, cu.Evaluation)
	set(&c.Users, cu.Users)
}

// UpdateMember defines what information may be provided to modify an existing Member.
// Every field is optional; omitted fields are left unchanged.
type UpdateMember struct {
	Name     *string `json:"name" validate:"omitempty,min=1"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password"`
	Phone    *string `json:"phone" validate:"omitempty,phone"`
	Role     *string `json:"role"`
	CapabilitiesUpdate
	// Assignments and StudentIDs are only read when Visibility is set.
	Visibility  *string           `json:"visibility" validate:"omitempty,visibility"`
	Assignments []ClassAssignment `json:"assignments" validate:"omitempty,dive"`
	StudentIDs  []string          `json:"student_ids" validate:"omitempty,dive,required"`
}

func (um *UpdateMember) Clean() {
	clean := func(s *string, lower bool) {
		if s != nil {
			*s = core.CleanString(*s, lower)
		}
	}
	clean(um.Name, false)
	clean(um.Email, true)
	clean(um.Phone, false)
	clean(um.Role, false)
	clean(um.Visibility, true)
	if um.Email != nil && *um.Email == "" {
		um.Email = nil
	}
	if um.Phone != nil && *um.Phone == "" {
		um.Phone = nil
	}
}

// apply copies every set field onto m and reports the visibility rows to store, if any.
func (um *UpdateMember) apply(m *Member) *Links {
	if um.Name != nil {
		m.Name = *um.Name
	}
	if um.Email != nil {
		m.Email = *um.Email
	}
	if um.Phone != nil {
		m.Phone = *um.Phone
	}
	if um.Role != nil {
		m.Role = *um.Role
	}
	um.CapabilitiesUpdate.apply(&m.Capabilities)

	if um.Visibility == nil {
		return nil
	}
	m.Visibility = *um.Visibility
	if m.Visibility == "" {
		m.Visibility = VisibilityAll
	}
	links := linksFor(m.Visibility, um.Assignments, um.StudentIDs)
	return &links
}

func linksFor(mode string, assignments []ClassAssignment, studentIDs []string) Links {
	switch mode {
	case VisibilityByClass:
		as := make([]ClassAssignment, 0, len(assignments))
		for _, a := range assignments {
			as = append(as, ClassAssignment{
				Grade:      core.CleanString(a.Grade),
				ClassGroup: core.CleanString(a.ClassGroup),
				Component:  core.CleanString(a.Component),
			})
		}
		return Links{Assignments: as}
	case VisibilityByTutorLink:
		seen := make(map[string]bool, len(studentIDs))
		ids := make([]string, 0, len(studentIDs))
		for _, id := range studentIDs {
			id = core.CleanString(id)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
		return Links{StudentIDs: ids}
	default:
		return Links{}
	}
}

// ResetPassword is the payload of a password reset link.
type ResetPassword struct {
	UID             string `json:"uid" validate:"required"`
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type QueryFilter struct {
	Search   string `query:"search"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
