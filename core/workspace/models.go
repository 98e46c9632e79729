package workspace

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/inclusiva/core"
)

// Subscription plans
const (
	PlanBasic   = "basic"
	PlanPremium = "premium"
)

type Workspace struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	PIN       string    `json:"-" db:"pin"`
	Features  []string  `json:"features" db:"-"`
	Plan      string    `json:"plan" db:"plan"`
	AIEngines []string  `json:"ai_engines" db:"-"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// HasFeature reports whether the named feature is enabled for the workspace.
func (w Workspace) HasFeature(name string) bool {
	for _, f := range w.Features {
		if f == name {
			return true
		}
	}
	return false
}

// Master is the single owner record of a workspace. It is not a Member: a master session
// carries no member identity and therefore has full access.
type Master struct {
	WorkspaceID  string    `json:"workspace_id" db:"workspace_id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

func (m *Master) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	m.PasswordHash = hash
	return nil
}

// CheckPassword follows the member rule: no stored hash matches any password.
func (m *Master) CheckPassword(pwd string) bool {
	if len(m.PasswordHash) == 0 {
		return true
	}
	return bcrypt.CompareHashAndPassword(m.PasswordHash, []byte(pwd)) == nil
}

// Plan is the subscription information of a workspace, cached per workspace id.
type Plan struct {
	WorkspaceID string   `json:"workspace_id"`
	Plan        string   `json:"plan"`
	AIEngines   []string `json:"ai_engines"`
	Features    []string `json:"features"`
}

// NewWorkspace contains information needed to create a new Workspace.
type NewWorkspace struct {
	Name      string   `json:"name" validate:"required"`
	Plan      string   `json:"plan" validate:"omitempty,oneof=basic premium"`
	Features  []string `json:"features"`
	AIEngines []string `json:"ai_engines"`
}

func (nw *NewWorkspace) Clean() {
	nw.Name = core.CleanString(nw.Name)
	nw.Plan = core.CleanString(nw.Plan, true /* lower */)
	if nw.Plan == "" {
		nw.Plan = PlanBasic
	}
}
