package access

import (
	"context"

	"github.com/trezcool/inclusiva/core/member"
)

type ctxKey int

const sessionKey ctxKey = iota

// Session is the request-scoped identity every access-controlled operation receives.
// It is built once per request and never mutated. A Session without a member is an
// owner session (PIN-only or workspace master login) and has full access.
type Session struct {
	workspaceID   string
	workspaceName string
	userName      string
	role          string
	member        *member.Member
}

// NewOwnerSession returns a session with no member identity attached.
func NewOwnerSession(workspaceID, workspaceName, userName string) Session {
	return Session{
		workspaceID:   workspaceID,
		workspaceName: workspaceName,
		userName:      userName,
		role:          "owner",
	}
}

// NewMemberSession returns a session for m. The member is copied.
func NewMemberSession(workspaceName string, m member.Member) Session {
	return Session{
		workspaceID:   m.WorkspaceID,
		workspaceName: workspaceName,
		userName:      m.Name,
		role:          m.Role,
		member:        &m,
	}
}

func (s Session) WorkspaceID() string   { return s.workspaceID }
func (s Session) WorkspaceName() string { return s.workspaceName }
func (s Session) UserName() string      { return s.userName }
func (s Session) Role() string          { return s.role }
func (s Session) HasMember() bool       { return s.member != nil }

// Member returns a copy of the session member.
func (s Session) Member() (member.Member, bool) {
	if s.member == nil {
		return member.Member{}, false
	}
	return *s.member, true
}

// MemberID returns the session member id, or "" for owner sessions.
func (s Session) MemberID() string {
	if s.member == nil {
		return ""
	}
	return s.member.ID
}

// Visibility returns the visibility mode of the session: owner sessions see everything.
func (s Session) Visibility() string {
	return s.member.VisibilityMode()
}

// CanAccess reports whether the session may use the functional area named by capability.
func (s Session) CanAccess(capability string) bool {
	return CanAccess(capability, s.member)
}

// View is the JSON shape of a Session.
type View struct {
	WorkspaceID   string          `json:"workspace_id"`
	WorkspaceName string          `json:"workspace_name"`
	UserName      string          `json:"user_name"`
	Role          string          `json:"role"`
	MemberID      string          `json:"member_id,omitempty"`
	Visibility    string          `json:"visibility"`
	Capabilities  map[string]bool `json:"capabilities"`
}

func (s Session) View() View {
	caps := make(map[string]bool, len(member.AllCapabilities))
	for _, c := range member.AllCapabilities {
		caps[c] = s.CanAccess(c)
	}
	return View{
		WorkspaceID:   s.workspaceID,
		WorkspaceName: s.workspaceName,
		UserName:      s.userName,
		Role:          s.role,
		MemberID:      s.MemberID(),
		Visibility:    s.Visibility(),
		Capabilities:  caps,
	}
}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}
