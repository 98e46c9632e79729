package access

import (
	"github.com/trezcool/inclusiva/core"
	"github.com/trezcool/inclusiva/core/member"
)

// CanAccess is the access gate. Without a member identity every capability is granted
// (legacy owner login); otherwise the named flag decides and unknown keys are denied.
func CanAccess(capability string, m *member.Member) bool {
	if m == nil {
		return true
	}
	return m.Has(capability)
}

// Require returns core.ErrUnauthorized unless the session holds capability.
func (s Session) Require(capability string) error {
	if !s.CanAccess(capability) {
		return core.ErrUnauthorized
	}
	return nil
}
