package authz

import (
	"github.com/buildhubhq/buildhub/internal/domain/profile"
)

// EffectiveRole combines the durable override with the session profile.
// The override wins unconditionally, even over a server-asserted role: it is
// a deliberate operator bypass for UI gating, not real authorization (the
// upstream API enforces its own). Without an override the profile's role is
// authoritative; no profile or no role means unknown.
func EffectiveRole(override bool, p *profile.UserProfile) profile.Role {
	if override {
		return profile.RoleAdmin
	}

	if p != nil {
		return p.Role
	}

	return ""
}
