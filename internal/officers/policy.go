package officers

import (
	"github.com/ajitpratap0/groupmapper/internal/config"
	"github.com/ajitpratap0/groupmapper/internal/models"
)

// RolePolicy decides which officers drive the shared-officer fan-out.
type RolePolicy struct {
	// ControlOnly limits fan-out to roles that indicate control.
	ControlOnly bool
	// UnknownIsControl treats absent or unrecognized roles as control roles.
	UnknownIsControl bool
	// IncludeResigned keeps officers that have resigned.
	IncludeResigned bool
}

// DefaultRolePolicy follows control roles, counts unknown roles as control
// and keeps resigned officers.
func DefaultRolePolicy() RolePolicy {
	return RolePolicy{ControlOnly: true, UnknownIsControl: true, IncludeResigned: true}
}

// PolicyFromConfig reads the policy from the mapping configuration.
func PolicyFromConfig(cfg config.MappingConfig) RolePolicy {
	return RolePolicy{
		ControlOnly:      cfg.ControlRolesOnly,
		UnknownIsControl: cfg.UnknownRoleIsControl,
		IncludeResigned:  cfg.IncludeResigned,
	}
}

// Drives reports whether o should be followed to other companies.
func (p RolePolicy) Drives(o models.Officer) bool {
	if !p.IncludeResigned && !o.IsCurrent() {
		return false
	}
	if !p.ControlOnly {
		return true
	}
	if !o.Role.Known() {
		return p.UnknownIsControl
	}
	return o.Role.Controls()
}
