package models

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role is a normalized officer role, lower-case and hyphen separated
// ("director", "corporate-secretary").
type Role string

const (
	RoleDirector                     Role = "director"
	RoleCorporateDirector            Role = "corporate-director"
	RoleNomineeDirector              Role = "nominee-director"
	RoleCorporateNomineeDirector     Role = "corporate-nominee-director"
	RoleSecretary                    Role = "secretary"
	RoleCorporateSecretary           Role = "corporate-secretary"
	RoleNomineeSecretary             Role = "nominee-secretary"
	RoleCorporateNomineeSecretary    Role = "corporate-nominee-secretary"
	RoleMember                       Role = "member"
	RoleLLPMember                    Role = "llp-member"
	RoleLLPDesignatedMember          Role = "llp-designated-member"
	RoleCorporateLLPMember           Role = "corporate-llp-member"
	RoleCorporateLLPDesignatedMember Role = "corporate-llp-designated-member"
	RoleManagingOfficer              Role = "managing-officer"
	RoleCorporateManagingOfficer     Role = "corporate-managing-officer"
)

// controlRoles are the roles that indicate voting or directorial control.
var controlRoles = map[Role]bool{
	RoleDirector:                     true,
	RoleCorporateDirector:            true,
	RoleNomineeDirector:              true,
	RoleCorporateNomineeDirector:     true,
	RoleMember:                       true,
	RoleLLPMember:                    true,
	RoleLLPDesignatedMember:          true,
	RoleCorporateLLPMember:           true,
	RoleCorporateLLPDesignatedMember: true,
	RoleManagingOfficer:              true,
	RoleCorporateManagingOfficer:     true,
}

var nonControlRoles = map[Role]bool{
	RoleSecretary:                 true,
	RoleCorporateSecretary:        true,
	RoleNomineeSecretary:          true,
	RoleCorporateNomineeSecretary: true,
}

var titleCaser = cases.Title(language.English)

// NormalizeRole converts a registry role string ("Director", "corporate director",
// "llp_designated_member") to its canonical form.
func NormalizeRole(s string) Role {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", "-", " ", "-").Replace(s)
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return Role(s)
}

// Known reports whether the role is one the registries are known to emit.
func (r Role) Known() bool {
	return controlRoles[r] || nonControlRoles[r]
}

// Controls reports whether a known role indicates control. Unknown roles
// return false; callers decide their policy via Known.
func (r Role) Controls() bool {
	return controlRoles[r]
}

// Title renders the role for humans: "corporate-director" -> "Corporate Director".
func (r Role) Title() string {
	if r == "" {
		return "Officer"
	}
	return titleCaser.String(strings.ReplaceAll(string(r), "-", " "))
}

// Officer is a person or legal entity holding a role at a company.
// Officers are identified across companies by name only.
type Officer struct {
	Name        string `json:"name"`
	Role        Role   `json:"role,omitempty"`
	AppointedOn string `json:"appointed_on,omitempty"`
	ResignedOn  string `json:"resigned_on,omitempty"`
	BirthDate   string `json:"birth_date,omitempty"` // YYYY-MM when the registry exposes it
	Ref         string `json:"ref,omitempty"`        // registry officer reference, if any
}

// IsCurrent reports whether the officer has not resigned.
func (o Officer) IsCurrent() bool {
	return o.ResignedOn == ""
}
