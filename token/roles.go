package token

import (
	"slices"
	"strings"
)

// Role is an authorization role carried in a credential's "roles" claim.
type Role string

const (
	RoleAdmin   Role = "ADMIN"   // Can manage users and every catalog entity
	RoleCreator Role = "CREATOR" // Can create and edit their own catalog entries
	RoleUser    Role = "USER"    // Read-only access
)

var knownRoles = []Role{RoleAdmin, RoleCreator, RoleUser}

// Known reports whether r is one of the enumerated roles.
func (r Role) Known() bool {
	return slices.Contains(knownRoles, r)
}

// ParseRole maps a claim value onto a known role when it names one, ignoring case and a
// "ROLE_" prefix. Anything else is kept verbatim so it can never collide with a known role.
func ParseRole(value string) Role {
	normalised := strings.ToUpper(strings.TrimSpace(value))
	normalised = strings.TrimPrefix(normalised, "ROLE_")
	if candidate := Role(normalised); candidate.Known() {
		return candidate
	}
	return Role(value)
}

// Roles is the de-duplicated set of roles granted by a credential.
type Roles []Role

// NewRoles parses raw claim values into a sorted set.
func NewRoles(values []string) Roles {
	roles := make(Roles, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		role := ParseRole(v)
		if !slices.Contains(roles, role) {
			roles = append(roles, role)
		}
	}
	slices.Sort(roles)
	return roles
}

// Has reports whether the set grants role. Only known roles can be granted.
func (rs Roles) Has(role Role) bool {
	return role.Known() && slices.Contains(rs, role)
}

// Strings returns the roles as plain strings.
func (rs Roles) Strings() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}
