package permission

import (
	"fmt"
	"slices"

	"github.com/caseaccessio/api/pkg/domain/shared"
)

// Role is a distinguished legal-representative role.
type Role string

const (
	// RoleAdvocate is an individual legal representative.
	RoleAdvocate Role = "ADVOCATE"
	// RoleDefenceLawyer grants organisation-level case access.
	RoleDefenceLawyer Role = "DEFENCE_LAWYER"
	// RoleChambersAdmin may administer grants within their own organisation.
	RoleChambersAdmin Role = "CHAMBERS_ADMIN"
)

// RoleKinds defines which permission kinds each role qualifies for when
// granted access to a defence client's materials.
var RoleKinds = map[Role][]Kind{
	RoleAdvocate:      {KindViewDefendant, KindViewDocument, KindUploadDocument},
	RoleDefenceLawyer: {KindViewDefendant, KindViewDocument, KindUploadDocument},
	RoleChambersAdmin: {KindViewDefendant},
}

// Allowlist maps directory group names onto the distinguished roles. Group
// names are deployment configuration, not code: the directory calls the
// advocate group "Advocates" in one environment and something else in another.
type Allowlist struct {
	advocates      []string
	defenceLawyers []string
	chambersAdmins []string
}

// NewAllowlist creates a role allow-list from configured group names.
// At least one advocate and one defence-lawyer group name must be configured;
// chambers-admin groups are optional.
func NewAllowlist(advocates, defenceLawyers, chambersAdmins []string) (Allowlist, error) {
	if len(advocates) == 0 {
		return Allowlist{}, fmt.Errorf("%w: at least one advocate group name is required", shared.ErrValidation)
	}
	if len(defenceLawyers) == 0 {
		return Allowlist{}, fmt.Errorf("%w: at least one defence-lawyer group name is required", shared.ErrValidation)
	}
	return Allowlist{
		advocates:      slices.Clone(advocates),
		defenceLawyers: slices.Clone(defenceLawyers),
		chambersAdmins: slices.Clone(chambersAdmins),
	}, nil
}

// DefaultAllowlist returns the allow-list with the standard directory group
// names. Deployments override it via configuration.
func DefaultAllowlist() Allowlist {
	return Allowlist{
		advocates:      []string{"Advocates"},
		defenceLawyers: []string{"Defence Lawyers"},
		chambersAdmins: []string{"Chambers Admin"},
	}
}

// IsAdvocate reports whether any of the user's groups is an advocate group.
func (a Allowlist) IsAdvocate(groups []string) bool {
	return intersects(a.advocates, groups)
}

// IsDefenceLawyer reports whether any of the user's groups is a
// defence-lawyer group.
func (a Allowlist) IsDefenceLawyer(groups []string) bool {
	return intersects(a.defenceLawyers, groups)
}

// IsChambersAdmin reports whether any of the user's groups is a
// chambers-admin group.
func (a Allowlist) IsChambersAdmin(groups []string) bool {
	return intersects(a.chambersAdmins, groups)
}

// HasAllowedRole reports whether the groups carry the advocate or
// defence-lawyer role. Grant and assignment commands require one of the two.
func (a Allowlist) HasAllowedRole(groups []string) bool {
	return a.IsDefenceLawyer(groups) || a.IsAdvocate(groups)
}

// RolesOf resolves the distinguished roles held via the given groups.
// DefenceLawyer sorts first: it takes precedence in assignment routing.
func (a Allowlist) RolesOf(groups []string) []Role {
	var roles []Role
	if a.IsDefenceLawyer(groups) {
		roles = append(roles, RoleDefenceLawyer)
	}
	if a.IsAdvocate(groups) {
		roles = append(roles, RoleAdvocate)
	}
	if a.IsChambersAdmin(groups) {
		roles = append(roles, RoleChambersAdmin)
	}
	return roles
}

func intersects(configured, held []string) bool {
	for _, g := range held {
		if slices.Contains(configured, g) {
			return true
		}
	}
	return false
}
