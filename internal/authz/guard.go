// Package authz holds the authorization decision used by every protected
// operation: a role set, optionally widened by resource ownership.
package authz

import "eventease/internal/domain"

// Requirement describes who may perform an operation.
type Requirement struct {
	// Roles grants access to any user holding one of them.
	Roles []domain.Role
	// OwnerCheck additionally grants access to the owner of the resource.
	OwnerCheck bool
	// OwnerID is the resource owner. It must be non-nil when OwnerCheck is set;
	// an empty string denotes a resource without an owner.
	OwnerID *string
}

// AdminOrOwner is the common requirement "admins, or the owner of ownerID".
func AdminOrOwner(ownerID string) Requirement {
	return Requirement{
		Roles:      []domain.Role{domain.RoleAdmin},
		OwnerCheck: true,
		OwnerID:    &ownerID,
	}
}

// RolesOnly is a requirement without ownership override.
func RolesOnly(roles ...domain.Role) Requirement {
	return Requirement{Roles: roles}
}

// Authorize returns nil when user satisfies req, and otherwise one of
// domain.ErrUnauthenticated, domain.ErrGuardMisconfigured or domain.ErrForbidden.
// It keeps no state between calls.
func Authorize(user *domain.User, req Requirement) error {
	if user == nil || user.ID == "" {
		return domain.ErrUnauthenticated
	}

	roleOK := user.HasRole(req.Roles...)

	ownerOK := false
	if req.OwnerCheck {
		if req.OwnerID == nil {
			return domain.ErrGuardMisconfigured
		}
		ownerOK = *req.OwnerID != "" && user.ID == *req.OwnerID
	}

	if roleOK || ownerOK {
		return nil
	}
	return domain.ErrForbidden
}
