package middleware

import (
	"log/slog"
	"net/http"

	"eventease/internal/authz"
	h "eventease/internal/delivery/http/helpers"
	"eventease/internal/domain"
)

// Policy is the route-level access rule. Roles grant access outright;
// OwnerParam, when set, also grants access to the user whose id equals that path value.
type Policy struct {
	Roles      []domain.Role
	OwnerParam string
}

// Roles is a policy without ownership override.
func Roles(roles ...domain.Role) Policy {
	return Policy{Roles: roles}
}

func (p Policy) requirement(r *http.Request) authz.Requirement {
	req := authz.Requirement{Roles: p.Roles}
	if p.OwnerParam != "" {
		owner := r.PathValue(p.OwnerParam)
		req.OwnerCheck = true
		req.OwnerID = &owner
	}
	return req
}

// Authorize returns a wrapper that checks the context user against policy. It
// must run after RequireAuth; a request without a user gets 401.
func Authorize(policy Policy, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user, _ := UserFromContext(r.Context())
			if err := authz.Authorize(user, policy.requirement(r)); err != nil {
				h.WriteDomainError(w, r, logger, err)
				return
			}
			next(w, r)
		}
	}
}
