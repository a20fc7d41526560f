package services

import (
	"context"
	"errors"
	"strings"

	"eventease/internal/domain"
)

type identityResolver struct {
	verifier domain.TokenVerifier
	userRepo domain.UserRepository
}

// NewIdentityResolver returns an IdentityResolver that verifies a bearer token
// and loads the current user row, so role changes take effect on the next request.
func NewIdentityResolver(verifier domain.TokenVerifier, userRepo domain.UserRepository) domain.IdentityResolver {
	return &identityResolver{verifier: verifier, userRepo: userRepo}
}

func (r *identityResolver) Resolve(ctx context.Context, token string) (*domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	userID, err := r.verifier.Verify(token)
	if err != nil || userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	user, err := r.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}
