package service

import (
	"context"
	"errors"

	"github.com/clearcomply/membership/internal/membership/domain"
	"github.com/clearcomply/membership/internal/membership/store"
)

// AuthorizeService answers the single question other components ask of this
// core: may this user act on this client at this level. Every answer comes
// from a fresh membership read; nothing here is cached, so a role change or
// removal takes effect on the next call.
type AuthorizeService struct {
	Store store.Store
}

// Authorize checks that userID holds an accepted membership in clientID at
// or above the required role, and returns the derived permission set when
// they do. Missing, pending and removed memberships all surface as
// ErrNotAMember so callers can't distinguish them.
func (s *AuthorizeService) Authorize(
	ctx context.Context,
	clientID string,
	userID string,
	required domain.Role,
) (domain.Permissions, error) {
	if clientID == "" || userID == "" {
		return domain.Permissions{}, ErrInvalidRequest
	}
	if !required.Valid() {
		return domain.Permissions{}, ErrInvalidRole
	}

	m, err := s.Store.Members().GetMemberByUser(ctx, clientID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Permissions{}, ErrNotAMember
		}
		return domain.Permissions{}, normalizeErr(err)
	}
	if !m.IsActive() {
		return domain.Permissions{}, ErrNotAMember
	}

	if !m.Role.Meets(required) {
		return domain.Permissions{}, ErrInsufficientRole
	}

	return m.Role.Permissions(), nil
}
