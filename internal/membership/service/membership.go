package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/clearcomply/membership/internal/membership/domain"
	"github.com/clearcomply/membership/internal/membership/store"
	"github.com/clearcomply/membership/pkg/idx"
	"github.com/clearcomply/membership/pkg/slogx"
)

// maxTxRetries bounds the internal retry of transactions that lost a
// version or uniqueness race. Other failure kinds are never retried here;
// retrying would not change the outcome.
const maxTxRetries = 3

// MembershipService drives the membership lifecycle: invite, accept, role
// change, removal, and role resolution. Every mutation runs its permission
// check, its owner-count check and its write inside one store transaction;
// a check outside the transaction would reopen the race the at-least-one-
// owner invariant exists to close.
type MembershipService struct {
	Store store.Store
}

// Invite creates a pending membership for an email address, to be claimed
// when the invitee authenticates and accepts. Repeating the same invite to
// a still-pending email returns the existing row; re-inviting under a
// different role, or inviting an active member, is a duplicate.
func (s *MembershipService) Invite(
	ctx context.Context,
	clientID string,
	inviterID string,
	email string,
	displayName string,
	role domain.Role,
) (domain.Member, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate input at the boundary of the core.
	email = strings.ToLower(strings.TrimSpace(email))
	if clientID == "" || inviterID == "" || email == "" {
		return domain.Member{}, ErrInvalidRequest
	}
	if !role.Valid() {
		return domain.Member{}, ErrInvalidRole
	}
	if role == domain.RoleOwner {
		// Ownership transfers only through an explicit role change by an
		// existing owner.
		log.Warn("attempted to invite an owner",
			slog.String("client_id", clientID),
			slog.String("inviter_id", inviterID),
		)
		return domain.Member{}, ErrOwnerInviteNotAllowed
	}

	// 2. Create (or find) the pending membership transactionally. The
	// (client_id, email) uniqueness index closes the concurrent-invite
	// race; a lost race retries and lands on the idempotent path.
	var member domain.Member
	err := s.withTxRetry(ctx, func(tx store.Tx) error {
		inviter, err := activeMember(ctx, tx, clientID, inviterID)
		if err != nil {
			return err
		}
		if !inviter.Role.Meets(domain.RoleAdmin) {
			return ErrInsufficientRole
		}

		existing, err := tx.Members().GetMemberByEmail(ctx, clientID, email)
		switch {
		case err == nil:
			if existing.State() == domain.PendingInvite && existing.Role == role {
				// Idempotent re-invite: hand back the pending row. A
				// pending invite under a different role is a conflict,
				// not a silent role change.
				member = existing
				return nil
			}
			return ErrDuplicateMembership
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		now := time.Now().UTC()
		member = domain.Member{
			ID:          idx.New().String(),
			ClientID:    clientID,
			Email:       email,
			DisplayName: displayName,
			Role:        role,
			InvitedBy:   inviterID,
			InvitedAt:   &now,
			Version:     1,
		}
		return tx.Members().CreateMember(ctx, member)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Retries exhausted while racing another invite to the same
			// address.
			return domain.Member{}, ErrDuplicateMembership
		}
		return domain.Member{}, normalizeErr(err)
	}

	log.Info("member invited",
		slog.String("membership_id", member.ID),
		slog.String("client_id", clientID),
		slog.String("invited_by", inviterID),
		slog.String("role", string(member.Role)),
	)
	return member, nil
}

// Accept claims a pending invitation for the authenticated user. The caller
// must be the intended recipient: matched against the stored user id when
// the invitation carries one, otherwise by email.
func (s *MembershipService) Accept(
	ctx context.Context,
	membershipID string,
	userID string,
	userEmail string,
) (domain.Member, error) {
	log := slogx.FromContext(ctx)

	if membershipID == "" || userID == "" {
		return domain.Member{}, ErrInvalidRequest
	}

	var member domain.Member
	err := s.withTxRetry(ctx, func(tx store.Tx) error {
		m, err := tx.Members().GetMemberByID(ctx, membershipID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrMembershipNotFound
			}
			return err
		}

		if m.State() != domain.PendingInvite {
			return ErrInvalidTransition
		}

		// Recipient check. A mismatch reports not-found rather than a
		// permission error so strangers can't confirm the invitation
		// exists.
		switch {
		case m.UserID != "":
			if m.UserID != userID {
				return ErrMembershipNotFound
			}
		default:
			if !strings.EqualFold(m.Email, userEmail) {
				return ErrMembershipNotFound
			}
		}

		now := time.Now().UTC()
		m.UserID = userID
		m.AcceptedAt = &now

		member, err = tx.Members().UpdateMember(ctx, m, m.Version)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// The user already holds a membership in this client under
			// another row; the (client_id, user_id) index caught it.
			return domain.Member{}, ErrDuplicateMembership
		}
		return domain.Member{}, normalizeErr(err)
	}

	log.Info("invitation accepted",
		slog.String("membership_id", member.ID),
		slog.String("client_id", member.ClientID),
		slog.String("user_id", userID),
		slog.String("role", string(member.Role)),
	)
	return member, nil
}

// ChangeRole sets a member's role. Admins may adjust the non-owner roles;
// only an owner may grant or revoke ownership, and no change may leave the
// client without an accepted owner.
func (s *MembershipService) ChangeRole(
	ctx context.Context,
	clientID string,
	actorID string,
	targetMembershipID string,
	newRole domain.Role,
) (oldRole domain.Role, member domain.Member, err error) {
	log := slogx.FromContext(ctx)

	if clientID == "" || actorID == "" || targetMembershipID == "" {
		return "", domain.Member{}, ErrInvalidRequest
	}
	if !newRole.Valid() {
		return "", domain.Member{}, ErrInvalidRole
	}

	err = s.withTxRetry(ctx, func(tx store.Tx) error {
		actor, err := activeMember(ctx, tx, clientID, actorID)
		if err != nil {
			return err
		}
		if !actor.Role.Meets(domain.RoleAdmin) {
			return ErrInsufficientRole
		}

		target, err := memberOfClient(ctx, tx, clientID, targetMembershipID)
		if err != nil {
			return err
		}

		oldRole = target.Role
		if oldRole == newRole {
			member = target // no-op
			return nil
		}

		// Touching ownership in either direction is an owner-only action.
		if (oldRole == domain.RoleOwner || newRole == domain.RoleOwner) &&
			actor.Role != domain.RoleOwner {
			return ErrInsufficientRole
		}

		// Demoting an accepted owner must not zero the owner count. The
		// count runs inside this transaction, so a concurrent demotion of
		// the other owner cannot interleave between check and write.
		if target.IsActiveOwner() {
			owners, err := tx.Members().CountActiveOwners(ctx, clientID)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return ErrLastOwner
			}
		}

		target.Role = newRole
		member, err = tx.Members().UpdateMember(ctx, target, target.Version)
		return err
	})
	if err != nil {
		return "", domain.Member{}, normalizeErr(err)
	}

	log.Info("member role changed",
		slog.String("membership_id", member.ID),
		slog.String("client_id", clientID),
		slog.String("actor_id", actorID),
		slog.String("old_role", string(oldRole)),
		slog.String("new_role", string(member.Role)),
	)
	return oldRole, member, nil
}

// Remove deletes a membership. Admins may remove non-owners; removing an
// owner takes an owner, and the last accepted owner can never be removed,
// not even by themself.
func (s *MembershipService) Remove(
	ctx context.Context,
	clientID string,
	actorID string,
	targetMembershipID string,
) error {
	log := slogx.FromContext(ctx)

	if clientID == "" || actorID == "" || targetMembershipID == "" {
		return ErrInvalidRequest
	}

	err := s.withTxRetry(ctx, func(tx store.Tx) error {
		actor, err := activeMember(ctx, tx, clientID, actorID)
		if err != nil {
			return err
		}
		if !actor.Role.Meets(domain.RoleAdmin) {
			return ErrInsufficientRole
		}

		target, err := memberOfClient(ctx, tx, clientID, targetMembershipID)
		if err != nil {
			return err
		}

		if target.Role == domain.RoleOwner && actor.Role != domain.RoleOwner {
			return ErrInsufficientRole
		}

		if target.IsActiveOwner() {
			owners, err := tx.Members().CountActiveOwners(ctx, clientID)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return ErrLastOwner
			}
		}

		return tx.Members().DeleteMember(ctx, target.ID)
	})
	if err != nil {
		return normalizeErr(err)
	}

	log.Info("member removed",
		slog.String("membership_id", targetMembershipID),
		slog.String("client_id", clientID),
		slog.String("actor_id", actorID),
	)
	return nil
}

// ResolveMyRole returns the caller's role and derived permissions for a
// client. Permissions are computed from the role on every call, never
// stored, and never cached across requests.
func (s *MembershipService) ResolveMyRole(
	ctx context.Context,
	clientID string,
	userID string,
) (domain.Role, domain.Permissions, error) {
	if clientID == "" || userID == "" {
		return "", domain.Permissions{}, ErrInvalidRequest
	}

	m, err := s.Store.Members().GetMemberByUser(ctx, clientID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", domain.Permissions{}, ErrNotAMember
		}
		return "", domain.Permissions{}, normalizeErr(err)
	}
	if !m.IsActive() {
		return "", domain.Permissions{}, ErrNotAMember
	}

	return m.Role, m.Role.Permissions(), nil
}

// ListMembers returns all non-removed memberships of a client plus the
// caller's own resolved role. Any active member may list.
func (s *MembershipService) ListMembers(
	ctx context.Context,
	clientID string,
	actorID string,
) ([]domain.Member, domain.Role, error) {
	if clientID == "" || actorID == "" {
		return nil, "", ErrInvalidRequest
	}

	actor, err := activeMember(ctx, s.Store, clientID, actorID)
	if err != nil {
		return nil, "", normalizeErr(err)
	}
	if !actor.Role.Meets(domain.RoleViewer) {
		return nil, "", ErrInsufficientRole
	}

	members, err := s.Store.Members().ListMembersByClient(ctx, clientID)
	if err != nil {
		return nil, "", normalizeErr(err)
	}
	return members, actor.Role, nil
}

// withTxRetry reruns the transaction a bounded number of times when it lost
// a concurrent-write race. Each retry re-reads everything, so stale
// pre-state can never leak into the new attempt.
func (s *MembershipService) withTxRetry(ctx context.Context, fn func(tx store.Tx) error) error {
	var err error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err = s.Store.WithTx(ctx, fn)
		if errors.Is(err, store.ErrVersionConflict) || errors.Is(err, store.ErrAlreadyExists) {
			continue
		}
		return err
	}
	return err
}

// activeMember loads the caller's membership and rejects callers without an
// accepted one. Pending invitees have no capabilities until acceptance.
func activeMember(ctx context.Context, st store.Store, clientID, userID string) (domain.Member, error) {
	m, err := st.Members().GetMemberByUser(ctx, clientID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Member{}, ErrNotAMember
		}
		return domain.Member{}, err
	}
	if !m.IsActive() {
		return domain.Member{}, ErrNotAMember
	}
	return m, nil
}

// memberOfClient loads a membership by id and verifies it belongs to the
// expected client; ids from other clients read as not-found.
func memberOfClient(ctx context.Context, st store.Store, clientID, membershipID string) (domain.Member, error) {
	m, err := st.Members().GetMemberByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Member{}, ErrMembershipNotFound
		}
		return domain.Member{}, err
	}
	if m.ClientID != clientID {
		return domain.Member{}, ErrMembershipNotFound
	}
	return m, nil
}
