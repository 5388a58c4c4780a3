package domain

import "time"

// MemberState is the lifecycle state of a membership, derived from its
// timestamps rather than stored. Removed rows are deleted outright, so a
// loaded Member is always pending or active.
type MemberState string

const (
	// PendingInvite: invited_at set, accepted_at absent. A pending invitee
	// has no capabilities until acceptance.
	PendingInvite MemberState = "pending"
	// Active: accepted_at set.
	Active MemberState = "active"
)

// Member is one user's relationship to one client. At most one non-removed
// row exists per (client, user) pair; that uniqueness is enforced by the
// store, not just checked here.
type Member struct {
	ID       string
	ClientID string

	// UserID is empty while an invitation addressed to an email has not yet
	// been claimed by an authenticated account.
	UserID string

	// Email and DisplayName are denormalised so invitations can address
	// users who have not registered yet.
	Email       string
	DisplayName string

	Role Role

	// InvitedBy/InvitedAt are set iff the member was created via the
	// invitation path; the creator-seeded owner has neither.
	InvitedBy  string
	InvitedAt  *time.Time
	AcceptedAt *time.Time

	// Version increments on every update and backs the store's
	// compare-and-set update.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// State derives the lifecycle state from the acceptance timestamp.
func (m Member) State() MemberState {
	if m.AcceptedAt != nil {
		return Active
	}
	return PendingInvite
}

// IsActive reports whether the membership confers any capabilities.
func (m Member) IsActive() bool {
	return m.State() == Active
}

// IsActiveOwner reports whether this row counts toward the at-least-one-owner
// invariant.
func (m Member) IsActiveOwner() bool {
	return m.Role == RoleOwner && m.IsActive()
}
