package service

import (
	"errors"
	"fmt"

	"github.com/clearcomply/membership/internal/membership/store"
)

// Every outcome a caller can act on is a named error matched with errors.Is;
// none of these are faults. ErrStoreUnavailable wraps unexpected storage
// failures so callers can tell a transient outage (safe to retry) apart from
// a domain rejection (retrying will not change the answer).
var (
	// ErrNotAMember: the caller holds no active membership for the client.
	// Deliberately returned instead of a not-found so probing callers learn
	// nothing about whether the client exists.
	ErrNotAMember = errors.New("not a member of this client")

	// ErrInsufficientRole: the caller's rank is below the action's minimum.
	ErrInsufficientRole = errors.New("insufficient role")

	// ErrDuplicateMembership: a non-removed membership already exists for
	// the invite target.
	ErrDuplicateMembership = errors.New("membership already exists")

	// ErrInvalidTransition: the membership is not in the state the
	// operation requires.
	ErrInvalidTransition = errors.New("invalid membership transition")

	// ErrLastOwner: the change would leave the client with zero accepted
	// owners.
	ErrLastOwner = errors.New("cannot remove the last owner")

	// ErrMembershipNotFound: a membership id the caller presented does not
	// resolve. Only used where the caller legitimately holds the id, so no
	// existence leak is at stake.
	ErrMembershipNotFound = errors.New("membership not found")

	// ErrClientNotFound: a client id does not resolve.
	ErrClientNotFound = errors.New("client not found")

	// ErrInvalidRole: role value outside the closed enumeration.
	ErrInvalidRole = errors.New("invalid role")

	// ErrOwnerInviteNotAllowed: owner can only be granted via an explicit
	// role change by an existing owner, never by invitation.
	ErrOwnerInviteNotAllowed = errors.New("owner role cannot be granted by invitation")

	// ErrInvalidRequest: missing or malformed operation input.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrStoreUnavailable: the storage layer failed for reasons unrelated
	// to the request. Always safe for the caller to retry.
	ErrStoreUnavailable = errors.New("membership store unavailable")
)

var knownErrs = []error{
	ErrNotAMember,
	ErrInsufficientRole,
	ErrDuplicateMembership,
	ErrInvalidTransition,
	ErrLastOwner,
	ErrMembershipNotFound,
	ErrClientNotFound,
	ErrInvalidRole,
	ErrOwnerInviteNotAllowed,
	ErrInvalidRequest,
	ErrStoreUnavailable,
	store.ErrVersionConflict,
}

// normalizeErr passes recognised outcomes through unchanged and wraps
// anything else as a store failure.
func normalizeErr(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range knownErrs {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
