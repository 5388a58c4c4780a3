package http

import (
	"errors"
	"net/http"

	"github.com/clearcomply/membership/internal/membership/service"
	"github.com/clearcomply/membership/internal/membership/store"
	"github.com/clearcomply/membership/pkg/httpx"
	"github.com/clearcomply/membership/pkg/membersdk"
	"github.com/clearcomply/membership/pkg/slogx"
)

// writeServiceError maps a service error onto the shared JSON envelope.
// Unrecognized errors are logged and reported as server_error so internals
// never leak to callers.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		membersdk.ErrInvalidRequest.WriteError(w)
	case errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrOwnerInviteNotAllowed):
		membersdk.ErrInvalidRole.WriteError(w)
	case errors.Is(err, service.ErrNotAMember):
		membersdk.ErrNotAMember.WriteError(w)
	case errors.Is(err, service.ErrInsufficientRole):
		membersdk.ErrInsufficientRole.WriteError(w)
	case errors.Is(err, service.ErrDuplicateMembership):
		membersdk.ErrDuplicateMembership.WriteError(w)
	case errors.Is(err, service.ErrInvalidTransition):
		membersdk.ErrInvalidTransition.WriteError(w)
	case errors.Is(err, service.ErrLastOwner):
		membersdk.ErrLastOwner.WriteError(w)
	case errors.Is(err, store.ErrVersionConflict):
		membersdk.ErrVersionConflict.WriteError(w)
	case errors.Is(err, service.ErrMembershipNotFound),
		errors.Is(err, service.ErrClientNotFound):
		membersdk.ErrNotFound.WriteError(w)
	case errors.Is(err, service.ErrStoreUnavailable):
		slogx.FromContext(r.Context()).Error("store unavailable", "err", err)
		membersdk.ErrStoreUnavailable.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "err", err)
		membersdk.ErrServerError.WriteError(w)
	}
}

// requireIdentity pulls the authenticated user out of the request context.
// The authn middleware guarantees it for secured routes; the check is for
// routes wired without it by mistake.
func requireIdentity(w http.ResponseWriter, r *http.Request) (userID, email string, ok bool) {
	ctx := r.Context()
	userID = httpx.UserIDFromContext(ctx)
	email = httpx.UserEmailFromContext(ctx)
	if userID == "" {
		membersdk.ErrUnauthorized.WriteError(w)
		return "", "", false
	}
	return userID, email, true
}
