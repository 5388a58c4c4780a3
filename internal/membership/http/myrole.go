package http

import (
	"net/http"

	"github.com/clearcomply/membership/internal/membership/service"
	"github.com/clearcomply/membership/pkg/httpx"
	"github.com/clearcomply/membership/pkg/membersdk"
)

type MyRoleHandler struct {
	MembershipService *service.MembershipService
}

// ServeHTTP resolves the caller's role and derived permissions in a client.
// Non-members, pending invitees and removed members all get a 404.
//
//	GET /v1/clients/{id}/role
func (h *MyRoleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	clientID := r.PathValue("id")
	role, perms, err := h.MembershipService.ResolveMyRole(r.Context(), clientID, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, membersdk.MyRoleResponse{
		ClientID:    clientID,
		UserID:      userID,
		Role:        string(role),
		Permissions: toWirePermissions(perms),
	})
}
