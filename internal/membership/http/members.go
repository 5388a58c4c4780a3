package http

import (
	"encoding/json"
	"net/http"

	"github.com/clearcomply/membership/internal/membership/domain"
	"github.com/clearcomply/membership/internal/membership/service"
	"github.com/clearcomply/membership/pkg/httpx"
	"github.com/clearcomply/membership/pkg/membersdk"
)

type MembersHandler struct {
	MembershipService *service.MembershipService
}

// HandleInvite creates a pending invitation for an email address. Admin or
// owner only; owners cannot be invited directly.
//
//	POST /v1/clients/{id}/members
func (h *MembersHandler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req membersdk.InviteMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		membersdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.Email == "" {
		membersdk.NewAPIError(http.StatusBadRequest,
			membersdk.ErrorCodeInvalidRequest, "email is required").WriteError(w)
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		membersdk.ErrInvalidRole.WriteError(w)
		return
	}

	member, err := h.MembershipService.Invite(r.Context(), r.PathValue("id"), userID, req.Email, req.DisplayName, role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, membersdk.InviteMemberResponse{
		Success:      true,
		MembershipID: member.ID,
		Message:      "invitation pending acceptance",
		InvitedEmail: member.Email,
		AssignedRole: string(member.Role),
		Member:       toWireMember(member),
	})
}

// HandleList returns a client's memberships plus the caller's own role.
//
//	GET /v1/clients/{id}/members
func (h *MembersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	clientID := r.PathValue("id")
	members, myRole, err := h.MembershipService.ListMembers(r.Context(), clientID, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, membersdk.ListMembersResponse{
		ClientID:        clientID,
		Members:         toWireMembers(members),
		Total:           len(members),
		CurrentUserRole: string(myRole),
	})
}

// HandleAccept claims a pending invitation for the authenticated caller.
//
//	POST /v1/members/{id}/accept
func (h *MembersHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	userID, email, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	member, err := h.MembershipService.Accept(r.Context(), r.PathValue("id"), userID, email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, membersdk.AcceptInviteResponse{
		Member: toWireMember(member),
	})
}

// HandleUpdateRole changes a membership's role, subject to the ownership
// rules and the last-owner guard.
//
//	PUT /v1/clients/{id}/members/{memberID}/role
func (h *MembersHandler) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req membersdk.UpdateMemberRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		membersdk.ErrInvalidRequest.WriteError(w)
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		membersdk.ErrInvalidRole.WriteError(w)
		return
	}

	oldRole, member, err := h.MembershipService.ChangeRole(
		r.Context(), r.PathValue("id"), userID, r.PathValue("memberID"), role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, membersdk.UpdateMemberRoleResponse{
		Success:      true,
		MembershipID: member.ID,
		OldRole:      string(oldRole),
		NewRole:      string(member.Role),
		Message:      "role updated",
		Member:       toWireMember(member),
	})
}

// HandleRemove deletes a membership, subject to the same ownership rules.
//
//	DELETE /v1/clients/{id}/members/{memberID}
func (h *MembersHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	err := h.MembershipService.Remove(r.Context(), r.PathValue("id"), userID, r.PathValue("memberID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, membersdk.RemoveMemberResponse{
		Success: true,
		Message: "member removed",
	})
}
