package http

import (
	"encoding/json"
	"net/http"

	"github.com/clearcomply/membership/internal/membership/domain"
	"github.com/clearcomply/membership/internal/membership/service"
	"github.com/clearcomply/membership/pkg/httpx"
	"github.com/clearcomply/membership/pkg/membersdk"
)

type ClientsHandler struct {
	ClientService *service.ClientService
}

// HandleCreate provisions a new client account and seeds the caller as its
// first owner.
//
//	POST /v1/clients
func (h *ClientsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, email, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req membersdk.CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		membersdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.Name == "" {
		membersdk.NewAPIError(http.StatusBadRequest,
			membersdk.ErrorCodeInvalidRequest, "name is required").WriteError(w)
		return
	}

	client, owner, err := h.ClientService.CreateClient(r.Context(), req.Name, req.ContactEmail, userID, email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, membersdk.CreateClientResponse{
		Client: toWireClient(client),
		Owner:  toWireMember(owner),
	})
}

// HandleList returns the clients the caller holds an accepted membership in.
//
//	GET /v1/clients
func (h *ClientsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	clients, err := h.ClientService.ListClients(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, membersdk.ListClientsResponse{
		Clients: toWireClients(clients),
	})
}

// HandleGet returns one client's details to an active member.
//
//	GET /v1/clients/{id}
func (h *ClientsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	client, err := h.ClientService.GetClient(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toWireClient(client))
}

// HandleUpdate patches a client's name, contact email or status. Owner only.
//
//	PATCH /v1/clients/{id}
func (h *ClientsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req membersdk.UpdateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		membersdk.ErrInvalidRequest.WriteError(w)
		return
	}

	var status *domain.ClientStatus
	if req.Status != nil {
		parsed, err := domain.ParseClientStatus(*req.Status)
		if err != nil {
			membersdk.NewAPIError(http.StatusBadRequest,
				membersdk.ErrorCodeInvalidRequest, "unknown status").WriteError(w)
			return
		}
		status = &parsed
	}

	client, err := h.ClientService.UpdateClient(r.Context(), r.PathValue("id"), userID, req.Name, req.ContactEmail, status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toWireClient(client))
}
