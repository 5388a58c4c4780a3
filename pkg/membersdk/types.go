package membersdk

// ErrorResponse is the JSON error envelope all endpoints use.
// Client code should use the APIError type from errors.go instead.
type ErrorResponse struct {
	// Error is the machine-readable error code (e.g. "not_a_member")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// Permissions is the capability set derived from a role. It is computed
// fresh on every request and should never be persisted by callers.
type Permissions struct {
	CanView   bool `json:"can_view"`
	CanWrite  bool `json:"can_write"`
	CanManage bool `json:"can_manage"`
	IsOwner   bool `json:"is_owner"`
}

// Member is the wire representation of a membership record.
type Member struct {
	ID          string `json:"id"`
	ClientID    string `json:"client_id"`
	UserID      string `json:"user_id,omitempty"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role"`
	State       string `json:"state"` // "pending" or "active"
	InvitedBy   string `json:"invited_by,omitempty"`
	InvitedAt   int64  `json:"invited_at,omitempty"`  // unix seconds
	AcceptedAt  int64  `json:"accepted_at,omitempty"` // unix seconds, zero while pending
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

// Client is the wire representation of a client account.
type Client struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email,omitempty"`
	Status       string `json:"status"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

// CreateClientRequest is the body of POST /v1/clients.
type CreateClientRequest struct {
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email,omitempty"`
}

// CreateClientResponse is returned from POST /v1/clients. Owner is the
// creator's membership, seeded already accepted.
type CreateClientResponse struct {
	Client Client `json:"client"`
	Owner  Member `json:"owner"`
}

// ListClientsResponse is returned from GET /v1/clients.
type ListClientsResponse struct {
	Clients []Client `json:"clients"`
}

// UpdateClientRequest is the body of PATCH /v1/clients/{id}. Nil fields are
// left unchanged.
type UpdateClientRequest struct {
	Name         *string `json:"name,omitempty"`
	ContactEmail *string `json:"contact_email,omitempty"`
	Status       *string `json:"status,omitempty"`
}

// InviteMemberRequest is the body of POST /v1/clients/{id}/members.
type InviteMemberRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role"`
}

// InviteMemberResponse is returned from POST /v1/clients/{id}/members.
// Re-inviting a still-pending email under the same role returns the
// existing record.
type InviteMemberResponse struct {
	Success      bool   `json:"success"`
	MembershipID string `json:"membership_id"`
	Message      string `json:"message"`
	InvitedEmail string `json:"invited_email"`
	AssignedRole string `json:"assigned_role"`
	Member       Member `json:"member"`
}

// AcceptInviteResponse is returned from POST /v1/members/{id}/accept.
type AcceptInviteResponse struct {
	Member Member `json:"member"`
}

// ListMembersResponse is returned from GET /v1/clients/{id}/members.
// CurrentUserRole is the caller's own resolved role in this client.
type ListMembersResponse struct {
	ClientID        string   `json:"client_id"`
	Members         []Member `json:"members"`
	Total           int      `json:"total"`
	CurrentUserRole string   `json:"current_user_role"`
}

// UpdateMemberRoleRequest is the body of
// PUT /v1/clients/{id}/members/{memberID}/role.
type UpdateMemberRoleRequest struct {
	Role string `json:"role"`
}

// UpdateMemberRoleResponse echoes the updated record plus the transition
// it performed.
type UpdateMemberRoleResponse struct {
	Success      bool   `json:"success"`
	MembershipID string `json:"membership_id"`
	OldRole      string `json:"old_role"`
	NewRole      string `json:"new_role"`
	Message      string `json:"message"`
	Member       Member `json:"member"`
}

// RemoveMemberResponse is returned from
// DELETE /v1/clients/{id}/members/{memberID}.
type RemoveMemberResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HealthChecks reports the state of the service's dependencies.
type HealthChecks struct {
	Database string `json:"database"`
}

// HealthResponse is returned from /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// MyRoleResponse is returned from GET /v1/clients/{id}/role.
type MyRoleResponse struct {
	ClientID    string      `json:"client_id"`
	UserID      string      `json:"user_id"`
	Role        string      `json:"role"`
	Permissions Permissions `json:"permissions"`
}
