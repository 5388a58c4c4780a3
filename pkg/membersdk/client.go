package membersdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SDKClient talks to the membership service. All calls are made with the
// bearer token supplied at construction; the service derives the acting
// user from that token.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	token string
}

// NewSDKClient creates a membership service client.
func NewSDKClient(baseURL, token string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		token: token,
	}
}

// CreateClient provisions a new client account. The caller becomes its
// first owner.
func (c *SDKClient) CreateClient(ctx context.Context, req CreateClientRequest) (*CreateClientResponse, error) {
	var out CreateClientResponse
	if err := c.do(ctx, http.MethodPost, "/v1/clients", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListClients returns the clients the caller belongs to.
func (c *SDKClient) ListClients(ctx context.Context) (*ListClientsResponse, error) {
	var out ListClientsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/clients", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetClient fetches one client's details.
func (c *SDKClient) GetClient(ctx context.Context, clientID string) (*Client, error) {
	var out Client
	if err := c.do(ctx, http.MethodGet, "/v1/clients/"+url.PathEscape(clientID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateClient patches a client's mutable fields. Owner only.
func (c *SDKClient) UpdateClient(ctx context.Context, clientID string, req UpdateClientRequest) (*Client, error) {
	var out Client
	if err := c.do(ctx, http.MethodPatch, "/v1/clients/"+url.PathEscape(clientID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyRole resolves the caller's role and permissions in a client.
func (c *SDKClient) MyRole(ctx context.Context, clientID string) (*MyRoleResponse, error) {
	var out MyRoleResponse
	if err := c.do(ctx, http.MethodGet, "/v1/clients/"+url.PathEscape(clientID)+"/role", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMembers lists a client's memberships.
func (c *SDKClient) ListMembers(ctx context.Context, clientID string) (*ListMembersResponse, error) {
	var out ListMembersResponse
	if err := c.do(ctx, http.MethodGet, "/v1/clients/"+url.PathEscape(clientID)+"/members", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InviteMember creates a pending invitation. Admin or owner only.
func (c *SDKClient) InviteMember(ctx context.Context, clientID string, req InviteMemberRequest) (*InviteMemberResponse, error) {
	var out InviteMemberResponse
	if err := c.do(ctx, http.MethodPost, "/v1/clients/"+url.PathEscape(clientID)+"/members", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AcceptInvite claims a pending invitation addressed to the caller.
func (c *SDKClient) AcceptInvite(ctx context.Context, membershipID string) (*AcceptInviteResponse, error) {
	var out AcceptInviteResponse
	if err := c.do(ctx, http.MethodPost, "/v1/members/"+url.PathEscape(membershipID)+"/accept", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMemberRole changes a membership's role.
func (c *SDKClient) UpdateMemberRole(ctx context.Context, clientID, membershipID, role string) (*UpdateMemberRoleResponse, error) {
	var out UpdateMemberRoleResponse
	path := "/v1/clients/" + url.PathEscape(clientID) + "/members/" + url.PathEscape(membershipID) + "/role"
	if err := c.do(ctx, http.MethodPut, path, UpdateMemberRoleRequest{Role: role}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveMember deletes a membership.
func (c *SDKClient) RemoveMember(ctx context.Context, clientID, membershipID string) (*RemoveMemberResponse, error) {
	var out RemoveMemberResponse
	path := "/v1/clients/" + url.PathEscape(clientID) + "/members/" + url.PathEscape(membershipID)
	if err := c.do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do performs one JSON request against the service. A nil in skips the
// request body; a nil out discards the response body.
func (c *SDKClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := parseErrorResponse(resp, respBody); err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
