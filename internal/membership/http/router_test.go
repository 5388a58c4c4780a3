package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/clearcomply/membership/internal/membership/service"
	"github.com/clearcomply/membership/internal/membership/store/drivers/sqlite"
	"github.com/clearcomply/membership/pkg/httpx"
	"github.com/clearcomply/membership/pkg/membersdk"
	"github.com/clearcomply/membership/pkg/slogx"
)

const testSecret = "router-test-secret"

func newTestRouter(t *testing.T) *Router {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "membership.db") +
		"?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	authorize := &service.AuthorizeService{Store: st}
	router := NewRouter(
		&httpx.JWTVerifier{Secret: []byte(testSecret)},
		"test",
		st,
		slogx.New(slogx.Config{Format: "text"}),
	)
	router.MembershipService = &service.MembershipService{Store: st}
	router.ClientService = &service.ClientService{Store: st, Authorize: authorize}
	router.ApplyRoutes()
	return router
}

func bearerFor(t *testing.T, userID, email string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func doJSON(t *testing.T, router *Router, method, path, authz string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var resp membersdk.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestMembershipFlowOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	owner := bearerFor(t, "user-owner", "owner@acme.test")
	alice := bearerFor(t, "user-alice", "alice@acme.test")

	// Owner provisions a client.
	var created membersdk.CreateClientResponse
	rec := doJSON(t, router, http.MethodPost, "/v1/clients", owner,
		membersdk.CreateClientRequest{Name: "Acme Corp"}, &created)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "owner", created.Owner.Role)
	clientID := created.Client.ID

	// Owner invites alice as admin.
	var invited membersdk.InviteMemberResponse
	rec = doJSON(t, router, http.MethodPost, "/v1/clients/"+clientID+"/members", owner,
		membersdk.InviteMemberRequest{Email: "alice@acme.test", Role: "admin"}, &invited)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, invited.Success)
	require.Equal(t, invited.Member.ID, invited.MembershipID)
	require.Equal(t, "alice@acme.test", invited.InvitedEmail)
	require.Equal(t, "admin", invited.AssignedRole)
	require.Equal(t, "pending", invited.Member.State)

	// Alice has no role until she accepts.
	rec = doJSON(t, router, http.MethodGet, "/v1/clients/"+clientID+"/role", alice, nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, membersdk.ErrorCodeNotAMember, errorCode(t, rec))

	var accepted membersdk.AcceptInviteResponse
	rec = doJSON(t, router, http.MethodPost, "/v1/members/"+invited.Member.ID+"/accept", alice, nil, &accepted)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "active", accepted.Member.State)

	var myRole membersdk.MyRoleResponse
	rec = doJSON(t, router, http.MethodGet, "/v1/clients/"+clientID+"/role", alice, nil, &myRole)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, clientID, myRole.ClientID)
	require.Equal(t, "user-alice", myRole.UserID)
	require.Equal(t, "admin", myRole.Role)
	require.True(t, myRole.Permissions.CanManage)
	require.False(t, myRole.Permissions.IsOwner)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	// Listing shows both members and the caller's role.
	var list membersdk.ListMembersResponse
	rec = doJSON(t, router, http.MethodGet, "/v1/clients/"+clientID+"/members", alice, nil, &list)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, clientID, list.ClientID)
	require.Len(t, list.Members, 2)
	require.Equal(t, 2, list.Total)
	require.Equal(t, "admin", list.CurrentUserRole)

	// Alice demotes herself to viewer, then loses management access.
	var roleChange membersdk.UpdateMemberRoleResponse
	rec = doJSON(t, router, http.MethodPut,
		"/v1/clients/"+clientID+"/members/"+invited.Member.ID+"/role", owner,
		membersdk.UpdateMemberRoleRequest{Role: "viewer"}, &roleChange)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, roleChange.Success)
	require.Equal(t, "admin", roleChange.OldRole)
	require.Equal(t, "viewer", roleChange.NewRole)

	rec = doJSON(t, router, http.MethodPost, "/v1/clients/"+clientID+"/members", alice,
		membersdk.InviteMemberRequest{Email: "bob@acme.test", Role: "member"}, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, membersdk.ErrorCodeInsufficientRole, errorCode(t, rec))

	// Owner removes alice.
	var removed membersdk.RemoveMemberResponse
	rec = doJSON(t, router, http.MethodDelete,
		"/v1/clients/"+clientID+"/members/"+invited.Member.ID, owner, nil, &removed)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, removed.Success)

	rec = doJSON(t, router, http.MethodGet, "/v1/clients/"+clientID+"/role", alice, nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTPErrorMapping(t *testing.T) {
	router := newTestRouter(t)

	owner := bearerFor(t, "user-owner", "owner@acme.test")
	mallory := bearerFor(t, "user-mallory", "mallory@evil.test")

	var created membersdk.CreateClientResponse
	rec := doJSON(t, router, http.MethodPost, "/v1/clients", owner,
		membersdk.CreateClientRequest{Name: "Acme Corp"}, &created)
	require.Equal(t, http.StatusCreated, rec.Code)
	clientID := created.Client.ID
	ownerMemberID := created.Owner.ID

	t.Run("no token is unauthorized", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/v1/clients", "", nil, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("owner invite is invalid_role", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/v1/clients/"+clientID+"/members", owner,
			membersdk.InviteMemberRequest{Email: "boss@acme.test", Role: "owner"}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, membersdk.ErrorCodeInvalidRole, errorCode(t, rec))
	})

	t.Run("stranger accepting an invite gets not_found", func(t *testing.T) {
		var invited membersdk.InviteMemberResponse
		rec := doJSON(t, router, http.MethodPost, "/v1/clients/"+clientID+"/members", owner,
			membersdk.InviteMemberRequest{Email: "carol@acme.test", Role: "member"}, &invited)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = doJSON(t, router, http.MethodPost, "/v1/members/"+invited.Member.ID+"/accept", mallory, nil, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, membersdk.ErrorCodeNotFound, errorCode(t, rec))
	})

	t.Run("demoting the last owner is last_owner", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPut,
			"/v1/clients/"+clientID+"/members/"+ownerMemberID+"/role", owner,
			membersdk.UpdateMemberRoleRequest{Role: "admin"}, nil)
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, membersdk.ErrorCodeLastOwner, errorCode(t, rec))
	})

	t.Run("non-member listing members gets not_a_member", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/v1/clients/"+clientID+"/members", mallory, nil, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, membersdk.ErrorCodeNotAMember, errorCode(t, rec))
	})

	t.Run("malformed body is invalid_request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/clients", bytes.NewBufferString("{not json"))
		req.Header.Set("Authorization", owner)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, membersdk.ErrorCodeInvalidRequest, errorCode(t, rec))
	})
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	t.Run("livez", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/livez", "", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var health membersdk.HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
		require.Equal(t, "ok", health.Status)
	})

	t.Run("readyz with healthy store", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/readyz", "", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var health membersdk.HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
		require.Equal(t, "ok", health.Checks.Database)
	})

	t.Run("metrics", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/metrics", "", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}
