package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/clearcomply/membership/internal/membership/domain"
	"github.com/clearcomply/membership/internal/membership/store"
	"github.com/clearcomply/membership/internal/membership/store/drivers/sqlite"
	"github.com/clearcomply/membership/pkg/idx"
	"github.com/stretchr/testify/require"
)

// newTestStore opens a sqlite store on a temp file with migrations applied.
// A file-backed database is used so every pooled connection sees the same
// data, which :memory: does not guarantee.
func newTestStore(t *testing.T) store.Store {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "membership.db") +
		"?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

type testEnv struct {
	store      store.Store
	membership *MembershipService
	authorize  *AuthorizeService
	clients    *ClientService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := newTestStore(t)
	authorize := &AuthorizeService{Store: st}
	return &testEnv{
		store:      st,
		membership: &MembershipService{Store: st},
		authorize:  authorize,
		clients:    &ClientService{Store: st, Authorize: authorize},
	}
}

// seedClient provisions a client whose first owner is ownerID.
func (env *testEnv) seedClient(t *testing.T, ownerID string) domain.Client {
	t.Helper()

	client, owner, err := env.clients.CreateClient(
		context.Background(), "Acme Corp", "ops@acme.test", ownerID, ownerID+"@acme.test")
	require.NoError(t, err)
	require.Equal(t, domain.RoleOwner, owner.Role)
	require.Equal(t, domain.Active, owner.State())
	return client
}

// seedAccepted plants an already-accepted membership directly in the store,
// as if the user was invited by the client's owner and accepted.
func (env *testEnv) seedAccepted(t *testing.T, clientID, userID string, role domain.Role) domain.Member {
	t.Helper()

	now := time.Now().UTC()
	invited := now.Add(-time.Hour)
	m := domain.Member{
		ID:         idx.New().String(),
		ClientID:   clientID,
		UserID:     userID,
		Email:      userID + "@acme.test",
		Role:       role,
		InvitedBy:  "inviter",
		InvitedAt:  &invited,
		AcceptedAt: &now,
	}
	require.NoError(t, env.store.Members().CreateMember(context.Background(), m))

	planted, err := env.store.Members().GetMemberByID(context.Background(), m.ID)
	require.NoError(t, err)
	return planted
}
