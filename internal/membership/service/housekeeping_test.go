package service

import (
	"context"
	"testing"
	"time"

	"github.com/clearcomply/membership/internal/membership/domain"
	"github.com/clearcomply/membership/internal/membership/store"
	"github.com/clearcomply/membership/pkg/idx"
	"github.com/clearcomply/membership/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingPurgesOnlyStalePendingInvites(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	client := env.seedClient(t, "user-owner")

	// A pending invite from 60 days ago, stale against a 30 day TTL.
	staleAt := time.Now().UTC().Add(-60 * 24 * time.Hour)
	stale := domain.Member{
		ID:        idx.New().String(),
		ClientID:  client.ID,
		Email:     "stale@acme.test",
		Role:      domain.RoleMember,
		InvitedAt: &staleAt,
	}
	require.NoError(t, env.store.Members().CreateMember(ctx, stale))

	// A fresh pending invite and an old accepted member, both kept.
	fresh, err := env.membership.Invite(ctx, client.ID, "user-owner", "fresh@acme.test", "", domain.RoleMember)
	require.NoError(t, err)

	veteranAcceptedAt := staleAt
	veteran := domain.Member{
		ID:         idx.New().String(),
		ClientID:   client.ID,
		UserID:     "user-veteran",
		Email:      "veteran@acme.test",
		Role:       domain.RoleMember,
		InvitedAt:  &staleAt,
		AcceptedAt: &veteranAcceptedAt,
	}
	require.NoError(t, env.store.Members().CreateMember(ctx, veteran))

	hk := NewHousekeepingService(env.store, slogx.New(slogx.Config{Format: "text"}), time.Hour, 30*24*time.Hour)
	hk.purge()

	_, err = env.store.Members().GetMemberByID(ctx, stale.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = env.store.Members().GetMemberByID(ctx, fresh.ID)
	require.NoError(t, err)

	role, _, err := env.membership.ResolveMyRole(ctx, client.ID, "user-veteran")
	require.NoError(t, err)
	require.Equal(t, domain.RoleMember, role)
}

func TestHousekeepingLifecycle(t *testing.T) {
	env := newTestEnv(t)
	logger := slogx.New(slogx.Config{Format: "text"})

	t.Run("start and stop with ttl enabled", func(t *testing.T) {
		hk := NewHousekeepingService(env.store, logger, time.Hour, time.Hour)
		hk.Start()
		hk.Stop()
	})

	t.Run("zero ttl disables the worker", func(t *testing.T) {
		hk := NewHousekeepingService(env.store, logger, time.Hour, 0)
		hk.Start()
		hk.Stop()
	})
}
