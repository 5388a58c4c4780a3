package service

import (
	"context"
	"sync"
	"testing"

	"github.com/clearcomply/membership/internal/membership/domain"
	"github.com/clearcomply/membership/internal/membership/store"
	"github.com/stretchr/testify/require"
)

func TestInvite(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	client := env.seedClient(t, "user-owner")
	env.seedAccepted(t, client.ID, "user-admin", domain.RoleAdmin)
	env.seedAccepted(t, client.ID, "user-member", domain.RoleMember)

	t.Run("admin invites a member", func(t *testing.T) {
		m, err := env.membership.Invite(ctx, client.ID, "user-admin", "new@acme.test", "New Person", domain.RoleMember)
		require.NoError(t, err)
		require.Equal(t, domain.PendingInvite, m.State())
		require.Empty(t, m.UserID)
		require.Equal(t, "user-admin", m.InvitedBy)
		require.NotNil(t, m.InvitedAt)
	})

	t.Run("re-invite of a pending email returns the existing record", func(t *testing.T) {
		first, err := env.membership.Invite(ctx, client.ID, "user-admin", "again@acme.test", "", domain.RoleViewer)
		require.NoError(t, err)

		second, err := env.membership.Invite(ctx, client.ID, "user-admin", "AGAIN@acme.test", "", domain.RoleViewer)
		require.NoError(t, err)
		require.Equal(t, first.ID, second.ID)
	})

	t.Run("re-invite under a different role is a duplicate", func(t *testing.T) {
		first, err := env.membership.Invite(ctx, client.ID, "user-admin", "torn@acme.test", "", domain.RoleViewer)
		require.NoError(t, err)

		_, err = env.membership.Invite(ctx, client.ID, "user-admin", "torn@acme.test", "", domain.RoleAdmin)
		require.ErrorIs(t, err, ErrDuplicateMembership)

		// The pending row keeps the role it was first invited under.
		kept, err := env.store.Members().GetMemberByID(ctx, first.ID)
		require.NoError(t, err)
		require.Equal(t, domain.RoleViewer, kept.Role)
	})

	t.Run("inviting an accepted member is a duplicate", func(t *testing.T) {
		_, err := env.membership.Invite(ctx, client.ID, "user-admin", "user-member@acme.test", "", domain.RoleViewer)
		require.ErrorIs(t, err, ErrDuplicateMembership)
	})

	t.Run("owner role cannot be granted by invitation", func(t *testing.T) {
		_, err := env.membership.Invite(ctx, client.ID, "user-owner", "boss@acme.test", "", domain.RoleOwner)
		require.ErrorIs(t, err, ErrOwnerInviteNotAllowed)
	})

	t.Run("members cannot invite", func(t *testing.T) {
		_, err := env.membership.Invite(ctx, client.ID, "user-member", "x@acme.test", "", domain.RoleViewer)
		require.ErrorIs(t, err, ErrInsufficientRole)
	})

	t.Run("non-members cannot invite", func(t *testing.T) {
		_, err := env.membership.Invite(ctx, client.ID, "stranger", "y@acme.test", "", domain.RoleViewer)
		require.ErrorIs(t, err, ErrNotAMember)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		_, err := env.membership.Invite(ctx, client.ID, "user-admin", "z@acme.test", "", domain.Role("superuser"))
		require.ErrorIs(t, err, ErrInvalidRole)
	})
}

func TestAccept(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	client := env.seedClient(t, "user-owner")

	invite := func(t *testing.T, email string) domain.Member {
		t.Helper()
		m, err := env.membership.Invite(ctx, client.ID, "user-owner", email, "", domain.RoleMember)
		require.NoError(t, err)
		return m
	}

	t.Run("recipient accepts and becomes active", func(t *testing.T) {
		m := invite(t, "alice@acme.test")

		accepted, err := env.membership.Accept(ctx, m.ID, "user-alice", "Alice@Acme.Test")
		require.NoError(t, err)
		require.Equal(t, domain.Active, accepted.State())
		require.Equal(t, "user-alice", accepted.UserID)
		require.NotNil(t, accepted.AcceptedAt)

		role, perms, err := env.membership.ResolveMyRole(ctx, client.ID, "user-alice")
		require.NoError(t, err)
		require.Equal(t, domain.RoleMember, role)
		require.True(t, perms.CanWrite)
		require.False(t, perms.CanManage)
	})

	t.Run("mismatched recipient reads as not found", func(t *testing.T) {
		m := invite(t, "bob@acme.test")

		_, err := env.membership.Accept(ctx, m.ID, "user-mallory", "mallory@evil.test")
		require.ErrorIs(t, err, ErrMembershipNotFound)
	})

	t.Run("accepting twice is an invalid transition", func(t *testing.T) {
		m := invite(t, "carol@acme.test")

		_, err := env.membership.Accept(ctx, m.ID, "user-carol", "carol@acme.test")
		require.NoError(t, err)

		_, err = env.membership.Accept(ctx, m.ID, "user-carol", "carol@acme.test")
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("unknown invitation reads as not found", func(t *testing.T) {
		_, err := env.membership.Accept(ctx, "01J00000000000000000000000", "user-alice", "alice@acme.test")
		require.ErrorIs(t, err, ErrMembershipNotFound)
	})
}

func TestChangeRole(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	client := env.seedClient(t, "user-owner")
	admin := env.seedAccepted(t, client.ID, "user-admin", domain.RoleAdmin)
	member := env.seedAccepted(t, client.ID, "user-member", domain.RoleMember)

	t.Run("admin promotes a member", func(t *testing.T) {
		oldRole, updated, err := env.membership.ChangeRole(ctx, client.ID, "user-admin", member.ID, domain.RoleAdmin)
		require.NoError(t, err)
		require.Equal(t, domain.RoleMember, oldRole)
		require.Equal(t, domain.RoleAdmin, updated.Role)
		require.Greater(t, updated.Version, member.Version)

		// put it back for the following cases
		_, _, err = env.membership.ChangeRole(ctx, client.ID, "user-admin", member.ID, domain.RoleMember)
		require.NoError(t, err)
	})

	t.Run("same role is a no-op success", func(t *testing.T) {
		before, err := env.store.Members().GetMemberByID(ctx, member.ID)
		require.NoError(t, err)

		oldRole, updated, err := env.membership.ChangeRole(ctx, client.ID, "user-admin", member.ID, domain.RoleMember)
		require.NoError(t, err)
		require.Equal(t, domain.RoleMember, oldRole)
		require.Equal(t, before.Version, updated.Version)
	})

	t.Run("admin cannot grant ownership", func(t *testing.T) {
		_, _, err := env.membership.ChangeRole(ctx, client.ID, "user-admin", member.ID, domain.RoleOwner)
		require.ErrorIs(t, err, ErrInsufficientRole)
	})

	t.Run("admin cannot demote an owner", func(t *testing.T) {
		ownerRow, err := env.store.Members().GetMemberByUser(ctx, client.ID, "user-owner")
		require.NoError(t, err)

		_, _, err = env.membership.ChangeRole(ctx, client.ID, "user-admin", ownerRow.ID, domain.RoleMember)
		require.ErrorIs(t, err, ErrInsufficientRole)
	})

	t.Run("sole owner cannot demote themself", func(t *testing.T) {
		ownerRow, err := env.store.Members().GetMemberByUser(ctx, client.ID, "user-owner")
		require.NoError(t, err)

		_, _, err = env.membership.ChangeRole(ctx, client.ID, "user-owner", ownerRow.ID, domain.RoleAdmin)
		require.ErrorIs(t, err, ErrLastOwner)
	})

	t.Run("owner grants then revokes ownership", func(t *testing.T) {
		_, promoted, err := env.membership.ChangeRole(ctx, client.ID, "user-owner", admin.ID, domain.RoleOwner)
		require.NoError(t, err)
		require.Equal(t, domain.RoleOwner, promoted.Role)

		// With two owners, demoting one is fine.
		ownerRow, err := env.store.Members().GetMemberByUser(ctx, client.ID, "user-owner")
		require.NoError(t, err)
		_, _, err = env.membership.ChangeRole(ctx, client.ID, "user-admin", ownerRow.ID, domain.RoleAdmin)
		require.NoError(t, err)

		owners, err := env.store.Members().CountActiveOwners(ctx, client.ID)
		require.NoError(t, err)
		require.Equal(t, 1, owners)
	})

	t.Run("membership of another client reads as not found", func(t *testing.T) {
		other := env.seedClient(t, "user-other-owner")
		otherMember := env.seedAccepted(t, other.ID, "user-drifter", domain.RoleMember)

		_, _, err := env.membership.ChangeRole(ctx, client.ID, "user-admin", otherMember.ID, domain.RoleViewer)
		require.ErrorIs(t, err, ErrMembershipNotFound)
	})
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	client := env.seedClient(t, "user-owner")
	env.seedAccepted(t, client.ID, "user-admin", domain.RoleAdmin)

	t.Run("admin removes a member", func(t *testing.T) {
		m := env.seedAccepted(t, client.ID, "user-victim", domain.RoleMember)

		require.NoError(t, env.membership.Remove(ctx, client.ID, "user-admin", m.ID))

		_, _, err := env.membership.ResolveMyRole(ctx, client.ID, "user-victim")
		require.ErrorIs(t, err, ErrNotAMember)
	})

	t.Run("admin removes a pending invite", func(t *testing.T) {
		m, err := env.membership.Invite(ctx, client.ID, "user-admin", "pending@acme.test", "", domain.RoleViewer)
		require.NoError(t, err)

		require.NoError(t, env.membership.Remove(ctx, client.ID, "user-admin", m.ID))
	})

	t.Run("admin cannot remove an owner", func(t *testing.T) {
		ownerRow, err := env.store.Members().GetMemberByUser(ctx, client.ID, "user-owner")
		require.NoError(t, err)

		err = env.membership.Remove(ctx, client.ID, "user-admin", ownerRow.ID)
		require.ErrorIs(t, err, ErrInsufficientRole)
	})

	t.Run("last owner cannot be removed even by themself", func(t *testing.T) {
		ownerRow, err := env.store.Members().GetMemberByUser(ctx, client.ID, "user-owner")
		require.NoError(t, err)

		err = env.membership.Remove(ctx, client.ID, "user-owner", ownerRow.ID)
		require.ErrorIs(t, err, ErrLastOwner)
	})

	t.Run("removal is permanent, not a state", func(t *testing.T) {
		m := env.seedAccepted(t, client.ID, "user-gone", domain.RoleViewer)
		require.NoError(t, env.membership.Remove(ctx, client.ID, "user-admin", m.ID))

		_, err := env.store.Members().GetMemberByID(ctx, m.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestResolveMyRole(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	client := env.seedClient(t, "user-owner")

	t.Run("owner resolves with full permissions", func(t *testing.T) {
		role, perms, err := env.membership.ResolveMyRole(ctx, client.ID, "user-owner")
		require.NoError(t, err)
		require.Equal(t, domain.RoleOwner, role)
		require.True(t, perms.IsOwner)
		require.True(t, perms.CanManage)
	})

	t.Run("pending invitee is not a member yet", func(t *testing.T) {
		m, err := env.membership.Invite(ctx, client.ID, "user-owner", "soon@acme.test", "", domain.RoleMember)
		require.NoError(t, err)
		require.Equal(t, domain.PendingInvite, m.State())

		_, _, err = env.membership.ResolveMyRole(ctx, client.ID, "user-soon")
		require.ErrorIs(t, err, ErrNotAMember)
	})

	t.Run("unknown client is indistinguishable from non-membership", func(t *testing.T) {
		_, _, err := env.membership.ResolveMyRole(ctx, "01J00000000000000000000000", "user-owner")
		require.ErrorIs(t, err, ErrNotAMember)
	})
}

func TestListMembers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	client := env.seedClient(t, "user-owner")
	env.seedAccepted(t, client.ID, "user-viewer", domain.RoleViewer)

	_, err := env.membership.Invite(ctx, client.ID, "user-owner", "pending@acme.test", "", domain.RoleMember)
	require.NoError(t, err)

	t.Run("any active member may list, pending rows included", func(t *testing.T) {
		members, myRole, err := env.membership.ListMembers(ctx, client.ID, "user-viewer")
		require.NoError(t, err)
		require.Equal(t, domain.RoleViewer, myRole)
		require.Len(t, members, 3)

		states := map[domain.MemberState]int{}
		for _, m := range members {
			states[m.State()]++
		}
		require.Equal(t, 2, states[domain.Active])
		require.Equal(t, 1, states[domain.PendingInvite])
	})

	t.Run("non-members cannot list", func(t *testing.T) {
		_, _, err := env.membership.ListMembers(ctx, client.ID, "stranger")
		require.ErrorIs(t, err, ErrNotAMember)
	})
}

// Two racing demotions of the two owners must never leave the client
// ownerless: at most one can win, the other hits the last-owner guard or a
// version conflict and retries into it.
func TestConcurrentOwnerDemotionKeepsAnOwner(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	client := env.seedClient(t, "owner-a")
	ownerB := env.seedAccepted(t, client.ID, "owner-b", domain.RoleOwner)

	ownerA, err := env.store.Members().GetMemberByUser(ctx, client.ID, "owner-a")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _, errs[0] = env.membership.ChangeRole(ctx, client.ID, "owner-a", ownerB.ID, domain.RoleAdmin)
	}()
	go func() {
		defer wg.Done()
		_, _, errs[1] = env.membership.ChangeRole(ctx, client.ID, "owner-b", ownerA.ID, domain.RoleAdmin)
	}()
	wg.Wait()

	owners, err := env.store.Members().CountActiveOwners(ctx, client.ID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, owners, 1, "client must never be left without an owner")

	if errs[0] == nil && errs[1] == nil {
		t.Fatalf("both demotions succeeded, owner count %d", owners)
	}
}
