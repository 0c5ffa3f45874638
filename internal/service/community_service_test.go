package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/membership"
)

func TestCreateCommunityWithGeneralChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner")

	c, err := f.communities.Create(ctx, owner.UID, CreateCommunityInput{Name: "  Gophers ", Tags: []string{"go", " ", "go"}})
	require.NoError(t, err)
	assert.Equal(t, "Gophers", c.Name)
	assert.Equal(t, 1, c.MemberCount)
	assert.Equal(t, []string{"go"}, c.Tags)

	channels, err := f.channels.List(ctx, owner.UID, c.ID)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, DefaultChannelID, channels[0].ID)
}

func TestEnsureOpenCommunityIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	again, err := f.communities.EnsureOpenCommunity(ctx, "someone-else", "Other")
	require.NoError(t, err)
	assert.Equal(t, openCommunity, again.ID)
	assert.Equal(t, "system", again.OwnerID)
	assert.Equal(t, "Lounge", again.Name)
}

func TestOwnerCannotKickThemselves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, alice := f.user(t, "owner"), f.user(t, "alice")
	c := f.community(t, owner, alice)

	before := f.store.Writes()
	_, err := f.communities.Kick(ctx, owner.UID, c.ID, owner.UID)
	assert.ErrorIs(t, err, membership.ErrOwnerImmutable)
	assert.Equal(t, before, f.store.Writes(), "the transaction must not commit")

	got, err := f.communities.Get(ctx, owner.UID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, owner.UID, got.OwnerID)
	assert.Equal(t, 2, got.MemberCount)
}

func TestPrivateCommunityHiddenFromOutsiders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, stranger := f.user(t, "owner"), f.user(t, "stranger")
	c := f.community(t, owner)

	_, err := f.communities.Get(ctx, stranger.UID, c.ID)
	assert.ErrorIs(t, err, ErrCommunityNotFound)

	visible, err := f.communities.ListVisible(ctx, stranger.UID)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, openCommunity, visible[0].ID)

	_, err = f.communities.Join(ctx, stranger.UID, c.ID)
	assert.ErrorIs(t, err, membership.ErrPrivateCommunity)
}

func TestRoleChangesNotifyTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, alice, bob := f.user(t, "owner"), f.user(t, "alice"), f.user(t, "bob")
	c := f.community(t, owner, alice, bob)

	c, err := f.communities.Promote(ctx, owner, c.ID, alice.UID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleModerator, membership.Rules{}.EffectiveRole(c, alice.UID))

	items, err := f.notifications.List(ctx, alice.UID, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.ActivityRolePromoted, items[0].Type)
	assert.Equal(t, domain.RoleModerator, items[0].Role)
	assert.Equal(t, "Gophers", items[0].CommunityName)
	assert.Equal(t, "community:"+c.ID, items[0].ThreadKey)

	_, err = f.communities.Demote(ctx, owner, c.ID, alice.UID)
	require.NoError(t, err)
	items, err = f.notifications.List(ctx, alice.UID, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.ActivityRoleDemoted, items[0].Type)

	// kicks are silent
	_, err = f.communities.Kick(ctx, owner.UID, c.ID, bob.UID)
	require.NoError(t, err)
	items, err = f.notifications.List(ctx, bob.UID, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRepeatedKickWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, alice := f.user(t, "owner"), f.user(t, "alice")
	c := f.community(t, owner, alice)

	_, err := f.communities.Kick(ctx, owner.UID, c.ID, alice.UID)
	require.NoError(t, err)

	got, err := f.repos.Communities.GetByID(ctx, c.ID)
	require.NoError(t, err)
	again, err := f.communities.Kick(ctx, owner.UID, c.ID, alice.UID)
	require.NoError(t, err)
	assert.Equal(t, got.Members, again.Members)
	assert.Equal(t, 1, again.MemberCount)
}

func TestBanBlocksRejoin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, alice := f.user(t, "owner"), f.user(t, "alice")

	c, err := f.communities.Create(ctx, owner.UID, CreateCommunityInput{Name: "Public"})
	require.NoError(t, err)
	_, err = f.communities.Join(ctx, alice.UID, c.ID)
	require.NoError(t, err)

	c, err = f.communities.Ban(ctx, owner.UID, c.ID, alice.UID)
	require.NoError(t, err)
	assert.Contains(t, c.BannedUsers, alice.UID)
	assert.NotContains(t, c.Members, alice.UID)

	_, err = f.communities.Join(ctx, alice.UID, c.ID)
	assert.ErrorIs(t, err, membership.ErrBanned)

	_, err = f.communities.Unban(ctx, owner.UID, c.ID, alice.UID)
	require.NoError(t, err)
	c, err = f.communities.Join(ctx, alice.UID, c.ID)
	require.NoError(t, err)
	assert.Contains(t, c.Members, alice.UID)
}

func TestAddMemberRequiresExistingUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner")
	c := f.community(t, owner)

	_, err := f.communities.AddMember(ctx, owner.UID, c.ID, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestListMembersFillsNames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, alice := f.user(t, "owner"), f.user(t, "alice")
	c := f.community(t, owner, alice)

	members, err := f.communities.ListMembers(ctx, alice.UID, c.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, domain.CommunityMember{UserID: owner.UID, Role: domain.RoleOwner, DisplayName: "owner"}, members[0])
	assert.Equal(t, "alice", members[1].DisplayName)
}

func TestUpdateRequiresManageServer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, alice := f.user(t, "owner"), f.user(t, "alice")
	c := f.community(t, owner, alice)
	name := "Renamed"

	_, err := f.communities.Update(ctx, alice.UID, c.ID, UpdateCommunityInput{Name: &name})
	assert.ErrorIs(t, err, membership.ErrInsufficientRole)

	updated, err := f.communities.Update(ctx, owner.UID, c.ID, UpdateCommunityInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
}

func TestDeleteCommunity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, alice := f.user(t, "owner"), f.user(t, "alice")
	c := f.community(t, owner, alice)

	assert.ErrorIs(t, f.communities.Delete(ctx, "system", openCommunity), ErrOpenCommunityImmutable)
	assert.ErrorIs(t, f.communities.Delete(ctx, alice.UID, c.ID), membership.ErrInsufficientRole)
	require.NoError(t, f.communities.Delete(ctx, owner.UID, c.ID))

	_, err := f.communities.Get(ctx, owner.UID, c.ID)
	assert.ErrorIs(t, err, ErrCommunityNotFound)
	ch, err := f.repos.Channels.GetByID(ctx, c.ID, DefaultChannelID)
	require.NoError(t, err)
	assert.Nil(t, ch)
}
