package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/domain"
)

func TestSuppressed(t *testing.T) {
	dm := &domain.ActivityItem{Type: domain.ActivityNewMessage, ActorID: "a", ConversationID: "a_b"}
	mention := &domain.ActivityItem{Type: domain.ActivityMention, ActorID: "a", CommunityID: "c1"}
	role := &domain.ActivityItem{Type: domain.ActivityRolePromoted, ActorID: "a", CommunityID: "c1"}

	tests := []struct {
		name     string
		settings *domain.MuteSettings
		item     *domain.ActivityItem
		want     bool
	}{
		{"no settings", nil, dm, false},
		{"muted user", &domain.MuteSettings{MutedUsers: []string{"a"}}, dm, true},
		{"muted notifications", &domain.MuteSettings{MutedUsersNotifications: []string{"a"}}, dm, true},
		{"muted conversation", &domain.MuteSettings{MutedConversations: []string{"a_b"}}, dm, true},
		{"other conversation", &domain.MuteSettings{MutedConversations: []string{"a_c"}}, dm, false},
		{"muted community", &domain.MuteSettings{MutedCommunities: []string{"c1"}}, mention, true},
		{"mention allowed when muted", &domain.MuteSettings{MutedCommunities: []string{"c1"}, AllowMentionsWhenMuted: true}, mention, false},
		{"mention from muted user", &domain.MuteSettings{MutedUsers: []string{"a"}}, mention, true},
		{"role changes are never muted", &domain.MuteSettings{MutedUsers: []string{"a"}, MutedCommunities: []string{"c1"}}, role, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Suppressed(tt.settings, tt.item))
		})
	}
}

func TestMutedSenderProducesNoItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	_, err := f.profiles.UpdateMuteSettings(ctx, bob.UID, domain.MuteSettings{MutedUsers: []string{alice.UID}})
	require.NoError(t, err)

	thread := addressing.DirectThread(addressing.DirectConversationID(alice.UID, bob.UID))
	_, err = f.messages.SendText(ctx, alice, thread, SendTextInput{Text: "ignored"})
	require.NoError(t, err)

	items, err := f.notifications.List(ctx, bob.UID, 0)
	require.NoError(t, err)
	assert.Empty(t, items)

	// the message itself is still delivered
	msgs, err := f.repos.Messages.List(ctx, thread, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestMarkThreadRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")
	withAlice := addressing.DirectThread(addressing.DirectConversationID(alice.UID, bob.UID))
	withCarol := addressing.DirectThread(addressing.DirectConversationID(carol.UID, bob.UID))

	for i := 0; i < 2; i++ {
		_, err := f.messages.SendText(ctx, alice, withAlice, SendTextInput{Text: "ping"})
		require.NoError(t, err)
	}
	_, err := f.messages.SendText(ctx, carol, withCarol, SendTextInput{Text: "hello"})
	require.NoError(t, err)

	count, err := f.notifications.UnreadCount(ctx, bob.UID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	n, err := f.notifications.MarkThreadRead(ctx, bob.UID, withAlice)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.notifications.MarkThreadRead(ctx, bob.UID, withAlice)
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err = f.notifications.UnreadCount(ctx, bob.UID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	n, err = f.notifications.MarkRead(ctx, bob.UID, []string{"unknown"})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.notifications.MarkRead(ctx, bob.UID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestActivitySnippetsAreCensoredForViewer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	_, err := f.profiles.SetRestrictedWords(ctx, bob.UID, []domain.RestrictedWord{{Word: "rats", Replacement: "#"}})
	require.NoError(t, err)

	_, err = f.messages.SendText(ctx, alice, addressing.DirectThread(addressing.DirectConversationID(alice.UID, bob.UID)), SendTextInput{Text: "oh rats"})
	require.NoError(t, err)

	items, err := f.notifications.List(ctx, bob.UID, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "oh ####", items[0].ContentSnippet)

	stored, err := f.repos.Activity.List(ctx, bob.UID, 0)
	require.NoError(t, err)
	assert.Equal(t, "oh rats", stored[0].ContentSnippet)
}
