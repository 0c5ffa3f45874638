package docstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/repository"
	"github.com/vedran77/hive/internal/store/memory"
)

func newRepos(t *testing.T) (*Repos, *memory.Store) {
	t.Helper()
	s := memory.New()
	t.Cleanup(func() { s.Close() })
	return New(s), s
}

func seedMessages(t *testing.T, r *MessageRepo, thread addressing.Thread, n int, start domain.Millis) {
	t.Helper()
	for i := 0; i < n; i++ {
		m := &domain.Message{
			ID:        fmt.Sprintf("m%03d", i),
			SenderID:  "u1",
			Type:      domain.MessageText,
			Text:      fmt.Sprintf("msg %d", i),
			Timestamp: start + domain.Millis(i),
		}
		require.NoError(t, r.Create(context.Background(), thread, m))
	}
}

func TestCredentialsAreUniquePerEmail(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.Users.CreateCredentials(ctx, &domain.Credentials{UserID: "u1", Email: "Ana@Example.com"}))
	err := repos.Users.CreateCredentials(ctx, &domain.Credentials{UserID: "u2", Email: "ana@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	creds, err := repos.Users.GetCredentials(ctx, "ANA@example.com")
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "u1", creds.UserID)

	missing, err := repos.Users.GetCredentials(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMessageListReturnsNewestOldestFirst(t *testing.T) {
	repos, _ := newRepos(t)
	thread := addressing.DirectThread(addressing.DirectConversationID("a", "b"))
	seedMessages(t, repos.Messages, thread, 5, 1000)

	msgs, err := repos.Messages.List(context.Background(), thread, 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"m002", "m003", "m004"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
	assert.NotNil(t, msgs[0].Reactions)
	assert.NotNil(t, msgs[0].ReadBy)
}

func TestMessageMutate(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()
	thread := addressing.ChannelThread("c1", "general")
	seedMessages(t, repos.Messages, thread, 1, 1000)

	m, err := repos.Messages.Mutate(ctx, thread, "m000", func(m *domain.Message) error {
		m.Reactions["👍"] = []string{"u2"}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, m.Reactions["👍"])

	m, err = repos.Messages.Mutate(ctx, thread, "m000", func(m *domain.Message) error {
		return repository.ErrNoChange
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, m.Reactions["👍"])

	m, err = repos.Messages.Mutate(ctx, thread, "missing", func(m *domain.Message) error { return nil })
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestAddReaderIsIdempotent(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()
	thread := addressing.DirectThread(addressing.DirectConversationID("a", "b"))
	seedMessages(t, repos.Messages, thread, 3, 1000)

	ids := []string{"m000", "m001", "m002"}
	for range 2 {
		n, err := repos.Messages.AddReader(ctx, thread, ids, "b")
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	}

	msgs, err := repos.Messages.List(ctx, thread, 0)
	require.NoError(t, err)
	for _, m := range msgs {
		assert.Equal(t, []string{"b"}, m.ReadBy)
	}
}

func TestAddReaderSkipsDeletedMessages(t *testing.T) {
	repos, mem := newRepos(t)
	ctx := context.Background()
	thread := addressing.DirectThread(addressing.DirectConversationID("a", "b"))
	seedMessages(t, repos.Messages, thread, 3, 1000)

	n, err := repos.Messages.AddReader(ctx, thread, []string{"m000", "gone", "m002"}, "b")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// m001 disappears after it was listed but before the read marks commit
	mem.SetCommitHook(func() {
		require.NoError(t, repos.Messages.Delete(ctx, thread, "m001"))
	})
	n, err = repos.Messages.AddReader(ctx, thread, []string{"m001", "m002"}, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	msgs, err := repos.Messages.List(ctx, thread, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.Equal(t, []string{"b"}, m.ReadBy)
	}
}

func TestDeleteOlderThanIsStrictAndBatched(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()
	thread := addressing.ChannelThread("lounge", "general")
	seedMessages(t, repos.Messages, thread, 12, 100)

	n, err := repos.Messages.DeleteOlderThan(ctx, thread, 110, 4)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	left, err := repos.Messages.List(ctx, thread, 0)
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, domain.Millis(110), left[0].Timestamp)
}

func TestCommunityDeleteCascades(t *testing.T) {
	repos, s := newRepos(t)
	ctx := context.Background()

	c := &domain.Community{ID: "c1", Name: "Go", OwnerID: "u1"}
	channels := []domain.Channel{
		{ID: "general", CommunityID: "c1", Name: "general"},
		{ID: "random", CommunityID: "c1", Name: "random"},
	}
	require.NoError(t, repos.Communities.Create(ctx, c, channels))
	assert.ErrorIs(t, repos.Communities.Create(ctx, c, nil), repository.ErrDuplicate)

	seedMessages(t, repos.Messages, addressing.ChannelThread("c1", "general"), 3, 1)
	seedMessages(t, repos.Messages, addressing.ChannelThread("c1", "random"), 2, 1)

	require.NoError(t, repos.Communities.Delete(ctx, "c1"))

	got, err := repos.Communities.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, got)
	for _, ch := range channels {
		_, err := s.Get(ctx, addressing.ChannelPath("c1", ch.ID))
		assert.Error(t, err)
		msgs, err := repos.Messages.List(ctx, addressing.ChannelThread("c1", ch.ID), 0)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	}
}

func TestConversationsByParticipant(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()

	for i, peer := range []string{"b", "c"} {
		id := addressing.DirectConversationID("a", peer)
		created, err := repos.Conversations.CreateIfAbsent(ctx, &domain.Conversation{
			ID: id, Participants: []string{"a", peer}, LastMessageTimestamp: domain.Millis(i),
		})
		require.NoError(t, err)
		assert.True(t, created)
	}
	created, err := repos.Conversations.CreateIfAbsent(ctx, &domain.Conversation{ID: "a_b", Participants: []string{"a", "b"}})
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, repos.Conversations.UpdateLastMessage(ctx, "a_b", "hi", 50))

	convs, err := repos.Conversations.ListByParticipant(ctx, "a")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "a_b", convs[0].ID)
	assert.Equal(t, "hi", convs[0].LastMessage)

	convs, err = repos.Conversations.ListByParticipant(ctx, "c")
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}

func TestActivityUnreadByThread(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()

	items := []domain.ActivityItem{
		{ID: "1", Type: domain.ActivityNewMessage, ThreadKey: "dm:a_b", Timestamp: 1},
		{ID: "2", Type: domain.ActivityMention, ThreadKey: "ch:c1/general", Timestamp: 2},
		{ID: "3", Type: domain.ActivityNewMessage, ThreadKey: "dm:a_b", Timestamp: 3},
	}
	for i := range items {
		require.NoError(t, repos.Activity.Create(ctx, "b", &items[i]))
	}

	unread, err := repos.Activity.ListUnread(ctx, "b", "dm:a_b")
	require.NoError(t, err)
	require.Len(t, unread, 2)
	assert.Equal(t, "3", unread[0].ID)

	require.NoError(t, repos.Activity.MarkRead(ctx, "b", []string{"1", "3"}))

	unread, err = repos.Activity.ListUnread(ctx, "b", "")
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "2", unread[0].ID)
}

func TestSettingsDefaultToNil(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()

	mute, err := repos.Settings.GetMuteSettings(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, mute)

	require.NoError(t, repos.Settings.SaveMuteSettings(ctx, "u1", &domain.MuteSettings{MutedUsers: []string{"u2"}}))
	mute, err = repos.Settings.GetMuteSettings(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, mute.MutedUsers)
}
