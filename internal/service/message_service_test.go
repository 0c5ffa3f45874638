package service

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/compose"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/media"
)

var pngHeader = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

func TestMentionCreatesOneActivityItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, alice, bob := f.user(t, "owner"), f.user(t, "alice"), f.user(t, "bob")
	c := f.community(t, owner, alice, bob)
	thread := addressing.ChannelThread(c.ID, DefaultChannelID)

	msg, err := f.messages.SendText(ctx, alice, thread, SendTextInput{Text: "hey @bob, look"})
	require.NoError(t, err)
	assert.Equal(t, []string{bob.UID}, msg.MentionedUserIDs)

	stored, err := f.repos.Messages.List(ctx, thread, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, []string{bob.UID}, stored[0].MentionedUserIDs)

	bobItems, err := f.notifications.List(ctx, bob.UID, 0)
	require.NoError(t, err)
	require.Len(t, bobItems, 1)
	assert.Equal(t, domain.ActivityMention, bobItems[0].Type)
	assert.Equal(t, alice.UID, bobItems[0].ActorID)
	assert.Equal(t, thread.Key(), bobItems[0].ThreadKey)

	aliceItems, err := f.notifications.List(ctx, alice.UID, 0)
	require.NoError(t, err)
	assert.Empty(t, aliceItems)
}

func TestOutsiderCannotSendToPrivateCommunity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, stranger := f.user(t, "owner"), f.user(t, "stranger")
	c := f.community(t, owner)
	thread := addressing.ChannelThread(c.ID, DefaultChannelID)

	before := f.store.Writes()
	_, err := f.messages.SendText(ctx, stranger, thread, SendTextInput{Text: "let me in"})
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Equal(t, before, f.store.Writes(), "a rejected send must not write")

	msgs, err := f.repos.Messages.List(ctx, thread, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestOpenCommunityAcceptsGuests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := f.user(t, "guest")

	msg, err := f.messages.SendText(ctx, guest, addressing.ChannelThread(openCommunity, DefaultChannelID), SendTextInput{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, guest.UID, msg.SenderID)
}

func TestGuestSendersAreMentionableInOpenCommunity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	thread := addressing.ChannelThread(openCommunity, DefaultChannelID)

	_, err := f.messages.SendText(ctx, bob, thread, SendTextInput{Text: "anyone around?"})
	require.NoError(t, err)

	msg, err := f.messages.SendText(ctx, alice, thread, SendTextInput{Text: "hi @bob"})
	require.NoError(t, err)
	assert.Equal(t, []string{bob.UID}, msg.MentionedUserIDs)

	items, err := f.notifications.List(ctx, bob.UID, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.ActivityMention, items[0].Type)
	assert.Equal(t, thread.Key(), items[0].ThreadKey)

	// a guest who never posted there is not resolvable
	carol := f.user(t, "carol")
	msg, err = f.messages.SendText(ctx, alice, thread, SendTextInput{Text: "@carol?"})
	require.NoError(t, err)
	assert.Empty(t, msg.MentionedUserIDs)
	items, err = f.notifications.List(ctx, carol.UID, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestChannelMessageTypeRestriction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner")
	c := f.community(t, owner)

	ch, err := f.channels.Create(ctx, owner.UID, c.ID, CreateChannelInput{
		Name:                "text-only",
		AllowedMessageTypes: []domain.MessageType{domain.MessageText},
	})
	require.NoError(t, err)

	_, err = f.messages.SendGIF(ctx, owner, addressing.ChannelThread(c.ID, ch.ID), SendGIFInput{
		GIF: domain.GIF{URL: "https://gif/1", ID: "1", TinyURL: "https://gif/1/tiny"},
	})
	assert.ErrorIs(t, err, ErrMessageTypeNotAllowed)
}

func TestReplyCopiesSnippetAndMentionsOriginalSender(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, alice := f.user(t, "owner"), f.user(t, "alice")
	c := f.community(t, owner, alice)
	thread := addressing.ChannelThread(c.ID, DefaultChannelID)

	original, err := f.messages.SendText(ctx, owner, thread, SendTextInput{Text: "the original"})
	require.NoError(t, err)

	reply, err := f.messages.SendText(ctx, alice, thread, SendTextInput{Text: "agreed", ReplyToMessageID: original.ID})
	require.NoError(t, err)
	assert.Equal(t, original.ID, reply.ReplyToMessageID)
	assert.Equal(t, "the original", reply.ReplyToTextSnippet)
	assert.Equal(t, []string{owner.UID}, reply.MentionedUserIDs)

	_, err = f.messages.SendText(ctx, alice, thread, SendTextInput{Text: "x", ReplyToMessageID: "missing"})
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestReactionToggleIsSelfInverse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	thread := addressing.DirectThread(addressing.DirectConversationID(alice.UID, bob.UID))

	msg, err := f.messages.SendText(ctx, alice, thread, SendTextInput{Text: "hi"})
	require.NoError(t, err)

	once, err := f.messages.ToggleReaction(ctx, bob.UID, thread, msg.ID, "👍")
	require.NoError(t, err)
	assert.Equal(t, []string{bob.UID}, once.Reactions["👍"])

	twice, err := f.messages.ToggleReaction(ctx, bob.UID, thread, msg.ID, "👍")
	require.NoError(t, err)
	assert.NotContains(t, twice.Reactions, "👍")
	assert.Equal(t, msg.Reactions, twice.Reactions)
}

func TestConcurrentReactionToggles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	thread := addressing.ChannelThread(openCommunity, DefaultChannelID)
	author := f.user(t, "author")
	msg, err := f.messages.SendText(ctx, author, thread, SendTextInput{Text: "react to me"})
	require.NoError(t, err)

	const reactors = 25
	users := make([]string, reactors)
	for i := range users {
		users[i] = f.user(t, fmt.Sprintf("reactor-%02d", i)).UID
	}

	var wg sync.WaitGroup
	errs := make(chan error, reactors*3)
	for i, uid := range users {
		// every third reactor toggles three times and ends up reacted as well
		times := 1
		if i%3 == 0 {
			times = 3
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range times {
				if _, err := f.messages.ToggleReaction(ctx, uid, thread, msg.ID, "🎉"); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	stored, err := f.repos.Messages.GetByID(ctx, thread, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.ElementsMatch(t, users, stored.Reactions["🎉"])
}

func TestToggleReactionKeepsOtherReactors(t *testing.T) {
	m := &domain.Message{Reactions: map[string][]string{"🔥": {"a", "b"}}}
	ToggleReaction(m, "🔥", "a")
	assert.Equal(t, []string{"b"}, m.Reactions["🔥"])
	ToggleReaction(m, "🔥", "a")
	assert.Equal(t, []string{"b", "a"}, m.Reactions["🔥"])
}

func TestPinAndDeletePermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, mod, alice, bob := f.user(t, "owner"), f.user(t, "mod"), f.user(t, "alice"), f.user(t, "bob")
	c := f.community(t, owner, mod, alice, bob)
	_, err := f.communities.Promote(ctx, owner, c.ID, mod.UID)
	require.NoError(t, err)
	thread := addressing.ChannelThread(c.ID, DefaultChannelID)

	msg, err := f.messages.SendText(ctx, alice, thread, SendTextInput{Text: "pin me"})
	require.NoError(t, err)

	_, err = f.messages.TogglePin(ctx, bob.UID, thread, msg.ID)
	assert.ErrorIs(t, err, ErrNotMessageOwner)

	pinned, err := f.messages.TogglePin(ctx, mod.UID, thread, msg.ID)
	require.NoError(t, err)
	assert.True(t, pinned.IsPinned)

	list, err := f.messages.List(ctx, bob.UID, thread, ListMessagesInput{Pinned: true})
	require.NoError(t, err)
	require.Len(t, list.Messages, 1)

	assert.ErrorIs(t, f.messages.Delete(ctx, bob.UID, thread, msg.ID), ErrNotMessageOwner)
	require.NoError(t, f.messages.Delete(ctx, mod.UID, thread, msg.ID))
	assert.ErrorIs(t, f.messages.Delete(ctx, mod.UID, thread, msg.ID), ErrMessageNotFound)

	// direct threads: only the sender
	dm := addressing.DirectThread(addressing.DirectConversationID(alice.UID, bob.UID))
	direct, err := f.messages.SendText(ctx, alice, dm, SendTextInput{Text: "private"})
	require.NoError(t, err)
	_, err = f.messages.TogglePin(ctx, bob.UID, dm, direct.ID)
	assert.ErrorIs(t, err, ErrNotMessageOwner)
	_, err = f.messages.TogglePin(ctx, alice.UID, dm, direct.ID)
	require.NoError(t, err)
}

func TestDirectSendCreatesConversationAndNotifiesPeer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	id := addressing.DirectConversationID(alice.UID, bob.UID)
	thread := addressing.DirectThread(id)

	_, err := f.messages.SendText(ctx, alice, thread, SendTextInput{Text: "first"})
	require.NoError(t, err)
	_, err = f.messages.SendText(ctx, alice, thread, SendTextInput{Text: "second"})
	require.NoError(t, err)

	convs, err := f.conversations.List(ctx, bob.UID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, id, convs[0].ID)
	assert.Equal(t, "second", convs[0].LastMessage)
	assert.Equal(t, alice.UID, convs[0].PeerID)
	assert.Equal(t, "alice", convs[0].PeerName)
	assert.Equal(t, 2, convs[0].UnreadCount)

	items, err := f.notifications.List(ctx, bob.UID, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.ActivityNewMessage, items[0].Type)
	assert.Equal(t, id, items[0].ConversationID)

	carol := f.user(t, "carol")
	_, err = f.messages.SendText(ctx, carol, thread, SendTextInput{Text: "intrude"})
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestForwardToSavedMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, alice := f.user(t, "owner"), f.user(t, "alice")
	c := f.community(t, owner, alice)
	thread := addressing.ChannelThread(c.ID, DefaultChannelID)

	original, err := f.messages.SendText(ctx, owner, thread, SendTextInput{Text: "worth keeping"})
	require.NoError(t, err)
	_, err = f.messages.ToggleReaction(ctx, alice.UID, thread, original.ID, "⭐")
	require.NoError(t, err)

	fwd, err := f.messages.Forward(ctx, alice, thread, original.ID, ForwardInput{})
	require.NoError(t, err)
	assert.True(t, fwd.IsForwarded)
	assert.Equal(t, "owner", fwd.ForwardedFromSenderName)
	assert.Equal(t, "owner", fwd.SenderName)
	assert.Equal(t, alice.UID, fwd.SenderID)
	assert.Equal(t, "worth keeping", fwd.Text)
	assert.Empty(t, fwd.Reactions)

	saved := addressing.DirectThread(addressing.DirectConversationID(alice.UID, alice.UID))
	msgs, err := f.repos.Messages.List(ctx, saved, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, fwd.ID, msgs[0].ID)

	// Saved Messages notify nobody
	items, err := f.notifications.List(ctx, alice.UID, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSendAttachment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	thread := addressing.DirectThread(addressing.DirectConversationID(alice.UID, bob.UID))
	file := func() media.File {
		return media.File{Name: "cat.png", ContentType: "image/png", Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)}
	}

	msg, err := f.messages.SendAttachment(ctx, alice, thread, file(), "")
	require.NoError(t, err)
	assert.Equal(t, domain.MessageImage, msg.Type)
	assert.Equal(t, "cat.png", msg.FileName)
	assert.Contains(t, msg.FileURL, "https://media.test/attachments/")

	f.media.fail = true
	_, err = f.messages.SendAttachment(ctx, alice, thread, file(), "")
	assert.ErrorIs(t, err, ErrUploadFailed)

	msgs, err := f.repos.Messages.List(ctx, thread, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1, "a failed upload creates no message")

	f.media.fail = false
	big := file()
	big.Size = 21 << 20
	_, err = f.messages.SendAttachment(ctx, alice, thread, big, "")
	assert.ErrorIs(t, err, compose.ErrFileTooLarge)
}

func TestListCensorsPerViewer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	thread := addressing.DirectThread(addressing.DirectConversationID(alice.UID, bob.UID))

	_, err := f.profiles.SetRestrictedWords(ctx, bob.UID, []domain.RestrictedWord{{Word: "darn", Replacement: "*"}})
	require.NoError(t, err)
	_, err = f.messages.SendText(ctx, alice, thread, SendTextInput{Text: "darn it"})
	require.NoError(t, err)

	forBob, err := f.messages.List(ctx, bob.UID, thread, ListMessagesInput{})
	require.NoError(t, err)
	require.Len(t, forBob.Messages, 1)
	assert.Equal(t, "**** it", forBob.Messages[0].Text)

	forAlice, err := f.messages.List(ctx, alice.UID, thread, ListMessagesInput{})
	require.NoError(t, err)
	assert.Equal(t, "darn it", forAlice.Messages[0].Text)

	found, err := f.messages.List(ctx, alice.UID, thread, ListMessagesInput{Query: "DARN"})
	require.NoError(t, err)
	assert.Len(t, found.Messages, 1)

	hidden, err := f.messages.List(ctx, bob.UID, thread, ListMessagesInput{Query: "darn"})
	require.NoError(t, err)
	assert.Empty(t, hidden.Messages)
}

func TestListPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	thread := addressing.ChannelThread(openCommunity, DefaultChannelID)

	for _, text := range []string{"one", "two", "three"} {
		_, err := f.messages.SendText(ctx, alice, thread, SendTextInput{Text: text})
		require.NoError(t, err)
	}
	page, err := f.messages.List(ctx, alice.UID, thread, ListMessagesInput{Limit: 2})
	require.NoError(t, err)
	assert.True(t, page.HasMore)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "two", page.Messages[0].Text)
	assert.Equal(t, "three", page.Messages[1].Text)
	assert.True(t, page.Messages[0].ShowHeader)
	assert.False(t, page.Messages[1].ShowHeader)
}
