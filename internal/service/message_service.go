package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/compose"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/identity"
	"github.com/vedran77/hive/internal/media"
	"github.com/vedran77/hive/internal/membership"
	"github.com/vedran77/hive/internal/metrics"
	"github.com/vedran77/hive/internal/projection"
	"github.com/vedran77/hive/internal/repository"
)

var (
	ErrMessageNotFound       = errors.New("message not found")
	ErrNotMessageOwner       = errors.New("only the message sender can perform this action")
	ErrMessageTypeNotAllowed = errors.New("message type not allowed in this channel")
	ErrInvalidReaction       = errors.New("reaction must not be empty")
)

// Notifier fans a stored message out to activity feeds.
type Notifier interface {
	NotifyDirectMessage(ctx context.Context, conversationID string, msg *domain.Message) error
	NotifyMentions(ctx context.Context, community *domain.Community, channelID string, msg *domain.Message) error
}

// MessageService is the message pipeline. Channel and direct threads share
// every code path through addressing.Thread.
type MessageService struct {
	messageRepo   repository.MessageRepository
	communityRepo repository.CommunityRepository
	channelRepo   repository.ChannelRepository
	userRepo      repository.UserRepository
	settingsRepo  repository.SettingsRepository
	conversations *ConversationService
	media         media.Store
	rules         membership.Rules
	notifier      Notifier
	log           logrus.FieldLogger
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	communityRepo repository.CommunityRepository,
	channelRepo repository.ChannelRepository,
	userRepo repository.UserRepository,
	settingsRepo repository.SettingsRepository,
	conversations *ConversationService,
	mediaStore media.Store,
	rules membership.Rules,
	log logrus.FieldLogger,
) *MessageService {
	return &MessageService{
		messageRepo:   messageRepo,
		communityRepo: communityRepo,
		channelRepo:   channelRepo,
		userRepo:      userRepo,
		settingsRepo:  settingsRepo,
		conversations: conversations,
		media:         mediaStore,
		rules:         rules,
		log:           log,
	}
}

// SetNotifier sets the activity notifier (optional dependency).
func (s *MessageService) SetNotifier(n Notifier) {
	s.notifier = n
}

type SendTextInput struct {
	Text             string `json:"text"`
	ReplyToMessageID string `json:"reply_to_message_id,omitempty"`
}

type SendGIFInput struct {
	domain.GIF
	ReplyToMessageID string `json:"reply_to_message_id,omitempty"`
}

type ListMessagesInput struct {
	Query  string
	Pinned bool
	Limit  int
}

type MessageListResponse struct {
	Messages []projection.DisplayMessage `json:"messages"`
	HasMore  bool                        `json:"has_more"`
}

type ForwardInput struct {
	// TargetUserID defaults to the forwarder, i.e. Saved Messages.
	TargetUserID string `json:"target_user_id,omitempty"`
}

// access is what authorization resolved for a thread.
type access struct {
	thread    addressing.Thread
	community *domain.Community
	channel   *domain.Channel
}

// Authorize checks that userID may read and write thread.
func (s *MessageService) Authorize(ctx context.Context, userID string, thread addressing.Thread) error {
	_, err := s.authorize(ctx, userID, thread)
	return err
}

func (s *MessageService) authorize(ctx context.Context, userID string, thread addressing.Thread) (*access, error) {
	if err := thread.Validate(); err != nil {
		return nil, err
	}
	if thread.IsDirect() {
		if err := CheckParticipant(thread.ConversationID, userID); err != nil {
			return nil, err
		}
		return &access{thread: thread}, nil
	}

	c, err := s.communityRepo.GetByID(ctx, thread.CommunityID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCommunityNotFound
	}
	membership.Normalize(c)
	ch, err := s.channelRepo.GetByID(ctx, thread.CommunityID, thread.ChannelID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrChannelNotFound
	}
	if !s.rules.CanAccessChannel(c, ch, userID) {
		return nil, ErrAccessDenied
	}
	return &access{thread: thread, community: c, channel: ch}, nil
}

func (s *MessageService) SendText(ctx context.Context, actor identity.Identity, thread addressing.Thread, input SendTextInput) (*domain.Message, error) {
	msg := &domain.Message{Type: domain.MessageText, Text: strings.TrimSpace(input.Text)}
	return s.send(ctx, actor, thread, msg, input.ReplyToMessageID)
}

func (s *MessageService) SendGIF(ctx context.Context, actor identity.Identity, thread addressing.Thread, input SendGIFInput) (*domain.Message, error) {
	msg := &domain.Message{
		Type:                  domain.MessageGIF,
		GIFURL:                input.URL,
		GIFID:                 input.ID,
		GIFTinyURL:            input.TinyURL,
		GIFContentDescription: input.ContentDescription,
	}
	return s.send(ctx, actor, thread, msg, input.ReplyToMessageID)
}

// SendAttachment uploads f and then records the message. A failed upload
// leaves no message behind.
func (s *MessageService) SendAttachment(ctx context.Context, actor identity.Identity, thread addressing.Thread, f media.File, replyToID string) (*domain.Message, error) {
	acc, err := s.authorize(ctx, actor.UID, thread)
	if err != nil {
		return nil, err
	}
	f, err = inspect(f, compose.ChatAttachments)
	if err != nil {
		return nil, err
	}
	typ := compose.TypeFromMIME(f.ContentType)
	if acc.channel != nil && !membership.CanPostType(acc.channel, typ) {
		return nil, ErrMessageTypeNotAllowed
	}

	url, err := put(ctx, s.media, f, "attachments/"+thread.Path())
	if err != nil {
		return nil, err
	}
	msg := &domain.Message{
		Type:     typ,
		FileURL:  url,
		FileName: f.Name,
		FileType: f.ContentType,
	}
	return s.create(ctx, actor, acc, msg, replyToID)
}

func (s *MessageService) send(ctx context.Context, actor identity.Identity, thread addressing.Thread, msg *domain.Message, replyToID string) (*domain.Message, error) {
	acc, err := s.authorize(ctx, actor.UID, thread)
	if err != nil {
		return nil, err
	}
	if acc.channel != nil && !membership.CanPostType(acc.channel, msg.Type) {
		return nil, ErrMessageTypeNotAllowed
	}
	return s.create(ctx, actor, acc, msg, replyToID)
}

// create finishes an authorized message and writes it. Nothing is written
// before validation passes.
func (s *MessageService) create(ctx context.Context, actor identity.Identity, acc *access, msg *domain.Message, replyToID string) (*domain.Message, error) {
	if replyToID != "" {
		original, err := s.messageRepo.GetByID(ctx, acc.thread, replyToID)
		if err != nil {
			return nil, err
		}
		if original == nil {
			return nil, ErrMessageNotFound
		}
		compose.ApplyReply(msg, original)
	}
	if err := compose.ValidatePayload(msg); err != nil {
		return nil, err
	}

	msg.ID = uuid.NewString()
	msg.SenderID = actor.UID
	msg.SenderName = actor.DisplayName
	msg.SenderAvatarURL = actor.PhotoURL

	mentions := []string{}
	if msg.Type == domain.MessageText {
		roster, err := s.roster(ctx, acc)
		if err != nil {
			return nil, err
		}
		mentions = compose.ExtractMentions(msg.Text, roster, msg.ReplyToSenderID, actor.UID)
	} else if msg.ReplyToSenderID != "" && msg.ReplyToSenderID != actor.UID {
		mentions = []string{msg.ReplyToSenderID}
	}
	msg.MentionedUserIDs = mentions

	return s.write(ctx, actor, acc, msg)
}

// write persists an already validated message and runs the side effects.
func (s *MessageService) write(ctx context.Context, actor identity.Identity, acc *access, msg *domain.Message) (*domain.Message, error) {
	thread := acc.thread
	if thread.IsDirect() {
		peer, err := addressing.Peer(thread.ConversationID, actor.UID)
		if err != nil {
			return nil, ErrNotParticipant
		}
		if _, err := s.conversations.Ensure(ctx, actor, peer); err != nil {
			return nil, err
		}
	}

	msg.Timestamp = domain.Now()
	projection.Normalize(msg)
	if err := s.messageRepo.Create(ctx, thread, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}
	metrics.MessageSent(string(msg.Type), thread.IsDirect())

	log := s.log.WithFields(logrus.Fields{"thread": thread.Key(), "message_id": msg.ID})
	if thread.IsDirect() {
		if err := s.conversations.recordLastMessage(ctx, thread.ConversationID, msg); err != nil {
			log.WithError(err).Warn("updating conversation summary")
		}
	}

	if s.notifier != nil {
		var err error
		switch {
		case thread.IsDirect():
			err = s.notifier.NotifyDirectMessage(ctx, thread.ConversationID, msg)
		case len(msg.MentionedUserIDs) > 0:
			err = s.notifier.NotifyMentions(ctx, acc.community, thread.ChannelID, msg)
		}
		if err != nil {
			log.WithError(err).Warn("activity fan-out failed")
		}
	}
	return msg, nil
}

// rosterHistory bounds how far back the open community's channels are scanned
// for guest senders.
const rosterHistory = 500

// roster maps display names to ids for mention resolution: the community's
// role holders for channels, both participants for direct threads. Guests of
// the open community hold no role, so its recent senders count too.
func (s *MessageService) roster(ctx context.Context, acc *access) (compose.Roster, error) {
	var ids []string
	if acc.thread.IsDirect() {
		a, b, err := addressing.ParseConversationID(acc.thread.ConversationID)
		if err != nil {
			return nil, err
		}
		ids = []string{a, b}
	} else {
		for _, m := range s.rules.Members(acc.community) {
			ids = append(ids, m.UserID)
		}
		if s.rules.IsOpen(acc.community) {
			recent, err := s.messageRepo.List(ctx, acc.thread, rosterHistory)
			if err != nil {
				return nil, err
			}
			for i := len(recent) - 1; i >= 0; i-- {
				sender := recent[i].SenderID
				if sender == "" || slices.Contains(ids, sender) || s.rules.IsBanned(acc.community, sender) {
					continue
				}
				ids = append(ids, sender)
			}
		}
	}
	users, err := s.userRepo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	roster := compose.Roster{}
	for _, id := range ids {
		u, ok := users[id]
		if !ok || u.DisplayName == "" {
			continue
		}
		if _, taken := roster[u.DisplayName]; !taken {
			roster[u.DisplayName] = id
		}
	}
	return roster, nil
}

// ToggleReaction adds or removes userID under emoji. Concurrent togglers are
// serialized by the store transaction.
func (s *MessageService) ToggleReaction(ctx context.Context, userID string, thread addressing.Thread, messageID, emoji string) (*domain.Message, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, ErrInvalidReaction
	}
	if _, err := s.authorize(ctx, userID, thread); err != nil {
		return nil, err
	}
	msg, err := s.messageRepo.Mutate(ctx, thread, messageID, func(m *domain.Message) error {
		ToggleReaction(m, emoji, userID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("toggling reaction: %w", err)
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	return msg, nil
}

// ToggleReaction flips userID's membership in m.Reactions[emoji], dropping the
// key once nobody is left.
func ToggleReaction(m *domain.Message, emoji, userID string) {
	if m.Reactions == nil {
		m.Reactions = map[string][]string{}
	}
	users := m.Reactions[emoji]
	for i, u := range users {
		if u == userID {
			users = append(users[:i:i], users[i+1:]...)
			if len(users) == 0 {
				delete(m.Reactions, emoji)
			} else {
				m.Reactions[emoji] = users
			}
			return
		}
	}
	m.Reactions[emoji] = append(users, userID)
}

// TogglePin flips IsPinned. Direct threads allow only the sender; channels
// also allow holders of the delete-messages capability.
func (s *MessageService) TogglePin(ctx context.Context, userID string, thread addressing.Thread, messageID string) (*domain.Message, error) {
	acc, err := s.authorize(ctx, userID, thread)
	if err != nil {
		return nil, err
	}
	msg, err := s.messageRepo.Mutate(ctx, thread, messageID, func(m *domain.Message) error {
		if !s.canModerate(acc, m, userID) {
			return ErrNotMessageOwner
		}
		m.IsPinned = !m.IsPinned
		return nil
	})
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	return msg, nil
}

// Delete is a hard delete.
func (s *MessageService) Delete(ctx context.Context, userID string, thread addressing.Thread, messageID string) error {
	acc, err := s.authorize(ctx, userID, thread)
	if err != nil {
		return err
	}
	msg, err := s.messageRepo.GetByID(ctx, thread, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrMessageNotFound
	}
	if !s.canModerate(acc, msg, userID) {
		return ErrNotMessageOwner
	}
	if err := s.messageRepo.Delete(ctx, thread, messageID); err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	return nil
}

func (s *MessageService) canModerate(acc *access, m *domain.Message, userID string) bool {
	if m.SenderID == userID {
		return true
	}
	if acc.community == nil {
		return false
	}
	return s.rules.Capabilities(acc.community, userID).CanDeleteMessages
}

// Forward copies a message into the direct conversation between the forwarder
// and the target, creating it if absent. Without a target it lands in the
// forwarder's Saved Messages.
func (s *MessageService) Forward(ctx context.Context, actor identity.Identity, source addressing.Thread, messageID string, input ForwardInput) (*domain.Message, error) {
	if _, err := s.authorize(ctx, actor.UID, source); err != nil {
		return nil, err
	}
	original, err := s.messageRepo.GetByID(ctx, source, messageID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, ErrMessageNotFound
	}

	target := input.TargetUserID
	if target == "" {
		target = actor.UID
	}
	conv, err := s.conversations.Ensure(ctx, actor, target)
	if err != nil {
		return nil, err
	}

	copied := compose.Forward(original, actor.UID)
	if err := compose.ValidatePayload(copied); err != nil {
		return nil, err
	}
	copied.ID = uuid.NewString()
	acc := &access{thread: addressing.DirectThread(conv.ID)}
	return s.write(ctx, actor, acc, copied)
}

// List returns the thread rendered for userID: ordered, grouped and filtered
// through the viewer's restricted words.
func (s *MessageService) List(ctx context.Context, userID string, thread addressing.Thread, input ListMessagesInput) (*MessageListResponse, error) {
	if _, err := s.authorize(ctx, userID, thread); err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	filtered := input.Pinned || strings.TrimSpace(input.Query) != ""

	fetch := limit + 1
	if filtered {
		fetch = 0
	}
	msgs, err := s.messageRepo.List(ctx, thread, fetch)
	if err != nil {
		return nil, err
	}
	words, err := viewerWords(ctx, s.settingsRepo, userID)
	if err != nil {
		return nil, err
	}
	if input.Pinned {
		msgs = projection.PinnedOnly(msgs)
	}
	msgs = projection.Search(msgs, input.Query, words)

	hasMore := len(msgs) > limit
	if hasMore {
		msgs = msgs[len(msgs)-limit:]
	}

	return &MessageListResponse{
		Messages: projection.Project(msgs, words),
		HasMore:  hasMore,
	}, nil
}
