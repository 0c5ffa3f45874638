package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/compose"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/identity"
	"github.com/vedran77/hive/internal/membership"
	"github.com/vedran77/hive/internal/metrics"
	"github.com/vedran77/hive/internal/repository"
	"github.com/vedran77/hive/internal/store"
)

// NotificationService writes activity items to users/{uid}/activityItems and
// applies each recipient's mute settings before doing so.
type NotificationService struct {
	activityRepo repository.ActivityRepository
	settingsRepo repository.SettingsRepository
	log          logrus.FieldLogger
}

func NewNotificationService(activityRepo repository.ActivityRepository, settingsRepo repository.SettingsRepository, log logrus.FieldLogger) *NotificationService {
	return &NotificationService{
		activityRepo: activityRepo,
		settingsRepo: settingsRepo,
		log:          log,
	}
}

// NotifyDirectMessage tells the other participant about msg. Saved Messages
// threads notify nobody.
func (s *NotificationService) NotifyDirectMessage(ctx context.Context, conversationID string, msg *domain.Message) error {
	recipient, err := addressing.Peer(conversationID, msg.SenderID)
	if err != nil {
		return err
	}
	if recipient == msg.SenderID {
		return nil
	}
	item := s.messageItem(domain.ActivityNewMessage, msg, addressing.DirectThread(conversationID))
	item.ConversationID = conversationID
	return s.deliver(ctx, recipient, item)
}

// NotifyMentions writes one mention item per mentioned user other than the sender.
func (s *NotificationService) NotifyMentions(ctx context.Context, community *domain.Community, channelID string, msg *domain.Message) error {
	thread := addressing.ChannelThread(community.ID, channelID)
	var errs []error
	for _, uid := range msg.MentionedUserIDs {
		if uid == msg.SenderID {
			continue
		}
		item := s.messageItem(domain.ActivityMention, msg, thread)
		item.CommunityID = community.ID
		item.ChannelID = channelID
		item.CommunityName = community.Name
		if err := s.deliver(ctx, uid, item); err != nil {
			errs = append(errs, fmt.Errorf("notifying %s: %w", uid, err))
		}
	}
	return errors.Join(errs...)
}

// NotifyRoleChange records a promotion or demotion for the target. These are
// never muted.
func (s *NotificationService) NotifyRoleChange(ctx context.Context, community *domain.Community, actor identity.Identity, targetID string, out membership.Outcome) error {
	if !out.Changed {
		return nil
	}
	typ := domain.ActivityRolePromoted
	verb := "promoted you to"
	if out.Next.Rank() < out.Previous.Rank() {
		typ = domain.ActivityRoleDemoted
		verb = "changed your role to"
	}
	item := &domain.ActivityItem{
		ID:             uuid.NewString(),
		Type:           typ,
		ActorID:        actor.UID,
		ActorName:      actor.DisplayName,
		ActorAvatarURL: actor.PhotoURL,
		ContentSnippet: fmt.Sprintf("%s %s in %s", verb, out.Next, community.Name),
		Timestamp:      domain.Now(),
		CommunityID:    community.ID,
		CommunityName:  community.Name,
		Role:           out.Next,
		ThreadKey:      "community:" + community.ID,
	}
	return s.deliver(ctx, targetID, item)
}

func (s *NotificationService) messageItem(typ domain.ActivityType, msg *domain.Message, thread addressing.Thread) *domain.ActivityItem {
	return &domain.ActivityItem{
		ID:             uuid.NewString(),
		Type:           typ,
		ActorID:        msg.SenderID,
		ActorName:      msg.SenderName,
		ActorAvatarURL: msg.SenderAvatarURL,
		ContentSnippet: compose.ReplySnippet(msg),
		Timestamp:      domain.Now(),
		MessageID:      msg.ID,
		ThreadKey:      thread.Key(),
	}
}

func (s *NotificationService) deliver(ctx context.Context, recipient string, item *domain.ActivityItem) error {
	if item.Type == domain.ActivityNewMessage || item.Type == domain.ActivityMention {
		settings, err := s.settingsRepo.GetMuteSettings(ctx, recipient)
		if err != nil {
			return fmt.Errorf("loading mute settings: %w", err)
		}
		if Suppressed(settings, item) {
			metrics.ActivitySuppressed(string(item.Type))
			return nil
		}
	}
	if err := s.activityRepo.Create(ctx, recipient, item); err != nil {
		return fmt.Errorf("creating activity item: %w", err)
	}
	metrics.ActivityWritten(string(item.Type))
	return nil
}

// Suppressed applies a recipient's mute settings to an item about to be written.
func Suppressed(m *domain.MuteSettings, item *domain.ActivityItem) bool {
	if m == nil {
		return false
	}
	muted := slices.Contains(m.MutedUsers, item.ActorID) ||
		slices.Contains(m.MutedUsersNotifications, item.ActorID) ||
		(item.ConversationID != "" && slices.Contains(m.MutedConversations, item.ConversationID))

	switch item.Type {
	case domain.ActivityNewMessage:
		return muted
	case domain.ActivityMention:
		if item.CommunityID != "" && slices.Contains(m.MutedCommunities, item.CommunityID) {
			muted = true
		}
		return muted && !m.AllowMentionsWhenMuted
	}
	return false
}

// List returns the newest items with snippets rendered through the viewer's
// restricted words.
func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]domain.ActivityItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	items, err := s.activityRepo.List(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return s.Render(ctx, userID, items), nil
}

// Render censors item snippets for the viewer.
func (s *NotificationService) Render(ctx context.Context, userID string, items []domain.ActivityItem) []domain.ActivityItem {
	words, err := viewerWords(ctx, s.settingsRepo, userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("loading restricted words")
		return items
	}
	if len(words) == 0 {
		return items
	}
	out := slices.Clone(items)
	for i := range out {
		out[i].ContentSnippet = compose.Censor(out[i].ContentSnippet, words)
	}
	return out
}

// Watch delivers the newest items, rendered for userID, after every change to
// the user's feed.
func (s *NotificationService) Watch(ctx context.Context, userID string, fn func([]domain.ActivityItem)) (store.Unsubscribe, error) {
	return s.activityRepo.Watch(ctx, userID, func(items []domain.ActivityItem) {
		fn(s.Render(ctx, userID, items))
	})
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	items, err := s.activityRepo.ListUnread(ctx, userID, "")
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// MarkThreadRead marks every unread item correlated with thread as read.
func (s *NotificationService) MarkThreadRead(ctx context.Context, userID string, thread addressing.Thread) (int, error) {
	return s.markRead(ctx, userID, thread.Key())
}

// MarkRead marks the listed items read, or every unread item when ids is empty.
// Unknown and already read ids are ignored.
func (s *NotificationService) MarkRead(ctx context.Context, userID string, ids []string) (int, error) {
	return s.markRead(ctx, userID, "", ids...)
}

func (s *NotificationService) markRead(ctx context.Context, userID, threadKey string, only ...string) (int, error) {
	items, err := s.activityRepo.ListUnread(ctx, userID, threadKey)
	if err != nil {
		return 0, err
	}
	var ids []string
	for _, it := range items {
		if len(only) == 0 || slices.Contains(only, it.ID) {
			ids = append(ids, it.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.activityRepo.MarkRead(ctx, userID, ids); err != nil {
		return 0, fmt.Errorf("marking activity read: %w", err)
	}
	return len(ids), nil
}
