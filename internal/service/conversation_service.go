package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/compose"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/identity"
	"github.com/vedran77/hive/internal/projection"
	"github.com/vedran77/hive/internal/repository"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("you are not a participant of this conversation")
	ErrUserNotFound         = errors.New("user not found")
)

// ConversationService manages direct conversations. Conversations are created
// lazily and never deleted.
type ConversationService struct {
	convRepo     repository.ConversationRepository
	messageRepo  repository.MessageRepository
	userRepo     repository.UserRepository
	settingsRepo repository.SettingsRepository
}

func NewConversationService(
	convRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	settingsRepo repository.SettingsRepository,
) *ConversationService {
	return &ConversationService{
		convRepo:     convRepo,
		messageRepo:  messageRepo,
		userRepo:     userRepo,
		settingsRepo: settingsRepo,
	}
}

// Open returns the conversation with peer, creating it if needed. Opening a
// conversation with yourself gives your Saved Messages thread.
func (s *ConversationService) Open(ctx context.Context, actor identity.Identity, peerID string) (*domain.ConversationSummary, error) {
	conv, err := s.Ensure(ctx, actor, peerID)
	if err != nil {
		return nil, err
	}
	words, err := viewerWords(ctx, s.settingsRepo, actor.UID)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, actor.UID, conv, words)
}

// Ensure is the idempotent create-if-absent behind every direct send.
func (s *ConversationService) Ensure(ctx context.Context, actor identity.Identity, peerID string) (*domain.Conversation, error) {
	names := map[string]string{actor.UID: actor.DisplayName}
	avatars := map[string]string{actor.UID: actor.PhotoURL}
	if peerID != actor.UID {
		peer, err := s.userRepo.GetByID(ctx, peerID)
		if err != nil {
			return nil, err
		}
		if peer == nil {
			return nil, ErrUserNotFound
		}
		names[peer.ID] = peer.DisplayName
		avatars[peer.ID] = peer.AvatarURL
	}

	id := addressing.DirectConversationID(actor.UID, peerID)
	a, b, err := addressing.ParseConversationID(id)
	if err != nil {
		return nil, err
	}
	now := domain.Now()
	conv := &domain.Conversation{
		ID:                   id,
		Participants:         []string{a, b},
		ParticipantNames:     names,
		ParticipantAvatars:   avatars,
		LastMessageTimestamp: now,
		CreatedAt:            now,
	}
	created, err := s.convRepo.CreateIfAbsent(ctx, conv)
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	if created {
		return conv, nil
	}
	existing, err := s.convRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrConversationNotFound
	}
	return existing, nil
}

// List orders conversations by their last message, newest first.
func (s *ConversationService) List(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	convs, err := s.convRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	words, err := viewerWords(ctx, s.settingsRepo, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ConversationSummary, 0, len(convs))
	for i := range convs {
		sum, err := s.summarize(ctx, userID, &convs[i], words)
		if err != nil {
			return nil, err
		}
		out = append(out, *sum)
	}
	return out, nil
}

func (s *ConversationService) Get(ctx context.Context, userID, conversationID string) (*domain.ConversationSummary, error) {
	if err := CheckParticipant(conversationID, userID); err != nil {
		return nil, err
	}
	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	words, err := viewerWords(ctx, s.settingsRepo, userID)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, userID, conv, words)
}

// MarkAsRead adds userID to read_by of every message in the conversation the
// user has not read yet. Calling it again changes nothing.
func (s *ConversationService) MarkAsRead(ctx context.Context, userID, conversationID string) (int, error) {
	if err := CheckParticipant(conversationID, userID); err != nil {
		return 0, err
	}
	thread := addressing.DirectThread(conversationID)
	msgs, err := s.messageRepo.List(ctx, thread, 0)
	if err != nil {
		return 0, err
	}
	var ids []string
	for i := range msgs {
		if projection.IsUnread(&msgs[i], userID) {
			ids = append(ids, msgs[i].ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.messageRepo.AddReader(ctx, thread, ids, userID)
	if err != nil {
		return n, fmt.Errorf("marking messages read: %w", err)
	}
	return n, nil
}

func (s *ConversationService) UnreadCount(ctx context.Context, userID, conversationID string) (int, error) {
	if err := CheckParticipant(conversationID, userID); err != nil {
		return 0, err
	}
	msgs, err := s.messageRepo.List(ctx, addressing.DirectThread(conversationID), 0)
	if err != nil {
		return 0, err
	}
	return projection.UnreadCount(msgs, userID), nil
}

// recordLastMessage updates the denormalized preview. Callers treat failure as
// non-fatal.
func (s *ConversationService) recordLastMessage(ctx context.Context, conversationID string, msg *domain.Message) error {
	return s.convRepo.UpdateLastMessage(ctx, conversationID, compose.ReplySnippet(msg), msg.Timestamp)
}

// summarize renders conv for userID, censoring the preview with words.
func (s *ConversationService) summarize(ctx context.Context, userID string, conv *domain.Conversation, words []domain.RestrictedWord) (*domain.ConversationSummary, error) {
	peer, err := addressing.Peer(conv.ID, userID)
	if err != nil {
		return nil, ErrNotParticipant
	}
	unread, err := s.UnreadCount(ctx, userID, conv.ID)
	if err != nil {
		return nil, err
	}
	rendered := *conv
	rendered.LastMessage = compose.Censor(conv.LastMessage, words)
	return &domain.ConversationSummary{
		Conversation: rendered,
		PeerID:       peer,
		PeerName:     conv.ParticipantNames[peer],
		PeerAvatar:   conv.ParticipantAvatars[peer],
		UnreadCount:  unread,
	}, nil
}

// CheckParticipant verifies userID is one of the two ids encoded in conversationID.
func CheckParticipant(conversationID, userID string) error {
	a, b, err := addressing.ParseConversationID(conversationID)
	if err != nil {
		return ErrConversationNotFound
	}
	if userID != a && userID != b {
		return ErrNotParticipant
	}
	return nil
}
