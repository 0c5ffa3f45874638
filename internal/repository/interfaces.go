package repository

import (
	"context"
	"errors"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/store"
)

var (
	// ErrDuplicate is returned by create-if-absent writes that lost to an existing document.
	ErrDuplicate = errors.New("duplicate")

	// ErrNoChange lets a Mutate callback skip the write.
	ErrNoChange = errors.New("no change")
)

// Getters return (nil, nil) when the document does not exist.

type UserRepository interface {
	Save(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetMany(ctx context.Context, ids []string) (map[string]domain.User, error)
	CreateCredentials(ctx context.Context, creds *domain.Credentials) error
	GetCredentials(ctx context.Context, email string) (*domain.Credentials, error)
}

type SettingsRepository interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	SaveProfile(ctx context.Context, profile *domain.Profile) error
	GetMuteSettings(ctx context.Context, userID string) (*domain.MuteSettings, error)
	SaveMuteSettings(ctx context.Context, userID string, settings *domain.MuteSettings) error
	GetRestrictedWords(ctx context.Context, userID string) (*domain.RestrictedWords, error)
	SaveRestrictedWords(ctx context.Context, userID string, words *domain.RestrictedWords) error
}

type CommunityRepository interface {
	// Create writes the community and its default channels in one batch.
	Create(ctx context.Context, community *domain.Community, channels []domain.Channel) error
	GetByID(ctx context.Context, id string) (*domain.Community, error)
	List(ctx context.Context) ([]domain.Community, error)
	// Mutate runs fn on a fresh copy inside a transaction and writes the result.
	// fn may run more than once.
	Mutate(ctx context.Context, id string, fn func(c *domain.Community) error) (*domain.Community, error)
	Delete(ctx context.Context, id string) error
}

type ChannelRepository interface {
	Create(ctx context.Context, channel *domain.Channel) error
	GetByID(ctx context.Context, communityID, channelID string) (*domain.Channel, error)
	ListByCommunity(ctx context.Context, communityID string) ([]domain.Channel, error)
	// Delete removes the channel's messages in bounded batches, then the channel.
	Delete(ctx context.Context, communityID, channelID string) (int, error)
}

type MessageRepository interface {
	Create(ctx context.Context, thread addressing.Thread, msg *domain.Message) error
	GetByID(ctx context.Context, thread addressing.Thread, id string) (*domain.Message, error)
	// List returns up to limit of the newest messages, oldest first. limit <= 0 lists all.
	List(ctx context.Context, thread addressing.Thread, limit int) ([]domain.Message, error)
	Mutate(ctx context.Context, thread addressing.Thread, id string, fn func(m *domain.Message) error) (*domain.Message, error)
	Delete(ctx context.Context, thread addressing.Thread, id string) error
	// AddReader appends userID to read_by of every listed message that still
	// exists and returns how many it marked.
	AddReader(ctx context.Context, thread addressing.Thread, ids []string, userID string) (int, error)
	// DeleteOlderThan removes messages with timestamp < cutoff, batchSize per commit.
	DeleteOlderThan(ctx context.Context, thread addressing.Thread, cutoff domain.Millis, batchSize int) (int, error)
	Watch(ctx context.Context, thread addressing.Thread, fn func([]domain.Message)) (store.Unsubscribe, error)
}

type ConversationRepository interface {
	// CreateIfAbsent reports whether this call created the conversation.
	CreateIfAbsent(ctx context.Context, conv *domain.Conversation) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	ListByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error)
	UpdateLastMessage(ctx context.Context, id, text string, ts domain.Millis) error
}

type ActivityRepository interface {
	Create(ctx context.Context, userID string, item *domain.ActivityItem) error
	List(ctx context.Context, userID string, limit int) ([]domain.ActivityItem, error)
	ListUnread(ctx context.Context, userID, threadKey string) ([]domain.ActivityItem, error)
	MarkRead(ctx context.Context, userID string, ids []string) error
	Watch(ctx context.Context, userID string, fn func([]domain.ActivityItem)) (store.Unsubscribe, error)
}

type RetentionRepository interface {
	Append(ctx context.Context, result *domain.CleanupResult) error
	List(ctx context.Context, limit int) ([]domain.CleanupResult, error)
}
