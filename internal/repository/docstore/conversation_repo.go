package docstore

import (
	"context"
	"errors"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/repository"
	"github.com/vedran77/hive/internal/store"
)

type ConversationRepo struct {
	store store.Store
}

func NewConversationRepo(s store.Store) *ConversationRepo {
	return &ConversationRepo{store: s}
}

func (r *ConversationRepo) CreateIfAbsent(ctx context.Context, conv *domain.Conversation) (bool, error) {
	err := create(ctx, r.store, addressing.ConversationPath(conv.ID), conv)
	if errors.Is(err, repository.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	return get[domain.Conversation](ctx, r.store, addressing.ConversationPath(id))
}

// ListByParticipant orders by the most recent message first.
func (r *ConversationRepo) ListByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error) {
	q := store.Collection(addressing.DirectMessagesCollection).
		Where("participants", store.OpArrayContains, userID).
		Order("last_message_timestamp", true)
	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.Conversation](docs)
}

func (r *ConversationRepo) UpdateLastMessage(ctx context.Context, id, text string, ts domain.Millis) error {
	return r.store.Update(ctx, addressing.ConversationPath(id), map[string]any{
		"last_message":           text,
		"last_message_timestamp": ts,
	})
}
