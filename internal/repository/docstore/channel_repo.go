package docstore

import (
	"context"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/store"
)

type ChannelRepo struct {
	store    store.Store
	messages *MessageRepo
}

func NewChannelRepo(s store.Store, messages *MessageRepo) *ChannelRepo {
	return &ChannelRepo{store: s, messages: messages}
}

func (r *ChannelRepo) Create(ctx context.Context, channel *domain.Channel) error {
	return create(ctx, r.store, addressing.ChannelPath(channel.CommunityID, channel.ID), channel)
}

func (r *ChannelRepo) GetByID(ctx context.Context, communityID, channelID string) (*domain.Channel, error) {
	return get[domain.Channel](ctx, r.store, addressing.ChannelPath(communityID, channelID))
}

func (r *ChannelRepo) ListByCommunity(ctx context.Context, communityID string) ([]domain.Channel, error) {
	docs, err := r.store.Query(ctx, store.Collection(addressing.ChannelsPath(communityID)).Order("created_at", false))
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.Channel](docs)
}

func (r *ChannelRepo) Delete(ctx context.Context, communityID, channelID string) (int, error) {
	thread := addressing.ChannelThread(communityID, channelID)
	n, err := r.messages.DeleteAll(ctx, thread, store.MaxBatchSize)
	if err != nil {
		return n, err
	}
	return n, r.store.Delete(ctx, addressing.ChannelPath(communityID, channelID))
}
