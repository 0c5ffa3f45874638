package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/repository"
	"github.com/vedran77/hive/internal/store"
)

type CommunityRepo struct {
	store    store.Store
	channels *ChannelRepo
}

func NewCommunityRepo(s store.Store, channels *ChannelRepo) *CommunityRepo {
	return &CommunityRepo{store: s, channels: channels}
}

func (r *CommunityRepo) Create(ctx context.Context, community *domain.Community, channels []domain.Channel) error {
	ops := []store.WriteOp{store.CreateOp(addressing.CommunityPath(community.ID), community)}
	for i := range channels {
		ch := &channels[i]
		ops = append(ops, store.CreateOp(addressing.ChannelPath(ch.CommunityID, ch.ID), ch))
	}
	err := r.store.Batch(ctx, ops)
	if errors.Is(err, store.ErrAlreadyExists) {
		return repository.ErrDuplicate
	}
	return err
}

func (r *CommunityRepo) GetByID(ctx context.Context, id string) (*domain.Community, error) {
	return get[domain.Community](ctx, r.store, addressing.CommunityPath(id))
}

func (r *CommunityRepo) List(ctx context.Context) ([]domain.Community, error) {
	docs, err := r.store.Query(ctx, store.Collection(addressing.CommunitiesCollection).Order("name", false))
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.Community](docs)
}

func (r *CommunityRepo) Mutate(ctx context.Context, id string, fn func(c *domain.Community) error) (*domain.Community, error) {
	return mutate(ctx, r.store, addressing.CommunityPath(id), fn)
}

// Delete cascades to every channel and its messages before removing the community.
func (r *CommunityRepo) Delete(ctx context.Context, id string) error {
	channels, err := r.channels.ListByCommunity(ctx, id)
	if err != nil {
		return err
	}
	for _, ch := range channels {
		if _, err := r.channels.Delete(ctx, id, ch.ID); err != nil {
			return fmt.Errorf("deleting channel %s: %w", ch.ID, err)
		}
	}
	return r.store.Delete(ctx, addressing.CommunityPath(id))
}
