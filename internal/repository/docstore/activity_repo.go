package docstore

import (
	"context"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/store"
)

type ActivityRepo struct {
	store store.Store
}

func NewActivityRepo(s store.Store) *ActivityRepo {
	return &ActivityRepo{store: s}
}

func (r *ActivityRepo) Create(ctx context.Context, userID string, item *domain.ActivityItem) error {
	return create(ctx, r.store, addressing.ActivityItemPath(userID, item.ID), item)
}

// List returns the newest items first.
func (r *ActivityRepo) List(ctx context.Context, userID string, limit int) ([]domain.ActivityItem, error) {
	q := store.Collection(addressing.ActivityItemsPath(userID)).Order("timestamp", true)
	if limit > 0 {
		q = q.Take(limit)
	}
	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.ActivityItem](docs)
}

// ListUnread lists unread items, optionally restricted to one thread key.
func (r *ActivityRepo) ListUnread(ctx context.Context, userID, threadKey string) ([]domain.ActivityItem, error) {
	q := store.Collection(addressing.ActivityItemsPath(userID)).Where("is_read", store.OpEq, false)
	if threadKey != "" {
		q = q.Where("thread_key", store.OpEq, threadKey)
	}
	docs, err := r.store.Query(ctx, q.Order("timestamp", true))
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.ActivityItem](docs)
}

func (r *ActivityRepo) MarkRead(ctx context.Context, userID string, ids []string) error {
	ops := make([]store.WriteOp, 0, len(ids))
	for _, id := range ids {
		ops = append(ops, store.UpdateOp(addressing.ActivityItemPath(userID, id), map[string]any{"is_read": true}))
	}
	return batched(ctx, r.store, ops, store.MaxBatchSize)
}

func (r *ActivityRepo) Watch(ctx context.Context, userID string, fn func([]domain.ActivityItem)) (store.Unsubscribe, error) {
	q := store.Collection(addressing.ActivityItemsPath(userID)).Order("timestamp", true).Take(50)
	return r.store.Subscribe(ctx, q, func(docs []store.Document) {
		items, err := decodeAll[domain.ActivityItem](docs)
		if err != nil {
			return
		}
		fn(items)
	})
}
