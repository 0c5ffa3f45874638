package docstore

import (
	"context"
	"errors"
	"slices"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/projection"
	"github.com/vedran77/hive/internal/store"
)

type MessageRepo struct {
	store store.Store
}

func NewMessageRepo(s store.Store) *MessageRepo {
	return &MessageRepo{store: s}
}

func (r *MessageRepo) Create(ctx context.Context, thread addressing.Thread, msg *domain.Message) error {
	return create(ctx, r.store, thread.MessagePath(msg.ID), msg)
}

func (r *MessageRepo) GetByID(ctx context.Context, thread addressing.Thread, id string) (*domain.Message, error) {
	m, err := get[domain.Message](ctx, r.store, thread.MessagePath(id))
	if m != nil {
		projection.Normalize(m)
	}
	return m, err
}

func (r *MessageRepo) List(ctx context.Context, thread addressing.Thread, limit int) ([]domain.Message, error) {
	q := store.Collection(thread.MessagesCollection()).Order("timestamp", true)
	if limit > 0 {
		q = q.Take(limit)
	}
	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	msgs, err := decodeMessages(docs)
	if err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}

func (r *MessageRepo) Mutate(ctx context.Context, thread addressing.Thread, id string, fn func(m *domain.Message) error) (*domain.Message, error) {
	return mutate(ctx, r.store, thread.MessagePath(id), func(m *domain.Message) error {
		projection.Normalize(m)
		return fn(m)
	})
}

func (r *MessageRepo) Delete(ctx context.Context, thread addressing.Thread, id string) error {
	return r.store.Delete(ctx, thread.MessagePath(id))
}

// AddReader skips messages deleted since the caller listed them and returns
// how many were marked.
func (r *MessageRepo) AddReader(ctx context.Context, thread addressing.Thread, ids []string, userID string) (int, error) {
	marked := 0
	for _, chunk := range store.Chunk(ids, store.MaxBatchSize) {
		var live []string
		err := r.store.RunTransaction(ctx, func(tx store.Tx) error {
			live = live[:0]
			for _, id := range chunk {
				_, err := tx.Get(thread.MessagePath(id))
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				live = append(live, id)
			}
			for _, id := range live {
				tx.Update(thread.MessagePath(id), map[string]any{
					"read_by": store.ArrayUnion(userID),
				})
			}
			return nil
		})
		if err != nil {
			return marked, err
		}
		marked += len(live)
	}
	return marked, nil
}

func (r *MessageRepo) DeleteOlderThan(ctx context.Context, thread addressing.Thread, cutoff domain.Millis, batchSize int) (int, error) {
	q := store.Collection(thread.MessagesCollection()).Where("timestamp", store.OpLt, cutoff)
	return r.deleteMatching(ctx, q, batchSize)
}

// DeleteAll empties the thread in batches of batchSize.
func (r *MessageRepo) DeleteAll(ctx context.Context, thread addressing.Thread, batchSize int) (int, error) {
	return r.deleteMatching(ctx, store.Collection(thread.MessagesCollection()), batchSize)
}

// deleteMatching pages through q, oldest first, committing one batch per page.
// Already committed batches stay deleted if a later one fails.
func (r *MessageRepo) deleteMatching(ctx context.Context, q store.Query, batchSize int) (int, error) {
	if batchSize <= 0 || batchSize > store.MaxBatchSize {
		batchSize = store.MaxBatchSize
	}
	q = q.Order("timestamp", false).Take(batchSize)

	total := 0
	for {
		docs, err := r.store.Query(ctx, q)
		if err != nil {
			return total, err
		}
		if len(docs) == 0 {
			return total, nil
		}
		ops := make([]store.WriteOp, 0, len(docs))
		for _, d := range docs {
			ops = append(ops, store.DeleteOp(d.Path))
		}
		if err := r.store.Batch(ctx, ops); err != nil {
			return total, err
		}
		total += len(docs)
		if len(docs) < batchSize {
			return total, nil
		}
	}
}

func (r *MessageRepo) Watch(ctx context.Context, thread addressing.Thread, fn func([]domain.Message)) (store.Unsubscribe, error) {
	q := store.Collection(thread.MessagesCollection()).Order("timestamp", false)
	return r.store.Subscribe(ctx, q, func(docs []store.Document) {
		msgs, err := decodeMessages(docs)
		if err != nil {
			return
		}
		fn(msgs)
	})
}

func decodeMessages(docs []store.Document) ([]domain.Message, error) {
	msgs, err := decodeAll[domain.Message](docs)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		projection.Normalize(&msgs[i])
	}
	return msgs, nil
}
