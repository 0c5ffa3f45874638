package docstore

import (
	"context"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/store"
)

// RetentionRepo is the append-only audit log of cleanup runs.
type RetentionRepo struct {
	store store.Store
}

func NewRetentionRepo(s store.Store) *RetentionRepo {
	return &RetentionRepo{store: s}
}

func (r *RetentionRepo) Append(ctx context.Context, result *domain.CleanupResult) error {
	return create(ctx, r.store, addressing.RetentionRunPath(result.ID), result)
}

func (r *RetentionRepo) List(ctx context.Context, limit int) ([]domain.CleanupResult, error) {
	q := store.Collection(addressing.RetentionRunsCollection).Order("timestamp", true)
	if limit > 0 {
		q = q.Take(limit)
	}
	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.CleanupResult](docs)
}
