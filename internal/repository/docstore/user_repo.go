package docstore

import (
	"context"
	"strings"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/store"
)

type UserRepo struct {
	store store.Store
}

func NewUserRepo(s store.Store) *UserRepo {
	return &UserRepo{store: s}
}

func (r *UserRepo) Save(ctx context.Context, user *domain.User) error {
	return r.store.Set(ctx, addressing.UserPath(user.ID), user, store.Merge())
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return get[domain.User](ctx, r.store, addressing.UserPath(id))
}

// GetMany skips ids without a user document.
func (r *UserRepo) GetMany(ctx context.Context, ids []string) (map[string]domain.User, error) {
	out := make(map[string]domain.User, len(ids))
	for _, id := range ids {
		if _, seen := out[id]; seen || id == "" {
			continue
		}
		u, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if u != nil {
			out[id] = *u
		}
	}
	return out, nil
}

func (r *UserRepo) CreateCredentials(ctx context.Context, creds *domain.Credentials) error {
	creds.Email = strings.ToLower(creds.Email)
	return create(ctx, r.store, addressing.CredentialsPath(creds.Email), creds)
}

func (r *UserRepo) GetCredentials(ctx context.Context, email string) (*domain.Credentials, error) {
	return get[domain.Credentials](ctx, r.store, addressing.CredentialsPath(email))
}
