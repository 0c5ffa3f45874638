// Package docstore implements the repositories on top of store.Store.
package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/vedran77/hive/internal/repository"
	"github.com/vedran77/hive/internal/store"
)

// Repos bundles every repository over one store.
type Repos struct {
	Users         *UserRepo
	Settings      *SettingsRepo
	Communities   *CommunityRepo
	Channels      *ChannelRepo
	Messages      *MessageRepo
	Conversations *ConversationRepo
	Activity      *ActivityRepo
	Retention     *RetentionRepo
}

var (
	_ repository.UserRepository         = (*UserRepo)(nil)
	_ repository.SettingsRepository     = (*SettingsRepo)(nil)
	_ repository.CommunityRepository    = (*CommunityRepo)(nil)
	_ repository.ChannelRepository      = (*ChannelRepo)(nil)
	_ repository.MessageRepository      = (*MessageRepo)(nil)
	_ repository.ConversationRepository = (*ConversationRepo)(nil)
	_ repository.ActivityRepository     = (*ActivityRepo)(nil)
	_ repository.RetentionRepository    = (*RetentionRepo)(nil)
)

func New(s store.Store) *Repos {
	messages := NewMessageRepo(s)
	channels := NewChannelRepo(s, messages)
	return &Repos{
		Users:         NewUserRepo(s),
		Settings:      NewSettingsRepo(s),
		Communities:   NewCommunityRepo(s, channels),
		Channels:      channels,
		Messages:      messages,
		Conversations: NewConversationRepo(s),
		Activity:      NewActivityRepo(s),
		Retention:     NewRetentionRepo(s),
	}
}

func get[T any](ctx context.Context, s store.Store, path string) (*T, error) {
	doc, err := s.Get(ctx, path)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decode[T](doc)
}

func decode[T any](doc *store.Document) (*T, error) {
	var v T
	if err := doc.DataTo(&v); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", doc.Path, err)
	}
	return &v, nil
}

func decodeAll[T any](docs []store.Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for i := range docs {
		v, err := decode[T](&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func create(ctx context.Context, s store.Store, path string, data any) error {
	err := s.Create(ctx, path, data)
	if errors.Is(err, store.ErrAlreadyExists) {
		return repository.ErrDuplicate
	}
	return err
}

// mutate loads path, hands a decoded copy to fn and writes it back in one
// transaction. It returns (nil, nil) when path does not exist.
func mutate[T any](ctx context.Context, s store.Store, path string, fn func(v *T) error) (*T, error) {
	var out *T
	err := s.RunTransaction(ctx, func(tx store.Tx) error {
		out = nil
		doc, err := tx.Get(path)
		if err != nil {
			return err
		}
		v, err := decode[T](doc)
		if err != nil {
			return err
		}
		if err := fn(v); err != nil {
			if errors.Is(err, repository.ErrNoChange) {
				out = v
				return nil
			}
			return err
		}
		tx.Set(path, v)
		out = v
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return out, err
}

// batched commits ops in chunks of at most size.
func batched(ctx context.Context, s store.Store, ops []store.WriteOp, size int) error {
	for _, chunk := range store.Chunk(ops, size) {
		if err := s.Batch(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}
