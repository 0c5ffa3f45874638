// Package memory is an in-process document store used by tests and local development.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vedran77/hive/internal/store"
)

type record struct {
	data    map[string]any
	version int64
	updated time.Time
}

type Store struct {
	mu   sync.RWMutex
	docs map[string]*record
	seq  int64
	feed *store.ChangeFeed
	now  func() time.Time

	// commitHook, when set, runs inside commit before validation. Tests use it to
	// interleave a competing writer.
	commitHook func()
}

func New() *Store {
	return &Store{
		docs: make(map[string]*record),
		feed: store.NewChangeFeed(),
		now:  time.Now,
	}
}

// SetCommitHook installs fn to run once at the start of the next commit.
func (s *Store) SetCommitHook(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitHook = fn
}

func (s *Store) Get(_ context.Context, path string) (*store.Document, error) {
	if err := store.ValidateDocPath(path); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.docs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, path)
	}
	return s.snapshot(path, rec), nil
}

func (s *Store) Create(ctx context.Context, path string, data any) error {
	return s.commit(ctx, nil, []store.WriteOp{store.CreateOp(path, data)})
}

func (s *Store) Set(ctx context.Context, path string, data any, opts ...store.SetOption) error {
	return s.commit(ctx, nil, []store.WriteOp{store.SetOp(path, data, opts...)})
}

func (s *Store) Update(ctx context.Context, path string, fields map[string]any) error {
	return s.commit(ctx, nil, []store.WriteOp{store.UpdateOp(path, fields)})
}

func (s *Store) Delete(ctx context.Context, path string) error {
	return s.commit(ctx, nil, []store.WriteOp{store.DeleteOp(path)})
}

func (s *Store) Query(_ context.Context, q store.Query) ([]store.Document, error) {
	s.mu.RLock()
	var docs []store.Document
	for path, rec := range s.docs {
		if q.InCollection(path) {
			docs = append(docs, *s.snapshot(path, rec))
		}
	}
	s.mu.RUnlock()
	return store.Apply(q, docs), nil
}

func (s *Store) Subscribe(ctx context.Context, q store.Query, fn func([]store.Document)) (store.Unsubscribe, error) {
	return s.feed.Watch(ctx, q, s.Query, fn)
}

func (s *Store) RunTransaction(ctx context.Context, fn func(tx store.Tx) error) error {
	return store.RunTransaction(ctx, s.Get, s.commit, fn)
}

func (s *Store) Batch(ctx context.Context, ops []store.WriteOp) error {
	if err := store.CheckBatch(ops); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}
	return s.commit(ctx, nil, ops)
}

func (s *Store) Close() error {
	return nil
}

// Subscribers reports live subscriptions.
func (s *Store) Subscribers() int {
	return s.feed.Len()
}

func (s *Store) commit(_ context.Context, reads map[string]int64, ops []store.WriteOp) error {
	s.mu.Lock()
	if hook := s.commitHook; hook != nil {
		s.commitHook = nil
		s.mu.Unlock()
		hook()
		s.mu.Lock()
	}

	for path, version := range reads {
		var current int64
		if rec, ok := s.docs[path]; ok {
			current = rec.version
		}
		if current != version {
			s.mu.Unlock()
			return store.ErrConflict
		}
	}

	staged, err := store.StageWrites(ops, func(path string) (map[string]any, bool, error) {
		rec, ok := s.docs[path]
		if !ok {
			return nil, false, nil
		}
		return rec.data, true, nil
	})
	if err != nil {
		s.mu.Unlock()
		return err
	}

	now := s.now()
	for _, st := range staged {
		if st.Deleted {
			delete(s.docs, st.Path)
			continue
		}
		s.seq++
		s.docs[st.Path] = &record{data: st.Data, version: s.seq, updated: now}
	}
	s.mu.Unlock()

	s.feed.Changed(store.Collections(staged)...)
	return nil
}

func (s *Store) snapshot(path string, rec *record) *store.Document {
	return &store.Document{
		Path:      path,
		ID:        store.IDOf(path),
		Data:      store.CloneData(rec.data),
		Version:   rec.version,
		UpdatedAt: rec.updated,
	}
}
