// Package pebble is a single-node document store on an embedded Pebble database.
package pebble

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/vedran77/hive/internal/store"
)

const (
	docPrefix = "doc/"
	seqKey    = "meta/seq"
)

type envelope struct {
	Version int64          `json:"version"`
	Updated int64          `json:"updated"`
	Data    map[string]any `json:"data"`
}

type Store struct {
	db  *pebble.DB
	log logrus.FieldLogger

	// commits are serialised; pebble batches give atomicity, the mutex gives
	// read-validate-write isolation
	mu  sync.Mutex
	seq int64

	feed *store.ChangeFeed
	bus  store.ChangeBus
}

func Open(path string, log logrus.FieldLogger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating pebble dir: %w", err)
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening pebble at %s: %w", path, err)
	}
	s := &Store{db: db, log: log, feed: store.NewChangeFeed()}

	v, closer, err := db.Get([]byte(seqKey))
	switch {
	case errors.Is(err, pebble.ErrNotFound):
	case err != nil:
		db.Close()
		return nil, fmt.Errorf("reading sequence: %w", err)
	default:
		s.seq = int64(binary.BigEndian.Uint64(v))
		closer.Close()
	}
	log.WithField("path", path).Info("pebble store opened")
	return s, nil
}

// SetChangeBus publishes commits to other processes.
func (s *Store) SetChangeBus(bus store.ChangeBus) {
	s.bus = bus
}

// Feed exposes the local change feed so a bus can replay remote changes into it.
func (s *Store) Feed() *store.ChangeFeed {
	return s.feed
}

func (s *Store) Get(_ context.Context, path string) (*store.Document, error) {
	if err := store.ValidateDocPath(path); err != nil {
		return nil, err
	}
	env, ok, err := s.read(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, path)
	}
	return toDocument(path, env), nil
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
	prefix := []byte(docPrefix + q.Collection + "/")
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var docs []store.Document
	for iter.First(); iter.Valid(); iter.Next() {
		path := string(iter.Key()[len(docPrefix):])
		if !q.InCollection(path) {
			continue
		}
		var env envelope
		if err := json.Unmarshal(iter.Value(), &env); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		if store.Match(env.Data, q.Filters) {
			docs = append(docs, *toDocument(path, &env))
		}
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
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
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) commit(ctx context.Context, reads map[string]int64, ops []store.WriteOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for path, version := range reads {
		env, ok, err := s.read(path)
		if err != nil {
			return err
		}
		var current int64
		if ok {
			current = env.Version
		}
		if current != version {
			return store.ErrConflict
		}
	}

	staged, err := store.StageWrites(ops, func(path string) (map[string]any, bool, error) {
		env, ok, err := s.read(path)
		if err != nil || !ok {
			return nil, false, err
		}
		return env.Data, true, nil
	})
	if err != nil {
		return err
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	seq := s.seq
	now := time.Now().UnixMilli()
	for _, st := range staged {
		key := []byte(docPrefix + st.Path)
		if st.Deleted {
			if err := batch.Delete(key, nil); err != nil {
				return err
			}
			continue
		}
		seq++
		b, err := json.Marshal(envelope{Version: seq, Updated: now, Data: st.Data})
		if err != nil {
			return fmt.Errorf("encoding %s: %w", st.Path, err)
		}
		if err := batch.Set(key, b, nil); err != nil {
			return err
		}
	}
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], uint64(seq))
	if err := batch.Set([]byte(seqKey), seqBuf[:], nil); err != nil {
		return err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	s.seq = seq

	collections := store.Collections(staged)
	s.feed.Changed(collections...)
	if s.bus != nil {
		if err := s.bus.Publish(ctx, collections); err != nil {
			s.log.WithError(err).Warn("change bus publish failed")
		}
	}
	return nil
}

func (s *Store) read(path string) (*envelope, bool, error) {
	v, closer, err := s.db.Get([]byte(docPrefix + path))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", path, err)
	}
	defer closer.Close()

	var env envelope
	if err := json.Unmarshal(v, &env); err != nil {
		return nil, false, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &env, true, nil
}

func toDocument(path string, env *envelope) *store.Document {
	return &store.Document{
		Path:      path,
		ID:        store.IDOf(path),
		Data:      env.Data,
		Version:   env.Version,
		UpdatedAt: time.UnixMilli(env.Updated),
	}
}

func upperBound(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	end[len(end)-1]++
	return end
}
