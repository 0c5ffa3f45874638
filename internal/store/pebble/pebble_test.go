package pebble

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/hive/internal/store"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	log, _ := test.NewNullLogger()
	path := filepath.Join(t.TempDir(), "db")
	s, err := Open(path, log)
	require.NoError(t, err)
	return s, path
}

func TestWriteQueryAndReopen(t *testing.T) {
	s, path := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "rooms/b", map[string]any{"ts": 2}))
	require.NoError(t, s.Set(ctx, "rooms/a", map[string]any{"ts": 1}))
	require.NoError(t, s.Set(ctx, "rooms/a/messages/m1", map[string]any{"ts": 9}))
	require.NoError(t, s.Set(ctx, "roomsx/z", map[string]any{"ts": 0}))

	docs, err := s.Query(ctx, store.Collection("rooms").Order("ts", true))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0].ID)
	assert.Equal(t, "a", docs[1].ID)

	before, err := s.Get(ctx, "rooms/b")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	log, _ := test.NewNullLogger()
	log.SetLevel(logrus.PanicLevel)
	s, err = Open(path, log)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Update(ctx, "rooms/b", map[string]any{"ts": store.Increment(1)}))
	after, err := s.Get(ctx, "rooms/b")
	require.NoError(t, err)
	assert.Greater(t, after.Version, before.Version, "versions survive a reopen")
	assert.Equal(t, float64(3), after.Data["ts"])
}

func TestTransactionAndCreate(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "rooms/a", map[string]any{"n": 0}))
	assert.ErrorIs(t, s.Create(ctx, "rooms/a", map[string]any{"n": 1}), store.ErrAlreadyExists)

	err := s.RunTransaction(ctx, func(tx store.Tx) error {
		doc, err := tx.Get("rooms/a")
		if err != nil {
			return err
		}
		tx.Update("rooms/a", map[string]any{"n": doc.Data["n"].(float64) + 1})
		tx.Delete("rooms/ghost")
		return nil
	})
	require.NoError(t, err)

	doc, err := s.Get(ctx, "rooms/a")
	require.NoError(t, err)
	assert.Equal(t, float64(1), doc.Data["n"])

	_, err = s.Get(ctx, "rooms/ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
