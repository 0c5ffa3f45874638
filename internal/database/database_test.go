package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/hive/internal/config"
)

func TestOpenMemory(t *testing.T) {
	log, _ := test.NewNullLogger()
	b, err := Open(context.Background(), &config.Config{StoreDriver: config.DriverMemory}, log)
	require.NoError(t, err)
	assert.NotNil(t, b.Store)
	assert.Nil(t, b.Feed)
	assert.NoError(t, b.Close())
}

func TestOpenPebble(t *testing.T) {
	log, _ := test.NewNullLogger()
	cfg := &config.Config{StoreDriver: config.DriverPebble, PebblePath: filepath.Join(t.TempDir(), "db")}

	b, err := Open(context.Background(), cfg, log)
	require.NoError(t, err)
	require.NoError(t, b.Store.Set(context.Background(), "users/u1", map[string]any{"display_name": "Ana"}))
	assert.NotNil(t, b.Feed)
	require.NoError(t, b.Close())
}

func TestOpenUnknownDriver(t *testing.T) {
	log, _ := test.NewNullLogger()
	_, err := Open(context.Background(), &config.Config{StoreDriver: "mongo"}, log)
	assert.Error(t, err)
}
