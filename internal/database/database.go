// Package database opens the storage backend selected in config.
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/vedran77/hive/internal/config"
	"github.com/vedran77/hive/internal/store"
	"github.com/vedran77/hive/internal/store/memory"
	"github.com/vedran77/hive/internal/store/pebble"
	"github.com/vedran77/hive/internal/store/postgres"
	"github.com/vedran77/hive/internal/store/redisbus"
)

// Backend is an opened store plus whatever must be closed with it.
type Backend struct {
	Store store.Store
	// Feed is nil for the memory driver, which notifies its own subscribers.
	Feed    *store.ChangeFeed
	closers []func() error
}

func (b *Backend) Close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type busAware interface {
	store.Store
	SetChangeBus(bus store.ChangeBus)
	Feed() *store.ChangeFeed
}

// Open connects the configured driver and, when REDIS_URL is set, attaches
// the cross-instance change bus. The bus listener runs until ctx is done.
func Open(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*Backend, error) {
	b := &Backend{}

	var shared busAware
	switch cfg.StoreDriver {
	case config.DriverMemory:
		mem := memory.New()
		b.Store = mem
		b.closers = append(b.closers, mem.Close)
	case config.DriverPebble:
		db, err := pebble.Open(cfg.PebblePath, log)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		shared = db
	case config.DriverPostgres:
		pool, err := Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() error {
			pool.Close()
			return nil
		})
		pg := postgres.New(pool, log)
		if err := pg.EnsureSchema(ctx); err != nil {
			b.Close()
			return nil, err
		}
		shared = pg
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if shared != nil {
		b.Store = shared
		b.Feed = shared.Feed()
	}

	if cfg.RedisURL != "" && shared != nil {
		bus, err := redisbus.Connect(ctx, cfg.RedisURL, log)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, bus.Close)
		shared.SetChangeBus(bus)
		go func() {
			if err := bus.Run(ctx, b.Feed); err != nil && ctx.Err() == nil {
				log.WithError(err).Error("change bus stopped")
			}
		}()
	}

	log.WithField("driver", cfg.StoreDriver).Info("store opened")
	return b, nil
}

func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)

	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}
