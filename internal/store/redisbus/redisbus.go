// Package redisbus fans document change notifications out to every hive
// instance through Redis pub/sub, so subscriptions opened on one instance see
// commits made on another.
package redisbus

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vedran77/hive/internal/store"
)

const DefaultChannel = "hive:changes"

type event struct {
	Origin      string   `json:"origin"`
	Collections []string `json:"collections"`
	Timestamp   int64    `json:"timestamp"`
}

type Bus struct {
	rdb     *redis.Client
	channel string
	origin  string
	log     logrus.FieldLogger
}

// Connect parses url, pings the server and returns a bus on DefaultChannel.
func Connect(ctx context.Context, url string, log logrus.FieldLogger) (*Bus, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	log.Info("connected to redis")
	return New(rdb, DefaultChannel, log), nil
}

func New(rdb *redis.Client, channel string, log logrus.FieldLogger) *Bus {
	return &Bus{
		rdb:     rdb,
		channel: channel,
		origin:  uuid.NewString(),
		log:     log,
	}
}

func (b *Bus) Publish(ctx context.Context, collections []string) error {
	if len(collections) == 0 {
		return nil
	}
	payload, err := json.Marshal(event{
		Origin:      b.origin,
		Collections: collections,
		Timestamp:   time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, payload).Err()
}

// Run replays changes published by other instances into feed until ctx ends.
func (b *Bus) Run(ctx context.Context, feed *store.ChangeFeed) error {
	pubsub := b.rdb.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", b.channel, err)
	}
	b.log.WithField("channel", b.channel).Info("listening for remote changes")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			origin, collections, err := decode(msg.Payload)
			if err != nil {
				b.log.WithError(err).Warn("dropping malformed change event")
				continue
			}
			if origin == b.origin {
				continue
			}
			feed.Changed(collections...)
		}
	}
}

func (b *Bus) Close() error {
	return b.rdb.Close()
}

func decode(payload string) (string, []string, error) {
	var ev event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return "", nil, err
	}
	return ev.Origin, ev.Collections, nil
}
