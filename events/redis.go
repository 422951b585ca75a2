package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/totegamma/chatkit"
)

const DefaultChannel = "chatkit:events"

func NewRedis(addr string, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// redisPublisher is the part of *redis.Client the publisher uses.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher forwards session events to a redis channel.
type RedisPublisher struct {
	rdb     redisPublisher
	channel string
}

func NewRedisPublisher(rdb redisPublisher, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{
		rdb:     rdb,
		channel: channel,
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, event chatkit.Event) error {
	jsonstr, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to encode event")
	}

	err = p.rdb.Publish(ctx, p.channel, jsonstr).Err()
	if err != nil {
		return errors.Wrapf(err, "failed to publish to %s", p.channel)
	}

	return nil
}

// Handle publishes the event and logs failures; it is meant to be
// subscribed to a Bus.
func (p *RedisPublisher) Handle(ctx context.Context, event chatkit.Event) {
	if err := p.Publish(ctx, event); err != nil {
		slog.ErrorContext(
			ctx, "Failed to publish event",
			slog.String("type", event.Type),
			slog.String("error", err.Error()),
			slog.String("module", "events"),
		)
	}
}
