package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
)

const DefaultChannel = "fintrack:changes"

// RedisBridge relays changes between hubs of several server processes that
// share one database. Local changes are published to a redis channel and
// changes from other origins are replayed into the local hub.
type RedisBridge struct {
	client  *redis.Client
	hub     *Hub
	channel string

	outbox chan Change
	ready  chan struct{}
}

func NewRedisBridge(client *redis.Client, hub *Hub, channel string) *RedisBridge {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBridge{
		client:  client,
		hub:     hub,
		channel: channel,
		outbox:  make(chan Change, 256),
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the redis subscription is confirmed.
func (b *RedisBridge) Ready() <-chan struct{} {
	return b.ready
}

// Run blocks until ctx is done or the subscription fails.
func (b *RedisBridge) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	unregister := b.hub.OnChange(func(c Change) {
		if c.Origin != b.hub.Origin() {
			return
		}
		select {
		case b.outbox <- c:
		default:
			slog.Warn("Redis bridge outbox full, dropping change", "id", c.ID, "op", c.Op)
		}
	})
	defer unregister()

	close(b.ready)
	slog.InfoContext(ctx, "Redis change bridge started", "channel", b.channel, "origin", b.hub.Origin())

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-b.outbox:
			if err := b.publish(ctx, c); err != nil {
				slog.ErrorContext(ctx, "Failed to publish change to redis", "error", err, "id", c.ID)
			}
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("redis subscription closed")
			}
			var c Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				slog.WarnContext(ctx, "Ignoring malformed change message", "error", err)
				continue
			}
			if c.Origin == "" || c.Origin == b.hub.Origin() {
				continue
			}
			b.hub.Publish(c)
		}
	}
}

func (b *RedisBridge) publish(ctx context.Context, c Change) error {
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	return b.client.Publish(ctx, b.channel, body).Err()
}
