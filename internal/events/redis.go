package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisRelay carries events between server instances over Redis pub/sub.
// Publish sends to the channel; the relay re-broadcasts whatever arrives on
// the channel into the local bus, including its own messages.
type RedisRelay struct {
	client  *redis.Client
	channel string
	bus     *Bus
}

// NewRedisRelay creates a relay for channel feeding bus.
func NewRedisRelay(client *redis.Client, channel string, bus *Bus) *RedisRelay {
	return &RedisRelay{client: client, channel: channel, bus: bus}
}

func (r *RedisRelay) Publish(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, raw).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", r.channel, err)
	}
	return nil
}

// Start subscribes to the channel and forwards messages until ctx ends.
// It returns once the subscription is confirmed.
func (r *RedisRelay) Start(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("subscribing to %s: %w", r.channel, err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					logrus.WithFields(logrus.Fields{
						"channel": r.channel,
						"error":   err.Error(),
					}).Warn("Dropping malformed event")
					continue
				}
				_ = r.bus.Publish(ctx, ev)
			}
		}
	}()
	return nil
}
