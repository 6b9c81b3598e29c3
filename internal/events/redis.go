package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/omnidesk/internal/logging"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel used for invalidation events.
const DefaultChannel = "omnidesk:invalidations"

// NewRedisClient connects to addr and pings it with a short timeout.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// RedisBus publishes and receives events over Redis pub/sub.
type RedisBus struct {
	client  *redis.Client
	channel string
	log     logging.Logger
}

func NewRedisBus(client *redis.Client, channel string, log logging.Logger) *RedisBus {
	if channel == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = logging.Nop()
	}
	return &RedisBus{client: client, channel: channel, log: log}
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe blocks until ctx is done. Malformed messages are logged and
// skipped.
func (b *RedisBus) Subscribe(ctx context.Context, fn func(Event)) error {
	ps := b.client.Subscribe(ctx, b.channel)
	defer ps.Close()

	// Wait for the subscription to be confirmed.
	if _, err := ps.Receive(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warn(ctx, "malformed event", "channel", msg.Channel, "error", err)
				continue
			}
			fn(ev)
		}
	}
}
