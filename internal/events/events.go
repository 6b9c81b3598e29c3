// Package events carries invalidation signals between processes: the table
// backend publishes one event per successful write and clients apply them
// to their query caches.
package events

import (
	"context"
	"time"
)

// Event describes a committed write.
type Event struct {
	// Origin is the client that issued the write, so it can skip its own
	// events.
	Origin   string    `json:"origin,omitempty"`
	Table    string    `json:"table"`
	Op       string    `json:"op"`
	TenantID string    `json:"tenant_id"`
	At       time.Time `json:"at"`
}

const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscriber delivers events to fn until ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, fn func(Event)) error
}

type nop struct{}

// Nop is a bus that drops everything, for deployments without Redis.
func Nop() interface {
	Publisher
	Subscriber
} {
	return nop{}
}

func (nop) Publish(context.Context, Event) error { return nil }

func (nop) Subscribe(ctx context.Context, _ func(Event)) error {
	<-ctx.Done()
	return nil
}
