// Package store defines the capability interfaces the relay core depends on
// for shared state, plus the Redis adapter and an in-memory double. Components
// receive these interfaces by injection; nothing in the core holds a
// process-wide backend handle.
package store

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by the in-memory double when it simulates a
// backend outage. The Redis adapter returns the underlying client errors.
var ErrUnavailable = errors.New("state backend unavailable")

// PresenceStore holds the cluster-wide mapping from connection identifier to
// display name. At most one entry exists per connection identifier.
type PresenceStore interface {
	// Put inserts or replaces the entry for connID.
	Put(ctx context.Context, connID, name string) error

	// Remove deletes the entry for connID and returns the name it held.
	// The boolean is false when no entry existed, which is distinct from an
	// entry holding an empty name.
	Remove(ctx context.Context, connID string) (string, bool, error)

	// Names returns the display names of every current entry, duplicates
	// included.
	Names(ctx context.Context) ([]string, error)
}

// HistoryStore holds the bounded, newest-first message log.
type HistoryStore interface {
	// Push prepends a serialized record to the log.
	Push(ctx context.Context, record string) error

	// Trim discards everything beyond the newest keep records.
	Trim(ctx context.Context, keep int) error

	// Range returns up to limit records, newest first.
	Range(ctx context.Context, limit int) ([]string, error)
}

// PubSub is the cross-process broadcast channel for the room.
type PubSub interface {
	// Publish delivers payload to every subscriber on every process.
	Publish(ctx context.Context, payload []byte) error

	// Subscribe opens a subscription to the room channel.
	Subscribe(ctx context.Context) (Subscription, error)
}

// Subscription is a live feed of published payloads. Events is closed when
// the subscription ends.
type Subscription interface {
	Events() <-chan []byte
	Close() error
}
