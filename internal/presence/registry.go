// Package presence tracks which identities are online across every server
// instance, keyed by connection identifier in the shared state backend.
package presence

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/Tyrowin/relaychat/internal/store"
)

// Registry wraps the presence mapping with the room's display semantics:
// one entry per connection, lexicographically sorted unique names for
// rendering, and silent degradation when the backend is unavailable.
type Registry struct {
	store store.PresenceStore
	log   *zap.Logger
}

// NewRegistry creates a presence registry on top of the given store.
func NewRegistry(s store.PresenceStore, log *zap.Logger) *Registry {
	return &Registry{
		store: s,
		log:   log.With(zap.String("component", "presence")),
	}
}

// Register inserts a presence entry for the connection. Duplicate display
// names are accepted; uniqueness is the account layer's concern. A backend
// failure is logged and otherwise ignored so presence never blocks delivery.
func (r *Registry) Register(ctx context.Context, connID, name string) {
	if connID == "" || name == "" {
		r.log.Warn("presence register skipped, missing connection id or name",
			zap.String("conn_id", connID))
		return
	}
	if err := r.store.Put(ctx, connID, name); err != nil {
		r.log.Error("presence register failed",
			zap.String("conn_id", connID), zap.Error(err))
		return
	}
	r.log.Info("presence registered",
		zap.String("conn_id", connID), zap.String("nickname", name))
}

// Deregister removes the connection's entry and returns the display name it
// held. The boolean is false when the connection was never registered, was
// already removed, or the backend is unavailable; disconnect handling uses
// that to suppress leave announcements for connections that never joined.
func (r *Registry) Deregister(ctx context.Context, connID string) (string, bool) {
	if connID == "" {
		return "", false
	}
	name, found, err := r.store.Remove(ctx, connID)
	if err != nil {
		r.log.Error("presence deregister failed",
			zap.String("conn_id", connID), zap.Error(err))
		return "", false
	}
	if found {
		r.log.Info("presence deregistered",
			zap.String("conn_id", connID), zap.String("nickname", name))
	}
	return name, found
}

// ListOnline returns the unique display names currently registered, sorted
// lexicographically for deterministic client rendering. A backend failure
// yields an empty list.
func (r *Registry) ListOnline(ctx context.Context) []string {
	names, err := r.store.Names(ctx)
	if err != nil {
		r.log.Error("presence listing failed", zap.Error(err))
		return []string{}
	}

	seen := make(map[string]struct{}, len(names))
	unique := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}
	sort.Strings(unique)
	return unique
}
