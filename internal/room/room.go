package room

import (
	"context"

	"go.uber.org/zap"

	"github.com/Tyrowin/relaychat/internal/account"
	"github.com/Tyrowin/relaychat/internal/history"
	"github.com/Tyrowin/relaychat/internal/presence"
	"github.com/Tyrowin/relaychat/internal/store"
)

// Broadcaster delivers a payload to every connection held by this process.
// The server hub implements it.
type Broadcaster interface {
	Broadcast(payload []byte)
}

// Room coordinates presence, history, and fan-out for the single shared chat
// room. Every event is published on the state backend's pub/sub channel so it
// reaches connections on every server instance; this process's own
// connections receive it back through the Bridge.
type Room struct {
	name     string
	presence *presence.Registry
	history  *history.Ring
	accounts account.Store
	pubsub   store.PubSub
	local    Broadcaster
	log      *zap.Logger
}

// New creates the room facade.
func New(
	name string,
	reg *presence.Registry,
	ring *history.Ring,
	accounts account.Store,
	pubsub store.PubSub,
	local Broadcaster,
	log *zap.Logger,
) *Room {
	return &Room{
		name:     name,
		presence: reg,
		history:  ring,
		accounts: accounts,
		pubsub:   pubsub,
		local:    local,
		log:      log.With(zap.String("component", "room"), zap.String("room", name)),
	}
}

// Name returns the room name.
func (r *Room) Name() string {
	return r.name
}

// Presence exposes the registry, primarily for health reporting and tests.
func (r *Room) Presence() *presence.Registry {
	return r.presence
}

// publish sends a frame to every subscriber across all processes. When the
// backend channel is unavailable the frame is delivered to this process's
// connections directly, so a backend outage degrades to local-only delivery
// instead of silencing the room.
func (r *Room) publish(ctx context.Context, payload []byte) {
	if len(payload) == 0 {
		return
	}
	if err := r.pubsub.Publish(ctx, payload); err != nil {
		r.log.Error("publish failed, falling back to local delivery", zap.Error(err))
		r.local.Broadcast(payload)
	}
}

// publishUserList broadcasts a fresh online-user snapshot to everyone.
func (r *Room) publishUserList(ctx context.Context) {
	r.publish(ctx, UserListFrame(r.presence.ListOnline(ctx)))
}

// color reads the account's current nickname color. Any failure degrades to
// the default so message delivery is never blocked on the account store.
func (r *Room) color(ctx context.Context, username string) string {
	color, err := r.accounts.Color(ctx, username)
	if err != nil {
		r.log.Warn("color lookup failed, using default",
			zap.String("username", username), zap.Error(err))
		return account.DefaultColor
	}
	if color == "" {
		return account.DefaultColor
	}
	return color
}
