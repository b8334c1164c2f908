package room

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Tyrowin/relaychat/internal/store"
)

const (
	bridgeInitialBackoff = time.Second
	bridgeMaxBackoff     = 30 * time.Second
)

// Bridge connects the state backend's pub/sub channel to this process's hub.
// Each process runs exactly one Bridge: events published by any instance come
// back through the subscription and are re-emitted to locally-held
// connections.
type Bridge struct {
	pubsub store.PubSub
	local  Broadcaster
	log    *zap.Logger
}

// NewBridge creates the fan-out bridge.
func NewBridge(pubsub store.PubSub, local Broadcaster, log *zap.Logger) *Bridge {
	return &Bridge{
		pubsub: pubsub,
		local:  local,
		log:    log.With(zap.String("component", "bridge")),
	}
}

// Run subscribes to the room channel and forwards every payload to the local
// hub until ctx is cancelled. Lost subscriptions are reopened with capped
// exponential backoff; while disconnected, publishers fall back to local
// delivery on their own.
func (b *Bridge) Run(ctx context.Context) {
	backoff := bridgeInitialBackoff

	for {
		sub, err := b.pubsub.Subscribe(ctx)
		if err != nil {
			b.log.Warn("subscribe failed, retrying",
				zap.Duration("backoff", backoff), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > bridgeMaxBackoff {
				backoff = bridgeMaxBackoff
			}
			continue
		}

		backoff = bridgeInitialBackoff
		b.log.Info("subscribed to room channel")

		if !b.forward(ctx, sub) {
			return
		}
		b.log.Warn("room subscription lost, resubscribing")
	}
}

// forward drains the subscription into the local hub. It returns false when
// ctx was cancelled and true when the subscription itself ended.
func (b *Bridge) forward(ctx context.Context, sub store.Subscription) bool {
	defer func() {
		if err := sub.Close(); err != nil {
			b.log.Debug("subscription close error", zap.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return false
		case payload, ok := <-sub.Events():
			if !ok {
				return true
			}
			if len(payload) > 0 {
				b.local.Broadcast(payload)
			}
		}
	}
}
