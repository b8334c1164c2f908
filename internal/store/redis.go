package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Tyrowin/relaychat/internal/metrics"
)

const defaultTimeout = 3 * time.Second

var (
	_ PresenceStore = (*Redis)(nil)
	_ HistoryStore  = (*Redis)(nil)
	_ PubSub        = (*Redis)(nil)
)

// ClientConfig holds Redis connection settings.
type ClientConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewClient creates a Redis client and verifies connectivity. An unreachable
// backend is logged but not fatal: the client reconnects on its own and every
// consumer degrades per-operation in the meantime.
func NewClient(cfg ClientConfig, log *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable at startup, continuing degraded",
			zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		log.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}
	return client
}

// Redis adapts a Redis client to the PresenceStore, HistoryStore, and PubSub
// capabilities for a single room. Every call carries a bounded timeout so a
// dead backend cannot stall a connection's event loop.
type Redis struct {
	client  *redis.Client
	log     *zap.Logger
	timeout time.Duration

	presenceKey string
	historyKey  string
	channel     string
}

// RedisOptions configures the per-room keys and call timeout.
type RedisOptions struct {
	// Room names the single broadcast scope; keys are derived from it.
	Room string

	// Timeout bounds each backend call. Defaults to 3s.
	Timeout time.Duration
}

// NewRedis creates the Redis state adapter for one room.
func NewRedis(client *redis.Client, opts RedisOptions, log *zap.Logger) *Redis {
	if opts.Room == "" {
		opts.Room = "general_chat"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Redis{
		client:      client,
		log:         log.With(zap.String("component", "redis_store")),
		timeout:     opts.Timeout,
		presenceKey: "room:" + opts.Room + ":presence",
		historyKey:  "room:" + opts.Room + ":messages",
		channel:     "room:" + opts.Room + ":events",
	}
}

func (r *Redis) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *Redis) fail(op string, err error) error {
	metrics.BackendErrors.WithLabelValues(op).Inc()
	return fmt.Errorf("%s: %w", op, err)
}

// Put maps a connection identifier to a display name.
func (r *Redis) Put(ctx context.Context, connID, name string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.HSet(ctx, r.presenceKey, connID, name).Err(); err != nil {
		return r.fail("presence_put", err)
	}
	return nil
}

// Remove deletes a connection's presence entry and reports the name it held.
// The read and the delete are separate commands, matching the backend's
// single-key atomicity model.
func (r *Redis) Remove(ctx context.Context, connID string) (string, bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	name, err := r.client.HGet(ctx, r.presenceKey, connID).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, r.fail("presence_remove", err)
	}
	if err := r.client.HDel(ctx, r.presenceKey, connID).Err(); err != nil {
		return "", false, r.fail("presence_remove", err)
	}
	return name, true, nil
}

// Names returns every mapped display name, duplicates included.
func (r *Redis) Names(ctx context.Context) ([]string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	names, err := r.client.HVals(ctx, r.presenceKey).Result()
	if err != nil {
		return nil, r.fail("presence_names", err)
	}
	return names, nil
}

// Push prepends a record to the history log.
func (r *Redis) Push(ctx context.Context, record string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.LPush(ctx, r.historyKey, record).Err(); err != nil {
		return r.fail("history_push", err)
	}
	return nil
}

// Trim discards log entries beyond the newest keep records.
func (r *Redis) Trim(ctx context.Context, keep int) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.LTrim(ctx, r.historyKey, 0, int64(keep)-1).Err(); err != nil {
		return r.fail("history_trim", err)
	}
	return nil
}

// Range returns up to limit records, newest first.
func (r *Redis) Range(ctx context.Context, limit int) ([]string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	records, err := r.client.LRange(ctx, r.historyKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, r.fail("history_range", err)
	}
	return records, nil
}

// Publish sends payload on the room channel.
func (r *Redis) Publish(ctx context.Context, payload []byte) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return r.fail("publish", err)
	}
	return nil
}

// Subscribe opens a subscription to the room channel. The go-redis client
// resubscribes transparently after connection loss, so the returned feed stays
// open across transient outages.
func (r *Redis) Subscribe(ctx context.Context) (Subscription, error) {
	ps := r.client.Subscribe(ctx, r.channel)

	confirmCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if _, err := ps.Receive(confirmCtx); err != nil {
		_ = ps.Close()
		return nil, r.fail("subscribe", err)
	}

	sub := &redisSubscription{ps: ps, events: make(chan []byte, 64)}
	go sub.pump()
	return sub, nil
}

type redisSubscription struct {
	ps     *redis.PubSub
	events chan []byte
}

func (s *redisSubscription) pump() {
	defer close(s.events)
	for msg := range s.ps.Channel() {
		s.events <- []byte(msg.Payload)
	}
}

func (s *redisSubscription) Events() <-chan []byte {
	return s.events
}

func (s *redisSubscription) Close() error {
	return s.ps.Close()
}
