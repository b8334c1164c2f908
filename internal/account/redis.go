package account

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Tyrowin/relaychat/internal/metrics"
)

const (
	userKeyPrefix    = "user:"
	sessionKeyPrefix = "session:"
	colorField       = "nickname_color"
)

// RedisStore reads account preferences from the shared backend. The account
// system writes the same hashes; this side only touches the color field.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
	log     *zap.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates the Redis-backed account store.
func NewRedisStore(client *redis.Client, timeout time.Duration, log *zap.Logger) *RedisStore {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &RedisStore{
		client:  client,
		timeout: timeout,
		log:     log.With(zap.String("component", "account_store")),
	}
}

// Color returns the account's stored nickname color, or DefaultColor when no
// preference is set.
func (s *RedisStore) Color(ctx context.Context, username string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	color, err := s.client.HGet(ctx, userKeyPrefix+username, colorField).Result()
	if err == redis.Nil || (err == nil && color == "") {
		return DefaultColor, nil
	}
	if err != nil {
		metrics.BackendErrors.WithLabelValues("account_color").Inc()
		return DefaultColor, fmt.Errorf("account color lookup: %w", err)
	}
	return color, nil
}

// UpdateColor persists a new nickname color for the account.
func (s *RedisStore) UpdateColor(ctx context.Context, username, color string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.HSet(ctx, userKeyPrefix+username, colorField, color).Err(); err != nil {
		metrics.BackendErrors.WithLabelValues("account_update_color").Inc()
		return fmt.Errorf("account color update: %w", err)
	}
	s.log.Info("nickname color updated",
		zap.String("username", username), zap.String("color", color))
	return nil
}

// RedisAuthenticator resolves session tokens written by the login flow.
type RedisAuthenticator struct {
	client  *redis.Client
	timeout time.Duration
	log     *zap.Logger
}

var _ Authenticator = (*RedisAuthenticator)(nil)

// NewRedisAuthenticator creates the Redis-backed session resolver.
func NewRedisAuthenticator(client *redis.Client, timeout time.Duration, log *zap.Logger) *RedisAuthenticator {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &RedisAuthenticator{
		client:  client,
		timeout: timeout,
		log:     log.With(zap.String("component", "authenticator")),
	}
}

// Authenticate maps a session token to the username it was issued for.
func (a *RedisAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnknownSession
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	username, err := a.client.Get(ctx, sessionKeyPrefix+token).Result()
	if err == redis.Nil {
		return "", ErrUnknownSession
	}
	if err != nil {
		metrics.BackendErrors.WithLabelValues("authenticate").Inc()
		return "", fmt.Errorf("session lookup: %w", err)
	}
	if username == "" {
		return "", ErrUnknownSession
	}
	return username, nil
}
