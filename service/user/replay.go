package user

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReplayGuard remembers webhook message ids that were already processed.
type ReplayGuard interface {
	Seen(ctx context.Context, id string) (bool, error)
	Mark(ctx context.Context, id string) error
}

// RedisReplayGuard keeps processed ids in Redis with a TTL.
type RedisReplayGuard struct {
	client *redis.Client
	ttl    time.Duration
}

const replayKeyPrefix = "webhook:svix:"

func NewRedisReplayGuard(client *redis.Client, ttl time.Duration) *RedisReplayGuard {
	return &RedisReplayGuard{client: client, ttl: ttl}
}

// NewRedisReplayGuardFromURL parses a redis:// URL and pings the server.
func NewRedisReplayGuardFromURL(ctx context.Context, rawURL string, ttl time.Duration) (*RedisReplayGuard, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return NewRedisReplayGuard(client, ttl), nil
}

func (g *RedisReplayGuard) Seen(ctx context.Context, id string) (bool, error) {
	err := g.client.Get(ctx, replayKeyPrefix+id).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (g *RedisReplayGuard) Mark(ctx context.Context, id string) error {
	return g.client.Set(ctx, replayKeyPrefix+id, 1, g.ttl).Err()
}

func (g *RedisReplayGuard) Close() error {
	return g.client.Close()
}
