package revocations

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "gophauth:rt"
	minTTL        = time.Second
)

// RedisRepository keeps one key per revoked jti with an expiry.
type RedisRepository struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisRepository binds the repository to client. An empty prefix selects
// the default key namespace.
func NewRedisRepository(client redis.UniversalClient, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) key(jti string) string {
	return r.prefix + ":" + jti
}

func (r *RedisRepository) Consume(ctx context.Context, jti string, ttl time.Duration) error {
	ok, err := r.client.SetNX(ctx, r.key(jti), 1, clampTTL(ttl)).Result()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if !ok {
		return common.ErrTokenRevoked
	}
	return nil
}

func (r *RedisRepository) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(jti), 1, clampTTL(ttl)).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (r *RedisRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return n > 0, nil
}

// Ping checks connectivity.
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// A zero TTL would make the key permanent.
func clampTTL(ttl time.Duration) time.Duration {
	if ttl < minTTL {
		return minTTL
	}
	return ttl
}
