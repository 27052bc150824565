package mfa

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisReplayGuard marks codes with SET NX so a code is accepted once per
// validity window, across every server instance sharing the Redis.
type RedisReplayGuard struct {
	rdb *redis.Client
}

func NewRedisReplayGuard(rdb *redis.Client) *RedisReplayGuard {
	return &RedisReplayGuard{rdb: rdb}
}

func (g *RedisReplayGuard) MarkUsed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return g.rdb.SetNX(ctx, key, 1, ttl).Result()
}
