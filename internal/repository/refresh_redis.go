package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const RedisRefreshPrefix = "classroom:auth:refresh:"

// RedisRefreshRegistry stores one key per refresh token, expiring with it.
type RedisRefreshRegistry struct {
	rdb    redis.Cmdable
	prefix string
}

func NewRedisRefreshRegistry(rdb redis.Cmdable) *RedisRefreshRegistry {
	return &RedisRefreshRegistry{rdb: rdb, prefix: RedisRefreshPrefix}
}

func (r *RedisRefreshRegistry) Allow(ctx context.Context, jti string, userID int64, ttl time.Duration) error {
	return r.rdb.Set(ctx, r.prefix+jti, strconv.FormatInt(userID, 10), ttl).Err()
}

func (r *RedisRefreshRegistry) Active(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *RedisRefreshRegistry) Revoke(ctx context.Context, jti string) error {
	return r.rdb.Del(ctx, r.prefix+jti).Err()
}
