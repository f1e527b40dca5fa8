package client

import (
	"context"
	"fmt"

	"classroom/pkg/constraints"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisKeyPrefix = "classroom:client:"

// RedisTokenStore shares one credential pair between processes through Redis.
type RedisTokenStore struct {
	rdb        redis.Cmdable
	accessKey  string
	refreshKey string
}

func NewRedisTokenStore(rdb redis.Cmdable, prefix string) *RedisTokenStore {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisTokenStore{
		rdb:        rdb,
		accessKey:  prefix + constraints.KeyAccessToken,
		refreshKey: prefix + constraints.KeyRefreshToken,
	}
}

func (s *RedisTokenStore) Get(ctx context.Context) (Credentials, error) {
	vals, err := s.rdb.MGet(ctx, s.accessKey, s.refreshKey).Result()
	if err != nil {
		return Credentials{}, fmt.Errorf("redis token get: %w", err)
	}

	var creds Credentials
	if len(vals) == 2 {
		// Missing keys come back as nil entries.
		creds.Access, _ = vals[0].(string)
		creds.Refresh, _ = vals[1].(string)
	}
	return creds, nil
}

func (s *RedisTokenStore) Set(ctx context.Context, access, refresh string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.accessKey, access, 0)
		if refresh != "" {
			pipe.Set(ctx, s.refreshKey, refresh, 0)
		} else {
			pipe.Del(ctx, s.refreshKey)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis token set: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) SetAccess(ctx context.Context, access string) error {
	if err := s.rdb.Set(ctx, s.accessKey, access, 0).Err(); err != nil {
		return fmt.Errorf("redis token set access: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.accessKey, s.refreshKey).Err(); err != nil {
		return fmt.Errorf("redis token clear: %w", err)
	}
	return nil
}
