package main

import (
	"context"
	"fmt"

	"classroom/client"
	"classroom/internal/config"

	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// openStore builds the token store selected by store.backend. The returned
// func releases backend connections.
func openStore(ctx context.Context, cfg *config.Config) (client.TokenStore, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendFile, "":
		return client.NewFileTokenStore(cfg.Store.Path), func() {}, nil
	case config.BackendMemory:
		return client.NewMemoryTokenStore(), func() {}, nil
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return client.NewRedisTokenStore(rdb, cfg.Store.KeyPrefix), func() { rdb.Close() }, nil
	case config.BackendEtcd:
		cli, err := clientv3.New(clientv3.Config{
			Endpoints:   cfg.Etcd.Endpoints,
			DialTimeout: cfg.Etcd.DialTimeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to etcd: %w", err)
		}
		return client.NewEtcdTokenStore(cli, cfg.Store.KeyPrefix), func() { cli.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown token store backend %q", cfg.Store.Backend)
}
