package repository

import (
	"context"
	"strconv"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const EtcdRefreshPrefix = "/classroom/auth/refresh/"

// EtcdInterface is the part of *clientv3.Client the registry needs.
type EtcdInterface interface {
	clientv3.KV
	clientv3.Lease
}

// EtcdRefreshRegistry keeps each refresh token ID under a lease that expires
// with the token.
type EtcdRefreshRegistry struct {
	client EtcdInterface
	prefix string
}

func NewEtcdRefreshRegistry(client EtcdInterface) *EtcdRefreshRegistry {
	return &EtcdRefreshRegistry{client: client, prefix: EtcdRefreshPrefix}
}

func (r *EtcdRefreshRegistry) Allow(ctx context.Context, jti string, userID int64, ttl time.Duration) error {
	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	lease, err := r.client.Grant(ctx, seconds)
	if err != nil {
		return err
	}
	_, err = r.client.Put(ctx, r.prefix+jti, strconv.FormatInt(userID, 10), clientv3.WithLease(lease.ID))
	return err
}

func (r *EtcdRefreshRegistry) Active(ctx context.Context, jti string) (bool, error) {
	resp, err := r.client.Get(ctx, r.prefix+jti, clientv3.WithCountOnly())
	if err != nil {
		return false, err
	}
	return resp.Count > 0, nil
}

func (r *EtcdRefreshRegistry) Revoke(ctx context.Context, jti string) error {
	_, err := r.client.Delete(ctx, r.prefix+jti)
	return err
}

// Health performs a cheap read against the cluster.
func (r *EtcdRefreshRegistry) Health(ctx context.Context) error {
	_, err := r.client.Get(ctx, "health_check")
	return err
}
