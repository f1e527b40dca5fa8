package client

import (
	"context"
	"fmt"

	"classroom/pkg/constraints"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const DefaultEtcdKeyPrefix = "/classroom/client/"

// EtcdTokenStore keeps the credentials under a key prefix in etcd. Pair
// updates go through a single transaction.
type EtcdTokenStore struct {
	kv         clientv3.KV
	prefix     string
	accessKey  string
	refreshKey string
}

func NewEtcdTokenStore(kv clientv3.KV, prefix string) *EtcdTokenStore {
	if prefix == "" {
		prefix = DefaultEtcdKeyPrefix
	}
	return &EtcdTokenStore{
		kv:         kv,
		prefix:     prefix,
		accessKey:  prefix + constraints.KeyAccessToken,
		refreshKey: prefix + constraints.KeyRefreshToken,
	}
}

func (s *EtcdTokenStore) Get(ctx context.Context) (Credentials, error) {
	resp, err := s.kv.Get(ctx, s.prefix, clientv3.WithPrefix())
	if err != nil {
		return Credentials{}, fmt.Errorf("etcd token get: %w", err)
	}

	var creds Credentials
	for _, kv := range resp.Kvs {
		switch string(kv.Key) {
		case s.accessKey:
			creds.Access = string(kv.Value)
		case s.refreshKey:
			creds.Refresh = string(kv.Value)
		}
	}
	return creds, nil
}

func (s *EtcdTokenStore) Set(ctx context.Context, access, refresh string) error {
	ops := []clientv3.Op{clientv3.OpPut(s.accessKey, access)}
	if refresh != "" {
		ops = append(ops, clientv3.OpPut(s.refreshKey, refresh))
	} else {
		ops = append(ops, clientv3.OpDelete(s.refreshKey))
	}

	if _, err := s.kv.Txn(ctx).Then(ops...).Commit(); err != nil {
		return fmt.Errorf("etcd token set: %w", err)
	}
	return nil
}

func (s *EtcdTokenStore) SetAccess(ctx context.Context, access string) error {
	if _, err := s.kv.Put(ctx, s.accessKey, access); err != nil {
		return fmt.Errorf("etcd token set access: %w", err)
	}
	return nil
}

func (s *EtcdTokenStore) Clear(ctx context.Context) error {
	_, err := s.kv.Txn(ctx).Then(
		clientv3.OpDelete(s.accessKey),
		clientv3.OpDelete(s.refreshKey),
	).Commit()
	if err != nil {
		return fmt.Errorf("etcd token clear: %w", err)
	}
	return nil
}
