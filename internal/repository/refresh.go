package repository

import (
	"context"
	"sync"
	"time"
)

// RefreshRegistry is the allow-list of refresh token IDs that may still be
// exchanged for access tokens.
type RefreshRegistry interface {
	Allow(ctx context.Context, jti string, userID int64, ttl time.Duration) error
	Active(ctx context.Context, jti string) (bool, error)
	Revoke(ctx context.Context, jti string) error
}

type MemoryRefreshRegistry struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryRefreshRegistry() *MemoryRefreshRegistry {
	return &MemoryRefreshRegistry{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (r *MemoryRefreshRegistry) Allow(_ context.Context, jti string, _ int64, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[jti] = r.now().Add(ttl)
	return nil
}

func (r *MemoryRefreshRegistry) Active(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.entries[jti]
	if !ok {
		return false, nil
	}
	if !r.now().Before(exp) {
		delete(r.entries, jti)
		return false, nil
	}
	return true, nil
}

func (r *MemoryRefreshRegistry) Revoke(_ context.Context, jti string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, jti)
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (r *MemoryRefreshRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	n := 0
	for k, exp := range r.entries {
		if !now.Before(exp) {
			delete(r.entries, k)
			n++
		}
	}
	return n
}

func (r *MemoryRefreshRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
