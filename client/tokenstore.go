package client

import (
	"context"
	"sync"
)

// Credentials is the persisted token pair. An empty Access means the user is
// not authenticated; an empty Refresh means the session cannot be renewed
// silently.
type Credentials struct {
	Access  string
	Refresh string
}

func (c Credentials) HasAccess() bool  { return c.Access != "" }
func (c Credentials) HasRefresh() bool { return c.Refresh != "" }

// TokenStore persists credentials. Implementations hold no logic beyond
// storage and must make every write visible to the next Get.
type TokenStore interface {
	Get(ctx context.Context) (Credentials, error)
	// Set replaces both tokens. An empty refresh removes the stored one.
	Set(ctx context.Context, access, refresh string) error
	// SetAccess replaces the access token and keeps the refresh token.
	SetAccess(ctx context.Context, access string) error
	Clear(ctx context.Context) error
}

type MemoryTokenStore struct {
	mu    sync.RWMutex
	creds Credentials
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Get(_ context.Context) (Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds, nil
}

func (s *MemoryTokenStore) Set(_ context.Context, access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{Access: access, Refresh: refresh}
	return nil
}

func (s *MemoryTokenStore) SetAccess(_ context.Context, access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds.Access = access
	return nil
}

func (s *MemoryTokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
	return nil
}
