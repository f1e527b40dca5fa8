package client

import (
	"context"
	"fmt"
	"sync"

	v1 "classroom/pkg/api/v1"
	"classroom/pkg/logger"

	"go.uber.org/zap"
)

type sessionBackend interface {
	Login(ctx context.Context, username, password string) (v1.TokenPair, error)
	Me(ctx context.Context) (*v1.Profile, error)
}

type defaultCredential interface {
	SetDefaultToken(token string)
}

type invalidator interface {
	Invalidate()
}

// Session owns the signed-in user's profile and the login/logout lifecycle.
type Session struct {
	backend   sessionBackend
	store     TokenStore
	cred      defaultCredential
	refresher invalidator

	mu      sync.RWMutex
	profile *v1.Profile
	ready   bool
}

func NewSession(c *Client) *Session {
	s := &Session{
		backend:   c,
		store:     c.store,
		cred:      c.transport,
		refresher: c.refresher,
	}
	c.transport.OnSessionExpired(s.dropProfile)
	return s
}

// Login stores the issued tokens and loads the profile. If the profile cannot
// be loaded the tokens are removed again and the error is returned.
func (s *Session) Login(ctx context.Context, username, password string) error {
	pair, err := s.backend.Login(ctx, username, password)
	if err != nil {
		return err
	}

	if err := s.store.Set(ctx, pair.Access, pair.Refresh); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}
	s.cred.SetDefaultToken(pair.Access)

	profile, err := s.backend.Me(ctx)
	if err != nil {
		logger.Warn("profile fetch failed after login, rolling back",
			zap.String("username", username),
			zap.Error(err))
		s.clearCredentials(ctx)
		s.setProfile(nil, true)
		return err
	}

	s.setProfile(profile, true)
	logger.Info("logged in", zap.String("username", profile.Username))
	return nil
}

// Logout never fails. Any refresh still in flight is detached so it cannot
// write tokens back.
func (s *Session) Logout() {
	s.refresher.Invalidate()
	s.clearCredentials(context.Background())
	s.setProfile(nil, true)
}

// Bootstrap restores a stored session at start-up. A stale token is treated as
// being logged out, not as an error.
func (s *Session) Bootstrap(ctx context.Context) {
	creds, err := s.store.Get(ctx)
	if err != nil {
		logger.Warn("could not read stored credentials", zap.Error(err))
		s.setProfile(nil, true)
		return
	}
	if !creds.HasAccess() {
		s.setProfile(nil, true)
		return
	}

	s.cred.SetDefaultToken(creds.Access)
	profile, err := s.backend.Me(ctx)
	if err != nil {
		logger.Info("stored session is no longer valid", zap.Error(err))
		s.clearCredentials(ctx)
		s.setProfile(nil, true)
		return
	}
	s.setProfile(profile, true)
}

// RefreshProfile reloads the profile. Without a token it returns (nil, nil).
func (s *Session) RefreshProfile(ctx context.Context) (*v1.Profile, error) {
	creds, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !creds.HasAccess() {
		return nil, nil
	}

	profile, err := s.backend.Me(ctx)
	if err != nil {
		return nil, err
	}
	s.setProfile(profile, true)
	return profile.Clone(), nil
}

func (s *Session) SetProfile(p *v1.Profile) {
	s.setProfile(p.Clone(), s.Ready())
}

// MergeProfile applies a partial update. With no profile loaded an
// identifying patch becomes the profile; any other patch is dropped.
func (s *Session) MergeProfile(patch v1.ProfilePatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.profile != nil:
		s.profile = s.profile.Merge(patch)
	case patch.Identifying():
		s.profile = patch.AsProfile()
	}
}

func (s *Session) Profile() *v1.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile.Clone()
}

// Roles is recomputed from the current profile on every call.
func (s *Session) Roles() Roles {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return DeriveRoles(s.profile)
}

// Ready reports whether Bootstrap or Login has settled.
func (s *Session) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

func (s *Session) Credentials(ctx context.Context) (Credentials, error) {
	return s.store.Get(ctx)
}

func (s *Session) IsAuthenticated(ctx context.Context) bool {
	creds, err := s.store.Get(ctx)
	return err == nil && creds.HasAccess()
}

func (s *Session) GuardState(ctx context.Context) GuardState {
	return GuardState{
		Ready:         s.Ready(),
		Authenticated: s.IsAuthenticated(ctx),
		Roles:         s.Roles(),
	}
}

// Check evaluates a guard against the current session.
func (s *Session) Check(ctx context.Context, g Guard) Decision {
	return g(s.GuardState(ctx))
}

func (s *Session) setProfile(p *v1.Profile, ready bool) {
	s.mu.Lock()
	s.profile = p
	s.ready = ready
	s.mu.Unlock()
}

func (s *Session) dropProfile() {
	s.mu.Lock()
	s.profile = nil
	s.mu.Unlock()
}

func (s *Session) clearCredentials(ctx context.Context) {
	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		logger.Error("failed to clear credentials", zap.Error(err))
	}
	s.cred.SetDefaultToken("")
}
