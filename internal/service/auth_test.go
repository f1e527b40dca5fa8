package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Login(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.auth.Login(ctx, "aluno1", "Senha@123")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)
	assert.NotEqual(t, pair.Access, pair.Refresh)

	_, err = f.auth.Login(ctx, " admin@example.com ", "Admin@123")
	assert.NoError(t, err, "email login")

	for _, tc := range []struct{ name, login, password string }{
		{"wrong password", "aluno1", "nope"},
		{"unknown user", "ghost", "Senha@123"},
		{"empty login", "", "Senha@123"},
		{"empty password", "aluno1", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.auth.Login(ctx, tc.login, tc.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestAuthService_AccessExpiryAndRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.auth.Login(ctx, "instrutor1", "Senha@123")
	require.NoError(t, err)

	op, err := f.auth.Authenticate(ctx, pair.Access)
	require.NoError(t, err)
	assert.Equal(t, "instrutor1", op.Username)
	assert.True(t, op.IsInstructor())

	f.now = f.now.Add(2 * time.Minute)
	_, err = f.auth.Authenticate(ctx, pair.Access)
	assert.ErrorIs(t, err, ErrTokenInvalid, "access token expired")

	access, err := f.auth.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	_, err = f.auth.Authenticate(ctx, access)
	assert.NoError(t, err)

	f.now = f.now.Add(2 * time.Hour)
	_, err = f.auth.Refresh(ctx, pair.Refresh)
	assert.ErrorIs(t, err, ErrTokenInvalid, "refresh token expired")
}

func TestAuthService_TokenTypesAreNotInterchangeable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.auth.Login(ctx, "aluno2", "Senha@123")
	require.NoError(t, err)

	_, err = f.auth.Refresh(ctx, pair.Access)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = f.auth.Authenticate(ctx, pair.Refresh)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = f.auth.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAuthService_RevokedRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.auth.Login(ctx, "aluno3", "Senha@123")
	require.NoError(t, err)
	require.NoError(t, f.auth.Revoke(ctx, pair.Refresh))

	_, err = f.auth.Refresh(ctx, pair.Refresh)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestAuthService_ForeignSignature(t *testing.T) {
	f := newFixture(t)
	other := NewAuthService(f.store, f.registry, AuthOptions{
		SigningKey:      "another-key",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	pair, err := other.Login(context.Background(), "aluno1", "Senha@123")
	require.NoError(t, err)

	_, err = f.auth.Authenticate(context.Background(), pair.Access)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSweepWorker_StopsWithContext(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.Allow(context.Background(), "x", 1, time.Nanosecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewSweepWorker(f.registry, time.Millisecond).Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return f.registry.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
