package service

import (
	"context"
	"testing"
	"time"

	"classroom/internal/repository"
	"classroom/pkg/logger"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	logger.InitLogger("test")
}

type fixture struct {
	store    *repository.MemoryStore
	registry *repository.MemoryRefreshRegistry
	auth     *AuthService
	users    *UserService
	classes  *ClassService
	enroll   *EnrollmentService
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    repository.NewMemoryStore(),
		registry: repository.NewMemoryRefreshRegistry(),
		now:      time.Now(),
	}
	require.NoError(t, repository.Seed(context.Background(), f.store, repository.DefaultSeed, bcrypt.MinCost))

	f.auth = NewAuthService(f.store, f.registry, AuthOptions{
		SigningKey:      "test-key",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Now:             func() time.Time { return f.now },
	})
	f.users = NewUserService(f.store, f.store, bcrypt.MinCost)
	f.classes = NewClassService(f.store, f.store, f.store)
	f.enroll = NewEnrollmentService(f.store, f.store, f.store)
	return f
}

func (f *fixture) op(t *testing.T, username string) *OperatorInfo {
	t.Helper()
	u, err := f.store.GetByLogin(context.Background(), username)
	require.NoError(t, err)
	return &OperatorInfo{UserID: u.ID, Username: u.Username, IsSuperuser: u.IsSuperuser, Groups: u.Groups}
}
