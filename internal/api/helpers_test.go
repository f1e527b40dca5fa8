package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"classroom/internal/metrics"
	"classroom/internal/middleware"
	"classroom/internal/repository"
	"classroom/internal/service"
	v1 "classroom/pkg/api/v1"
	"classroom/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	logger.InitLogger("test")
	gin.SetMode(gin.TestMode)
}

// testClock is a movable clock shared with the auth service.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testApp struct {
	engine *gin.Engine
	clock  *testClock
	store  *repository.MemoryStore
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	store := repository.NewMemoryStore()
	require.NoError(t, repository.Seed(context.Background(), store, repository.DefaultSeed, bcrypt.MinCost))

	clock := &testClock{now: time.Now()}
	authSvc := service.NewAuthService(store, repository.NewMemoryRefreshRegistry(), service.AuthOptions{
		SigningKey:      "api-test-key",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Now:             clock.Now,
	})
	userSvc := service.NewUserService(store, store, bcrypt.MinCost)

	engine := RegisterRoutes(Handlers{
		Auth:        NewAuthHandler(authSvc, userSvc),
		Classes:     NewClassHandler(service.NewClassService(store, store, store)),
		Enrollments: NewEnrollmentHandler(service.NewEnrollmentService(store, store, store)),
		Users:       NewUserHandler(userSvc),
	}, RouterOptions{
		Authenticator:  authSvc,
		LoginLimiter:   middleware.NewRateLimiter(nil, 100, ""),
		HTTPObserver:   metrics.NewHTTPObserver(),
		AllowedOrigins: []string{"http://localhost:5173"},
	})
	return &testApp{engine: engine, clock: clock, store: store}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *testApp) login(t *testing.T, username, password string) v1.TokenPair {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/auth/login/", "", v1.LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var pair v1.TokenPair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
	return pair
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
