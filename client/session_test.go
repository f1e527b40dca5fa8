package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	v1 "classroom/pkg/api/v1"
	"classroom/pkg/constraints"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) (*Session, *Client, *MemoryTokenStore, *fakeAPI) {
	t.Helper()
	api := newFakeAPI(t)
	c, store := newTestClient(t, api, nil)
	return NewSession(c), c, store, api
}

func TestSession_LoginBadCredentialsLeavesStoreUntouched(t *testing.T) {
	s, _, store, _ := newTestSession(t)
	require.NoError(t, store.Set(context.Background(), "prev-access", "prev-refresh"))

	err := s.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))

	creds, _ := store.Get(context.Background())
	assert.Equal(t, Credentials{Access: "prev-access", Refresh: "prev-refresh"}, creds)
	assert.Nil(t, s.Profile())
}

func TestSession_LoginRollsBackWhenProfileFails(t *testing.T) {
	s, c, store, api := newTestSession(t)
	api.meStatus.Store(http.StatusInternalServerError)

	err := s.Login(context.Background(), "alice", "correct")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))

	creds, _ := store.Get(context.Background())
	assert.Equal(t, Credentials{}, creds)
	assert.Nil(t, s.Profile())
	assert.Empty(t, c.Transport().DefaultToken())
	assert.False(t, s.IsAuthenticated(context.Background()))
}

func TestSession_LoginAndLogout(t *testing.T) {
	s, c, store, _ := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.Login(ctx, "bob", "correct"))
	creds, _ := store.Get(ctx)
	assert.Equal(t, Credentials{Access: "access-1", Refresh: "refresh-1"}, creds)
	assert.Equal(t, "access-1", c.Transport().DefaultToken())
	require.NotNil(t, s.Profile())
	assert.Equal(t, "bob", s.Profile().Username)
	assert.True(t, s.Ready())
	assert.Equal(t, Allow, s.Check(ctx, RequireAuth))
	assert.Equal(t, RedirectHome, s.Check(ctx, RequireAdminOrInstructor))

	s.Logout()
	creds, _ = store.Get(ctx)
	assert.Equal(t, Credentials{}, creds)
	assert.Nil(t, s.Profile())
	assert.Equal(t, Roles{}, s.Roles())
	assert.Empty(t, c.Transport().DefaultToken())
	assert.Equal(t, RedirectLogin, s.Check(ctx, RequireAuth))
}

func TestSession_Bootstrap(t *testing.T) {
	ctx := context.Background()

	t.Run("no stored token", func(t *testing.T) {
		s, _, _, _ := newTestSession(t)
		assert.Equal(t, Wait, s.Check(ctx, RequireAuth))
		s.Bootstrap(ctx)
		assert.True(t, s.Ready())
		assert.Nil(t, s.Profile())
		assert.Equal(t, RedirectLogin, s.Check(ctx, RequireAuth))
	})

	t.Run("valid stored token", func(t *testing.T) {
		s, _, store, api := newTestSession(t)
		api.allow("stored")
		require.NoError(t, store.Set(ctx, "stored", "refresh-1"))
		s.Bootstrap(ctx)
		require.NotNil(t, s.Profile())
		assert.EqualValues(t, 1, s.Profile().ID)
	})

	t.Run("stale token and dead refresh token", func(t *testing.T) {
		s, _, store, api := newTestSession(t)
		require.NoError(t, store.Set(ctx, "stale", "refresh-revoked"))
		s.Bootstrap(ctx)
		assert.True(t, s.Ready())
		assert.Nil(t, s.Profile())
		creds, _ := store.Get(ctx)
		assert.Equal(t, Credentials{}, creds)
		assert.EqualValues(t, 1, api.refreshCalls.Load())
	})

	t.Run("stale token renewed silently", func(t *testing.T) {
		s, _, store, _ := newTestSession(t)
		require.NoError(t, store.Set(ctx, "stale", "refresh-1"))
		s.Bootstrap(ctx)
		require.NotNil(t, s.Profile())
		creds, _ := store.Get(ctx)
		assert.Equal(t, "access-2", creds.Access)
	})
}

func TestSession_RefreshProfile(t *testing.T) {
	s, _, _, api := newTestSession(t)
	ctx := context.Background()

	p, err := s.RefreshProfile(ctx)
	require.NoError(t, err)
	assert.Nil(t, p, "no token is not an error")

	require.NoError(t, s.Login(ctx, "bob", "correct"))
	api.mu.Lock()
	api.profile.Groups = []string{"instructor"}
	api.mu.Unlock()

	p, err = s.RefreshProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"instructor"}, p.Groups)
	assert.True(t, s.Roles().IsInstructor)
}

func TestSession_MergeProfile(t *testing.T) {
	avatar := "x.png"

	t.Run("merges into loaded profile", func(t *testing.T) {
		s, _, _, _ := newTestSession(t)
		before := &v1.Profile{ID: 1, Username: "bob", Email: "bob@example.com", Groups: []string{"student"}}
		s.SetProfile(before)

		s.MergeProfile(v1.ProfilePatch{AvatarURL: &avatar})

		want := before.Clone()
		want.AvatarURL = &avatar
		assert.Equal(t, want, s.Profile())
	})

	t.Run("id and username are fixed once loaded", func(t *testing.T) {
		s, _, _, _ := newTestSession(t)
		s.SetProfile(&v1.Profile{ID: 1, Username: "bob"})
		id, name := int64(9), "mallory"
		s.MergeProfile(v1.ProfilePatch{ID: &id, Username: &name})
		assert.EqualValues(t, 1, s.Profile().ID)
		assert.Equal(t, "bob", s.Profile().Username)
	})

	t.Run("identifying patch becomes the profile", func(t *testing.T) {
		s, _, _, _ := newTestSession(t)
		id := int64(3)
		s.MergeProfile(v1.ProfilePatch{ID: &id, AvatarURL: &avatar})
		require.NotNil(t, s.Profile())
		assert.EqualValues(t, 3, s.Profile().ID)
		assert.Equal(t, avatar, *s.Profile().AvatarURL)
	})

	t.Run("anonymous patch without profile is dropped", func(t *testing.T) {
		s, _, _, _ := newTestSession(t)
		s.MergeProfile(v1.ProfilePatch{AvatarURL: &avatar})
		assert.Nil(t, s.Profile())
	})

	t.Run("clear avatar", func(t *testing.T) {
		s, _, _, _ := newTestSession(t)
		s.SetProfile(&v1.Profile{ID: 1, Username: "bob", AvatarURL: &avatar})
		s.MergeProfile(v1.ProfilePatch{ClearAvatar: true})
		assert.Nil(t, s.Profile().AvatarURL)
	})
}

func TestSession_ExpiryDropsProfile(t *testing.T) {
	s, _, store, api := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.Login(ctx, "bob", "correct"))

	api.revoke("access-1")
	require.NoError(t, store.Set(ctx, "access-1", ""))

	_, err := s.backend.Me(ctx)
	assert.True(t, IsUnauthorized(err))
	assert.Nil(t, s.Profile())
	assert.False(t, s.Roles().IsAdminOrInstructor)
}

// stalledRefreshAPI issues a1/r1 on the first login and a2/r2 on the next.
// Refreshing r1 hangs until release is closed; /api/classes/ only accepts
// refreshed access tokens.
type stalledRefreshAPI struct {
	url     string
	entered chan struct{}
	release chan struct{}

	mu     sync.Mutex
	logins int
}

func newStalledRefreshAPI(t *testing.T) *stalledRefreshAPI {
	t.Helper()
	a := &stalledRefreshAPI{entered: make(chan struct{}, 1), release: make(chan struct{})}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+constraints.PathLogin, func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.logins++
		n := a.logins
		a.mu.Unlock()
		writeJSON(w, http.StatusOK, v1.TokenPair{Access: fmt.Sprintf("a%d", n), Refresh: fmt.Sprintf("r%d", n)})
	})
	mux.HandleFunc("POST "+constraints.PathRefresh, func(w http.ResponseWriter, r *http.Request) {
		var body v1.RefreshRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.Refresh == "r1" {
			a.entered <- struct{}{}
			<-a.release
		}
		writeJSON(w, http.StatusOK, v1.RefreshResponse{Access: "fresh-" + body.Refresh})
	})
	mux.HandleFunc("GET "+constraints.PathMe, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, v1.Profile{ID: 1, Username: "bob", Groups: []string{"student"}})
	})
	mux.HandleFunc(constraints.PathClasses, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer fresh-") {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token expired"})
			return
		}
		writeJSON(w, http.StatusOK, []v1.ClassItem{})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		select {
		case <-a.release:
		default:
			close(a.release)
		}
		srv.Close()
	})
	a.url = srv.URL
	return a
}

// stall signs in and leaves a request parked on a hung refresh of r1.
func stall(t *testing.T, api *stalledRefreshAPI, s *Session, c *Client) <-chan error {
	t.Helper()
	require.NoError(t, s.Login(context.Background(), "bob", "correct"))

	done := make(chan error, 1)
	go func() {
		_, err := c.Classes(context.Background())
		done <- err
	}()
	select {
	case <-api.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh never started")
	}
	return done
}

func TestSession_LogoutDuringRefresh(t *testing.T) {
	api := newStalledRefreshAPI(t)
	nav := &recordingNavigator{}
	store := NewMemoryTokenStore()
	c := NewClient(api.url, store, Options{Timeout: 5 * time.Second, Navigator: nav})
	s := NewSession(c)
	ctx := context.Background()

	done := stall(t, api, s, c)
	s.Logout()
	close(api.release)

	err := <-done
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))

	creds, _ := store.Get(ctx)
	assert.Equal(t, Credentials{}, creds)
	assert.Nil(t, s.Profile())
	assert.False(t, c.Refresher().InProgress())
}

func TestSession_ReloginWhileOldRefreshHangs(t *testing.T) {
	api := newStalledRefreshAPI(t)
	nav := &recordingNavigator{}
	store := NewMemoryTokenStore()
	c := NewClient(api.url, store, Options{Timeout: 5 * time.Second, Navigator: nav})
	s := NewSession(c)
	ctx := context.Background()

	done := stall(t, api, s, c)
	s.Logout()
	require.NoError(t, s.Login(ctx, "bob", "correct"))

	// a2 is rejected, so this needs its own refresh of r2.
	_, err := c.Classes(ctx)
	require.NoError(t, err)

	close(api.release)
	err = <-done
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))

	creds, _ := store.Get(ctx)
	assert.Equal(t, Credentials{Access: "fresh-r2", Refresh: "r2"}, creds)
	require.NotNil(t, s.Profile())
	assert.Equal(t, "bob", s.Profile().Username)
	assert.Equal(t, "a2", c.Transport().DefaultToken())
	assert.Empty(t, nav.Visited())
}
