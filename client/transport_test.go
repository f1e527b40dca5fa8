package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"classroom/pkg/constraints"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, api *fakeAPI, nav Navigator) (*Client, *MemoryTokenStore) {
	t.Helper()
	store := NewMemoryTokenStore()
	c := NewClient(api.URL(), store, Options{Timeout: 5 * time.Second, Navigator: nav})
	return c, store
}

func TestTransport_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	api := newFakeAPI(t)
	api.refreshDelay = 50 * time.Millisecond
	c, store := newTestClient(t, api, nil)
	require.NoError(t, store.Set(context.Background(), "expired", "refresh-1"))

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = c.Classes(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, api.refreshCalls.Load())

	retries := api.retries()
	assert.Len(t, retries, n)
	for _, tok := range retries {
		assert.Equal(t, "access-2", tok)
	}

	creds, _ := store.Get(context.Background())
	assert.Equal(t, Credentials{Access: "access-2", Refresh: "refresh-1"}, creds)
}

func TestTransport_RefreshFailureFailsEveryCaller(t *testing.T) {
	api := newFakeAPI(t)
	api.refreshDelay = 50 * time.Millisecond
	api.refreshStatus.Store(http.StatusUnauthorized)
	nav := &recordingNavigator{current: "/classes"}
	c, store := newTestClient(t, api, nav)
	require.NoError(t, store.Set(context.Background(), "expired", "refresh-1"))

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = c.Classes(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.Error(t, err)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
		assert.Equal(t, constraints.PathClasses, apiErr.Endpoint)
	}
	assert.EqualValues(t, 1, api.refreshCalls.Load())

	creds, _ := store.Get(context.Background())
	assert.False(t, creds.HasAccess())
	assert.False(t, creds.HasRefresh())
	assert.Contains(t, nav.Visited(), constraints.ViewLogin)
}

func TestTransport_SecondUnauthorizedIsNotRefreshedAgain(t *testing.T) {
	api := newFakeAPI(t)
	api.alwaysReject.Store(true)
	c, store := newTestClient(t, api, nil)
	require.NoError(t, store.Set(context.Background(), "expired", "refresh-1"))

	_, err := c.Classes(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.EqualValues(t, 1, api.refreshCalls.Load())

	// The retry's outcome is returned as is; the refreshed pair stays.
	creds, _ := store.Get(context.Background())
	assert.Equal(t, "access-2", creds.Access)
}

func TestTransport_AuthEndpointsNeverRefresh(t *testing.T) {
	api := newFakeAPI(t)
	c, store := newTestClient(t, api, nil)
	require.NoError(t, store.Set(context.Background(), "expired", "refresh-1"))

	t.Run("login", func(t *testing.T) {
		_, err := c.Login(context.Background(), "alice", "wrong")
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, StatusCode(err))
	})

	t.Run("login answering 401", func(t *testing.T) {
		_, err := c.Login(context.Background(), "alice", "locked")
		assert.True(t, IsUnauthorized(err))
	})

	t.Run("refresh endpoint through the authenticated client", func(t *testing.T) {
		req, err := c.newRequest(context.Background(), http.MethodPost, constraints.PathRefresh, nil, map[string]string{"refresh": "bogus"})
		require.NoError(t, err)
		err = c.send(c.HTTPClient(), req, nil)
		assert.True(t, IsUnauthorized(err))
	})

	assert.EqualValues(t, 1, api.refreshCalls.Load(), "only the direct refresh call reached the server")
	creds, _ := store.Get(context.Background())
	assert.Equal(t, Credentials{Access: "expired", Refresh: "refresh-1"}, creds)
}

func TestTransport_NoRefreshTokenGivesUp(t *testing.T) {
	api := newFakeAPI(t)
	nav := &recordingNavigator{current: "/enrollments"}
	c, store := newTestClient(t, api, nav)
	require.NoError(t, store.Set(context.Background(), "expired", ""))

	expired := 0
	c.Transport().OnSessionExpired(func() { expired++ })

	_, err := c.Classes(context.Background())
	assert.True(t, IsUnauthorized(err))
	assert.EqualValues(t, 0, api.refreshCalls.Load())
	assert.Equal(t, 1, expired)
	assert.Equal(t, []string{constraints.ViewLogin}, nav.Visited())

	creds, _ := store.Get(context.Background())
	assert.Equal(t, Credentials{}, creds)
}

func TestTransport_AlreadyOnLoginViewDoesNotNavigate(t *testing.T) {
	api := newFakeAPI(t)
	nav := &recordingNavigator{current: "/login?next=/classes"}
	c, store := newTestClient(t, api, nav)
	require.NoError(t, store.Set(context.Background(), "expired", ""))

	_, err := c.Classes(context.Background())
	assert.True(t, IsUnauthorized(err))
	assert.Empty(t, nav.Visited())
}

func TestTransport_Decoration(t *testing.T) {
	api := newFakeAPI(t)
	c, store := newTestClient(t, api, nil)
	ctx := context.Background()

	echo := func(t *testing.T, req *http.Request) map[string]string {
		t.Helper()
		var out map[string]string
		require.NoError(t, c.send(c.HTTPClient(), req, &out))
		return out
	}

	t.Run("no token, no body", func(t *testing.T) {
		req, err := c.newRequest(ctx, http.MethodGet, "/api/echo/", nil, nil)
		require.NoError(t, err)
		out := echo(t, req)
		assert.Empty(t, out["authorization"])
		assert.Empty(t, out["content_type"])
	})

	t.Run("default credential when the store is empty", func(t *testing.T) {
		c.Transport().SetDefaultToken("fallback")
		defer c.Transport().SetDefaultToken("")
		req, _ := c.newRequest(ctx, http.MethodGet, "/api/echo/", nil, nil)
		assert.Equal(t, "Bearer fallback", echo(t, req)["authorization"])
	})

	require.NoError(t, store.Set(ctx, "access-1", ""))

	t.Run("json body gets the default content type", func(t *testing.T) {
		req, _ := c.newRequest(ctx, http.MethodPost, "/api/echo/", nil, map[string]int{"a": 1})
		out := echo(t, req)
		assert.Equal(t, "Bearer access-1", out["authorization"])
		assert.Equal(t, constraints.ContentTypeJSON, out["content_type"])
	})

	t.Run("caller content type wins", func(t *testing.T) {
		req, _ := c.newRequest(ctx, http.MethodPost, "/api/echo/", nil, map[string]int{"a": 1})
		req.Header.Set("Content-Type", "application/merge-patch+json")
		assert.Equal(t, "application/merge-patch+json", echo(t, req)["content_type"])
	})

	t.Run("multipart keeps its boundary", func(t *testing.T) {
		body, err := newMultipartBody(FilePart{Field: "file", Filename: "a.png", Content: strings.NewReader("png")})
		require.NoError(t, err)
		req, _ := c.newRequest(ctx, http.MethodPost, "/api/echo/", nil, body)
		out := echo(t, req)
		assert.True(t, strings.HasPrefix(out["content_type"], "multipart/form-data; boundary="))
		assert.Equal(t, body.contentType, out["content_type"])
	})
}

func TestTransport_RetryReplaysBody(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+constraints.PathRefresh, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"access": "fresh"})
	})
	mux.HandleFunc("POST "+constraints.PathEnrollments, func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		buf.ReadFrom(r.Body)
		mu.Lock()
		bodies = append(bodies, buf.String())
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	srv := newServer(t, mux)

	store := NewMemoryTokenStore()
	require.NoError(t, store.Set(context.Background(), "stale", "r"))
	c := NewClient(srv, store, Options{})

	require.NoError(t, c.Enroll(context.Background(), 3, 0))
	require.Len(t, bodies, 2)
	assert.Equal(t, bodies[0], bodies[1])

	var in map[string]any
	require.NoError(t, json.Unmarshal([]byte(bodies[1]), &in))
	assert.EqualValues(t, 3, in["class_ref"])
}
