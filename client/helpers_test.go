package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	v1 "classroom/pkg/api/v1"
	"classroom/pkg/constraints"
	"classroom/pkg/logger"
)

func init() {
	logger.InitLogger("test")
}

// fakeAPI is a scripted stand-in for the class-enrollment backend.
type fakeAPI struct {
	srv *httptest.Server

	mu           sync.Mutex
	valid        map[string]bool
	refreshToken string
	nextAccess   string
	profile      v1.Profile
	seenRetries  []string

	refreshCalls  atomic.Int32
	refreshStatus atomic.Int32
	meStatus      atomic.Int32
	refreshDelay  time.Duration
	// alwaysReject makes resource endpoints answer 401 whatever the token.
	alwaysReject atomic.Bool
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		valid:        map[string]bool{},
		refreshToken: "refresh-1",
		nextAccess:   "access-2",
		profile: v1.Profile{
			ID:       1,
			Username: "bob",
			Email:    "bob@example.com",
			Groups:   []string{"student"},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+constraints.PathLogin, f.login)
	mux.HandleFunc("POST "+constraints.PathRefresh, f.refresh)
	mux.HandleFunc("GET "+constraints.PathMe, f.me)
	mux.HandleFunc(constraints.PathClasses, f.classes)
	mux.HandleFunc("/api/echo/", f.echo)

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) URL() string { return f.srv.URL }

func newServer(t *testing.T, h http.Handler) string {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}

func (f *fakeAPI) allow(token string) {
	f.mu.Lock()
	f.valid[token] = true
	f.mu.Unlock()
}

func (f *fakeAPI) revoke(token string) {
	f.mu.Lock()
	delete(f.valid, token)
	f.mu.Unlock()
}

func (f *fakeAPI) authorized(r *http.Request) (string, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	f.mu.Lock()
	defer f.mu.Unlock()
	return token, f.valid[token]
}

func (f *fakeAPI) retries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seenRetries...)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (f *fakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var body v1.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "bad body"})
		return
	}
	if body.Password == "locked" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "account locked"})
		return
	}
	if body.Password != "correct" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "No active account found with the given credentials"})
		return
	}
	f.allow("access-1")
	writeJSON(w, http.StatusOK, v1.TokenPair{Access: "access-1", Refresh: f.refreshToken})
}

func (f *fakeAPI) refresh(w http.ResponseWriter, r *http.Request) {
	f.refreshCalls.Add(1)
	if f.refreshDelay > 0 {
		time.Sleep(f.refreshDelay)
	}
	if status := f.refreshStatus.Load(); status != 0 {
		writeJSON(w, int(status), map[string]string{"detail": "Token is invalid or expired"})
		return
	}
	var body v1.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Refresh != f.refreshToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
		return
	}
	f.allow(f.nextAccess)
	writeJSON(w, http.StatusOK, v1.RefreshResponse{Access: f.nextAccess})
}

func (f *fakeAPI) me(w http.ResponseWriter, r *http.Request) {
	if _, ok := f.authorized(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "not authenticated"})
		return
	}
	if status := f.meStatus.Load(); status != 0 {
		writeJSON(w, int(status), map[string]string{"detail": "boom"})
		return
	}
	f.mu.Lock()
	p := f.profile
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, p)
}

func (f *fakeAPI) classes(w http.ResponseWriter, r *http.Request) {
	token, ok := f.authorized(r)
	if !ok || f.alwaysReject.Load() {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token expired"})
		return
	}
	if token == f.nextAccess {
		f.mu.Lock()
		f.seenRetries = append(f.seenRetries, token)
		f.mu.Unlock()
	}
	writeJSON(w, http.StatusOK, v1.Paginated[v1.ClassItem]{
		Results: []v1.ClassItem{{ID: 7, Title: "Yoga"}},
		Count:   1,
	})
}

func (f *fakeAPI) echo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"content_type":  r.Header.Get("Content-Type"),
		"authorization": r.Header.Get("Authorization"),
	})
}

type recordingNavigator struct {
	mu      sync.Mutex
	current string
	visited []string
}

func (n *recordingNavigator) CurrentView() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *recordingNavigator) Navigate(view string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = view
	n.visited = append(n.visited, view)
}

func (n *recordingNavigator) Visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.visited...)
}
