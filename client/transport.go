package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"classroom/pkg/constraints"
	"classroom/pkg/logger"

	"go.uber.org/zap"
)

// Navigator is the view layer as seen from the transport: when a session
// cannot be renewed the user is sent to the login view.
type Navigator interface {
	CurrentView() string
	Navigate(view string)
}

type retriedKey struct{}

func withRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

func isRetried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}

func isAuthEndpoint(path string) bool {
	return strings.Contains(path, constraints.LoginPrefix) || strings.Contains(path, constraints.RefreshPrefix)
}

// Transport decorates outgoing requests with the bearer token and turns a 401
// into one refresh followed by one retry.
type Transport struct {
	base      http.RoundTripper
	store     TokenStore
	refresher *RefreshCoordinator
	navigator Navigator
	observer  Observer

	mu           sync.RWMutex
	defaultToken string
	onExpired    []func()
}

func NewTransport(base http.RoundTripper, store TokenStore, refresher *RefreshCoordinator, navigator Navigator, observer Observer) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Transport{
		base:      base,
		store:     store,
		refresher: refresher,
		navigator: navigator,
		observer:  observer,
	}
}

// SetDefaultToken sets the credential used when the store holds no access
// token. An empty token removes it.
func (t *Transport) SetDefaultToken(token string) {
	t.mu.Lock()
	t.defaultToken = token
	t.mu.Unlock()
}

func (t *Transport) DefaultToken() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.defaultToken
}

// OnSessionExpired registers fn to run whenever the transport gives up on a
// session.
func (t *Transport) OnSessionExpired(fn func()) {
	t.mu.Lock()
	t.onExpired = append(t.onExpired, fn)
	t.mu.Unlock()
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	creds, err := t.store.Get(ctx)
	if err != nil {
		closeRequestBody(req)
		return nil, err
	}
	sent := t.accessToken(creds)

	resp, err := t.base.RoundTrip(t.decorate(req, sent))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || isAuthEndpoint(req.URL.Path) || isRetried(ctx) {
		return resp, nil
	}

	logger.Debug("request unauthorized, attempting refresh",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path))

	// Re-read: another request may have refreshed while this one was in flight.
	creds, err = t.store.Get(ctx)
	if err != nil {
		drain(resp)
		return nil, err
	}

	var token string
	switch {
	case creds.HasAccess() && creds.Access != sent:
		token = creds.Access
	case !creds.HasRefresh():
		return t.giveUp(req, resp, ErrNoRefreshToken), nil
	default:
		token, err = t.refresher.Refresh(ctx, creds.Refresh)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				drain(resp)
				return nil, err
			}
			return t.giveUp(req, resp, err), nil
		}
	}

	retry, ok := rewind(req)
	if !ok {
		logger.Warn("request body cannot be replayed, returning 401", zap.String("path", req.URL.Path))
		return resp, nil
	}
	drain(resp)

	t.observer.RequestRetried()
	return t.base.RoundTrip(t.decorate(retry, token))
}

func (t *Transport) accessToken(creds Credentials) string {
	if creds.HasAccess() {
		return creds.Access
	}
	return t.DefaultToken()
}

func (t *Transport) decorate(req *http.Request, token string) *http.Request {
	out := req.Clone(req.Context())
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}

	ct := out.Header.Get("Content-Type")
	if strings.HasPrefix(ct, constraints.ContentTypeMultipart) {
		// The builder owns the boundary parameter.
		return out
	}
	if ct == "" && out.Body != nil && out.Body != http.NoBody {
		out.Header.Set("Content-Type", constraints.ContentTypeJSON)
	}
	return out
}

// giveUp ends the session and hands the original 401 back to the caller. A
// refresh dropped by logout already belongs to an ended session; whatever
// session exists now is left alone.
func (t *Transport) giveUp(req *http.Request, resp *http.Response, cause error) *http.Response {
	if errors.Is(cause, ErrSessionEnded) {
		logger.Info("request outlived its session",
			zap.String("path", req.URL.Path))
		return resp
	}

	logger.Warn("session expired",
		zap.String("path", req.URL.Path),
		zap.Error(cause))
	if err := t.store.Clear(context.WithoutCancel(req.Context())); err != nil {
		logger.Error("failed to clear credentials", zap.Error(err))
	}
	t.SetDefaultToken("")
	t.observer.SessionExpired()

	t.mu.RLock()
	hooks := append([]func(){}, t.onExpired...)
	t.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}

	if t.navigator != nil && !strings.HasPrefix(t.navigator.CurrentView(), constraints.ViewLogin) {
		t.navigator.Navigate(constraints.ViewLogin)
	}
	return resp
}

// rewind produces a second copy of req for the retry, marked so it never
// triggers another refresh.
func rewind(req *http.Request) (*http.Request, bool) {
	retry := req.Clone(withRetried(req.Context()))
	if req.Body == nil || req.Body == http.NoBody {
		return retry, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	retry.Body = body
	return retry, true
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func closeRequestBody(req *http.Request) {
	if req.Body != nil {
		req.Body.Close()
	}
}
