package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"classroom/pkg/logger"

	"go.uber.org/zap"
)

// ExchangeFunc trades a refresh token for a new access token over the network.
type ExchangeFunc func(ctx context.Context, refreshToken string) (string, error)

type refreshResult struct {
	token string
	err   error
}

// RefreshCoordinator makes sure at most one refresh call is in flight. Callers
// arriving while one runs are queued and settled, in arrival order, with the
// outcome of that call.
type RefreshCoordinator struct {
	store    TokenStore
	exchange ExchangeFunc
	observer Observer

	mu         sync.Mutex
	inProgress bool
	waiters    []chan refreshResult
	epoch      uint64
}

func NewRefreshCoordinator(store TokenStore, exchange ExchangeFunc, observer Observer) *RefreshCoordinator {
	if observer == nil {
		observer = nopObserver{}
	}
	return &RefreshCoordinator{
		store:    store,
		exchange: exchange,
		observer: observer,
	}
}

// Refresh returns a fresh access token. The network call runs to completion
// even if ctx is cancelled; a cancelled caller merely stops waiting for it.
func (rc *RefreshCoordinator) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", ErrNoRefreshToken
	}

	rc.mu.Lock()
	if rc.inProgress {
		ch := make(chan refreshResult, 1)
		rc.waiters = append(rc.waiters, ch)
		rc.mu.Unlock()

		rc.observer.RefreshCoalesced()
		select {
		case res := <-ch:
			return res.token, res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	rc.inProgress = true
	epoch := rc.epoch
	rc.mu.Unlock()

	rc.observer.RefreshStarted()
	token, err := rc.exchange(context.WithoutCancel(ctx), refreshToken)
	if err == nil && token == "" {
		err = errors.New("refresh response carried no access token")
	}

	res := rc.settle(ctx, epoch, token, err)
	rc.observer.RefreshFinished(res.err == nil)
	return res.token, res.err
}

// settle records the outcome and releases every queued caller. The store write
// happens under the lock so that Invalidate either precedes it (and suppresses
// it) or follows it (and the logout clears it). A flight detached by Invalidate
// no longer owns the queue or the in-progress flag.
func (rc *RefreshCoordinator) settle(ctx context.Context, epoch uint64, token string, err error) refreshResult {
	storeCtx := context.WithoutCancel(ctx)

	rc.mu.Lock()
	if rc.epoch != epoch {
		rc.mu.Unlock()
		logger.Info("discarding refresh result after session ended")
		return refreshResult{err: ErrSessionEnded}
	}

	var res refreshResult
	if err != nil {
		logger.Warn("token refresh failed, clearing credentials", zap.Error(err))
		if clearErr := rc.store.Clear(storeCtx); clearErr != nil {
			logger.Error("failed to clear credentials", zap.Error(clearErr))
		}
		res = refreshResult{err: fmt.Errorf("%w: %w", ErrRefreshFailed, err)}
	} else {
		if setErr := rc.store.SetAccess(storeCtx, token); setErr != nil {
			logger.Error("failed to persist refreshed token", zap.Error(setErr))
		}
		res = refreshResult{token: token}
	}

	waiters := rc.detach()
	rc.mu.Unlock()

	release(waiters, res)
	if res.err == nil {
		logger.Info("access token refreshed", zap.Int("waiters", len(waiters)))
	}
	return res
}

// detach hands back the queue and clears the in-progress flag. Callers hold mu.
func (rc *RefreshCoordinator) detach() []chan refreshResult {
	waiters := rc.waiters
	rc.waiters = nil
	rc.inProgress = false
	return waiters
}

func release(waiters []chan refreshResult, res refreshResult) {
	for _, ch := range waiters {
		ch <- res
	}
}

// Invalidate detaches any in-flight refresh from the current session. Its
// queued callers fail with ErrSessionEnded, its result is dropped instead of
// being written back, and the next Refresh starts a new flight.
func (rc *RefreshCoordinator) Invalidate() {
	rc.mu.Lock()
	rc.epoch++
	waiters := rc.detach()
	rc.mu.Unlock()

	release(waiters, refreshResult{err: ErrSessionEnded})
}

func (rc *RefreshCoordinator) InProgress() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.inProgress
}
