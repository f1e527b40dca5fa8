package client

// Observer receives session-layer events, typically to feed metrics.
type Observer interface {
	RefreshStarted()
	RefreshCoalesced()
	RefreshFinished(ok bool)
	RequestRetried()
	SessionExpired()
}

type nopObserver struct{}

func (nopObserver) RefreshStarted()      {}
func (nopObserver) RefreshCoalesced()    {}
func (nopObserver) RefreshFinished(bool) {}
func (nopObserver) RequestRetried()      {}
func (nopObserver) SessionExpired()      {}
