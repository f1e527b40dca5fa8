package metrics

// HTTPObserver records server-side request timings.
type HTTPObserver interface {
	ObserveRequest(path, method, status string, seconds float64)
}
