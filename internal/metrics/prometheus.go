package metrics

import (
	"net/http"

	"classroom/client"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	refreshStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classroom_client_refresh_started_total",
		Help: "Token refresh calls sent to the API",
	})
	refreshResult = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classroom_client_refresh_finished_total",
		Help: "Token refresh calls by outcome",
	}, []string{"result"})
	refreshCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classroom_client_refresh_coalesced_total",
		Help: "Callers that waited on an in-flight refresh instead of starting one",
	})
	requestRetried = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classroom_client_request_retried_total",
		Help: "Requests resubmitted after a token refresh",
	})
	sessionExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classroom_client_session_expired_total",
		Help: "Sessions ended because the token could not be renewed",
	})
	httpDuration = promauto.NewSummaryVec(prometheus.SummaryOpts{
		Name: "classroom_http_duration_seconds",
		Help: "Duration of HTTP requests.",
	}, []string{"path", "method", "status"})
)

type prometheusObserver struct {
	refreshResult *prometheus.CounterVec
}

// NewClientObserver feeds session-layer events of the SDK into Prometheus.
func NewClientObserver() client.Observer {
	return &prometheusObserver{refreshResult: refreshResult}
}

func (p *prometheusObserver) RefreshStarted()   { refreshStarted.Inc() }
func (p *prometheusObserver) RefreshCoalesced() { refreshCoalesced.Inc() }
func (p *prometheusObserver) RequestRetried()   { requestRetried.Inc() }
func (p *prometheusObserver) SessionExpired()   { sessionExpired.Inc() }

func (p *prometheusObserver) RefreshFinished(ok bool) {
	if ok {
		p.refreshResult.WithLabelValues("ok").Inc()
		return
	}
	p.refreshResult.WithLabelValues("error").Inc()
}

type httpObserver struct{}

func NewHTTPObserver() HTTPObserver {
	return httpObserver{}
}

func (httpObserver) ObserveRequest(path, method, status string, seconds float64) {
	httpDuration.WithLabelValues(path, method, status).Observe(seconds)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
