package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests counts handled requests by route and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coachportal",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes request latency by route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "coachportal",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// Notifications counts email dispatch attempts by kind and result.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coachportal",
		Name:      "notifications_total",
		Help:      "Email notifications by kind and result (sent|failed).",
	}, []string{"kind", "result"})

	// InvitationEvents counts invitation lifecycle transitions.
	InvitationEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coachportal",
		Name:      "invitation_events_total",
		Help:      "Invitation lifecycle events (created|resent|withdrawn|redeemed|redeem_failed).",
	}, []string{"event"})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
