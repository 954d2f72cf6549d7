package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "campus"

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	reservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_total",
			Help:      "Reservation attempts by outcome",
		},
		[]string{"outcome"}, // created, conflict, rejected, error
	)

	loginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome",
		},
		[]string{"status"},
	)

	rateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests refused by a rate limiter",
		},
		[]string{"scope"},
	)

	outboxPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_published_total",
			Help:      "Outbox messages confirmed by the broker",
		},
		[]string{"routing_key"},
	)

	outboxFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_failures_total",
			Help:      "Outbox publish failures; dead=true when retries are exhausted",
		},
		[]string{"routing_key", "dead"},
	)

	dependencyHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dependency_health",
			Help:      "Health status of dependencies (1 = healthy, 0 = unhealthy)",
		},
		[]string{"dependency"},
	)
)

func RecordHTTPRequest(method, path string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func InFlightInc() { httpRequestsInFlight.Inc() }
func InFlightDec() { httpRequestsInFlight.Dec() }

func RecordReservation(outcome string) { reservationsTotal.WithLabelValues(outcome).Inc() }

func RecordLogin(status string) { loginAttemptsTotal.WithLabelValues(status).Inc() }

func RecordRateLimited(scope string) { rateLimitedTotal.WithLabelValues(scope).Inc() }

func SetDependencyHealth(dependency string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	dependencyHealth.WithLabelValues(dependency).Set(v)
}

// OutboxObserver feeds relay outcomes into the outbox counters.
type OutboxObserver struct{}

func (OutboxObserver) OutboxPublished(routingKey string) {
	outboxPublishedTotal.WithLabelValues(routingKey).Inc()
}

func (OutboxObserver) OutboxFailed(routingKey string, dead bool) {
	outboxFailuresTotal.WithLabelValues(routingKey, strconv.FormatBool(dead)).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
