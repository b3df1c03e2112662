package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kushtati_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kushtati_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	authAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kushtati_auth_attempts_total",
		Help: "Login and registration attempts by result",
	}, []string{"operation", "result"})

	authorizationDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kushtati_authorization_denied_total",
		Help: "Requests refused by the authorization rules, by resource",
	}, []string{"resource"})

	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kushtati_rate_limited_total",
		Help: "Requests rejected by a rate limiter",
	}, []string{"limiter"})

	paymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kushtati_payments_recorded_total",
		Help: "Payments recorded, by method",
	}, []string{"method"})

	contractsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kushtati_contracts_expired_total",
		Help: "Contracts moved to expired by the sweeper",
	})

	cascadeDeletes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kushtati_cascade_deleted_rows_total",
		Help: "Rows removed by cascading deletes, by table",
	}, []string{"table"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveAuthAttempt counts a login or registration with its result.
func ObserveAuthAttempt(operation, result string) {
	authAttempts.WithLabelValues(operation, result).Inc()
}

func ObserveAuthorizationDenied(resource string) {
	authorizationDenied.WithLabelValues(resource).Inc()
}

func ObserveRateLimited(limiter string) {
	rateLimited.WithLabelValues(limiter).Inc()
}

func ObservePaymentRecorded(method string) {
	paymentsRecorded.WithLabelValues(method).Inc()
}

func ObserveContractsExpired(n int64) {
	if n > 0 {
		contractsExpired.Add(float64(n))
	}
}

// ObserveCascade records the rows removed from each table by one cascade.
func ObserveCascade(payments, contracts, properties, users int64) {
	cascadeDeletes.WithLabelValues("payments").Add(float64(payments))
	cascadeDeletes.WithLabelValues("contracts").Add(float64(contracts))
	cascadeDeletes.WithLabelValues("properties").Add(float64(properties))
	cascadeDeletes.WithLabelValues("users").Add(float64(users))
}
