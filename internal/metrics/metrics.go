package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petminder_http_requests_total",
			Help: "Total HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "petminder_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	remindersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petminder_reminders_created_total",
			Help: "Total reminders created by source",
		},
		[]string{"source"},
	)

	remindersEscalated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petminder_reminders_escalated_total",
			Help: "Total escalation transitions by level",
		},
		[]string{"level"},
	)

	notificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petminder_notifications_dispatched_total",
			Help: "Total notification dispatches by outcome",
		},
		[]string{"outcome"},
	)

	sweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "petminder_sweep_duration_seconds",
			Help:    "Batch sweep run duration",
			Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"sweep"},
	)

	sweepErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petminder_sweep_errors_total",
			Help: "Per-item sweep failures by stage",
		},
		[]string{"sweep", "stage"},
	)

	remindersByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "petminder_reminders_by_status",
			Help: "Current reminder count per status",
		},
		[]string{"status"},
	)

	idempotencyHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "petminder_idempotency_hits_total",
			Help: "Requests served from idempotency cache",
		},
	)

	rateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petminder_rate_limit_rejections_total",
			Help: "Requests rejected by rate limiter",
		},
		[]string{"owner_id"},
	)

	dbConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "petminder_db_connections_active",
			Help: "Active database connections",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordReminderCreated records a reminder create, source is "api" or "schedule"
func RecordReminderCreated(source string) {
	remindersCreated.WithLabelValues(source).Inc()
}

// RecordEscalation records one escalation transition
func RecordEscalation(level string) {
	remindersEscalated.WithLabelValues(level).Inc()
}

// RecordDispatch records a notification dispatch outcome ("delivered" or "failed")
func RecordDispatch(outcome string) {
	notificationsDispatched.WithLabelValues(outcome).Inc()
}

// RecordSweepDuration records how long one sweep run took
func RecordSweepDuration(sweep string, duration time.Duration) {
	sweepDuration.WithLabelValues(sweep).Observe(duration.Seconds())
}

// RecordSweepError records a per-item sweep failure
func RecordSweepError(sweep, stage string) {
	sweepErrors.WithLabelValues(sweep, stage).Inc()
}

// SetRemindersByStatus sets the gauge for one status
func SetRemindersByStatus(status string, count int) {
	remindersByStatus.WithLabelValues(status).Set(float64(count))
}

// RecordIdempotencyHit records a cache hit for idempotency
func RecordIdempotencyHit() {
	idempotencyHits.Inc()
}

// RecordRateLimitRejection records a rate limit rejection
func RecordRateLimitRejection(ownerID string) {
	rateLimitRejections.WithLabelValues(ownerID).Inc()
}

// SetDBConnections sets active database connection count
func SetDBConnections(count int) {
	dbConnectionsActive.Set(float64(count))
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns HTTP middleware that records request metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		RecordRequest(r.Method, r.URL.Path, wrapped.status, time.Since(start))
	})
}
