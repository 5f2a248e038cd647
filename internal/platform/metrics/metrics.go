package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	bookingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Total number of bookings created",
		},
	)

	notesSigned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "treatment_notes_signed_total",
			Help: "Total number of treatment notes signed",
		},
	)

	reportsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_created_total",
			Help: "Total number of reports created",
		},
		[]string{"type"},
	)

	reportStatusChanged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_status_changed_total",
			Help: "Total number of report status transitions",
		},
		[]string{"from_status", "to_status"},
	)

	aiGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_generations_total",
			Help: "Total number of AI content generations",
		},
		[]string{"source", "status"},
	)

	aiGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ai_generation_duration_seconds",
			Help:    "AI content generation duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of notifications sent",
		},
		[]string{"channel", "status"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts, durations and in-flight gauge for
// every request. The route template is used as the path label so IDs do
// not blow up cardinality.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			err := next(c)

			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			method := c.Request().Method

			httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Response().Status)).Inc()
			httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// RecordBookingCreated records a booking creation.
func RecordBookingCreated() {
	bookingsCreated.Inc()
}

// RecordNoteSigned records a treatment note signature.
func RecordNoteSigned() {
	notesSigned.Inc()
}

// RecordReportCreated records a report creation.
func RecordReportCreated(reportType string) {
	reportsCreated.WithLabelValues(reportType).Inc()
}

// RecordReportStatusChange records a report status transition.
func RecordReportStatusChange(fromStatus, toStatus string) {
	reportStatusChanged.WithLabelValues(fromStatus, toStatus).Inc()
}

// RecordAIGeneration records an AI content generation. Source is "cache"
// or "api"; status is "success" or "error".
func RecordAIGeneration(source, status string, duration time.Duration) {
	aiGenerations.WithLabelValues(source, status).Inc()
	if source == "api" {
		aiGenerationDuration.Observe(duration.Seconds())
	}
}

// RecordNotificationSent records a notification delivery attempt.
func RecordNotificationSent(channel, status string) {
	notificationsSent.WithLabelValues(channel, status).Inc()
}
