// Package metrics exposes Prometheus metrics for the notes server.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notes_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notes_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	uploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notes_upload_bytes_total",
			Help: "Total bytes accepted by the upload endpoint",
		},
	)

	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notes_uploads_total",
			Help: "Total number of document uploads",
		},
		[]string{"status"},
	)

	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notes_auth_attempts_total",
			Help: "Total login attempts",
		},
		[]string{"result"},
	)

	wsConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notes_ws_connections_active",
			Help: "Number of open notification sockets",
		},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notes_notifications_total",
			Help: "Notifications delivered to sockets",
		},
		[]string{"type"},
	)

	eventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notes_events_dropped_total",
			Help: "Events lost because a subscriber was full",
		},
		[]string{"type"},
	)

	dbConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notes_db_connections_open",
			Help: "Connections held by the database pool",
		},
	)

	rateLimitHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notes_rate_limit_hits_total",
			Help: "Total rate limit rejections (429s)",
		},
	)

	quotaExceededTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notes_quota_exceeded_total",
			Help: "Uploads rejected by the storage quota",
		},
	)

	tokensConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notes_tokens_consumed_total",
			Help: "Tokens debited, by feature",
		},
		[]string{"feature"},
	)
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordUpload(bytes int64, success bool) {
	status := "success"
	if !success {
		status = "error"
	} else {
		uploadBytesTotal.Add(float64(bytes))
	}
	uploadsTotal.WithLabelValues(status).Inc()
}

func RecordAuthAttempt(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	authAttemptsTotal.WithLabelValues(result).Inc()
}

func SetWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

func RecordNotification(notificationType string) {
	notificationsTotal.WithLabelValues(notificationType).Inc()
}

func RecordDroppedEvent(notificationType string) {
	eventsDroppedTotal.WithLabelValues(notificationType).Inc()
}

func SetDBConnections(count int32) {
	dbConnectionsOpen.Set(float64(count))
}

func RecordRateLimitHit() {
	rateLimitHitsTotal.Inc()
}

func RecordQuotaExceeded() {
	quotaExceededTotal.Inc()
}

func RecordTokensConsumed(feature string, amount int64) {
	tokensConsumedTotal.WithLabelValues(feature).Add(float64(amount))
}

// responseWriter captures the status code. It keeps Hijack so websocket
// upgrades still work behind the middleware.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// Middleware records request metrics labelled by the matched chi route, so
// document and folder IDs do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		RecordHTTPRequest(r.Method, routeLabel(r), rw.statusCode, time.Since(start))
	})
}

func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
