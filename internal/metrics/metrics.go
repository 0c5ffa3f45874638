// Package metrics holds hive's Prometheus collectors.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	messagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hive",
			Name:      "messages_sent_total",
			Help:      "Messages written, by type and thread kind.",
		},
		[]string{"type", "thread"},
	)

	activityItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hive",
			Name:      "activity_items_total",
			Help:      "Activity items written, by type.",
		},
		[]string{"type"},
	)

	activitySuppressed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hive",
			Name:      "activity_suppressed_total",
			Help:      "Activity items dropped by mute settings, by type.",
		},
		[]string{"type"},
	)

	retentionDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hive",
			Subsystem: "retention",
			Name:      "deleted_total",
			Help:      "Messages deleted by retention cleanup, by channel.",
		},
		[]string{"channel"},
	)

	retentionRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hive",
			Subsystem: "retention",
			Name:      "runs_total",
			Help:      "Retention runs, by outcome.",
		},
		[]string{"status"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hive",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "status"},
	)

	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hive",
			Subsystem: "ws",
			Name:      "connections",
			Help:      "Open websocket connections.",
		},
	)
)

func init() {
	Registry.MustRegister(
		messagesSent,
		activityItems,
		activitySuppressed,
		retentionDeleted,
		retentionRuns,
		httpRequests,
		wsConnections,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func MessageSent(msgType string, direct bool) {
	thread := "channel"
	if direct {
		thread = "direct"
	}
	messagesSent.WithLabelValues(msgType, thread).Inc()
}

func ActivityWritten(activityType string) {
	activityItems.WithLabelValues(activityType).Inc()
}

func ActivitySuppressed(activityType string) {
	activitySuppressed.WithLabelValues(activityType).Inc()
}

func RetentionDeleted(channel string, n int) {
	retentionDeleted.WithLabelValues(channel).Add(float64(n))
}

func RetentionRun(success bool) {
	status := "success"
	if !success {
		status = "partial"
	}
	retentionRuns.WithLabelValues(status).Inc()
}

func WSConnected()    { wsConnections.Inc() }
func WSDisconnected() { wsConnections.Dec() }

// InstrumentHandler counts requests by method and status.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		httpRequests.WithLabelValues(strings.ToUpper(r.Method), strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack passes the connection through for websocket upgrades.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}
