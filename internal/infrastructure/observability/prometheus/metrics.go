package prometheus

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
)

// Metrics bundles prometheus collectors exposed on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	EvaluationsTotal   *prometheus.CounterVec
	RejectedSnapshots  *prometheus.CounterVec
	AlertSeverity      prometheus.Gauge
	SignalSeverity     *prometheus.GaugeVec
	BreachingProcesses prometheus.Gauge
	ActionRequired     *prometheus.GaugeVec
	Announcements      prometheus.Gauge
	FailoverRemaining  *prometheus.GaugeVec
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mission_control_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mission_control_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mission_control_evaluations_total",
			Help: "Total number of policy evaluations by source and resulting alert state.",
		}, []string{"source", "alert_state"}),
		RejectedSnapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mission_control_snapshots_rejected_total",
			Help: "Total number of snapshots rejected before evaluation.",
		}, []string{"source", "reason"}),
		AlertSeverity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mission_control_alert_severity",
			Help: "Current system alert state (0 green, 1 amber, 2 red).",
		}),
		SignalSeverity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mission_control_signal_severity",
			Help: "Current severity per signal domain (0 green, 1 amber, 2 red).",
		}, []string{"signal"}),
		BreachingProcesses: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mission_control_breaching_processes",
			Help: "Number of processes above the red exception rate.",
		}),
		ActionRequired: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mission_control_action_required",
			Help: "1 when the domain recommendation is Action Required.",
		}, []string{"domain"}),
		Announcements: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mission_control_critical_announcements",
			Help: "Number of active critical announcements.",
		}),
		FailoverRemaining: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mission_control_failover_remaining_minutes",
			Help: "Minutes until the next failover for a site.",
		}, []string{"site"}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.EvaluationsTotal,
		m.RejectedSnapshots,
		m.AlertSeverity,
		m.SignalSeverity,
		m.BreachingProcesses,
		m.ActionRequired,
		m.Announcements,
		m.FailoverRemaining,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

var signalKeys = []valueobject.SignalKey{
	valueobject.SignalFunnel,
	valueobject.SignalProcessQuality,
	valueobject.SignalAging,
	valueobject.SignalBurst,
	valueobject.SignalInfrastructure,
}

// ObserveEvaluation updates gauges from the latest evaluation.
func (m *Metrics) ObserveEvaluation(evaluation *entity.Evaluation, source string) {
	if evaluation == nil {
		return
	}
	result := evaluation.Result()

	m.EvaluationsTotal.WithLabelValues(source, string(evaluation.AlertState())).Inc()
	m.AlertSeverity.Set(float64(evaluation.AlertState().Severity()))

	// Absent signals are reset to green
	levels := make(map[valueobject.SignalKey]valueobject.AlertLevel, len(result.Decision.Signals))
	for _, s := range result.Decision.Signals {
		levels[s.Key] = s.Level
	}
	for _, key := range signalKeys {
		level, ok := levels[key]
		if !ok {
			level = valueobject.AlertGreen
		}
		m.SignalSeverity.WithLabelValues(string(key)).Set(float64(level.Severity()))
	}

	m.BreachingProcesses.Set(float64(len(result.Breaches)))
	m.ActionRequired.WithLabelValues("queue").Set(boolToFloat(result.QueueAction.Label == valueobject.TierActionRequired))
	m.ActionRequired.WithLabelValues("exceptions").Set(boolToFloat(result.ExceptionAction.Label == valueobject.TierActionRequired))
	m.Announcements.Set(float64(len(result.Announcements)))
}

func (m *Metrics) ObserveSnapshotRejected(source, reason string) {
	m.RejectedSnapshots.WithLabelValues(source, reason).Inc()
}

func (m *Metrics) ObserveCountdown(site string, remainingMinutes float64) {
	m.FailoverRemaining.WithLabelValues(site).Set(remainingMinutes)
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := normalizeRoute(r.URL.Path)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
	})
}

func normalizeRoute(path string) string {
	switch {
	case path == "/ws", path == "/metrics", path == "/healthz", path == "/readyz":
		return path
	case strings.HasPrefix(path, "/api/v1/evaluations"):
		return "/api/v1/evaluations/*"
	case strings.HasPrefix(path, "/api/v1/snapshots"):
		return "/api/v1/snapshots"
	case strings.HasPrefix(path, "/api/v1/policy"):
		return "/api/v1/policy/*"
	case strings.HasPrefix(path, "/api/v1/failover"):
		return "/api/v1/failover/*"
	case path == "/api/v1" || strings.HasPrefix(path, "/api/v1/"):
		return "/api/v1/*"
	default:
		return "other"
	}
}

func boolToFloat(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Hijack passes websocket upgrades through wrapped ResponseWriter.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
