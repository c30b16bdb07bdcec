package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
)

func redEvaluation() *entity.Evaluation {
	return entity.NewEvaluation(entity.PolicyResult{
		Decision: valueobject.AlertDecision{
			AlertState: valueobject.AlertRed,
			RedCount:   2,
			Signals: []valueobject.Signal{
				{Key: valueobject.SignalProcessQuality, Level: valueobject.AlertRed},
				{Key: valueobject.SignalInfrastructure, Level: valueobject.AlertRed},
			},
		},
		QueueAction:     valueobject.ActionRecommendation{Label: valueobject.TierStable},
		ExceptionAction: valueobject.ActionRecommendation{Label: valueobject.TierActionRequired},
		Breaches:        []valueobject.Breach{{Process: "Claims", MaxValue: 18, Level: valueobject.AlertRed}},
		Announcements:   []valueobject.Announcement{{Kind: valueobject.AnnouncementDown, Title: "All MS Graph APIs are down."}},
		EvaluatedAt:     time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
	}, time.Time{})
}

func TestObserveEvaluation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveEvaluation(redEvaluation(), "http")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues("http", "RED")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AlertSeverity))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SignalSeverity.WithLabelValues("infrastructure")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SignalSeverity.WithLabelValues("funnel")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreachingProcesses))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActionRequired.WithLabelValues("queue")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActionRequired.WithLabelValues("exceptions")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Announcements))

	m.ObserveEvaluation(nil, "http")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues("http", "RED")))
}

func TestObserveRejectedAndCountdown(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveSnapshotRejected("kafka", "decode")
	m.ObserveSnapshotRejected("kafka", "decode")
	m.ObserveCountdown("Reston", 90)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RejectedSnapshots.WithLabelValues("kafka", "decode")))
	assert.Equal(t, 90.0, testutil.ToFloat64(m.FailoverRemaining.WithLabelValues("Reston")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/snapshots", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/api/v1/snapshots", "POST", "202")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "mission_control_http_requests_total"))
}

func TestNormalizeRoute(t *testing.T) {
	tests := map[string]string{
		"/ws":                         "/ws",
		"/healthz":                    "/healthz",
		"/api/v1/evaluations/current": "/api/v1/evaluations/*",
		"/api/v1/policy/evaluate":     "/api/v1/policy/*",
		"/api/v1/failover/countdown":  "/api/v1/failover/*",
		"/api/v1/auth/token":          "/api/v1/*",
		"/favicon.ico":                "other",
	}
	for path, want := range tests {
		assert.Equal(t, want, normalizeRoute(path), path)
	}
}
