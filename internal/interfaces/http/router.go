package http

import (
	"net/http"

	promInfra "github.com/dreschagin/mission-control/internal/infrastructure/observability/prometheus"
	"github.com/dreschagin/mission-control/internal/interfaces/http/handler"
	"github.com/dreschagin/mission-control/internal/interfaces/http/middleware"
	"github.com/dreschagin/mission-control/internal/refresh"
	"github.com/dreschagin/mission-control/pkg/config"
	"github.com/dreschagin/mission-control/pkg/logger"
)

// Handlers группирует HTTP handlers приложения
type Handlers struct {
	Snapshot   *handler.SnapshotAPIHandler
	Evaluation *handler.EvaluationAPIHandler
	Policy     *handler.PolicyAPIHandler
	WebSocket  *handler.WebSocketHandler
	Auth       *handler.AuthAPIHandler
	Refresh    *refresh.Handler
}

// Router настраивает маршруты приложения
type Router struct {
	mux         *http.ServeMux
	handlers    Handlers
	metrics     *promInfra.Metrics
	ingestLimit *middleware.IPRateLimiter
	security    config.SecurityConfig
	logger      *logger.Logger
}

// NewRouter создает новый router; metrics может быть nil
func NewRouter(
	handlers Handlers,
	metrics *promInfra.Metrics,
	security config.SecurityConfig,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:         http.NewServeMux(),
		handlers:    handlers,
		metrics:     metrics,
		ingestLimit: middleware.NewIPRateLimiter(security.IngestRatePerMinute, 0),
		security:    security,
		logger:      logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	// Пробы и метрики без аутентификации
	if rt.handlers.Refresh != nil {
		rt.handlers.Refresh.Register(rt.mux)
	}
	if rt.metrics != nil {
		rt.mux.Handle("/metrics", rt.metrics.Handler())
	}

	authMiddleware := middleware.Auth(middleware.AuthConfig{
		Enabled:     rt.security.AuthEnabled,
		BearerToken: rt.security.AuthToken,
	}, rt.logger)
	ingestLimit := middleware.RateLimit(rt.ingestLimit)

	protected := func(h http.HandlerFunc) http.Handler {
		return middleware.Compression(authMiddleware(h))
	}
	ingest := func(h http.HandlerFunc) http.Handler {
		return ingestLimit(authMiddleware(h))
	}

	// WebSocket проверяет токен сам: браузер передает его cookie или query
	rt.mux.HandleFunc("/ws", rt.handlers.WebSocket.HandleConnection)

	// Auth
	rt.mux.HandleFunc("/api/v1/auth/login", rt.handlers.Auth.Login)
	rt.mux.HandleFunc("/api/v1/auth/logout", rt.handlers.Auth.Logout)
	rt.mux.HandleFunc("/api/v1/auth/status", rt.handlers.Auth.Status)

	// Ingest
	rt.mux.Handle("/api/v1/snapshots", ingest(rt.handlers.Snapshot.SubmitSnapshot))
	rt.mux.Handle("/api/v1/policy/evaluate", ingest(rt.handlers.Snapshot.PreviewEvaluation))

	// Queries
	rt.mux.Handle("/api/v1/evaluations/current", protected(rt.handlers.Evaluation.GetCurrent))
	rt.mux.Handle("/api/v1/evaluations/history", protected(rt.handlers.Evaluation.GetHistory))
	rt.mux.Handle("/api/v1/alerts/transitions", protected(rt.handlers.Evaluation.ListTransitions))
	rt.mux.Handle("/api/v1/failover/countdown", protected(rt.handlers.Policy.GetCountdown))
	rt.mux.Handle("/api/v1/policy/thresholds", protected(rt.handlers.Policy.GetThresholds))

	if rt.handlers.Refresh != nil {
		rt.mux.Handle("/api/v1/refresh/run", authMiddleware(rt.handlers.Refresh.RunHandler()))
	}

	// Применяем middleware
	var handler http.Handler = rt.mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = middleware.Logger(rt.logger)(handler)
	handler = middleware.Recovery(rt.logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}

// Close останавливает фоновые процессы router
func (rt *Router) Close() {
	rt.ingestLimit.Stop()
}
