package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	wsInfra "github.com/dreschagin/mission-control/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/mission-control/internal/interfaces/http/middleware"
	"github.com/dreschagin/mission-control/pkg/logger"
)

const defaultMaxClients = 500

// originPolicy список origin дашбордов, которым разрешено подключение
type originPolicy struct {
	allowAll bool
	origins  map[string]struct{}
}

func newOriginPolicy(allowed []string) originPolicy {
	policy := originPolicy{origins: make(map[string]struct{}, len(allowed))}
	for _, origin := range allowed {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		switch origin {
		case "":
		case "*":
			policy.allowAll = true
		default:
			policy.origins[strings.ToLower(origin)] = struct{}{}
		}
	}
	return policy
}

// allows принимает только origin вида scheme://host[:port]; пустой список запрещает все
func (p originPolicy) allows(r *http.Request) bool {
	raw := strings.TrimSpace(r.Header.Get("Origin"))
	if raw == "" {
		return false
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return false
	}
	if p.allowAll {
		return true
	}
	_, ok := p.origins[strings.ToLower(parsed.Scheme+"://"+parsed.Host)]
	return ok
}

// WebSocketHandler подключает дашборды к live-ленте оценок, обратного отсчета и объявлений
type WebSocketHandler struct {
	hub        *wsInfra.Hub
	logger     *logger.Logger
	authConfig middleware.AuthConfig
	maxClients int
	upgrader   websocket.Upgrader
}

// NewWebSocketHandler создает новый handler; maxClients <= 0 означает значение по умолчанию
func NewWebSocketHandler(
	hub *wsInfra.Hub,
	allowedOrigins []string,
	authConfig middleware.AuthConfig,
	maxClients int,
	logger *logger.Logger,
) *WebSocketHandler {
	if maxClients <= 0 {
		maxClients = defaultMaxClients
	}
	authConfig.AllowQueryToken = true

	policy := newOriginPolicy(allowedOrigins)
	return &WebSocketHandler{
		hub:        hub,
		logger:     logger,
		authConfig: authConfig,
		maxClients: maxClients,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     policy.allows,
		},
	}
}

// HandleConnection обрабатывает GET /ws
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	source, err := middleware.Authenticate(r, h.authConfig)
	if err != nil {
		h.logger.Warn("WebSocket unauthorized",
			"reason", err.Error(),
			"client_ip", middleware.ClientIP(r),
			"request_id", middleware.RequestIDFrom(r),
		)
		middleware.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if clients := h.hub.ClientCount(); clients >= h.maxClients {
		h.logger.Warn("WebSocket client limit reached", "clients", clients, "max_clients", h.maxClients)
		middleware.WriteError(w, http.StatusServiceUnavailable, "too many live clients")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже записал ответ клиенту
		h.logger.Warn("WebSocket upgrade failed", "error", err.Error(), "origin", r.Header.Get("Origin"))
		return
	}

	client := wsInfra.NewClient(h.hub, conn, h.logger)
	h.hub.Register(client)
	h.logger.Debug("Dashboard connected", "client_ip", middleware.ClientIP(r), "token_source", string(source))

	// Hub сразу отправит клиенту последнюю оценку и обратный отсчет
	go client.WritePump()
	go client.ReadPump()
}
