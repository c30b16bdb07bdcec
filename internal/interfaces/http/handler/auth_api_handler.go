package handler

import (
	"encoding/json"
	"net/http"

	"github.com/dreschagin/mission-control/internal/interfaces/http/middleware"
	"github.com/dreschagin/mission-control/pkg/logger"
)

const (
	// sessionMaxAge одна операционная смена
	sessionMaxAge = 12 * 60 * 60

	maxLoginBodyBytes = 4096
)

// AuthAPIHandler обменивает операторский токен на cookie сессии, чтобы браузерный
// дашборд открывал /ws и REST без заголовка Authorization
type AuthAPIHandler struct {
	authConfig middleware.AuthConfig
	logger     *logger.Logger
}

type loginRequest struct {
	Token string `json:"token"`
}

type authState struct {
	AuthEnabled   bool   `json:"auth_enabled"`
	Authenticated bool   `json:"authenticated"`
	TokenSource   string `json:"token_source,omitempty"`
}

func NewAuthAPIHandler(authConfig middleware.AuthConfig, log *logger.Logger) *AuthAPIHandler {
	// Токен в query принимается только на /ws
	authConfig.AllowQueryToken = false

	return &AuthAPIHandler{
		authConfig: authConfig,
		logger:     log,
	}
}

// Login POST /api/v1/auth/login {"token": "..."}
func (h *AuthAPIHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.authConfig.Enabled {
		middleware.WriteJSON(w, http.StatusOK, authState{AuthEnabled: false, Authenticated: true})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)
	defer r.Body.Close()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !middleware.TokenMatches(req.Token, h.authConfig) {
		h.logger.Warn("Operator login rejected",
			"client_ip", middleware.ClientIP(r),
			"request_id", middleware.RequestIDFrom(r),
		)
		middleware.WriteError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	middleware.SetSessionCookie(w, h.authConfig.BearerToken, r.TLS != nil, sessionMaxAge)
	h.logger.Info("Operator session opened", "client_ip", middleware.ClientIP(r))

	middleware.WriteJSON(w, http.StatusOK, authState{
		AuthEnabled:   true,
		Authenticated: true,
		TokenSource:   string(middleware.TokenSourceCookie),
	})
}

// Logout POST /api/v1/auth/logout
func (h *AuthAPIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	middleware.ClearSessionCookie(w, r.TLS != nil)
	middleware.WriteJSON(w, http.StatusOK, authState{AuthEnabled: h.authConfig.Enabled})
}

// Status GET /api/v1/auth/status
func (h *AuthAPIHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	source, err := middleware.Authenticate(r, h.authConfig)
	middleware.WriteJSON(w, http.StatusOK, authState{
		AuthEnabled:   h.authConfig.Enabled,
		Authenticated: err == nil,
		TokenSource:   string(source),
	})
}
