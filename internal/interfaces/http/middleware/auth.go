package middleware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dreschagin/mission-control/pkg/logger"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrMissingToken = fmt.Errorf("%w: missing token", ErrUnauthorized)
	ErrInvalidToken = fmt.Errorf("%w: invalid token", ErrUnauthorized)
)

// AuthConfig задает проверку операторского токена
type AuthConfig struct {
	Enabled     bool
	BearerToken string
	// AllowQueryToken разрешает ?token=; нужен только для /ws,
	// потому что new WebSocket() в браузере не передает заголовки
	AllowQueryToken bool
}

// TokenSource откуда взят токен запроса
type TokenSource string

const (
	TokenSourceNone   TokenSource = ""
	TokenSourceHeader TokenSource = "header"
	TokenSourceCookie TokenSource = "cookie"
	TokenSourceQuery  TokenSource = "query"
)

// SessionCookieName cookie, которую выдает /api/v1/auth/login
const SessionCookieName = "mission_control_session"

// Auth пропускает только запросы с действующим операторским токеном
func Auth(cfg AuthConfig, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			source, err := Authenticate(r, cfg)
			if err != nil {
				log.Warn("Unauthorized request",
					"path", r.URL.Path,
					"method", r.Method,
					"reason", err.Error(),
					"token_source", string(source),
					"client_ip", ClientIP(r),
					"request_id", RequestIDFrom(r),
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="mission-control"`)
				WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate проверяет токен запроса и сообщает, откуда он взят
func Authenticate(r *http.Request, cfg AuthConfig) (TokenSource, error) {
	if !cfg.Enabled {
		return TokenSourceNone, nil
	}

	token, source := extractToken(r, cfg.AllowQueryToken)
	if token == "" {
		return TokenSourceNone, ErrMissingToken
	}
	if !TokenMatches(token, cfg) {
		return source, ErrInvalidToken
	}
	return source, nil
}

// ValidateRequestAuth возвращает nil, если запрос аутентифицирован
func ValidateRequestAuth(r *http.Request, cfg AuthConfig) error {
	_, err := Authenticate(r, cfg)
	return err
}

// TokenMatches сравнивает токен за постоянное время; пустой настроенный токен не совпадает ни с чем
func TokenMatches(token string, cfg AuthConfig) bool {
	expected := strings.TrimSpace(cfg.BearerToken)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(expected)) == 1
}

func extractToken(r *http.Request, allowQuery bool) (string, TokenSource) {
	if scheme, value, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " "); ok {
		if strings.EqualFold(scheme, "Bearer") {
			if token := strings.TrimSpace(value); token != "" {
				return token, TokenSourceHeader
			}
		}
	}

	if c, err := r.Cookie(SessionCookieName); err == nil {
		if token := strings.TrimSpace(c.Value); token != "" {
			return token, TokenSourceCookie
		}
	}

	if allowQuery {
		if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
			return token, TokenSourceQuery
		}
	}

	return "", TokenSourceNone
}

// SetSessionCookie выдает HttpOnly cookie с токеном оператора
func SetSessionCookie(w http.ResponseWriter, token string, secure bool, maxAgeSeconds int) {
	http.SetCookie(w, sessionCookie(token, secure, maxAgeSeconds))
}

// ClearSessionCookie удаляет cookie сессии
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, sessionCookie("", secure, -1))
}

func sessionCookie(value string, secure bool, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	}
}
