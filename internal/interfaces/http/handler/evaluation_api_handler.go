package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dreschagin/mission-control/internal/application/port"
	"github.com/dreschagin/mission-control/internal/application/usecase"
	"github.com/dreschagin/mission-control/internal/domain/repository"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
	"github.com/dreschagin/mission-control/pkg/logger"
)

const defaultHistoryDuration = 6 * time.Hour

var errInvalidLimit = errors.New("limit must be a non-negative integer")

// EvaluationAPIHandler обрабатывает API запросы для оценок и журнала переходов
type EvaluationAPIHandler struct {
	getCurrentUC      *usecase.GetCurrentEvaluationUseCase
	getHistoryUC      *usecase.GetEvaluationHistoryUseCase
	listTransitionsUC *usecase.ListAlertTransitionsUseCase
	maxDuration       time.Duration
	logger            *logger.Logger
}

// NewEvaluationAPIHandler создает новый handler
func NewEvaluationAPIHandler(
	getCurrentUC *usecase.GetCurrentEvaluationUseCase,
	getHistoryUC *usecase.GetEvaluationHistoryUseCase,
	listTransitionsUC *usecase.ListAlertTransitionsUseCase,
	maxDuration time.Duration,
	logger *logger.Logger,
) *EvaluationAPIHandler {
	if maxDuration <= 0 {
		maxDuration = 7 * 24 * time.Hour
	}

	return &EvaluationAPIHandler{
		getCurrentUC:      getCurrentUC,
		getHistoryUC:      getHistoryUC,
		listTransitionsUC: listTransitionsUC,
		maxDuration:       maxDuration,
		logger:            logger,
	}
}

// GetCurrent возвращает последнюю оценку
func (h *EvaluationAPIHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	evaluation, err := h.getCurrentUC.Execute(r.Context())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "No evaluation yet", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to get current evaluation", err)
		http.Error(w, "Failed to fetch evaluation", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, evaluation)
}

// GetHistory возвращает историю оценок: ?duration=6h&limit=50
func (h *EvaluationAPIHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	duration := defaultHistoryDuration
	if raw := r.URL.Query().Get("duration"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			http.Error(w, "Invalid duration format", http.StatusBadRequest)
			return
		}
		duration = parsed
	}
	if duration <= 0 || duration > h.maxDuration {
		http.Error(w, "Duration out of allowed range", http.StatusBadRequest)
		return
	}

	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, "Invalid limit", http.StatusBadRequest)
		return
	}

	timeRange, err := valueobject.NewTimeRangeFromDuration(duration)
	if err != nil {
		http.Error(w, "Invalid time range", http.StatusBadRequest)
		return
	}

	history, err := h.getHistoryUC.Execute(r.Context(), timeRange, limit)
	if err != nil {
		h.logger.Error("Failed to get evaluation history", err)
		http.Error(w, "Failed to fetch history", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, history)
}

// ListTransitions возвращает журнал смены уровня тревоги:
// ?limit=20&cursor=...&state=RED&from=RFC3339&to=RFC3339
func (h *EvaluationAPIHandler) ListTransitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()

	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, "Invalid limit", http.StatusBadRequest)
		return
	}

	query := port.AlertTransitionQuery{
		Limit:  limit,
		Cursor: q.Get("cursor"),
	}

	if raw := strings.ToUpper(strings.TrimSpace(q.Get("state"))); raw != "" {
		if err := valueobject.AlertLevel(raw).Validate(); err != nil {
			http.Error(w, "Invalid state", http.StatusBadRequest)
			return
		}
		query.State = raw
	}

	if query.From, err = parseTime(q.Get("from")); err != nil {
		http.Error(w, "Invalid from, expected RFC3339", http.StatusBadRequest)
		return
	}
	if query.To, err = parseTime(q.Get("to")); err != nil {
		http.Error(w, "Invalid to, expected RFC3339", http.StatusBadRequest)
		return
	}
	if !query.From.IsZero() && !query.To.IsZero() && query.To.Before(query.From) {
		http.Error(w, "to must not be before from", http.StatusBadRequest)
		return
	}

	page, err := h.listTransitionsUC.Execute(r.Context(), query)
	if err != nil {
		h.logger.Error("Failed to list alert transitions", err)
		http.Error(w, "Failed to fetch transitions", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, page)
}

func (h *EvaluationAPIHandler) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, errInvalidLimit
	}
	return limit, nil
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
