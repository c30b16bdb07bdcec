package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dreschagin/mission-control/internal/application/dto"
	"github.com/dreschagin/mission-control/internal/application/port"
	"github.com/dreschagin/mission-control/internal/application/usecase"
	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/internal/interfaces/http/middleware"
	"github.com/dreschagin/mission-control/pkg/logger"
)

const defaultMaxSnapshotBytes = 512 * 1024

// SnapshotAPIHandler принимает снимки метрик и возвращает результат оценки
type SnapshotAPIHandler struct {
	evaluateUC      *usecase.EvaluateSnapshotUseCase
	metrics         port.PolicyMetrics
	maxPayloadBytes int64
	logger          *logger.Logger
}

// NewSnapshotAPIHandler создает новый handler; metrics может быть nil
func NewSnapshotAPIHandler(
	evaluateUC *usecase.EvaluateSnapshotUseCase,
	metrics port.PolicyMetrics,
	maxPayloadBytes int64,
	log *logger.Logger,
) *SnapshotAPIHandler {
	if maxPayloadBytes <= 0 {
		maxPayloadBytes = defaultMaxSnapshotBytes
	}

	return &SnapshotAPIHandler{
		evaluateUC:      evaluateUC,
		metrics:         metrics,
		maxPayloadBytes: maxPayloadBytes,
		logger:          log,
	}
}

// SubmitSnapshot оценивает снимок, сохраняет результат и рассылает его подписчикам
func (h *SnapshotAPIHandler) SubmitSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot, ok := h.decode(w, r)
	if !ok {
		return
	}

	evaluation, err := h.evaluateUC.Execute(r.Context(), snapshot, usecase.SourceHTTP)
	if err != nil {
		h.logger.Error("Failed to evaluate snapshot", err, "request_id", middleware.RequestIDFrom(r))
		http.Error(w, "Failed to evaluate snapshot", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Snapshot evaluated",
		"evaluation_id", evaluation.ID,
		"alert_state", evaluation.Decision.AlertState,
		"request_id", middleware.RequestIDFrom(r),
	)

	h.writeEvaluation(w, http.StatusCreated, evaluation)
}

// PreviewEvaluation вычисляет политику без сохранения и рассылки
func (h *SnapshotAPIHandler) PreviewEvaluation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot, ok := h.decode(w, r)
	if !ok {
		return
	}

	evaluation, err := h.evaluateUC.Preview(snapshot)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeEvaluation(w, http.StatusOK, evaluation)
}

// decode читает тело запроса с ограничением размера и пишет ответ при ошибке
func (h *SnapshotAPIHandler) decode(w http.ResponseWriter, r *http.Request) (*entity.MetricsSnapshot, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxPayloadBytes)
	defer r.Body.Close()

	var snapshot entity.MetricsSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snapshot); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			h.reject("too_large")
			http.Error(w, "Payload too large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, io.EOF):
			h.reject("empty")
			http.Error(w, "Empty request body", http.StatusBadRequest)
		default:
			h.reject("decode")
			http.Error(w, "Invalid snapshot body", http.StatusBadRequest)
		}
		return nil, false
	}

	return &snapshot, true
}

func (h *SnapshotAPIHandler) reject(reason string) {
	if h.metrics != nil {
		h.metrics.ObserveSnapshotRejected(usecase.SourceHTTP, reason)
	}
}

func (h *SnapshotAPIHandler) writeEvaluation(w http.ResponseWriter, status int, evaluation *dto.EvaluationDTO) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(evaluation); err != nil {
		h.logger.Error("Failed to encode evaluation response", err)
	}
}
