package handler

import (
	"net/http"

	"github.com/dreschagin/mission-control/internal/application/usecase"
	"github.com/dreschagin/mission-control/internal/domain/service"
	"github.com/dreschagin/mission-control/internal/interfaces/http/middleware"
)

// PolicyAPIHandler отдает активные пороги и обратный отсчет до failover
type PolicyAPIHandler struct {
	engine      *service.AlertPolicyEngine
	countdownUC *usecase.FailoverCountdownUseCase
}

func NewPolicyAPIHandler(engine *service.AlertPolicyEngine, countdownUC *usecase.FailoverCountdownUseCase) *PolicyAPIHandler {
	return &PolicyAPIHandler{
		engine:      engine,
		countdownUC: countdownUC,
	}
}

// GetThresholds возвращает ThresholdConfig, загруженный при старте
func (h *PolicyAPIHandler) GetThresholds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	thresholds := h.engine.Thresholds()
	sites := make([]map[string]any, 0, len(h.engine.Targets()))
	for _, target := range h.engine.Targets() {
		sites = append(sites, map[string]any{
			"site":   target.Site,
			"zone":   target.Zone,
			"target": target.At,
		})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"thresholds":    thresholds,
		"leadMinutes":   thresholds.LeadMinutes(),
		"failoverSites": sites,
	})
}

// GetCountdown возвращает текущий обратный отсчет по всем площадкам
func (h *PolicyAPIHandler) GetCountdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, h.countdownUC.Execute())
}
