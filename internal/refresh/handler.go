package refresh

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Handler exposes probes and manual control of the refresh runner
type Handler struct {
	runner *Runner
	checks []Check
}

func NewHandler(runner *Runner, checks ...Check) *Handler {
	return &Handler{runner: runner, checks: checks}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.healthz)
	mux.HandleFunc("/readyz", h.readyz)
	mux.HandleFunc("/api/v1/refresh/status", h.status)
}

// RunHandler triggers a refresh cycle; callers wrap it with auth.
func (h *Handler) RunHandler() http.HandlerFunc {
	return h.runNow
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := h.runner.Status()

	response := map[string]string{
		"status":     "ok",
		"uptime":     time.Since(status.StartedAt).Round(time.Second).String(),
		"last_error": status.LastError,
	}
	if !status.LastRunAt.IsZero() {
		response["last_run"] = status.LastRunAt.UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, response)
}

// readyz fails while a dependency is down or the runner has gone stale.
// Before the first tick the runner is considered ready.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			http.Error(w, "not ready: "+check.Name+" unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	status := h.runner.Status()
	if !status.LastRunAt.IsZero() && time.Since(status.LastRunAt) > status.Interval*3 {
		http.Error(w, "not ready: stale refresh cycle", http.StatusServiceUnavailable)
		return
	}
	if status.LastError != "" {
		http.Error(w, "not ready: last refresh cycle failed", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, h.runner.Status())
}

func (h *Handler) runNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), cycleTimeout)
	defer cancel()

	cycle, err := h.runner.RunOnce(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, cycle)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(data)
}
