// Package httptransport is the thin operational HTTP layer: health,
// metrics, triggering a run, and inspecting the last run. It delegates to
// the pipeline without embedding load logic.
package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"trialsearch/internal/ingest/pipeline"
	"trialsearch/internal/trial/engine"
)

// RunService is what the handler needs from the pipeline.
type RunService interface {
	Run(ctx context.Context) (*engine.RunStats, error)
	LastRun() *engine.RunStats
}

// HealthChecker reports backing-store connectivity.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	runs   RunService
	health HealthChecker
	logger *slog.Logger
}

func NewHandler(runs RunService, health HealthChecker, logger *slog.Logger) *Handler {
	return &Handler{runs: runs, health: health, logger: logger}
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.health.PingContext(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": "database unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTriggerRun starts a synchronous pipeline run. The response is the
// run's statistics; a concurrent run yields 409.
func (h *Handler) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	stats, err := h.runs.Run(r.Context())
	if err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		h.logger.ErrorContext(r.Context(), "triggered run failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "run failed"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleLastRun(w http.ResponseWriter, r *http.Request) {
	stats := h.runs.LastRun()
	if stats == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no run has completed yet"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
