package scheduler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/memorylane/backend/internal/models"
)

// Handler exposes the raw scheduler operations for callers outside the
// quiz flow (caregiver tooling, offline evaluation).
type Handler struct {
	sched *Scheduler
}

func NewHandler(sched *Scheduler) *Handler {
	return &Handler{sched: sched}
}

// NextInterval handles POST /api/v1/scheduler/next-interval.
func (h *Handler) NextInterval(w http.ResponseWriter, r *http.Request) {
	var req models.NextIntervalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	band, ok := parseBand(req.LoadBand)
	if !ok {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "load_band must be low, moderate, or high"})
		return
	}
	if req.Difficulty < 1 || req.Difficulty > 3 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "difficulty must be 1-3"})
		return
	}

	action := h.sched.NextInterval(req.ItemID, req.Difficulty, band)
	writeJSON(w, http.StatusOK, models.NextIntervalResponse{
		ItemID:          req.ItemID,
		IntervalSeconds: int(action),
	})
}

// RecordResult handles POST /api/v1/scheduler/record-result.
func (h *Handler) RecordResult(w http.ResponseWriter, r *http.Request) {
	var req models.RecordResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	band, ok := parseBand(req.LoadBand)
	if !ok {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "load_band must be low, moderate, or high"})
		return
	}
	if req.Difficulty < 1 || req.Difficulty > 3 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "difficulty must be 1-3"})
		return
	}
	if req.LatencySec < 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "latency_sec must be non-negative"})
		return
	}

	action, reward, err := h.sched.ReviewOutcome(req.ItemID, req.Difficulty, req.Correct, req.LatencySec, band)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, models.RecordResultResponse{
		ItemID:          req.ItemID,
		Reward:          reward,
		IntervalSeconds: int(action),
	})
}

// ItemStats handles GET /api/v1/scheduler/items/{id}/stats.
func (h *Handler) ItemStats(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "invalid item id"})
		return
	}
	stats, ok := h.sched.ItemStats(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "no reviews recorded for item"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func parseBand(s string) (models.CognitiveLoadBand, bool) {
	band := models.CognitiveLoadBand(s)
	return band, models.ValidLoadBands[band]
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
