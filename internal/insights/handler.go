package insights

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/memorylane/backend/internal/models"
)

// DataSource provides the completed-session and progress aggregates the
// summarizer narrates.
type DataSource interface {
	SessionSummary(sessionID string) (*models.SessionSummary, error)
	UserProgress(userID string) (*models.UserProgress, error)
}

type Handler struct {
	summarizer *Summarizer
	source     DataSource
}

func NewHandler(summarizer *Summarizer, source DataSource) *Handler {
	return &Handler{summarizer: summarizer, source: source}
}

// SessionNarrative handles GET /api/v1/insights/sessions/{id}
func (h *Handler) SessionNarrative(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	summary, err := h.source.SessionSummary(sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.summarizer.SessionNarrative(r.Context(), summary))
}

// ProgressNarrative handles GET /api/v1/insights/users/{id}/progress
func (h *Handler) ProgressNarrative(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	progress, err := h.source.UserProgress(userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.summarizer.ProgressNarrative(r.Context(), progress))
}

// ClinicianReport handles GET /api/v1/insights/users/{id}/report
func (h *Handler) ClinicianReport(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	progress, err := h.source.UserProgress(userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.summarizer.ClinicianReport(r.Context(), progress))
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
	default:
		log.Printf("WARN: insights request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
