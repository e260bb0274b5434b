package speech

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/memorylane/backend/internal/models"
)

type Handler struct {
	model *Model
	bands *BandRegistry
}

func NewHandler(model *Model, bands *BandRegistry) *Handler {
	return &Handler{model: model, bands: bands}
}

// Analyze scores a raw feature payload and records the resulting band for
// the user. POST /api/v1/speech/analyze
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeSpeechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "user_id is required"})
		return
	}

	score, err := h.model.Predict(req.Features)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Prediction failed"})
		return
	}

	band := h.model.BandForScore(score)
	h.bands.Set(req.UserID, band)

	writeJSON(w, http.StatusOK, models.AnalyzeSpeechResponse{Score: score, Band: band})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
