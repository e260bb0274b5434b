package quiz

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/memorylane/backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateSession handles POST /api/v1/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.DifficultyLevel == "" {
		req.DifficultyLevel = "mixed"
	}
	if req.NQuestions <= 0 {
		req.NQuestions = 8
	}

	sess, err := h.service.CreateSession(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// SubmitAnswer handles POST /api/v1/sessions/{id}/answers.
func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	req.SessionID = mux.Vars(r)["id"]
	if req.QuestionID == "" || req.SelectedOption == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "question_id and selected_option are required"})
		return
	}

	resp, err := h.service.SubmitAnswer(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CompleteSession handles POST /api/v1/sessions/{id}/complete.
func (h *Handler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	sess, summary, err := h.service.CompleteSession(sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": sess,
		"summary": summary,
	})
}

// SessionSummary handles GET /api/v1/sessions/{id}/summary.
func (h *Handler) SessionSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.SessionSummary(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// UserProgress handles GET /api/v1/users/{id}/progress.
func (h *Handler) UserProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.service.UserProgress(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// ListItems handles GET /api/v1/items?difficulty=N&category=C.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	difficulty := models.DifficultyEasyLevel
	if d := query.Get("difficulty"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n < 1 || n > 3 {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "difficulty must be 1-3"})
			return
		}
		difficulty = n
	}

	items, err := h.service.Items(difficulty, query.Get("category"))
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []models.MemoryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateItem handles POST /api/v1/items.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var item models.MemoryItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	created, err := h.service.CreateItem(item)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetItem handles GET /api/v1/items/{id}.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "invalid item id"})
		return
	}
	item, err := h.service.Item(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// writeError maps the core error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrState):
		status = http.StatusConflict
	case errors.Is(err, models.ErrIncompatibleVersion), errors.Is(err, models.ErrNumerical):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, models.ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
