package handler

import (
	"encoding/json"
	"net/http"

	"versus-be/internal/domain"
	"versus-be/internal/middleware"
	"versus-be/internal/service"
	"versus-be/pkg/logger"

	"github.com/go-chi/chi/v5"
)

type SessionHandler struct {
	sessions service.SessionService
	logger   *logger.Logger
}

func NewSessionHandler(sessions service.SessionService, logger *logger.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

// Start handles POST /api/v1/tests/{testID}/sessions
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	caller := middleware.ParticipantFromContext(r.Context())
	progress, err := h.sessions.StartSession(r.Context(), chi.URLParam(r, "testID"), caller)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, progress)
}

// Get handles GET /api/v1/tests/{testID}/sessions/{sessionID}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	progress, err := h.sessions.GetSession(r.Context(),
		chi.URLParam(r, "testID"), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, progress)
}

// pickRequest is the body of one elimination round.
type pickRequest struct {
	OptionID string `json:"option_id"`
}

// Vote handles POST /api/v1/tests/{testID}/sessions/{sessionID}/vote
func (h *SessionHandler) Vote(w http.ResponseWriter, r *http.Request) {
	var req pickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OptionID == "" {
		respondError(w, r, h.logger, domain.ErrValidation)
		return
	}

	caller := middleware.ParticipantFromContext(r.Context())
	progress, err := h.sessions.AdvanceSession(r.Context(),
		chi.URLParam(r, "testID"), chi.URLParam(r, "sessionID"), req.OptionID, caller)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, progress)
}

// Delete handles DELETE /api/v1/tests/{testID}/sessions/{sessionID}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller := middleware.ParticipantFromContext(r.Context())
	err := h.sessions.DeleteSession(r.Context(),
		chi.URLParam(r, "testID"), chi.URLParam(r, "sessionID"), caller)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Results handles GET /api/v1/tests/{testID}/sessions/results
func (h *SessionHandler) Results(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.SessionResults(r.Context(), chi.URLParam(r, "testID"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// MySessions handles GET /api/v1/user/sessions
func (h *SessionHandler) MySessions(w http.ResponseWriter, r *http.Request) {
	caller := middleware.ParticipantFromContext(r.Context())
	participantID := ""
	if caller != nil {
		participantID = caller.ID
	}

	views, err := h.sessions.ParticipantSessions(r.Context(), participantID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"sessions": views})
}
