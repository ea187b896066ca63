package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"versus-be/internal/domain"
	"versus-be/internal/middleware"
	"versus-be/internal/repository"
	"versus-be/internal/service"
	"versus-be/pkg/logger"

	"github.com/go-chi/chi/v5"
)

type TestHandler struct {
	tests  service.TestService
	logger *logger.Logger
}

func NewTestHandler(tests service.TestService, logger *logger.Logger) *TestHandler {
	return &TestHandler{tests: tests, logger: logger}
}

// List handles GET /api/v1/tests
func (h *TestHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.ListFilter{
		CategoryID: r.URL.Query().Get("category"),
		IsActive:   parseBoolParam(r, "active"),
		Trend:      parseBoolParam(r, "trend"),
		Popular:    parseBoolParam(r, "popular"),
		SortBy:     r.URL.Query().Get("sort"),
		SortDesc:   r.URL.Query().Get("order") != "asc",
		Page:       parseIntParam(r, "page", 1),
		Limit:      parseIntParam(r, "limit", 10),
	}

	listing, err := h.tests.ListTests(r.Context(), filter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, listing)
}

// Popular handles GET /api/v1/tests/popular
func (h *TestHandler) Popular(w http.ResponseWriter, r *http.Request) {
	h.listFlagged(w, r, func(f *repository.ListFilter) { f.Popular = boolPtr(true) })
}

// Trend handles GET /api/v1/tests/trend
func (h *TestHandler) Trend(w http.ResponseWriter, r *http.Request) {
	h.listFlagged(w, r, func(f *repository.ListFilter) { f.Trend = boolPtr(true) })
}

func (h *TestHandler) listFlagged(w http.ResponseWriter, r *http.Request, apply func(*repository.ListFilter)) {
	filter := repository.ListFilter{
		IsActive: boolPtr(true),
		SortBy:   "total_votes",
		SortDesc: true,
		Page:     parseIntParam(r, "page", 1),
		Limit:    parseIntParam(r, "limit", 10),
	}
	apply(&filter)

	listing, err := h.tests.ListTests(r.Context(), filter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, listing)
}

// Create handles POST /api/v1/tests
func (h *TestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var test domain.Test
	if err := json.NewDecoder(r.Body).Decode(&test); err != nil {
		respondError(w, r, h.logger, domain.ErrValidation)
		return
	}

	caller := middleware.ParticipantFromContext(r.Context())
	created, err := h.tests.CreateTest(r.Context(), caller, &test)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// Get handles GET /api/v1/tests/{testID}
func (h *TestHandler) Get(w http.ResponseWriter, r *http.Request) {
	test, err := h.tests.GetTest(r.Context(), chi.URLParam(r, "testID"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, test)
}

// Update handles PATCH /api/v1/tests/{testID}
func (h *TestHandler) Update(w http.ResponseWriter, r *http.Request) {
	var draft domain.Test
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		respondError(w, r, h.logger, domain.ErrValidation)
		return
	}

	caller := middleware.ParticipantFromContext(r.Context())
	updated, err := h.tests.UpdateTest(r.Context(), caller, chi.URLParam(r, "testID"), &draft)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/tests/{testID}
func (h *TestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller := middleware.ParticipantFromContext(r.Context())
	if err := h.tests.DeleteTest(r.Context(), caller, chi.URLParam(r, "testID")); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// voteRequest is the body of a flat vote.
type voteRequest struct {
	OptionID string `json:"option_id"`
}

// Vote handles POST /api/v1/tests/{testID}/vote
func (h *TestHandler) Vote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OptionID == "" {
		respondError(w, r, h.logger, domain.ErrValidation)
		return
	}

	tally, err := h.tests.SubmitVote(r.Context(),
		chi.URLParam(r, "testID"), req.OptionID, r.Header.Get("Idempotency-Key"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, tally)
}

// Results handles GET /api/v1/tests/{testID}/results
func (h *TestHandler) Results(w http.ResponseWriter, r *http.Request) {
	results, err := h.tests.Results(r.Context(), chi.URLParam(r, "testID"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// Reset handles POST /api/v1/tests/{testID}/reset
func (h *TestHandler) Reset(w http.ResponseWriter, r *http.Request) {
	caller := middleware.ParticipantFromContext(r.Context())
	if err := h.tests.ResetVotes(r.Context(), caller, chi.URLParam(r, "testID")); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// GlobalStats handles GET /api/v1/tests/stats
func (h *TestHandler) GlobalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tests.GlobalStats(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func boolPtr(v bool) *bool { return &v }

func parseBoolParam(r *http.Request, name string) *bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func parseIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
