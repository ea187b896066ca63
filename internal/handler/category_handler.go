package handler

import (
	"net/http"

	"versus-be/internal/service"
	"versus-be/pkg/logger"
)

type CategoryHandler struct {
	categories service.CategoryService
	logger     *logger.Logger
}

func NewCategoryHandler(categories service.CategoryService, logger *logger.Logger) *CategoryHandler {
	return &CategoryHandler{categories: categories, logger: logger}
}

// List handles GET /api/v1/categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.ListCategories(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"categories": categories})
}
