package handler

import (
	"net/http"
	"time"

	"versus-be/internal/container"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	container *container.Container
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(container *container.Container) *HealthHandler {
	return &HealthHandler{container: container}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Service      string            `json:"service"`
	Dependencies map[string]string `json:"dependencies"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	deps := h.container.Health(r.Context())

	status := "healthy"
	code := http.StatusOK
	if deps["database"] != "ok" {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	respondJSON(w, code, HealthResponse{
		Status:       status,
		Timestamp:    time.Now().UTC(),
		Service:      "versus-be",
		Dependencies: deps,
	})
}
