package handler

import (
	"context"
	"net/http"
	"time"

	"vntrbirds-be/internal/container"
)

const healthCheckTimeout = 2 * time.Second

// HealthHandler handles health check requests
type HealthHandler struct {
	container *container.Container
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(container *container.Container) *HealthHandler {
	return &HealthHandler{
		container: container,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Service   string            `json:"service"`
	Checks    map[string]string `json:"checks"`
	Streams   int               `json:"stream_clients"`
}

// Check handles GET /health. The database is required; Redis is reported
// but only degrades the status.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
		Service:   "vntrbirds-be",
		Checks:    map[string]string{},
	}
	status := http.StatusOK

	if db := h.container.GetDB(); db != nil {
		if err := db.Health(ctx); err != nil {
			logger.WithError(err).Warn("Database health check failed")
			response.Checks["database"] = "down"
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		} else {
			response.Checks["database"] = "up"
		}
	}

	if h.container.HasRedis() {
		if err := h.container.GetRedisClient().Health(ctx); err != nil {
			logger.WithError(err).Warn("Redis health check failed")
			response.Checks["redis"] = "down"
			if status == http.StatusOK {
				response.Status = "degraded"
			}
		} else {
			response.Checks["redis"] = "up"
		}
	} else {
		response.Checks["redis"] = "disabled"
	}

	if hub := h.container.GetHub(); hub != nil {
		response.Streams = hub.Total()
	}

	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, status, response)
}
