package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports backend connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the health check endpoint.
type HealthHandler struct {
	redis     Pinger
	startedAt time.Time
}

// NewHealthHandler creates a HealthHandler. redis may be nil when the cache
// layer is disabled.
func NewHealthHandler(redis Pinger) *HealthHandler {
	return &HealthHandler{
		redis:     redis,
		startedAt: time.Now().UTC(),
	}
}

// HealthCheck reports process liveness and backend connectivity.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	checks := map[string]string{}

	if h.redis != nil {
		if err := h.redis.Ping(r.Context()); err != nil {
			status = "degraded"
			checks["redis"] = err.Error()
		} else {
			checks["redis"] = "ok"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         status,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"checks":         checks,
	})
}
