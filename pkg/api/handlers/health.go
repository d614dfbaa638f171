package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/kbase/idmapping/pkg/storage"
)

// HealthCheckTimeout is the maximum time allowed for the storage ping in
// the readiness probe, so a slow database cannot block health probes
// indefinitely.
const HealthCheckTimeout = 5 * time.Second

// HealthHandler handles the unauthenticated health probe endpoints:
// liveness (is the process up) and readiness (is storage reachable).
type HealthHandler struct {
	store     storage.Store
	startTime time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store storage.Store) *HealthHandler {
	return &HealthHandler{
		store:     store,
		startTime: time.Now(),
	}
}

// HealthResponse is the body of health probe responses.
type HealthResponse struct {
	Status    string `json:"status"`
	StartedAt string `json:"started_at"`
	UptimeSec int64  `json:"uptime_sec"`
	Error     string `json:"error,omitempty"`
}

// Liveness handles GET /health. Succeeds as long as the HTTP server is
// responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.response("healthy", ""))
}

// Readiness handles GET /health/ready. Returns 200 if the backing
// database answers a ping, 503 otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), HealthCheckTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, h.response("unhealthy", err.Error()))
		return
	}
	WriteJSON(w, http.StatusOK, h.response("healthy", ""))
}

func (h *HealthHandler) response(status, errMsg string) HealthResponse {
	return HealthResponse{
		Status:    status,
		StartedAt: h.startTime.UTC().Format(time.RFC3339),
		UptimeSec: int64(time.Since(h.startTime).Seconds()),
		Error:     errMsg,
	}
}
