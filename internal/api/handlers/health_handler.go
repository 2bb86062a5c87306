package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Pinger is anything whose reachability can be checked, typically the user store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	store Pinger
}

func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// HealthResponse is the liveness body.
type HealthResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessResponse is the readiness body.
type ReadinessResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
}

// Root answers plain text so a browser pointed at the API sees it is up.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Server is running 🚀"))
}

// Liveness always returns 200 while the process is serving.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Message:   "Server is healthy",
		Timestamp: time.Now().UTC(),
	})
}

// Readiness pings the store and returns 503 when it is unreachable.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := ReadinessResponse{Status: StatusHealthy, Timestamp: time.Now().UTC(), Database: "up"}
	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Readiness check failed")
		resp.Status = StatusUnhealthy
		resp.Database = "down"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
