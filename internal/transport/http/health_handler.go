package http

import (
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/render"

	"pricingcli/internal/services"
)

// StatusSource reports the calculation state for health checks
type StatusSource interface {
	Status() services.RunStatus
}

// HubStats reports websocket hub counters
type HubStats interface {
	GetHubMetrics() map[string]interface{}
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status        string                 `json:"status"`
	Timestamp     time.Time              `json:"timestamp"`
	Version       string                 `json:"version"`
	UptimeSeconds float64                `json:"uptime_seconds"`
	Calculation   string                 `json:"calculation"`
	LastRunID     string                 `json:"last_run_id,omitempty"`
	WebSocket     map[string]interface{} `json:"websocket,omitempty"`
	GoVersion     string                 `json:"go_version"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	version   string
	status    StatusSource
	hub       HubStats
	startTime time.Time
	logger    *slog.Logger
}

// NewHealthHandler creates a new health handler. hub may be nil.
func NewHealthHandler(version string, status StatusSource, hub HubStats, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		version:   version,
		status:    status,
		hub:       hub,
		startTime: time.Now(),
		logger:    logger.With(slog.String("handler", "health")),
	}
}

// HealthCheck handles GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	run := h.status.Status()

	resp := HealthStatus{
		Status:        "healthy",
		Timestamp:     time.Now().UTC(),
		Version:       h.version,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Calculation:   run.State,
		LastRunID:     run.RunID,
		GoVersion:     runtime.Version(),
	}
	if run.State == services.RunStateFailed {
		resp.Status = "degraded"
	}
	if h.hub != nil {
		resp.WebSocket = h.hub.GetHubMetrics()
	}

	render.JSON(w, r, resp)
}
