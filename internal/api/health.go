package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pulsemeet/meetingtracker/internal/database"
)

// BroadcasterLiveness reports how long ago the periodic broadcaster last
// completed a tick, so health checks can detect a stalled loop.
type BroadcasterLiveness interface {
	LastTick() time.Time
}

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
}

type HealthHandler struct {
	db          *database.DB
	broadcaster BroadcasterLiveness
	version     string
	startTime   time.Time
}

func NewHealthHandler(db *database.DB, broadcaster BroadcasterLiveness, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{db: db, broadcaster: broadcaster, version: version, startTime: startTime}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.db.HealthCheck(r.Context()); err != nil {
		checks["database"] = "error"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if h.broadcaster != nil {
		lastTick := h.broadcaster.LastTick()
		if lastTick.IsZero() {
			// No tick has completed yet; report it as starting rather than
			// stalled, for as long as that remains the case.
			checks["broadcaster"] = "starting"
		} else if since := time.Since(lastTick); since > 2*time.Minute {
			checks["broadcaster"] = "stalled"
			if status == "healthy" {
				status = "degraded"
			}
		} else {
			checks["broadcaster"] = "ok"
		}
	} else {
		checks["broadcaster"] = "not_configured"
	}

	resp := HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(resp)
}
