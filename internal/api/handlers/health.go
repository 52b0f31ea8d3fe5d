package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/training-dashboard/backend/internal/format"
)

// Pinger checks the database connection.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ClientCounter reports connected WebSocket clients.
type ClientCounter interface {
	ClientCount() int
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"db_connected"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbConnected := db.PingContext(r.Context()) == nil

		status := "healthy"
		code := http.StatusOK
		if !dbConnected {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, HealthResponse{
			Status:      status,
			DBConnected: dbConnected,
		})
	}
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	Authenticated    bool   `json:"authenticated"`
	AthleteID        int64  `json:"athlete_id,omitempty"`
	SyncBusy         bool   `json:"sync_busy"`
	SyncPhase        string `json:"sync_phase"`
	LastSync         string `json:"last_sync"`
	NextAutoSyncAt   string `json:"next_auto_sync_at,omitempty"`
	WebSocketClients int    `json:"websocket_clients"`
	DashboardLoaded  bool   `json:"dashboard_loaded"`
}

// Status returns a handler that provides system status information.
func Status(sessions Sessions, dashboard Dashboard, syncer Syncer, scheduler NextRunner, clients ClientCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := syncer.Status()
		resp := StatusResponse{
			Authenticated:    sessions.Token() != "",
			AthleteID:        int64(sessions.Identity()),
			SyncBusy:         st.Busy,
			SyncPhase:        string(st.Phase),
			LastSync:         format.Relative(nil),
			WebSocketClients: clients.ClientCount(),
			DashboardLoaded:  dashboard.Snapshot().RefreshedAt != nil,
		}
		if last := syncer.LastRun(); last != nil {
			resp.LastSync = format.Relative(last.FinishedAt)
		}
		if next := scheduler.NextRun(); next != nil {
			resp.NextAutoSyncAt = next.Format(time.RFC3339)
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
