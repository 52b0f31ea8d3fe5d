package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/training-dashboard/backend/internal/api/middleware"
	"github.com/training-dashboard/backend/internal/format"
	"github.com/training-dashboard/backend/internal/globalsync"
	"github.com/training-dashboard/backend/internal/storage/models"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// SyncStatusResponse is the overlay state plus the last finished run.
type SyncStatusResponse struct {
	globalsync.Status
	LastRun     *models.SyncRun `json:"last_run,omitempty"`
	LastSyncAgo string          `json:"last_sync_ago"`
}

// StartSync starts the import, recalculate and refresh workflow in the
// background. A second trigger while one is running is rejected with 409.
func StartSync(sessions Sessions, syncer Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID, err := syncer.Start(r.Context(), sessions.Identity(), models.TriggerManual)
		if err != nil {
			writeUpstreamError(w, err, globalsync.MessageSyncFailed)
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]string{
			"run_id": runID,
			"status": models.SyncStatusRunning,
		})
	}
}

// SyncStatus returns the current overlay state.
func SyncStatus(syncer Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := SyncStatusResponse{
			Status:      syncer.Status(),
			LastRun:     syncer.LastRun(),
			LastSyncAgo: format.Relative(nil),
		}
		if resp.LastRun != nil {
			resp.LastSyncAgo = format.Relative(resp.LastRun.FinishedAt)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// SyncHistory lists recent sync runs for the signed-in athlete, newest first.
func SyncHistory(sessions Sessions, runs RunHistory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultHistoryLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > maxHistoryLimit {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "limit must be between 1 and 100")
				return
			}
			limit = n
		}

		list, err := runs.ListRecent(r.Context(), sessions.Identity(), limit)
		if err != nil {
			log.Printf("Failed to list sync runs: %v", err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to list sync runs")
			return
		}
		if list == nil {
			list = []models.SyncRun{}
		}

		writeJSON(w, http.StatusOK, list)
	}
}
