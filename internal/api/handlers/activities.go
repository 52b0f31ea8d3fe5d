package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/training-dashboard/backend/internal/api/middleware"
	"github.com/training-dashboard/backend/internal/calendar"
	"github.com/training-dashboard/backend/internal/export"
	"github.com/training-dashboard/backend/internal/gateway"
	"github.com/training-dashboard/backend/internal/storage/models"
)

// Page sizes offered by the activities page.
var pageSizes = map[int]bool{10: true, 20: true, 50: true}

const defaultPageSize = 10

// historyStart is the first day the activities page and export ask for.
var historyStart = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// timeNow is replaced in tests.
var timeNow = time.Now

// ActivityPage is one page of the activities table.
type ActivityPage struct {
	Activities []ActivityView `json:"activities"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	HasMore    bool           `json:"has_more"`
}

// ListActivities returns one page of activities since 2000-01-01. There is
// no total count; a full page means there may be more.
func ListActivities(sessions Sessions, lister ActivityLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		limit := defaultPageSize
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || !pageSizes[n] {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "limit must be 10, 20 or 50")
				return
			}
			limit = n
		}
		page := 0
		if v := q.Get("page"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "page must be a non-negative integer")
				return
			}
			page = n
		}

		activities, err := lister.Activities(r.Context(), sessions.Identity(), gateway.ActivityQuery{
			From:   historyStart,
			To:     timeNow(),
			Limit:  limit,
			Offset: page * limit,
		})
		if err != nil {
			writeUpstreamError(w, err, "Failed to load activities")
			return
		}

		writeJSON(w, http.StatusOK, ActivityPage{
			Activities: activityViews(activities),
			Page:       page,
			Limit:      limit,
			HasMore:    len(activities) == limit,
		})
	}
}

// GetActivity returns the detail view of an activity already loaded by the
// dashboard or the calendar.
func GetActivity(dashboard Dashboard, cal Calendar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		for _, a := range dashboard.Snapshot().Activities {
			if a.ID == id {
				writeJSON(w, http.StatusOK, activityDetail(a))
				return
			}
		}
		for _, a := range cal.Snapshot().Activities {
			if a.ID == id {
				writeJSON(w, http.StatusOK, activityDetail(a))
				return
			}
		}

		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Activity not found")
	}
}

// CreateActivity stores a manually entered activity. The calendar and the
// dashboard are reloaded afterwards.
func CreateActivity(cal Calendar, dashboard Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.ActivityCreate
		if !decodeBody(w, r, &req) {
			return
		}
		if err := req.Validate(); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, err.Error())
			return
		}

		created, err := cal.CreateActivity(r.Context(), req)
		if err != nil {
			writeUpstreamError(w, err, "Failed to create activity")
			return
		}
		dashboard.Refresh(r.Context(), false)

		writeJSON(w, http.StatusCreated, activityDetail(*created))
	}
}

// DeleteActivity removes an activity through the sync workflow, which holds
// the busy flag while the delete runs.
func DeleteActivity(sessions Sessions, syncer Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		if err := syncer.DeleteActivity(r.Context(), sessions.Identity(), id); err != nil {
			writeUpstreamError(w, err, "Could not delete activity")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ExportActivities downloads the athlete's activities as CSV.
func ExportActivities(sessions Sessions, lister ActivityLister, limit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := sessions.Identity()
		activities, err := lister.Activities(r.Context(), id, gateway.ActivityQuery{
			From:  historyStart,
			To:    timeNow(),
			Limit: limit,
		})
		if err != nil {
			writeUpstreamError(w, err, "Failed to load activities")
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="activities-%s-%s.csv"`, id, timeNow().Format(calendar.DateLayout)))
		if err := export.WriteActivitiesCSV(w, activities); err != nil {
			// Headers are already sent.
			log.Printf("Failed to write activities export: %v", err)
		}
	}
}
