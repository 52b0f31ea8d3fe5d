package handlers

import (
	"net/http"

	"github.com/training-dashboard/backend/internal/athlete"
	"github.com/training-dashboard/backend/internal/format"
	"github.com/training-dashboard/backend/internal/storage/models"
)

// SummaryView is the weekly summary card.
type SummaryView struct {
	athlete.Summary
	Distance  string `json:"distance"`
	Duration  string `json:"duration"`
	TSSText   string `json:"tss_text"`
	Elevation string `json:"elevation"`
}

// DashboardResponse is everything the dashboard page renders.
type DashboardResponse struct {
	AthleteID  int64                       `json:"athlete_id"`
	Loading    bool                        `json:"loading"`
	Error      string                      `json:"error,omitempty"`
	Cards      []MetricCard                `json:"cards"`
	History    []models.MetricHistoryPoint `json:"history"`
	Activities []ActivityView              `json:"activities"`
	Summary    SummaryView                 `json:"summary"`
	SyncedAt   string                      `json:"synced_at"`
	SyncedAgo  string                      `json:"synced_ago"`
}

func dashboardResponse(snap athlete.Snapshot) DashboardResponse {
	sum := athlete.Summarize(snap.Activities, athlete.SummaryWindow)
	tss := sum.TSS
	elevation := sum.ElevationGainM

	syncedAt := snap.RefreshedAt
	if snap.Metrics != nil && snap.Metrics.UpdatedAt != nil {
		syncedAt = snap.Metrics.UpdatedAt
	}

	return DashboardResponse{
		AthleteID:  int64(snap.Identity),
		Loading:    snap.Loading,
		Error:      snap.Error,
		Cards:      metricCards(snap.Metrics),
		History:    snap.History,
		Activities: activityViews(snap.Activities),
		Summary: SummaryView{
			Summary:   sum,
			Distance:  format.Distance(sum.DistanceKm * 1000),
			Duration:  format.Duration(float64(sum.MovingTimeS)),
			TSSText:   format.Fixed(&tss, 0, format.Zero),
			Elevation: format.Value(&elevation, 0, " m", format.Dash),
		},
		SyncedAt:  format.Timestamp(syncedAt),
		SyncedAgo: format.Relative(syncedAt),
	}
}

// GetDashboard returns the cached dashboard view.
func GetDashboard(dashboard Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dashboardResponse(dashboard.Snapshot()))
	}
}

// RefreshDashboard reloads the dashboard data and returns the new view.
// A failed refresh is reported in the body's error field.
func RefreshDashboard(dashboard Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := dashboard.Refresh(r.Context(), true)
		writeJSON(w, http.StatusOK, dashboardResponse(snap))
	}
}
