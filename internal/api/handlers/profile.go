package handlers

import (
	"encoding/json"
	"log"
	"math"
	"net/http"

	"github.com/training-dashboard/backend/internal/api/middleware"
	"github.com/training-dashboard/backend/internal/format"
)

// athleteProfile holds the profile fields that get display values.
type athleteProfile struct {
	FTPWatts           *float64 `json:"ftp_watts"`
	LTHRBpm            *float64 `json:"lthr_bpm"`
	ThresholdPaceSecKm *float64 `json:"threshold_pace_sec_per_km"`
	TargetWeeklyTSS    *float64 `json:"target_weekly_tss"`
}

// ProfileResponse is the profile page.
type ProfileResponse struct {
	Profile       json.RawMessage `json:"profile"`
	FTP           string          `json:"ftp"`
	LTHR          string          `json:"lthr"`
	ThresholdPace string          `json:"threshold_pace"`
	WeeklyTSS     string          `json:"target_weekly_tss"`
}

// GetProfile returns the athlete profile with its display values.
func GetProfile(sessions Sessions, profiles ProfileReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := profiles.Profile(r.Context(), sessions.Identity())
		if err != nil {
			writeUpstreamError(w, err, "Failed to load profile")
			return
		}
		if len(raw) == 0 {
			raw = json.RawMessage("null")
		}

		var p athleteProfile
		if err := json.Unmarshal(raw, &p); err != nil {
			log.Printf("Unexpected profile payload: %v", err)
			middleware.WriteError(w, http.StatusBadGateway, middleware.ErrUpstream, "Failed to load profile")
			return
		}

		var pace *int
		if p.ThresholdPaceSecKm != nil {
			v := int(math.Round(*p.ThresholdPaceSecKm))
			pace = &v
		}

		writeJSON(w, http.StatusOK, ProfileResponse{
			Profile:       raw,
			FTP:           format.Value(p.FTPWatts, 0, " W", format.Dash),
			LTHR:          format.Value(p.LTHRBpm, 0, " bpm", format.Dash),
			ThresholdPace: format.ThresholdPace(pace),
			WeeklyTSS:     format.Fixed(p.TargetWeeklyTSS, 0, format.Dash),
		})
	}
}
