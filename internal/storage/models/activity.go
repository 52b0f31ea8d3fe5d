package models

import (
	"errors"
	"strings"
	"time"
)

// Activity is a recorded training session as returned by the coach API.
// StartDate keeps the server representation so the calendar day never shifts.
type Activity struct {
	ID                   int64    `json:"id"`
	StravaActivityID     int64    `json:"strava_activity_id,omitempty"`
	Name                 string   `json:"name"`
	SportType            string   `json:"sport_type"`
	StartDate            string   `json:"start_date"`
	Day                  string   `json:"day,omitempty"`
	Timezone             string   `json:"timezone,omitempty"`
	DistanceM            float64  `json:"distance_m"`
	MovingTimeS          int      `json:"moving_time_s"`
	ElapsedTimeS         int      `json:"elapsed_time_s"`
	TotalElevationGainM  float64  `json:"total_elevation_gain_m"`
	AverageSpeed         *float64 `json:"average_speed"`
	MaxSpeed             *float64 `json:"max_speed"`
	AverageWatts         *float64 `json:"average_watts"`
	MaxWatts             *float64 `json:"max_watts"`
	WeightedAverageWatts *float64 `json:"weighted_average_watts"`
	Kilojoules           *float64 `json:"kilojoules"`
	AverageHeartrate     *float64 `json:"average_heartrate"`
	MaxHeartrate         *float64 `json:"max_heartrate"`
	AverageCadence       *float64 `json:"average_cadence"`
	TSS                  *float64 `json:"tss"`
	IFValue              *float64 `json:"if_value"`
	EF                   *float64 `json:"ef"`
	Trainer              bool     `json:"trainer"`
}

// StartDay returns the calendar date portion of StartDate, verbatim.
func (a Activity) StartDay() string {
	day, _, _ := strings.Cut(a.StartDate, "T")
	return day
}

// ActivityCreate is the payload for a manually entered activity.
type ActivityCreate struct {
	Name                string   `json:"name"`
	SportType           string   `json:"sport_type"`
	StartDate           string   `json:"start_date"`
	DistanceM           float64  `json:"distance_m"`
	MovingTimeS         int      `json:"moving_time_s"`
	ElapsedTimeS        int      `json:"elapsed_time_s"`
	TotalElevationGainM float64  `json:"total_elevation_gain_m"`
	AverageHeartrate    *float64 `json:"average_heartrate,omitempty"`
	AverageWatts        *float64 `json:"average_watts,omitempty"`
	Trainer             bool     `json:"trainer"`
}

// Validate checks the manual activity fields the coach API requires.
func (a ActivityCreate) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("name is required")
	}
	if a.SportType == "" {
		return errors.New("sport_type is required")
	}
	if !validStartDate(a.StartDate) {
		return errors.New("start_date must be YYYY-MM-DDTHH:MM")
	}
	if a.MovingTimeS <= 0 {
		return errors.New("moving_time_s must be positive")
	}
	if a.DistanceM < 0 {
		return errors.New("distance_m must not be negative")
	}
	return nil
}

var startDateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}

func validStartDate(s string) bool {
	for _, layout := range startDateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
