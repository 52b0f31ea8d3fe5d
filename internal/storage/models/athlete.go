// Package models contains the domain models for the application.
package models

import (
	"strconv"
	"time"
)

// AthleteID identifies an athlete on the coach API. The zero value means
// no athlete is selected.
type AthleteID int64

// IsZero reports whether no athlete is selected.
func (id AthleteID) IsZero() bool {
	return id == 0
}

func (id AthleteID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseAthleteID parses a decimal athlete id. Empty input yields the zero id.
func ParseAthleteID(s string) (AthleteID, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return AthleteID(v), nil
}

// DailyMetricSnapshot is the latest fitness/fatigue/form values for an athlete.
type DailyMetricSnapshot struct {
	Day       string     `json:"day"`
	CTL       *float64   `json:"ctl"`
	ATL       *float64   `json:"atl"`
	TSB       *float64   `json:"tsb"`
	TSS       *float64   `json:"tss"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// MetricHistoryPoint is one day of the CTL/ATL/TSB history.
type MetricHistoryPoint struct {
	Day string   `json:"day"`
	CTL *float64 `json:"ctl"`
	ATL *float64 `json:"atl"`
	TSB *float64 `json:"tsb"`
}
