package athlete

import "github.com/training-dashboard/backend/internal/storage/models"

// SummaryWindow is how many of the most recent activities the weekly
// summary covers.
const SummaryWindow = 8

// Summary totals the most recent activities for the dashboard card.
type Summary struct {
	Activities     int     `json:"activities"`
	DistanceKm     float64 `json:"distance_km"`
	MovingTimeS    int     `json:"moving_time_s"`
	Kilojoules     float64 `json:"kilojoules"`
	TSS            float64 `json:"tss"`
	ElevationGainM float64 `json:"elevation_gain_m"`
}

// Summarize totals the first n activities. Absent values count as zero.
func Summarize(activities []models.Activity, n int) Summary {
	if n > len(activities) || n < 0 {
		n = len(activities)
	}

	var sum Summary
	for _, a := range activities[:n] {
		sum.Activities++
		sum.DistanceKm += a.DistanceM / 1000
		sum.MovingTimeS += a.MovingTimeS
		sum.ElevationGainM += a.TotalElevationGainM
		if a.Kilojoules != nil {
			sum.Kilojoules += *a.Kilojoules
		}
		if a.TSS != nil {
			sum.TSS += *a.TSS
		}
	}
	return sum
}
