// Package export writes athlete data in spreadsheet-friendly formats.
package export

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/training-dashboard/backend/internal/format"
	"github.com/training-dashboard/backend/internal/storage/models"
)

// ActivityRow is one CSV line of the activities export.
type ActivityRow struct {
	ID         int64  `csv:"id"`
	Date       string `csv:"date"`
	Name       string `csv:"name"`
	Sport      string `csv:"sport_type"`
	DistanceKm string `csv:"distance_km"`
	Duration   string `csv:"moving_time"`
	Pace       string `csv:"pace_min_km"`
	SpeedKmh   string `csv:"avg_speed_kmh"`
	ElevationM string `csv:"elevation_gain_m"`
	HeartRate  string `csv:"avg_heartrate"`
	Watts      string `csv:"avg_watts"`
	TSS        string `csv:"tss"`
	Intensity  string `csv:"if"`
	Kilojoules string `csv:"kilojoules"`
	Trainer    bool   `csv:"trainer"`
}

// ActivityRows converts activities into export rows.
func ActivityRows(activities []models.Activity) []*ActivityRow {
	rows := make([]*ActivityRow, 0, len(activities))
	for _, a := range activities {
		var kmh *float64
		if a.AverageSpeed != nil {
			v := format.Kmh(*a.AverageSpeed)
			kmh = &v
		}
		elevation := a.TotalElevationGainM
		rows = append(rows, &ActivityRow{
			ID:         a.ID,
			Date:       a.StartDay(),
			Name:       a.Name,
			Sport:      a.SportType,
			DistanceKm: format.Distance(a.DistanceM),
			Duration:   format.Duration(float64(a.MovingTimeS)),
			Pace:       format.Pace(float64(a.MovingTimeS), a.DistanceM),
			SpeedKmh:   format.Fixed(kmh, 1, ""),
			ElevationM: format.Fixed(&elevation, 0, ""),
			HeartRate:  format.Fixed(a.AverageHeartrate, 0, ""),
			Watts:      format.Fixed(a.AverageWatts, 0, ""),
			TSS:        format.Fixed(a.TSS, 0, ""),
			Intensity:  format.Fixed(a.IFValue, 2, ""),
			Kilojoules: format.Fixed(a.Kilojoules, 0, ""),
			Trainer:    a.Trainer,
		})
	}
	return rows
}

// WriteActivitiesCSV writes the activities as CSV with a header row.
func WriteActivitiesCSV(w io.Writer, activities []models.Activity) error {
	if err := gocsv.Marshal(ActivityRows(activities), w); err != nil {
		return fmt.Errorf("encoding activities csv: %w", err)
	}
	return nil
}
