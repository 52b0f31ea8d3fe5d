// Package format renders training metrics for display.
package format

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Display fallbacks for absent values.
const (
	Dash = "--"
	Zero = "0"
)

// splitSeconds rounds to whole seconds before splitting so the seconds part
// never reads 60.
func splitSeconds(seconds float64) (h, m, s int) {
	total := int(math.Round(seconds))
	return total / 3600, (total % 3600) / 60, total % 60
}

func empty(seconds float64) bool {
	return seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0)
}

// Duration formats a moving time: "1h 2m 5s", "1h 2m" or "1:05".
func Duration(seconds float64) string {
	if empty(seconds) {
		return "0s"
	}
	h, m, s := splitSeconds(seconds)
	if h > 0 {
		return hours(h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// CalendarDuration is the compact calendar cell variant: "1h 2m 5s",
// "1:05 min" or "45s".
func CalendarDuration(seconds float64) string {
	if empty(seconds) {
		return "0s"
	}
	h, m, s := splitSeconds(seconds)
	switch {
	case h > 0:
		return hours(h, m, s)
	case m > 0:
		return fmt.Sprintf("%d:%02d min", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

func hours(h, m, s int) string {
	if s > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// Pace returns minutes per kilometre as "m:ss". Zero distance yields "0:00".
func Pace(movingTimeS, distanceM float64) string {
	if distanceM <= 0 || math.IsNaN(distanceM) || math.IsNaN(movingTimeS) {
		return "0:00"
	}
	pace := (movingTimeS / distanceM) * (1000.0 / 60.0)
	m := math.Floor(pace)
	s := math.Round((pace - m) * 60)
	if s >= 60 {
		m++
		s = 0
	}
	return fmt.Sprintf("%d:%02d", int(m), int(s))
}

// PaceWithUnit is Pace followed by " min/km".
func PaceWithUnit(movingTimeS, distanceM float64) string {
	return Pace(movingTimeS, distanceM) + " min/km"
}

// ThresholdPace formats a profile threshold pace given in seconds per km.
func ThresholdPace(secondsPerKm *int) string {
	if secondsPerKm == nil || *secondsPerKm <= 0 {
		return "--:--"
	}
	return fmt.Sprintf("%d:%02d min/km", *secondsPerKm/60, *secondsPerKm%60)
}

// Kmh converts metres per second to kilometres per hour.
func Kmh(mps float64) float64 {
	return mps * 3.6
}

// Km converts metres to kilometres.
func Km(m float64) float64 {
	return m / 1000
}

// Fixed prints v with the given decimals, or fallback when v is absent.
func Fixed(v *float64, decimals int, fallback string) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return fallback
	}
	return strconv.FormatFloat(*v, 'f', decimals, 64)
}

// Value is Fixed with a unit suffix on present values.
func Value(v *float64, decimals int, unit, fallback string) string {
	if v == nil {
		return fallback
	}
	out := Fixed(v, decimals, fallback)
	if out == fallback {
		return fallback
	}
	return out + unit
}

// Speed renders an average speed in m/s as "27.0 km/h".
func Speed(mps *float64) string {
	if mps == nil {
		return Dash
	}
	kmh := Kmh(*mps)
	return Value(&kmh, 1, " km/h", Dash)
}

// Distance renders metres as kilometres with one decimal.
func Distance(m float64) string {
	return strconv.FormatFloat(Km(m), 'f', 1, 64)
}

// Timestamp renders a sync time as "15/03/24 08:30".
func Timestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "--/--/-- --:--"
	}
	return t.Format("02/01/06 15:04")
}
