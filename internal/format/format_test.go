package format

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestDuration(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0s"},
		{math.NaN(), "0s"},
		{65, "1:05"},
		{59.6, "1:00"},
		{3600, "1h 0m"},
		{3725, "1h 2m 5s"},
		{7260, "2h 1m"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Duration(tc.in), "seconds=%v", tc.in)
	}
}

func TestCalendarDuration(t *testing.T) {
	require.Equal(t, "0s", CalendarDuration(0))
	require.Equal(t, "45s", CalendarDuration(45))
	require.Equal(t, "1:05 min", CalendarDuration(65))
	require.Equal(t, "3h 30m", CalendarDuration(12600))
	require.Equal(t, "1h 2m 5s", CalendarDuration(3725))
}

func TestPace(t *testing.T) {
	require.Equal(t, "6:00", Pace(1800, 5000))
	require.Equal(t, "0:00", Pace(1800, 0))
	require.Equal(t, "5:30", Pace(1650, 5000))
	require.Equal(t, "5:00", Pace(299.9, 1000))
	require.Equal(t, "6:00 min/km", PaceWithUnit(1800, 5000))
}

func TestThresholdPace(t *testing.T) {
	require.Equal(t, "--:--", ThresholdPace(nil))
	require.Equal(t, "4:05 min/km", ThresholdPace(ptr(245)))
}

func TestSpeedAndDistance(t *testing.T) {
	require.InDelta(t, 36.0, Kmh(10), 1e-9)
	require.Equal(t, "27.0 km/h", Speed(ptr(7.5)))
	require.Equal(t, Dash, Speed(nil))
	require.Equal(t, "10.5", Distance(10500))
}

func TestFixedAndValue(t *testing.T) {
	require.Equal(t, Dash, Fixed(nil, 1, Dash))
	require.Equal(t, Zero, Fixed(nil, 0, Zero))
	require.Equal(t, "42.4", Fixed(ptr(42.37), 1, Dash))
	require.Equal(t, "0.85", Fixed(ptr(0.849), 2, "0.00"))
	require.Equal(t, "145 bpm", Value(ptr(145.2), 0, " bpm", Dash))
	require.Equal(t, Dash, Value(nil, 0, " bpm", Dash))
}

func TestTimestamp(t *testing.T) {
	require.Equal(t, "--/--/-- --:--", Timestamp(nil))
	ts := time.Date(2024, time.March, 5, 8, 7, 0, 0, time.UTC)
	require.Equal(t, "05/03/24 08:07", Timestamp(&ts))
}

func TestRelative(t *testing.T) {
	require.Equal(t, "never", Relative(nil))
	past := time.Now().Add(-3 * time.Minute)
	require.Equal(t, "3 minutes ago", Relative(&past))
}

func TestNotesHTML(t *testing.T) {
	html, err := NotesHTML(ptr("Goal: **sub 3h**"))
	require.NoError(t, err)
	require.Contains(t, html, "<strong>sub 3h</strong>")

	html, err = NotesHTML(nil)
	require.NoError(t, err)
	require.Empty(t, html)
}
