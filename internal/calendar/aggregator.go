// Package calendar buckets activities and races into a Monday-first month
// grid and keeps the calendar page data loaded.
package calendar

import (
	"strings"
	"time"

	"github.com/training-dashboard/backend/internal/storage/models"
)

// DateLayout is the bucket key format.
const DateLayout = "2006-01-02"

// Kind distinguishes the two calendar item types.
type Kind string

const (
	KindActivity Kind = "activity"
	KindRace     Kind = "race"
)

// Item is one entry inside a calendar day.
type Item struct {
	Kind     Kind             `json:"kind"`
	Activity *models.Activity `json:"activity,omitempty"`
	Race     *models.Race     `json:"race,omitempty"`
}

// BucketKey returns the YYYY-MM-DD day an item belongs to. The date portion
// of the server string is used verbatim so no timezone shift can move an
// activity to a neighbouring day. An item without a date has no key.
func BucketKey(it Item) string {
	switch it.Kind {
	case KindActivity:
		if it.Activity == nil {
			return ""
		}
		return it.Activity.StartDay()
	case KindRace:
		if it.Race == nil {
			return ""
		}
		day, _, _ := strings.Cut(it.Race.RaceDate, "T")
		return day
	}
	return ""
}

// Index buckets activities then races by day, keeping input order inside
// each bucket.
func Index(activities []models.Activity, races []models.Race) map[string][]Item {
	index := make(map[string][]Item)
	add := func(it Item) {
		if key := BucketKey(it); key != "" {
			index[key] = append(index[key], it)
		}
	}
	for i := range activities {
		a := activities[i]
		add(Item{Kind: KindActivity, Activity: &a})
	}
	for i := range races {
		r := races[i]
		add(Item{Kind: KindRace, Race: &r})
	}
	return index
}

// ItemsOn returns the items bucketed on date's calendar day, never nil.
func ItemsOn(index map[string][]Item, date time.Time) []Item {
	items := index[date.Format(DateLayout)]
	if items == nil {
		return []Item{}
	}
	return items
}

// Day is one cell of the month grid.
type Day struct {
	Date    time.Time `json:"-"`
	DateStr string    `json:"date"`
	Number  int       `json:"day"`
	IsToday bool      `json:"is_today"`
	Items   []Item    `json:"items"`
}

// Month is the grid for one calendar month.
type Month struct {
	Year          int        `json:"year"`
	Month         time.Month `json:"month"`
	LeadingBlanks int        `json:"leading_blanks"`
	Days          []Day      `json:"days"`
}

// BuildMonth lays out the month containing viewDate. Weeks start on Monday,
// so LeadingBlanks is 0 for a month starting on Monday and 6 for Sunday.
// Today is decided by calendar date in viewDate's location.
func BuildMonth(activities []models.Activity, races []models.Race, viewDate, now time.Time) Month {
	loc := viewDate.Location()
	first := time.Date(viewDate.Year(), viewDate.Month(), 1, 0, 0, 0, 0, loc)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	ty, tm, td := now.In(loc).Date()
	index := Index(activities, races)

	m := Month{
		Year:          first.Year(),
		Month:         first.Month(),
		LeadingBlanks: (int(first.Weekday()) + 6) % 7,
		Days:          make([]Day, 0, daysInMonth),
	}
	for d := 1; d <= daysInMonth; d++ {
		date := time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, loc)
		m.Days = append(m.Days, Day{
			Date:    date,
			DateStr: date.Format(DateLayout),
			Number:  d,
			IsToday: date.Year() == ty && date.Month() == tm && d == td,
			Items:   ItemsOn(index, date),
		})
	}
	return m
}

// Cells returns the grid as LeadingBlanks nil cells followed by the days.
func (m Month) Cells() []*Day {
	cells := make([]*Day, m.LeadingBlanks, m.LeadingBlanks+len(m.Days))
	for i := range m.Days {
		cells = append(cells, &m.Days[i])
	}
	return cells
}

// Weeks splits Cells into rows of seven, padding the last row with nils.
func (m Month) Weeks() [][]*Day {
	cells := m.Cells()
	for len(cells)%7 != 0 {
		cells = append(cells, nil)
	}
	weeks := make([][]*Day, 0, len(cells)/7)
	for i := 0; i < len(cells); i += 7 {
		weeks = append(weeks, cells[i:i+7])
	}
	return weeks
}

// ChangeMonth moves viewDate by offset months, anchored on the first day so
// 31 January plus one month is February.
func ChangeMonth(viewDate time.Time, offset int) time.Time {
	return time.Date(viewDate.Year(), viewDate.Month()+time.Month(offset), 1, 0, 0, 0, 0, viewDate.Location())
}

// ParseMonth parses "YYYY-MM" into the first day of that month in loc.
func ParseMonth(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01", s, loc)
}
