package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/training-dashboard/backend/internal/api/middleware"
	"github.com/training-dashboard/backend/internal/calendar"
	"github.com/training-dashboard/backend/internal/format"
	"github.com/training-dashboard/backend/internal/storage/models"
)

const monthLayout = "2006-01"

// CalendarItemView is an activity or race inside a calendar cell.
type CalendarItemView struct {
	Kind       calendar.Kind `json:"kind"`
	ID         int64         `json:"id"`
	Name       string        `json:"name"`
	SportType  string        `json:"sport_type,omitempty"`
	Duration   string        `json:"duration,omitempty"`
	Distance   string        `json:"distance_km,omitempty"`
	TSS        string        `json:"tss,omitempty"`
	GoalTime   string        `json:"goal_time,omitempty"`
	CourseType string        `json:"course_type,omitempty"`
	Priority   string        `json:"priority,omitempty"`
	NotesHTML  string        `json:"notes_html,omitempty"`
}

// CalendarDayView is one grid cell.
type CalendarDayView struct {
	Date    string             `json:"date"`
	Day     int                `json:"day"`
	IsToday bool               `json:"is_today"`
	Items   []CalendarItemView `json:"items"`
}

// CalendarResponse is the month grid. Weeks hold null for blank cells.
type CalendarResponse struct {
	Month   string               `json:"month"`
	Title   string               `json:"title"`
	Prev    string               `json:"prev"`
	Next    string               `json:"next"`
	Weeks   [][]*CalendarDayView `json:"weeks"`
	Loading bool                 `json:"loading"`
	Error   string               `json:"error,omitempty"`
}

func calendarItemView(it calendar.Item) CalendarItemView {
	switch it.Kind {
	case calendar.KindActivity:
		a := it.Activity
		return CalendarItemView{
			Kind:      it.Kind,
			ID:        a.ID,
			Name:      a.Name,
			SportType: a.SportType,
			Duration:  format.CalendarDuration(float64(a.MovingTimeS)),
			Distance:  format.Distance(a.DistanceM),
			TSS:       format.Fixed(a.TSS, 0, format.Zero),
		}
	default:
		race := it.Race
		v := CalendarItemView{
			Kind:     it.Kind,
			ID:       race.ID,
			Name:     race.Name,
			Distance: format.Distance(float64(race.DistanceM)),
			GoalTime: format.CalendarDuration(float64(race.GoalTimeSec)),
		}
		if race.CourseType != nil {
			v.CourseType = *race.CourseType
		}
		if race.Priority != nil {
			v.Priority = *race.Priority
		}
		notes, err := format.NotesHTML(race.Notes)
		if err != nil {
			log.Printf("Failed to render notes for race %d: %v", race.ID, err)
		}
		v.NotesHTML = notes
		return v
	}
}

func calendarResponse(month calendar.Month, data calendar.Data) CalendarResponse {
	first := time.Date(month.Year, month.Month, 1, 0, 0, 0, 0, time.UTC)
	resp := CalendarResponse{
		Month:   first.Format(monthLayout),
		Title:   first.Format("January 2006"),
		Prev:    calendar.ChangeMonth(first, -1).Format(monthLayout),
		Next:    calendar.ChangeMonth(first, 1).Format(monthLayout),
		Loading: data.Loading,
		Error:   data.Error,
	}
	for _, week := range month.Weeks() {
		row := make([]*CalendarDayView, len(week))
		for i, day := range week {
			if day == nil {
				continue
			}
			items := make([]CalendarItemView, 0, len(day.Items))
			for _, it := range day.Items {
				items = append(items, calendarItemView(it))
			}
			row[i] = &CalendarDayView{
				Date:    day.DateStr,
				Day:     day.Number,
				IsToday: day.IsToday,
				Items:   items,
			}
		}
		resp.Weeks = append(resp.Weeks, row)
	}
	return resp
}

// GetCalendar renders the month given as ?month=YYYY-MM, defaulting to the
// current month. Data is loaded on first view for the signed-in athlete.
func GetCalendar(sessions Sessions, cal Calendar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := timeNow()
		viewDate := now
		if v := r.URL.Query().Get("month"); v != "" {
			parsed, err := calendar.ParseMonth(v, now.Location())
			if err != nil {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "month must be YYYY-MM")
				return
			}
			viewDate = parsed
		}

		id := sessions.Identity()
		data := cal.Snapshot()
		if cal.Identity() != id || (data.LoadedAt == nil && !data.Loading) {
			// The error is carried in data.Error.
			data, _ = cal.Load(r.Context(), id)
		}

		writeJSON(w, http.StatusOK, calendarResponse(cal.Month(viewDate, now), data))
	}
}

// ReloadCalendar refetches the calendar data.
func ReloadCalendar(cal Calendar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := cal.Reload(r.Context())
		if err != nil {
			writeUpstreamError(w, err, calendar.LoadErrorMessage)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"activities": len(data.Activities),
			"races":      len(data.Races),
			"loaded_at":  data.LoadedAt,
		})
	}
}

// CreateRace adds a race for the signed-in athlete.
func CreateRace(sessions Sessions, cal Calendar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.RaceCreate
		if !decodeBody(w, r, &req) {
			return
		}
		req.AthleteID = int64(sessions.Identity())
		if err := req.Validate(); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, err.Error())
			return
		}

		created, err := cal.CreateRace(r.Context(), req)
		if err != nil {
			writeUpstreamError(w, err, "Failed to create race")
			return
		}

		writeJSON(w, http.StatusCreated, created)
	}
}

// DeleteRace removes a race.
func DeleteRace(cal Calendar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		if err := cal.DeleteRace(r.Context(), id); err != nil {
			writeUpstreamError(w, err, "Failed to delete race")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
