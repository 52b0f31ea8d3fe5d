package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Race priorities.
const (
	RacePriorityA = "A"
	RacePriorityB = "B"
	RacePriorityC = "C"
)

// CourseTypes lists the course types the coach API accepts.
var CourseTypes = []string{
	"road", "trail", "track", "other",
	"run", "bike", "swim", "duathlon", "triathlon", "cycling",
}

// Race is a planned race on the athlete's calendar.
type Race struct {
	ID          int64   `json:"id"`
	AthleteID   int64   `json:"athlete_id"`
	Name        string  `json:"name"`
	RaceDate    string  `json:"race_date"`
	DistanceM   int     `json:"distance_m"`
	GoalTimeSec int     `json:"goal_time_sec"`
	CourseType  *string `json:"course_type"`
	Priority    *string `json:"priority"`
	Notes       *string `json:"notes"`
}

// RaceCreate is the payload for a new race.
type RaceCreate struct {
	AthleteID   int64   `json:"athlete_id"`
	Name        string  `json:"name"`
	RaceDate    string  `json:"race_date"`
	DistanceM   int     `json:"distance_m"`
	GoalTimeSec int     `json:"goal_time_sec"`
	CourseType  *string `json:"course_type,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// Validate checks the race fields before they are sent upstream.
func (r RaceCreate) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if _, err := time.Parse("2006-01-02", r.RaceDate); err != nil {
		return errors.New("race_date must be YYYY-MM-DD")
	}
	if r.DistanceM <= 0 {
		return errors.New("distance_m must be positive")
	}
	if r.GoalTimeSec <= 0 {
		return errors.New("goal_time_sec must be positive")
	}
	if r.Priority != nil {
		switch *r.Priority {
		case RacePriorityA, RacePriorityB, RacePriorityC:
		default:
			return fmt.Errorf("invalid priority %q", *r.Priority)
		}
	}
	if r.CourseType != nil && !validCourseType(*r.CourseType) {
		return fmt.Errorf("invalid course_type %q", *r.CourseType)
	}
	return nil
}

func validCourseType(ct string) bool {
	for _, c := range CourseTypes {
		if c == ct {
			return true
		}
	}
	return false
}
