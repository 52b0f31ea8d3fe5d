package handlers

import (
	"github.com/training-dashboard/backend/internal/format"
	"github.com/training-dashboard/backend/internal/storage/models"
)

// MetricCard is one headline number on the dashboard.
type MetricCard struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Value    string `json:"value"`
	Positive *bool  `json:"positive,omitempty"`
}

func metricCards(m *models.DailyMetricSnapshot) []MetricCard {
	if m == nil {
		m = &models.DailyMetricSnapshot{}
	}
	form := MetricCard{Key: "tsb", Title: "Form (TSB)", Value: format.Fixed(m.TSB, 1, format.Dash)}
	if m.TSB != nil {
		positive := *m.TSB >= 0
		form.Positive = &positive
	}
	return []MetricCard{
		{Key: "ctl", Title: "Fitness (CTL)", Value: format.Fixed(m.CTL, 1, format.Dash)},
		{Key: "atl", Title: "Fatigue (ATL)", Value: format.Fixed(m.ATL, 1, format.Dash)},
		form,
		{Key: "tss", Title: "TSS today", Value: format.Fixed(m.TSS, 0, format.Dash)},
	}
}

// ActivityView is an activity row as the lists render it.
type ActivityView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	SportType string `json:"sport_type"`
	Day       string `json:"day"`
	Distance  string `json:"distance_km"`
	Duration  string `json:"duration"`
	Pace      string `json:"pace"`
	TSS       string `json:"tss"`
	IF        string `json:"if"`
	Trainer   bool   `json:"trainer"`
}

func activityView(a models.Activity) ActivityView {
	day := a.Day
	if day == "" {
		day = a.StartDay()
	}
	return ActivityView{
		ID:        a.ID,
		Name:      a.Name,
		SportType: a.SportType,
		Day:       day,
		Distance:  format.Distance(a.DistanceM),
		Duration:  format.Duration(float64(a.MovingTimeS)),
		Pace:      format.PaceWithUnit(float64(a.MovingTimeS), a.DistanceM),
		TSS:       format.Fixed(a.TSS, 0, format.Zero),
		IF:        format.Fixed(a.IFValue, 2, "0.00"),
		Trainer:   a.Trainer,
	}
}

func activityViews(activities []models.Activity) []ActivityView {
	views := make([]ActivityView, 0, len(activities))
	for _, a := range activities {
		views = append(views, activityView(a))
	}
	return views
}

// ActivityDetail is the activity modal.
type ActivityDetail struct {
	ActivityView
	StartDate     string          `json:"start_date"`
	ElapsedTime   string          `json:"elapsed_time"`
	Elevation     string          `json:"elevation"`
	AverageSpeed  string          `json:"average_speed"`
	MaxSpeed      string          `json:"max_speed"`
	AverageHR     string          `json:"average_heartrate"`
	MaxHR         string          `json:"max_heartrate"`
	AveragePower  string          `json:"average_watts"`
	MaxPower      string          `json:"max_watts"`
	WeightedPower string          `json:"weighted_average_watts"`
	Kilojoules    string          `json:"kilojoules"`
	Cadence       string          `json:"average_cadence"`
	EF            string          `json:"ef"`
	Activity      models.Activity `json:"activity"`
}

func activityDetail(a models.Activity) ActivityDetail {
	elevation := a.TotalElevationGainM
	return ActivityDetail{
		ActivityView:  activityView(a),
		StartDate:     a.StartDate,
		ElapsedTime:   format.Duration(float64(a.ElapsedTimeS)),
		Elevation:     format.Value(&elevation, 0, " m", format.Dash),
		AverageSpeed:  format.Speed(a.AverageSpeed),
		MaxSpeed:      format.Speed(a.MaxSpeed),
		AverageHR:     format.Value(a.AverageHeartrate, 0, " bpm", format.Dash),
		MaxHR:         format.Value(a.MaxHeartrate, 0, " bpm", format.Dash),
		AveragePower:  format.Value(a.AverageWatts, 0, " W", format.Dash),
		MaxPower:      format.Value(a.MaxWatts, 0, " W", format.Dash),
		WeightedPower: format.Value(a.WeightedAverageWatts, 0, " W", format.Dash),
		Kilojoules:    format.Value(a.Kilojoules, 0, " kJ", format.Dash),
		Cadence:       format.Value(a.AverageCadence, 0, " rpm", format.Dash),
		EF:            format.Fixed(a.EF, 2, format.Dash),
		Activity:      a,
	}
}
