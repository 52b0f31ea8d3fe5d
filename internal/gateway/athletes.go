package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/training-dashboard/backend/internal/storage/models"
)

// DateLayout is the day format the coach API expects in query strings.
const DateLayout = "2006-01-02"

// ActivityQuery selects a window of activities.
type ActivityQuery struct {
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

func (q ActivityQuery) values() url.Values {
	v := url.Values{}
	if !q.From.IsZero() {
		v.Set("from_day", q.From.Format(DateLayout))
	}
	if !q.To.IsZero() {
		v.Set("to_day", q.To.Format(DateLayout))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	v.Set("offset", strconv.Itoa(q.Offset))
	return v
}

// ImportResult summarises a Strava import.
type ImportResult struct {
	Fetched        int `json:"fetched"`
	SavedOrUpdated int `json:"saved_or_updated"`
	Pages          int `json:"pages"`
}

// LatestMetrics returns the most recent daily metric snapshot, or nil when the
// athlete has none yet.
func (c *Client) LatestMetrics(ctx context.Context, id models.AthleteID) (*models.DailyMetricSnapshot, error) {
	var snap *models.DailyMetricSnapshot
	err := c.do(ctx, call{
		endpoint: "latest_metrics",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/athletes/%d/daily-metrics/latest", id),
	}, &snap)
	if err != nil {
		return nil, fmt.Errorf("fetching latest metrics: %w", err)
	}
	return snap, nil
}

// MetricsHistory returns the last seven days of CTL/ATL/TSB, oldest first.
func (c *Client) MetricsHistory(ctx context.Context, id models.AthleteID) ([]models.MetricHistoryPoint, error) {
	var resp struct {
		Metrics []models.MetricHistoryPoint `json:"metrics"`
	}
	err := c.do(ctx, call{
		endpoint: "metrics_history",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/athletes/%d/metrics/ctl-atl/last-7-days", id),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetching metrics history: %w", err)
	}
	if resp.Metrics == nil {
		return []models.MetricHistoryPoint{}, nil
	}
	return resp.Metrics, nil
}

// Activities returns the athlete's activities in the query window.
func (c *Client) Activities(ctx context.Context, id models.AthleteID, q ActivityQuery) ([]models.Activity, error) {
	var resp struct {
		Activities []models.Activity `json:"activities"`
	}
	err := c.do(ctx, call{
		endpoint: "activities",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/athletes/%d/activities", id),
		query:    q.values(),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetching activities: %w", err)
	}
	if resp.Activities == nil {
		return []models.Activity{}, nil
	}
	return resp.Activities, nil
}

// ImportActivities asks the coach API to pull new activities from Strava.
func (c *Client) ImportActivities(ctx context.Context, id models.AthleteID) (ImportResult, error) {
	var res ImportResult
	err := c.do(ctx, call{
		endpoint: "import_activities",
		method:   http.MethodPost,
		path:     fmt.Sprintf("/strava/%d/import-activities", id),
	}, &res)
	if err != nil {
		return ImportResult{}, fmt.Errorf("importing activities: %w", err)
	}
	return res, nil
}

// RebuildMetrics recomputes the athlete's daily metrics over [from, to].
func (c *Client) RebuildMetrics(ctx context.Context, id models.AthleteID, from, to time.Time) error {
	q := url.Values{}
	q.Set("from_day", from.Format(DateLayout))
	q.Set("to_day", to.Format(DateLayout))
	q.Set("force", "true")

	err := c.do(ctx, call{
		endpoint: "rebuild_metrics",
		method:   http.MethodPost,
		path:     fmt.Sprintf("/metrics/%d/rebuild", id),
		query:    q,
	}, nil)
	if err != nil {
		return fmt.Errorf("rebuilding metrics: %w", err)
	}
	return nil
}

// CreateActivity stores a manually entered activity.
func (c *Client) CreateActivity(ctx context.Context, id models.AthleteID, in models.ActivityCreate) (*models.Activity, error) {
	var created models.Activity
	err := c.do(ctx, call{
		endpoint: "create_activity",
		method:   http.MethodPost,
		path:     fmt.Sprintf("/athletes/%d/activities", id),
		body:     in,
	}, &created)
	if err != nil {
		return nil, fmt.Errorf("creating activity: %w", err)
	}
	return &created, nil
}

// DeleteActivity removes one activity.
func (c *Client) DeleteActivity(ctx context.Context, id models.AthleteID, activityID int64) error {
	err := c.do(ctx, call{
		endpoint: "delete_activity",
		method:   http.MethodDelete,
		path:     fmt.Sprintf("/athletes/%d/activities/%d", id, activityID),
	}, nil)
	if err != nil {
		return fmt.Errorf("deleting activity %d: %w", activityID, err)
	}
	return nil
}

// Profile returns the athlete profile as raw JSON.
func (c *Client) Profile(ctx context.Context, id models.AthleteID) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.do(ctx, call{
		endpoint: "profile",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/athletes/%d/profile", id),
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("fetching profile: %w", err)
	}
	return raw, nil
}
