package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/training-dashboard/backend/internal/storage/models"
)

func athleteQuery(id models.AthleteID) url.Values {
	return url.Values{"athlete_id": []string{id.String()}}
}

// Races lists the athlete's planned races.
func (c *Client) Races(ctx context.Context, id models.AthleteID) ([]models.Race, error) {
	var races []models.Race
	err := c.do(ctx, call{
		endpoint: "races",
		method:   http.MethodGet,
		path:     "/races",
		query:    athleteQuery(id),
	}, &races)
	if err != nil {
		return nil, fmt.Errorf("fetching races: %w", err)
	}
	if races == nil {
		return []models.Race{}, nil
	}
	return races, nil
}

// CreateRace adds a race to the athlete's calendar.
func (c *Client) CreateRace(ctx context.Context, in models.RaceCreate) (*models.Race, error) {
	var created models.Race
	err := c.do(ctx, call{
		endpoint: "create_race",
		method:   http.MethodPost,
		path:     "/races",
		body:     in,
	}, &created)
	if err != nil {
		return nil, fmt.Errorf("creating race: %w", err)
	}
	return &created, nil
}

// DeleteRace removes a race owned by the athlete.
func (c *Client) DeleteRace(ctx context.Context, id models.AthleteID, raceID int64) error {
	err := c.do(ctx, call{
		endpoint: "delete_race",
		method:   http.MethodDelete,
		path:     fmt.Sprintf("/races/%d", raceID),
		query:    athleteQuery(id),
	}, nil)
	if err != nil {
		return fmt.Errorf("deleting race %d: %w", raceID, err)
	}
	return nil
}
