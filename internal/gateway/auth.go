package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/training-dashboard/backend/internal/storage/models"
)

// RegisterRequest creates a dashboard account linked to a Strava athlete.
type RegisterRequest struct {
	Email     string           `json:"email"`
	Password  string           `json:"password"`
	AthleteID models.AthleteID `json:"id"`
	Name      string           `json:"name"`
}

// Login exchanges credentials for an access token. A 401 is returned as
// ErrUnauthorized and never expires the current session.
func (c *Client) Login(ctx context.Context, email, password string) (models.SessionUser, error) {
	var user models.SessionUser
	err := c.do(ctx, call{
		endpoint: "login",
		method:   http.MethodPost,
		path:     "/auth/login",
		body:     map[string]string{"email": email, "password": password},
		authFlow: true,
	}, &user)
	if err != nil {
		return models.SessionUser{}, fmt.Errorf("logging in: %w", err)
	}
	if user.AccessToken == "" {
		return models.SessionUser{}, fmt.Errorf("logging in: %w", ErrUnauthorized)
	}
	return user, nil
}

// Register creates an account. The response carries no token.
func (c *Client) Register(ctx context.Context, in RegisterRequest) error {
	err := c.do(ctx, call{
		endpoint: "register",
		method:   http.MethodPost,
		path:     "/auth/register",
		body:     in,
		authFlow: true,
	}, nil)
	if err != nil {
		return fmt.Errorf("registering: %w", err)
	}
	return nil
}
