package models

import "time"

// SessionUser is the login record persisted alongside the access token.
type SessionUser struct {
	AthleteID    AthleteID `json:"athlete_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
}

// Session is the current authentication state.
type Session struct {
	AccessToken string      `json:"-"`
	User        SessionUser `json:"user"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
}

// Authenticated reports whether the session carries a token.
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}
