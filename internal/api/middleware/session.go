package middleware

import (
	"net/http"

	"github.com/training-dashboard/backend/internal/storage/models"
)

// SessionSource reports whether someone is signed in.
type SessionSource interface {
	Token() string
	Identity() models.AthleteID
}

// RequireSession rejects requests with 401 while no athlete is signed in.
func RequireSession(sessions SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sessions.Token() == "" || sessions.Identity().IsZero() {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Sign in to continue")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
