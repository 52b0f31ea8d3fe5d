package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/training-dashboard/backend/internal/api/middleware"
	"github.com/training-dashboard/backend/internal/gateway"
	"github.com/training-dashboard/backend/internal/storage/models"
)

// SessionResponse describes the current sign-in state. The token is never
// sent back to the browser.
type SessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	AthleteID     int64  `json:"athlete_id,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

func sessionResponse(sess models.Session) SessionResponse {
	resp := SessionResponse{
		Authenticated: sess.Authenticated(),
		AthleteID:     int64(sess.User.AthleteID),
	}
	if sess.ExpiresAt != nil {
		resp.ExpiresAt = sess.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// GetSession returns the current sign-in state.
func GetSession(sessions Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sessionResponse(sessions.Current()))
	}
}

// Login exchanges credentials with the coach API and stores the session.
func Login(sessions Sessions, auth Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		req.Email = strings.TrimSpace(req.Email)
		if req.Email == "" || req.Password == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Email and password are required")
			return
		}

		user, err := auth.Login(r.Context(), req.Email, req.Password)
		if errors.Is(err, gateway.ErrUnauthorized) {
			middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Invalid email or password")
			return
		}
		if err != nil {
			writeUpstreamError(w, err, "Login failed")
			return
		}

		if err := sessions.Set(r.Context(), user.AccessToken, user); err != nil {
			log.Printf("Failed to store session: %v", err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to store session")
			return
		}

		writeJSON(w, http.StatusOK, sessionResponse(sessions.Current()))
	}
}

// Logout clears the session.
func Logout(sessions Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.Clear(r.Context()); err != nil {
			log.Printf("Failed to clear session: %v", err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to clear session")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Register creates a coach API account. The caller signs in afterwards.
func Register(auth Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gateway.RegisterRequest
		if !decodeBody(w, r, &req) {
			return
		}
		req.Email = strings.TrimSpace(req.Email)
		if req.Email == "" || req.Password == "" || req.AthleteID.IsZero() {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Email, password and athlete id are required")
			return
		}

		if err := auth.Register(r.Context(), req); err != nil {
			if errors.Is(err, gateway.ErrUnauthorized) {
				middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Registration was rejected")
				return
			}
			writeUpstreamError(w, err, "Registration failed")
			return
		}

		w.WriteHeader(http.StatusCreated)
	}
}
