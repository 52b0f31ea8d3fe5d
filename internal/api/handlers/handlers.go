// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/training-dashboard/backend/internal/api/middleware"
	"github.com/training-dashboard/backend/internal/athlete"
	"github.com/training-dashboard/backend/internal/calendar"
	"github.com/training-dashboard/backend/internal/gateway"
	"github.com/training-dashboard/backend/internal/globalsync"
	"github.com/training-dashboard/backend/internal/storage/models"
)

// Sessions is the session state the handlers read and write.
type Sessions interface {
	Token() string
	Identity() models.AthleteID
	Current() models.Session
	Set(ctx context.Context, token string, user models.SessionUser) error
	Clear(ctx context.Context) error
}

// Authenticator talks to the coach API's auth endpoints.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (models.SessionUser, error)
	Register(ctx context.Context, in gateway.RegisterRequest) error
}

// Dashboard is the athlete data cache.
type Dashboard interface {
	Snapshot() athlete.Snapshot
	Refresh(ctx context.Context, showLoading bool) athlete.Snapshot
}

// ActivityLister pages through the athlete's activities.
type ActivityLister interface {
	Activities(ctx context.Context, id models.AthleteID, q gateway.ActivityQuery) ([]models.Activity, error)
}

// ProfileReader reads the athlete profile.
type ProfileReader interface {
	Profile(ctx context.Context, id models.AthleteID) (json.RawMessage, error)
}

// Calendar is the calendar page data.
type Calendar interface {
	Identity() models.AthleteID
	Snapshot() calendar.Data
	Load(ctx context.Context, id models.AthleteID) (calendar.Data, error)
	Reload(ctx context.Context) (calendar.Data, error)
	Month(viewDate, now time.Time) calendar.Month
	CreateActivity(ctx context.Context, in models.ActivityCreate) (*models.Activity, error)
	CreateRace(ctx context.Context, in models.RaceCreate) (*models.Race, error)
	DeleteRace(ctx context.Context, raceID int64) error
}

// Syncer runs the global sync and delete workflows.
type Syncer interface {
	Start(ctx context.Context, id models.AthleteID, trigger string) (string, error)
	Status() globalsync.Status
	LastRun() *models.SyncRun
	DeleteActivity(ctx context.Context, id models.AthleteID, activityID int64) error
}

// RunHistory lists past sync runs.
type RunHistory interface {
	ListRecent(ctx context.Context, athleteID models.AthleteID, limit int) ([]models.SyncRun, error)
}

// NextRunner reports the next scheduled sync.
type NextRunner interface {
	NextRun() *time.Time
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	middleware.WriteJSON(w, status, v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

// writeUpstreamError maps a coach API or workflow failure onto a response.
// message is used when the error carries nothing the user can act on.
func writeUpstreamError(w http.ResponseWriter, err error, message string) {
	var netErr *gateway.NetworkError
	switch {
	case errors.Is(err, gateway.ErrUnauthorized):
		middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Session expired, sign in again")
		return
	case errors.Is(err, calendar.ErrNoIdentity), errors.Is(err, globalsync.ErrNoIdentity):
		middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Sign in to continue")
		return
	case errors.Is(err, globalsync.ErrBusy):
		middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "A sync is already in progress")
		return
	case errors.As(err, &netErr):
		log.Printf("Coach API unreachable: %v", err)
		middleware.WriteError(w, http.StatusBadGateway, middleware.ErrUpstreamUnavailable, message)
		return
	}

	if apiErr, ok := gateway.AsAPIError(err); ok {
		switch {
		case apiErr.IsValidation():
			middleware.WriteError(w, http.StatusUnprocessableEntity, middleware.ErrValidation, apiErr.Message)
		case apiErr.IsNotFound():
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, apiErr.Message)
		case apiErr.IsServer():
			log.Printf("Coach API failing: %v", err)
			middleware.WriteError(w, http.StatusBadGateway, middleware.ErrUpstreamUnavailable, message)
		default:
			log.Printf("Coach API error: %v", err)
			middleware.WriteError(w, http.StatusBadGateway, middleware.ErrUpstream, message)
		}
		return
	}

	log.Printf("%s: %v", message, err)
	middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, message)
}
