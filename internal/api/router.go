// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/training-dashboard/backend/internal/api/handlers"
	"github.com/training-dashboard/backend/internal/api/middleware"
	"github.com/training-dashboard/backend/internal/athlete"
	"github.com/training-dashboard/backend/internal/calendar"
	"github.com/training-dashboard/backend/internal/gateway"
	"github.com/training-dashboard/backend/internal/globalsync"
	"github.com/training-dashboard/backend/internal/session"
	"github.com/training-dashboard/backend/internal/storage"
	"github.com/training-dashboard/backend/internal/websocket"
)

// Services are the long-lived components the handlers use.
type Services struct {
	Sessions     *session.Store
	Gateway      *gateway.Client
	Dashboard    *athlete.Store
	Calendar     *calendar.Loader
	Orchestrator *globalsync.Orchestrator
	Scheduler    *globalsync.Scheduler
	Runs         *storage.SyncRunRepository

	// ExportLimit caps the activities written by the CSV export.
	ExportLimit int
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(db *storage.DB, hub *websocket.Hub, staticDir string, svc Services) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging)
	r.Use(middleware.ErrorRecovery)

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Public endpoints
	api.HandleFunc("/health", handlers.HealthCheck(db)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(svc.Sessions, svc.Dashboard, svc.Orchestrator, svc.Scheduler, hub)).Methods("GET")
	api.HandleFunc("/session", handlers.GetSession(svc.Sessions)).Methods("GET")
	api.HandleFunc("/session/login", handlers.Login(svc.Sessions, svc.Gateway)).Methods("POST")
	api.HandleFunc("/session/logout", handlers.Logout(svc.Sessions)).Methods("POST")
	api.HandleFunc("/session/register", handlers.Register(svc.Gateway)).Methods("POST")
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(hub, svc.Orchestrator)).Methods("GET")

	// Endpoints that need a signed-in athlete
	authed := api.NewRoute().Subrouter()
	authed.Use(middleware.RequireSession(svc.Sessions))

	authed.HandleFunc("/dashboard", handlers.GetDashboard(svc.Dashboard)).Methods("GET")
	authed.HandleFunc("/dashboard/refresh", handlers.RefreshDashboard(svc.Dashboard)).Methods("POST")
	authed.HandleFunc("/profile", handlers.GetProfile(svc.Sessions, svc.Gateway)).Methods("GET")

	authed.HandleFunc("/activities", handlers.ListActivities(svc.Sessions, svc.Gateway)).Methods("GET")
	authed.HandleFunc("/activities", handlers.CreateActivity(svc.Calendar, svc.Dashboard)).Methods("POST")
	authed.HandleFunc("/activities/export.csv", handlers.ExportActivities(svc.Sessions, svc.Gateway, svc.ExportLimit)).Methods("GET")
	authed.HandleFunc("/activities/{id:[0-9]+}", handlers.GetActivity(svc.Dashboard, svc.Calendar)).Methods("GET")
	authed.HandleFunc("/activities/{id:[0-9]+}", handlers.DeleteActivity(svc.Sessions, svc.Orchestrator)).Methods("DELETE")

	authed.HandleFunc("/calendar", handlers.GetCalendar(svc.Sessions, svc.Calendar)).Methods("GET")
	authed.HandleFunc("/calendar/reload", handlers.ReloadCalendar(svc.Calendar)).Methods("POST")
	authed.HandleFunc("/races", handlers.CreateRace(svc.Sessions, svc.Calendar)).Methods("POST")
	authed.HandleFunc("/races/{id:[0-9]+}", handlers.DeleteRace(svc.Calendar)).Methods("DELETE")

	authed.HandleFunc("/sync", handlers.StartSync(svc.Sessions, svc.Orchestrator)).Methods("POST")
	authed.HandleFunc("/sync/status", handlers.SyncStatus(svc.Orchestrator)).Methods("GET")
	authed.HandleFunc("/sync/history", handlers.SyncHistory(svc.Sessions, svc.Runs)).Methods("GET")

	// Serve static frontend files
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))

	return r
}
