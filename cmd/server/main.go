// Package main is the entry point for the training dashboard server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/training-dashboard/backend/internal/api"
	"github.com/training-dashboard/backend/internal/api/middleware"
	"github.com/training-dashboard/backend/internal/athlete"
	"github.com/training-dashboard/backend/internal/calendar"
	"github.com/training-dashboard/backend/internal/config"
	"github.com/training-dashboard/backend/internal/gateway"
	"github.com/training-dashboard/backend/internal/globalsync"
	"github.com/training-dashboard/backend/internal/session"
	"github.com/training-dashboard/backend/internal/storage"
	"github.com/training-dashboard/backend/internal/storage/models"
	"github.com/training-dashboard/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	cfg := config.Load()

	// Flags override the environment
	addr := flag.String("addr", cfg.HTTPAddress, "HTTP server address")
	dataDir := flag.String("data", cfg.DataDir, "Data directory for SQLite database")
	staticDir := flag.String("static", cfg.StaticDir, "Directory for static frontend files")
	apiURL := flag.String("api", cfg.CoachAPIURL, "Coach API base URL")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(*addr); err != nil {
			log.Fatalf("Health check failed: %v", err)
		}
		os.Exit(0)
	}

	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}
	if cfg.Debug {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	}

	log.Printf("Starting training dashboard (version: %s)...", version)

	db, err := storage.Open(*dataDir)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	log.Printf("Database ready at %s", db.Path())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub()
	go hub.Run(ctx)
	events := websocket.NewEventBroadcaster(hub)

	sessions := session.NewStore(storage.NewSessionRepository(db))
	if err := sessions.Init(ctx); err != nil {
		log.Printf("Warning: Failed to restore session: %v", err)
	}

	client := gateway.New(gateway.Config{
		BaseURL: *apiURL,
		Timeout: cfg.CoachAPITimeout,
	}, sessions)

	dashboard := athlete.NewStore(client, athlete.WithWindow(cfg.RebuildWindowDays, cfg.ActivitiesLimit))
	loader := calendar.NewLoader(client, calendar.WithLimit(cfg.CalendarActivitiesLimit))
	runs := storage.NewSyncRunRepository(db)

	orchestrator := globalsync.New(client, dashboard,
		globalsync.WithRecorder(runs),
		globalsync.WithSuccessDisplay(cfg.SyncSuccessDisplay),
		globalsync.WithRebuildWindow(cfg.RebuildWindowDays),
	)
	scheduler := globalsync.NewScheduler(orchestrator, sessions, cfg.AutoSyncIntervalMin)

	wireEvents(ctx, sessions, dashboard, loader, orchestrator, events)

	// Select the athlete restored from the previous run
	selectAthlete(ctx, dashboard, loader, sessions.Identity())

	if err := scheduler.Start(); err != nil {
		log.Printf("Warning: Failed to start auto sync scheduler: %v", err)
	}

	router := api.NewRouter(db, hub, *staticDir, api.Services{
		Sessions:     sessions,
		Gateway:      client,
		Dashboard:    dashboard,
		Calendar:     loader,
		Orchestrator: orchestrator,
		Scheduler:    scheduler,
		Runs:         runs,
		ExportLimit:  cfg.CalendarActivitiesLimit,
	})

	server := &http.Server{
		Addr:         *addr,
		Handler:      middleware.CORS(cfg.CORSAllowedOrigins)(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.CoachAPITimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", *addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// wireEvents connects the session, the data caches and the sync workflow,
// and pushes every state change to the browsers.
func wireEvents(
	ctx context.Context,
	sessions *session.Store,
	dashboard *athlete.Store,
	loader *calendar.Loader,
	orchestrator *globalsync.Orchestrator,
	events *websocket.EventBroadcaster,
) {
	sessions.Subscribe(func(ev session.Event, sess models.Session) {
		switch ev {
		case session.EventSet:
			log.Printf("Athlete %s signed in", sess.User.AthleteID)
			selectAthlete(ctx, dashboard, loader, sess.User.AthleteID)
		case session.EventCleared:
			log.Println("Session cleared")
			selectAthlete(ctx, dashboard, loader, 0)
			events.BroadcastSessionCleared()
		}
	})

	dashboard.Subscribe(func(snap athlete.Snapshot) {
		events.BroadcastAthleteData(websocket.AthleteDataPayload{
			AthleteID:  int64(snap.Identity),
			Activities: len(snap.Activities),
			HistoryLen: len(snap.History),
			HasMetrics: snap.Metrics != nil,
			Loading:    snap.Loading,
			Error:      snap.Error,
		})
	})

	loader.OnChange(func(data calendar.Data) {
		events.BroadcastCalendarData(websocket.CalendarDataPayload{
			AthleteID:  int64(data.Identity),
			Activities: len(data.Activities),
			Races:      len(data.Races),
			Error:      data.Error,
		})
	})

	// The idle status of a run can be emitted twice, once more when the
	// success text is cleared.
	var (
		settledMu sync.Mutex
		settled   string
	)
	orchestrator.OnStatus(func(st globalsync.Status) {
		events.BroadcastSyncStatus(websocket.NewSyncStatusPayload(st))

		if st.Phase != globalsync.PhaseIdle || st.Busy {
			return
		}
		settledMu.Lock()
		seen := settled == st.RunID
		settled = st.RunID
		settledMu.Unlock()
		if seen {
			return
		}

		switch st.Outcome {
		case globalsync.OutcomeFailure:
			events.BroadcastNotification("error", "Sync", st.Error)
		case globalsync.OutcomeSuccess:
			// Imports and deletes change the calendar too.
			reloadCalendar(ctx, loader)
		}
	})
}

// selectAthlete switches both caches before it returns, so a sign out that
// follows always leaves them empty. Only the fetches run in the background.
func selectAthlete(ctx context.Context, dashboard *athlete.Store, loader *calendar.Loader, id models.AthleteID) {
	changedDashboard := dashboard.Select(id)
	changedCalendar := loader.Select(id)
	if id.IsZero() {
		return
	}
	if changedDashboard {
		go dashboard.Refresh(ctx, true)
	}
	if changedCalendar {
		go func() {
			if _, err := loader.Reload(ctx); err != nil {
				log.Printf("Calendar load after sign in failed: %v", err)
			}
		}()
	}
}

func reloadCalendar(ctx context.Context, loader *calendar.Loader) {
	if loader.Identity().IsZero() || loader.Snapshot().LoadedAt == nil {
		return
	}
	go func() {
		if _, err := loader.Reload(ctx); err != nil {
			log.Printf("Calendar reload after sync failed: %v", err)
		}
	}()
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
