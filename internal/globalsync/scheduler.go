package globalsync

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/training-dashboard/backend/internal/storage/models"
)

// IdentitySource reports the signed-in athlete.
type IdentitySource interface {
	Identity() models.AthleteID
}

// Scheduler runs the global sync periodically for the signed-in athlete.
type Scheduler struct {
	cron         *cron.Cron
	orchestrator *Orchestrator
	identity     IdentitySource
	logger       *log.Logger

	mu       sync.RWMutex
	entry    cron.EntryID
	interval time.Duration
	started  bool
}

// NewScheduler creates a scheduler. intervalMin <= 0 disables it.
func NewScheduler(o *Orchestrator, identity IdentitySource, intervalMin int) *Scheduler {
	return &Scheduler{
		cron:         cron.New(),
		orchestrator: o,
		identity:     identity,
		logger:       o.logger,
		interval:     time.Duration(intervalMin) * time.Minute,
	}
}

// Start schedules the sync job and starts the cron runner.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interval <= 0 {
		s.logger.Println("Auto sync disabled")
		return nil
	}
	if err := s.scheduleLocked(); err != nil {
		return err
	}
	s.cron.Start()
	s.started = true
	s.logger.Printf("Auto sync scheduler started, every %s", s.interval)
	return nil
}

// Stop waits for a running job and stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()
	if !started {
		return
	}

	s.logger.Println("Stopping auto sync scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Println("Auto sync scheduler stopped")
}

func (s *Scheduler) scheduleLocked() error {
	entry, err := s.cron.AddFunc("@every "+s.interval.String(), s.runScheduled)
	if err != nil {
		return err
	}
	s.entry = entry
	return nil
}

// NextRun returns the next scheduled run time, or nil when unscheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.entry == 0 {
		return nil
	}
	entry := s.cron.Entry(s.entry)
	if entry.Next.IsZero() {
		return nil
	}
	next := entry.Next
	return &next
}

func (s *Scheduler) runScheduled() {
	id := s.identity.Identity()
	if id.IsZero() {
		s.logger.Println("Auto sync skipped: no athlete signed in")
		return
	}

	run, err := s.orchestrator.Run(context.Background(), id, models.TriggerScheduled)
	switch {
	case errors.Is(err, ErrBusy):
		s.logger.Printf("Auto sync skipped for athlete %s: sync already running", id)
	case err != nil:
		s.logger.Printf("Auto sync failed for athlete %s: %v", id, err)
	default:
		s.logger.Printf("Auto sync completed for athlete %s (run %s)", id, run.ID)
	}
}
