// Package athlete caches the signed-in athlete's dashboard data: latest
// metrics, the seven day history and the recent activities.
package athlete

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/training-dashboard/backend/internal/gateway"
	"github.com/training-dashboard/backend/internal/observability"
	"github.com/training-dashboard/backend/internal/storage/models"
)

// LoadErrorMessage is the user-visible error after a failed refresh.
const LoadErrorMessage = "could not load athlete data"

// Reader is the subset of the coach API the store reads from.
type Reader interface {
	LatestMetrics(ctx context.Context, id models.AthleteID) (*models.DailyMetricSnapshot, error)
	MetricsHistory(ctx context.Context, id models.AthleteID) ([]models.MetricHistoryPoint, error)
	Activities(ctx context.Context, id models.AthleteID, q gateway.ActivityQuery) ([]models.Activity, error)
}

// Snapshot is a consistent view of the store.
type Snapshot struct {
	Identity    models.AthleteID            `json:"athlete_id"`
	Metrics     *models.DailyMetricSnapshot `json:"metrics"`
	History     []models.MetricHistoryPoint `json:"history"`
	Activities  []models.Activity           `json:"activities"`
	Loading     bool                        `json:"loading"`
	Error       string                      `json:"error,omitempty"`
	RefreshedAt *time.Time                  `json:"refreshed_at,omitempty"`
}

// Option configures optional behaviour for the Store.
type Option func(*Store)

// WithLogger overrides the logger used to report failed refreshes.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides the time source for the dashboard window.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithWindow sets the trailing day window and activity limit of the reads.
func WithWindow(days, limit int) Option {
	return func(s *Store) {
		if days > 0 {
			s.windowDays = days
		}
		if limit > 0 {
			s.limit = limit
		}
	}
}

// Store is the per-athlete dashboard cache.
type Store struct {
	reader     Reader
	logger     *log.Logger
	now        func() time.Time
	windowDays int
	limit      int

	mu          sync.Mutex
	identity    models.AthleteID
	generation  uint64
	metrics     *models.DailyMetricSnapshot
	history     []models.MetricHistoryPoint
	activities  []models.Activity
	loading     bool
	errMsg      string
	refreshedAt *time.Time

	listenersMu sync.Mutex
	listeners   map[int]func(Snapshot)
	nextID      int
}

// NewStore creates an empty store with no athlete selected.
func NewStore(reader Reader, opts ...Option) *Store {
	s := &Store{
		reader:     reader,
		logger:     log.Default(),
		now:        time.Now,
		windowDays: 7,
		limit:      50,
		listeners:  make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetIdentity selects the athlete and fetches its data. The zero id clears
// the cache without any network call. Selecting the current athlete again
// does nothing.
func (s *Store) SetIdentity(ctx context.Context, id models.AthleteID) {
	if !s.Select(id) || id.IsZero() {
		return
	}
	s.Refresh(ctx, true)
}

// Select switches the athlete and drops the cached data without fetching.
// It reports whether the athlete changed. Refreshes still in flight for the
// previous athlete are discarded when they return.
func (s *Store) Select(id models.AthleteID) bool {
	s.mu.Lock()
	if id == s.identity {
		s.mu.Unlock()
		return false
	}
	s.identity = id
	s.generation++
	s.metrics = nil
	s.history = nil
	s.activities = nil
	s.errMsg = ""
	s.loading = false
	s.refreshedAt = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if id.IsZero() {
		s.notify(snap)
	}
	return true
}

// Refresh reloads the three dashboard reads for the current athlete and
// returns the resulting snapshot. Failures are reported through
// Snapshot.Error and keep the previous data. A response that lost the race
// against a newer refresh is discarded.
func (s *Store) Refresh(ctx context.Context, showLoading bool) Snapshot {
	s.mu.Lock()
	id := s.identity
	if id.IsZero() {
		s.loading = false
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}
	s.generation++
	gen := s.generation
	if showLoading {
		s.loading = true
	}
	pending := s.snapshotLocked()
	s.mu.Unlock()

	if showLoading {
		s.notify(pending)
	}

	metrics, history, activities, err := s.fetch(ctx, id)

	s.mu.Lock()
	if gen != s.generation || id != s.identity {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		observability.RecordAthleteRefresh("stale", time.Time{})
		return snap
	}

	s.loading = false
	if err != nil {
		s.errMsg = LoadErrorMessage
		snap := s.snapshotLocked()
		s.mu.Unlock()

		s.logger.Printf("Athlete %s refresh failed: %v", id, err)
		observability.RecordAthleteRefresh("error", time.Time{})
		s.notify(snap)
		return snap
	}

	now := s.now()
	s.metrics = metrics
	s.history = history
	s.activities = activities
	s.errMsg = ""
	s.refreshedAt = &now
	snap := s.snapshotLocked()
	s.mu.Unlock()

	observability.RecordAthleteRefresh("success", now)
	s.notify(snap)
	return snap
}

func (s *Store) fetch(ctx context.Context, id models.AthleteID) (*models.DailyMetricSnapshot, []models.MetricHistoryPoint, []models.Activity, error) {
	var (
		metrics    *models.DailyMetricSnapshot
		history    []models.MetricHistoryPoint
		activities []models.Activity
	)

	today := s.now()
	query := gateway.ActivityQuery{
		From:  today.AddDate(0, 0, -s.windowDays),
		To:    today,
		Limit: s.limit,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		metrics, err = s.reader.LatestMetrics(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.reader.MetricsHistory(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		activities, err = s.reader.Activities(gctx, id, query)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return metrics, history, activities, nil
}

// Identity returns the selected athlete.
func (s *Store) Identity() models.AthleteID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Identity:   s.identity,
		History:    append([]models.MetricHistoryPoint{}, s.history...),
		Activities: append([]models.Activity{}, s.activities...),
		Loading:    s.loading,
		Error:      s.errMsg,
	}
	if s.metrics != nil {
		m := *s.metrics
		snap.Metrics = &m
	}
	if s.refreshedAt != nil {
		t := *s.refreshedAt
		snap.RefreshedAt = &t
	}
	return snap
}

// Subscribe registers fn to receive every state change and returns its cancel func.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

func (s *Store) notify(snap Snapshot) {
	s.listenersMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
