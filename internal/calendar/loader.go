package calendar

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/training-dashboard/backend/internal/gateway"
	"github.com/training-dashboard/backend/internal/observability"
	"github.com/training-dashboard/backend/internal/storage/models"
)

// ErrNoIdentity is returned by writes when no athlete is selected.
var ErrNoIdentity = errors.New("no athlete selected")

// LoadErrorMessage is the user-visible error after a failed load.
const LoadErrorMessage = "could not load calendar data"

// historyStart is the earliest day the calendar asks for.
var historyStart = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Source is the subset of the coach API the calendar page uses.
type Source interface {
	Activities(ctx context.Context, id models.AthleteID, q gateway.ActivityQuery) ([]models.Activity, error)
	Races(ctx context.Context, id models.AthleteID) ([]models.Race, error)
	CreateActivity(ctx context.Context, id models.AthleteID, in models.ActivityCreate) (*models.Activity, error)
	CreateRace(ctx context.Context, in models.RaceCreate) (*models.Race, error)
	DeleteRace(ctx context.Context, id models.AthleteID, raceID int64) error
}

// Data is what the calendar page renders from.
type Data struct {
	Identity   models.AthleteID  `json:"athlete_id"`
	Activities []models.Activity `json:"activities"`
	Races      []models.Race     `json:"races"`
	Loading    bool              `json:"loading"`
	Error      string            `json:"error,omitempty"`
	LoadedAt   *time.Time        `json:"loaded_at,omitempty"`
}

// Option configures optional behaviour for the Loader.
type Option func(*Loader)

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithLimit sets how many activities a load fetches.
func WithLimit(limit int) Option {
	return func(l *Loader) {
		if limit > 0 {
			l.limit = limit
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) {
		l.now = now
	}
}

// Loader holds the calendar's activities and races. Every write is followed
// by a reload; nothing is patched locally.
type Loader struct {
	source Source
	logger *log.Logger
	limit  int
	now    func() time.Time

	mu         sync.Mutex
	generation uint64
	identity   models.AthleteID
	activities []models.Activity
	races      []models.Race
	loading    bool
	errMsg     string
	loadedAt   *time.Time

	listenersMu sync.Mutex
	listeners   []func(Data)
}

// NewLoader creates an empty loader.
func NewLoader(source Source, opts ...Option) *Loader {
	l := &Loader{
		source: source,
		logger: log.Default(),
		limit:  300,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// OnChange registers fn for every applied load.
func (l *Loader) OnChange(fn func(Data)) {
	l.listenersMu.Lock()
	l.listeners = append(l.listeners, fn)
	l.listenersMu.Unlock()
}

// Load fetches all activities since 2000-01-01 and the races for id. The
// zero id clears the loader. A load overtaken by a newer one is discarded.
func (l *Loader) Load(ctx context.Context, id models.AthleteID) (Data, error) {
	return l.load(ctx, id, false)
}

// Reload repeats the load for the athlete selected when it is called.
func (l *Loader) Reload(ctx context.Context) (Data, error) {
	return l.load(ctx, 0, true)
}

func (l *Loader) load(ctx context.Context, id models.AthleteID, current bool) (Data, error) {
	l.mu.Lock()
	if current {
		id = l.identity
	}
	l.generation++
	gen := l.generation
	if id != l.identity {
		l.resetLocked(id)
	}
	if id.IsZero() {
		l.loading = false
		data := l.dataLocked()
		l.mu.Unlock()
		l.emit(data)
		return data, nil
	}
	l.loading = true
	l.mu.Unlock()

	var (
		activities []models.Activity
		races      []models.Race
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		activities, err = l.source.Activities(gctx, id, gateway.ActivityQuery{
			From:  historyStart,
			To:    l.now(),
			Limit: l.limit,
		})
		return err
	})
	g.Go(func() error {
		var err error
		races, err = l.source.Races(gctx, id)
		return err
	})
	err := g.Wait()

	l.mu.Lock()
	if gen != l.generation {
		data := l.dataLocked()
		l.mu.Unlock()
		observability.RecordCalendarLoad("stale")
		return data, nil
	}

	l.loading = false
	if err != nil {
		l.errMsg = LoadErrorMessage
		data := l.dataLocked()
		l.mu.Unlock()

		l.logger.Printf("Calendar load for athlete %s failed: %v", id, err)
		observability.RecordCalendarLoad("error")
		l.emit(data)
		return data, fmt.Errorf("loading calendar: %w", err)
	}

	now := l.now()
	l.activities = activities
	l.races = races
	l.errMsg = ""
	l.loadedAt = &now
	data := l.dataLocked()
	l.mu.Unlock()

	observability.RecordCalendarLoad("success")
	l.emit(data)
	return data, nil
}

// Select switches the loader to id and drops the loaded data without
// fetching. It reports whether the athlete changed. Loads still in flight
// for the previous athlete are discarded.
func (l *Loader) Select(id models.AthleteID) bool {
	l.mu.Lock()
	if id == l.identity {
		l.mu.Unlock()
		return false
	}
	l.generation++
	l.resetLocked(id)
	l.loading = false
	data := l.dataLocked()
	l.mu.Unlock()

	l.emit(data)
	return true
}

func (l *Loader) resetLocked(id models.AthleteID) {
	l.identity = id
	l.activities = nil
	l.races = nil
	l.errMsg = ""
	l.loadedAt = nil
}

// Identity returns the athlete the loader holds data for.
func (l *Loader) Identity() models.AthleteID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.identity
}

// Snapshot returns a copy of the loaded data.
func (l *Loader) Snapshot() Data {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dataLocked()
}

// Month builds the month grid for viewDate from the loaded data.
func (l *Loader) Month(viewDate, now time.Time) Month {
	data := l.Snapshot()
	return BuildMonth(data.Activities, data.Races, viewDate, now)
}

// CreateActivity stores a manual activity and reloads.
func (l *Loader) CreateActivity(ctx context.Context, in models.ActivityCreate) (*models.Activity, error) {
	id := l.Identity()
	if id.IsZero() {
		return nil, ErrNoIdentity
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	created, err := l.source.CreateActivity(ctx, id, in)
	if err != nil {
		return nil, err
	}
	l.reloadAfterWrite(ctx)
	return created, nil
}

// CreateRace stores a race for the current athlete and reloads.
func (l *Loader) CreateRace(ctx context.Context, in models.RaceCreate) (*models.Race, error) {
	id := l.Identity()
	if id.IsZero() {
		return nil, ErrNoIdentity
	}
	in.AthleteID = int64(id)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	created, err := l.source.CreateRace(ctx, in)
	if err != nil {
		return nil, err
	}
	l.reloadAfterWrite(ctx)
	return created, nil
}

// DeleteRace removes a race and reloads.
func (l *Loader) DeleteRace(ctx context.Context, raceID int64) error {
	id := l.Identity()
	if id.IsZero() {
		return ErrNoIdentity
	}
	if err := l.source.DeleteRace(ctx, id, raceID); err != nil {
		return err
	}
	l.reloadAfterWrite(ctx)
	return nil
}

func (l *Loader) reloadAfterWrite(ctx context.Context) {
	if _, err := l.Reload(ctx); err != nil {
		l.logger.Printf("Calendar reload after write failed: %v", err)
	}
}

func (l *Loader) dataLocked() Data {
	data := Data{
		Identity:   l.identity,
		Activities: append([]models.Activity{}, l.activities...),
		Races:      append([]models.Race{}, l.races...),
		Loading:    l.loading,
		Error:      l.errMsg,
	}
	if l.loadedAt != nil {
		t := *l.loadedAt
		data.LoadedAt = &t
	}
	return data
}

func (l *Loader) emit(data Data) {
	l.listenersMu.Lock()
	fns := append([]func(Data){}, l.listeners...)
	l.listenersMu.Unlock()

	for _, fn := range fns {
		fn(data)
	}
}
