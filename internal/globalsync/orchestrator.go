// Package globalsync runs the import, recalculate and refresh workflow
// behind the dashboard's sync button.
package globalsync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/training-dashboard/backend/internal/athlete"
	"github.com/training-dashboard/backend/internal/gateway"
	"github.com/training-dashboard/backend/internal/observability"
	"github.com/training-dashboard/backend/internal/storage/models"
)

var (
	// ErrBusy is returned when a workflow is already running.
	ErrBusy = errors.New("sync already in progress")
	// ErrNoIdentity is returned when no athlete is selected.
	ErrNoIdentity = errors.New("no athlete selected")
)

// Gateway is the subset of the coach API the workflows write to.
type Gateway interface {
	ImportActivities(ctx context.Context, id models.AthleteID) (gateway.ImportResult, error)
	RebuildMetrics(ctx context.Context, id models.AthleteID, from, to time.Time) error
	DeleteActivity(ctx context.Context, id models.AthleteID, activityID int64) error
}

// Refresher reloads the dashboard cache.
type Refresher interface {
	Refresh(ctx context.Context, showLoading bool) athlete.Snapshot
}

// RunRecorder persists sync runs.
type RunRecorder interface {
	Create(ctx context.Context, run *models.SyncRun) error
	Finish(ctx context.Context, run *models.SyncRun) error
}

// Option configures optional behaviour for the Orchestrator.
type Option func(*Orchestrator)

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithClock overrides the time source for the rebuild window.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithRecorder persists every run through r.
func WithRecorder(r RunRecorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithSuccessDisplay sets how long the success text stays visible.
func WithSuccessDisplay(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.successDisplay = d
	}
}

// WithRebuildWindow sets the trailing number of days rebuilt after an import.
func WithRebuildWindow(days int) Option {
	return func(o *Orchestrator) {
		if days > 0 {
			o.rebuildDays = days
		}
	}
}

// Orchestrator owns the busy flag and the overlay status. At most one
// workflow runs at a time; extra triggers are rejected, never queued.
type Orchestrator struct {
	gateway        Gateway
	refresher      Refresher
	recorder       RunRecorder
	logger         *log.Logger
	now            func() time.Time
	successDisplay time.Duration
	rebuildDays    int

	// transitionMu orders status changes together with their delivery,
	// so listeners never see an older status after a newer one. Listeners
	// must not start or delete from inside the callback.
	transitionMu sync.Mutex

	mu      sync.Mutex
	status  Status
	lastRun *models.SyncRun

	listenersMu sync.Mutex
	listeners   []func(Status)
}

// New creates an idle orchestrator.
func New(gw Gateway, refresher Refresher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gateway:        gw,
		refresher:      refresher,
		logger:         log.Default(),
		now:            time.Now,
		successDisplay: 1500 * time.Millisecond,
		rebuildDays:    7,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.status = Status{Phase: PhaseIdle, UpdatedAt: o.now()}
	return o
}

// OnStatus registers fn for every status transition.
func (o *Orchestrator) OnStatus(fn func(Status)) {
	o.listenersMu.Lock()
	o.listeners = append(o.listeners, fn)
	o.listenersMu.Unlock()
}

// Status returns the current overlay state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// LastRun returns the most recent sync run, if any.
func (o *Orchestrator) LastRun() *models.SyncRun {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastRun == nil {
		return nil
	}
	run := *o.lastRun
	return &run
}

// Run performs a full sync for id and blocks until it is back to idle.
// The returned error is the failed step, ErrBusy or ErrNoIdentity.
func (o *Orchestrator) Run(ctx context.Context, id models.AthleteID, trigger string) (models.SyncRun, error) {
	run, err := o.begin(ctx, id, trigger)
	if err != nil {
		return models.SyncRun{}, err
	}
	return o.execute(ctx, run)
}

// Start is Run in the background. The busy check happens before it returns,
// so a second trigger is rejected immediately.
func (o *Orchestrator) Start(ctx context.Context, id models.AthleteID, trigger string) (string, error) {
	run, err := o.begin(ctx, id, trigger)
	if err != nil {
		return "", err
	}
	go func() {
		if _, err := o.execute(context.WithoutCancel(ctx), run); err != nil {
			o.logger.Printf("Global sync %s failed: %v", run.ID, err)
		}
	}()
	return run.ID, nil
}

func (o *Orchestrator) begin(ctx context.Context, id models.AthleteID, trigger string) (*models.SyncRun, error) {
	if id.IsZero() {
		return nil, ErrNoIdentity
	}
	if trigger == "" {
		trigger = models.TriggerManual
	}

	run := &models.SyncRun{
		ID:        uuid.NewString(),
		AthleteID: id,
		Trigger:   trigger,
		Phase:     string(PhaseImporting),
		Status:    models.SyncStatusRunning,
		StartedAt: o.now().UTC(),
	}
	if err := o.enter(run.ID, PhaseImporting, TextImporting); err != nil {
		return nil, err
	}

	if o.recorder != nil {
		if err := o.recorder.Create(ctx, run); err != nil {
			o.logger.Printf("Failed to record sync run %s: %v", run.ID, err)
		}
	}
	return run, nil
}

func (o *Orchestrator) execute(ctx context.Context, run *models.SyncRun) (models.SyncRun, error) {
	id := run.AthleteID

	res, err := o.gateway.ImportActivities(ctx, id)
	if err != nil {
		return o.fail(ctx, run, MessageSyncFailed, fmt.Errorf("importing activities: %w", err))
	}
	o.logger.Printf("Imported activities for athlete %s: fetched=%d saved=%d pages=%d",
		id, res.Fetched, res.SavedOrUpdated, res.Pages)

	run.Phase = string(PhaseRecalculating)
	o.advance(run.ID, PhaseRecalculating, TextRecalculating)
	to := o.now()
	from := to.AddDate(0, 0, -o.rebuildDays)
	if err := o.gateway.RebuildMetrics(ctx, id, from, to); err != nil {
		return o.fail(ctx, run, MessageSyncFailed, fmt.Errorf("rebuilding metrics: %w", err))
	}

	run.Phase = string(PhaseRefreshing)
	o.advance(run.ID, PhaseRefreshing, TextRefreshing)
	o.refresher.Refresh(ctx, true)

	return o.succeed(ctx, run), nil
}

// DeleteActivity removes an activity and refreshes the dashboard. It shares
// the busy flag with the sync workflow.
func (o *Orchestrator) DeleteActivity(ctx context.Context, id models.AthleteID, activityID int64) error {
	if id.IsZero() {
		return ErrNoIdentity
	}
	opID := uuid.NewString()
	if err := o.enter(opID, PhaseDeleting, TextDeleting); err != nil {
		return err
	}

	if err := o.gateway.DeleteActivity(ctx, id, activityID); err != nil {
		o.settle(opID, Status{Outcome: OutcomeFailure, Error: MessageDeleteFailed})
		return err
	}
	o.refresher.Refresh(ctx, true)
	o.settle(opID, Status{Outcome: OutcomeSuccess})
	return nil
}

// enter claims the busy flag.
func (o *Orchestrator) enter(runID string, phase Phase, text string) error {
	o.transitionMu.Lock()
	defer o.transitionMu.Unlock()

	o.mu.Lock()
	if o.status.Busy {
		o.mu.Unlock()
		return ErrBusy
	}
	o.status = Status{RunID: runID, Phase: phase, Text: text, Busy: true, UpdatedAt: o.now()}
	st := o.status
	o.mu.Unlock()

	observability.SetSyncBusy(true)
	o.emit(st)
	return nil
}

func (o *Orchestrator) advance(runID string, phase Phase, text string) {
	o.transitionMu.Lock()
	defer o.transitionMu.Unlock()

	o.mu.Lock()
	o.status = Status{RunID: runID, Phase: phase, Text: text, Busy: true, UpdatedAt: o.now()}
	st := o.status
	o.mu.Unlock()
	o.emit(st)
}

// settle returns to idle with the given outcome.
func (o *Orchestrator) settle(runID string, final Status) {
	o.transitionMu.Lock()
	defer o.transitionMu.Unlock()

	o.mu.Lock()
	final.RunID = runID
	final.Phase = PhaseIdle
	final.Busy = false
	final.UpdatedAt = o.now()
	o.status = final
	o.mu.Unlock()

	observability.SetSyncBusy(false)
	o.emit(final)
}

func (o *Orchestrator) fail(ctx context.Context, run *models.SyncRun, message string, err error) (models.SyncRun, error) {
	o.logger.Printf("Global sync %s for athlete %s failed during %s: %v", run.ID, run.AthleteID, run.Phase, err)

	run.Status = models.SyncStatusError
	run.Error = &message
	o.finish(ctx, run)
	o.settle(run.ID, Status{Outcome: OutcomeFailure, Error: message})
	return *run, err
}

func (o *Orchestrator) succeed(ctx context.Context, run *models.SyncRun) models.SyncRun {
	run.Status = models.SyncStatusSuccess
	o.finish(ctx, run)
	o.settle(run.ID, Status{Outcome: OutcomeSuccess, Text: TextDone})

	runID := run.ID
	time.AfterFunc(o.successDisplay, func() {
		o.clearDoneText(runID)
	})
	return *run
}

func (o *Orchestrator) finish(ctx context.Context, run *models.SyncRun) {
	finished := o.now().UTC()
	run.FinishedAt = &finished

	o.mu.Lock()
	last := *run
	o.lastRun = &last
	o.mu.Unlock()

	outcome := "success"
	if run.Status == models.SyncStatusError {
		outcome = "failure"
	}
	observability.RecordSyncRun(run.Trigger, outcome)

	if o.recorder != nil {
		if err := o.recorder.Finish(ctx, run); err != nil {
			o.logger.Printf("Failed to record sync run %s: %v", run.ID, err)
		}
	}
}

// clearDoneText hides the success text unless another workflow has started.
func (o *Orchestrator) clearDoneText(runID string) {
	o.transitionMu.Lock()
	defer o.transitionMu.Unlock()

	o.mu.Lock()
	if o.status.RunID != runID || o.status.Busy || o.status.Text != TextDone {
		o.mu.Unlock()
		return
	}
	o.status.Text = ""
	o.status.UpdatedAt = o.now()
	st := o.status
	o.mu.Unlock()
	o.emit(st)
}

func (o *Orchestrator) emit(st Status) {
	o.listenersMu.Lock()
	fns := append([]func(Status){}, o.listeners...)
	o.listenersMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
