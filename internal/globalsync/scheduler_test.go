package globalsync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/training-dashboard/backend/internal/storage/models"
)

type fixedIdentity models.AthleteID

func (f fixedIdentity) Identity() models.AthleteID { return models.AthleteID(f) }

func TestScheduledRunUsesSignedInAthlete(t *testing.T) {
	gw := &stubGateway{}
	rec := &memoryRecorder{}
	o, _ := newTestOrchestrator(t, gw, &stubRefresher{}, WithRecorder(rec))

	s := NewScheduler(o, fixedIdentity(12), 30)
	s.runScheduled()

	require.Len(t, rec.done, 1)
	require.Equal(t, models.TriggerScheduled, rec.done[0].Trigger)
	require.Equal(t, models.AthleteID(12), rec.done[0].AthleteID)
}

func TestScheduledRunSkipsWithoutAthlete(t *testing.T) {
	gw := &stubGateway{}
	o, _ := newTestOrchestrator(t, gw, &stubRefresher{})

	NewScheduler(o, fixedIdentity(0), 30).runScheduled()
	require.Zero(t, gw.imports)
}

func TestScheduledRunSkipsWhenBusy(t *testing.T) {
	gate := make(chan struct{})
	gw := &stubGateway{importGate: gate}
	o, _ := newTestOrchestrator(t, gw, &stubRefresher{})

	_, err := o.Start(context.Background(), 12, models.TriggerManual)
	require.NoError(t, err)

	NewScheduler(o, fixedIdentity(12), 30).runScheduled()
	close(gate)
	require.Eventually(t, func() bool { return !o.Status().Busy }, time.Second, 5*time.Millisecond)

	gw.mu.Lock()
	defer gw.mu.Unlock()
	require.Equal(t, 1, gw.imports)
}

func TestSchedulerLifecycle(t *testing.T) {
	o, _ := newTestOrchestrator(t, &stubGateway{}, &stubRefresher{})

	disabled := NewScheduler(o, fixedIdentity(1), 0)
	require.NoError(t, disabled.Start())
	require.Nil(t, disabled.NextRun())
	disabled.Stop()

	s := NewScheduler(o, fixedIdentity(1), 15)
	require.NoError(t, s.Start())
	next := s.NextRun()
	require.NotNil(t, next)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), *next, time.Minute)

	s.Stop()
}
