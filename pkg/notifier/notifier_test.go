package notifier_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/facilitator/pkg/channels/gochannel"
	"github.com/dukex/facilitator/pkg/eventbus"
	"github.com/dukex/facilitator/pkg/models"
	"github.com/dukex/facilitator/pkg/notifier"
	"github.com/dukex/facilitator/pkg/persistence/keyvalue"
	"github.com/dukex/facilitator/pkg/services"
	"github.com/dukex/facilitator/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects delivered snapshots.
type recorder struct {
	mu        sync.Mutex
	snapshots []*models.SessionSnapshot
}

func (r *recorder) handle(_ context.Context, snapshot *models.SessionSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snapshots = append(r.snapshots, snapshot)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.snapshots)
}

func (r *recorder) last() *models.SessionSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.snapshots) == 0 {
		return nil
	}

	return r.snapshots[len(r.snapshots)-1]
}

func workshop() *models.Workshop {
	return &models.Workshop{
		ID:     "w1",
		Title:  "Retro",
		Status: models.WorkshopStatusUpcoming,
		Blocks: []models.Block{{ID: "b1", Type: models.BlockTypeBreak, Title: "Break", Duration: 5}},
	}
}

func setup(t *testing.T, opts ...services.Option) (*memory.Store, *services.Session) {
	t.Helper()

	store := memory.NewStore()
	p := keyvalue.NewPersistence(store)

	t.Cleanup(func() { _ = p.Close(context.Background()) })

	return store, services.NewSession(p, nil, opts...)
}

func TestSubscribe_DeliversInitialSnapshotAndSignals(t *testing.T) {
	_, sessions := setup(t)
	ctx := t.Context()

	session, err := sessions.CreateSession(ctx, workshop())
	require.NoError(t, err)

	n := notifier.New(sessions, notifier.WithInterval(time.Hour))
	defer n.Close()

	rec := &recorder{}
	_, err = n.Subscribe(ctx, session.ID, rec.handle)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, session.ID, rec.last().Session.ID)
	assert.Equal(t, "Retro", rec.last().Workshop.Title)

	_, err = sessions.StartBlock(ctx, session.ID, "b1")
	require.NoError(t, err)

	n.Notify(session.ID)

	require.Eventually(t, func() bool {
		last := rec.last()

		return last != nil && last.Session.IsRunning
	}, time.Second, 5*time.Millisecond)
}

func TestSubscribe_PollsWithoutSignals(t *testing.T) {
	_, sessions := setup(t)
	ctx := t.Context()

	session, err := sessions.CreateSession(ctx, workshop())
	require.NoError(t, err)

	n := notifier.New(sessions, notifier.WithInterval(10*time.Millisecond))
	defer n.Close()

	rec := &recorder{}
	_, err = n.Subscribe(ctx, session.ID, rec.handle)
	require.NoError(t, err)

	_, err = sessions.AddTime(ctx, session.ID, "b1", 30, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		last := rec.last()

		return last != nil && last.Session.Timers["b1"] == 30
	}, time.Second, 5*time.Millisecond)
}

func TestSubscribe_AbsentSessionDeliversNil(t *testing.T) {
	_, sessions := setup(t)

	n := notifier.New(sessions, notifier.WithInterval(time.Hour))
	defer n.Close()

	delivered := make(chan *models.SessionSnapshot, 1)
	_, err := n.Subscribe(t.Context(), "missing", func(_ context.Context, snapshot *models.SessionSnapshot) {
		delivered <- snapshot
	})
	require.NoError(t, err)

	select {
	case snapshot := <-delivered:
		assert.Nil(t, snapshot)
	case <-time.After(time.Second):
		t.Fatal("no delivery")
	}
}

func TestSubscribe_CancelStopsDeliveries(t *testing.T) {
	_, sessions := setup(t)
	ctx := t.Context()

	session, err := sessions.CreateSession(ctx, workshop())
	require.NoError(t, err)

	n := notifier.New(sessions, notifier.WithInterval(5*time.Millisecond))
	defer n.Close()

	rec := &recorder{}
	cancel, err := n.Subscribe(ctx, session.ID, rec.handle)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.count() >= 2 }, time.Second, time.Millisecond)

	cancel()
	cancel()
	time.Sleep(20 * time.Millisecond)

	stopped := rec.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, rec.count())
}

func TestWatch_StoreChangesWakeSubscribers(t *testing.T) {
	store, sessions := setup(t)
	ctx := t.Context()

	session, err := sessions.CreateSession(ctx, workshop())
	require.NoError(t, err)

	n := notifier.New(sessions, notifier.WithInterval(time.Hour))
	defer n.Close()

	require.NoError(t, n.Watch(ctx, store))

	rec := &recorder{}
	_, err = n.Subscribe(ctx, session.ID, rec.handle)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	_, err = sessions.TogglePause(ctx, session.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		last := rec.last()

		return last != nil && last.Session.IsRunning
	}, time.Second, 5*time.Millisecond)
}

func TestAttach_EventsWakeSubscribers(t *testing.T) {
	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, slog.Default())
	defer bus.Close()

	_, sessions := setup(t, services.WithEventPublisher(bus))
	ctx := t.Context()

	session, err := sessions.CreateSession(ctx, workshop())
	require.NoError(t, err)

	n := notifier.New(sessions, notifier.WithInterval(time.Hour))
	defer n.Close()

	require.NoError(t, n.Attach(bus))
	require.NoError(t, bus.Subscribe(ctx))

	rec := &recorder{}
	_, err = n.Subscribe(ctx, session.ID, rec.handle)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	_, err = sessions.StartBlock(ctx, session.ID, "b1")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		last := rec.last()

		return last != nil && last.Session.CurrentBlock() == "b1"
	}, time.Second, 5*time.Millisecond)
}

func TestClose(t *testing.T) {
	_, sessions := setup(t)

	n := notifier.New(sessions)

	select {
	case <-n.Done():
		t.Fatal("done before close")
	default:
	}

	n.Close()
	n.Close()

	select {
	case <-n.Done():
	default:
		t.Fatal("done not closed")
	}

	_, err := n.Subscribe(t.Context(), "s1", func(context.Context, *models.SessionSnapshot) {})
	assert.ErrorIs(t, err, notifier.ErrClosed)
}
