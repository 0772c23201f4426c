// File: internal/tracker/syncer_test.go
package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AryanBhardwaj123/placement-tracker/internal/session"
	"github.com/AryanBhardwaj123/placement-tracker/internal/store"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// fakeSource is a hand-driven IdentitySource.
type fakeSource struct {
	mu        sync.Mutex
	id        *session.Identity
	listeners []func(*session.Identity)
}

func (f *fakeSource) OnChange(fn func(*session.Identity)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

func (f *fakeSource) Identity() *session.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.id == nil {
		return nil
	}
	id := *f.id
	return &id
}

func (f *fakeSource) set(id *session.Identity) {
	f.mu.Lock()
	f.id = id
	listeners := make([]func(*session.Identity), len(f.listeners))
	copy(listeners, f.listeners)
	f.mu.Unlock()
	for _, fn := range listeners {
		fn(id)
	}
}

func newTestSyncer(t *testing.T) (*Syncer, *fakeSource, *store.Memory) {
	t.Helper()
	source := &fakeSource{}
	mem := store.NewMemory()
	sy := NewSyncer(source, mem, zap.NewNop())
	return sy, source, mem
}

func tickingClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func TestApplicationsOrderedNewestFirst(t *testing.T) {
	sy, source, mem := newTestSyncer(t)
	mem.SetClock(tickingClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)))
	ctx := context.Background()
	source.set(&session.Identity{UID: "u1"})

	for _, name := range []string{"Acme", "Globex", "Initech"} {
		_, err := sy.AddApplication(ctx, Application{Name: name, Status: StatusApplied})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return len(sy.Applications()) == 3 }, waitFor, tick)
	apps := sy.Applications()
	assert.Equal(t, "Initech", apps[0].Name)
	assert.Equal(t, "Globex", apps[1].Name)
	assert.Equal(t, "Acme", apps[2].Name)
	assert.False(t, sy.Loading())
}

func TestInterviewsOrderedByDateAscending(t *testing.T) {
	sy, source, _ := newTestSyncer(t)
	ctx := context.Background()
	source.set(&session.Identity{UID: "u1"})

	for _, date := range []string{"2026-04-10", "2026-04-02", "2026-04-25"} {
		_, err := sy.AddInterview(ctx, Interview{
			Company: "Acme",
			Date:    date,
			Mode:    ModeOnline,
			Status:  InterviewScheduled,
		})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return len(sy.Interviews()) == 3 }, waitFor, tick)
	ivs := sy.Interviews()
	assert.Equal(t, "2026-04-02", ivs[0].Date)
	assert.Equal(t, "2026-04-10", ivs[1].Date)
	assert.Equal(t, "2026-04-25", ivs[2].Date)
}

func TestUpdateApplicationReflectsInSnapshot(t *testing.T) {
	sy, source, _ := newTestSyncer(t)
	ctx := context.Background()
	source.set(&session.Identity{UID: "u1"})

	id, err := sy.AddApplication(ctx, Application{Name: "Acme", Status: StatusApplied})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(sy.Applications()) == 1 }, waitFor, tick)

	status := StatusInterview
	require.NoError(t, sy.UpdateApplication(ctx, id, ApplicationUpdate{Status: &status}))

	require.Eventually(t, func() bool {
		apps := sy.Applications()
		return len(apps) == 1 && apps[0].Status == StatusInterview
	}, waitFor, tick)
	assert.Equal(t, "Acme", sy.Applications()[0].Name)
}

func TestDeleteApplicationConverges(t *testing.T) {
	sy, source, _ := newTestSyncer(t)
	ctx := context.Background()
	source.set(&session.Identity{UID: "u1"})

	id, err := sy.AddApplication(ctx, Application{Name: "Acme"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(sy.Applications()) == 1 }, waitFor, tick)

	sy.DeleteApplication(ctx, id)
	require.Eventually(t, func() bool { return len(sy.Applications()) == 0 }, waitFor, tick)

	// A failed delete is swallowed.
	sy.DeleteApplication(ctx, "does-not-exist")
}

func TestMutationsAreNoopWhenSignedOut(t *testing.T) {
	sy, _, _ := newTestSyncer(t)
	ctx := context.Background()

	id, err := sy.AddApplication(ctx, Application{Name: "Acme"})
	assert.NoError(t, err)
	assert.Empty(t, id)

	name := "Globex"
	assert.NoError(t, sy.UpdateApplication(ctx, "any", ApplicationUpdate{Name: &name}))
	sy.DeleteApplication(ctx, "any")
	assert.False(t, sy.Loading())
}

func TestSignOutClearsLocalState(t *testing.T) {
	sy, source, _ := newTestSyncer(t)
	ctx := context.Background()
	source.set(&session.Identity{UID: "u1"})

	_, err := sy.AddApplication(ctx, Application{Name: "Acme"})
	require.NoError(t, err)
	_, err = sy.AddInterview(ctx, Interview{Company: "Acme", Date: "2026-04-02"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(sy.Applications()) == 1 && len(sy.Interviews()) == 1
	}, waitFor, tick)

	source.set(nil)
	assert.Empty(t, sy.Applications())
	assert.Empty(t, sy.Interviews())
	assert.False(t, sy.Loading())
}

func TestIdentitySwitchIsolatesCollections(t *testing.T) {
	sy, source, mem := newTestSyncer(t)
	mem.SetClock(tickingClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)))
	ctx := context.Background()

	source.set(&session.Identity{UID: "alice"})
	_, err := sy.AddApplication(ctx, Application{Name: "Acme"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(sy.Applications()) == 1 }, waitFor, tick)

	source.set(&session.Identity{UID: "bob"})
	_, err = sy.AddApplication(ctx, Application{Name: "Globex"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		apps := sy.Applications()
		return len(apps) == 1 && apps[0].Name == "Globex"
	}, waitFor, tick)

	// Alice's data is untouched in the store.
	source.set(&session.Identity{UID: "alice"})
	require.Eventually(t, func() bool {
		apps := sy.Applications()
		return len(apps) == 1 && apps[0].Name == "Acme"
	}, waitFor, tick)
}

func TestOnUpdateFires(t *testing.T) {
	sy, source, _ := newTestSyncer(t)
	ctx := context.Background()

	var mu sync.Mutex
	fired := 0
	sy.OnUpdate(func() {
		mu.Lock()
		defer mu.Unlock()
		fired++
	})

	source.set(&session.Identity{UID: "u1"})
	_, err := sy.AddApplication(ctx, Application{Name: "Acme"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return fired > 0
	}, waitFor, tick)
}

// capturingStore records the snapshot callback registered per path so a
// test can replay a delivery after the subscription is gone.
type capturingStore struct {
	store.Store
	mu      sync.Mutex
	onNexts map[string]func(store.Snapshot)
}

func newCapturingStore(inner store.Store) *capturingStore {
	return &capturingStore{Store: inner, onNexts: map[string]func(store.Snapshot){}}
}

func (c *capturingStore) Subscribe(ctx context.Context, path string, order store.OrderSpec, onNext func(store.Snapshot), onError func(error)) (store.CancelFunc, error) {
	c.mu.Lock()
	c.onNexts[path] = onNext
	c.mu.Unlock()
	return c.Store.Subscribe(ctx, path, order, onNext, onError)
}

func (c *capturingStore) callback(path string) func(store.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.onNexts[path]
}

func TestLateDeliveryAfterSignOutIsDiscarded(t *testing.T) {
	source := &fakeSource{}
	cs := newCapturingStore(store.NewMemory())
	sy := NewSyncer(source, cs, zap.NewNop())
	ctx := context.Background()

	source.set(&session.Identity{UID: "u1"})
	_, err := sy.AddApplication(ctx, Application{Name: "Acme"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(sy.Applications()) == 1 }, waitFor, tick)

	appsNext := cs.callback("users/u1/applications")
	ivNext := cs.callback("users/u1/interviews")
	require.NotNil(t, appsNext)
	require.NotNil(t, ivNext)

	source.set(nil)
	require.Empty(t, sy.Applications())

	// Deliveries from the previous identity arriving after sign-out must
	// not repopulate the cleared collections.
	appsNext(store.Snapshot{{ID: "a1", Fields: store.Fields{"name": "Acme"}}})
	ivNext(store.Snapshot{{ID: "i1", Fields: store.Fields{"company": "Acme", "date": "2026-04-02"}}})

	assert.Empty(t, sy.Applications())
	assert.Empty(t, sy.Interviews())
	assert.False(t, sy.Loading())
}
