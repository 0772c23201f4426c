// File: internal/store/memory_test.go
package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type snapshotSink struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (s *snapshotSink) next(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
}

func (s *snapshotSink) latest() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snaps) == 0 {
		return nil, false
	}
	return s.snaps[len(s.snaps)-1], true
}

func waitForSnapshot(t *testing.T, sink *snapshotSink, ok func(Snapshot) bool) Snapshot {
	t.Helper()
	var out Snapshot
	require.Eventually(t, func() bool {
		snap, has := sink.latest()
		if !has || !ok(snap) {
			return false
		}
		out = snap
		return true
	}, waitFor, tick)
	return out
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	_, err := mem.Create(ctx, "users/u1/applications", Fields{"name": "Acme"})
	require.NoError(t, err)

	sink := &snapshotSink{}
	cancel, err := mem.Subscribe(ctx, "users/u1/applications", OrderSpec{Field: "createdAt", Desc: true}, sink.next, nil)
	require.NoError(t, err)
	defer cancel()

	snap := waitForSnapshot(t, sink, func(s Snapshot) bool { return len(s) == 1 })
	assert.Equal(t, "Acme", snap[0].Fields["name"])
}

func TestSubscribeOrdering(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	mem.SetClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	for _, name := range []string{"first", "second", "third"} {
		_, err := mem.Create(ctx, "users/u1/applications", Fields{
			"name":      name,
			"createdAt": ServerTimestamp,
		})
		require.NoError(t, err)
	}

	sink := &snapshotSink{}
	cancel, err := mem.Subscribe(ctx, "users/u1/applications", OrderSpec{Field: "createdAt", Desc: true}, sink.next, nil)
	require.NoError(t, err)
	defer cancel()

	snap := waitForSnapshot(t, sink, func(s Snapshot) bool { return len(s) == 3 })
	assert.Equal(t, "third", snap[0].Fields["name"])
	assert.Equal(t, "second", snap[1].Fields["name"])
	assert.Equal(t, "first", snap[2].Fields["name"])
}

func TestServerTimestampResolved(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mem.SetClock(func() time.Time { return now })

	id, err := mem.Create(ctx, "users/u1/applications", Fields{"createdAt": ServerTimestamp})
	require.NoError(t, err)

	fields, exists, err := mem.GetOne(ctx, "users/u1/applications/"+id)
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, now, fields["createdAt"])
}

func TestUpdateAndDeleteMissingDoc(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	err := mem.Update(ctx, "users/u1/applications", "missing", Fields{"name": "x"})
	assert.ErrorIs(t, err, ErrDocNotFound)

	err = mem.Delete(ctx, "users/u1/applications", "missing")
	assert.ErrorIs(t, err, ErrDocNotFound)
}

func TestSetOneMergeAndReplace(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.SetOne(ctx, "users/u1", Fields{"bio": "hello", "role": "Job Seeker"}, false))
	require.NoError(t, mem.SetOne(ctx, "users/u1", Fields{"bio": "updated"}, true))

	fields, exists, err := mem.GetOne(ctx, "users/u1")
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, "updated", fields["bio"])
	assert.Equal(t, "Job Seeker", fields["role"])

	require.NoError(t, mem.SetOne(ctx, "users/u1", Fields{"bio": "replaced"}, false))
	fields, _, err = mem.GetOne(ctx, "users/u1")
	require.NoError(t, err)
	assert.Equal(t, "replaced", fields["bio"])
	_, hasRole := fields["role"]
	assert.False(t, hasRole)
}

func TestSubscribeOneObservesLifecycle(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	type docEvent struct {
		fields Fields
		exists bool
	}
	var mu sync.Mutex
	var events []docEvent
	cancel, err := mem.SubscribeOne(ctx, "users/u1", func(fields Fields, exists bool) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, docEvent{fields, exists})
	}, nil)
	require.NoError(t, err)
	defer cancel()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) >= 1 && !events[0].exists
	}, waitFor, tick)

	require.NoError(t, mem.SetOne(ctx, "users/u1", Fields{"bio": "hello"}, true))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		last := events[len(events)-1]
		return last.exists && last.fields["bio"] == "hello"
	}, waitFor, tick)
}

func TestCancelStopsDelivery(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	sink := &snapshotSink{}
	cancel, err := mem.Subscribe(ctx, "users/u1/applications", OrderSpec{Field: "createdAt", Desc: true}, sink.next, nil)
	require.NoError(t, err)
	waitForSnapshot(t, sink, func(Snapshot) bool { return true })

	cancel()
	sink.mu.Lock()
	seen := len(sink.snaps)
	sink.mu.Unlock()

	_, err = mem.Create(ctx, "users/u1/applications", Fields{"name": "late"})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, seen, len(sink.snaps))
}

func TestSnapshotsAreIsolatedCopies(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	id, err := mem.Create(ctx, "users/u1/applications", Fields{"name": "Acme"})
	require.NoError(t, err)

	sink := &snapshotSink{}
	cancel, err := mem.Subscribe(ctx, "users/u1/applications", OrderSpec{Field: "createdAt", Desc: true}, sink.next, nil)
	require.NoError(t, err)
	defer cancel()

	snap := waitForSnapshot(t, sink, func(s Snapshot) bool { return len(s) == 1 })
	snap[0].Fields["name"] = "mutated"

	fields, _, err := mem.GetOne(ctx, "users/u1/applications/"+id)
	require.NoError(t, err)
	assert.Equal(t, "Acme", fields["name"])
}

func TestConcurrentWriteDuringSubscribeConverges(t *testing.T) {
	ctx := context.Background()

	// A write racing the subscription's initial delivery must never be
	// superseded by the older initial materialization: the last snapshot
	// the subscriber settles on has to contain the written document.
	for i := 0; i < 200; i++ {
		mem := NewMemory()
		sink := &snapshotSink{}

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, err := mem.Create(ctx, "users/u1/applications", Fields{"name": "Acme"})
			assert.NoError(t, err)
		}()

		cancel, err := mem.Subscribe(ctx, "users/u1/applications",
			OrderSpec{Field: "createdAt", Desc: true}, sink.next, nil)
		require.NoError(t, err)
		<-done

		waitForSnapshot(t, sink, func(s Snapshot) bool { return len(s) == 1 })
		cancel()
	}
}
