package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/cutline/internal/history"
	"github.com/nadzzz/cutline/internal/planner"
	"github.com/nadzzz/cutline/internal/planner/plannertest"
)

func startActor(t *testing.T, p planner.Planner, mode Mode) (*Actor, context.CancelFunc, <-chan error) {
	t.Helper()
	proj := preset(t, "items")
	a := NewActor(func(onPhase func(Phase)) *Session {
		return New(proj, p, Options{Mode: mode, HistoryLimit: 10, OnPhase: onPhase})
	})
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- a.Run(ctx) }()
	t.Cleanup(cancel)
	return a, cancel, errc
}

func collect(t *testing.T, events <-chan Event, n int) []Event {
	t.Helper()
	var got []Event
	timeout := time.After(2 * time.Second)
	for len(got) < n {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("got %d of %d events", len(got), n)
		}
	}
	return got
}

func TestActor_PublishesPhases(t *testing.T) {
	a, _, _ := startActor(t, plannertest.New(plan(call("fade_out", map[string]any{"seconds": 0.5}))), ModeImmediate)
	events, cancel := a.Subscribe()
	defer cancel()

	out, err := a.Submit(context.Background(), "fade out 500ms", history.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, StatusApplied, out.Status)

	got := collect(t, events, 3)
	assert.Equal(t, PhasePlanning, got[0].Phase)
	assert.Equal(t, PhaseExecuting, got[1].Phase)
	assert.Equal(t, PhaseIdle, got[2].Phase)
	require.NotNil(t, got[2].Outcome)
	assert.Equal(t, StatusApplied, got[2].Outcome.Status)
}

func TestActor_SnapshotAndPending(t *testing.T) {
	a, _, _ := startActor(t, plannertest.New(
		plan(call("fade_in", map[string]any{"seconds": 0.5})),
	), ModePreview)
	ctx := context.Background()

	_, err := a.Submit(ctx, "fade in 500ms", history.RoleUser)
	require.NoError(t, err)

	snap, err := a.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModePreview, snap.Mode)
	assert.Equal(t, "scripted", snap.Planner)
	require.NotNil(t, snap.Pending)
	assert.Equal(t, "fade in 500ms", snap.Pending.Command)
	assert.Len(t, snap.Context.Clips, 1)
	assert.Len(t, snap.History, 2)

	out, err := a.Apply(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusApplied, out.Status)

	_, err = a.Discard(ctx)
	assert.ErrorIs(t, err, ErrNothingPending)

	require.NoError(t, a.Reset(ctx))
	snap, err = a.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.History)
}

func TestActor_Stopped(t *testing.T) {
	a, cancel, errc := startActor(t, plannertest.New(), ModeImmediate)
	cancel()
	require.NoError(t, <-errc)

	_, err := a.Submit(context.Background(), "mute", history.RoleUser)
	assert.ErrorIs(t, err, ErrStopped)
}

func TestActor_UnsubscribeClosesChannel(t *testing.T) {
	a, _, _ := startActor(t, plannertest.New(), ModeImmediate)
	events, cancel := a.Subscribe()
	cancel()
	_, open := <-events
	assert.False(t, open)
	cancel()
}
