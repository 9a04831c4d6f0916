package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/cutline/internal/daw"
	"github.com/nadzzz/cutline/internal/history"
	"github.com/nadzzz/cutline/internal/planner/rules"
	"github.com/nadzzz/cutline/internal/session"
)

func startServeActor(t *testing.T) (*session.Actor, *daw.Project, context.Context) {
	t.Helper()
	proj, ok := daw.Preset("items")
	require.True(t, ok)
	actor := session.NewActor(func(onPhase func(session.Phase)) *session.Session {
		return session.New(proj, rules.New(), session.Options{
			Mode:         session.ModeImmediate,
			HistoryLimit: 10,
			OnPhase:      onPhase,
		})
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = actor.Run(ctx) }()
	return actor, proj, ctx
}

func TestReloadVia_ReplacesOnActor(t *testing.T) {
	actor, proj, ctx := startServeActor(t)
	fresh, ok := daw.Preset("tracks")
	require.True(t, ok)

	reloadVia(ctx, actor, proj)(fresh)

	assert.Equal(t, fresh.Describe(), proj.Describe())
	snap, err := actor.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Context.Tracks, 1)
	assert.Empty(t, snap.Context.Clips)
}

func TestWriteBack_SavesAppliedTurns(t *testing.T) {
	actor, proj, ctx := startServeActor(t)
	path := filepath.Join(t.TempDir(), "project.yaml")

	go func() { _ = writeBack(ctx, actor, proj, path) }()
	// writeBack subscribes asynchronously.
	time.Sleep(100 * time.Millisecond)

	out, err := actor.Submit(ctx, "fade out 2 seconds", history.RoleUser)
	require.NoError(t, err)
	require.Equal(t, session.StatusApplied, out.Status)

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	loaded, err := daw.LoadProject(path)
	require.NoError(t, err)
	require.Len(t, loaded.Clips(), 1)
	assert.InDelta(t, 2.0, loaded.Clips()[0].FadeOut, 1e-9)
}
