package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/cutline/internal/daw"
	"github.com/nadzzz/cutline/internal/planner/rules"
	"github.com/nadzzz/cutline/internal/session"
)

func runRepl(t *testing.T, mode session.Mode, input string) (string, *daw.Project) {
	t.Helper()
	proj, ok := daw.Preset("items")
	require.True(t, ok)
	var out bytes.Buffer
	r := &repl{
		in:      strings.NewReader(input),
		out:     &out,
		project: proj,
		session: session.New(proj, rules.New(), session.Options{Mode: mode, HistoryLimit: 50}),
	}
	require.NoError(t, r.run(context.Background()))
	return out.String(), proj
}

func TestRepl_PreviewApplyAndCancel(t *testing.T) {
	out, proj := runRepl(t, session.ModePreview, strings.Join([]string{
		"fade in 500ms",
		"y",
		"fade out 1s",
		"n",
		"q",
	}, "\n"))

	assert.Contains(t, out, "Current: items=1, tracks=0, time_selection=none")
	assert.Contains(t, out, "Will:")
	assert.Contains(t, out, "Applied 1 change(s).")
	assert.Contains(t, out, "Canceled.")

	clips := proj.Clips()
	require.Len(t, clips, 1)
	assert.InDelta(t, 0.5, clips[0].FadeIn, 1e-9)
	assert.Zero(t, clips[0].FadeOut)
}

func TestRepl_ConsoleCommands(t *testing.T) {
	out, _ := runRepl(t, session.ModeImmediate, strings.Join([]string{
		":ctx",
		":ctx tracks",
		":ctx studio",
		":mode preview",
		":mode",
		":undo",
		":history",
		":reset",
		":bogus",
		"exit",
		"never reached",
	}, "\n"))

	assert.Contains(t, out, "Context presets: ")
	assert.Contains(t, out, "Switched context -> tracks: items=0, tracks=1")
	assert.Contains(t, out, "Unknown context preset: studio")
	assert.Contains(t, out, "Mode: preview")
	assert.Contains(t, out, "Usage: :mode <immediate|preview>")
	assert.Contains(t, out, "Nothing to undo.")
	assert.Contains(t, out, "Session reset.")
	assert.Contains(t, out, "Unknown console command :bogus")
}

func TestRepl_ImmediateUndo(t *testing.T) {
	out, proj := runRepl(t, session.ModeImmediate, "fade out 2 seconds\n:undo\n")

	assert.Contains(t, out, "Applied 1 change(s).")
	assert.Contains(t, out, "Undid Cutline: fade out 2 seconds.")
	assert.Zero(t, proj.Clips()[0].FadeOut)
}
