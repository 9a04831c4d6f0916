package daw

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject_SplitClip(t *testing.T) {
	p := NewProject()
	tr := p.AddTrack("Drums", false)
	id := p.AddClip(tr, 10, 4, true)
	p.SetFadeOut(id, 1)

	right, ok := p.SplitClip(id, 11)
	require.True(t, ok)

	left, _ := p.Clip(id)
	r, _ := p.Clip(right)
	assert.InDelta(t, 1.0, left.Length, 1e-9)
	assert.InDelta(t, 0.0, left.FadeOut, 1e-9)
	assert.InDelta(t, 11.0, r.Position, 1e-9)
	assert.InDelta(t, 3.0, r.Length, 1e-9)
	assert.InDelta(t, 1.0, r.FadeOut, 1e-9)
	assert.InDelta(t, 1.0, r.TakeOffset, 1e-9)
	assert.True(t, r.Selected)

	_, ok = p.SplitClip(id, 10)
	assert.False(t, ok, "split at clip start must be rejected")
}

func TestProject_UndoCollapsesNestedSteps(t *testing.T) {
	p := NewProject()
	tr := p.AddTrack("Bass", true)

	p.BeginUndo()
	p.SetTrackVolume(tr, 0.5)
	p.BeginUndo()
	p.SetTrackMute(tr, true)
	p.EndUndo("inner")
	p.EndUndo("outer")

	assert.Equal(t, 1, p.UndoDepth())

	name, ok := p.Undo()
	require.True(t, ok)
	assert.Equal(t, "outer", name)

	st, _ := p.Track(tr)
	assert.InDelta(t, 1.0, st.Volume, 1e-9)
	assert.False(t, st.Mute)
}

func TestProject_ReplaceWaitsForOpenUndoStep(t *testing.T) {
	p, _ := Preset("items")
	fresh, _ := Preset("tracks")
	clip := p.SelectedClips()[0]

	p.BeginUndo()
	p.SetFadeOut(clip, 0.5)

	done := make(chan struct{})
	go func() {
		p.Replace(fresh)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Replace ran inside an open undo step")
	case <-time.After(50 * time.Millisecond):
	}

	p.EndUndo("batch")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Replace did not resume after EndUndo")
	}

	assert.Equal(t, fresh.Describe(), p.Describe())
	_, ok := p.Undo()
	assert.False(t, ok, "a reload must not be undoable back to the old state")
}

func TestProject_MarshalWaitsForOpenUndoStep(t *testing.T) {
	p, _ := Preset("items")
	clip := p.SelectedClips()[0]

	p.BeginUndo()
	p.SetFadeOut(clip, 0.5)

	encoded := make(chan []byte, 1)
	go func() {
		data, err := p.Marshal()
		assert.NoError(t, err)
		encoded <- data
	}()

	select {
	case <-encoded:
		t.Fatal("Marshal encoded a half-applied batch")
	case <-time.After(50 * time.Millisecond):
	}

	p.SetFadeIn(clip, 0.25)
	p.EndUndo("batch")

	select {
	case data := <-encoded:
		assert.Contains(t, string(data), "fade_in: 0.25")
		assert.Contains(t, string(data), "fade_out: 0.5")
	case <-time.After(2 * time.Second):
		t.Fatal("Marshal did not resume after EndUndo")
	}
}

func TestProject_DuplicateSelection(t *testing.T) {
	t.Run("clips", func(t *testing.T) {
		p := NewProject()
		tr := p.AddTrack("Keys", false)
		a := p.AddClip(tr, 0, 2, true)
		p.AddClip(tr, 2, 1, true)

		p.DuplicateSelection()

		sel := p.SelectedClips()
		require.Len(t, sel, 2)
		assert.NotContains(t, sel, a)
		first, _ := p.Clip(sel[0])
		assert.InDelta(t, 3.0, first.Position, 1e-9)
	})

	t.Run("tracks", func(t *testing.T) {
		p := NewProject()
		tr := p.AddTrack("Vox", true)
		p.AddClip(tr, 5, 2, false)

		p.DuplicateSelection()

		tracks := p.Tracks()
		require.Len(t, tracks, 2)
		assert.Equal(t, "Vox", tracks[1].Name)
		assert.True(t, tracks[1].Selected)
		assert.False(t, tracks[0].Selected)
		assert.Len(t, p.Clips(), 2)
	})
}

func TestParseProject(t *testing.T) {
	data := []byte(`
cursor: 12.5
time_selection: {start: 10, end: 14}
tracks:
  - name: Lead Vox
    selected: true
    volume: 0.8
    clips:
      - position: 10
        length: 6
        selected: true
  - clips:
      - position: 0
        length: 3
`)
	p, err := ParseProject(data)
	require.NoError(t, err)

	tracks := p.Tracks()
	require.Len(t, tracks, 2)
	assert.Equal(t, "Lead Vox", tracks[0].Name)
	assert.Equal(t, "Track 2", tracks[1].Name)
	assert.InDelta(t, 0.8, tracks[0].Volume, 1e-9)
	assert.InDelta(t, 1.0, tracks[1].Volume, 1e-9)
	assert.Len(t, p.SelectedClips(), 1)
	start, end := p.TimeSelection()
	assert.Equal(t, []float64{10, 14}, []float64{start, end})
	assert.InDelta(t, 12.5, p.Cursor(), 1e-9)
}

func TestParseProject_RejectsEmptyClip(t *testing.T) {
	_, err := ParseProject([]byte("tracks:\n  - clips:\n      - position: 1\n        length: 0\n"))
	assert.Error(t, err)
}

func TestProject_SaveAndLoad(t *testing.T) {
	p, _ := Preset("items2")
	path := filepath.Join(t.TempDir(), "project.yaml")
	require.NoError(t, p.Save(path))

	loaded, err := LoadProject(path)
	require.NoError(t, err)
	assert.Equal(t, p.Describe(), loaded.Describe())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestPresetNames(t *testing.T) {
	assert.Equal(t, []string{"items", "items2", "none", "time", "tracks"}, PresetNames())
	_, ok := Preset("bogus")
	assert.False(t, ok)
}
