package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/cutline/internal/daw"
	"github.com/nadzzz/cutline/internal/tool"
)

const tol = 1e-9

func clipsProject(t *testing.T, spans ...[2]float64) (*daw.Project, []daw.ClipID) {
	t.Helper()
	p := daw.NewProject()
	tr := p.AddTrack("Audio", false)
	ids := make([]daw.ClipID, len(spans))
	for i, s := range spans {
		ids[i] = p.AddClip(tr, s[0], s[1], true)
	}
	return p, ids
}

func tracksProject(t *testing.T, names ...string) (*daw.Project, []daw.TrackID) {
	t.Helper()
	p := daw.NewProject()
	ids := make([]daw.TrackID, len(names))
	for i, n := range names {
		ids[i] = p.AddTrack(n, true)
	}
	return p, ids
}

func TestExecute_NonPositiveFadesAreNoOps(t *testing.T) {
	for _, seconds := range []float64{0, -1} {
		p, ids := clipsProject(t, [2]float64{0, 4}, [2]float64{5, 2})
		p.SetFadeOut(ids[0], 0.25)

		n, err := New(p).Execute("fade", []tool.Call{tool.FadeOut{Seconds: seconds}, tool.FadeIn{Seconds: seconds}})
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		a, _ := p.Clip(ids[0])
		b, _ := p.Clip(ids[1])
		assert.InDelta(t, 0.25, a.FadeOut, tol)
		assert.InDelta(t, 0, a.FadeIn, tol)
		assert.InDelta(t, 0, b.FadeOut, tol)
	}
}

func TestExecute_FadeOutClampsToClipLength(t *testing.T) {
	p, ids := clipsProject(t, [2]float64{42.1, 3}, [2]float64{50, 0.3})

	n, err := New(p).Execute("fade this out by 500 ms", []tool.Call{tool.FadeOut{Seconds: 0.5}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	long, _ := p.Clip(ids[0])
	short, _ := p.Clip(ids[1])
	assert.InDelta(t, 0.5, long.FadeOut, tol)
	assert.InDelta(t, 0.3, short.FadeOut, tol)
}

func TestExecute_FadeFallsBackToTimeSelection(t *testing.T) {
	p := daw.NewProject()
	tr := p.AddTrack("Audio", false)
	inside := p.AddClip(tr, 12, 2, false)
	outside := p.AddClip(tr, 30, 2, false)
	p.SetTimeSelection(10, 20)

	n, err := New(p).Execute("fade", []tool.Call{tool.FadeIn{Seconds: 1}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	c, _ := p.Clip(inside)
	assert.InDelta(t, 1, c.FadeIn, tol)
	c, _ = p.Clip(outside)
	assert.InDelta(t, 0, c.FadeIn, tol)
}

func TestExecute_GainRoundTrip(t *testing.T) {
	for _, db := range []float64{-24, -6, -0.5, 0, 3, 12.25, 24} {
		p, ids := tracksProject(t, "Vox")
		p.SetTrackVolume(ids[0], 0.7)

		ex := New(p)
		_, err := ex.Execute("up", []tool.Call{tool.SetVolumeDelta{Amount: db, Unit: tool.UnitDB}})
		require.NoError(t, err)
		_, err = ex.Execute("down", []tool.Call{tool.SetVolumeDelta{Amount: -db, Unit: tool.UnitDB}})
		require.NoError(t, err)

		st, _ := p.Track(ids[0])
		assert.InDelta(t, 0.7, st.Volume, 1e-12, "db=%v", db)
	}
}

func TestExecute_VolumeSemantics(t *testing.T) {
	t.Run("db", func(t *testing.T) {
		p, ids := tracksProject(t, "Vox", "Gtr")
		n, err := New(p).Execute("vol", []tool.Call{tool.SetVolumeDelta{Amount: -6, Unit: tool.UnitDB}})
		require.NoError(t, err)
		assert.Equal(t, 2, n, "broadcast to every selected track")
		for _, id := range ids {
			st, _ := p.Track(id)
			assert.InDelta(t, DBToGain(-6), st.Volume, tol)
			assert.InDelta(t, -6, GainToDB(st.Volume), 1e-9)
		}
	})

	t.Run("percent delta clamps at zero", func(t *testing.T) {
		p, ids := tracksProject(t, "Vox")
		_, err := New(p).Execute("vol", []tool.Call{tool.SetVolumeDelta{Amount: -150, Unit: tool.UnitPercent}})
		require.NoError(t, err)
		st, _ := p.Track(ids[0])
		assert.InDelta(t, 0, st.Volume, tol)
	})

	t.Run("percent set clamps at zero", func(t *testing.T) {
		p, ids := tracksProject(t, "Vox")
		_, err := New(p).Execute("vol", []tool.Call{tool.SetVolumeSet{Percent: -50}})
		require.NoError(t, err)
		st, _ := p.Track(ids[0])
		assert.Equal(t, 0.0, st.Volume)
	})

	t.Run("percent set", func(t *testing.T) {
		p, ids := tracksProject(t, "Vox")
		_, err := New(p).Execute("vol", []tool.Call{tool.SetVolumeSet{Percent: 50}})
		require.NoError(t, err)
		st, _ := p.Track(ids[0])
		assert.InDelta(t, 0.5, st.Volume, tol)
	})
}

func TestExecute_TrackFlagsPanAndFX(t *testing.T) {
	p, ids := tracksProject(t, "Drums")

	n, err := New(p).Execute("mix", []tool.Call{
		tool.SetPan{Pan: -30},
		tool.Mute{},
		tool.Solo{},
		tool.AddFX{Type: tool.FXCompressor},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	st, _ := p.Track(ids[0])
	assert.InDelta(t, -0.3, st.Pan, tol)
	assert.True(t, st.Mute)
	assert.True(t, st.Solo)
	assert.Equal(t, []string{"ReaComp"}, st.FX)

	_, err = New(p).Execute("unmix", []tool.Call{tool.Unmute{}, tool.Unsolo{}})
	require.NoError(t, err)
	st, _ = p.Track(ids[0])
	assert.False(t, st.Mute)
	assert.False(t, st.Solo)
}

func TestExecute_CrossfadeArity(t *testing.T) {
	t.Run("one clip", func(t *testing.T) {
		p, ids := clipsProject(t, [2]float64{0, 4})
		n, err := New(p).Execute("xf", []tool.Call{tool.Crossfade{Seconds: 0.5}})
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		c, _ := p.Clip(ids[0])
		assert.InDelta(t, 0, c.FadeOut, tol)
	})

	t.Run("three clips", func(t *testing.T) {
		p, ids := clipsProject(t, [2]float64{0, 4}, [2]float64{5, 4}, [2]float64{10, 4})
		n, err := New(p).Execute("xf", []tool.Call{tool.Crossfade{Seconds: 0.5}})
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		for i, id := range ids {
			c, _ := p.Clip(id)
			assert.InDelta(t, []float64{0, 5, 10}[i], c.Position, tol)
			assert.InDelta(t, 0, c.FadeIn, tol)
			assert.InDelta(t, 0, c.FadeOut, tol)
		}
	})

	t.Run("two clips", func(t *testing.T) {
		p, ids := clipsProject(t, [2]float64{0, 4}, [2]float64{5, 4})
		n, err := New(p).Execute("xf", []tool.Call{tool.Crossfade{Seconds: 0.5}})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		first, _ := p.Clip(ids[0])
		second, _ := p.Clip(ids[1])
		assert.InDelta(t, 3.5, second.Position, tol)
		assert.InDelta(t, 0.5, first.FadeOut, tol)
		assert.InDelta(t, 0.5, second.FadeIn, tol)
	})
}

func TestExecute_CutMiddle(t *testing.T) {
	t.Run("removes centred segment and closes gap", func(t *testing.T) {
		p, ids := clipsProject(t, [2]float64{10, 10})
		n, err := New(p).Execute("cut", []tool.Call{tool.CutMiddle{Seconds: 2}})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		clips := p.Clips()
		require.Len(t, clips, 2)
		assert.Equal(t, ids[0], clips[0].ID)
		assert.InDelta(t, 10, clips[0].Position, tol)
		assert.InDelta(t, 4, clips[0].Length, tol)
		assert.InDelta(t, 14, clips[1].Position, tol)
		assert.InDelta(t, 4, clips[1].Length, tol)
		assert.InDelta(t, 6, clips[1].TakeOffset, tol)
	})

	t.Run("clamps to length minus a millisecond", func(t *testing.T) {
		p, _ := clipsProject(t, [2]float64{0, 10})
		n, err := New(p).Execute("cut", []tool.Call{tool.CutMiddle{Seconds: 20}})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		total := 0.0
		for _, c := range p.Clips() {
			total += c.Length
		}
		assert.InDelta(t, minRemainder, total, 1e-9)
	})
}

func TestExecute_SplitAtCursor(t *testing.T) {
	t.Run("selected clips", func(t *testing.T) {
		p, _ := clipsProject(t, [2]float64{40, 8})
		p.SetCursor(43)
		n, err := New(p).Execute("split", []tool.Call{tool.SplitAtCursor{}})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Len(t, p.Clips(), 2)
	})

	t.Run("falls back to clips under cursor in time selection", func(t *testing.T) {
		p, _ := daw.Preset("time")
		n, err := New(p).Execute("split", []tool.Call{tool.SplitAtCursor{}})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Len(t, p.Clips(), 2)
	})

	t.Run("cursor outside time selection", func(t *testing.T) {
		p, _ := daw.Preset("time")
		p.SetCursor(60)
		n, err := New(p).Execute("split", []tool.Call{tool.SplitAtCursor{}})
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}

func TestExecute_TrimToTimeSelection(t *testing.T) {
	p := daw.NewProject()
	tr := p.AddTrack("Audio", false)
	straddle := p.AddClip(tr, 8, 6, true)
	outside := p.AddClip(tr, 30, 2, true)
	p.SetTimeSelection(10, 12)

	n, err := New(p).Execute("trim", []tool.Call{tool.TrimToTimeSelection{}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	c, ok := p.Clip(straddle)
	require.True(t, ok)
	assert.InDelta(t, 10, c.Position, tol)
	assert.InDelta(t, 2, c.Length, tol)
	assert.InDelta(t, 2, c.TakeOffset, tol)

	_, ok = p.Clip(outside)
	assert.False(t, ok, "clips fully outside the selection are deleted")
}

func TestExecute_Duplicate(t *testing.T) {
	p, _ := clipsProject(t, [2]float64{0, 2})
	n, err := New(p).Execute("dup", []tool.Call{tool.Duplicate{Count: 3}})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, p.Clips(), 4)

	n, err = New(p).Execute("dup", []tool.Call{tool.Duplicate{Count: 0}})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestExecute_OneUndoStepPerBatch(t *testing.T) {
	p, ids := tracksProject(t, "Vox")

	_, err := New(p).Execute("lower volume by 3", []tool.Call{
		tool.SetVolumeDelta{Amount: -3, Unit: tool.UnitDB},
		tool.SetPan{Pan: 20},
		tool.Mute{},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, p.UndoDepth())

	name, ok := p.Undo()
	require.True(t, ok)
	assert.Equal(t, "lower volume by 3", name)
	st, _ := p.Track(ids[0])
	assert.InDelta(t, 1, st.Volume, tol)
	assert.InDelta(t, 0, st.Pan, tol)
	assert.False(t, st.Mute)
}

// reentrantHost calls back into the executor from inside the transaction.
type reentrantHost struct {
	*daw.Project
	ex  *Executor
	err error
}

func (h *reentrantHost) BeginUndo() {
	h.Project.BeginUndo()
	_, h.err = h.ex.Execute("nested", nil)
}

func TestExecute_NotReentrant(t *testing.T) {
	h := &reentrantHost{Project: daw.NewProject()}
	h.ex = New(h)

	_, err := h.ex.Execute("outer", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, h.err, ErrReentrant)

	_, err = h.ex.Execute("again", nil)
	assert.NoError(t, err, "executor is released after the batch")
}
