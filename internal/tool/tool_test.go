package tool

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/cutline/internal/selection"
)

func TestValidate_Accepts(t *testing.T) {
	calls, err := Validate([]ToolCall{
		{Name: "fade_out", Args: map[string]any{"seconds": 0.5}},
		{Name: "set_volume_delta", Args: map[string]any{"percent": -50.0}},
		{Name: "set_volume_delta", Args: map[string]any{"db": json.Number("-3")}},
		{Name: "set_pan", Args: map[string]any{"pan": -30.0}},
		{Name: "add_fx", Args: map[string]any{"type": "EQ"}},
		{Name: "duplicate", Args: map[string]any{"count": 2}},
		{Name: "mute", Args: nil},
		{Name: "trim_to_time_selection", Args: map[string]any{}},
	})
	require.NoError(t, err)

	assert.Equal(t, []Call{
		FadeOut{Seconds: 0.5},
		SetVolumeDelta{Amount: -50, Unit: UnitPercent},
		SetVolumeDelta{Amount: -3, Unit: UnitDB},
		SetPan{Pan: -30},
		AddFX{Type: FXEQ},
		Duplicate{Count: 2},
		Mute{},
		TrimToTimeSelection{},
	}, calls)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		call   ToolCall
		reason string
	}{
		{"unknown tool", ToolCall{Name: "delete_track", Args: map[string]any{}}, `unsupported tool "delete_track"`},
		{"missing arg", ToolCall{Name: "fade_in", Args: map[string]any{}}, "args must be {seconds}"},
		{"extra arg", ToolCall{Name: "mute", Args: map[string]any{"track": 1.0}}, "args must be {}"},
		{"db and percent", ToolCall{Name: "set_volume_delta", Args: map[string]any{"db": 1.0, "percent": 1.0}}, "args must be {db} or {percent}"},
		{"string seconds", ToolCall{Name: "fade_out", Args: map[string]any{"seconds": "0.5"}}, "seconds must be a number"},
		{"bool seconds", ToolCall{Name: "fade_out", Args: map[string]any{"seconds": true}}, "seconds must be a number"},
		{"zero seconds", ToolCall{Name: "fade_out", Args: map[string]any{"seconds": 0.0}}, "seconds must be > 0 and <= 30"},
		{"long crossfade", ToolCall{Name: "crossfade", Args: map[string]any{"seconds": 11.0}}, "seconds must be > 0 and <= 10"},
		{"negative cut", ToolCall{Name: "cut_middle", Args: map[string]any{"seconds": -1.0}}, "seconds must be > 0"},
		{"db range", ToolCall{Name: "set_volume_delta", Args: map[string]any{"db": 30.0}}, "db must be between -24 and 24"},
		{"percent set range", ToolCall{Name: "set_volume_set", Args: map[string]any{"percent": -50.0}}, "percent must be between 0 and 200"},
		{"fractional pan", ToolCall{Name: "set_pan", Args: map[string]any{"pan": 12.5}}, "pan must be an integer"},
		{"pan range", ToolCall{Name: "set_pan", Args: map[string]any{"pan": 101.0}}, "pan must be between -100 and 100"},
		{"fx type", ToolCall{Name: "add_fx", Args: map[string]any{"type": "chorus"}}, "type must be one of"},
		{"zero count", ToolCall{Name: "duplicate", Args: map[string]any{"count": 0.0}}, "count must be between 1 and 32"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls, err := Validate([]ToolCall{tt.call})
			assert.Nil(t, calls)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "want *ValidationError, got %v", err)
			assert.Equal(t, 0, verr.Index)
			assert.Contains(t, verr.Reason, tt.reason)
		})
	}
}

func TestValidate_NeverDropsInvalidCalls(t *testing.T) {
	calls, err := Validate([]ToolCall{
		{Name: "mute", Args: map[string]any{}},
		{Name: "delete_track", Args: map[string]any{}},
		{Name: "solo", Args: map[string]any{}},
	})
	assert.Nil(t, calls)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 1, verr.Index)
	assert.Equal(t, "delete_track", verr.Tool)
}

func TestValidate_EmptyPlan(t *testing.T) {
	_, err := Validate(nil)
	assert.Error(t, err)
}

func TestWireRoundTrip(t *testing.T) {
	in := []Call{
		SetVolumeDelta{Amount: 3, Unit: UnitDB},
		SetPan{Pan: 30},
		Unsolo{},
	}
	out, err := Validate(WireAll(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCheckSelection(t *testing.T) {
	clips := selection.Context{Clips: []selection.Clip{{Start: 0, End: 1, Length: 1}}}
	tracks := selection.Context{Tracks: []selection.Track{{Name: "Vox", Index: 1}}}
	timeOnly := selection.Context{TimeSelection: &selection.TimeRange{Start: 1, End: 2}}

	tests := []struct {
		name string
		call Call
		ctx  selection.Context
		need Requirement
	}{
		{"fade with clips", FadeIn{Seconds: 1}, clips, NeedNothing},
		{"fade with time", FadeIn{Seconds: 1}, timeOnly, NeedNothing},
		{"fade with tracks", FadeIn{Seconds: 1}, tracks, NeedClipsOrTime},
		{"volume with clips", SetVolumeDelta{Amount: -3, Unit: UnitDB}, clips, NeedTracks},
		{"volume with tracks", SetVolumeDelta{Amount: -3, Unit: UnitDB}, tracks, NeedNothing},
		{"duplicate with time", Duplicate{Count: 1}, timeOnly, NeedClipsOrTracks},
		{"trim with clips", TrimToTimeSelection{}, clips, NeedTimeSelection},
		{"crossfade with time", Crossfade{Seconds: 1}, timeOnly, NeedClips},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSelection([]Call{tt.call}, tt.ctx)
			if tt.need == NeedNothing {
				assert.NoError(t, err)
				return
			}
			var serr *SelectionError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.need, serr.Need)
		})
	}
}

func TestSelectionError_Involves(t *testing.T) {
	trackErr := &SelectionError{Tool: "mute", Need: NeedTracks}
	assert.True(t, trackErr.Involves(selection.TargetTracks))
	assert.False(t, trackErr.Involves(selection.TargetClips))
	assert.Equal(t, "mute requires selected tracks", trackErr.Error())

	clipErr := &SelectionError{Tool: "fade_in", Need: NeedClipsOrTime}
	assert.True(t, clipErr.Involves(selection.TargetClips))
	assert.False(t, clipErr.Involves(selection.TargetTracks))
}

func TestSuggestClarification(t *testing.T) {
	clips := selection.Context{Clips: []selection.Clip{{Start: 0, End: 1, Length: 1}}}
	err := &SelectionError{Tool: "set_volume_delta", Need: NeedTracks}

	assert.Equal(t, TargetQuestion, SuggestClarification(err, clips))
	assert.Empty(t, SuggestClarification(err, selection.Context{}), "nothing selected, nothing to redirect to")
	assert.Empty(t, SuggestClarification(&SelectionError{Need: NeedTimeSelection}, clips))
}

func TestPreview(t *testing.T) {
	t.Run("clips", func(t *testing.T) {
		ctx := selection.Context{Clips: []selection.Clip{{Start: 42.1, End: 45.1, Length: 3}}}
		got := Preview([]Call{FadeIn{Seconds: 0.5}, FadeOut{Seconds: 2}}, ctx)
		assert.Equal(t, "Will:\n- Fade in by 500ms\n- Fade out by 2.0s\n- Applied to 1 clip(s)\n2 operation(s)", got)
	})

	t.Run("time selection", func(t *testing.T) {
		ctx := selection.Context{TimeSelection: &selection.TimeRange{Start: 42.1, End: 44.1}}
		got := Preview([]Call{SplitAtCursor{}}, ctx)
		assert.Equal(t, "Will:\n- Split at play cursor\n- Range: 00:42.100 to 00:44.100\n1 operation(s)", got)
	})

	t.Run("tracks", func(t *testing.T) {
		ctx := selection.Context{Tracks: []selection.Track{{Name: "Vox", Index: 1}, {Name: "Gtr", Index: 2}}}
		got := Preview([]Call{
			SetPan{Pan: -30},
			SetVolumeDelta{Amount: -3, Unit: UnitDB},
			Mute{},
			AddFX{Type: FXReverb},
		}, ctx)
		assert.Equal(t, "Will:\n- Set pan to 30L\n- Change volume by -3 dB\n- Mute\n- Add reverb FX\n- Applied to 2 track(s)\n4 operation(s)", got)
	})
}
