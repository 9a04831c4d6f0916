package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/cutline/internal/planner"
	"github.com/nadzzz/cutline/internal/tool"
)

func TestPlanner_Plans(t *testing.T) {
	tests := []struct {
		command string
		want    tool.ToolCall
	}{
		{"fade in 500ms", tool.ToolCall{Name: "fade_in", Args: map[string]any{"seconds": 0.5}}},
		{"fade this out by 500 ms", tool.ToolCall{Name: "fade_out", Args: map[string]any{"seconds": 0.5}}},
		{"Fade out 2s", tool.ToolCall{Name: "fade_out", Args: map[string]any{"seconds": 2.0}}},
		{"fade out by 2 seconds", tool.ToolCall{Name: "fade_out", Args: map[string]any{"seconds": 2.0}}},
		{"crossfade 0.5s", tool.ToolCall{Name: "crossfade", Args: map[string]any{"seconds": 0.5}}},
		{"cut middle 1s", tool.ToolCall{Name: "cut_middle", Args: map[string]any{"seconds": 1.0}}},
		{"volume +3db", tool.ToolCall{Name: "set_volume_delta", Args: map[string]any{"db": 3.0}}},
		{"volume -6db", tool.ToolCall{Name: "set_volume_delta", Args: map[string]any{"db": -6.0}}},
		{"lower volume by 3", tool.ToolCall{Name: "set_volume_delta", Args: map[string]any{"db": -3.0}}},
		{"raise volume by 2 db", tool.ToolCall{Name: "set_volume_delta", Args: map[string]any{"db": 2.0}}},
		{"lower volume by 20%", tool.ToolCall{Name: "set_volume_delta", Args: map[string]any{"percent": -20.0}}},
		{"set volume to 50%", tool.ToolCall{Name: "set_volume_set", Args: map[string]any{"percent": 50.0}}},
		{"pan 30L", tool.ToolCall{Name: "set_pan", Args: map[string]any{"pan": -30.0}}},
		{"pan 20 right", tool.ToolCall{Name: "set_pan", Args: map[string]any{"pan": 20.0}}},
		{"pan to center", tool.ToolCall{Name: "set_pan", Args: map[string]any{"pan": 0}}},
		{"duplicate 4", tool.ToolCall{Name: "duplicate", Args: map[string]any{"count": 4}}},
		{"duplicate this", tool.ToolCall{Name: "duplicate", Args: map[string]any{"count": 1}}},
		{"unmute", tool.ToolCall{Name: "unmute", Args: map[string]any{}}},
		{"mute the drums", tool.ToolCall{Name: "mute", Args: map[string]any{}}},
		{"solo", tool.ToolCall{Name: "solo", Args: map[string]any{}}},
		{"add compressor", tool.ToolCall{Name: "add_fx", Args: map[string]any{"type": "compressor"}}},
		{"split at cursor", tool.ToolCall{Name: "split_at_cursor", Args: map[string]any{}}},
		{"trim to time selection", tool.ToolCall{Name: "trim_to_time_selection", Args: map[string]any{}}},
	}
	p := New()
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			resp, err := p.Plan(context.Background(), planner.Request{Command: tt.command})
			require.NoError(t, err)
			require.Equal(t, planner.KindPlan, resp.Kind, "got %+v", resp)
			assert.Equal(t, []tool.ToolCall{tt.want}, resp.ToolCalls)

			_, err = tool.Validate(resp.ToolCalls)
			assert.NoError(t, err)
		})
	}
}

func TestPlanner_AsksForMissingNumbers(t *testing.T) {
	p := New()
	for _, cmd := range []string{"fade out", "lower the volume", "pan it"} {
		resp, err := p.Plan(context.Background(), planner.Request{Command: cmd})
		require.NoError(t, err)
		assert.Equal(t, planner.KindClarification, resp.Kind, cmd)
		assert.NotEmpty(t, resp.Question)
	}
}

func TestPlanner_Unsupported(t *testing.T) {
	p := New()
	resp, err := p.Plan(context.Background(), planner.Request{Command: "make it sound like the eighties"})
	require.NoError(t, err)
	assert.Equal(t, planner.KindError, resp.Kind)
	assert.Contains(t, resp.Error, "Unsupported command.")

	resp, _ = p.Plan(context.Background(), planner.Request{Command: "  "})
	assert.Equal(t, planner.KindError, resp.Kind)
}
