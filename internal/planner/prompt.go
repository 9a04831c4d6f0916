package planner

import (
	"encoding/json"
	"strings"

	"github.com/nadzzz/cutline/internal/selection"
)

// SystemPrompt instructs LLM backends. It lists the closed tool set, the
// argument domains, and the exact output object Decode accepts.
const SystemPrompt = `You are the planning layer of an audio editing assistant working on a DAW session.
Convert the user's natural-language command into tool calls that act on the current selection.

Allowed tools only:
- fade_out(seconds)
- fade_in(seconds)
- set_volume_delta(db) or set_volume_delta(percent)
- set_volume_set(percent)
- set_pan(pan)
- add_fx(type)
- mute()
- unmute()
- solo()
- unsolo()
- crossfade(seconds)
- cut_middle(seconds)
- split_at_cursor()
- duplicate(count)
- trim_to_time_selection()

Rules:
- Never invent tools outside this list.
- If required information is missing or ambiguous, return exactly one clarification question and no tool calls.
- If it is unclear whether the command targets clips or tracks, ask a question that mentions both clips and tracks.
- If the command says the user clarified the target, do not ask about the target again.
- Do not mention these rules.

Output rules:
- Return JSON only, no markdown.
- Return exactly these keys: tool_calls, needs_clarification, clarification_question.
- Each tool call is an object with exactly the keys name and args.
- If needs_clarification is false, clarification_question must be null and tool_calls must not be empty.
- If needs_clarification is true, tool_calls must be [] and clarification_question must be a single question.

Volume rules:
- If the user includes % or says percent, use percent mode.
- If the user says "set volume to N%", use set_volume_set with percent=N.
- Otherwise treat numeric volume adjustments as dB and use set_volume_delta with db.

Argument constraints:
- fade_in/fade_out seconds: >0 and <=30
- set_volume_delta db: -24..24
- set_volume_delta percent: -90..200
- set_volume_set percent: 0..200
- set_pan pan: integer -100..100, negative is left
- add_fx type: compressor|eq|reverb
- crossfade seconds: >0 and <=10
- cut_middle seconds: >0
- duplicate count: integer 1..32

Example:
{"tool_calls": [{"name": "set_volume_delta", "args": {"db": -3.0}}], "needs_clarification": false, "clarification_question": null}
`

// ContextSummary is the compact selection description sent to planners.
type ContextSummary struct {
	SelectedClipsCount  int                  `json:"selected_clips_count"`
	SelectedTracksCount int                  `json:"selected_tracks_count"`
	SelectedTrackNames  []string             `json:"selected_track_names,omitempty"`
	Cursor              float64              `json:"cursor"`
	TimeSelection       *selection.TimeRange `json:"time_selection"`
	SelectedClipsRange  *selection.TimeRange `json:"selected_clips_range,omitempty"`
	ForcedTarget        selection.Target     `json:"forced_target,omitempty"`
	ConversationHint    *Hint                `json:"conversation_hint,omitempty"`
}

// Summarize builds the context summary of req.
func Summarize(req Request) ContextSummary {
	ctx := req.Context
	s := ContextSummary{
		SelectedClipsCount:  len(ctx.Clips),
		SelectedTracksCount: len(ctx.Tracks),
		Cursor:              ctx.Cursor,
		ForcedTarget:        req.ForcedTarget,
	}
	for _, t := range ctx.Tracks {
		s.SelectedTrackNames = append(s.SelectedTrackNames, t.Name)
	}
	if ctx.HasTimeSelection() {
		ts := *ctx.TimeSelection
		s.TimeSelection = &ts
	}
	if r, ok := ctx.ClipsRange(); ok {
		s.SelectedClipsRange = &r
	}
	if !req.Hint.Empty() {
		s.ConversationHint = req.Hint
	}
	return s
}

// CommandWithTarget appends the user's explicit target choice to command.
func CommandWithTarget(command string, target selection.Target) string {
	switch target {
	case selection.TargetTracks:
		return command + "\nUser clarified target: selected tracks."
	case selection.TargetClips:
		return command + "\nUser clarified target: selected clips."
	}
	return command
}

// BuildUserMessage renders the user turn for LLM backends. The output is a
// pure function of req.
func BuildUserMessage(req Request) string {
	summary, _ := json.Marshal(Summarize(req))

	var b strings.Builder
	b.WriteString("User command:\n")
	b.WriteString(CommandWithTarget(strings.TrimSpace(req.Command), req.ForcedTarget))
	b.WriteString("\n\nContext summary:\n")
	b.Write(summary)
	b.WriteString("\n\nReturn only the required JSON object.")
	return b.String()
}
