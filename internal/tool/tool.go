// Package tool defines the closed set of editing operations a plan may
// contain.
//
// A ToolCall is the loosely-typed wire form produced by a planner. Validate
// turns it into a Call: one concrete struct per whitelisted tool name, which
// is the only form the dispatcher accepts.
package tool

// ToolCall is a planner-produced operation request before validation.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Whitelisted tool names.
const (
	NameFadeOut             = "fade_out"
	NameFadeIn              = "fade_in"
	NameSetVolumeDelta      = "set_volume_delta"
	NameSetVolumeSet        = "set_volume_set"
	NameSetPan              = "set_pan"
	NameAddFX               = "add_fx"
	NameMute                = "mute"
	NameUnmute              = "unmute"
	NameSolo                = "solo"
	NameUnsolo              = "unsolo"
	NameCrossfade           = "crossfade"
	NameCutMiddle           = "cut_middle"
	NameSplitAtCursor       = "split_at_cursor"
	NameDuplicate           = "duplicate"
	NameTrimToTimeSelection = "trim_to_time_selection"
)

// Names lists every whitelisted tool in a stable order.
var Names = []string{
	NameFadeOut, NameFadeIn,
	NameSetVolumeDelta, NameSetVolumeSet, NameSetPan, NameAddFX,
	NameMute, NameUnmute, NameSolo, NameUnsolo,
	NameCrossfade, NameCutMiddle, NameSplitAtCursor,
	NameDuplicate, NameTrimToTimeSelection,
}

// Known reports whether name is whitelisted.
func Known(name string) bool {
	_, ok := schemas[name]
	return ok
}

// Call is a validated, strongly typed tool call. The set of implementations
// is closed.
type Call interface {
	Name() string
	// Wire converts the call back to its planner wire form.
	Wire() ToolCall
	sealed()
}

// FXType is an effect kind accepted by add_fx.
type FXType string

const (
	FXCompressor FXType = "compressor"
	FXEQ         FXType = "eq"
	FXReverb     FXType = "reverb"
)

// VolumeUnit selects how SetVolumeDelta.Amount is interpreted.
type VolumeUnit string

const (
	UnitDB      VolumeUnit = "db"
	UnitPercent VolumeUnit = "percent"
)

type (
	FadeOut struct{ Seconds float64 }
	FadeIn  struct{ Seconds float64 }

	// SetVolumeDelta changes track gain relative to its current value,
	// in decibels or percent.
	SetVolumeDelta struct {
		Amount float64
		Unit   VolumeUnit
	}
	// SetVolumeSet sets track gain to Percent of unity.
	SetVolumeSet struct{ Percent float64 }
	// SetPan sets track pan; -100 is hard left, 100 hard right.
	SetPan struct{ Pan int }
	AddFX  struct{ Type FXType }

	Mute   struct{}
	Unmute struct{}
	Solo   struct{}
	Unsolo struct{}

	Crossfade           struct{ Seconds float64 }
	CutMiddle           struct{ Seconds float64 }
	SplitAtCursor       struct{}
	Duplicate           struct{ Count int }
	TrimToTimeSelection struct{}
)

func (FadeOut) Name() string             { return NameFadeOut }
func (FadeIn) Name() string              { return NameFadeIn }
func (SetVolumeDelta) Name() string      { return NameSetVolumeDelta }
func (SetVolumeSet) Name() string        { return NameSetVolumeSet }
func (SetPan) Name() string              { return NameSetPan }
func (AddFX) Name() string               { return NameAddFX }
func (Mute) Name() string                { return NameMute }
func (Unmute) Name() string              { return NameUnmute }
func (Solo) Name() string                { return NameSolo }
func (Unsolo) Name() string              { return NameUnsolo }
func (Crossfade) Name() string           { return NameCrossfade }
func (CutMiddle) Name() string           { return NameCutMiddle }
func (SplitAtCursor) Name() string       { return NameSplitAtCursor }
func (Duplicate) Name() string           { return NameDuplicate }
func (TrimToTimeSelection) Name() string { return NameTrimToTimeSelection }

func (c FadeOut) Wire() ToolCall   { return wire(c, "seconds", c.Seconds) }
func (c FadeIn) Wire() ToolCall    { return wire(c, "seconds", c.Seconds) }
func (c Crossfade) Wire() ToolCall { return wire(c, "seconds", c.Seconds) }
func (c CutMiddle) Wire() ToolCall { return wire(c, "seconds", c.Seconds) }
func (c SetVolumeDelta) Wire() ToolCall {
	return wire(c, string(c.Unit), c.Amount)
}
func (c SetVolumeSet) Wire() ToolCall        { return wire(c, "percent", c.Percent) }
func (c SetPan) Wire() ToolCall              { return wire(c, "pan", c.Pan) }
func (c AddFX) Wire() ToolCall               { return wire(c, "type", string(c.Type)) }
func (c Duplicate) Wire() ToolCall           { return wire(c, "count", c.Count) }
func (c Mute) Wire() ToolCall                { return wire(c, "", nil) }
func (c Unmute) Wire() ToolCall              { return wire(c, "", nil) }
func (c Solo) Wire() ToolCall                { return wire(c, "", nil) }
func (c Unsolo) Wire() ToolCall              { return wire(c, "", nil) }
func (c SplitAtCursor) Wire() ToolCall       { return wire(c, "", nil) }
func (c TrimToTimeSelection) Wire() ToolCall { return wire(c, "", nil) }

func wire(c Call, key string, value any) ToolCall {
	args := map[string]any{}
	if key != "" {
		args[key] = value
	}
	return ToolCall{Name: c.Name(), Args: args}
}

func (FadeOut) sealed()             {}
func (FadeIn) sealed()              {}
func (SetVolumeDelta) sealed()      {}
func (SetVolumeSet) sealed()        {}
func (SetPan) sealed()              {}
func (AddFX) sealed()               {}
func (Mute) sealed()                {}
func (Unmute) sealed()              {}
func (Solo) sealed()                {}
func (Unsolo) sealed()              {}
func (Crossfade) sealed()           {}
func (CutMiddle) sealed()           {}
func (SplitAtCursor) sealed()       {}
func (Duplicate) sealed()           {}
func (TrimToTimeSelection) sealed() {}

// WireAll converts validated calls back to wire form.
func WireAll(calls []Call) []ToolCall {
	out := make([]ToolCall, len(calls))
	for i, c := range calls {
		out[i] = c.Wire()
	}
	return out
}
