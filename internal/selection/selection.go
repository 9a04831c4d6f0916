// Package selection captures the DAW's current selection into an immutable
// value used as planning input.
//
// A Context is re-captured immediately before every planning call and never
// cached across turns: the user can change the selection between actions.
package selection

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nadzzz/cutline/internal/daw"
)

// Clip is a selected clip's span in seconds.
type Clip struct {
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Length float64 `json:"length"`
}

// Track is a selected track.
type Track struct {
	Name  string `json:"name"`
	Index int    `json:"index"`
}

// TimeRange is a non-empty time selection.
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Context is the read-only selection state at capture time.
type Context struct {
	Clips         []Clip     `json:"selected_clips"`
	Tracks        []Track    `json:"selected_tracks"`
	TimeSelection *TimeRange `json:"time_selection"`
	Cursor        float64    `json:"cursor"`
}

// Capture reads the host's selection. Empty selections yield empty slices
// and a nil TimeSelection, never a zero-length range.
func Capture(r daw.Reader) Context {
	ctx := Context{
		Clips:  []Clip{},
		Tracks: []Track{},
		Cursor: r.Cursor(),
	}
	for _, id := range r.SelectedClips() {
		c, ok := r.Clip(id)
		if !ok {
			continue
		}
		ctx.Clips = append(ctx.Clips, Clip{Start: c.Position, End: c.End(), Length: c.Length})
	}
	for _, id := range r.SelectedTracks() {
		t, ok := r.Track(id)
		if !ok {
			continue
		}
		ctx.Tracks = append(ctx.Tracks, Track{Name: t.Name, Index: t.Index})
	}
	if start, end := r.TimeSelection(); end > start {
		ctx.TimeSelection = &TimeRange{Start: start, End: end}
	}
	return ctx
}

// HasClips reports whether any clip is selected.
func (c Context) HasClips() bool { return len(c.Clips) > 0 }

// HasTracks reports whether any track is selected.
func (c Context) HasTracks() bool { return len(c.Tracks) > 0 }

// HasTimeSelection reports whether a non-empty time selection exists.
func (c Context) HasTimeSelection() bool {
	return c.TimeSelection != nil && c.TimeSelection.End > c.TimeSelection.Start
}

// Narrow returns a copy scoped to a forced target: choosing tracks hides the
// clip selection from the planner and vice versa.
func (c Context) Narrow(target Target) Context {
	out := Context{
		Clips:  slices.Clone(c.Clips),
		Tracks: slices.Clone(c.Tracks),
		Cursor: c.Cursor,
	}
	if c.TimeSelection != nil {
		ts := *c.TimeSelection
		out.TimeSelection = &ts
	}
	switch target {
	case TargetTracks:
		out.Clips = []Clip{}
	case TargetClips:
		out.Tracks = []Track{}
	}
	return out
}

// ClipsRange returns the span covered by the selected clips.
func (c Context) ClipsRange() (TimeRange, bool) {
	if len(c.Clips) == 0 {
		return TimeRange{}, false
	}
	r := TimeRange{Start: c.Clips[0].Start, End: c.Clips[0].End}
	for _, clip := range c.Clips[1:] {
		r.Start = min(r.Start, clip.Start)
		r.End = max(r.End, clip.End)
	}
	return r, true
}

// Summary renders a one-line description for logs and the console.
func (c Context) Summary() string {
	ts := "none"
	if c.HasTimeSelection() {
		ts = FormatTime(c.TimeSelection.Start) + " -> " + FormatTime(c.TimeSelection.End)
	}
	return fmt.Sprintf("items=%d, tracks=%d, time_selection=%s, cursor=%s",
		len(c.Clips), len(c.Tracks), ts, FormatTime(c.Cursor))
}

// FormatTime renders seconds as mm:ss.mmm.
func FormatTime(seconds float64) string {
	m := int(seconds / 60)
	s := seconds - float64(60*m)
	return fmt.Sprintf("%02d:%06.3f", m, s)
}

// Target is the object class a command applies to.
type Target string

const (
	TargetNone   Target = ""
	TargetClips  Target = "clips"
	TargetTracks Target = "tracks"
)

// ParseTarget normalizes "clip", "clips", "track" and "tracks" (any case).
// Anything else yields TargetNone.
func ParseTarget(s string) Target {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clip", "clips":
		return TargetClips
	case "track", "tracks":
		return TargetTracks
	}
	return TargetNone
}
