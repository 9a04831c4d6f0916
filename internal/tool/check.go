package tool

import (
	"fmt"

	"github.com/nadzzz/cutline/internal/selection"
)

// Requirement is the selection a tool needs to have anything to act on.
type Requirement int

const (
	NeedNothing Requirement = iota
	NeedClipsOrTime
	NeedTracks
	NeedClipsOrTracks
	NeedTimeSelection
	NeedClips
)

func (r Requirement) String() string {
	switch r {
	case NeedClipsOrTime:
		return "selected clips or a time selection"
	case NeedTracks:
		return "selected tracks"
	case NeedClipsOrTracks:
		return "selected clips or selected tracks"
	case NeedTimeSelection:
		return "a time selection"
	case NeedClips:
		return "selected clips"
	}
	return "nothing"
}

// RequirementOf returns what call needs selected.
func RequirementOf(call Call) Requirement {
	switch call.(type) {
	case FadeIn, FadeOut, CutMiddle, SplitAtCursor:
		return NeedClipsOrTime
	case SetVolumeDelta, SetVolumeSet, SetPan, AddFX, Mute, Unmute, Solo, Unsolo:
		return NeedTracks
	case Duplicate:
		return NeedClipsOrTracks
	case TrimToTimeSelection:
		return NeedTimeSelection
	case Crossfade:
		return NeedClips
	}
	return NeedNothing
}

// SelectionError reports a call whose required selection is missing.
type SelectionError struct {
	Index int
	Tool  string
	Need  Requirement
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("%s requires %s", e.Tool, e.Need)
}

// Involves reports whether the missing selection is of the given target
// class.
func (e *SelectionError) Involves(t selection.Target) bool {
	switch t {
	case selection.TargetTracks:
		return e.Need == NeedTracks || e.Need == NeedClipsOrTracks
	case selection.TargetClips:
		return e.Need == NeedClips || e.Need == NeedClipsOrTime || e.Need == NeedClipsOrTracks
	}
	return false
}

// CheckSelection verifies that ctx holds what each call needs. It returns
// the first unmet requirement as a *SelectionError.
func CheckSelection(calls []Call, ctx selection.Context) error {
	for i, c := range calls {
		need := RequirementOf(c)
		ok := true
		switch need {
		case NeedClipsOrTime:
			ok = ctx.HasClips() || ctx.HasTimeSelection()
		case NeedTracks:
			ok = ctx.HasTracks()
		case NeedClipsOrTracks:
			ok = ctx.HasClips() || ctx.HasTracks()
		case NeedTimeSelection:
			ok = ctx.HasTimeSelection()
		case NeedClips:
			ok = ctx.HasClips()
		}
		if !ok {
			return &SelectionError{Index: i, Tool: c.Name(), Need: need}
		}
	}
	return nil
}

// TargetQuestion is the clarification asked when a plan needs a selection the
// user does not have but some other selection exists. It names both clips
// and tracks so the caller offers a target choice.
const TargetQuestion = "Should I apply this to the selected clips or the selected tracks?"

// SuggestClarification turns a selection failure into a clarification
// question when the user has something selected to redirect the command
// to. It returns "" when no question makes sense.
func SuggestClarification(err *SelectionError, ctx selection.Context) string {
	if err == nil || err.Need == NeedTimeSelection {
		return ""
	}
	if !ctx.HasClips() && !ctx.HasTracks() {
		return ""
	}
	return TargetQuestion
}
