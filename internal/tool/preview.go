package tool

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nadzzz/cutline/internal/selection"
)

var titleCase = cases.Title(language.English)

// Preview renders the human-readable summary of what calls will do to the
// selection in ctx:
//
//	Will:
//	- Fade in by 500ms
//	- Applied to 1 clip(s)
//	1 operation(s)
func Preview(calls []Call, ctx selection.Context) string {
	var b strings.Builder
	b.WriteString("Will:\n")
	for _, c := range calls {
		b.WriteString("- " + Describe(c) + "\n")
	}
	for _, t := range targetBullets(calls, ctx) {
		b.WriteString("- " + t + "\n")
	}
	fmt.Fprintf(&b, "%d operation(s)", len(calls))
	return b.String()
}

// Describe renders one call as a short imperative phrase.
func Describe(c Call) string {
	switch c := c.(type) {
	case FadeIn:
		return "Fade in by " + formatDuration(c.Seconds)
	case FadeOut:
		return "Fade out by " + formatDuration(c.Seconds)
	case Crossfade:
		return "Crossfade by " + formatDuration(c.Seconds)
	case CutMiddle:
		return "Cut middle " + formatDuration(c.Seconds)
	case TrimToTimeSelection:
		return "Trim selected clips to time selection"
	case SplitAtCursor:
		return "Split at play cursor"
	case Duplicate:
		return fmt.Sprintf("Duplicate %d time(s)", c.Count)
	case SetVolumeDelta:
		if c.Unit == UnitPercent {
			return "Change volume by " + formatNumber(c.Amount) + "%"
		}
		return "Change volume by " + formatNumber(c.Amount) + " dB"
	case SetVolumeSet:
		return "Set volume to " + formatNumber(c.Percent) + "%"
	case SetPan:
		switch {
		case c.Pan < 0:
			return fmt.Sprintf("Set pan to %dL", -c.Pan)
		case c.Pan > 0:
			return fmt.Sprintf("Set pan to %dR", c.Pan)
		}
		return "Set pan to center"
	case AddFX:
		return fmt.Sprintf("Add %s FX", c.Type)
	case Mute, Unmute, Solo, Unsolo:
		return titleCase.String(c.Name())
	}
	return c.Name()
}

func targetBullets(calls []Call, ctx selection.Context) []string {
	var clipsOrTime, tracks bool
	for _, c := range calls {
		switch RequirementOf(c) {
		case NeedTracks:
			tracks = true
		case NeedClipsOrTracks:
			if ctx.HasClips() {
				clipsOrTime = true
			} else {
				tracks = true
			}
		case NeedClipsOrTime, NeedClips, NeedTimeSelection:
			clipsOrTime = true
		}
	}

	var out []string
	if clipsOrTime {
		switch {
		case ctx.HasClips():
			out = append(out, fmt.Sprintf("Applied to %d clip(s)", len(ctx.Clips)))
		case ctx.HasTimeSelection():
			out = append(out, fmt.Sprintf("Range: %s to %s",
				selection.FormatTime(ctx.TimeSelection.Start), selection.FormatTime(ctx.TimeSelection.End)))
		default:
			out = append(out, "Applied to selected clip(s)")
		}
	}
	if tracks {
		if ctx.HasTracks() {
			out = append(out, fmt.Sprintf("Applied to %d track(s)", len(ctx.Tracks)))
		} else {
			out = append(out, "Applied to selected track(s)")
		}
	}
	return out
}

func formatDuration(seconds float64) string {
	if seconds < 1 {
		return fmt.Sprintf("%dms", int(math.Round(seconds*1000)))
	}
	return fmt.Sprintf("%.1fs", seconds)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
