// Package rules is an offline Planner that understands a fixed command
// grammar ("fade in 500ms", "volume -6db", "pan 30L", "add eq", ...). It
// needs no network and is the default backend for the console and tests.
package rules

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/nadzzz/cutline/internal/intent"
	"github.com/nadzzz/cutline/internal/planner"
	"github.com/nadzzz/cutline/internal/tool"
)

// Examples lists commands the grammar understands.
var Examples = []string{
	"fade in 500ms",
	"fade out 2s",
	"crossfade 0.5s",
	"cut middle 1s",
	"trim to time selection",
	"split at cursor",
	"duplicate 4",
	"volume +3db",
	"lower volume by 20%",
	"set volume to 50%",
	"pan 30L",
	"mute / unmute / solo / unsolo",
	"add eq / add compressor / add reverb",
}

var (
	timeRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(ms|milliseconds?|s|secs?|seconds?)\b`)
	numberRe  = regexp.MustCompile(`[+-]?\d+(?:\.\d+)?`)
	dbRe      = regexp.MustCompile(`([+-]?\d+(?:\.\d+)?)\s*db\b`)
	percentRe = regexp.MustCompile(`([+-]?\d+(?:\.\d+)?)\s*(?:%|percent)`)
	panSideRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(l|r|left|right)\b`)
	countRe   = regexp.MustCompile(`(\d+)`)
	setToRe   = regexp.MustCompile(`\bset\b.*\bto\b|\bto\s+\d`)
)

// Planner is the rule-based backend.
type Planner struct {
	classifier intent.Classifier
}

// New returns a rules planner using the default intent table.
func New() *Planner {
	return &Planner{classifier: intent.DefaultRules}
}

func (p *Planner) Name() string { return "rules" }

// Plan never returns an error: every outcome is a Response.
func (p *Planner) Plan(_ context.Context, req planner.Request) (*planner.Response, error) {
	cmd := normalize(req.Command)
	if cmd == "" {
		return planner.Failed("Enter a command."), nil
	}

	in := p.classifier.FromText(cmd)
	var resp *planner.Response
	switch in.Kind {
	case intent.KindVolume:
		resp = volume(cmd, in.Phrase)
	case intent.KindFadeIn:
		resp = timed(cmd, "fade in", func(s float64) tool.ToolCall { return call(tool.NameFadeIn, "seconds", s) })
	case intent.KindFadeOut:
		resp = timed(cmd, "fade out", func(s float64) tool.ToolCall { return call(tool.NameFadeOut, "seconds", s) })
	case intent.KindCrossfade:
		resp = timed(cmd, "crossfade", func(s float64) tool.ToolCall { return call(tool.NameCrossfade, "seconds", s) })
	case intent.KindCutMiddle:
		resp = timed(cmd, "cut", func(s float64) tool.ToolCall { return call(tool.NameCutMiddle, "seconds", s) })
	case intent.KindDuplicate:
		resp = duplicate(cmd)
	case intent.KindPan:
		resp = pan(cmd)
	default:
		resp = other(cmd)
	}
	return resp, nil
}

func volume(cmd, phrase string) *planner.Response {
	sign := 1.0
	if phrase == "lower volume" {
		sign = -1
	}
	directed := phrase != "adjust volume"

	if m := percentRe.FindStringSubmatch(cmd); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		if setToRe.MatchString(cmd) && !directed {
			return planner.Planned(call(tool.NameSetVolumeSet, "percent", v))
		}
		if directed {
			v = sign * math.Abs(v)
		}
		return planner.Planned(call(tool.NameSetVolumeDelta, "percent", v))
	}

	m := dbRe.FindStringSubmatch(cmd)
	if m == nil && directed {
		m = numberRe.FindStringSubmatch(cmd)
		if m != nil {
			m = []string{m[0], m[0]}
		}
	}
	if m == nil {
		return planner.Clarify("By how many dB should the volume change?")
	}
	v, _ := strconv.ParseFloat(m[1], 64)
	if directed {
		v = sign * math.Abs(v)
	}
	return planner.Planned(call(tool.NameSetVolumeDelta, "db", v))
}

func timed(cmd, what string, build func(float64) tool.ToolCall) *planner.Response {
	if m := timeRe.FindStringSubmatch(cmd); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		if strings.HasPrefix(m[2], "m") {
			v /= 1000
		}
		return planner.Planned(build(v))
	}
	if m := numberRe.FindString(cmd); m != "" {
		v, _ := strconv.ParseFloat(m, 64)
		return planner.Planned(build(v))
	}
	return planner.Clarify("How long should the " + what + " be?")
}

func duplicate(cmd string) *planner.Response {
	count := 1
	if m := countRe.FindStringSubmatch(cmd); m != nil {
		count, _ = strconv.Atoi(m[1])
	}
	return planner.Planned(call(tool.NameDuplicate, "count", count))
}

func pan(cmd string) *planner.Response {
	if strings.Contains(cmd, "center") || strings.Contains(cmd, "centre") {
		return planner.Planned(call(tool.NameSetPan, "pan", 0))
	}
	if m := panSideRe.FindStringSubmatch(cmd); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		if strings.HasPrefix(m[2], "l") {
			v = -v
		}
		return planner.Planned(call(tool.NameSetPan, "pan", v))
	}
	if m := numberRe.FindString(cmd); m != "" {
		v, _ := strconv.ParseFloat(m, 64)
		return planner.Planned(call(tool.NameSetPan, "pan", v))
	}
	return planner.Clarify("Where should the pan go, for example 30L or 20R?")
}

func other(cmd string) *planner.Response {
	words := strings.Fields(cmd)
	has := func(w string) bool {
		for _, x := range words {
			if x == w {
				return true
			}
		}
		return false
	}
	switch {
	case has("unmute"):
		return planner.Planned(call(tool.NameUnmute, "", nil))
	case has("mute"):
		return planner.Planned(call(tool.NameMute, "", nil))
	case has("unsolo"):
		return planner.Planned(call(tool.NameUnsolo, "", nil))
	case has("solo"):
		return planner.Planned(call(tool.NameSolo, "", nil))
	case strings.Contains(cmd, "split"):
		return planner.Planned(call(tool.NameSplitAtCursor, "", nil))
	case strings.Contains(cmd, "trim"):
		return planner.Planned(call(tool.NameTrimToTimeSelection, "", nil))
	}
	for _, fx := range []string{"eq", "compressor", "reverb"} {
		if has(fx) {
			return planner.Planned(call(tool.NameAddFX, "type", fx))
		}
	}
	return planner.Failed("Unsupported command. Try: %s", strings.Join(Examples, "; "))
}

func call(name, key string, value any) tool.ToolCall {
	args := map[string]any{}
	if key != "" {
		args[key] = value
	}
	return tool.ToolCall{Name: name, Args: args}
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
