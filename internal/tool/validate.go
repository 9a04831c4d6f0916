package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
)

// ValidationError reports the first tool call that failed validation.
type ValidationError struct {
	Index  int
	Tool   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Tool == "" {
		return fmt.Sprintf("tool call %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("tool call %d (%s): %s", e.Index, e.Tool, e.Reason)
}

// schema decodes the args of one tool into a typed Call. keys lists the
// accepted argument key sets; a call must match one of them exactly.
type schema struct {
	keys   [][]string
	decode func(args map[string]any) (Call, string)
}

var schemas = map[string]schema{
	NameFadeOut: {keys: [][]string{{"seconds"}}, decode: func(a map[string]any) (Call, string) {
		s, reason := seconds(a, 30)
		return FadeOut{Seconds: s}, reason
	}},
	NameFadeIn: {keys: [][]string{{"seconds"}}, decode: func(a map[string]any) (Call, string) {
		s, reason := seconds(a, 30)
		return FadeIn{Seconds: s}, reason
	}},
	NameCrossfade: {keys: [][]string{{"seconds"}}, decode: func(a map[string]any) (Call, string) {
		s, reason := seconds(a, 10)
		return Crossfade{Seconds: s}, reason
	}},
	NameCutMiddle: {keys: [][]string{{"seconds"}}, decode: func(a map[string]any) (Call, string) {
		s, reason := seconds(a, math.Inf(1))
		return CutMiddle{Seconds: s}, reason
	}},
	NameSetVolumeDelta: {keys: [][]string{{"db"}, {"percent"}}, decode: func(a map[string]any) (Call, string) {
		if _, ok := a["db"]; ok {
			v, reason := inRange(a, "db", -24, 24)
			return SetVolumeDelta{Amount: v, Unit: UnitDB}, reason
		}
		v, reason := inRange(a, "percent", -90, 200)
		return SetVolumeDelta{Amount: v, Unit: UnitPercent}, reason
	}},
	NameSetVolumeSet: {keys: [][]string{{"percent"}}, decode: func(a map[string]any) (Call, string) {
		v, reason := inRange(a, "percent", 0, 200)
		return SetVolumeSet{Percent: v}, reason
	}},
	NameSetPan: {keys: [][]string{{"pan"}}, decode: func(a map[string]any) (Call, string) {
		v, reason := integer(a, "pan", -100, 100)
		return SetPan{Pan: v}, reason
	}},
	NameAddFX: {keys: [][]string{{"type"}}, decode: func(a map[string]any) (Call, string) {
		s, ok := a["type"].(string)
		if !ok {
			return nil, "type must be a string"
		}
		fx := FXType(strings.ToLower(strings.TrimSpace(s)))
		switch fx {
		case FXCompressor, FXEQ, FXReverb:
			return AddFX{Type: fx}, ""
		}
		return nil, fmt.Sprintf("type must be one of compressor, eq, reverb (got %q)", s)
	}},
	NameDuplicate: {keys: [][]string{{"count"}}, decode: func(a map[string]any) (Call, string) {
		v, reason := integer(a, "count", 1, 32)
		return Duplicate{Count: v}, reason
	}},
	NameMute:                {keys: [][]string{{}}, decode: constant(Mute{})},
	NameUnmute:              {keys: [][]string{{}}, decode: constant(Unmute{})},
	NameSolo:                {keys: [][]string{{}}, decode: constant(Solo{})},
	NameUnsolo:              {keys: [][]string{{}}, decode: constant(Unsolo{})},
	NameSplitAtCursor:       {keys: [][]string{{}}, decode: constant(SplitAtCursor{})},
	NameTrimToTimeSelection: {keys: [][]string{{}}, decode: constant(TrimToTimeSelection{})},
}

func constant(c Call) func(map[string]any) (Call, string) {
	return func(map[string]any) (Call, string) { return c, "" }
}

// Validate checks every call against the whitelist and its argument schema
// and returns the typed calls in the same order. It never drops a call: the
// first invalid one fails the whole batch.
func Validate(calls []ToolCall) ([]Call, error) {
	if len(calls) == 0 {
		return nil, &ValidationError{Index: 0, Reason: "plan contains no tool calls"}
	}
	out := make([]Call, 0, len(calls))
	for i, tc := range calls {
		c, err := validateOne(i, tc)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func validateOne(index int, tc ToolCall) (Call, error) {
	fail := func(format string, args ...any) error {
		return &ValidationError{Index: index, Tool: tc.Name, Reason: fmt.Sprintf(format, args...)}
	}

	s, ok := schemas[tc.Name]
	if !ok {
		return nil, fail("unsupported tool %q", tc.Name)
	}

	keys := make([]string, 0, len(tc.Args))
	for k := range tc.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if !slices.ContainsFunc(s.keys, func(want []string) bool { return slices.Equal(want, keys) }) {
		return nil, fail("args must be %s, got %s", describeKeys(s.keys), describeKeys([][]string{keys}))
	}

	c, reason := s.decode(tc.Args)
	if reason != "" {
		return nil, fail("%s", reason)
	}
	return c, nil
}

func describeKeys(sets [][]string) string {
	parts := make([]string, len(sets))
	for i, set := range sets {
		parts[i] = "{" + strings.Join(set, ", ") + "}"
	}
	return strings.Join(parts, " or ")
}

// Number accepts the numeric forms a JSON decoder or a Go caller may
// produce. Booleans are not numbers.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func seconds(args map[string]any, upper float64) (float64, string) {
	s, ok := Number(args["seconds"])
	if !ok {
		return 0, "seconds must be a number"
	}
	if s <= 0 || s > upper {
		if math.IsInf(upper, 1) {
			return 0, "seconds must be > 0"
		}
		return 0, fmt.Sprintf("seconds must be > 0 and <= %g", upper)
	}
	return s, ""
}

func inRange(args map[string]any, key string, lo, hi float64) (float64, string) {
	v, ok := Number(args[key])
	if !ok {
		return 0, key + " must be a number"
	}
	if v < lo || v > hi {
		return 0, fmt.Sprintf("%s must be between %g and %g", key, lo, hi)
	}
	return v, ""
}

func integer(args map[string]any, key string, lo, hi int) (int, string) {
	v, ok := Number(args[key])
	if !ok || v != math.Trunc(v) {
		return 0, key + " must be an integer"
	}
	if v < float64(lo) || v > float64(hi) {
		return 0, fmt.Sprintf("%s must be between %d and %d", key, lo, hi)
	}
	return int(v), ""
}
