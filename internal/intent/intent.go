// Package intent derives a coarse, normalized intent from command text or a
// resolved tool call. It seeds clarification follow-ups and merges short
// parameter-only replies back into a complete command.
package intent

import (
	"regexp"
	"strings"

	"github.com/nadzzz/cutline/internal/selection"
	"github.com/nadzzz/cutline/internal/tool"
)

// Kind is the abstract operation class of a command.
type Kind string

const (
	KindVolume    Kind = "volume"
	KindFadeOut   Kind = "fadeOut"
	KindFadeIn    Kind = "fadeIn"
	KindCrossfade Kind = "crossfade"
	KindCutMiddle Kind = "cutMiddle"
	KindDuplicate Kind = "duplicate"
	KindPan       Kind = "pan"
	KindOther     Kind = "other"
)

// Intent is recomputed every turn and never persisted.
type Intent struct {
	Kind          Kind
	Phrase        string
	ExpectsNumber bool
	ForcedTarget  selection.Target
}

// Classifier maps commands and tool calls to intents.
type Classifier interface {
	FromText(text string) Intent
	FromToolCall(tc tool.ToolCall) Intent
}

// Rule is one entry of the ordered rule table. Match receives lower-cased,
// whitespace-normalized text.
type Rule struct {
	Kind  Kind
	Match func(text string) bool
}

// Rules is the default Classifier: the first matching rule wins.
type Rules []Rule

var (
	fadeOutRe = regexp.MustCompile(`\bfade[\s-]*(\w+\s+)?out\b|\bfadeout\b`)
	fadeInRe  = regexp.MustCompile(`\bfade[\s-]*(\w+\s+)?in\b|\bfadein\b`)
	panRe     = regexp.MustCompile(`\bpan(ning|ned)?\b`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

func containsAny(words ...string) func(string) bool {
	return func(text string) bool {
		for _, w := range words {
			if strings.Contains(text, w) {
				return true
			}
		}
		return false
	}
}

// DefaultRules checks volume phrasing first, then the fade family
// (crossfade before the plain fades), then structural edits.
var DefaultRules = Rules{
	{Kind: KindVolume, Match: containsAny("volume", "louder", "quieter", "gain")},
	{Kind: KindCrossfade, Match: containsAny("crossfade", "cross fade", "cross-fade")},
	{Kind: KindFadeOut, Match: fadeOutRe.MatchString},
	{Kind: KindFadeIn, Match: fadeInRe.MatchString},
	{Kind: KindCutMiddle, Match: func(s string) bool {
		return strings.Contains(s, "cut") && strings.Contains(s, "middle")
	}},
	{Kind: KindDuplicate, Match: containsAny("duplicate", "repeat")},
	{Kind: KindPan, Match: panRe.MatchString},
}

var _ Classifier = Rules(nil)

// FromText classifies free text.
func (r Rules) FromText(text string) Intent {
	norm := normalize(text)
	for _, rule := range r {
		if rule.Match(norm) {
			return Intent{Kind: rule.Kind, Phrase: phraseFor(rule.Kind, norm), ExpectsNumber: true}
		}
	}
	return Intent{Kind: KindOther, Phrase: strings.TrimSpace(text)}
}

// FromToolCall classifies a resolved tool call by name. Unknown names fall
// back to text classification of the name.
func (r Rules) FromToolCall(tc tool.ToolCall) Intent {
	numeric := func(k Kind, phrase string) Intent {
		return Intent{Kind: k, Phrase: phrase, ExpectsNumber: true}
	}
	switch tc.Name {
	case tool.NameFadeOut:
		return numeric(KindFadeOut, "fade out")
	case tool.NameFadeIn:
		return numeric(KindFadeIn, "fade in")
	case tool.NameCrossfade:
		return numeric(KindCrossfade, "crossfade")
	case tool.NameCutMiddle:
		return numeric(KindCutMiddle, "cut the middle")
	case tool.NameDuplicate:
		return numeric(KindDuplicate, "duplicate")
	case tool.NameSetPan:
		return numeric(KindPan, "pan")
	case tool.NameSetVolumeSet:
		return numeric(KindVolume, "set volume")
	case tool.NameSetVolumeDelta:
		phrase := "raise volume"
		for _, key := range []string{"db", "percent"} {
			if v, ok := tool.Number(tc.Args[key]); ok && v < 0 {
				phrase = "lower volume"
			}
		}
		return numeric(KindVolume, phrase)
	}
	if tool.Known(tc.Name) {
		return Intent{Kind: KindOther, Phrase: strings.ReplaceAll(tc.Name, "_", " ")}
	}
	return r.FromText(strings.ReplaceAll(tc.Name, "_", " "))
}

func phraseFor(k Kind, norm string) string {
	switch k {
	case KindVolume:
		return volumePhrase(norm)
	case KindFadeOut:
		return "fade out"
	case KindFadeIn:
		return "fade in"
	case KindCrossfade:
		return "crossfade"
	case KindCutMiddle:
		return "cut the middle"
	case KindDuplicate:
		return "duplicate"
	case KindPan:
		return "pan"
	}
	return norm
}

func volumePhrase(norm string) string {
	words := strings.Fields(norm)
	has := func(options ...string) bool {
		for _, w := range words {
			for _, o := range options {
				if w == o {
					return true
				}
			}
		}
		return false
	}
	switch {
	case has("lower", "down", "decrease", "quieter"):
		return "lower volume"
	case has("raise", "increase", "up", "louder"):
		return "raise volume"
	}
	return "adjust volume"
}

func normalize(text string) string {
	return spaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), " ")
}
