package intent

import (
	"regexp"
	"strings"
)

var (
	paramWithUnitRe = regexp.MustCompile(`^(by |to )?[+-]?\d+(\.\d+)?\s*(db|%|percent|ms|milliseconds?|s|secs?|seconds?|x|times)$`)
	plainNumberRe   = regexp.MustCompile(`^(by |to )?[+-]?\d+(\.\d+)?$`)
	countSuffixRe   = regexp.MustCompile(`\s*(x|times)$`)
)

// IsParameterOnly reports whether text is nothing but a parameter: a number
// with a unit ("3db", "-6 dB", "50%", "500ms", "2 seconds", "4 times"), or a
// bare number when allowPlainNumber is set.
func IsParameterOnly(text string, allowPlainNumber bool) bool {
	norm := normalize(text)
	if paramWithUnitRe.MatchString(norm) {
		return true
	}
	return allowPlainNumber && plainNumberRe.MatchString(norm)
}

// BuildFollowupCommand merges a parameter-only reply into a complete command
// for the seed intent, e.g. "lower volume" + "3" -> "lower volume by 3".
func BuildFollowupCommand(seed Intent, reply string) string {
	value := normalize(reply)
	value = strings.TrimPrefix(value, "by ")
	value = strings.TrimPrefix(value, "to ")
	bare := plainNumberRe.MatchString(value)

	switch seed.Kind {
	case KindVolume:
		if seed.Phrase == "set volume" {
			return "set volume to " + value
		}
		phrase := seed.Phrase
		if phrase == "" {
			phrase = "adjust volume"
		}
		return phrase + " by " + value
	case KindFadeOut, KindFadeIn, KindCrossfade:
		if bare {
			value += " seconds"
		}
		return phraseFor(seed.Kind, "") + " by " + value
	case KindCutMiddle:
		if bare {
			value += " seconds"
		}
		return "cut the middle " + value
	case KindDuplicate:
		return "duplicate " + countSuffixRe.ReplaceAllString(value, "") + " times"
	case KindPan:
		return "pan to " + value
	}
	return strings.TrimSpace(seed.Phrase + " " + value)
}
