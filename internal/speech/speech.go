// Package speech defines the optional voice adapters around the editing
// pipeline: speech-to-text for spoken commands and text-to-speech for the
// final reply. Transcribed text is handled exactly like typed text.
package speech

import (
	"context"
	"strings"
)

// TranscribeOpts controls transcription behavior.
type TranscribeOpts struct {
	// Language is the ISO-639-1 code (e.g., "en", "fr") to guide transcription.
	Language string

	// Prompt provides context to improve recognition of domain-specific terms.
	Prompt string
}

// Transcription is the output of speech-to-text.
type Transcription struct {
	Text     string
	Language string
}

// Transcriber converts recorded audio to text.
type Transcriber interface {
	// Name returns the backend identifier (e.g., "elevenlabs", "whisper").
	Name() string

	Transcribe(ctx context.Context, audio []byte, contentType string, opts TranscribeOpts) (*Transcription, error)
}

// SynthesizeOpts controls synthesis behavior.
type SynthesizeOpts struct {
	// Language is the ISO-639-1 code used to pick a voice.
	Language string

	// Voice overrides automatic voice selection.
	Voice string
}

// Synthesis holds synthesized audio.
type Synthesis struct {
	Audio []byte

	// ContentType is the MIME type of Audio (e.g., "audio/wav", "audio/mpeg").
	ContentType string
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	Name() string

	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*Synthesis, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// ExtFromContentType picks an upload file extension for an audio MIME type.
func ExtFromContentType(ct string) string {
	switch {
	case strings.Contains(ct, "wav"):
		return ".wav"
	case strings.Contains(ct, "ogg"):
		return ".ogg"
	case strings.Contains(ct, "mp3"), strings.Contains(ct, "mpeg"):
		return ".mp3"
	case strings.Contains(ct, "flac"):
		return ".flac"
	case strings.Contains(ct, "webm"):
		return ".webm"
	case strings.Contains(ct, "m4a"), strings.Contains(ct, "mp4"):
		return ".m4a"
	default:
		return ".wav"
	}
}

var languageCodes = map[string]string{
	"english":    "en",
	"french":     "fr",
	"spanish":    "es",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"dutch":      "nl",
	"polish":     "pl",
	"russian":    "ru",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
}

// NormalizeLanguage converts language names and three-letter codes some
// services return ("english", "eng") to ISO-639-1.
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if len(lang) == 2 {
		return lang
	}
	if code, ok := languageCodes[lang]; ok {
		return code
	}
	if len(lang) == 3 {
		for name, code := range languageCodes {
			if strings.HasPrefix(name, lang) {
				return code
			}
		}
	}
	return lang
}
