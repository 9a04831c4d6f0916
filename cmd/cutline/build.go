package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nadzzz/cutline/internal/config"
	"github.com/nadzzz/cutline/internal/daw"
	"github.com/nadzzz/cutline/internal/metrics"
	"github.com/nadzzz/cutline/internal/planner"
	"github.com/nadzzz/cutline/internal/planner/gemini"
	"github.com/nadzzz/cutline/internal/planner/ollama"
	openaiplanner "github.com/nadzzz/cutline/internal/planner/openai"
	"github.com/nadzzz/cutline/internal/planner/remote"
	"github.com/nadzzz/cutline/internal/planner/rules"
	"github.com/nadzzz/cutline/internal/speech"
	"github.com/nadzzz/cutline/internal/speech/elevenlabs"
	openaistt "github.com/nadzzz/cutline/internal/speech/openai"
	"github.com/nadzzz/cutline/internal/speech/piper"
	"github.com/nadzzz/cutline/internal/speech/whisper"
)

// buildPlanner selects the backend and wraps it with the configured
// timeout and, when Sentry is on, tracing spans.
func buildPlanner(ctx context.Context, cfg config.PlannerConfig, rec *metrics.Recorder) (planner.Planner, error) {
	var (
		p   planner.Planner
		err error
	)
	switch cfg.Backend {
	case "rules", "":
		p = rules.New()
	case "gemini":
		p, err = gemini.New(ctx, cfg.Gemini)
	case "openai":
		p = openaiplanner.New(cfg.OpenAI)
	case "ollama":
		p, err = ollama.New(cfg.Ollama)
	case "remote":
		p = remote.New(cfg.Remote)
	default:
		return nil, fmt.Errorf("unknown planner backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s planner: %w", cfg.Backend, err)
	}
	slog.Info("planner configured", "backend", p.Name(), "timeout", cfg.Timeout)

	p = planner.WithTimeout(p, cfg.Timeout)
	if rec.Enabled() {
		p = planner.Instrument(p, rec)
	}
	return p, nil
}

// buildSpeech returns the configured adapters; either may be nil.
func buildSpeech(cfg config.SpeechConfig) (speech.Transcriber, speech.Synthesizer) {
	var eleven *elevenlabs.Client
	elevenClient := func() *elevenlabs.Client {
		if eleven == nil {
			eleven = elevenlabs.New(cfg.ElevenLabs)
		}
		return eleven
	}

	var stt speech.Transcriber
	switch cfg.STT {
	case "elevenlabs":
		stt = elevenClient()
	case "whisper":
		stt = whisper.New(cfg.Whisper)
	case "openai":
		stt = openaistt.New(cfg.OpenAI)
	}

	var tts speech.Synthesizer
	switch cfg.TTS {
	case "elevenlabs":
		tts = elevenClient()
	case "piper":
		tts = piper.New(cfg.Piper)
	}
	slog.Info("speech configured", "stt", cfg.STT, "tts", cfg.TTS)
	return stt, tts
}

// openProject resolves daw.project: a preset name or a YAML file path.
// fileBacked reports whether edits can be written back.
func openProject(cfg config.DAWConfig) (proj *daw.Project, fileBacked bool, err error) {
	if p, found := daw.Preset(cfg.Project); found {
		return p, false, nil
	}
	p, err := daw.LoadProject(cfg.Project)
	if err != nil {
		return nil, false, fmt.Errorf("opening project: %w", err)
	}
	return p, true, nil
}
