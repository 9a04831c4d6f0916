// Package openai transcribes spoken commands with the OpenAI audio API.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/nadzzz/cutline/internal/config"
	"github.com/nadzzz/cutline/internal/speech"
)

// Transcriber implements speech.Transcriber.
type Transcriber struct {
	client sdk.Client
	model  string
}

// New builds a transcriber. opts are appended after the configured key.
func New(cfg config.OpenAISTTConfig, opts ...option.RequestOption) *Transcriber {
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	reqOpts = append(reqOpts, opts...)
	model := cfg.Model
	if model == "" {
		model = string(sdk.AudioModelWhisper1)
	}
	return &Transcriber{client: sdk.NewClient(reqOpts...), model: model}
}

// Name implements speech.Transcriber.
func (t *Transcriber) Name() string { return "openai" }

// Transcribe implements speech.Transcriber.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, contentType string, opts speech.TranscribeOpts) (*speech.Transcription, error) {
	if contentType == "" {
		contentType = "audio/wav"
	}
	params := sdk.AudioTranscriptionNewParams{
		File:  sdk.File(bytes.NewReader(audio), "audio"+speech.ExtFromContentType(contentType), contentType),
		Model: sdk.AudioModel(t.model),
	}
	if opts.Language != "" {
		params.Language = sdk.String(opts.Language)
	}
	if opts.Prompt != "" {
		params.Prompt = sdk.String(opts.Prompt)
	}

	res, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}
	slog.Debug("openai transcription complete", "model", t.model, "text_length", len(res.Text))
	return &speech.Transcription{Text: res.Text, Language: speech.NormalizeLanguage(opts.Language)}, nil
}
