// Package whisper transcribes spoken commands with a self-hosted Whisper
// server. Two flavours are supported:
//   - "openai": OpenAI-compatible /v1/audio/transcriptions (faster-whisper, whisper.cpp)
//   - "asr":    whisper-asr-webservice (POST /asr with query parameters)
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/nadzzz/cutline/internal/config"
	"github.com/nadzzz/cutline/internal/speech"
)

// Transcriber implements speech.Transcriber.
type Transcriber struct {
	endpoint  string
	flavour   string
	vadFilter bool
	language  string
	client    *http.Client
}

// New builds a transcriber from config.
func New(cfg config.WhisperConfig) *Transcriber {
	flavour := cfg.Type
	if flavour == "" {
		flavour = "openai"
	}
	return &Transcriber{
		endpoint:  cfg.Endpoint,
		flavour:   flavour,
		vadFilter: cfg.VADFilter,
		language:  cfg.Language,
		client:    &http.Client{},
	}
}

// Name implements speech.Transcriber.
func (t *Transcriber) Name() string { return "whisper" }

// Transcribe uploads the recording and returns the recognised text.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, contentType string, opts speech.TranscribeOpts) (*speech.Transcription, error) {
	lang := opts.Language
	if lang == "" {
		lang = t.language
	}

	var (
		field  = "file"
		target = t.endpoint
		extra  = map[string]string{"response_format": "verbose_json"}
	)
	if t.flavour == "asr" {
		field = "audio_file"
		extra = nil
		q := url.Values{}
		q.Set("task", "transcribe")
		q.Set("output", "json")
		q.Set("encode", "true")
		if lang != "" {
			q.Set("language", lang)
		}
		if opts.Prompt != "" {
			q.Set("initial_prompt", opts.Prompt)
		}
		if t.vadFilter {
			q.Set("vad_filter", "true")
		}
		target += "?" + q.Encode()
	} else {
		if lang != "" {
			extra["language"] = lang
		}
		if opts.Prompt != "" {
			extra["prompt"] = opts.Prompt
		}
	}

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile(field, "audio"+speech.ExtFromContentType(contentType))
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("writing audio: %w", err)
	}
	for k, v := range extra {
		_ = w.WriteField(k, v)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	slog.Debug("whisper request", "flavour", t.flavour, "url", target, "audio_bytes", len(audio))

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("whisper transcription failed (status %d): %s", resp.StatusCode, msg)
	}

	var result struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding transcription: %w", err)
	}
	return &speech.Transcription{
		Text:     result.Text,
		Language: speech.NormalizeLanguage(result.Language),
	}, nil
}
