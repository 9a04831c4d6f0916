// Package elevenlabs implements both speech directions against the
// ElevenLabs HTTP API: Scribe for transcription and the multilingual voices
// for spoken replies.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"unicode"

	"github.com/nadzzz/cutline/internal/config"
	"github.com/nadzzz/cutline/internal/speech"
)

// ErrNoVoice is returned when no voice is configured and the account has none.
var ErrNoVoice = errors.New("elevenlabs: no voice available")

// Client talks to ElevenLabs. It implements both speech.Transcriber and
// speech.Synthesizer.
type Client struct {
	apiKey   string
	baseURL  string
	sttModel string
	ttsModel string
	http     *http.Client

	mu      sync.Mutex
	voiceID string
}

// New builds a client from config.
func New(cfg config.ElevenLabsConfig) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.elevenlabs.io"
	}
	stt := cfg.STTModel
	if stt == "" {
		stt = "scribe_v1"
	}
	tts := cfg.TTSModel
	if tts == "" {
		tts = "eleven_multilingual_v2"
	}
	return &Client{
		apiKey:   cfg.APIKey,
		baseURL:  base,
		sttModel: stt,
		ttsModel: tts,
		voiceID:  cfg.VoiceID,
		http:     &http.Client{},
	}
}

// Name implements speech.Transcriber and speech.Synthesizer.
func (c *Client) Name() string { return "elevenlabs" }

// Transcribe uploads the recording to the speech-to-text endpoint.
func (c *Client) Transcribe(ctx context.Context, audio []byte, contentType string, opts speech.TranscribeOpts) (*speech.Transcription, error) {
	if contentType == "" {
		contentType = "audio/wav"
	}
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreatePart(fileHeader("audio"+speech.ExtFromContentType(contentType), contentType))
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("writing audio: %w", err)
	}
	_ = w.WriteField("model_id", c.sttModel)
	if opts.Language != "" {
		_ = w.WriteField("language_code", opts.Language)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing form: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, "/v1/speech-to-text", w.FormDataContentType(), "", body)
	if err != nil {
		return nil, fmt.Errorf("speech-to-text: %w", err)
	}

	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decoding transcription: %w", err)
	}
	text := transcript(payload)
	if text == "" {
		return nil, errors.New("speech-to-text returned no transcript")
	}
	lang := ""
	if m, ok := payload.(map[string]any); ok {
		lang, _ = m["language_code"].(string)
	}
	slog.Debug("elevenlabs transcription complete", "text_length", len(text), "language", lang)
	return &speech.Transcription{Text: text, Language: speech.NormalizeLanguage(lang)}, nil
}

// Synthesize speaks text with the configured or first available voice.
func (c *Client) Synthesize(ctx context.Context, text string, opts speech.SynthesizeOpts) (*speech.Synthesis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty text for synthesis")
	}
	voice := opts.Voice
	if voice == "" {
		v, err := c.voice(ctx)
		if err != nil {
			return nil, err
		}
		voice = v
	}

	reqBody, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": c.ttsModel,
		"voice_settings": map[string]float64{
			"stability":        0.45,
			"similarity_boost": 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}

	audio, err := c.do(ctx, http.MethodPost, "/v1/text-to-speech/"+voice, "application/json", "audio/mpeg", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("text-to-speech: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("text-to-speech returned empty audio")
	}
	return &speech.Synthesis{Audio: audio, ContentType: "audio/mpeg"}, nil
}

// Close is a no-op.
func (c *Client) Close() error { return nil }

// voice returns the configured voice, discovering and caching the
// account's first voice when none is set.
func (c *Client) voice(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.voiceID != "" {
		return c.voiceID, nil
	}

	data, err := c.do(ctx, http.MethodGet, "/v1/voices", "", "application/json", nil)
	if err != nil {
		return "", fmt.Errorf("listing voices: %w", err)
	}
	var list struct {
		Voices []struct {
			VoiceID string `json:"voice_id"`
			ID      string `json:"id"`
		} `json:"voices"`
	}
	if err := json.Unmarshal(data, &list); err != nil {
		return "", fmt.Errorf("decoding voices: %w", err)
	}
	for _, v := range list.Voices {
		id := v.VoiceID
		if id == "" {
			id = v.ID
		}
		if id != "" {
			slog.Info("elevenlabs voice discovered", "voice_id", id)
			c.voiceID = id
			return id, nil
		}
	}
	return "", ErrNoVoice
}

func (c *Client) do(ctx context.Context, method, path, contentType, accept string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, apiError(data))
	}
	return data, nil
}

// apiError pulls a readable message out of an error body.
func apiError(data []byte) string {
	var body map[string]any
	if json.Unmarshal(data, &body) == nil {
		for _, key := range []string{"detail", "message"} {
			switch v := body[key].(type) {
			case string:
				return v
			case map[string]any:
				if msg, ok := v["message"].(string); ok {
					return msg
				}
			}
		}
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 300 {
		msg = msg[:300]
	}
	return msg
}

var textKeys = []string{"text", "transcript", "transcription", "normalized_text", "raw_text", "utterance"}

// transcript digs the recognised text out of the several response shapes
// the Scribe models return.
func transcript(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		var parts []string
		for _, item := range t {
			if s := transcript(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	case map[string]any:
		for _, key := range textKeys {
			if s, ok := t[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
		if words, ok := t["words"].([]any); ok {
			if s := joinWords(words); s != "" {
				return s
			}
		}
		if segs, ok := t["segments"].([]any); ok {
			if s := transcript(segs); s != "" {
				return s
			}
		}
		for _, key := range []string{"data", "result", "output"} {
			if nested, ok := t[key]; ok {
				if s := transcript(nested); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

// joinWords rebuilds text from word tokens, attaching punctuation to the
// preceding word.
func joinWords(words []any) string {
	var b strings.Builder
	for _, w := range words {
		var tok string
		switch x := w.(type) {
		case string:
			tok = x
		case map[string]any:
			if typ, _ := x["type"].(string); typ == "spacing" {
				continue
			}
			tok, _ = x["text"].(string)
			if tok == "" {
				tok, _ = x["word"].(string)
			}
		}
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if b.Len() > 0 && !isPunct(tok) {
			b.WriteByte(' ')
		}
		b.WriteString(tok)
	}
	return b.String()
}

func isPunct(tok string) bool {
	for _, r := range tok {
		if !unicode.IsPunct(r) {
			return false
		}
	}
	return true
}

func fileHeader(filename, contentType string) textproto.MIMEHeader {
	return textproto.MIMEHeader{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename=%q`, filename)},
		"Content-Type":        {contentType},
	}
}
