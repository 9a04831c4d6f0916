// Package voice is the spoken entry point to a session: it screens and
// transcribes a recording, submits the transcript exactly like typed text,
// and optionally speaks the result back.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/cutline/internal/history"
	"github.com/nadzzz/cutline/internal/session"
	"github.com/nadzzz/cutline/internal/speech"
)

// ErrNoTranscriber is returned when audio arrives but speech-to-text is off.
var ErrNoTranscriber = errors.New("speech-to-text is not configured")

// ResponseMode controls what the caller gets back besides the outcome.
type ResponseMode string

const (
	// ResponseModeNone returns only the structured outcome.
	ResponseModeNone ResponseMode = "none"

	// ResponseModeText adds the reply text.
	ResponseModeText ResponseMode = "text"

	// ResponseModeAudio adds synthesized audio of the reply.
	ResponseModeAudio ResponseMode = "audio"

	// ResponseModeTextAudio adds both.
	ResponseModeTextAudio ResponseMode = "text+audio"
)

func (m ResponseMode) wantsText() bool  { return m == ResponseModeText || m == ResponseModeTextAudio }
func (m ResponseMode) wantsAudio() bool { return m == ResponseModeAudio || m == ResponseModeTextAudio }

// Vocabulary nudges recognition toward editing terms.
const Vocabulary = "Audio editing commands: fade in, fade out, crossfade, trim, split, duplicate, " +
	"mute, unmute, solo, pan left, pan right, volume, dB, percent, milliseconds, seconds, clips, tracks."

// Submitter runs one command through the session.
type Submitter interface {
	Submit(ctx context.Context, text string, role history.Role) (session.Outcome, error)
}

// Request is one spoken command.
type Request struct {
	Audio        []byte       `json:"audio"`
	ContentType  string       `json:"content_type,omitempty"`
	Language     string       `json:"language,omitempty"`
	ResponseMode ResponseMode `json:"response_mode,omitempty"`
}

// Reply is the result of a spoken command.
type Reply struct {
	ID         string          `json:"id"`
	Transcript string          `json:"transcript,omitempty"`
	Language   string          `json:"language,omitempty"`
	Outcome    session.Outcome `json:"outcome"`
	Text       string          `json:"text,omitempty"`

	// Audio is the synthesized reply, base64-encoded in JSON.
	Audio            []byte `json:"audio,omitempty"`
	AudioContentType string `json:"audio_content_type,omitempty"`

	Elapsed time.Duration `json:"elapsed_ns"`
}

// Front connects the speech adapters to a Submitter. tts may be nil.
type Front struct {
	sub Submitter
	stt speech.Transcriber
	tts speech.Synthesizer
}

// New builds a front. stt may be nil, in which case every request fails
// with ErrNoTranscriber.
func New(sub Submitter, stt speech.Transcriber, tts speech.Synthesizer) *Front {
	return &Front{sub: sub, stt: stt, tts: tts}
}

// DefaultMode is text+audio when a synthesizer is configured, text otherwise.
func (f *Front) DefaultMode() ResponseMode {
	if f.tts != nil {
		return ResponseModeTextAudio
	}
	return ResponseModeText
}

// Handle processes one recording. Recordings rejected by the signal check
// come back as an input-error outcome without calling the transcriber.
func (f *Front) Handle(ctx context.Context, req Request) (*Reply, error) {
	start := time.Now()
	if f.stt == nil {
		return nil, ErrNoTranscriber
	}
	mode := req.ResponseMode
	if mode == "" {
		mode = f.DefaultMode()
	}
	reply := &Reply{ID: uuid.NewString()}
	log := slog.With("voice_id", reply.ID, "audio_bytes", len(req.Audio))

	var sigErr *speech.SignalError
	if err := speech.CheckSignal(req.Audio); errors.As(err, &sigErr) {
		log.Info("recording rejected", "reason", sigErr.Reason)
		reply.Outcome = session.Outcome{Status: session.StatusError, ErrorKind: session.ErrorInput, Message: sigErr.Reason}
		return f.finish(ctx, reply, mode, start), nil
	}

	tr, err := f.stt.Transcribe(ctx, req.Audio, req.ContentType, speech.TranscribeOpts{
		Language: req.Language,
		Prompt:   Vocabulary,
	})
	if err != nil {
		return nil, fmt.Errorf("transcribing with %s: %w", f.stt.Name(), err)
	}
	reply.Transcript = strings.TrimSpace(tr.Text)
	reply.Language = tr.Language
	log.Info("transcribed", "backend", f.stt.Name(), "text", reply.Transcript, "language", tr.Language)

	out, err := f.sub.Submit(ctx, reply.Transcript, history.RoleUserVoice)
	if err != nil {
		return nil, err
	}
	reply.Outcome = out
	return f.finish(ctx, reply, mode, start), nil
}

func (f *Front) finish(ctx context.Context, reply *Reply, mode ResponseMode, start time.Time) *Reply {
	text := reply.Outcome.Message
	if text == "" {
		text = reply.Outcome.Question
	}
	if mode.wantsText() {
		reply.Text = text
	}
	if mode.wantsAudio() && f.tts != nil && text != "" {
		syn, err := f.tts.Synthesize(ctx, text, speech.SynthesizeOpts{Language: reply.Language})
		if err != nil {
			// The edit already happened; a failed reply voice is not fatal.
			slog.Warn("reply synthesis failed", "voice_id", reply.ID, "backend", f.tts.Name(), "error", err)
		} else {
			reply.Audio = syn.Audio
			reply.AudioContentType = syn.ContentType
		}
	}
	reply.Elapsed = time.Since(start)
	return reply
}
