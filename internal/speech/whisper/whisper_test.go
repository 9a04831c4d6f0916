package whisper

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/cutline/internal/config"
	"github.com/nadzzz/cutline/internal/speech"
)

func TestTranscribe_OpenAIFlavour(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "audio.webm", hdr.Filename)
		assert.Equal(t, "RIFF", string(data))
		assert.Equal(t, "en", r.FormValue("language"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))
		_, _ = io.WriteString(w, `{"text":"fade out 2 seconds","language":"english"}`)
	}))
	defer srv.Close()

	tr := New(config.WhisperConfig{Endpoint: srv.URL, Language: "en"})
	out, err := tr.Transcribe(context.Background(), []byte("RIFF"), "audio/webm", speech.TranscribeOpts{})
	require.NoError(t, err)
	assert.Equal(t, "fade out 2 seconds", out.Text)
	assert.Equal(t, "en", out.Language)
}

func TestTranscribe_ASRFlavour(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "transcribe", q.Get("task"))
		assert.Equal(t, "true", q.Get("vad_filter"))
		assert.Equal(t, "fr", q.Get("language"))
		assert.Equal(t, "crossfade", q.Get("initial_prompt"))
		_, _, err := r.FormFile("audio_file")
		require.NoError(t, err)
		_, _ = io.WriteString(w, `{"text":"mute","language":"fr"}`)
	}))
	defer srv.Close()

	tr := New(config.WhisperConfig{Endpoint: srv.URL, Type: "asr", VADFilter: true})
	out, err := tr.Transcribe(context.Background(), []byte("RIFF"), "audio/wav",
		speech.TranscribeOpts{Language: "fr", Prompt: "crossfade"})
	require.NoError(t, err)
	assert.Equal(t, "mute", out.Text)
}

func TestTranscribe_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(config.WhisperConfig{Endpoint: srv.URL}).Transcribe(context.Background(), []byte("x"), "", speech.TranscribeOpts{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Contains(t, err.Error(), "model not loaded")
}
