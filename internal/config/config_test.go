package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cutline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "rules", cfg.Planner.Backend)
	assert.Equal(t, 90*time.Second, cfg.Planner.Timeout)
	assert.Equal(t, "immediate", cfg.Session.Mode)
	assert.Equal(t, 200, cfg.Session.HistoryLimit)
	assert.Equal(t, 8080, cfg.Transports.HTTP.Port)
	assert.Equal(t, 50051, cfg.Transports.GRPC.Port)
	assert.Equal(t, "none", cfg.Speech.STT)
	assert.Equal(t, "items", cfg.DAW.Project)
}

func TestLoad_FileAndEnvRefs(t *testing.T) {
	t.Setenv("CUTLINE_TEST_GEMINI_KEY", "g-secret")
	path := writeConfig(t, `
planner:
  backend: gemini
  timeout: 5s
  gemini:
    api_key: ${CUTLINE_TEST_GEMINI_KEY}
session:
  mode: preview
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.Planner.Backend)
	assert.Equal(t, 5*time.Second, cfg.Planner.Timeout)
	assert.Equal(t, "g-secret", cfg.Planner.Gemini.APIKey)
	assert.Equal(t, "preview", cfg.Session.Mode)
}

func TestLoad_SpeechKeyFallsBackToPlannerKey(t *testing.T) {
	cfg, err := Load(writeConfig(t, "planner:\n  openai:\n    api_key: sk-test\n"))
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.Speech.OpenAI.APIKey)
}

func TestLoad_RejectsUnknownValues(t *testing.T) {
	for name, body := range map[string]string{
		"backend":  "planner:\n  backend: telepathy\n",
		"mode":     "session:\n  mode: eventually\n",
		"stt":      "speech:\n  stt: morse\n",
		"tts":      "speech:\n  tts: morse\n",
		"history":  "session:\n  history_limit: 0\n",
		"endpoint": "planner:\n  backend: remote\n  remote:\n    endpoint: \"\"\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestResolveEnvRef(t *testing.T) {
	t.Setenv("CUTLINE_TEST_REF", "value")
	assert.Equal(t, "value", resolveEnvRef("${CUTLINE_TEST_REF}"))
	assert.Equal(t, "", resolveEnvRef("${CUTLINE_TEST_UNSET_REF}"))
	assert.Equal(t, "literal", resolveEnvRef("literal"))
}

func TestSetupLogging_File(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "cutline.log")
	closer := SetupLogging(LoggingConfig{Level: "debug", Format: "text", File: path, MaxSizeMB: 1})
	slog.Debug("hello from test")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
}
