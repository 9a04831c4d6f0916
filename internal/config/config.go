// Package config handles loading and validating the cutline configuration.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config is the root configuration for cutline.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	Planner    PlannerConfig    `mapstructure:"planner"`
	Session    SessionConfig    `mapstructure:"session"`
	Speech     SpeechConfig     `mapstructure:"speech"`
	DAW        DAWConfig        `mapstructure:"daw"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP/WebSocket transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// PlannerConfig selects and configures the planning backend.
type PlannerConfig struct {
	Backend string        `mapstructure:"backend"` // rules, gemini, openai, ollama, remote
	Timeout time.Duration `mapstructure:"timeout"`
	Gemini  GeminiConfig  `mapstructure:"gemini"`
	OpenAI  OpenAIConfig  `mapstructure:"openai"`
	Ollama  OllamaConfig  `mapstructure:"ollama"`
	Remote  RemoteConfig  `mapstructure:"remote"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// OpenAIConfig holds OpenAI API settings. BaseURL points the client at any
// OpenAI-compatible server.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// OllamaConfig holds self-hosted LLM settings. An empty Host defers to
// OLLAMA_HOST.
type OllamaConfig struct {
	Host  string `mapstructure:"host"`
	Model string `mapstructure:"model"` // e.g. "llama3.2:3b"
}

// RemoteConfig points at a planner service speaking the JSON wire protocol.
type RemoteConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Token    string `mapstructure:"token"`
}

// SessionConfig tunes the editing session.
type SessionConfig struct {
	Mode         string `mapstructure:"mode"` // immediate or preview
	HistoryLimit int    `mapstructure:"history_limit"`
}

// SpeechConfig selects the voice front-end backends.
type SpeechConfig struct {
	STT        string           `mapstructure:"stt"` // none, elevenlabs, whisper, openai
	TTS        string           `mapstructure:"tts"` // none, elevenlabs, piper
	ElevenLabs ElevenLabsConfig `mapstructure:"elevenlabs"`
	Whisper    WhisperConfig    `mapstructure:"whisper"`
	OpenAI     OpenAISTTConfig  `mapstructure:"openai"`
	Piper      PiperConfig      `mapstructure:"piper"`
}

// ElevenLabsConfig holds ElevenLabs speech settings. An empty VoiceID picks
// the first voice the account lists.
type ElevenLabsConfig struct {
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	STTModel string `mapstructure:"stt_model"`
	TTSModel string `mapstructure:"tts_model"`
	VoiceID  string `mapstructure:"voice_id"`
}

// WhisperConfig holds self-hosted Whisper settings.
type WhisperConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Type      string `mapstructure:"type"` // "openai" (default) or "asr" (whisper-asr-webservice)
	VADFilter bool   `mapstructure:"vad_filter"`
	Language  string `mapstructure:"language"`
}

// OpenAISTTConfig holds OpenAI transcription settings. An empty APIKey
// reuses planner.openai.api_key.
type OpenAISTTConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
//
// Endpoints maps ISO-639-1 codes to per-language Wyoming endpoints and takes
// precedence over Endpoint.
type PiperConfig struct {
	Endpoint  string            `mapstructure:"endpoint"`
	Endpoints map[string]string `mapstructure:"endpoints"`
	Voices    map[string]string `mapstructure:"voices"`
	Language  string            `mapstructure:"language"`
}

// DAWConfig locates the project the daemon edits.
type DAWConfig struct {
	Project   string `mapstructure:"project"` // YAML project file, or a preset name
	Watch     bool   `mapstructure:"watch"`
	WriteBack bool   `mapstructure:"write_back"`
}

// SentryConfig enables error and performance reporting.
type SentryConfig struct {
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"traces_sample_rate"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

var (
	plannerBackends = []string{"rules", "gemini", "openai", "ollama", "remote"}
	sessionModes    = []string{"immediate", "preview"}
	sttBackends     = []string{"none", "elevenlabs", "whisper", "openai"}
	ttsBackends     = []string{"none", "elevenlabs", "piper"}
)

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./cutline.yaml, ./configs/cutline.yaml, /etc/cutline/cutline.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("cutline")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/cutline")
	}

	// CUTLINE_PLANNER_BACKEND, CUTLINE_SESSION_MODE, etc.
	v.SetEnvPrefix("CUTLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.Planner.Gemini.APIKey = resolveEnvRef(cfg.Planner.Gemini.APIKey)
	cfg.Planner.OpenAI.APIKey = resolveEnvRef(cfg.Planner.OpenAI.APIKey)
	cfg.Planner.Remote.Token = resolveEnvRef(cfg.Planner.Remote.Token)
	cfg.Speech.ElevenLabs.APIKey = resolveEnvRef(cfg.Speech.ElevenLabs.APIKey)
	cfg.Speech.OpenAI.APIKey = resolveEnvRef(cfg.Speech.OpenAI.APIKey)
	if cfg.Speech.OpenAI.APIKey == "" {
		cfg.Speech.OpenAI.APIKey = cfg.Planner.OpenAI.APIKey
	}
	cfg.Sentry.DSN = resolveEnvRef(cfg.Sentry.DSN)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", true)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("planner.backend", "rules")
	v.SetDefault("planner.timeout", "90s")
	v.SetDefault("planner.gemini.api_key", "${GEMINI_API_KEY}")
	v.SetDefault("planner.gemini.model", "gemini-2.5-flash")
	v.SetDefault("planner.openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("planner.openai.model", "gpt-4o-mini")
	v.SetDefault("planner.ollama.model", "llama3.2:3b")
	v.SetDefault("planner.remote.endpoint", "http://localhost:8787/plan")
	v.SetDefault("session.mode", "immediate")
	v.SetDefault("session.history_limit", 200)
	v.SetDefault("speech.stt", "none")
	v.SetDefault("speech.tts", "none")
	v.SetDefault("speech.elevenlabs.api_key", "${ELEVENLABS_API_KEY}")
	v.SetDefault("speech.elevenlabs.base_url", "https://api.elevenlabs.io")
	v.SetDefault("speech.elevenlabs.stt_model", "scribe_v1")
	v.SetDefault("speech.elevenlabs.tts_model", "eleven_multilingual_v2")
	v.SetDefault("speech.whisper.endpoint", "http://localhost:8000/v1/audio/transcriptions")
	v.SetDefault("speech.whisper.type", "openai")
	v.SetDefault("speech.openai.model", "gpt-4o-transcribe")
	v.SetDefault("speech.piper.endpoint", "localhost:10200")
	v.SetDefault("speech.piper.language", "en")
	v.SetDefault("daw.project", "items")
	v.SetDefault("daw.watch", false)
	v.SetDefault("daw.write_back", false)
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.traces_sample_rate", 1.0)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
}

// Validate rejects unknown backends and modes.
func (c *Config) Validate() error {
	checks := []struct {
		key, val string
		allowed  []string
	}{
		{"planner.backend", c.Planner.Backend, plannerBackends},
		{"session.mode", c.Session.Mode, sessionModes},
		{"speech.stt", c.Speech.STT, sttBackends},
		{"speech.tts", c.Speech.TTS, ttsBackends},
	}
	for _, ch := range checks {
		if !oneOf(ch.val, ch.allowed) {
			return fmt.Errorf("invalid %s %q (want one of %s)", ch.key, ch.val, strings.Join(ch.allowed, ", "))
		}
	}
	if c.Session.HistoryLimit < 1 {
		return fmt.Errorf("invalid session.history_limit %d", c.Session.HistoryLimit)
	}
	if c.Planner.Backend == "remote" && c.Planner.Remote.Endpoint == "" {
		return fmt.Errorf("planner.remote.endpoint is required for the remote backend")
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// resolveEnvRef replaces "${VAR_NAME}" with the variable's value. An unset
// variable resolves to the empty string.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(val[2 : len(val)-1])
	}
	return val
}

// SetupLogging configures the global slog logger based on config. When a
// log file is configured the returned closer releases it.
func SetupLogging(cfg LoggingConfig) io.Closer {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out, closer = lj, lj
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	slog.SetDefault(slog.New(handler))
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
