// Package ollama implements the Planner interface against a self-hosted
// Ollama server through its Go client.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	ollama "github.com/ollama/ollama/api"

	"github.com/nadzzz/cutline/internal/config"
	"github.com/nadzzz/cutline/internal/planner"
)

const defaultModel = "llama3.2:3b"

// Planner asks a local model for a JSON plan.
type Planner struct {
	client *ollama.Client
	model  string
}

// New creates an Ollama planner. An empty cfg.Host reads OLLAMA_HOST.
func New(cfg config.OllamaConfig) (*Planner, error) {
	var client *ollama.Client
	if cfg.Host == "" {
		c, err := ollama.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("could not create ollama client: %w", err)
		}
		client = c
	} else {
		u, err := url.Parse(cfg.Host)
		if err != nil {
			return nil, fmt.Errorf("parsing ollama host: %w", err)
		}
		client = ollama.NewClient(u, http.DefaultClient)
	}

	model := strings.TrimPrefix(cfg.Model, "ollama:")
	if model == "" {
		model = defaultModel
	}
	return &Planner{client: client, model: model}, nil
}

func (p *Planner) Name() string { return "ollama" }

func (p *Planner) Plan(ctx context.Context, req planner.Request) (*planner.Response, error) {
	stream := false
	chat := &ollama.ChatRequest{
		Model: p.model,
		Messages: []ollama.Message{
			{Role: "system", Content: planner.SystemPrompt},
			{Role: "user", Content: planner.BuildUserMessage(req)},
		},
		Stream: &stream,
		Format: json.RawMessage(`"json"`),
		Options: map[string]interface{}{
			"temperature": 0,
		},
	}

	var b strings.Builder
	respFunc := func(res ollama.ChatResponse) error {
		b.WriteString(res.Message.Content)
		return nil
	}
	if err := p.client.Chat(ctx, chat, respFunc); err != nil {
		return nil, planner.TransportError(p.Name(), fmt.Errorf("ollama chat failed: %w", err))
	}

	slog.Debug("ollama answered", "model", p.model, "length", b.Len())
	return planner.Decode(b.String())
}
