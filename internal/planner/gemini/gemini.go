// Package gemini implements the Planner interface on Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/nadzzz/cutline/internal/config"
	"github.com/nadzzz/cutline/internal/planner"
)

const defaultModel = "gemini-2.5-flash"

// generateFunc sends one user message and returns the model's raw text.
type generateFunc func(ctx context.Context, userMessage string) (string, error)

// Planner asks Gemini for a JSON plan.
type Planner struct {
	model    string
	generate generateFunc
}

// New creates a Gemini planner from config.
func New(ctx context.Context, cfg config.GeminiConfig) (*Planner, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	p := &Planner{model: model}
	p.generate = func(ctx context.Context, msg string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, p.model, genai.Text(msg), &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(planner.SystemPrompt, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0),
			ResponseMIMEType:  "application/json",
		})
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
	return p, nil
}

func (p *Planner) Name() string { return "gemini" }

func (p *Planner) Plan(ctx context.Context, req planner.Request) (*planner.Response, error) {
	text, err := p.generate(ctx, planner.BuildUserMessage(req))
	if err != nil {
		return nil, planner.TransportError(p.Name(), fmt.Errorf("generate content: %w", err))
	}
	slog.Debug("gemini answered", "model", p.model, "length", len(text))
	return planner.Decode(text)
}
