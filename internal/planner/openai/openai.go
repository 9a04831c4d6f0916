// Package openai implements the Planner interface using OpenAI's Chat
// Completions API in JSON-object mode. Any OpenAI-compatible server (vLLM,
// llama.cpp server, LM Studio) works through BaseURL.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/nadzzz/cutline/internal/config"
	"github.com/nadzzz/cutline/internal/planner"
)

const defaultModel = "gpt-4o-mini"

// Planner uses the Chat Completions API for planning.
type Planner struct {
	client *sdk.Client
	model  string
}

// New creates an OpenAI planner from config. Extra options are appended
// after the config-derived ones.
func New(cfg config.OpenAIConfig, opts ...option.RequestOption) *Planner {
	base := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(cfg.BaseURL))
	}
	client := sdk.NewClient(append(base, opts...)...)

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Planner{client: &client, model: model}
}

func (p *Planner) Name() string { return "openai" }

func (p *Planner) Plan(ctx context.Context, req planner.Request) (*planner.Response, error) {
	completion, err := p.client.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(p.model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.SystemMessage(planner.SystemPrompt),
			sdk.UserMessage(planner.BuildUserMessage(req)),
		},
		Temperature: sdk.Float(0),
		ResponseFormat: sdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, planner.TransportError(p.Name(), fmt.Errorf("chat completion: %w", err))
	}
	if len(completion.Choices) == 0 {
		return nil, planner.TransportError(p.Name(), errors.New("no choices returned from chat API"))
	}

	content := completion.Choices[0].Message.Content
	slog.Debug("openai answered", "model", p.model, "length", len(content),
		"prompt_tokens", completion.Usage.PromptTokens, "completion_tokens", completion.Usage.CompletionTokens)
	return planner.Decode(content)
}
