// Package remote implements the Planner interface against a planner service
// reached over HTTP. The service receives the command with its selection
// context and answers with an ok/error envelope.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nadzzz/cutline/internal/config"
	"github.com/nadzzz/cutline/internal/planner"
	"github.com/nadzzz/cutline/internal/selection"
	"github.com/nadzzz/cutline/internal/tool"
)

// Request is the body POSTed to the service.
type Request struct {
	Command          string            `json:"command"`
	Context          selection.Context `json:"context"`
	ForcedTarget     string            `json:"forcedTarget,omitempty"`
	ConversationHint *Hint             `json:"conversationHint,omitempty"`
}

// Hint is the conversational memory sent along with a request.
type Hint struct {
	LastIntent    string `json:"lastIntent,omitempty"`
	PendingIntent string `json:"pendingIntent,omitempty"`
}

// Response is the service's answer envelope.
type Response struct {
	OK                    bool            `json:"ok"`
	Error                 string          `json:"error,omitempty"`
	NeedsClarification    bool            `json:"needsClarification,omitempty"`
	ClarificationQuestion string          `json:"clarificationQuestion,omitempty"`
	ToolCalls             []tool.ToolCall `json:"toolCalls,omitempty"`
	Preview               string          `json:"preview,omitempty"`
}

// EncodeRequest converts a planning request to its wire form.
func EncodeRequest(req planner.Request) Request {
	out := Request{
		Command:      req.Command,
		Context:      req.Context,
		ForcedTarget: string(req.ForcedTarget),
	}
	if !req.Hint.Empty() {
		out.ConversationHint = &Hint{LastIntent: req.Hint.LastIntent, PendingIntent: req.Hint.PendingIntent}
	}
	return out
}

// DecodeRequest is the inverse of EncodeRequest, for services that host a
// planner behind this protocol.
func DecodeRequest(w Request) (planner.Request, error) {
	target := selection.ParseTarget(w.ForcedTarget)
	if target == selection.TargetNone && w.ForcedTarget != "" {
		return planner.Request{}, fmt.Errorf("unknown forcedTarget %q", w.ForcedTarget)
	}
	req := planner.Request{Command: w.Command, Context: w.Context, ForcedTarget: target}
	if w.ConversationHint != nil {
		req.Hint = &planner.Hint{LastIntent: w.ConversationHint.LastIntent, PendingIntent: w.ConversationHint.PendingIntent}
	}
	return req, nil
}

// EncodeResponse converts a planner answer to the envelope.
func EncodeResponse(resp *planner.Response) Response {
	switch resp.Kind {
	case planner.KindClarification:
		return Response{OK: true, NeedsClarification: true, ClarificationQuestion: resp.Question}
	case planner.KindPlan:
		return Response{OK: true, ToolCalls: resp.ToolCalls, Preview: resp.Preview}
	}
	return Response{Error: resp.Error}
}

// DecodeResponse validates an envelope's shape and converts it back.
// Inconsistent envelopes wrap planner.ErrTransport.
func DecodeResponse(w Response) (*planner.Response, error) {
	switch {
	case !w.OK:
		if strings.TrimSpace(w.Error) == "" {
			return nil, malformed("ok=false without error")
		}
		return planner.Failed("%s", strings.TrimSpace(w.Error)), nil
	case w.NeedsClarification:
		if len(w.ToolCalls) > 0 {
			return nil, malformed("clarification cannot include toolCalls")
		}
		if strings.TrimSpace(w.ClarificationQuestion) == "" {
			return nil, malformed("clarificationQuestion must be non-empty")
		}
		return planner.Clarify(strings.TrimSpace(w.ClarificationQuestion)), nil
	case len(w.ToolCalls) == 0:
		return nil, malformed("toolCalls cannot be empty")
	}
	for i, c := range w.ToolCalls {
		if c.Args == nil {
			return nil, malformed("toolCalls[%d] has no args object", i)
		}
	}
	resp := planner.Planned(w.ToolCalls...)
	resp.Preview = w.Preview
	return resp, nil
}

// Planner POSTs requests to a planner service.
type Planner struct {
	endpoint string
	token    string
	client   *http.Client
}

// New creates a remote planner from config.
func New(cfg config.RemoteConfig) *Planner {
	return &Planner{
		endpoint: cfg.Endpoint,
		token:    cfg.Token,
		client:   &http.Client{},
	}
}

func (p *Planner) Name() string { return "remote" }

func (p *Planner) Plan(ctx context.Context, req planner.Request) (*planner.Response, error) {
	bodyBytes, err := json.Marshal(EncodeRequest(req))
	if err != nil {
		return nil, planner.TransportError(p.Name(), fmt.Errorf("marshalling request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, planner.TransportError(p.Name(), fmt.Errorf("creating request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, planner.TransportError(p.Name(), fmt.Errorf("plan request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, planner.TransportError(p.Name(), fmt.Errorf("plan failed (status %d): %s", resp.StatusCode, respBody))
	}

	var wire Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&wire); err != nil {
		return nil, planner.TransportError(p.Name(), fmt.Errorf("decoding response: %w", err))
	}
	slog.Debug("remote planner answered", "ok", wire.OK, "tool_calls", len(wire.ToolCalls))
	return DecodeResponse(wire)
}

func malformed(format string, args ...any) error {
	return planner.TransportError("remote", errors.New("malformed response: "+fmt.Sprintf(format, args...)))
}
