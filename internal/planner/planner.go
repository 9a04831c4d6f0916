// Package planner defines the boundary to the external service that turns a
// command plus selection context into tool calls.
//
// A planner answers with exactly one of three shapes: a semantic error, a
// clarification question, or a plan. Anything else (unreachable service,
// malformed output, timeout) is a transport failure and is returned as an
// error wrapping ErrTransport. Backends live in subpackages.
package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/nadzzz/cutline/internal/selection"
	"github.com/nadzzz/cutline/internal/tool"
)

// ErrTransport marks every failure to obtain a well-formed planner answer.
var ErrTransport = errors.New("planner transport error")

// Kind tags the Response union.
type Kind int

const (
	KindError Kind = iota
	KindClarification
	KindPlan
)

func (k Kind) String() string {
	switch k {
	case KindError:
		return "error"
	case KindClarification:
		return "clarification"
	case KindPlan:
		return "plan"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Hint carries conversational memory to the planner.
type Hint struct {
	LastIntent    string `json:"last_intent,omitempty"`
	PendingIntent string `json:"pending_intent,omitempty"`
}

// Empty reports whether the hint carries nothing.
func (h *Hint) Empty() bool {
	return h == nil || (h.LastIntent == "" && h.PendingIntent == "")
}

// Request is one planning call.
type Request struct {
	Command      string
	Context      selection.Context
	ForcedTarget selection.Target
	Hint         *Hint
}

// Response is the planner's answer. Only the fields of its Kind are set.
type Response struct {
	Kind      Kind
	Error     string
	Question  string
	ToolCalls []tool.ToolCall
	Preview   string
}

// Planner is implemented by every backend.
type Planner interface {
	// Name returns the backend identifier (e.g. "gemini", "rules").
	Name() string
	// Plan returns a non-nil Response or an error wrapping ErrTransport.
	Plan(ctx context.Context, req Request) (*Response, error)
}

// TransportError wraps err as a transport failure of backend.
func TransportError(backend string, err error) error {
	if errors.Is(err, ErrTransport) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", backend, ErrTransport, err)
}

// Failed builds a KindError response.
func Failed(format string, args ...any) *Response {
	return &Response{Kind: KindError, Error: fmt.Sprintf(format, args...)}
}

// Clarify builds a KindClarification response.
func Clarify(question string) *Response {
	return &Response{Kind: KindClarification, Question: question}
}

// Planned builds a KindPlan response.
func Planned(calls ...tool.ToolCall) *Response {
	return &Response{Kind: KindPlan, ToolCalls: calls}
}
