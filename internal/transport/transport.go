// Package transport defines the contract shared by the network front-ends.
//
// Every transport drives the same Service (the session actor), so HTTP,
// WebSocket and gRPC clients all see one conversation with one history.
package transport

import (
	"context"

	"github.com/nadzzz/cutline/internal/history"
	"github.com/nadzzz/cutline/internal/selection"
	"github.com/nadzzz/cutline/internal/session"
)

// Service is the session surface exposed to clients. *session.Actor
// implements it.
type Service interface {
	Submit(ctx context.Context, text string, role history.Role) (session.Outcome, error)
	Choose(ctx context.Context, target selection.Target) (session.Outcome, error)
	Apply(ctx context.Context) (session.Outcome, error)
	Discard(ctx context.Context) (session.Outcome, error)
	Undo(ctx context.Context) (session.Outcome, error)
	Reset(ctx context.Context) error
	SetMode(ctx context.Context, m session.Mode) error
	Snapshot(ctx context.Context) (session.Snapshot, error)
	Subscribe() (<-chan session.Event, func())
}

var _ Service = (*session.Actor)(nil)

// Transport is a front-end serving a Service.
type Transport interface {
	// Name returns the transport identifier ("http", "grpc").
	Name() string

	// Listen serves until ctx is cancelled.
	Listen(ctx context.Context) error

	// Close stops the transport, draining in-flight work.
	Close() error
}

// CommandRequest submits a typed or pre-transcribed command.
type CommandRequest struct {
	Text string `json:"text"`
	// Voice marks text that came from speech recognition.
	Voice bool `json:"voice,omitempty"`
}

// Role maps the request to a history role.
func (r CommandRequest) Role() history.Role {
	if r.Voice {
		return history.RoleUserVoice
	}
	return history.RoleUser
}

// ChooseRequest answers a target-choice question.
type ChooseRequest struct {
	Target string `json:"target"` // "clips" or "tracks"
}

// ModeRequest switches the execution mode.
type ModeRequest struct {
	Mode string `json:"mode"` // "immediate" or "preview"
}

// Empty is the request for argument-less operations.
type Empty struct{}
