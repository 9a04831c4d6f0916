// Package plannertest provides a scripted Planner for tests.
package plannertest

import (
	"context"
	"errors"
	"sync"

	"github.com/nadzzz/cutline/internal/planner"
)

// Step is one scripted answer.
type Step struct {
	Response *planner.Response
	Err      error
}

// Scripted replays Steps in order and records every request. Running out
// of steps is a transport error.
type Scripted struct {
	mu       sync.Mutex
	steps    []Step
	requests []planner.Request
}

// New returns a planner that answers with steps in order.
func New(steps ...Step) *Scripted {
	return &Scripted{steps: steps}
}

// Respond is shorthand for a successful step.
func Respond(resp *planner.Response) Step { return Step{Response: resp} }

// Fail is shorthand for a failing step.
func Fail(err error) Step { return Step{Err: err} }

func (s *Scripted) Name() string { return "scripted" }

func (s *Scripted) Plan(_ context.Context, req planner.Request) (*planner.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.steps) == 0 {
		return nil, planner.TransportError("scripted", errors.New("script exhausted"))
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	if step.Err != nil {
		return nil, planner.TransportError("scripted", step.Err)
	}
	return step.Response, nil
}

// Requests returns every request received so far.
func (s *Scripted) Requests() []planner.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]planner.Request(nil), s.requests...)
}

// Calls returns how many times Plan was called.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
