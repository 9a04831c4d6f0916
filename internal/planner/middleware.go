package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultTimeout bounds one planning call.
const DefaultTimeout = 90 * time.Second

type timeoutPlanner struct {
	next    Planner
	timeout time.Duration
}

// WithTimeout bounds every call to p by d. A deadline hit, or any other
// error the backend forgot to classify, comes back as a transport error.
func WithTimeout(p Planner, d time.Duration) Planner {
	if d <= 0 {
		d = DefaultTimeout
	}
	return &timeoutPlanner{next: p, timeout: d}
}

func (t *timeoutPlanner) Name() string { return t.next.Name() }

func (t *timeoutPlanner) Plan(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.next.Plan(ctx, req)
	switch {
	case err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, TransportError(t.next.Name(), fmt.Errorf("no answer within %s: %w", t.timeout, err))
	case err != nil:
		return nil, TransportError(t.next.Name(), err)
	case resp == nil:
		return nil, TransportError(t.next.Name(), errors.New("empty response"))
	}
	return resp, nil
}

// Tracer opens a span around a unit of work. finish receives the outcome.
type Tracer interface {
	StartSpan(ctx context.Context, op, description string) (context.Context, func(err error))
}

type instrumented struct {
	next   Planner
	tracer Tracer
}

// Instrument reports every call to p through tracer and logs its outcome.
func Instrument(p Planner, tracer Tracer) Planner {
	return &instrumented{next: p, tracer: tracer}
}

func (i *instrumented) Name() string { return i.next.Name() }

func (i *instrumented) Plan(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	ctx, finish := i.tracer.StartSpan(ctx, "planner.plan", i.next.Name())

	resp, err := i.next.Plan(ctx, req)
	finish(err)

	logger := slog.With("planner", i.next.Name(), "duration", time.Since(start))
	if err != nil {
		logger.Error("planning failed", "error", err)
		return nil, err
	}
	logger.Info("planning complete", "kind", resp.Kind, "tool_calls", len(resp.ToolCalls))
	return resp, nil
}
