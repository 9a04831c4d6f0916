// Package metrics reports turns, planning calls and executions to Sentry.
// Without a DSN every method is a no-op.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/nadzzz/cutline/internal/config"
)

// Recorder opens Sentry spans. It satisfies planner.Tracer.
type Recorder struct {
	enabled bool
}

// Init configures the Sentry client. The returned flush func must run
// before exit.
func Init(cfg config.SentryConfig, release string) (*Recorder, func(), error) {
	if cfg.DSN == "" {
		return &Recorder{}, func() {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          release,
		EnableTracing:    true,
		TracesSampleRate: cfg.SampleRate,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initializing sentry: %w", err)
	}
	return &Recorder{enabled: true}, func() { sentry.Flush(2 * time.Second) }, nil
}

// Enabled reports whether spans are sent anywhere.
func (m *Recorder) Enabled() bool { return m != nil && m.enabled }

// StartTurn opens the transaction that groups one user turn.
func (m *Recorder) StartTurn(ctx context.Context, source string) (context.Context, func(status string)) {
	if !m.Enabled() {
		return ctx, func(string) {}
	}
	tx := sentry.StartTransaction(ctx, "cutline.turn")
	tx.SetTag("source", source)
	return tx.Context(), func(status string) {
		tx.SetTag("outcome", status)
		tx.Status = sentry.SpanStatusOK
		tx.Finish()
	}
}

// StartSpan opens a child span of the current transaction, or a new
// transaction when there is none.
func (m *Recorder) StartSpan(ctx context.Context, op, description string) (context.Context, func(err error)) {
	if !m.Enabled() {
		return ctx, func(error) {}
	}
	span := sentry.StartSpan(ctx, op)
	span.Description = description
	return span.Context(), func(err error) {
		if err != nil {
			span.Status = sentry.SpanStatusInternalError
			span.SetData("error", err.Error())
			sentry.CaptureException(err)
		} else {
			span.Status = sentry.SpanStatusOK
		}
		span.Finish()
	}
}

// RecordExecution records one dispatcher transaction.
func (m *Recorder) RecordExecution(ctx context.Context, name string, calls, mutations int, duration time.Duration, err error) {
	if !m.Enabled() {
		return
	}

	if transaction := sentry.TransactionFromContext(ctx); transaction != nil {
		transaction.SetTag("dispatch.transaction", name)
		transaction.SetData("dispatch.mutations", mutations)
	}

	span := sentry.StartSpan(ctx, "dispatch.execute")
	defer span.Finish()

	span.SetTag("success", fmt.Sprintf("%t", err == nil))
	span.SetData("calls", calls)
	span.SetData("mutations", mutations)
	span.SetData("duration_ms", duration.Milliseconds())

	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		sentry.CaptureException(err)
	} else {
		span.Status = sentry.SpanStatusOK
	}
	span.Description = fmt.Sprintf("Execute: %s", name)
}
