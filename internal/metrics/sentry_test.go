package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/cutline/internal/config"
)

func TestInit_WithoutDSNIsNoop(t *testing.T) {
	rec, flush, err := Init(config.SentryConfig{}, "test")
	require.NoError(t, err)
	defer flush()
	assert.False(t, rec.Enabled())

	ctx := context.Background()
	got, finish := rec.StartSpan(ctx, "planner.plan", "rules")
	assert.Equal(t, ctx, got)
	finish(errors.New("ignored"))

	got, done := rec.StartTurn(ctx, "text")
	assert.Equal(t, ctx, got)
	done("ok")

	rec.RecordExecution(ctx, "fade out", 1, 1, time.Millisecond, nil)
}

func TestRecorder_SpansNestUnderTurn(t *testing.T) {
	require.NoError(t, sentry.Init(sentry.ClientOptions{EnableTracing: true, TracesSampleRate: 1}))
	rec := &Recorder{enabled: true}

	ctx, done := rec.StartTurn(context.Background(), "text")
	tx := sentry.TransactionFromContext(ctx)
	require.NotNil(t, tx)

	spanCtx, finish := rec.StartSpan(ctx, "planner.plan", "rules")
	span := sentry.SpanFromContext(spanCtx)
	require.NotNil(t, span)
	assert.Equal(t, tx.TraceID, span.TraceID)
	finish(nil)
	assert.Equal(t, sentry.SpanStatusOK, span.Status)

	rec.RecordExecution(ctx, "mute", 1, 2, time.Millisecond, nil)
	done("ok")
}
