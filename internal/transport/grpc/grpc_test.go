package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/nadzzz/cutline/internal/daw"
	"github.com/nadzzz/cutline/internal/planner"
	"github.com/nadzzz/cutline/internal/planner/plannertest"
	"github.com/nadzzz/cutline/internal/session"
	"github.com/nadzzz/cutline/internal/tool"
	"github.com/nadzzz/cutline/internal/transport"
)

func serve(t *testing.T, p planner.Planner) (*Client, *grpc.ClientConn) {
	t.Helper()
	proj, ok := daw.Preset("items")
	require.True(t, ok)
	actor := session.NewActor(func(onPhase func(session.Phase)) *session.Session {
		return session.New(proj, p, session.Options{HistoryLimit: 20, OnPhase: onPhase})
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = actor.Run(ctx) }()

	lis := bufconn.Listen(1 << 20)
	tr := New(actor, 0)
	go func() { _ = tr.Serve(lis) }()
	t.Cleanup(func() { _ = tr.Close() })

	dialer := grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
	c, err := Dial("passthrough:///bufnet", dialer)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	raw, err := grpc.NewClient("passthrough:///bufnet", dialer, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return c, raw
}

func TestPipeline_SubmitAndWatch(t *testing.T) {
	c, _ := serve(t, plannertest.New(plannertest.Respond(planner.Planned(
		tool.ToolCall{Name: "fade_in", Args: map[string]any{"seconds": 0.5}},
	))))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events := make(chan session.Event, 8)
	go func() { _ = c.Watch(ctx, func(ev session.Event) { events <- ev }) }()

	// Watch subscribes asynchronously.
	time.Sleep(200 * time.Millisecond)

	out, err := c.Submit(ctx, transport.CommandRequest{Text: "fade in 500ms"})
	require.NoError(t, err)
	assert.Equal(t, session.StatusApplied, out.Status)

	var last session.Event
	for last.Phase != session.PhaseIdle {
		select {
		case last = <-events:
		case <-ctx.Done():
			t.Fatal("no idle event")
		}
	}
	require.NotNil(t, last.Outcome)
	assert.Equal(t, session.StatusApplied, last.Outcome.Status)

	snap, err := c.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, "scripted", snap.Planner)
	assert.NotEmpty(t, snap.History)
}

func TestPipeline_ErrorCodes(t *testing.T) {
	c, _ := serve(t, plannertest.New())
	ctx := context.Background()

	_, err := c.Choose(ctx, "buses")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	assert.Equal(t, codes.InvalidArgument, status.Code(c.SetMode(ctx, "later")))

	_, err = c.Apply(ctx)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	require.NoError(t, c.SetMode(ctx, "preview"))
	require.NoError(t, c.Reset(ctx))
	snap, err := c.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.ModePreview, snap.Mode)
}

func TestHealthService(t *testing.T) {
	_, raw := serve(t, plannertest.New())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(raw).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
