// Package grpc exposes a session as the gRPC service cutline.v1.Pipeline.
// Messages use a JSON codec (content subtype "json"); the standard
// grpc.health.v1 service is registered alongside.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/nadzzz/cutline/internal/selection"
	"github.com/nadzzz/cutline/internal/session"
	"github.com/nadzzz/cutline/internal/transport"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "cutline.v1.Pipeline"

// Transport implements transport.Transport over gRPC.
type Transport struct {
	svc    transport.Service
	port   int
	server *grpc.Server
	health *health.Server
}

// New creates a gRPC transport for svc.
func New(svc transport.Service, port int) *Transport {
	t := &Transport{svc: svc, port: port, health: health.NewServer()}
	t.server = grpc.NewServer()
	t.server.RegisterService(&serviceDesc, t)
	healthpb.RegisterHealthServer(t.server, t.health)
	t.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	t.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return t
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen serves on the configured port until ctx is cancelled.
func (t *Transport) Listen(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	slog.Info("grpc transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		_ = t.Close()
	}()
	return t.Serve(lis)
}

// Serve serves on lis.
func (t *Transport) Serve(lis net.Listener) error {
	return t.server.Serve(lis)
}

// Close gracefully stops the server.
func (t *Transport) Close() error {
	t.health.Shutdown()
	t.server.GracefulStop()
	return nil
}

func (t *Transport) submit(ctx context.Context, req *transport.CommandRequest) (*session.Outcome, error) {
	return outcome(t.svc.Submit(ctx, req.Text, req.Role()))
}

func (t *Transport) choose(ctx context.Context, req *transport.ChooseRequest) (*session.Outcome, error) {
	target := selection.ParseTarget(req.Target)
	if target == selection.TargetNone {
		return nil, status.Errorf(codes.InvalidArgument, "unknown target %q", req.Target)
	}
	return outcome(t.svc.Choose(ctx, target))
}

func (t *Transport) setMode(ctx context.Context, req *transport.ModeRequest) (*transport.Empty, error) {
	m, err := session.ParseMode(req.Mode)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := t.svc.SetMode(ctx, m); err != nil {
		return nil, toStatus(err)
	}
	return &transport.Empty{}, nil
}

func (t *Transport) reset(ctx context.Context, _ *transport.Empty) (*transport.Empty, error) {
	if err := t.svc.Reset(ctx); err != nil {
		return nil, toStatus(err)
	}
	return &transport.Empty{}, nil
}

func (t *Transport) state(ctx context.Context, _ *transport.Empty) (*session.Snapshot, error) {
	snap, err := t.svc.Snapshot(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &snap, nil
}

func (t *Transport) watch(stream grpc.ServerStream) error {
	var req transport.Empty
	if err := stream.RecvMsg(&req); err != nil {
		return err
	}
	events, cancel := t.svc.Subscribe()
	defer cancel()
	for {
		select {
		case <-stream.Context().Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := stream.SendMsg(&ev); err != nil {
				return err
			}
		}
	}
}

func outcome(out session.Outcome, err error) (*session.Outcome, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	return &out, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, session.ErrNothingPending):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, session.ErrStopped):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
