package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/nadzzz/cutline/internal/session"
	"github.com/nadzzz/cutline/internal/transport"
)

// unary adapts a typed method to grpc.MethodDesc's handler shape.
func unary[Req any, Resp any](method string, fn func(*Transport, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			t := srv.(*Transport)
			if interceptor == nil {
				return fn(t, ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			return interceptor(ctx, req, info, func(ctx context.Context, r any) (any, error) {
				return fn(t, ctx, r.(*Req))
			})
		},
	}
}

func noArgs(op func(transport.Service) func(context.Context) (session.Outcome, error)) func(*Transport, context.Context, *transport.Empty) (*session.Outcome, error) {
	return func(t *Transport, ctx context.Context, _ *transport.Empty) (*session.Outcome, error) {
		return outcome(op(t.svc)(ctx))
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		unary("Submit", (*Transport).submit),
		unary("Choose", (*Transport).choose),
		unary("Apply", noArgs(func(s transport.Service) func(context.Context) (session.Outcome, error) { return s.Apply })),
		unary("Discard", noArgs(func(s transport.Service) func(context.Context) (session.Outcome, error) { return s.Discard })),
		unary("Undo", noArgs(func(s transport.Service) func(context.Context) (session.Outcome, error) { return s.Undo })),
		unary("Reset", (*Transport).reset),
		unary("SetMode", (*Transport).setMode),
		unary("State", (*Transport).state),
	},
	Streams: []grpc.StreamDesc{{
		StreamName:    "Watch",
		ServerStreams: true,
		Handler: func(srv any, stream grpc.ServerStream) error {
			return srv.(*Transport).watch(stream)
		},
	}},
	Metadata: "cutline/v1/pipeline",
}
