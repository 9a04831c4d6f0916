package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nadzzz/cutline/internal/session"
	"github.com/nadzzz/cutline/internal/transport"
)

// Client calls a remote cutline.v1.Pipeline.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to target (host:port) without TLS.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

// Close releases the connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) call(ctx context.Context, method string, req, resp any) error {
	return c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp)
}

func (c *Client) outcome(ctx context.Context, method string, req any) (session.Outcome, error) {
	var out session.Outcome
	err := c.call(ctx, method, req, &out)
	return out, err
}

// Submit sends a command.
func (c *Client) Submit(ctx context.Context, req transport.CommandRequest) (session.Outcome, error) {
	return c.outcome(ctx, "Submit", &req)
}

// Choose answers a target question.
func (c *Client) Choose(ctx context.Context, target string) (session.Outcome, error) {
	return c.outcome(ctx, "Choose", &transport.ChooseRequest{Target: target})
}

// Apply runs the pending plan.
func (c *Client) Apply(ctx context.Context) (session.Outcome, error) {
	return c.outcome(ctx, "Apply", &transport.Empty{})
}

// Discard drops the pending plan.
func (c *Client) Discard(ctx context.Context) (session.Outcome, error) {
	return c.outcome(ctx, "Discard", &transport.Empty{})
}

// Undo reverts the last command.
func (c *Client) Undo(ctx context.Context) (session.Outcome, error) {
	return c.outcome(ctx, "Undo", &transport.Empty{})
}

// Reset clears the remote session.
func (c *Client) Reset(ctx context.Context) error {
	return c.call(ctx, "Reset", &transport.Empty{}, &transport.Empty{})
}

// SetMode switches the execution mode.
func (c *Client) SetMode(ctx context.Context, mode string) error {
	return c.call(ctx, "SetMode", &transport.ModeRequest{Mode: mode}, &transport.Empty{})
}

// State fetches the session snapshot.
func (c *Client) State(ctx context.Context) (session.Snapshot, error) {
	var snap session.Snapshot
	err := c.call(ctx, "State", &transport.Empty{}, &snap)
	return snap, err
}

// Watch streams session events until ctx is cancelled or the stream ends.
func (c *Client) Watch(ctx context.Context, fn func(session.Event)) error {
	stream, err := c.conn.NewStream(ctx, &serviceDesc.Streams[0], "/"+ServiceName+"/Watch")
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&transport.Empty{}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		var ev session.Event
		if err := stream.RecvMsg(&ev); err != nil {
			return err
		}
		fn(ev)
	}
}
