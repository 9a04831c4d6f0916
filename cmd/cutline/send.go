package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nadzzz/cutline/internal/session"
	"github.com/nadzzz/cutline/internal/transport"
	grpctransport "github.com/nadzzz/cutline/internal/transport/grpc"
)

func newSendCmd() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
		apply   bool
	)
	cmd := &cobra.Command{
		Use:   "send <command>",
		Short: "Submit one command to a running daemon over gRPC",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := grpctransport.Dial(addr)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			out, err := c.Submit(ctx, transport.CommandRequest{Text: strings.Join(args, " ")})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if out.Preview != "" {
				fmt.Fprintln(w, out.Preview)
			}
			fmt.Fprintln(w, out.Message)
			if apply && out.Status == session.StatusPending {
				applied, err := c.Apply(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, applied.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:50051", "gRPC address of the daemon")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall request timeout")
	cmd.Flags().BoolVar(&apply, "apply", false, "apply the plan immediately when the daemon is in preview mode")
	return cmd
}
