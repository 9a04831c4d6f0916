package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configFile string
	root := &cobra.Command{
		Use:   "cutline",
		Short: "Natural-language editing commands for a DAW",
		Long: `Cutline turns commands like "fade out the last two seconds" into a
validated plan of DAW tool calls and applies it as a single undo step.

Available commands:
  serve    - run the daemon (HTTP, WebSocket, gRPC)
  repl     - interactive console against an in-memory project
  send     - submit one command to a running daemon over gRPC
  version  - print the version`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (e.g. configs/cutline.yaml)")

	root.AddCommand(newServeCmd(&configFile))
	root.AddCommand(newReplCmd(&configFile))
	root.AddCommand(newSendCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cutline %s\n", version)
		},
	})
	return root
}
