// Package client contains Cobra CLI commands for inspecting a running stream.
package client

import (
	"github.com/spf13/cobra"
)

// BaseURLFunc provides the base HTTP URL of the stream server.
type BaseURLFunc func() string

// NewRoot constructs the root command and registers the tail and stats subcommands.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "streamctl",
		Short:         "User stream client commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(NewTailCommand(baseURL))
	root.AddCommand(NewStatsCommand(baseURL))
	return root
}
