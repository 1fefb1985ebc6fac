// Package cmd implements the lorewarden command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lorewarden",
	Short: "lorewarden - a domain-restricted AI chat agent",
	Long: `lorewarden answers questions strictly from a fixed knowledge base and
refuses everything else. Conversations are persisted across restarts.

Run "lorewarden serve" to start the HTTP API, or "lorewarden ask" for a
one-shot question from the terminal.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
