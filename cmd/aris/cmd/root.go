// Package cmd provides the CLI commands for the aris server.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/aris-rag/aris/pkg/version"
)

var configPath string

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aris",
		Short: "Retrieval and answer-generation service",
		Long: `ARIS serves hybrid retrieval (BM25 + dense vectors fused with RRF)
and LLM answer generation over HTTP.

Run 'aris serve' to start the server.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}
