package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "llm4arxiv",
		Short: "llm4arxiv fetches, ranks, and summarizes recent arXiv papers into a digest.",
		Long: `llm4arxiv runs a scheduled research digest pipeline: it queries the arXiv
Atom API for each configured topic, ranks the candidates against weighted
relevance dimensions, runs a staged reading protocol over the selected
papers, and publishes the results as a static site and an optional email
digest.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewValidateCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
