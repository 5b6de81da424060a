package cmd

import (
	"github.com/spf13/cobra"
)

// prCmd is the parent command for PR operations.
var prCmd = &cobra.Command{
	Use:   "pr",
	Short: "Inspect pull requests",
	Long: `Inspect GitHub pull requests without entering the review shell.

Examples:
  crit pr list                 # List open PRs
  crit pr list --state all     # List all PRs
  crit pr view 123             # View PR #123
  crit pr view --comments      # Current branch's PR, with pending comments`,
}

func init() {
	rootCmd.AddCommand(prCmd)
}
