package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	criterrors "thoreinstein.com/crit/pkg/errors"
	"thoreinstein.com/crit/pkg/github"
)

// ListOptions holds the pr list filters.
type ListOptions struct {
	State  string
	Author string
	Limit  int
}

var prListOpts ListOptions

// prListCmd lists pull requests.
var prListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pull requests",
	Long: `List pull requests for the current repository.

Filters:
  --state:  Filter by state (open, closed, merged, all)
  --author: Filter by author login (@me for yourself)
  --limit:  Maximum number of PRs to show

Examples:
  crit pr list                  # List open PRs
  crit pr list --state all      # List all PRs
  crit pr list --author @me     # List your PRs`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return errors.Wrap(err, "failed to load configuration")
		}

		ghClient, err := github.NewClient(&cfg.GitHub, verbose)
		if err != nil {
			fmt.Println(criterrors.FormatUserError(err))
			return err
		}

		return runPRList(prListOpts, ghClient)
	},
}

func init() {
	prCmd.AddCommand(prListCmd)

	prListCmd.Flags().StringVarP(&prListOpts.State, "state", "s", "open", "Filter by state (open, closed, merged, all)")
	prListCmd.Flags().StringVarP(&prListOpts.Author, "author", "a", "", "Filter by author login (@me for yourself)")
	prListCmd.Flags().IntVarP(&prListOpts.Limit, "limit", "n", 30, "Maximum number of PRs to show")
}

func runPRList(opts ListOptions, ghClient github.Client) error {
	ctx := context.Background()

	if verbose {
		fmt.Printf("Listing PRs with state: %s\n", opts.State)
	}

	prs, err := ghClient.ListPRs(ctx, github.ListPRsOptions{
		State:  opts.State,
		Author: opts.Author,
		Limit:  opts.Limit,
	})
	if err != nil {
		fmt.Println(criterrors.FormatUserError(err))
		return err
	}

	if len(prs) == 0 {
		fmt.Println("No pull requests found.")
		return nil
	}

	displayPRList(prs)
	return nil
}

// displayPRList formats and prints a list of PRs.
func displayPRList(prs []github.PRInfo) {
	const maxTitleWidth = 50

	fmt.Println()
	fmt.Printf("%-5s  %-6s  %-*s  %-15s  %s\n",
		"#", "STATE", maxTitleWidth, "TITLE", "AUTHOR", "UPDATED")
	fmt.Println(strings.Repeat("-", 100))

	for _, pr := range prs {
		// Truncate title if too long
		title := pr.Title
		if len(title) > maxTitleWidth {
			title = title[:maxTitleWidth-3] + "..."
		}

		fmt.Printf("#%-4d  %-6s  %-*s  %-15s  %s\n",
			pr.Number,
			formatState(pr.State, pr.Draft),
			maxTitleWidth, title,
			pr.Author,
			humanize.Time(pr.UpdatedAt),
		)
	}

	fmt.Printf("\nTotal: %d PR(s)\n", len(prs))
}

// formatState returns a formatted state string.
func formatState(state string, isDraft bool) string {
	s := strings.ToLower(state)
	if isDraft && s == "open" {
		return "draft"
	}
	return s
}
