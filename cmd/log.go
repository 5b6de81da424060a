package cmd

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"thoreinstein.com/crit/pkg/reviewlog"
)

var (
	logRepo  string
	logSince string
	logLimit int
)

// logCmd queries the submitted-review log.
var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show submitted reviews",
	Long: `Query the log of reviews submitted through crit.

Every successful 'submit' in the review shell records the repository, PR
number, review event, comment count, and summary in a local database.

Examples:
  crit log                          # Recent submissions
  crit log --repo octocat/hello     # One repository
  crit log --since 2026-08-01       # Submitted on or after a date
  crit log --limit 5`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLogCommand(cmd)
	},
}

func init() {
	rootCmd.AddCommand(logCmd)

	logCmd.Flags().StringVar(&logRepo, "repo", "", "Filter by repository (owner/name)")
	logCmd.Flags().StringVar(&logSince, "since", "", "Start time (YYYY-MM-DD HH:MM or YYYY-MM-DD)")
	logCmd.Flags().IntVar(&logLimit, "limit", 20, "Maximum number of submissions to show")
}

func runLogCommand(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	reviews, err := reviewlog.Open(reviewLogPath(cfg), verbose)
	if err != nil {
		return errors.Wrap(err, "failed to open review log")
	}
	defer reviews.Close()

	options := reviewlog.QueryOptions{
		Repo:  logRepo,
		Limit: logLimit,
	}
	if logSince != "" {
		since, err := parseTimeString(logSince)
		if err != nil {
			return errors.Wrap(err, "invalid --since time")
		}
		options.Since = &since
	}

	submissions, err := reviews.Query(cmd.Context(), options)
	if err != nil {
		return errors.Wrap(err, "failed to query review log")
	}

	if len(submissions) == 0 {
		fmt.Println("No submitted reviews found.")
		return nil
	}

	fmt.Printf("Found %d submitted review(s):\n\n", len(submissions))

	for i, s := range submissions {
		fmt.Printf("%3d. %s #%d  %s  %d comment(s)  %s\n",
			i+1, s.Repo, s.PR, strings.ToLower(s.Event), s.Comments, humanize.Time(s.SubmittedAt))

		if s.Summary != "" {
			summary := s.Summary
			if len(summary) > 80 {
				summary = summary[:77] + "..."
			}
			fmt.Printf("     %s\n", summary)
		}
	}

	return nil
}
