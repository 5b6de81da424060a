package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	criterrors "thoreinstein.com/crit/pkg/errors"
	"thoreinstein.com/crit/pkg/git"
	"thoreinstein.com/crit/pkg/github"
	"thoreinstein.com/crit/pkg/session"
)

// ViewOptions holds the pr view arguments.
type ViewOptions struct {
	Number   int
	Comments bool
}

var prViewComments bool

// prViewCmd displays pull request details.
var prViewCmd = &cobra.Command{
	Use:   "view [number]",
	Short: "View pull request details",
	Long: `View details for a pull request.

If no PR number is provided, finds the PR for the current branch.

Displays:
  - Title, state, and branches
  - Reviewers and approval status
  - CI checks status
  - Mergeable state
  - With --comments, the saved session's pending review comments

Examples:
  crit pr view              # View PR for current branch
  crit pr view 123          # View PR #123
  crit pr view --comments   # Include your unsubmitted comments`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := ViewOptions{Comments: prViewComments}
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.Wrap(err, "invalid PR number")
			}
			opts.Number = n
		}

		cfg, err := loadConfig()
		if err != nil {
			return errors.Wrap(err, "failed to load configuration")
		}

		ghClient, err := github.NewClient(&cfg.GitHub, verbose)
		if err != nil {
			fmt.Println(criterrors.FormatUserError(err))
			return err
		}

		return runPRView(opts, ghClient, session.NewStore(session.DefaultDir()))
	},
}

func init() {
	prCmd.AddCommand(prViewCmd)

	prViewCmd.Flags().BoolVar(&prViewComments, "comments", false, "Show pending review comments from the saved session")
}

func runPRView(opts ViewOptions, ghClient github.Client, store *session.Store) error {
	ctx := context.Background()

	number := opts.Number
	if number == 0 {
		var err error
		number, err = findPRForCurrentBranch(ctx, ghClient)
		if err != nil {
			return err
		}
	}

	pr, err := ghClient.GetPR(ctx, number)
	if err != nil {
		fmt.Println(criterrors.FormatUserError(err))
		return err
	}

	displayPRInfo(pr)

	if opts.Comments {
		displayPendingComments(pr.Number, store)
	}

	return nil
}

// findPRForCurrentBranch finds the PR associated with the current git branch.
func findPRForCurrentBranch(ctx context.Context, ghClient github.Client) (int, error) {
	branch, err := git.CurrentBranch(ctx)
	if err != nil {
		return 0, err
	}

	if verbose {
		fmt.Printf("Looking for PR with head branch: %s\n", branch)
	}

	prs, err := ghClient.ListPRs(ctx, github.ListPRsOptions{State: "open"})
	if err != nil {
		return 0, errors.Wrap(err, "failed to list PRs")
	}

	for _, pr := range prs {
		if pr.HeadBranch == branch {
			return pr.Number, nil
		}
	}

	return 0, errors.Newf("no open PR found for branch '%s'", branch)
}

// displayPRInfo formats and prints PR information.
func displayPRInfo(pr *github.PRInfo) {
	fmt.Printf("\n#%d: %s\n", pr.Number, pr.Title)
	if pr.URL != "" {
		fmt.Printf("URL: %s\n", pr.URL)
	}
	fmt.Println(strings.Repeat("-", 60))

	fmt.Printf("State:     %s %s", stateToIcon(pr.State), pr.State)
	if pr.Draft {
		fmt.Print(" (draft)")
	}
	fmt.Println()

	fmt.Printf("Author:    %s\n", pr.Author)
	fmt.Printf("Branches:  %s -> %s\n", pr.HeadBranch, pr.BaseBranch)
	fmt.Printf("Changes:   %d files (+%d -%d)\n", pr.ChangedFiles, pr.Additions, pr.Deletions)

	reviewIcon := "?"
	reviewStatus := "Pending"
	if pr.Approved {
		reviewIcon = checkMark()
		reviewStatus = "Approved"
	} else if len(pr.Reviewers) > 0 {
		reviewIcon = "..."
		reviewStatus = fmt.Sprintf("Waiting (%s)", strings.Join(pr.Reviewers, ", "))
	}
	fmt.Printf("Reviews:   %s %s\n", reviewIcon, reviewStatus)

	var checksIcon, checksStatus string
	if pr.ChecksPassing {
		checksIcon = checkMark()
		checksStatus = "Passing"
	} else {
		checksIcon = crossMark()
		checksStatus = "Failing"
	}
	fmt.Printf("Checks:    %s %s\n", checksIcon, checksStatus)

	mergeIcon := "?"
	mergeStatus := pr.Mergeable
	if pr.IsMergeable() {
		mergeIcon = checkMark()
		mergeStatus = "No conflicts"
	} else if pr.Mergeable == "CONFLICTING" {
		mergeIcon = crossMark()
		mergeStatus = "Has conflicts"
	}
	fmt.Printf("Mergeable: %s %s\n", mergeIcon, mergeStatus)

	// Body preview
	if pr.Body != "" {
		fmt.Println(strings.Repeat("-", 60))
		body := pr.Body
		if len(body) > 500 {
			body = body[:500] + "..."
		}
		fmt.Println(body)
	}

	fmt.Println()
}

// displayPendingComments prints the saved session's comments for the PR.
func displayPendingComments(number int, store *session.Store) {
	state, err := store.LoadSession()
	if err != nil {
		fmt.Println(criterrors.FormatUserError(err))
		return
	}
	if state.PR == nil || *state.PR != number {
		fmt.Println("No saved review session for this PR.")
		return
	}

	comments := state.AllComments()
	if len(comments) == 0 {
		fmt.Println("No review comments in the saved session.")
		return
	}

	fmt.Printf("Review comments (%d):\n", len(comments))
	for _, c := range comments {
		marker := " "
		if c.Status == session.StatusPushed {
			marker = checkMark()
		}
		if c.Path != "" {
			fmt.Printf("  %s %s:%d  %s\n", marker, c.Path, c.Line, c.Body)
		} else {
			fmt.Printf("  %s (review)  %s\n", marker, c.Body)
		}
	}
	fmt.Println()
}

// stateToIcon returns an icon for the PR state.
func stateToIcon(state string) string {
	switch strings.ToUpper(state) {
	case "OPEN":
		return "O"
	case "CLOSED":
		return crossMark()
	case "MERGED":
		return checkMark()
	default:
		return "?"
	}
}

// checkMark returns a check mark symbol.
func checkMark() string {
	return "✓" // ✓
}

// crossMark returns a cross mark symbol.
func crossMark() string {
	return "✗" // ✗
}
