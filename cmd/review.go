package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"thoreinstein.com/crit/pkg/ai"
	"thoreinstein.com/crit/pkg/config"
	criterrors "thoreinstein.com/crit/pkg/errors"
	"thoreinstein.com/crit/pkg/github"
	"thoreinstein.com/crit/pkg/macro"
	"thoreinstein.com/crit/pkg/reviewlog"
	"thoreinstein.com/crit/pkg/session"
	"thoreinstein.com/crit/pkg/shell"
)

// reviewCmd starts the interactive review shell.
var reviewCmd = &cobra.Command{
	Use:   "review [pr-number]",
	Short: "Start the interactive review shell",
	Long: `Start the interactive pull request review shell.

The shell keeps a persistent session per repository: the selected PR, the
file cursor, and any comments you have not submitted yet survive restarts.
Type 'help' inside the shell for the command list.

Examples:
  crit review        # Resume the saved session, or start fresh
  crit review 42     # Select PR #42 on startup`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number := 0
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return errors.Newf("invalid PR number: %q", args[0])
			}
			number = n
		}
		return runReview(cmd.Context(), number)
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func runReview(ctx context.Context, number int) error {
	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	ghClient, err := github.NewClient(&cfg.GitHub, verbose)
	if err != nil {
		fmt.Println(criterrors.FormatUserError(err))
		return err
	}

	store := session.NewStore(session.DefaultDir())
	state, err := store.LoadSession()
	if err != nil {
		fmt.Println(criterrors.FormatUserError(err))
		return err
	}
	history, err := store.LoadHistory(cfg.History.MaxEntries)
	if err != nil {
		fmt.Println(criterrors.FormatUserError(err))
		return err
	}

	env := &shell.Env{
		Config:  cfg,
		GitHub:  ghClient,
		State:   state,
		History: history,
		Store:   store,
		Verbose: verbose,
		Out:     os.Stdout,
	}

	// Both side surfaces are optional: the shell reviews fine without an
	// assistant or a submission log.
	if provider, aiErr := ai.NewProvider(&cfg.AI, verbose); aiErr == nil {
		env.AI = provider
	} else if verbose {
		fmt.Fprintf(os.Stderr, "Warning: AI assistant unavailable: %v\n", aiErr)
	}

	if reviews, logErr := reviewlog.Open(reviewLogPath(cfg), verbose); logErr == nil {
		env.Reviews = reviews
		defer reviews.Close()
	} else if verbose {
		fmt.Fprintf(os.Stderr, "Warning: review log unavailable: %v\n", logErr)
	}

	s, err := shell.New(env)
	if err != nil {
		return err
	}
	registerMacroPacks(s, cfg)

	// A PR number on the command line runs through the same path as typing
	// 'pr N' at the prompt. Failure leaves the shell usable.
	if number > 0 {
		if err := s.Dispatcher().Dispatch(ctx, env, fmt.Sprintf("pr %d", number)); err != nil {
			fmt.Println(criterrors.FormatUserError(err))
		}
	}

	return s.Run(ctx)
}

// registerMacroPacks scans for macro packs and registers their commands into
// the shell. Scan failures never block the review loop.
func registerMacroPacks(s *shell.Shell, cfg *config.Config) {
	if !cfg.Macros.Enabled {
		return
	}

	scanner, err := newMacroScanner()
	if err != nil {
		if verbose {
			fmt.Fprintf(os.Stderr, "Warning: failed to initialize macro scanner: %v\n", err)
		}
		return
	}

	result, err := scanner.Scan()
	if err != nil {
		if verbose {
			fmt.Fprintf(os.Stderr, "Warning: macro scan failed: %v\n", err)
		}
		return
	}

	for _, p := range result.Packs {
		_ = macro.ValidateCompatibility(p, GetVersion())
	}
	macro.Disable(result.Packs, cfg.Macros.Disabled)

	s.RegisterMacros(result.Packs)
}
