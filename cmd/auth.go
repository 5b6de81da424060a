package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/term"

	criterrors "thoreinstein.com/crit/pkg/errors"
	"thoreinstein.com/crit/pkg/github"
)

// authCmd is the parent command for GitHub authentication.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage GitHub authentication",
	Long: `Manage the GitHub credentials crit submits reviews with.

Examples:
  crit auth login    # OAuth device flow, or a prompted token
  crit auth status   # Show which credential source is active
  crit auth logout   # Clear cached credentials`,
}

// authLoginCmd authenticates and caches the credential.
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with GitHub",
	Long: `Authenticate with GitHub and cache the credential.

With github.client_id configured, runs the OAuth device flow: crit shows a
one-time code, you enter it at GitHub's verification URL, and the resulting
token is stored in the system keychain (file fallback on headless systems).
Without a client ID, prompts for a personal access token with the 'repo'
scope and caches that instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuthLogin(cmd)
	},
}

// authStatusCmd reports the active credential source.
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	Long: `Show which credential source crit would use, in resolution order:
GITHUB_TOKEN, CRIT_GITHUB_TOKEN, github.token in config, the cached OAuth
token, then the gh CLI.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuthStatus()
	},
}

// authLogoutCmd clears cached credentials.
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear cached GitHub credentials",
	Long: `Remove the cached OAuth or personal access token.

Tokens provided via environment variables or the config file are not
touched; unset those separately.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuthLogout()
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
}

func runAuthLogin(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	cache := github.NewTokenCache()

	if cfg.GitHub.ClientID != "" {
		token, err := github.DeviceAuth(cmd.Context(), github.OAuthConfig{
			ClientID: cfg.GitHub.ClientID,
			HostURL:  cfg.GitHub.Host,
		}, os.Stdout)
		if err != nil {
			fmt.Println(criterrors.FormatUserError(err))
			return err
		}

		if err := cache.Set(&oauth2.Token{AccessToken: token.Token, TokenType: "bearer"}); err != nil {
			return errors.Wrap(err, "failed to cache token")
		}
		fmt.Println("Logged in via OAuth device flow.")
		return nil
	}

	fmt.Print("GitHub personal access token (repo scope): ")
	input, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return errors.Wrap(err, "failed to read token")
	}

	token := strings.TrimSpace(string(input))
	if token == "" {
		return errors.New("no token entered")
	}

	if err := cache.Set(&oauth2.Token{AccessToken: token, TokenType: "bearer"}); err != nil {
		return errors.Wrap(err, "failed to cache token")
	}
	fmt.Println("Token saved.")
	return nil
}

func runAuthStatus() error {
	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	if os.Getenv("GITHUB_TOKEN") != "" {
		fmt.Println("Authenticated via the GITHUB_TOKEN environment variable.")
		return nil
	}
	if os.Getenv("CRIT_GITHUB_TOKEN") != "" {
		fmt.Println("Authenticated via the CRIT_GITHUB_TOKEN environment variable.")
		return nil
	}
	if cfg.GitHub.Token != "" {
		fmt.Println("Authenticated via github.token in the config file.")
		return nil
	}

	cache := github.NewTokenCache()
	if token, err := cache.Get(); err == nil && token != nil && token.AccessToken != "" {
		fmt.Println("Authenticated via a cached OAuth token.")
		return nil
	}

	if cli, err := github.NewCLIClient(verbose); err == nil && cli.IsAuthenticated() {
		fmt.Println("Authenticated via the gh CLI.")
		return nil
	}

	fmt.Println("Not authenticated. Run 'crit auth login', or install and authenticate the gh CLI.")
	return nil
}

func runAuthLogout() error {
	cache := github.NewTokenCache()
	if err := cache.Clear(); err != nil {
		return errors.Wrap(err, "failed to clear cached credentials")
	}
	fmt.Println("Cleared cached GitHub credentials.")
	return nil
}
