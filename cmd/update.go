package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

// Version is the running crit version, overridden at build time:
//
//	go build -ldflags "-X thoreinstein.com/crit/cmd.Version=v1.2.3"
var Version = "dev"

const (
	repoOwner = "thoreinstein"
	repoName  = "crit"
)

// GetVersion returns the running crit version.
func GetVersion() string {
	return Version
}

var (
	updateCheck bool
	updateForce bool
	updatePre   bool
	updateYes   bool
)

// versionCmd prints the running crit version.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the crit version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("crit version %s\n", Version)
	},
}

// updateCmd updates crit to the latest release.
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update crit to the latest version",
	Long: `Update crit by downloading the latest release binary from GitHub.

The update checks the GitHub releases of ` + repoOwner + `/` + repoName + `,
compares versions, verifies release checksums, and replaces the current
binary in place. Development builds ("dev") always offer the newest release.

Examples:
  crit update           # Update to the latest release
  crit update --check   # Only check whether an update exists
  crit update --yes     # Update without the confirmation prompt
  crit update --force   # Reinstall even when already up to date
  crit update --pre     # Include pre-release versions`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUpdateCommand(cmd)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().BoolVarP(&updateCheck, "check", "c", false, "Check for updates without installing")
	updateCmd.Flags().BoolVarP(&updateForce, "force", "f", false, "Force update even when already on the latest version")
	updateCmd.Flags().BoolVarP(&updatePre, "pre", "p", false, "Include pre-release versions")
	updateCmd.Flags().BoolVarP(&updateYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runUpdateCommand(cmd *cobra.Command) error {
	ctx := cmd.Context()

	updater, err := selfupdate.NewUpdater(selfupdate.Config{Prerelease: updatePre})
	if err != nil {
		return errors.Wrap(err, "failed to initialize updater")
	}

	latest, found, err := updater.DetectLatest(ctx, selfupdate.NewRepositorySlug(repoOwner, repoName))
	if err != nil {
		return errors.Wrap(err, "failed to check for updates")
	}
	if !found {
		return errors.Newf("no release found for %s/%s", repoOwner, repoName)
	}

	// "dev" is not a comparable version; dev builds always see the newest
	// release as an update.
	isDevVersion := Version == "dev"

	if updateCheck {
		fmt.Printf("Current version: %s\n", Version)
		fmt.Printf("Latest version:  %s\n", latest.Version())
		if !isDevVersion && latest.LessOrEqual(Version) {
			fmt.Println("crit is up to date.")
		} else {
			fmt.Println("An update is available. Run 'crit update' to install it.")
		}
		return nil
	}

	if !isDevVersion && latest.LessOrEqual(Version) && !updateForce {
		fmt.Printf("crit is up to date (%s).\n", Version)
		return nil
	}

	if !updateYes && !confirmUpdate(Version, latest.Version()) {
		fmt.Println("Update cancelled.")
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, "could not locate executable path")
	}

	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return errors.Wrap(err, "update failed")
	}

	fmt.Printf("Successfully updated to version %s\n", latest.Version())
	return nil
}

// confirmUpdate asks for confirmation before replacing the binary.
func confirmUpdate(currentVersion, newVersion string) bool {
	fmt.Printf("Update crit from %s to %s? [y/N]: ", currentVersion, newVersion)

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
