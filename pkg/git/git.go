// Package git holds the few local-repository probes crit needs: everything
// about a pull request's content comes from GitHub, but state placement and
// branch-based PR lookup still ask the local checkout.
package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// IsGitRepo checks if a path is a git repository
func IsGitRepo(path string) bool {
	// Check for .git directory or file (for worktrees)
	gitPath := filepath.Join(path, ".git")
	if info, err := os.Stat(gitPath); err == nil {
		return info.IsDir() || info.Mode().IsRegular()
	}

	// Also check if it's a bare repo (contains HEAD, config, objects)
	headPath := filepath.Join(path, "HEAD")
	configPath := filepath.Join(path, "config")
	objectsPath := filepath.Join(path, "objects")
	if _, err := os.Stat(headPath); err == nil {
		if _, err := os.Stat(configPath); err == nil {
			if info, err := os.Stat(objectsPath); err == nil && info.IsDir() {
				return true
			}
		}
	}

	return false
}

// CurrentBranch returns the checked-out branch of the repository containing
// the working directory.
func CurrentBranch(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "git", "rev-parse", "--abbrev-ref", "HEAD").Output()
	if err != nil {
		return "", errors.Wrap(err, "failed to determine current branch (not in a git repository?)")
	}

	branch := strings.TrimSpace(string(out))
	if branch == "HEAD" {
		return "", errors.New("not on a branch (detached HEAD state)")
	}
	return branch, nil
}
