package cmd

import (
	"time"

	"github.com/cockroachdb/errors"

	"thoreinstein.com/crit/pkg/bootstrap"
	"thoreinstein.com/crit/pkg/config"
	"thoreinstein.com/crit/pkg/macro"
	"thoreinstein.com/crit/pkg/reviewlog"
)

// reviewLogPath returns the submitted-review database path.
func reviewLogPath(cfg *config.Config) string {
	if cfg.Review.LogPath != "" {
		return cfg.Review.LogPath
	}
	return reviewlog.DefaultPath()
}

// newMacroScanner builds a pack scanner, adding the project root when run
// inside a git repository.
func newMacroScanner() (*macro.Scanner, error) {
	if gitRoot, err := bootstrap.FindGitRoot(); err == nil && gitRoot != "" {
		return macro.NewScannerWithProjectRoot(gitRoot)
	}
	return macro.NewScanner()
}

// parseTimeString parses "YYYY-MM-DD HH:MM" or "YYYY-MM-DD" in local time.
func parseTimeString(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Newf("invalid time %q (expected YYYY-MM-DD or YYYY-MM-DD HH:MM)", s)
}
