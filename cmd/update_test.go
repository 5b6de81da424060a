package cmd

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

func TestUpdateCommandFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		flagName     string
		shorthand    string
		defaultValue string
		usageContain string
	}{
		{"check", "c", "false", "Check for updates"},
		{"force", "f", "false", "Force update"},
		{"pre", "p", "false", "pre-release"},
		{"yes", "y", "false", "confirmation"},
	}

	for _, tt := range tests {
		t.Run(tt.flagName, func(t *testing.T) {
			t.Parallel()

			flag := updateCmd.Flags().Lookup(tt.flagName)
			if flag == nil {
				t.Fatalf("update command should have --%s flag", tt.flagName)
			}

			if flag.Shorthand != tt.shorthand {
				t.Errorf("--%s shorthand = %q, want %q", tt.flagName, flag.Shorthand, tt.shorthand)
			}

			if flag.DefValue != tt.defaultValue {
				t.Errorf("--%s default = %q, want %q", tt.flagName, flag.DefValue, tt.defaultValue)
			}

			if !strings.Contains(flag.Usage, tt.usageContain) {
				t.Errorf("--%s usage %q should contain %q", tt.flagName, flag.Usage, tt.usageContain)
			}
		})
	}
}

func TestUpdateCommandDescription(t *testing.T) {
	t.Parallel()

	if updateCmd.Use != "update" {
		t.Errorf("update command Use = %q, want %q", updateCmd.Use, "update")
	}

	if updateCmd.Short == "" {
		t.Error("update command should have Short description")
	}

	// The long description should cover the examples and the mechanics.
	expected := []string{
		"crit update",
		"--check",
		"--yes",
		"--force",
		"--pre",
		"GitHub",
		"releases",
		"checksums",
		"binary",
	}

	for _, want := range expected {
		if !strings.Contains(updateCmd.Long, want) {
			t.Errorf("update command Long description should contain %q", want)
		}
	}
}

func TestConfirmUpdateStdinResponses(t *testing.T) {
	// Not parallel - swaps os.Stdin and os.Stdout.
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"lowercase y", "y\n", true},
		{"uppercase Y", "Y\n", true},
		{"lowercase yes", "yes\n", true},
		{"mixed case Yes", "Yes\n", true},
		{"y with spaces", "  y  \n", true},
		{"n response", "n\n", false},
		{"no response", "no\n", false},
		{"empty response", "\n", false},
		{"garbage input", "asdfasdf\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldStdin := os.Stdin
			defer func() { os.Stdin = oldStdin }()

			r, w, err := os.Pipe()
			if err != nil {
				t.Fatalf("failed to create pipe: %v", err)
			}
			os.Stdin = r

			go func() {
				defer w.Close()
				_, _ = io.WriteString(w, tt.input)
			}()

			// Suppress the prompt.
			oldStdout := os.Stdout
			os.Stdout, _ = os.Create(os.DevNull)
			defer func() { os.Stdout = oldStdout }()

			result := confirmUpdate("1.0.0", "2.0.0")

			if result != tt.expected {
				t.Errorf("confirmUpdate() with input %q = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestConfirmUpdatePrompt(t *testing.T) {
	// Not parallel - swaps os.Stdin and os.Stdout.
	oldStdin := os.Stdin
	oldStdout := os.Stdout
	defer func() {
		os.Stdin = oldStdin
		os.Stdout = oldStdout
	}()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdin = r

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create stdout pipe: %v", err)
	}
	os.Stdout = stdoutW

	go func() {
		defer w.Close()
		_, _ = io.WriteString(w, "n\n")
	}()

	confirmUpdate("dev", "1.0.0")

	stdoutW.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(stdoutR)
	output := buf.String()

	if !strings.Contains(output, "Update crit from dev to 1.0.0? [y/N]: ") {
		t.Errorf("prompt = %q, want it to ask about updating from dev to 1.0.0", output)
	}
}

func TestGetVersion(t *testing.T) {
	t.Parallel()

	if got := GetVersion(); got != Version {
		t.Errorf("GetVersion() = %q, want %q", got, Version)
	}

	// Default is "dev" unless overridden via ldflags.
	if Version == "" {
		t.Error("Version should not be empty")
	}
}

func TestRepoConstants(t *testing.T) {
	t.Parallel()

	if repoOwner != "thoreinstein" {
		t.Errorf("repoOwner = %q, want %q", repoOwner, "thoreinstein")
	}

	if repoName != "crit" {
		t.Errorf("repoName = %q, want %q", repoName, "crit")
	}
}

func TestUpdateCommandRegistered(t *testing.T) {
	t.Parallel()

	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "update" {
			found = true
			break
		}
	}

	if !found {
		t.Error("update command should be registered with rootCmd")
	}

	if updateCmd.RunE == nil {
		t.Error("update command should have RunE set for error handling")
	}
}

func TestUpdateSkipLogic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		isDevVersion    bool
		latestLessEqual bool
		forceUpdate     bool
		wantSkip        bool
	}{
		{"dev version always updates", true, false, false, false},
		{"current equals latest without force", false, true, false, true},
		{"current equals latest with force", false, true, true, false},
		{"newer version available", false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Mirrors the skip decision in runUpdateCommand.
			skip := !tt.isDevVersion && tt.latestLessEqual && !tt.forceUpdate

			if skip != tt.wantSkip {
				t.Errorf("skip = %v, want %v", skip, tt.wantSkip)
			}
		})
	}
}

func TestUpdateCommandInheritsPersistentFlags(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"verbose", "config"} {
		if updateCmd.Flag(name) == nil {
			t.Errorf("update command should inherit --%s persistent flag from root", name)
		}
	}
}
