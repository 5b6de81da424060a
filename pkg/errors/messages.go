package errors

import (
	"fmt"
	"strings"
)

// FormatUserError returns a user-friendly error message with actionable guidance.
// It examines the error chain and provides context-appropriate help text.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	// Check for ConfigError
	var configErr *ConfigError
	if As(err, &configErr) {
		return formatConfigError(configErr)
	}

	// Check for GitHubError
	var ghErr *GitHubError
	if As(err, &ghErr) {
		return formatGitHubError(ghErr)
	}

	// Check for AIError
	var aiErr *AIError
	if As(err, &aiErr) {
		return formatAIError(aiErr)
	}

	// Check for SessionError
	var sessErr *SessionError
	if As(err, &sessErr) {
		return formatSessionError(sessErr)
	}

	// Check for MacroError before DispatchError: a failing macro step wraps
	// the step's dispatch error, and the pack context is the useful part.
	var macroErr *MacroError
	if As(err, &macroErr) {
		return formatMacroError(macroErr)
	}

	// Check for DispatchError
	var dispErr *DispatchError
	if As(err, &dispErr) {
		return formatDispatchError(dispErr)
	}

	// Default: return the error message as-is
	return err.Error()
}

// formatConfigError formats a ConfigError with actionable guidance.
func formatConfigError(err *ConfigError) string {
	var b strings.Builder

	if err.Field != "" {
		fmt.Fprintf(&b, "Configuration error in '%s': %s\n", err.Field, err.Message)
	} else {
		fmt.Fprintf(&b, "Configuration error: %s\n", err.Message)
	}

	b.WriteString("\nTo fix this:\n")
	b.WriteString("  • Check your config file: ~/.config/crit/config.toml\n")
	b.WriteString("  • Run 'crit --verbose' to see which config file is in use\n")

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

// formatGitHubError formats a GitHubError with actionable guidance based on status code.
func formatGitHubError(err *GitHubError) string {
	var b strings.Builder

	fmt.Fprintf(&b, "GitHub error during %s: %s\n", err.Operation, err.Message)

	switch err.StatusCode {
	case 401:
		b.WriteString("\nAuthentication failed. To fix this:\n")
		b.WriteString("  • Run 'crit auth login' to configure GitHub authentication\n")
		b.WriteString("  • Or set the CRIT_GITHUB_TOKEN environment variable\n")
		b.WriteString("  • Ensure your token has the required scopes (repo)\n")

	case 403:
		b.WriteString("\nPermission denied. To fix this:\n")
		b.WriteString("  • Ensure you have access to this repository\n")
		b.WriteString("  • Check that your token has the 'repo' scope\n")
		b.WriteString("  • If using SSO, ensure the token is authorized for your organization\n")

	case 404:
		b.WriteString("\nResource not found. To fix this:\n")
		b.WriteString("  • Verify the repository name and owner are correct\n")
		b.WriteString("  • Ensure the PR exists and is accessible\n")
		b.WriteString("  • Check that you have access to the repository\n")

	case 422:
		b.WriteString("\nValidation failed. To fix this:\n")
		b.WriteString("  • Line comments must target lines present in the diff\n")
		b.WriteString("  • You cannot approve your own pull request\n")
		b.WriteString("  • Review the error message for specific field issues\n")

	case 429:
		b.WriteString("\nRate limit exceeded. To fix this:\n")
		b.WriteString("  • Wait a few minutes before retrying\n")
		b.WriteString("  • Consider using a GitHub App for higher rate limits\n")

	case 500, 502, 503, 504:
		b.WriteString("\nGitHub server error. To fix this:\n")
		b.WriteString("  • Wait a few moments and try again\n")
		b.WriteString("  • Check GitHub Status: https://www.githubstatus.com\n")
	}

	if err.Retryable {
		b.WriteString("\nThis error may be temporary. The operation will be retried automatically.\n")
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

// formatAIError formats an AIError with actionable guidance based on status code.
func formatAIError(err *AIError) string {
	var b strings.Builder

	fmt.Fprintf(&b, "AI provider error (%s) during %s: %s\n", err.Provider, err.Operation, err.Message)

	switch err.StatusCode {
	case 401:
		fmt.Fprintf(&b, "\nAuthentication failed with %s. To fix this:\n", err.Provider)
		b.WriteString("  • Set the appropriate API key environment variable\n")
		b.WriteString("  • Or set ai.api_key in ~/.config/crit/config.toml\n")
		b.WriteString("  • Verify your API key is valid and not expired\n")

	case 403:
		fmt.Fprintf(&b, "\nAccess denied by %s. To fix this:\n", err.Provider)
		b.WriteString("  • Check your API key permissions\n")
		b.WriteString("  • Verify your account is in good standing\n")
		b.WriteString("  • Ensure the model you're using is available to your account tier\n")

	case 429:
		fmt.Fprintf(&b, "\n%s rate limit exceeded. To fix this:\n", err.Provider)
		b.WriteString("  • Wait a few minutes before retrying\n")
		b.WriteString("  • Consider upgrading your API tier for higher limits\n")
		b.WriteString("  • Reduce request frequency\n")

	case 500, 502, 503, 504:
		fmt.Fprintf(&b, "\n%s server error. To fix this:\n", err.Provider)
		b.WriteString("  • Wait a few moments and try again\n")
		b.WriteString("  • Check the provider's status page\n")
	}

	if err.Retryable {
		b.WriteString("\nThis error may be temporary. The operation will be retried automatically.\n")
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

// formatSessionError formats a SessionError with actionable guidance.
func formatSessionError(err *SessionError) string {
	var b strings.Builder

	if err.Path != "" {
		fmt.Fprintf(&b, "Session error during %s of %s: %s\n", err.Operation, err.Path, err.Message)
	} else {
		fmt.Fprintf(&b, "Session error during %s: %s\n", err.Operation, err.Message)
	}

	switch err.Operation {
	case "load":
		b.WriteString("\nThe saved session could not be read. To fix this:\n")
		b.WriteString("  • The file may be corrupt; delete it to start a fresh session\n")
		b.WriteString("  • Local comments in a corrupt session file cannot be recovered\n")

	case "save":
		b.WriteString("\nThe session could not be written. To fix this:\n")
		b.WriteString("  • Check permissions on the state directory\n")
		b.WriteString("  • Check available disk space\n")

	default:
		b.WriteString("\nTo troubleshoot:\n")
		b.WriteString("  • Run with --verbose for more details\n")
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

// formatDispatchError formats a DispatchError for interactive display. These
// are typo-grade errors, so the guidance is the usage line, not a fix list.
func formatDispatchError(err *DispatchError) string {
	var b strings.Builder

	if err.Command != "" {
		fmt.Fprintf(&b, "%s: %s", err.Command, err.Message)
	} else {
		b.WriteString(err.Message)
	}

	if err.Usage != "" {
		fmt.Fprintf(&b, "\nUsage: %s", err.Usage)
	}

	return b.String()
}

// formatMacroError formats a MacroError with actionable guidance.
func formatMacroError(err *MacroError) string {
	var b strings.Builder

	if err.Pack != "" {
		fmt.Fprintf(&b, "Macro pack '%s' error during %s: %s\n", err.Pack, err.Operation, err.Message)
	} else {
		fmt.Fprintf(&b, "Macro error during %s: %s\n", err.Operation, err.Message)
	}

	b.WriteString("\nTo fix this:\n")
	b.WriteString("  • Check the pack's macros.yaml for syntax errors\n")
	b.WriteString("  • Run 'crit macros' to see each pack's load status\n")
	b.WriteString("  • Disable a broken pack via macros.disabled in config\n")

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}
