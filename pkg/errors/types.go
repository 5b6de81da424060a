// Package errors provides typed errors for the crit project.
//
// This package defines domain-specific error types that provide structured
// error information for different subsystems (config, GitHub, AI, session,
// shell dispatch, macros). All error types implement the standard error
// interface and support errors.Is() and errors.As() from the standard library
// and cockroachdb/errors.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Field   string // Which config field has the issue
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
	}
	return "config error: " + e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with an underlying cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// GitHubError represents GitHub API/CLI errors.
type GitHubError struct {
	Operation  string // e.g., "ListPRs", "SubmitReview"
	StatusCode int    // HTTP status code if applicable
	Message    string
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *GitHubError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("github %s failed (HTTP %d): %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("github %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *GitHubError) Unwrap() error {
	return e.Cause
}

// NewGitHubError creates a new GitHubError.
func NewGitHubError(operation, message string) *GitHubError {
	return &GitHubError{Operation: operation, Message: message}
}

// NewGitHubErrorWithStatus creates a new GitHubError with HTTP status code.
func NewGitHubErrorWithStatus(operation string, statusCode int, message string) *GitHubError {
	retryable := isRetryableHTTPStatus(statusCode)
	return &GitHubError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  retryable,
	}
}

// NewGitHubErrorWithCause creates a new GitHubError with an underlying cause.
func NewGitHubErrorWithCause(operation, message string, cause error) *GitHubError {
	return &GitHubError{
		Operation: operation,
		Message:   message,
		Retryable: IsRetryable(cause),
		Cause:     cause,
	}
}

// AIError represents AI provider errors.
type AIError struct {
	Provider   string // e.g., "anthropic", "groq"
	Operation  string // e.g., "Chat", "StreamChat"
	StatusCode int
	Message    string
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *AIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("ai %s %s failed (HTTP %d): %s", e.Provider, e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ai %s %s failed: %s", e.Provider, e.Operation, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *AIError) Unwrap() error {
	return e.Cause
}

// NewAIError creates a new AIError.
func NewAIError(provider, operation, message string) *AIError {
	return &AIError{Provider: provider, Operation: operation, Message: message}
}

// NewAIErrorWithStatus creates a new AIError with HTTP status code.
func NewAIErrorWithStatus(provider, operation string, statusCode int, message string) *AIError {
	retryable := isRetryableHTTPStatus(statusCode)
	return &AIError{
		Provider:   provider,
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  retryable,
	}
}

// NewAIErrorWithCause creates a new AIError with an underlying cause.
func NewAIErrorWithCause(provider, operation, message string, cause error) *AIError {
	return &AIError{
		Provider:  provider,
		Operation: operation,
		Message:   message,
		Retryable: IsRetryable(cause),
		Cause:     cause,
	}
}

// SessionError represents session state persistence errors.
type SessionError struct {
	Operation string // e.g., "load", "save", "clear"
	Path      string // File path involved, if any
	Message   string
	Cause     error
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("session %s failed for %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("session %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *SessionError) Unwrap() error {
	return e.Cause
}

// NewSessionError creates a new SessionError.
func NewSessionError(operation, message string) *SessionError {
	return &SessionError{Operation: operation, Message: message}
}

// NewSessionErrorWithPath creates a new SessionError for a specific file.
func NewSessionErrorWithPath(operation, path, message string) *SessionError {
	return &SessionError{Operation: operation, Path: path, Message: message}
}

// NewSessionErrorWithCause creates a new SessionError with an underlying cause.
func NewSessionErrorWithCause(operation, path, message string, cause error) *SessionError {
	return &SessionError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Cause:     cause,
	}
}

// DispatchError represents shell command dispatch errors: unknown commands,
// bad arguments, and invalid history references.
type DispatchError struct {
	Command string // The command name as typed
	Usage   string // Usage string to show, if any
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("dispatch %s failed: %s", e.Command, e.Message)
	}
	return "dispatch error: " + e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *DispatchError) Unwrap() error {
	return e.Cause
}

// NewDispatchError creates a new DispatchError.
func NewDispatchError(command, message string) *DispatchError {
	return &DispatchError{Command: command, Message: message}
}

// NewDispatchErrorWithUsage creates a new DispatchError carrying a usage string.
func NewDispatchErrorWithUsage(command, usage, message string) *DispatchError {
	return &DispatchError{Command: command, Usage: usage, Message: message}
}

// MacroError represents errors related to macro pack loading and execution.
type MacroError struct {
	Pack      string
	Operation string // e.g., "load", "validate", "run"
	Message   string
	Cause     error
}

// Error implements the error interface.
func (e *MacroError) Error() string {
	if e.Pack != "" {
		return fmt.Sprintf("macro pack %s %s failed: %s", e.Pack, e.Operation, e.Message)
	}
	return fmt.Sprintf("macro %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *MacroError) Unwrap() error {
	return e.Cause
}

// NewMacroError creates a new MacroError.
func NewMacroError(pack, operation, message string) *MacroError {
	return &MacroError{Pack: pack, Operation: operation, Message: message}
}

// WithCause adds an underlying cause to the MacroError.
func (e *MacroError) WithCause(cause error) *MacroError {
	e.Cause = cause
	return e
}

// IsRetryable checks if an error or any error in its chain is retryable.
// It returns true if the error itself is retryable, or if any wrapped error
// is marked as retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Check GitHubError
	var ghErr *GitHubError
	if errors.As(err, &ghErr) {
		return ghErr.Retryable
	}

	// Check AIError
	var aiErr *AIError
	if errors.As(err, &aiErr) {
		return aiErr.Retryable
	}

	return false
}

// IsConfigError checks if an error or any error in its chain is a ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsGitHubError checks if an error or any error in its chain is a GitHubError.
func IsGitHubError(err error) bool {
	var ghErr *GitHubError
	return errors.As(err, &ghErr)
}

// IsAIError checks if an error or any error in its chain is an AIError.
func IsAIError(err error) bool {
	var aiErr *AIError
	return errors.As(err, &aiErr)
}

// IsSessionError checks if an error or any error in its chain is a SessionError.
func IsSessionError(err error) bool {
	var sessErr *SessionError
	return errors.As(err, &sessErr)
}

// IsDispatchError checks if an error or any error in its chain is a DispatchError.
func IsDispatchError(err error) bool {
	var dispErr *DispatchError
	return errors.As(err, &dispErr)
}

// IsMacroError checks if an error or any error in its chain is a MacroError.
func IsMacroError(err error) bool {
	var macroErr *MacroError
	return errors.As(err, &macroErr)
}

// isRetryableHTTPStatus returns true for HTTP status codes that are typically retryable.
func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}

// Re-export commonly used functions from cockroachdb/errors for convenience.
// This allows consumers to use criterrors.Wrap() instead of importing two packages.
var (
	// New creates a new error with the given message.
	New = errors.New

	// Newf creates a new error with formatted message.
	Newf = errors.Newf

	// Wrap wraps an error with additional context.
	Wrap = errors.Wrap

	// Wrapf wraps an error with formatted additional context.
	Wrapf = errors.Wrapf

	// Is reports whether any error in err's chain matches target.
	Is = errors.Is

	// As finds the first error in err's chain that matches target.
	As = errors.As

	// Cause returns the root cause of an error.
	Cause = errors.Cause
)
