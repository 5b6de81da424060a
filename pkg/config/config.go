package config

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Config represents the application configuration
// Repository information is derived from git, not configuration
type Config struct {
	GitHub  GitHubConfig  `mapstructure:"github"`
	AI      AIConfig      `mapstructure:"ai"`
	Review  ReviewConfig  `mapstructure:"review"`
	History HistoryConfig `mapstructure:"history"`
	Macros  MacrosConfig  `mapstructure:"macros"`
}

// GitHubConfig holds GitHub integration configuration
type GitHubConfig struct {
	AuthMethod string `mapstructure:"auth_method"` // "token", "oauth", "gh_cli"
	ClientID   string `mapstructure:"client_id"`   // OAuth app client ID (for device flow)
	Token      string `mapstructure:"token"`       // For token auth (CRIT_GITHUB_TOKEN env var takes precedence)
	Host       string `mapstructure:"host"`        // GitHub host URL (default: https://github.com)
}

// AIConfig holds AI provider configuration
type AIConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Provider string `mapstructure:"provider"` // "anthropic", "groq", "ollama", "gemini"
	Model    string `mapstructure:"model"`    // e.g., "claude-sonnet-4-20250514"
	APIKey   string `mapstructure:"api_key"`  // Provider API key (env var takes precedence)
	Endpoint string `mapstructure:"endpoint"` // Custom endpoint URL (e.g., for Ollama: http://localhost:11434)

	// Per-provider default models (used when Model is empty)
	AnthropicModel string `mapstructure:"anthropic_model"` // Default: claude-sonnet-4-20250514
	GroqModel      string `mapstructure:"groq_model"`      // Default: llama-3.3-70b-versatile
	OllamaModel    string `mapstructure:"ollama_model"`    // Default: llama3.2
	OllamaEndpoint string `mapstructure:"ollama_endpoint"` // Default: http://localhost:11434
	GeminiModel    string `mapstructure:"gemini_model"`
}

// ReviewConfig holds review session configuration
type ReviewConfig struct {
	DefaultEvent string `mapstructure:"default_event"` // "comment", "approve", "request-changes"
	MaxDiffLines int    `mapstructure:"max_diff_lines"` // Cap on diff lines sent to the AI assistant (0 = no cap)
	LogPath      string `mapstructure:"log_path"`      // Path to the submitted-review database
}

// HistoryConfig holds shell command history configuration
type HistoryConfig struct {
	MaxEntries     int      `mapstructure:"max_entries"`
	IgnorePatterns []string `mapstructure:"ignore_patterns"`
}

// MacrosConfig holds macro pack configuration
type MacrosConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Disabled []string `mapstructure:"disabled"` // Pack names to skip at load time
}

// SecurityWarning represents a configuration security issue
type SecurityWarning struct {
	Field   string
	Message string
}

// Load loads the configuration from file and environment variables
func Load() (*Config, error) {
	config := &Config{}

	// Set defaults
	setDefaults()

	// Unmarshal the config
	if err := viper.Unmarshal(config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	// Expand paths
	if err := expandPaths(config); err != nil {
		return nil, errors.Wrap(err, "failed to expand paths")
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return config, nil
}

// CheckSecurityWarnings returns warnings for insecure configuration practices.
// Call this when loading config to warn users about tokens stored in config files.
func CheckSecurityWarnings(config *Config) []SecurityWarning {
	var warnings []SecurityWarning

	// Check for tokens in config file (should use environment variables instead)
	if config.GitHub.Token != "" && os.Getenv("CRIT_GITHUB_TOKEN") == "" && os.Getenv("GITHUB_TOKEN") == "" {
		warnings = append(warnings, SecurityWarning{
			Field:   "github.token",
			Message: "GitHub token is set in config file. For security, use CRIT_GITHUB_TOKEN environment variable or 'gh auth login' instead.",
		})
	}

	if config.AI.APIKey != "" && os.Getenv("CRIT_AI_API_KEY") == "" &&
		os.Getenv("ANTHROPIC_API_KEY") == "" && os.Getenv("GROQ_API_KEY") == "" {
		warnings = append(warnings, SecurityWarning{
			Field:   "ai.api_key",
			Message: "AI API key is set in config file. For security, use environment variables (ANTHROPIC_API_KEY, GROQ_API_KEY, or CRIT_AI_API_KEY) instead.",
		})
	}

	return warnings
}

// ValidReviewEvents is the list of supported review submission events.
var ValidReviewEvents = []string{"comment", "approve", "request-changes"}

// ValidateReviewEvent validates that a review event is supported.
// Returns nil for the empty string, which means "use the default".
func ValidateReviewEvent(event string) error {
	if event == "" {
		return nil // Empty is allowed, will use default
	}
	for _, valid := range ValidReviewEvents {
		if event == valid {
			return nil
		}
	}
	return errors.Newf("invalid review event %q: must be one of: comment, approve, request-changes", event)
}

// Validate validates the configuration and returns any validation errors.
func (c *Config) Validate() error {
	if err := ValidateReviewEvent(c.Review.DefaultEvent); err != nil {
		return errors.Wrap(err, "review.default_event")
	}
	if c.History.MaxEntries < 0 {
		return errors.Newf("history.max_entries must be >= 0, got %d", c.History.MaxEntries)
	}
	if c.Review.MaxDiffLines < 0 {
		return errors.Newf("review.max_diff_lines must be >= 0, got %d", c.Review.MaxDiffLines)
	}
	for _, pattern := range c.History.IgnorePatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return errors.Wrapf(err, "history.ignore_patterns: invalid pattern %q", pattern)
		}
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fall back to current directory if home dir can't be determined
		homeDir = "."
	}

	// GitHub defaults
	viper.SetDefault("github.auth_method", "gh_cli") // Prefer gh CLI auth
	viper.SetDefault("github.client_id", "")         // OAuth app client ID for device flow
	viper.SetDefault("github.token", "")
	viper.SetDefault("github.host", "")

	// AI defaults
	viper.SetDefault("ai.enabled", true)
	viper.SetDefault("ai.provider", "anthropic")
	viper.SetDefault("ai.model", "") // Empty means use per-provider default
	viper.SetDefault("ai.api_key", "")
	viper.SetDefault("ai.endpoint", "") // Empty means use provider default

	// Per-provider AI model defaults (configurable)
	viper.SetDefault("ai.anthropic_model", "claude-sonnet-4-20250514")
	viper.SetDefault("ai.groq_model", "llama-3.3-70b-versatile")
	viper.SetDefault("ai.ollama_model", "llama3.2")
	viper.SetDefault("ai.ollama_endpoint", "http://localhost:11434")
	viper.SetDefault("ai.gemini_model", "")

	// Review defaults
	viper.SetDefault("review.default_event", "comment")
	viper.SetDefault("review.max_diff_lines", 400)
	viper.SetDefault("review.log_path", filepath.Join(homeDir, ".local", "state", "crit", "reviews.db"))

	// History defaults
	viper.SetDefault("history.max_entries", 500)
	viper.SetDefault("history.ignore_patterns", []string{})

	// Macros defaults
	viper.SetDefault("macros.enabled", true)
	viper.SetDefault("macros.disabled", []string{})
}

// expandPaths expands ~ and environment variables in paths
func expandPaths(config *Config) error {
	var err error

	config.Review.LogPath, err = expandPath(config.Review.LogPath)
	if err != nil {
		return err
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, path[1:]), nil
}
