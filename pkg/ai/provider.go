// Package ai connects the review shell to a chat completion backend.
//
// A Provider wraps a single backend (Anthropic, Groq, Ollama, or Gemini)
// behind a common chat interface. Conversation layers multi-turn history on
// top, so context handed to the assistant early, such as the diff under
// review, stays in scope for follow-up questions.
package ai

import (
	"context"
	"log/slog"
	"os"

	"thoreinstein.com/crit/pkg/config"
	criterrors "thoreinstein.com/crit/pkg/errors"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Response is a completed, non-streaming chat result.
type Response struct {
	Content      string
	StopReason   string // "end_turn", "max_tokens", etc.
	InputTokens  int
	OutputTokens int
}

// StreamChunk is one increment of a streaming response.
type StreamChunk struct {
	Content string
	Done    bool
	Error   error
}

// Provider is a chat completion backend.
type Provider interface {
	// IsAvailable reports whether the provider is configured well enough
	// to attempt a request.
	IsAvailable() bool

	// Chat performs a single blocking chat completion.
	Chat(ctx context.Context, messages []Message) (*Response, error)

	// StreamChat starts a streaming completion. The returned channel
	// receives chunks until one arrives with Done or Error set, then
	// closes.
	StreamChat(ctx context.Context, messages []Message) (<-chan StreamChunk, error)

	// Name returns the provider name as it appears in configuration.
	Name() string
}

// Provider names accepted in the [ai] config section.
const (
	ProviderAnthropic = "anthropic"
	ProviderGroq      = "groq"
	ProviderOllama    = "ollama"
	ProviderGemini    = "gemini"
)

// NewProvider builds the provider named by cfg. API keys resolve from the
// provider's environment variable first, then from ai.api_key in the config.
// An empty ai.model selects the per-provider default.
func NewProvider(cfg *config.AIConfig, verbose bool) (Provider, error) {
	if cfg == nil {
		return nil, criterrors.NewConfigError("ai", "config is nil")
	}
	if !cfg.Enabled {
		return nil, criterrors.NewConfigError("ai.enabled", "AI is disabled in configuration")
	}

	var logger *slog.Logger
	if verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	switch cfg.Provider {
	case ProviderAnthropic:
		apiKey := envOr("ANTHROPIC_API_KEY", cfg.APIKey)
		if apiKey == "" {
			return nil, criterrors.NewConfigError("ai.api_key",
				"Anthropic API key not set (set ANTHROPIC_API_KEY or ai.api_key in config)")
		}
		return NewAnthropicProvider(apiKey, modelOr(cfg.Model, cfg.AnthropicModel), logger), nil

	case ProviderGroq:
		apiKey := envOr("GROQ_API_KEY", cfg.APIKey)
		if apiKey == "" {
			return nil, criterrors.NewConfigError("ai.api_key",
				"Groq API key not set (set GROQ_API_KEY or ai.api_key in config)")
		}
		return NewGroqProvider(apiKey, modelOr(cfg.Model, cfg.GroqModel), logger), nil

	case ProviderOllama:
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = cfg.OllamaEndpoint
		}
		return NewOllamaProvider(endpoint, modelOr(cfg.Model, cfg.OllamaModel), logger), nil

	case ProviderGemini:
		apiKey := envOr("GOOGLE_GENAI_API_KEY", envOr("GEMINI_API_KEY", cfg.APIKey))
		if apiKey == "" {
			return nil, criterrors.NewConfigError("ai.api_key",
				"Gemini API key not set (set GOOGLE_GENAI_API_KEY or ai.api_key in config)")
		}
		return NewGeminiProvider(apiKey, modelOr(cfg.Model, cfg.GeminiModel), logger), nil

	default:
		return nil, criterrors.NewConfigError("ai.provider",
			"unsupported AI provider: "+cfg.Provider+" (supported: anthropic, groq, ollama, gemini)")
	}
}

// envOr returns the environment variable's value when set, otherwise fallback.
func envOr(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

// modelOr returns the globally configured model when set, otherwise the
// provider-specific default.
func modelOr(global, perProvider string) string {
	if global != "" {
		return global
	}
	return perProvider
}
