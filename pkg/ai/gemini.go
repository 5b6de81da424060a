package ai

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	criterrors "thoreinstein.com/crit/pkg/errors"
)

const geminiDefaultModel = "gemini-1.5-flash"

// GeminiProvider talks to the Gemini API through the Genkit SDK.
type GeminiProvider struct {
	apiKey    string
	modelName string
	logger    *slog.Logger

	once    sync.Once
	model   ai.Model
	initErr error
}

// NewGeminiProvider creates a Gemini provider. An empty model selects the
// default.
func NewGeminiProvider(apiKey, modelName string, logger *slog.Logger) *GeminiProvider {
	return &GeminiProvider{
		apiKey:    apiKey,
		modelName: modelName,
		logger:    logger,
	}
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return ProviderGemini
}

// IsAvailable reports whether an API key is set.
func (p *GeminiProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// ensure initializes the Genkit client and resolves the model once. Tests
// can pre-set p.model to bypass initialization.
func (p *GeminiProvider) ensure(ctx context.Context) error {
	p.once.Do(func() {
		if p.model != nil {
			return
		}
		if p.apiKey == "" {
			p.initErr = criterrors.NewAIError(ProviderGemini, "init", "API key not set")
			return
		}

		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: p.apiKey}))

		name := p.modelName
		if name == "" {
			name = geminiDefaultModel
		}
		if !strings.Contains(name, "/") {
			name = "googleai/" + name
		}

		p.model = googlegenai.GoogleAIModel(g, name)
		if p.model == nil {
			p.initErr = criterrors.NewAIError(ProviderGemini, "init", "failed to get model: "+name)
			return
		}
		p.logDebug("gemini provider initialized", "model", name)
	})
	return p.initErr
}

// Chat performs a single blocking chat completion.
func (p *GeminiProvider) Chat(ctx context.Context, messages []Message) (*Response, error) {
	if err := p.ensure(ctx); err != nil {
		return nil, err
	}

	req := &ai.ModelRequest{Messages: p.toGenkitMessages(messages)}
	p.logDebug("sending chat request", "message_count", len(req.Messages))

	resp, err := p.model.Generate(ctx, req, nil)
	if err != nil {
		return nil, criterrors.NewAIErrorWithCause(ProviderGemini, "Chat", "generate failed", err)
	}
	if resp.Message == nil {
		return nil, criterrors.NewAIError(ProviderGemini, "Chat", "empty response")
	}

	var content strings.Builder
	for _, part := range resp.Message.Content {
		if part.IsText() {
			content.WriteString(part.Text)
		}
	}

	result := &Response{Content: content.String()}
	if resp.Usage != nil {
		result.InputTokens = resp.Usage.InputTokens
		result.OutputTokens = resp.Usage.OutputTokens
	}
	return result, nil
}

// StreamChat starts a streaming chat completion.
func (p *GeminiProvider) StreamChat(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	if err := p.ensure(ctx); err != nil {
		return nil, err
	}

	req := &ai.ModelRequest{Messages: p.toGenkitMessages(messages)}
	p.logDebug("sending streaming chat request", "message_count", len(req.Messages))

	chunks := make(chan StreamChunk)
	go func() {
		defer close(chunks)

		_, err := p.model.Generate(ctx, req, func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			var text strings.Builder
			for _, part := range chunk.Content {
				if part.IsText() {
					text.WriteString(part.Text)
				}
			}
			if text.Len() == 0 {
				return nil
			}
			select {
			case chunks <- StreamChunk{Content: text.String()}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			select {
			case chunks <- StreamChunk{Error: criterrors.NewAIErrorWithCause(ProviderGemini, "StreamChat", "generate failed", err), Done: true}:
			case <-ctx.Done():
			}
			return
		}

		select {
		case chunks <- StreamChunk{Done: true}:
		case <-ctx.Done():
		}
	}()

	return chunks, nil
}

// toGenkitMessages maps conversation roles onto Genkit's role set.
func (p *GeminiProvider) toGenkitMessages(messages []Message) []*ai.Message {
	out := make([]*ai.Message, len(messages))
	for i, m := range messages {
		role := ai.RoleUser
		switch m.Role {
		case "system":
			role = ai.RoleSystem
		case "assistant":
			role = ai.RoleModel
		}
		out[i] = &ai.Message{
			Role:    role,
			Content: []*ai.Part{ai.NewTextPart(m.Content)},
		}
	}
	return out
}

func (p *GeminiProvider) logDebug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
