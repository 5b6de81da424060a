package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	criterrors "thoreinstein.com/crit/pkg/errors"
)

const (
	groqAPIURL       = "https://api.groq.com/openai/v1/chat/completions"
	groqDefaultModel = "llama-3.3-70b-versatile"
	groqMaxTokens    = 4096
)

// GroqProvider talks to the Groq chat completions API, which follows the
// OpenAI wire format.
type GroqProvider struct {
	apiKey   string
	model    string
	endpoint string
	logger   *slog.Logger
	client   *http.Client
}

// NewGroqProvider creates a Groq provider. An empty model selects the
// default.
func NewGroqProvider(apiKey, model string, logger *slog.Logger) *GroqProvider {
	if model == "" {
		model = groqDefaultModel
	}
	return &GroqProvider{
		apiKey:   apiKey,
		model:    model,
		endpoint: groqAPIURL,
		logger:   logger,
		client:   &http.Client{},
	}
}

// Name returns the provider name.
func (p *GroqProvider) Name() string {
	return ProviderGroq
}

// IsAvailable reports whether an API key is set.
func (p *GroqProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// OpenAI-compatible wire format.
type openAIRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
	Stream    bool            `json:"stream,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Usage   openAIUsage    `json:"usage"`
}

type openAIChoice struct {
	Message      openAIMessage `json:"message"`
	Delta        *openAIDelta  `json:"delta,omitempty"`
	FinishReason string        `json:"finish_reason"`
}

type openAIDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openAIErrorResponse struct {
	Error openAIAPIError `json:"error"`
}

type openAIAPIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// Chat performs a single blocking chat completion.
func (p *GroqProvider) Chat(ctx context.Context, messages []Message) (*Response, error) {
	if !p.IsAvailable() {
		return nil, criterrors.NewAIError(ProviderGroq, "Chat", "provider not configured")
	}

	resp, err := p.post(ctx, "Chat", p.request(messages, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, criterrors.NewAIErrorWithCause(ProviderGroq, "Chat",
			"failed to read response", err)
	}

	var apiResp openAIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, criterrors.NewAIErrorWithCause(ProviderGroq, "Chat",
			"failed to parse response", err)
	}
	if len(apiResp.Choices) == 0 {
		return nil, criterrors.NewAIError(ProviderGroq, "Chat", "no choices in response")
	}

	choice := apiResp.Choices[0]
	p.logDebug("received response",
		"finish_reason", choice.FinishReason,
		"prompt_tokens", apiResp.Usage.PromptTokens,
		"completion_tokens", apiResp.Usage.CompletionTokens)

	return &Response{
		Content:      choice.Message.Content,
		StopReason:   choice.FinishReason,
		InputTokens:  apiResp.Usage.PromptTokens,
		OutputTokens: apiResp.Usage.CompletionTokens,
	}, nil
}

// StreamChat starts a streaming chat completion over server-sent events.
func (p *GroqProvider) StreamChat(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	if !p.IsAvailable() {
		return nil, criterrors.NewAIError(ProviderGroq, "StreamChat", "provider not configured")
	}

	resp, err := p.post(ctx, "StreamChat", p.request(messages, true))
	if err != nil {
		return nil, err
	}

	chunks := make(chan StreamChunk)
	go p.readStream(ctx, resp.Body, chunks)
	return chunks, nil
}

// request builds the API payload. The OpenAI format carries the system
// prompt as an ordinary message, so roles map through unchanged.
func (p *GroqProvider) request(messages []Message, stream bool) openAIRequest {
	req := openAIRequest{
		Model:     p.model,
		Messages:  make([]openAIMessage, 0, len(messages)),
		MaxTokens: groqMaxTokens,
		Stream:    stream,
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, openAIMessage(msg))
	}
	return req
}

// post sends one API request and returns the response with its body open.
// Non-200 responses are consumed and returned as an *errors.AIError.
func (p *GroqProvider) post(ctx context.Context, op string, reqBody openAIRequest) (*http.Response, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, criterrors.NewAIErrorWithCause(ProviderGroq, op,
			"failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, criterrors.NewAIErrorWithCause(ProviderGroq, op,
			"failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	p.logDebug("sending request", "operation", op, "model", reqBody.Model,
		"message_count", len(reqBody.Messages), "stream", reqBody.Stream)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, criterrors.NewAIErrorWithCause(ProviderGroq, op, "request failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, p.apiError(op, resp)
	}
	return resp, nil
}

// readStream parses SSE events into chunks until the [DONE] sentinel.
func (p *GroqProvider) readStream(ctx context.Context, body io.ReadCloser, chunks chan<- StreamChunk) {
	defer close(chunks)
	defer body.Close()

	// Close the body on cancellation to unblock the scanner.
	watch := make(chan struct{})
	defer close(watch)
	go func() {
		select {
		case <-ctx.Done():
			body.Close()
		case <-watch:
		}
	}()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}

		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		if data == "[DONE]" {
			chunks <- StreamChunk{Done: true}
			return
		}

		var event openAIResponse
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			p.logDebug("skipping malformed stream event", "error", err, "data", data)
			continue
		}
		if len(event.Choices) == 0 {
			continue
		}

		choice := event.Choices[0]
		if choice.Delta != nil && choice.Delta.Content != "" {
			chunks <- StreamChunk{Content: choice.Delta.Content}
		}
		if choice.FinishReason != "" {
			chunks <- StreamChunk{Done: true}
			return
		}
	}

	if err := ctx.Err(); err != nil {
		chunks <- StreamChunk{Error: err, Done: true}
		return
	}
	if err := scanner.Err(); err != nil {
		chunks <- StreamChunk{
			Error: criterrors.NewAIErrorWithCause(ProviderGroq, "StreamChat",
				"stream read error", err),
			Done: true,
		}
		return
	}
	chunks <- StreamChunk{Done: true}
}

// apiError turns a non-200 response into an *errors.AIError, preferring the
// API's own error message when the body carries one.
func (p *GroqProvider) apiError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var errResp openAIErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return criterrors.NewAIErrorWithStatus(ProviderGroq, op, resp.StatusCode, errResp.Error.Message)
	}
	return criterrors.NewAIErrorWithStatus(ProviderGroq, op, resp.StatusCode,
		fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
}

func (p *GroqProvider) logDebug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
