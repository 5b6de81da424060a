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
	anthropicAPIURL       = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion   = "2023-06-01"
	anthropicDefaultModel = "claude-sonnet-4-20250514"
	anthropicMaxTokens    = 4096
)

// AnthropicProvider talks to the Claude Messages API.
type AnthropicProvider struct {
	apiKey   string
	model    string
	endpoint string
	logger   *slog.Logger
	client   *http.Client
}

// NewAnthropicProvider creates an Anthropic provider. An empty model selects
// the default.
func NewAnthropicProvider(apiKey, model string, logger *slog.Logger) *AnthropicProvider {
	if model == "" {
		model = anthropicDefaultModel
	}
	return &AnthropicProvider{
		apiKey:   apiKey,
		model:    model,
		endpoint: anthropicAPIURL,
		logger:   logger,
		client:   &http.Client{},
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return ProviderAnthropic
}

// IsAvailable reports whether an API key is set.
func (p *AnthropicProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// Messages API wire format.
type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
	System    string             `json:"system,omitempty"`
	Stream    bool               `json:"stream,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      anthropicUsage     `json:"usage"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicErrorResponse struct {
	Error anthropicAPIError `json:"error"`
}

type anthropicAPIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type anthropicStreamEvent struct {
	Type  string             `json:"type"`
	Delta anthropicDelta     `json:"delta"`
	Error *anthropicAPIError `json:"error,omitempty"`
}

type anthropicDelta struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
}

// Chat performs a single blocking chat completion.
func (p *AnthropicProvider) Chat(ctx context.Context, messages []Message) (*Response, error) {
	if !p.IsAvailable() {
		return nil, criterrors.NewAIError(ProviderAnthropic, "Chat", "provider not configured")
	}

	resp, err := p.post(ctx, "Chat", p.request(messages, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, criterrors.NewAIErrorWithCause(ProviderAnthropic, "Chat",
			"failed to read response", err)
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, criterrors.NewAIErrorWithCause(ProviderAnthropic, "Chat",
			"failed to parse response", err)
	}

	var content strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	p.logDebug("received response",
		"stop_reason", apiResp.StopReason,
		"input_tokens", apiResp.Usage.InputTokens,
		"output_tokens", apiResp.Usage.OutputTokens)

	return &Response{
		Content:      content.String(),
		StopReason:   apiResp.StopReason,
		InputTokens:  apiResp.Usage.InputTokens,
		OutputTokens: apiResp.Usage.OutputTokens,
	}, nil
}

// StreamChat starts a streaming chat completion over server-sent events.
func (p *AnthropicProvider) StreamChat(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	if !p.IsAvailable() {
		return nil, criterrors.NewAIError(ProviderAnthropic, "StreamChat", "provider not configured")
	}

	resp, err := p.post(ctx, "StreamChat", p.request(messages, true))
	if err != nil {
		return nil, err
	}

	chunks := make(chan StreamChunk)
	go p.readStream(ctx, resp.Body, chunks)
	return chunks, nil
}

// request builds the API payload, lifting any system message into the
// request's top-level system field.
func (p *AnthropicProvider) request(messages []Message, stream bool) anthropicRequest {
	req := anthropicRequest{
		Model:     p.model,
		MaxTokens: anthropicMaxTokens,
		Messages:  make([]anthropicMessage, 0, len(messages)),
		Stream:    stream,
	}
	for _, msg := range messages {
		if msg.Role == "system" {
			req.System = msg.Content
			continue
		}
		req.Messages = append(req.Messages, anthropicMessage(msg))
	}
	return req
}

// post sends one API request and returns the response with its body open.
// Non-200 responses are consumed and returned as an *errors.AIError.
func (p *AnthropicProvider) post(ctx context.Context, op string, reqBody anthropicRequest) (*http.Response, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, criterrors.NewAIErrorWithCause(ProviderAnthropic, op,
			"failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, criterrors.NewAIErrorWithCause(ProviderAnthropic, op,
			"failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)

	p.logDebug("sending request", "operation", op, "model", reqBody.Model,
		"message_count", len(reqBody.Messages), "stream", reqBody.Stream)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, criterrors.NewAIErrorWithCause(ProviderAnthropic, op, "request failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, p.apiError(op, resp)
	}
	return resp, nil
}

// readStream parses SSE events into chunks until the message stops.
func (p *AnthropicProvider) readStream(ctx context.Context, body io.ReadCloser, chunks chan<- StreamChunk) {
	defer close(chunks)
	defer body.Close()

	// Close the body on cancellation to unblock the scanner, which would
	// otherwise keep the goroutine waiting on network data.
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
			continue // event: lines, pings, blank separators
		}

		var event anthropicStreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			p.logDebug("skipping malformed stream event", "error", err, "data", data)
			continue
		}

		switch event.Type {
		case "content_block_delta":
			if event.Delta.Text != "" {
				chunks <- StreamChunk{Content: event.Delta.Text}
			}
		case "message_stop":
			chunks <- StreamChunk{Done: true}
			return
		case "error":
			msg := "stream error"
			if event.Error != nil && event.Error.Message != "" {
				msg = event.Error.Message
			}
			chunks <- StreamChunk{
				Error: criterrors.NewAIError(ProviderAnthropic, "StreamChat", msg),
				Done:  true,
			}
			return
		}
	}

	if err := ctx.Err(); err != nil {
		chunks <- StreamChunk{Error: err, Done: true}
		return
	}
	if err := scanner.Err(); err != nil {
		chunks <- StreamChunk{
			Error: criterrors.NewAIErrorWithCause(ProviderAnthropic, "StreamChat",
				"stream read error", err),
			Done: true,
		}
		return
	}
	// Stream ended without a message_stop event.
	chunks <- StreamChunk{Done: true}
}

// apiError turns a non-200 response into an *errors.AIError, preferring the
// API's own error message when the body carries one.
func (p *AnthropicProvider) apiError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var errResp anthropicErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return criterrors.NewAIErrorWithStatus(ProviderAnthropic, op, resp.StatusCode, errResp.Error.Message)
	}
	return criterrors.NewAIErrorWithStatus(ProviderAnthropic, op, resp.StatusCode,
		fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
}

func (p *AnthropicProvider) logDebug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
