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

	criterrors "thoreinstein.com/crit/pkg/errors"
)

const (
	ollamaDefaultEndpoint = "http://localhost:11434"
	ollamaDefaultModel    = "llama3.2"
	ollamaChatPath        = "/api/chat"
)

// OllamaProvider talks to a local or remote Ollama instance.
type OllamaProvider struct {
	endpoint string
	model    string
	logger   *slog.Logger
	client   *http.Client
}

// NewOllamaProvider creates an Ollama provider. Empty arguments select the
// local default endpoint and default model.
func NewOllamaProvider(endpoint, model string, logger *slog.Logger) *OllamaProvider {
	if endpoint == "" {
		endpoint = ollamaDefaultEndpoint
	}
	if model == "" {
		model = ollamaDefaultModel
	}
	return &OllamaProvider{
		endpoint: endpoint,
		model:    model,
		logger:   logger,
		client:   &http.Client{},
	}
}

// Name returns the provider name.
func (p *OllamaProvider) Name() string {
	return ProviderOllama
}

// IsAvailable reports whether an endpoint is set. Local instances need no
// API key.
func (p *OllamaProvider) IsAvailable() bool {
	return p.endpoint != ""
}

// /api/chat wire format. Stream has no omitempty: the API defaults to
// streaming, so false must be sent explicitly.
type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	// Token counts arrive on the final chunk only.
	PromptEvalCount int `json:"prompt_eval_count,omitempty"`
	EvalCount       int `json:"eval_count,omitempty"`
}

type ollamaErrorResponse struct {
	Error string `json:"error"`
}

// Chat performs a single blocking chat completion.
func (p *OllamaProvider) Chat(ctx context.Context, messages []Message) (*Response, error) {
	if !p.IsAvailable() {
		return nil, criterrors.NewAIError(ProviderOllama, "Chat", "provider not configured")
	}

	resp, err := p.post(ctx, "Chat", p.request(messages, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, criterrors.NewAIErrorWithCause(ProviderOllama, "Chat",
			"failed to read response", err)
	}

	var apiResp ollamaResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, criterrors.NewAIErrorWithCause(ProviderOllama, "Chat",
			"failed to parse response", err)
	}

	p.logDebug("received response",
		"prompt_tokens", apiResp.PromptEvalCount,
		"completion_tokens", apiResp.EvalCount)

	stopReason := "stop"
	if !apiResp.Done {
		stopReason = "incomplete"
	}
	return &Response{
		Content:      apiResp.Message.Content,
		StopReason:   stopReason,
		InputTokens:  apiResp.PromptEvalCount,
		OutputTokens: apiResp.EvalCount,
	}, nil
}

// StreamChat starts a streaming chat completion over newline-delimited JSON.
func (p *OllamaProvider) StreamChat(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	if !p.IsAvailable() {
		return nil, criterrors.NewAIError(ProviderOllama, "StreamChat", "provider not configured")
	}

	resp, err := p.post(ctx, "StreamChat", p.request(messages, true))
	if err != nil {
		return nil, err
	}

	chunks := make(chan StreamChunk)
	go p.readStream(ctx, resp.Body, chunks)
	return chunks, nil
}

// request builds the API payload. Ollama accepts system messages inline, so
// roles map through unchanged.
func (p *OllamaProvider) request(messages []Message, stream bool) ollamaRequest {
	req := ollamaRequest{
		Model:    p.model,
		Messages: make([]ollamaMessage, 0, len(messages)),
		Stream:   stream,
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, ollamaMessage(msg))
	}
	return req
}

// post sends one API request and returns the response with its body open.
// Non-200 responses are consumed and returned as an *errors.AIError.
func (p *OllamaProvider) post(ctx context.Context, op string, reqBody ollamaRequest) (*http.Response, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, criterrors.NewAIErrorWithCause(ProviderOllama, op,
			"failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+ollamaChatPath, bytes.NewReader(payload))
	if err != nil {
		return nil, criterrors.NewAIErrorWithCause(ProviderOllama, op,
			"failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	p.logDebug("sending request", "operation", op, "model", reqBody.Model,
		"message_count", len(reqBody.Messages), "stream", reqBody.Stream)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, criterrors.NewAIErrorWithCause(ProviderOllama, op, "request failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, p.apiError(op, resp)
	}
	return resp, nil
}

// readStream parses NDJSON lines into chunks until a line arrives with done
// set.
func (p *OllamaProvider) readStream(ctx context.Context, body io.ReadCloser, chunks chan<- StreamChunk) {
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

		line := scanner.Text()
		if line == "" {
			continue
		}

		var event ollamaResponse
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			p.logDebug("skipping malformed stream line", "error", err, "line", line)
			continue
		}

		if event.Message.Content != "" {
			chunks <- StreamChunk{Content: event.Message.Content}
		}
		if event.Done {
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
			Error: criterrors.NewAIErrorWithCause(ProviderOllama, "StreamChat",
				"stream read error", err),
			Done: true,
		}
		return
	}
	chunks <- StreamChunk{Done: true}
}

// apiError turns a non-200 response into an *errors.AIError, preferring the
// API's own error message when the body carries one.
func (p *OllamaProvider) apiError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var errResp ollamaErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return criterrors.NewAIErrorWithStatus(ProviderOllama, op, resp.StatusCode, errResp.Error)
	}
	return criterrors.NewAIErrorWithStatus(ProviderOllama, op, resp.StatusCode,
		fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
}

func (p *OllamaProvider) logDebug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
