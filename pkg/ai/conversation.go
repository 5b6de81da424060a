package ai

import (
	"context"
	"strings"
)

// Conversation accumulates a multi-turn exchange with a Provider. Every
// request replays the full history, so anything shown to the assistant in an
// earlier turn remains visible in later ones.
type Conversation struct {
	provider Provider
	system   string
	messages []Message
}

// NewConversation creates an empty conversation with an optional system
// prompt.
func NewConversation(provider Provider, systemPrompt string) *Conversation {
	return &Conversation{
		provider: provider,
		system:   systemPrompt,
	}
}

// AddUserMessage appends a user turn to the history.
func (c *Conversation) AddUserMessage(content string) {
	c.messages = append(c.messages, Message{Role: "user", Content: content})
}

// AddAssistantMessage appends an assistant turn to the history.
func (c *Conversation) AddAssistantMessage(content string) {
	c.messages = append(c.messages, Message{Role: "assistant", Content: content})
}

// Send performs a blocking completion over the accumulated history and
// records the assistant's reply as the next turn.
func (c *Conversation) Send(ctx context.Context) (*Response, error) {
	resp, err := c.provider.Chat(ctx, c.buildMessages())
	if err != nil {
		return nil, err
	}
	c.AddAssistantMessage(resp.Content)
	return resp, nil
}

// Stream starts a streaming completion over the accumulated history. The
// assistant's reply is recorded in the history before the returned channel
// closes, so a caller that drains the channel sees a complete history
// afterward.
func (c *Conversation) Stream(ctx context.Context) (<-chan StreamChunk, error) {
	chunks, err := c.provider.StreamChat(ctx, c.buildMessages())
	if err != nil {
		return nil, err
	}

	out := make(chan StreamChunk)
	go c.collect(chunks, out)
	return out, nil
}

// collect forwards chunks while accumulating the assistant's reply. A stream
// that ends in an error does not produce an assistant turn.
func (c *Conversation) collect(in <-chan StreamChunk, out chan<- StreamChunk) {
	defer close(out)

	var reply strings.Builder
	for chunk := range in {
		reply.WriteString(chunk.Content)
		if chunk.Done && chunk.Error == nil && reply.Len() > 0 {
			c.AddAssistantMessage(reply.String())
		}
		out <- chunk
	}
}

// History returns a copy of the accumulated turns, excluding the system
// prompt.
func (c *Conversation) History() []Message {
	history := make([]Message, len(c.messages))
	copy(history, c.messages)
	return history
}

// buildMessages prepends the system prompt to the history.
func (c *Conversation) buildMessages() []Message {
	if c.system == "" {
		return c.messages
	}
	messages := make([]Message, 0, len(c.messages)+1)
	messages = append(messages, Message{Role: "system", Content: c.system})
	return append(messages, c.messages...)
}
