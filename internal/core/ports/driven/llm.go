// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// LLMService provides chat completions for answering and query rewriting.
// This is an optional service - when nil, only retrieval is available.
//
// Implementations may include:
//   - OpenAI and OpenRouter (chat completions API)
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	// Complete runs one chat completion.
	Complete(ctx context.Context, messages []ChatMessage, opts ChatOptions) (*Completion, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}

// Completion is the model output and its token usage.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// TotalTokens returns prompt plus completion tokens.
func (c *Completion) TotalTokens() int {
	return c.PromptTokens + c.CompletionTokens
}
