// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// Chat message roles understood by every LLMService implementation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// LLMService provides language model operations for rephrasing and answering.
//
// Implementations may include:
//   - Cohere (command-r)
//   - OpenAI (GPT-4o, GPT-4o mini)
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	// Generate produces text completion from a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Chat conducts a multi-turn conversation.
	// A leading message with RoleSystem is the system instruction.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	// Nil leaves the provider's default in place.
	Temperature *float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}

// Temperature returns t as an option value.
func Temperature(t float64) *float64 {
	return &t
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of RoleSystem, RoleUser or RoleAssistant.
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	// Nil leaves the provider's default in place.
	Temperature *float64
}
