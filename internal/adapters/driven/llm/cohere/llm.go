// Package cohere provides an LLM service adapter using the Cohere v2 Chat API.
package cohere

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/pdfchat/internal/adapters/driven/provider"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.cohere.com"
	DefaultModel   = "command-r"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Cohere LLM service.
type Config struct {
	// APIKey is the Cohere API key (required).
	APIKey string

	BaseURL string
	Model   string
	Timeout time.Duration

	// HTTPClient carries the shared resilient transport. Optional.
	HTTPClient *http.Client
}

// LLMService provides chat completions using Cohere.
type LLMService struct {
	api   *provider.Client
	model string
}

type chatRequest struct {
	Model         string        `json:"model"`
	Messages      []chatMessage `json:"messages"`
	MaxTokens     int           `json:"max_tokens,omitempty"`
	Temperature   *float64      `json:"temperature,omitempty"`
	StopSequences []string      `json:"stop_sequences,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	FinishReason string `json:"finish_reason"`
	Message      struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
}

// NewLLMService creates a new Cohere LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cohere: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &LLMService{
		api: provider.NewClient("cohere", cfg.BaseURL, cfg.HTTPClient, cfg.Timeout, map[string]string{
			"Authorization": "Bearer " + cfg.APIKey,
		}),
		model: cfg.Model,
	}, nil
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	return s.chat(ctx, []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}},
		driven.ChatOptions{MaxTokens: opts.MaxTokens, Temperature: opts.Temperature}, opts.StopWords)
}

// Chat conducts a multi-turn conversation. The v2 API takes system,
// user and assistant roles directly.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	return s.chat(ctx, messages, opts, nil)
}

func (s *LLMService) chat(
	ctx context.Context,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
	stop []string,
) (string, error) {
	msgs := make([]chatMessage, len(messages))
	for i, m := range messages {
		msgs[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	req := chatRequest{
		Model:         s.model,
		Messages:      msgs,
		MaxTokens:     opts.MaxTokens,
		Temperature:   opts.Temperature,
		StopSequences: stop,
	}

	var resp chatResponse
	if err := s.api.PostJSON(ctx, "v2/chat", req, &resp); err != nil {
		return "", err
	}

	var out strings.Builder
	for _, c := range resp.Message.Content {
		if c.Type == "text" {
			out.WriteString(c.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("cohere: no text content returned (finish reason %q)", resp.FinishReason)
	}
	return out.String(), nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the API key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	if err := s.api.Get(ctx, "v1/models?page_size=1", nil); err != nil {
		return fmt.Errorf("cohere: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
