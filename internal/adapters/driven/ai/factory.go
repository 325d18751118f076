// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	hfembed "github.com/custodia-labs/pdfchat/internal/adapters/driven/embedding/huggingface"
	ollamaembed "github.com/custodia-labs/pdfchat/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/pdfchat/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/pdfchat/internal/adapters/driven/llm/anthropic"
	coherellm "github.com/custodia-labs/pdfchat/internal/adapters/driven/llm/cohere"
	ollamallm "github.com/custodia-labs/pdfchat/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/pdfchat/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/pdfchat/internal/adapters/driven/resilience"
	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Factory builds provider adapters that share one resilient HTTP client,
// so rate limits and circuit breakers are tracked per provider host.
type Factory struct {
	client *http.Client
}

// NewFactory creates a factory whose adapters go through the resilient transport.
func NewFactory(transport domain.TransportSettings, opts ...resilience.Option) *Factory {
	return &Factory{client: resilience.NewClient(transport, 0, opts...)}
}

// NewFactoryWithClient creates a factory around an existing client.
func NewFactoryWithClient(client *http.Client) *Factory {
	return &Factory{client: client}
}

// Services bundles the provider adapters used by the chat pipeline.
type Services struct {
	Embedding driven.EmbeddingService
	LLM       driven.LLMService
}

// Close releases both services.
func (s *Services) Close() {
	if s.Embedding != nil {
		s.Embedding.Close()
	}
	if s.LLM != nil {
		s.LLM.Close()
	}
}

// CreateServices builds both adapters without pinging them. Unlike the
// validating constructors, an unconfigured provider is an error here:
// the pipeline cannot run without either service.
func (f *Factory) CreateServices(settings *domain.AppSettings) (*Services, error) {
	if !settings.Embedding.IsConfigured() {
		return nil, fmt.Errorf("%w: provider %q needs an API key (run 'pdfchat config embedding')",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	if !settings.LLM.IsConfigured() {
		return nil, fmt.Errorf("%w: provider %q needs an API key (run 'pdfchat config llm')",
			domain.ErrLLMUnavailable, settings.LLM.Provider)
	}

	embedding, err := f.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	llm, err := f.CreateLLMService(&settings.LLM)
	if err != nil {
		embedding.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	return &Services{Embedding: embedding, LLM: llm}, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
func (f *Factory) CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := f.CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'pdfchat config show' to check settings",
			domain.ErrEmbeddingUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'pdfchat config show' to check settings",
			domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
func (f *Factory) CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := f.CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'pdfchat config show' to check settings",
			domain.ErrLLMUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'pdfchat config show' to check settings",
			domain.ErrLLMUnavailable, err)
	}
	return svc, nil
}

// ValidateEmbeddingConfig creates an embedding service and pings it.
func (f *Factory) ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := f.CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig creates an LLM service and pings it.
func (f *Factory) ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := f.CreateLLMService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the embedding adapter for the configured provider.
func (f *Factory) CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: no embedding settings", domain.ErrInvalidInput)
	}

	dimensions := domain.EmbeddingDimensions()[settings.Model]

	switch settings.Provider {
	case domain.AIProviderHuggingFace:
		return hfembed.NewEmbeddingService(hfembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
			HTTPClient: f.client,
		})

	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
			HTTPClient: f.client,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
			HTTPClient: f.client,
		})

	case domain.AIProviderAnthropic, domain.AIProviderCohere:
		return nil, fmt.Errorf("%w: %s embeddings are not supported, use huggingface, ollama or openai",
			domain.ErrUnsupportedType, settings.Provider)

	default:
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateLLMService creates the LLM adapter for the configured provider.
func (f *Factory) CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: no LLM settings", domain.ErrInvalidInput)
	}

	switch settings.Provider {
	case domain.AIProviderCohere:
		return coherellm.NewLLMService(coherellm.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			HTTPClient: f.client,
		})

	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			HTTPClient: f.client,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			HTTPClient: f.client,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			HTTPClient: f.client,
		})

	case domain.AIProviderHuggingFace:
		return nil, fmt.Errorf("%w: huggingface chat is not supported, use cohere, openai, anthropic or ollama",
			domain.ErrUnsupportedType)

	default:
		return nil, fmt.Errorf("%w: LLM provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
}
