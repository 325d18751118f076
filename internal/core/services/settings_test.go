package services

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pdfchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/pdfchat/internal/core/domain"
)

type mockAIValidator struct {
	embeddingErr error
	llmErr       error
	embedding    *domain.EmbeddingSettings
	llm          *domain.LLMSettings
}

func (m *mockAIValidator) ValidateEmbedding(cfg *domain.EmbeddingSettings) error {
	m.embedding = cfg
	return m.embeddingErr
}

func (m *mockAIValidator) ValidateLLM(cfg *domain.LLMSettings) error {
	m.llm = cfg
	return m.llmErr
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings(), *settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"embedding.provider":            "openai",
		"embedding.model":               "text-embedding-3-large",
		"vector.backend":                "qdrant",
		"lock.backend":                  "redis",
		"lock.ttl":                      "30s",
		"lock.wait":                     int64(10),
		"chunking.chunk_size":           500,
		"chunking.overlap":              0,
		"chat.question_limit":           3,
		"transport.requests_per_second": 0.5,
	})
	service := NewSettingsService(store, nil)

	settings, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
	assert.Equal(t, domain.VectorBackendQdrant, settings.Vector.Backend)
	assert.Equal(t, domain.LockBackendRedis, settings.Lock.Backend)
	assert.Equal(t, 30*time.Second, settings.Lock.TTL)
	assert.Equal(t, 10*time.Second, settings.Lock.Wait)
	assert.Equal(t, 500, settings.Chunking.ChunkSize)
	assert.Equal(t, 0, settings.Chunking.Overlap)
	assert.Equal(t, 3, settings.Chat.QuestionLimit)
	assert.InDelta(t, 0.5, settings.Transport.RequestsPerSecond, 1e-9)
}

func TestSettingsService_Get_InvalidProviderFallsBack(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{"llm.provider": "acme"})
	settings, err := NewSettingsService(store, nil).Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderCohere, settings.LLM.Provider)
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	settings.LLM.APIKey = "co-key"
	settings.Lock.TTL = time.Minute
	settings.Chat.QuestionLimit = 5
	require.NoError(t, service.Save(&settings))

	assert.Equal(t, "1m0s", store.GetString("lock.ttl"))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, *got)
}

func TestSettingsService_SaveKeepsSecretsWhenEmpty(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{"embedding.api_key": "hf-secret"})
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	require.NoError(t, service.Save(&settings))
	assert.Equal(t, "hf-secret", store.GetString("embedding.api_key"))
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOllama, "", ""))
	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
	assert.Equal(t, "http://localhost:11434", settings.Embedding.BaseURL)

	require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOpenAI, "text-embedding-3-large", "sk"))
	settings, err = service.Get()
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
	assert.Empty(t, settings.Embedding.BaseURL)
	assert.Equal(t, "sk", settings.Embedding.APIKey)
}

func TestSettingsService_SetProviderErrors(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	assert.Error(t, service.SetEmbeddingProvider("acme", "", ""))
	assert.ErrorContains(t, service.SetEmbeddingProvider(domain.AIProviderCohere, "", "k"), "does not support embeddings")
	assert.ErrorContains(t, service.SetEmbeddingProvider(domain.AIProviderOpenAI, "", ""), "API key required")

	assert.ErrorContains(t, service.SetLLMProvider(domain.AIProviderHuggingFace, "", "k"), "does not support chat")
	assert.ErrorContains(t, service.SetLLMProvider(domain.AIProviderAnthropic, "", ""), "API key required")
	require.NoError(t, service.SetLLMProvider(domain.AIProviderAnthropic, "", "sk-ant"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "claude-3-5-sonnet-latest", settings.LLM.Model)
}

func TestSettingsService_Validate(t *testing.T) {
	t.Run("unconfigured defaults", func(t *testing.T) {
		err := NewSettingsService(memory.NewConfigStore(), nil).Validate()
		require.Error(t, err)
		assert.ErrorContains(t, err, "embedding provider")
		assert.ErrorContains(t, err, "LLM provider")
	})

	t.Run("configured", func(t *testing.T) {
		store := memory.NewConfigStore(map[string]any{
			"embedding.api_key": "hf",
			"llm.api_key":       "co",
		})
		assert.NoError(t, NewSettingsService(store, nil).Validate())
	})

	t.Run("bad backends and chunking", func(t *testing.T) {
		store := memory.NewConfigStore(map[string]any{
			"embedding.api_key":   "hf",
			"llm.api_key":         "co",
			"vector.backend":      "faiss",
			"lock.backend":        "zookeeper",
			"chunking.chunk_size": 100,
			"chunking.overlap":    100,
			"retrieval.top_k":     0,
		})
		err := NewSettingsService(store, nil).Validate()
		require.Error(t, err)
		assert.ErrorContains(t, err, "vector backend")
		assert.ErrorContains(t, err, "lock backend")
		assert.ErrorContains(t, err, "chunk overlap")
		assert.ErrorContains(t, err, "top_k")
	})
}

func TestSettingsService_ValidateProviders(t *testing.T) {
	assert.NoError(t, NewSettingsService(memory.NewConfigStore(), nil).ValidateLLMConfig())

	validator := &mockAIValidator{llmErr: errors.New("unreachable")}
	service := NewSettingsService(memory.NewConfigStore(map[string]any{"embedding.model": "m"}), validator)

	require.NoError(t, service.ValidateEmbeddingConfig())
	assert.Equal(t, "m", validator.embedding.Model)
	assert.ErrorContains(t, service.ValidateLLMConfig(), "unreachable")
	assert.Equal(t, domain.AIProviderCohere, validator.llm.Provider)
}

func TestSecretKeys(t *testing.T) {
	assert.Contains(t, SecretKeys(), "llm.api_key")
	assert.Contains(t, SecretKeys(), "identity.jwt_secret")
}

func TestSettingsService_SetValue(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	require.NoError(t, service.SetValue("retrieval.top_k", "8"))
	require.NoError(t, service.SetValue("lock.wait", "45s"))
	require.NoError(t, service.SetValue("vector.backend", "qdrant"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, 8, settings.Retrieval.TopK)
	assert.Equal(t, 45*time.Second, settings.Lock.Wait)
	assert.Equal(t, domain.VectorBackendQdrant, settings.Vector.Backend)

	assert.ErrorIs(t, service.SetValue("retrieval.nope", "1"), domain.ErrInvalidInput)
}

func TestSettingsService_Keys(t *testing.T) {
	keys := NewSettingsService(memory.NewConfigStore(), nil).Keys()

	assert.True(t, slices.IsSorted(keys))
	assert.Contains(t, keys, "chat.question_limit")
	for _, secret := range SecretKeys() {
		assert.Contains(t, keys, secret)
	}
}
