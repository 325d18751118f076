package services

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedBatchSize   = "embedding.batch_size"
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMAPIKey        = "llm.api_key"
	keyVectorBackend    = "vector.backend"
	keyQdrantURL        = "vector.qdrant_url"
	keyQdrantAPIKey     = "vector.qdrant_api_key"
	keyCollectionPrefix = "vector.collection_prefix"
	keyLockBackend      = "lock.backend"
	keyRedisAddr        = "lock.redis_addr"
	keyRedisPassword    = "lock.redis_password"
	keyLockTTL          = "lock.ttl"
	keyLockWait         = "lock.wait"
	keyChunkSize        = "chunking.chunk_size"
	keyChunkOverlap     = "chunking.overlap"
	keyTopK             = "retrieval.top_k"
	keyHistoryWindow    = "chat.history_window"
	keyQuestionLimit    = "chat.question_limit"
	keyS3Region         = "blob.s3_region"
	keyS3Endpoint       = "blob.s3_endpoint"
	keyUserID           = "identity.user_id"
	keyJWTSecret        = "identity.jwt_secret"
	keyJWTIssuer        = "identity.jwt_issuer"
	keyRequestsPerSec   = "transport.requests_per_second"
	keyMaxRetries       = "transport.max_retries"
)

// SecretKeys are config keys whose values must be masked for display.
func SecretKeys() []string {
	return []string{keyEmbedAPIKey, keyLLMAPIKey, keyQdrantAPIKey, keyRedisPassword, keyJWTSecret}
}

type setting struct {
	key   string
	value any
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:  s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:     s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:   s.configStore.GetString(keyEmbedBaseURL), // empty is valid for cloud providers
			APIKey:    s.configStore.GetString(keyEmbedAPIKey),
			BatchSize: s.getInt(keyEmbedBatchSize, d.Embedding.BatchSize),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:    s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Vector: domain.VectorSettings{
			Backend:          domain.VectorBackend(s.getString(keyVectorBackend, string(d.Vector.Backend))),
			QdrantURL:        s.getString(keyQdrantURL, d.Vector.QdrantURL),
			QdrantAPIKey:     s.configStore.GetString(keyQdrantAPIKey),
			CollectionPrefix: s.getString(keyCollectionPrefix, d.Vector.CollectionPrefix),
		},
		Lock: domain.LockSettings{
			Backend:       domain.LockBackend(s.getString(keyLockBackend, string(d.Lock.Backend))),
			RedisAddr:     s.getString(keyRedisAddr, d.Lock.RedisAddr),
			RedisPassword: s.configStore.GetString(keyRedisPassword),
			TTL:           s.getDuration(keyLockTTL, d.Lock.TTL),
			Wait:          s.getDuration(keyLockWait, d.Lock.Wait),
		},
		Chunking: domain.ChunkingSettings{
			ChunkSize: s.getInt(keyChunkSize, d.Chunking.ChunkSize),
			Overlap:   s.getInt(keyChunkOverlap, d.Chunking.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			TopK: s.getInt(keyTopK, d.Retrieval.TopK),
		},
		Chat: domain.ChatSettings{
			HistoryWindow: s.getInt(keyHistoryWindow, d.Chat.HistoryWindow),
			QuestionLimit: s.getInt(keyQuestionLimit, d.Chat.QuestionLimit),
		},
		Blob: domain.BlobSettings{
			S3Region:   s.getString(keyS3Region, d.Blob.S3Region),
			S3Endpoint: s.getString(keyS3Endpoint, d.Blob.S3Endpoint),
		},
		Identity: domain.IdentitySettings{
			UserID:    s.getString(keyUserID, d.Identity.UserID),
			JWTSecret: s.configStore.GetString(keyJWTSecret),
			JWTIssuer: s.getString(keyJWTIssuer, d.Identity.JWTIssuer),
		},
		Transport: domain.TransportSettings{
			RequestsPerSecond: s.getFloat(keyRequestsPerSec, d.Transport.RequestsPerSecond),
			MaxRetries:        s.getInt(keyMaxRetries, d.Transport.MaxRetries),
		},
	}

	return settings, nil
}

// Save persists application settings. Empty secrets are left untouched.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []setting{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedBatchSize, settings.Embedding.BatchSize},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyVectorBackend, string(settings.Vector.Backend)},
		{keyQdrantURL, settings.Vector.QdrantURL},
		{keyCollectionPrefix, settings.Vector.CollectionPrefix},
		{keyLockBackend, string(settings.Lock.Backend)},
		{keyRedisAddr, settings.Lock.RedisAddr},
		{keyLockTTL, settings.Lock.TTL.String()},
		{keyLockWait, settings.Lock.Wait.String()},
		{keyChunkSize, settings.Chunking.ChunkSize},
		{keyChunkOverlap, settings.Chunking.Overlap},
		{keyTopK, settings.Retrieval.TopK},
		{keyHistoryWindow, settings.Chat.HistoryWindow},
		{keyQuestionLimit, settings.Chat.QuestionLimit},
		{keyS3Region, settings.Blob.S3Region},
		{keyS3Endpoint, settings.Blob.S3Endpoint},
		{keyUserID, settings.Identity.UserID},
		{keyJWTIssuer, settings.Identity.JWTIssuer},
		{keyRequestsPerSec, settings.Transport.RequestsPerSecond},
		{keyMaxRetries, settings.Transport.MaxRetries},
	}

	secrets := []setting{
		{keyEmbedAPIKey, settings.Embedding.APIKey},
		{keyLLMAPIKey, settings.LLM.APIKey},
		{keyQdrantAPIKey, settings.Vector.QdrantAPIKey},
		{keyRedisPassword, settings.Lock.RedisPassword},
		{keyJWTSecret, settings.Identity.JWTSecret},
	}
	for _, sec := range secrets {
		if sec.value != "" {
			values = append(values, sec)
		}
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = modelOrDefault(model, domain.DefaultEmbeddingModels()[provider])
	settings.Embedding.BaseURL = baseURLFor(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if !slices.Contains(domain.AllLLMProviders(), provider) {
		return fmt.Errorf("provider %s does not support chat", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = modelOrDefault(model, domain.DefaultLLMModels()[provider])
	settings.LLM.BaseURL = baseURLFor(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that both providers are configured and every backend is known.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if !settings.Embedding.IsConfigured() {
		errs = append(errs, fmt.Errorf("embedding provider %q is not configured", settings.Embedding.Provider))
	}
	if !settings.LLM.IsConfigured() {
		errs = append(errs, fmt.Errorf("LLM provider %q is not configured", settings.LLM.Provider))
	}
	if !settings.Vector.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("unknown vector backend %q", settings.Vector.Backend))
	}
	if !settings.Lock.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("unknown lock backend %q", settings.Lock.Backend))
	}
	if settings.Chunking.ChunkSize <= 0 || settings.Chunking.Overlap < 0 ||
		settings.Chunking.Overlap >= settings.Chunking.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk overlap %d must be below chunk size %d",
			settings.Chunking.Overlap, settings.Chunking.ChunkSize))
	}
	if settings.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k must be positive, got %d", settings.Retrieval.TopK))
	}

	return errors.Join(errs...)
}

// Keys returns every settable key, sorted.
func (s *SettingsService) Keys() []string {
	keys := []string{
		keyEmbedProvider, keyEmbedModel, keyEmbedBaseURL, keyEmbedAPIKey, keyEmbedBatchSize,
		keyLLMProvider, keyLLMModel, keyLLMBaseURL, keyLLMAPIKey,
		keyVectorBackend, keyQdrantURL, keyQdrantAPIKey, keyCollectionPrefix,
		keyLockBackend, keyRedisAddr, keyRedisPassword, keyLockTTL, keyLockWait,
		keyChunkSize, keyChunkOverlap, keyTopK, keyHistoryWindow, keyQuestionLimit,
		keyS3Region, keyS3Endpoint, keyUserID, keyJWTSecret, keyJWTIssuer,
		keyRequestsPerSec, keyMaxRetries,
	}
	slices.Sort(keys)
	return keys
}

// SetValue stores one setting as text. Typed getters parse it on read.
func (s *SettingsService) SetValue(key, value string) error {
	if !slices.Contains(s.Keys(), key) {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

func modelOrDefault(model, def string) string {
	if model != "" {
		return model
	}
	return def
}

// baseURLFor keeps a custom URL for local providers and clears it for cloud ones.
func baseURLFor(provider domain.AIProvider, current string) string {
	if !provider.IsLocal() {
		return ""
	}
	if current == "" {
		return "http://localhost:11434"
	}
	return current
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getInt honours an explicit zero; only a missing key yields the default.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	if d := s.configStore.GetDuration(key); d > 0 {
		return d
	}
	return defaultVal
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
