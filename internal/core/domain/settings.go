package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderCohere is Cohere cloud API.
	AIProviderCohere AIProvider = "cohere"

	// AIProviderHuggingFace is the Hugging Face inference API.
	AIProviderHuggingFace AIProvider = "huggingface"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderCohere, AIProviderHuggingFace:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p.IsValid() && !p.IsLocal()
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderCohere:
		return "Cohere (cloud)"
	case AIProviderHuggingFace:
		return "Hugging Face Inference (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// APIKey is the provider API key (cloud providers only).
	APIKey string

	// BatchSize caps the number of texts sent per embedding request.
	BatchSize int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// APIKey is the provider API key (cloud providers only).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderHuggingFace {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorBackend selects the namespace store implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendSQLite stores vectors in the local metadata database.
	VectorBackendSQLite VectorBackend = "sqlite"

	// VectorBackendMemory keeps vectors in process memory.
	VectorBackendMemory VectorBackend = "memory"

	// VectorBackendQdrant stores vectors in a Qdrant server.
	VectorBackendQdrant VectorBackend = "qdrant"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendSQLite, VectorBackendMemory, VectorBackendQdrant:
		return true
	default:
		return false
	}
}

// VectorSettings holds namespace store configuration.
type VectorSettings struct {
	Backend VectorBackend

	// QdrantURL is the Qdrant REST endpoint.
	QdrantURL string

	// QdrantAPIKey is sent as the api-key header when set.
	QdrantAPIKey string

	// CollectionPrefix is prepended to namespace IDs to form collection names.
	CollectionPrefix string
}

// LockBackend selects the per-document ingestion lock.
type LockBackend string

// Available lock backends.
const (
	// LockBackendNone disables locking; duplicate ingestion converges via idempotent upserts.
	LockBackendNone LockBackend = "none"

	// LockBackendLocal serialises ingestion within one process.
	LockBackendLocal LockBackend = "local"

	// LockBackendRedis serialises ingestion across processes.
	LockBackendRedis LockBackend = "redis"
)

// IsValid returns true if the backend is recognised.
func (b LockBackend) IsValid() bool {
	switch b {
	case LockBackendNone, LockBackendLocal, LockBackendRedis:
		return true
	default:
		return false
	}
}

// LockSettings holds ingestion lock configuration.
type LockSettings struct {
	Backend LockBackend

	// RedisAddr is host:port of the Redis server.
	RedisAddr string

	// RedisPassword authenticates against Redis.
	RedisPassword string

	// TTL bounds how long a crashed holder can block others.
	TTL time.Duration

	// Wait is how long EnsureIndexed waits for the lock before failing.
	Wait time.Duration
}

// ChunkingSettings holds text splitter configuration.
type ChunkingSettings struct {
	ChunkSize int
	Overlap   int
}

// RetrievalSettings holds retriever configuration.
type RetrievalSettings struct {
	// TopK is the number of passages retrieved per question.
	TopK int
}

// ChatSettings holds conversation configuration.
type ChatSettings struct {
	// HistoryWindow is how many recent turns are included in prompts.
	HistoryWindow int

	// QuestionLimit caps human turns per document. Zero means unlimited.
	QuestionLimit int
}

// BlobSettings holds blob storage configuration.
type BlobSettings struct {
	// S3Region is the AWS region for s3:// URLs.
	S3Region string

	// S3Endpoint overrides the S3 endpoint (MinIO, LocalStack).
	S3Endpoint string
}

// IdentitySettings holds user identity configuration.
type IdentitySettings struct {
	// UserID is the identity used by local commands (CLI, MCP over stdio).
	UserID string

	// JWTSecret verifies bearer tokens on the REST API.
	JWTSecret string

	// JWTIssuer is the expected token issuer. Empty accepts any.
	JWTIssuer string
}

// TransportSettings holds resilience configuration for provider HTTP calls.
type TransportSettings struct {
	// RequestsPerSecond limits calls per provider. Zero disables limiting.
	RequestsPerSecond float64

	// MaxRetries bounds transport-level retries on 429 and 5xx.
	MaxRetries int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Vector    VectorSettings
	Lock      LockSettings
	Chunking  ChunkingSettings
	Retrieval RetrievalSettings
	Chat      ChatSettings
	Blob      BlobSettings
	Identity  IdentitySettings
	Transport TransportSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// Providers default to Hugging Face embeddings and Cohere chat but are
// unconfigured until an API key is supplied.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:  AIProviderHuggingFace,
			Model:     DefaultEmbeddingModels()[AIProviderHuggingFace],
			BatchSize: 96,
		},
		LLM: LLMSettings{
			Provider: AIProviderCohere,
			Model:    DefaultLLMModels()[AIProviderCohere],
		},
		Vector: VectorSettings{
			Backend:          VectorBackendSQLite,
			QdrantURL:        "http://localhost:6333",
			CollectionPrefix: "pdfchat_",
		},
		Lock: LockSettings{
			Backend:   LockBackendLocal,
			RedisAddr: "localhost:6379",
			TTL:       5 * time.Minute,
			Wait:      2 * time.Minute,
		},
		Chunking: ChunkingSettings{
			ChunkSize: 1000,
			Overlap:   200,
		},
		Retrieval: RetrievalSettings{
			TopK: 4,
		},
		Chat: ChatSettings{
			HistoryWindow: 10,
		},
		Identity: IdentitySettings{
			UserID: "local",
		},
		Transport: TransportSettings{
			RequestsPerSecond: 5,
			MaxRetries:        3,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderHuggingFace,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderCohere,
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderHuggingFace: "sentence-transformers/all-mpnet-base-v2",
		AIProviderOllama:      "nomic-embed-text",
		AIProviderOpenAI:      "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderCohere:    "command-r",
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Hugging Face models
		"sentence-transformers/all-mpnet-base-v2": 768,
		"sentence-transformers/all-MiniLM-L6-v2":  384,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
