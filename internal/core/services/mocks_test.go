package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pdfchat/internal/adapters/driven/lock/local"
	"github.com/custodia-labs/pdfchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
	"github.com/custodia-labs/pdfchat/internal/normalisers"
	"github.com/custodia-labs/pdfchat/internal/normalisers/plaintext"
	"github.com/custodia-labs/pdfchat/internal/postprocessors/chunker"
)

const testUser = "user-1"

var errBoom = errors.New("boom")

// staticUser is a fixed identity for tests.
type staticUser string

func (u staticUser) CurrentUserID(_ context.Context) (string, bool) {
	return string(u), u != ""
}

// keywords give the mock embedder one dimension each.
var keywords = []string{"alpha", "beta", "gamma", "delta"}

// keywordVector counts keyword occurrences, with a floor so no vector is zero.
func keywordVector(text string) []float32 {
	lower := strings.ToLower(text)
	vec := make([]float32, len(keywords))
	for i, k := range keywords {
		vec[i] = float32(strings.Count(lower, k)) + 0.01
	}
	return vec
}

type mockEmbeddingService struct {
	mu         sync.Mutex
	err        error
	failOnCall int
	calls      int
	batchSizes []int
	queries    []string
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, text)
	if m.err != nil {
		return nil, m.err
	}
	return keywordVector(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.err != nil || (m.failOnCall > 0 && m.calls == m.failOnCall) {
		return nil, errBoom
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = keywordVector(t)
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int              { return len(keywords) }
func (m *mockEmbeddingService) ModelName() string            { return "mock-embed" }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error                 { return nil }

// mockLLMService replies with reply(msgs), or err.
type mockLLMService struct {
	mu      sync.Mutex
	reply   func(msgs []driven.ChatMessage) string
	err     error
	calls   [][]driven.ChatMessage
	options []driven.ChatOptions
}

func (m *mockLLMService) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	return m.Chat(context.Background(), []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}, driven.ChatOptions{})
}

func (m *mockLLMService) Chat(_ context.Context, msgs []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, msgs)
	m.options = append(m.options, opts)
	if m.err != nil {
		return "", m.err
	}
	if m.reply == nil {
		return "an answer", nil
	}
	return m.reply(msgs), nil
}

func (m *mockLLMService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockLLMService) ModelName() string            { return "mock-llm" }
func (m *mockLLMService) Ping(_ context.Context) error { return nil }
func (m *mockLLMService) Close() error                 { return nil }

type mockBlobFetcher struct {
	mu       sync.Mutex
	content  map[string]string
	mimeType string
	err      error
	calls    int
	delay    time.Duration
}

func (m *mockBlobFetcher) Fetch(_ context.Context, url string) ([]byte, string, error) {
	m.mu.Lock()
	m.calls++
	err, delay := m.err, m.delay
	body, ok := m.content[url]
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", errors.New("404 not found")
	}
	return []byte(body), m.mimeType, nil
}

func (m *mockBlobFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockPromptStore struct {
	prompts map[string]string
	err     error
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.prompts[name], nil
}

func (m *mockPromptStore) Reload() {}

// failingMessageStore wraps a MessageStore and fails selected calls.
type failingMessageStore struct {
	driven.MessageStore
	listErr   error
	appendErr func(turn domain.ChatTurn) error
}

func (f *failingMessageStore) List(ctx context.Context, ownerID, documentID string) ([]domain.ChatTurn, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.MessageStore.List(ctx, ownerID, documentID)
}

func (f *failingMessageStore) Append(ctx context.Context, turn domain.ChatTurn) error {
	if f.appendErr != nil {
		if err := f.appendErr(turn); err != nil {
			return err
		}
	}
	return f.MessageStore.Append(ctx, turn)
}

// failingNamespaceStore wraps a NamespaceStore and fails selected calls.
type failingNamespaceStore struct {
	driven.NamespaceStore
	upsertErr error
	queryErr  error
}

func (f *failingNamespaceStore) Upsert(ctx context.Context, ns string, records []domain.VectorRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	return f.NamespaceStore.Upsert(ctx, ns, records)
}

func (f *failingNamespaceStore) Query(ctx context.Context, ns string, vec []float32, topK int) ([]domain.ScoredPassage, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.NamespaceStore.Query(ctx, ns, vec, topK)
}

// pipeline wires every service over in-memory stores and mocks.
type pipeline struct {
	identity   staticUser
	docStore   *memory.DocumentStore
	messages   *failingMessageStore
	namespaces *memory.NamespaceStore
	nsWrapper  *failingNamespaceStore
	states     *memory.IndexStateStore
	fetcher    *mockBlobFetcher
	embedder   *mockEmbeddingService
	llm        *mockLLMService

	documents *DocumentService
	indexing  *IndexingService
	history   *HistoryService
	chat      *ChatService
}

type pipelineOption func(*pipelineConfig)

type pipelineConfig struct {
	batchSize int
	chunkSize int
	chat      domain.ChatSettings
	locker    driven.Locker
	identity  staticUser
}

func withBatchSize(n int) pipelineOption { return func(c *pipelineConfig) { c.batchSize = n } }
func withChunkSize(n int) pipelineOption { return func(c *pipelineConfig) { c.chunkSize = n } }
func withChat(s domain.ChatSettings) pipelineOption {
	return func(c *pipelineConfig) { c.chat = s }
}
func withLocker(l driven.Locker) pipelineOption { return func(c *pipelineConfig) { c.locker = l } }
func withIdentity(u staticUser) pipelineOption  { return func(c *pipelineConfig) { c.identity = u } }

func newPipeline(t *testing.T, opts ...pipelineOption) *pipeline {
	t.Helper()

	cfg := pipelineConfig{batchSize: 96, chunkSize: 1000, locker: local.New(time.Second), identity: testUser}
	for _, opt := range opts {
		opt(&cfg)
	}

	registry := normalisers.NewRegistry()
	registry.Register(plaintext.New())

	p := &pipeline{
		identity:   cfg.identity,
		docStore:   memory.NewDocumentStore(),
		messages:   &failingMessageStore{MessageStore: memory.NewMessageStore()},
		namespaces: memory.NewNamespaceStore(),
		states:     memory.NewIndexStateStore(),
		fetcher:    &mockBlobFetcher{content: map[string]string{}, mimeType: "text/plain"},
		embedder:   &mockEmbeddingService{},
		llm:        &mockLLMService{},
	}
	p.nsWrapper = &failingNamespaceStore{NamespaceStore: p.namespaces}

	splitter := chunker.New(chunker.WithChunkSize(cfg.chunkSize), chunker.WithOverlap(0))

	p.documents = NewDocumentService(p.docStore, p.identity)
	p.indexing = NewIndexingService(
		p.docStore, p.states, p.nsWrapper, p.fetcher, registry, splitter, p.embedder, p.identity,
		IndexingOptions{BatchSize: cfg.batchSize},
	)
	if cfg.locker != nil {
		p.indexing.SetLocker(cfg.locker)
	}
	p.history = NewHistoryService(p.messages, p.identity)
	p.chat = NewChatService(
		p.indexing,
		p.docStore,
		p.history,
		NewQueryRephraser(p.llm, nil),
		NewRetriever(p.embedder, p.nsWrapper, 2),
		NewAnswerGenerator(p.llm, nil),
		p.identity,
		cfg.chat,
	)
	return p
}

// addDocument registers a document for testUser whose blob holds body.
func (p *pipeline) addDocument(t *testing.T, id, body string) *domain.Document {
	t.Helper()
	url := "https://files.example.com/" + id + ".txt"
	p.fetcher.mu.Lock()
	p.fetcher.content[url] = body
	p.fetcher.mu.Unlock()

	doc := &domain.Document{
		ID:        id,
		OwnerID:   testUser,
		SourceURL: url,
		Title:     id,
		CreatedAt: time.Now(),
	}
	require.NoError(t, p.docStore.SaveDocument(context.Background(), doc))
	return doc
}

const sampleText = "Alpha particles are helium nuclei.\n\n" +
	"Beta decay emits electrons.\n\n" +
	"Gamma rays are photons.\n\n" +
	"Delta is the fourth letter."
