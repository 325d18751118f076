package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/pdfchat/internal/adapters/driven/identity"
	"github.com/custodia-labs/pdfchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/pdfchat/internal/adapters/driving/watch"
	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driving"
	"github.com/custodia-labs/pdfchat/internal/core/services"
)

var testTime = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

type mockChatService struct {
	exchange *domain.Exchange
	askErr   error
	asked    []string
	turns    []domain.ChatTurn
	histErr  error
}

func (m *mockChatService) Ask(_ context.Context, documentID, question string) (*domain.Exchange, error) {
	m.asked = append(m.asked, documentID+": "+question)
	if m.askErr != nil {
		return nil, m.askErr
	}
	return m.exchange, nil
}

func (m *mockChatService) AskQuestion(ctx context.Context, documentID, question string) domain.AskResult {
	ex, err := m.Ask(ctx, documentID, question)
	if err != nil {
		return domain.AskResult{ErrorText: domain.UserMessage(err)}
	}
	return domain.AskResult{Success: true, Answer: ex.Answer.Text}
}

func (m *mockChatService) GenerateEmbeddings(_ context.Context, _ string) domain.IndexResult {
	return domain.IndexResult{Completed: true}
}

func (m *mockChatService) History(_ context.Context, _ string) ([]domain.ChatTurn, error) {
	return m.turns, m.histErr
}

type mockDocumentService struct {
	mu         sync.Mutex
	docs       map[string]domain.Document
	registered []driving.RegisterDocumentRequest
	err        error
}

func (m *mockDocumentService) Register(_ context.Context, req driving.RegisterDocumentRequest) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.registered = append(m.registered, req)
	id := req.ID
	if id == "" {
		id = "doc-new"
	}
	title := req.Title
	if title == "" {
		title = "Untitled"
	}
	doc := domain.Document{ID: id, SourceURL: req.SourceURL, Title: title, CreatedAt: testTime}
	m.docs[id] = doc
	return &doc, nil
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	return out, nil
}

type mockIndexingService struct {
	indexed []string
	err     error
	states  map[string]*domain.IndexState
}

func (m *mockIndexingService) EnsureIndexed(_ context.Context, documentID string) (*domain.Namespace, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.indexed = append(m.indexed, documentID)
	return &domain.Namespace{
		ID: documentID, DocumentID: documentID, ChunkCount: 3, Dimensions: 4, EmbeddingModel: "mock-embed",
	}, nil
}

func (m *mockIndexingService) Status(_ context.Context, documentID string) (*domain.IndexState, error) {
	if s, ok := m.states[documentID]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

type mockHistoryImporter struct {
	pairs [][2]string
	err   error
}

func (m *mockHistoryImporter) RecordExchange(
	_ context.Context, documentID, question, answer string,
) (*domain.ChatTurn, *domain.ChatTurn, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	m.pairs = append(m.pairs, [2]string{question, answer})
	return &domain.ChatTurn{DocumentID: documentID, Role: domain.RoleHuman, Text: question},
		&domain.ChatTurn{DocumentID: documentID, Role: domain.RoleAI, Text: answer}, nil
}

type testServices struct {
	chat     *mockChatService
	docs     *mockDocumentService
	indexing *mockIndexingService
	history  *mockHistoryImporter
	settings *services.SettingsService
	tokens   *identity.JWTValidator
}

// setupTestServices installs fresh fakes for one test.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()
	s := &testServices{
		chat: &mockChatService{exchange: &domain.Exchange{
			Question: domain.ChatTurn{Role: domain.RoleHuman, Text: "What is it?"},
			Answer:   domain.ChatTurn{Role: domain.RoleAI, Text: "It is a paper about quarks."},
			Passages: []domain.ScoredPassage{{ID: "c1", Text: "Quarks   are\nfundamental.", Score: 0.87}},
		}},
		docs:     &mockDocumentService{docs: map[string]domain.Document{}},
		indexing: &mockIndexingService{states: map[string]*domain.IndexState{}},
		history:  &mockHistoryImporter{},
		settings: services.NewSettingsService(memory.NewConfigStore(), nil),
		tokens:   identity.NewJWTValidator("test-secret", "pdfchat"),
	}
	SetServices(&Services{
		Chat:     s.chat,
		Document: s.docs,
		Indexing: s.indexing,
		Settings: s.settings,
		History:  s.history,
		Tokens:   s.tokens,
	})
	t.Cleanup(func() { SetServices(&Services{}) })
	return s
}

// execute runs the root command with args and returns everything it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		resetFlags()
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores flag variables, which outlive a single Execute.
func resetFlags() {
	verbose = false
	askSources, askJSON = false, false
	docsAddTitle, docsAddID, docsAddMIME, docsAddIndex, docsJSON = "", "", "", false, false
	historyJSON = false
	serveAddr = ":8080"
	tokenUser, tokenTTL = "", 24*time.Hour
	watchExisting, watchNoIndex, watchSettle = false, false, watch.DefaultSettle
	_ = mcpServeCmd.Flags().Set("port", "0")
}
