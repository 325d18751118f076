package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driving"
)

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	exchange *domain.Exchange
	turns    []domain.ChatTurn
	index    domain.IndexResult
	err      error

	askedDoc, askedQuestion string
}

func (m *mockChatService) Ask(_ context.Context, documentID, question string) (*domain.Exchange, error) {
	m.askedDoc, m.askedQuestion = documentID, question
	return m.exchange, m.err
}

func (m *mockChatService) AskQuestion(_ context.Context, _, _ string) domain.AskResult {
	if m.err != nil {
		return domain.AskResult{ErrorText: domain.UserMessage(m.err)}
	}
	return domain.AskResult{Success: true, Answer: m.exchange.Answer.Text}
}

func (m *mockChatService) GenerateEmbeddings(_ context.Context, _ string) domain.IndexResult {
	return m.index
}

func (m *mockChatService) History(_ context.Context, _ string) ([]domain.ChatTurn, error) {
	return m.turns, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	err       error
	request   driving.RegisterDocumentRequest
}

func (m *mockDocumentService) Register(_ context.Context, req driving.RegisterDocumentRequest) (*domain.Document, error) {
	m.request = req
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Document{ID: "doc-new", Title: req.Title, SourceURL: req.SourceURL, CreatedAt: testTime}, nil
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.documents {
		if m.documents[i].ID == id {
			return &m.documents[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

// mockIndexingService is a mock implementation of driving.IndexingService.
type mockIndexingService struct {
	namespace *domain.Namespace
	state     *domain.IndexState
	err       error
}

func (m *mockIndexingService) EnsureIndexed(_ context.Context, _ string) (*domain.Namespace, error) {
	return m.namespace, m.err
}

func (m *mockIndexingService) Status(_ context.Context, _ string) (*domain.IndexState, error) {
	if m.state == nil {
		return nil, domain.ErrNotFound
	}
	return m.state, nil
}

var testTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestServer(chat *mockChatService, docs *mockDocumentService, indexing *mockIndexingService) *Server {
	ports := &Ports{Chat: chat, Document: docs}
	if indexing != nil {
		ports.Indexing = indexing
	}
	s, err := NewServer(ports)
	if err != nil {
		panic(err)
	}
	return s
}
