package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
)

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("returns answer and passages", func(t *testing.T) {
		chat := &mockChatService{exchange: &domain.Exchange{
			Answer:   domain.ChatTurn{Role: domain.RoleAI, Text: "Electrons."},
			Query:    "beta decay emission",
			Passages: []domain.ScoredPassage{{Text: "Beta decay emits electrons.", Score: 0.9, Position: 1}},
		}}
		server := newTestServer(chat, &mockDocumentService{}, nil)

		_, out, err := server.handleAsk(ctx, nil, AskInput{DocumentID: "doc-1", Question: "What is emitted?"})
		require.NoError(t, err)
		assert.Equal(t, "Electrons.", out.Answer)
		assert.Equal(t, "beta decay emission", out.Query)
		require.Len(t, out.Passages, 1)
		assert.Equal(t, 1, out.Passages[0].Position)
		assert.Equal(t, "doc-1", chat.askedDoc)
		assert.Equal(t, "What is emitted?", chat.askedQuestion)
	})

	t.Run("failure is a user message, not an answer", func(t *testing.T) {
		chat := &mockChatService{err: domain.ErrQuotaExceeded}
		server := newTestServer(chat, &mockDocumentService{}, nil)

		_, out, err := server.handleAsk(ctx, nil, AskInput{DocumentID: "doc-1", Question: "q"})
		require.Error(t, err)
		assert.Equal(t, domain.UserMessage(domain.ErrQuotaExceeded), err.Error())
		assert.Empty(t, out.Answer)
	})
}

func TestServer_handleEnsureIndexed(t *testing.T) {
	ctx := context.Background()

	t.Run("reports chunk count through indexing", func(t *testing.T) {
		indexing := &mockIndexingService{namespace: &domain.Namespace{ID: "doc-1", ChunkCount: 12}}
		server := newTestServer(&mockChatService{}, &mockDocumentService{}, indexing)

		_, out, err := server.handleEnsureIndexed(ctx, nil, DocumentInput{DocumentID: "doc-1"})
		require.NoError(t, err)
		assert.Equal(t, IndexOutput{Completed: true, ChunkCount: 12}, out)
	})

	t.Run("indexing failure", func(t *testing.T) {
		indexing := &mockIndexingService{err: domain.ErrSourceUnavailable}
		server := newTestServer(&mockChatService{}, &mockDocumentService{}, indexing)

		_, _, err := server.handleEnsureIndexed(ctx, nil, DocumentInput{DocumentID: "doc-1"})
		require.Error(t, err)
		assert.Equal(t, domain.UserMessage(domain.ErrSourceUnavailable), err.Error())
	})

	t.Run("falls back to chat without indexing port", func(t *testing.T) {
		chat := &mockChatService{index: domain.IndexResult{Completed: true}}
		server := newTestServer(chat, &mockDocumentService{}, nil)

		_, out, err := server.handleEnsureIndexed(ctx, nil, DocumentInput{DocumentID: "doc-1"})
		require.NoError(t, err)
		assert.True(t, out.Completed)

		chat.index = domain.IndexResult{ErrorText: "The document could not be found."}
		_, _, err = server.handleEnsureIndexed(ctx, nil, DocumentInput{DocumentID: "doc-1"})
		assert.EqualError(t, err, "The document could not be found.")
	})
}

func TestServer_handleHistory(t *testing.T) {
	chat := &mockChatService{turns: []domain.ChatTurn{
		{Role: domain.RoleHuman, Text: "q", CreatedAt: testTime},
		{Role: domain.RoleAI, Text: "a", CreatedAt: testTime},
	}}
	server := newTestServer(chat, &mockDocumentService{}, nil)

	_, out, err := server.handleHistory(context.Background(), nil, DocumentInput{DocumentID: "doc-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, "human", out.Turns[0].Role)
	assert.Equal(t, "ai", out.Turns[1].Role)

	chat.err = domain.ErrUnauthenticated
	_, _, err = server.handleHistory(context.Background(), nil, DocumentInput{DocumentID: "doc-1"})
	assert.EqualError(t, err, domain.UserMessage(domain.ErrUnauthenticated))
}

func TestServer_handleRegister(t *testing.T) {
	docs := &mockDocumentService{}
	server := newTestServer(&mockChatService{}, docs, nil)

	_, out, err := server.handleRegister(context.Background(), nil, RegisterInput{
		URL:   "https://example.com/paper.pdf",
		Title: "Paper",
	})
	require.NoError(t, err)
	assert.Equal(t, "doc-new", out.ID)
	assert.Equal(t, "Paper", out.Title)
	assert.Equal(t, "https://example.com/paper.pdf", docs.request.SourceURL)

	docs.err = domain.ErrInvalidInput
	_, _, err = server.handleRegister(context.Background(), nil, RegisterInput{URL: "ftp://x"})
	assert.EqualError(t, err, domain.UserMessage(domain.ErrInvalidInput))
}
