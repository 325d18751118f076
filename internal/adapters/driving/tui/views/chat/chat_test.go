package chat

import (
	"context"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pdfchat/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/pdfchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/pdfchat/internal/core/domain"
)

const generationFailed = "The answer could not be generated. Please resend your question."

type mockChatService struct {
	mu      sync.Mutex
	turns   []domain.ChatTurn
	result  domain.AskResult
	index   domain.IndexResult
	asked   []string
	histErr error
}

func (m *mockChatService) Ask(_ context.Context, _, _ string) (*domain.Exchange, error) {
	return nil, nil
}

func (m *mockChatService) AskQuestion(_ context.Context, documentID, question string) domain.AskResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.asked = append(m.asked, question)
	if m.result.Success {
		m.turns = append(m.turns,
			domain.ChatTurn{DocumentID: documentID, Role: domain.RoleHuman, Text: question},
			domain.ChatTurn{DocumentID: documentID, Role: domain.RoleAI, Text: m.result.Answer},
		)
	}
	return m.result
}

func (m *mockChatService) GenerateEmbeddings(_ context.Context, _ string) domain.IndexResult {
	return m.index
}

func (m *mockChatService) History(_ context.Context, _ string) ([]domain.ChatTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ChatTurn(nil), m.turns...), m.histErr
}

func openView(t *testing.T, svc *mockChatService) *View {
	t.Helper()
	v := NewView(context.Background(), nil, svc)
	v.SetDimensions(100, 30)
	require.NotNil(t, v.SetDocument(domain.Document{ID: "doc-1", Title: "Physics"}))

	v, _ = v.Update(v.loadHistory()())
	v, _ = v.Update(v.ensureIndexed()())
	return v
}

func typeQuestion(v *View, q string) *View {
	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(q)})
	return v
}

func TestView_SetDocumentStartsIndexing(t *testing.T) {
	v := NewView(context.Background(), nil, &mockChatService{})
	v.SetDimensions(100, 30)

	cmd := v.SetDocument(domain.Document{ID: "doc-1", Title: "Physics"})

	require.NotNil(t, cmd)
	assert.True(t, v.Indexing())
	assert.Equal(t, status.StateIndexing, v.Status().State())
	assert.Contains(t, v.View(), "Preparing document...")
	assert.Contains(t, v.View(), "Chat - Physics")
}

func TestView_LoadsHistory(t *testing.T) {
	svc := &mockChatService{
		index: domain.IndexResult{Completed: true},
		turns: []domain.ChatTurn{
			{DocumentID: "doc-1", Role: domain.RoleHuman, Text: "What is a quark?"},
			{DocumentID: "doc-1", Role: domain.RoleAI, Text: "A fundamental particle."},
		},
	}

	v := openView(t, svc)

	assert.False(t, v.Indexing())
	assert.Len(t, v.Turns(), 2)
	out := v.View()
	assert.Contains(t, out, "What is a quark?")
	assert.Contains(t, out, "A fundamental particle.")
	assert.Equal(t, status.StateReady, v.Status().State())
	assert.Equal(t, 2, v.Status().Turns())
}

func TestView_IndexFailureShownAsError(t *testing.T) {
	svc := &mockChatService{index: domain.IndexResult{ErrorText: "The document could not be downloaded or read. Please try again."}}

	v := openView(t, svc)

	assert.Equal(t, "The document could not be downloaded or read. Please try again.", v.ErrorText())
	assert.Equal(t, status.StateError, v.Status().State())
}

func TestView_AskSuccess(t *testing.T) {
	svc := &mockChatService{
		index:  domain.IndexResult{Completed: true},
		result: domain.AskResult{Success: true, Answer: "Two up quarks."},
	}
	v := openView(t, svc)

	v = typeQuestion(v, "Proton makeup?")
	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, v.Thinking())
	assert.Equal(t, "Proton makeup?", v.Pending())
	assert.Contains(t, v.View(), "Thinking...")

	answer := v.ask("Proton makeup?")()
	v, cmd = v.Update(answer)
	require.NotNil(t, cmd)
	assert.False(t, v.Thinking())
	assert.Empty(t, v.Pending())
	assert.Empty(t, v.ErrorText())

	v, _ = v.Update(cmd())
	require.Len(t, v.Turns(), 2)
	assert.Equal(t, domain.RoleAI, v.Turns()[1].Role)
	assert.Contains(t, v.View(), "Two up quarks.")
}

func TestView_AskFailureNeverShownAsAnswer(t *testing.T) {
	svc := &mockChatService{
		index:  domain.IndexResult{Completed: true},
		result: domain.AskResult{ErrorText: generationFailed},
	}
	v := openView(t, svc)

	v = typeQuestion(v, "Anything?")
	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	v, cmd := v.Update(v.ask("Anything?")())
	v, _ = v.Update(cmd())

	assert.Equal(t, generationFailed, v.ErrorText())
	assert.Empty(t, v.Turns())
	assert.Contains(t, v.View(), "Error: "+generationFailed)
	assert.NotContains(t, v.renderConversation(), generationFailed)
}

func TestView_BlankQuestionIgnored(t *testing.T) {
	svc := &mockChatService{index: domain.IndexResult{Completed: true}}
	v := openView(t, svc)

	v = typeQuestion(v, "   ")
	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.False(t, v.Thinking())
}

func TestView_NoSecondQuestionWhileThinking(t *testing.T) {
	svc := &mockChatService{index: domain.IndexResult{Completed: true}}
	v := openView(t, svc)

	v = typeQuestion(v, "one")
	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	v = typeQuestion(v, "two")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Equal(t, "one", v.Pending())
}

func TestView_IgnoresOtherDocuments(t *testing.T) {
	svc := &mockChatService{index: domain.IndexResult{Completed: true}}
	v := openView(t, svc)

	v, _ = v.Update(messages.HistoryLoaded{DocumentID: "other", Turns: []domain.ChatTurn{{Text: "x"}}})
	v, _ = v.Update(messages.AnswerReceived{DocumentID: "other", Result: domain.AskResult{ErrorText: "nope"}})

	assert.Empty(t, v.Turns())
	assert.Empty(t, v.ErrorText())
}

func TestView_HistoryError(t *testing.T) {
	svc := &mockChatService{index: domain.IndexResult{Completed: true}, histErr: domain.ErrNotFound}

	v := openView(t, svc)

	assert.Equal(t, "That document could not be found.", v.ErrorText())
}

func TestView_EscGoesBack(t *testing.T) {
	v := openView(t, &mockChatService{index: domain.IndexResult{Completed: true}})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewDocuments}, cmd())
}

func TestView_EmptyConversation(t *testing.T) {
	v := openView(t, &mockChatService{index: domain.IndexResult{Completed: true}})

	assert.Contains(t, v.View(), "No messages yet")
}
