package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pdfchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/pdfchat/internal/core/domain"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(&Ports{Chat: &MockChatService{}, Document: &MockDocumentService{}})
	require.NoError(t, err)
	app.SetDimensions(80, 24)
	return app
}

func TestNewApp(t *testing.T) {
	app, err := NewApp(&Ports{Chat: &MockChatService{}, Document: &MockDocumentService{}})
	require.NoError(t, err)
	assert.Equal(t, messages.ViewDocuments, app.CurrentView())
	assert.False(t, app.Ready())
	assert.Equal(t, "Initialising...", app.View())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{Chat: &MockChatService{}})
	assert.ErrorIs(t, err, ErrMissingDocumentService)
	assert.Nil(t, app)
}

func TestApp_Init(t *testing.T) {
	app := newTestApp(t)
	assert.NotNil(t, app.Init())
}

func TestApp_WindowSize(t *testing.T) {
	app, err := NewApp(&Ports{Chat: &MockChatService{}, Document: &MockDocumentService{}})
	require.NoError(t, err)

	_, cmd := app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	assert.Nil(t, cmd)
	assert.True(t, app.Ready())
	assert.Contains(t, app.View(), "Documents")
}

func TestApp_DocumentSelectedOpensChat(t *testing.T) {
	app := newTestApp(t)
	doc := domain.Document{ID: "doc-1", Title: "Physics"}

	_, cmd := app.Update(messages.DocumentSelected{Document: doc})

	assert.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChat, app.CurrentView())
	require.NotNil(t, app.SelectedDocument())
	assert.Equal(t, "doc-1", app.SelectedDocument().ID)
	assert.Contains(t, app.View(), "Chat - Physics")
}

func TestApp_BackToDocuments(t *testing.T) {
	app := newTestApp(t)
	app.Update(messages.DocumentSelected{Document: domain.Document{ID: "doc-1"}})

	_, cmd := app.Update(messages.ViewChanged{View: messages.ViewDocuments})

	assert.NotNil(t, cmd)
	assert.Equal(t, messages.ViewDocuments, app.CurrentView())
	assert.Nil(t, app.SelectedDocument())
}

func TestApp_AnswerRoutedToChat(t *testing.T) {
	app := newTestApp(t)
	app.Update(messages.DocumentSelected{Document: domain.Document{ID: "doc-1"}})

	app.Update(messages.AnswerReceived{
		DocumentID: "doc-1",
		Question:   "why?",
		Result:     domain.AskResult{ErrorText: "The answer could not be generated. Please resend your question."},
	})

	assert.Contains(t, app.View(), "Error: The answer could not be generated.")
}

func TestApp_HelpView(t *testing.T) {
	app := newTestApp(t)

	app.Update(messages.ViewChanged{View: messages.ViewHelp})
	assert.Equal(t, messages.ViewHelp, app.CurrentView())
	assert.Contains(t, app.View(), "Add a document by URL")

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewDocuments, app.CurrentView())
}

func TestApp_QuitMessages(t *testing.T) {
	app := newTestApp(t)

	_, cmd := app.Update(messages.Quit{})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestApp_ErrorOccurred(t *testing.T) {
	app := newTestApp(t)
	boom := errors.New("boom")

	app.Update(messages.ErrorOccurred{Err: boom})

	assert.Equal(t, boom, app.Err())
}

func TestApp_OpenDocument(t *testing.T) {
	docs := &MockDocumentService{}
	app, err := NewAppWithContext(context.Background(), &Ports{Chat: &MockChatService{}, Document: docs})
	require.NoError(t, err)
	app.OpenDocument("doc-7")

	msg := app.openInitialDocument()()

	selected, ok := msg.(messages.DocumentSelected)
	require.True(t, ok)
	assert.Equal(t, "doc-7", selected.Document.ID)
}

func TestApp_OpenDocumentNotFound(t *testing.T) {
	docs := &MockDocumentService{GetFunc: func(context.Context, string) (*domain.Document, error) {
		return nil, domain.ErrNotFound
	}}
	app, err := NewApp(&Ports{Chat: &MockChatService{}, Document: docs})
	require.NoError(t, err)
	app.OpenDocument("missing")

	msg := app.openInitialDocument()()

	failed, ok := msg.(messages.ErrorOccurred)
	require.True(t, ok)
	assert.ErrorIs(t, failed.Err, domain.ErrNotFound)
}
