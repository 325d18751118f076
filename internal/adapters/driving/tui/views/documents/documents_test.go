package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pdfchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driving"
)

type mockDocumentService struct {
	docs       []domain.Document
	listErr    error
	registered []driving.RegisterDocumentRequest
}

func (m *mockDocumentService) Register(_ context.Context, req driving.RegisterDocumentRequest) (*domain.Document, error) {
	m.registered = append(m.registered, req)
	return &domain.Document{ID: "doc-new", SourceURL: req.SourceURL}, nil
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.docs, m.listErr
}

func sampleDocs() []domain.Document {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return []domain.Document{
		{ID: "d1", Title: "Physics", CreatedAt: created},
		{ID: "d2", Title: "Biology", CreatedAt: created},
	}
}

func newLoadedView(t *testing.T, svc *mockDocumentService) *View {
	t.Helper()
	v := NewView(context.Background(), nil, svc)
	v.SetDimensions(80, 24)
	msg := v.Init()()
	v, _ = v.Update(msg)
	return v
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestView_LoadsDocuments(t *testing.T) {
	v := newLoadedView(t, &mockDocumentService{docs: sampleDocs()})

	assert.Len(t, v.Documents(), 2)
	out := v.View()
	assert.Contains(t, out, "Documents (2)")
	assert.Contains(t, out, "Physics")
	assert.Contains(t, out, "2024-03-01")
}

func TestView_EmptyList(t *testing.T) {
	v := newLoadedView(t, &mockDocumentService{})

	assert.Contains(t, v.View(), "No documents yet")
}

func TestView_ListError(t *testing.T) {
	v := newLoadedView(t, &mockDocumentService{listErr: domain.ErrUnauthenticated})

	assert.ErrorIs(t, v.Err(), domain.ErrUnauthenticated)
	assert.Contains(t, v.View(), "You need to sign in")
}

func TestView_NavigateAndSelect(t *testing.T) {
	v := newLoadedView(t, &mockDocumentService{docs: sampleDocs()})

	v, _ = v.Update(key("j"))
	assert.Equal(t, 1, v.Selected())
	v, _ = v.Update(key("j"))
	assert.Equal(t, 1, v.Selected())

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	selected, ok := cmd().(messages.DocumentSelected)
	require.True(t, ok)
	assert.Equal(t, "d2", selected.Document.ID)

	v, _ = v.Update(key("k"))
	assert.Equal(t, 0, v.Selected())
}

func TestView_SelectOnEmptyList(t *testing.T) {
	v := newLoadedView(t, &mockDocumentService{})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestView_AddDocument(t *testing.T) {
	svc := &mockDocumentService{}
	v := newLoadedView(t, svc)

	v, _ = v.Update(key("a"))
	require.True(t, v.Adding())

	v, _ = v.Update(key("file:///tmp/a.pdf"))
	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.False(t, v.Adding())

	msg := cmd()
	registered, ok := msg.(messages.DocumentRegistered)
	require.True(t, ok)
	assert.NoError(t, registered.Err)
	require.Len(t, svc.registered, 1)
	assert.Equal(t, "file:///tmp/a.pdf", svc.registered[0].SourceURL)

	svc.docs = []domain.Document{{ID: "doc-new", Title: "a"}}
	v, cmd = v.Update(registered)
	require.NotNil(t, cmd)
	v, _ = v.Update(cmd())
	assert.Len(t, v.Documents(), 1)
}

func TestView_AddCancelledAndBlank(t *testing.T) {
	svc := &mockDocumentService{}
	v := newLoadedView(t, svc)

	v, _ = v.Update(key("a"))
	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.True(t, v.Adding())

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, v.Adding())
	assert.Empty(t, svc.registered)
}

func TestView_RegisterError(t *testing.T) {
	v := newLoadedView(t, &mockDocumentService{})

	v, _ = v.Update(messages.DocumentRegistered{Err: domain.ErrInvalidInput})

	assert.Contains(t, v.View(), "The question was empty or invalid.")
}

func TestView_QuitAndHelp(t *testing.T) {
	v := newLoadedView(t, &mockDocumentService{})

	_, cmd := v.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, messages.Quit{}, cmd())

	_, cmd = v.Update(key("?"))
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewHelp}, cmd())
}

func TestView_ErrorOccurred(t *testing.T) {
	v := newLoadedView(t, &mockDocumentService{})
	boom := errors.New("boom")

	v, _ = v.Update(messages.ErrorOccurred{Err: boom})

	assert.Equal(t, boom, v.Err())
}
