package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pdfchat/internal/adapters/driven/identity"
	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driving"
)

func TestNewApp_Unconfigured(t *testing.T) {
	t.Setenv("PDFCHAT_VECTOR_BACKEND", "memory")

	a, err := newApp(context.Background(), t.TempDir())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.services.Document)
	assert.NotNil(t, a.services.Settings)
	assert.NotNil(t, a.services.History)
	assert.Nil(t, a.services.Chat)
	assert.Nil(t, a.services.Indexing)
	assert.Nil(t, a.services.Tokens)
}

func TestNewApp_Configured(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PDFCHAT_VECTOR_BACKEND", "sqlite")
	t.Setenv("PDFCHAT_LOCK_BACKEND", "local")
	t.Setenv("PDFCHAT_EMBEDDING_PROVIDER", "ollama")
	t.Setenv("PDFCHAT_EMBEDDING_BASE_URL", "http://127.0.0.1:1")
	t.Setenv("PDFCHAT_LLM_PROVIDER", "ollama")
	t.Setenv("PDFCHAT_LLM_BASE_URL", "http://127.0.0.1:1")
	t.Setenv("PDFCHAT_IDENTITY_JWT_SECRET", "test-secret")

	a, err := newApp(context.Background(), dir)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.services.Chat)
	assert.NotNil(t, a.services.Indexing)
	require.NotNil(t, a.services.Tokens)

	token, err := a.services.Tokens.Issue("alice", time.Hour)
	require.NoError(t, err)
	user, err := a.services.Tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", user)

	_, err = os.Stat(filepath.Join(dir, "data", "pdfchat.db"))
	assert.NoError(t, err)
}

func TestNewApp_RequestUserWins(t *testing.T) {
	t.Setenv("PDFCHAT_VECTOR_BACKEND", "memory")
	t.Setenv("PDFCHAT_IDENTITY_USER_ID", "local-user")

	a, err := newApp(context.Background(), t.TempDir())
	require.NoError(t, err)
	defer a.Close()

	ctx := identity.WithUser(context.Background(), "remote-user")
	doc, err := a.services.Document.Register(ctx, driving.RegisterDocumentRequest{SourceURL: "https://example.com/a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "remote-user", doc.OwnerID)

	_, err = a.services.Document.Get(context.Background(), doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNewApp_RemoteDocumentsRejectLocalSources(t *testing.T) {
	t.Setenv("PDFCHAT_VECTOR_BACKEND", "memory")
	dir := t.TempDir()

	a, err := newApp(context.Background(), dir)
	require.NoError(t, err)
	defer a.Close()

	ctx := identity.WithUser(context.Background(), "remote-user")
	for _, source := range []string{
		"file://" + filepath.Join(dir, "config.toml"),
		"http://127.0.0.1:8080/a.pdf",
		"https://10.0.0.7/a.pdf",
	} {
		_, err := a.services.RemoteDocument.Register(ctx, driving.RegisterDocumentRequest{SourceURL: source})
		assert.ErrorIs(t, err, domain.ErrInvalidInput, source)
	}

	doc, err := a.services.Document.Register(ctx, driving.RegisterDocumentRequest{
		SourceURL: "file://" + filepath.Join(dir, "notes.txt"),
	})
	require.NoError(t, err)
	assert.Equal(t, "remote-user", doc.OwnerID)
}

func TestNewApp_UnknownBackend(t *testing.T) {
	t.Setenv("PDFCHAT_VECTOR_BACKEND", "cassandra")

	_, err := newApp(context.Background(), t.TempDir())

	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}
