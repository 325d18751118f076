package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("missing chat service", func(t *testing.T) {
		server, err := NewServer(&Ports{Document: &mockDocumentService{}})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingChatService)
	})

	t.Run("missing document service", func(t *testing.T) {
		_, err := NewServer(&Ports{Chat: &mockChatService{}})
		assert.ErrorIs(t, err, ErrMissingDocumentService)
	})

	t.Run("valid ports", func(t *testing.T) {
		server, err := NewServer(&Ports{Chat: &mockChatService{}, Document: &mockDocumentService{}})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}
