package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStyles_NilTheme(t *testing.T) {
	s := NewStyles(nil)
	require.NotNil(t, s)
	assert.Equal(t, DefaultTheme(), s.Theme())
}

func TestDefaultStyles_RenderText(t *testing.T) {
	s := DefaultStyles()

	assert.Contains(t, s.Question.Render("You"), "You")
	assert.Contains(t, s.Answer.Render("AI"), "AI")
	assert.Contains(t, s.Error.Render("failed"), "failed")
}
