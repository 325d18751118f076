// Package status provides the status bar shown under the chat.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/pdfchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/pdfchat/internal/adapters/driving/tui/styles"
)

// State is what the chat is currently doing.
type State string

const (
	StateReady    State = "ready"
	StateIndexing State = "indexing"
	StateThinking State = "thinking"
	StateError    State = "error"
)

// Bar displays chat status and keybinding hints.
type Bar struct {
	styles   *styles.Styles
	bindings []key.Binding
	state    State
	message  string
	turns    int
	width    int
}

// NewBar creates a status bar showing the given key hints.
func NewBar(s *styles.Styles, bindings []key.Binding) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if bindings == nil {
		bindings = keymap.DefaultKeyMap().ChatHelp()
	}
	return &Bar{
		styles:   s,
		bindings: bindings,
		state:    StateReady,
		width:    80,
	}
}

// View renders the status bar.
func (b *Bar) View() string {
	left := b.renderLeft()
	right := b.renderRight()

	padding := b.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (b *Bar) renderLeft() string {
	switch b.state {
	case StateIndexing:
		return b.styles.Muted.Render("Preparing document...")
	case StateThinking:
		return b.styles.Muted.Render("Thinking...")
	case StateError:
		if b.message != "" {
			return b.styles.Error.Render("Error: " + b.message)
		}
		return b.styles.Error.Render("Error")
	case StateReady:
	}
	if b.turns > 0 {
		return b.styles.Normal.Render(fmt.Sprintf("%d messages", b.turns))
	}
	return b.styles.Muted.Render("Ready")
}

func (b *Bar) renderRight() string {
	hints := make([]string, 0, len(b.bindings))
	for _, binding := range b.bindings {
		h := binding.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return b.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (b *Bar) SetState(state State) { b.state = state }

// State returns the current state.
func (b *Bar) State() State { return b.state }

// SetMessage sets the error message shown in StateError.
func (b *Bar) SetMessage(message string) { b.message = message }

// Message returns the current message.
func (b *Bar) Message() string { return b.message }

// SetTurns sets the number of messages in the conversation.
func (b *Bar) SetTurns(n int) { b.turns = n }

// Turns returns the message count.
func (b *Bar) Turns() int { return b.turns }

// SetWidth sets the status bar width.
func (b *Bar) SetWidth(width int) { b.width = width }

// Width returns the current width.
func (b *Bar) Width() int { return b.width }

// Clear resets the status bar to its ready state.
func (b *Bar) Clear() {
	b.state = StateReady
	b.message = ""
	b.turns = 0
}
