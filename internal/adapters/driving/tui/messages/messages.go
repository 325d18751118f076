// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/pdfchat/internal/core/domain"
)

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewDocuments lists the user's documents.
	ViewDocuments ViewType = iota
	// ViewChat is the conversation with one document.
	ViewChat
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewDocuments:
		return "documents"
	case ViewChat:
		return "chat"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// DocumentsLoaded carries the user's documents.
type DocumentsLoaded struct {
	Documents []domain.Document
	Err       error
}

// DocumentRegistered signals a document was added from the TUI.
type DocumentRegistered struct {
	Document *domain.Document
	Err      error
}

// DocumentSelected opens the chat for a document.
type DocumentSelected struct {
	Document domain.Document
}

// HistoryLoaded carries a document's conversation.
type HistoryLoaded struct {
	DocumentID string
	Turns      []domain.ChatTurn
	Err        error
}

// IndexCompleted reports the outcome of preparing a document.
type IndexCompleted struct {
	DocumentID string
	Result     domain.IndexResult
}

// AnswerReceived carries the outcome of a question.
type AnswerReceived struct {
	DocumentID string
	Question   string
	Result     domain.AskResult
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
