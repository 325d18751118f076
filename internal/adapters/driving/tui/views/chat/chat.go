// Package chat provides the conversation view for one document.
//
// Answers and failures are kept apart: a failed question is shown in the
// error line under the conversation and is never rendered as an answer.
package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/pdfchat/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/pdfchat/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/pdfchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/pdfchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/pdfchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driving"
)

// reservedLines is the height taken by the title, prompt and status bar.
const reservedLines = 7

// View is the chat view.
type View struct {
	ctx         context.Context
	styles      *styles.Styles
	keymap      *keymap.KeyMap
	chatService driving.ChatService

	document *domain.Document
	turns    []domain.ChatTurn

	// pending is the question awaiting an answer.
	pending string
	// errText is the last failure shown to the user.
	errText string

	indexing bool
	thinking bool

	prompt   *input.Prompt
	viewport viewport.Model
	spinner  spinner.Model
	status   *status.Bar

	width  int
	height int
}

// NewView creates a chat view.
func NewView(ctx context.Context, s *styles.Styles, chatService driving.ChatService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	km := keymap.DefaultKeyMap()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = s.Muted

	return &View{
		ctx:         ctx,
		styles:      s,
		keymap:      km,
		chatService: chatService,
		prompt:      input.NewPrompt(s, "Ask: ", "Ask a question about this document..."),
		viewport:    viewport.New(80, 20),
		spinner:     sp,
		status:      status.NewBar(s, km.ChatHelp()),
	}
}

// SetDocument opens the conversation for doc. It loads the history and
// prepares the document in the background.
func (v *View) SetDocument(doc domain.Document) tea.Cmd {
	v.document = &doc
	v.turns = nil
	v.pending = ""
	v.errText = ""
	v.thinking = false
	v.indexing = true
	v.prompt.Reset()
	v.status.Clear()
	v.status.SetState(status.StateIndexing)
	v.refresh()

	return tea.Batch(v.loadHistory(), v.ensureIndexed(), v.spinner.Tick, v.prompt.Focus())
}

func (v *View) loadHistory() tea.Cmd {
	ctx, svc, docID := v.ctx, v.chatService, v.documentID()
	return func() tea.Msg {
		turns, err := svc.History(ctx, docID)
		return messages.HistoryLoaded{DocumentID: docID, Turns: turns, Err: err}
	}
}

func (v *View) ensureIndexed() tea.Cmd {
	ctx, svc, docID := v.ctx, v.chatService, v.documentID()
	return func() tea.Msg {
		return messages.IndexCompleted{DocumentID: docID, Result: svc.GenerateEmbeddings(ctx, docID)}
	}
}

func (v *View) ask(question string) tea.Cmd {
	ctx, svc, docID := v.ctx, v.chatService, v.documentID()
	return func() tea.Msg {
		return messages.AnswerReceived{
			DocumentID: docID,
			Question:   question,
			Result:     svc.AskQuestion(ctx, docID, question),
		}
	}
}

func (v *View) documentID() string {
	if v.document == nil {
		return ""
	}
	return v.document.ID
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.HistoryLoaded:
		if msg.DocumentID != v.documentID() {
			return v, nil
		}
		if msg.Err != nil {
			v.setError(domain.UserMessage(msg.Err))
		} else {
			v.turns = msg.Turns
		}
		v.refresh()
		return v, nil

	case messages.IndexCompleted:
		if msg.DocumentID != v.documentID() {
			return v, nil
		}
		v.indexing = false
		if !msg.Result.Completed {
			v.setError(msg.Result.ErrorText)
		}
		v.syncStatus()
		return v, nil

	case messages.AnswerReceived:
		if msg.DocumentID != v.documentID() {
			return v, nil
		}
		v.thinking = false
		v.pending = ""
		if msg.Result.Success {
			v.errText = ""
		} else {
			v.setError(msg.Result.ErrorText)
		}
		v.syncStatus()
		v.refresh()
		// The stored history is authoritative for what was recorded.
		return v, v.loadHistory()

	case spinner.TickMsg:
		if !v.busy() {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.prompt, cmd = v.prompt.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()
	switch {
	case keymap.Matches(key, v.keymap.Back):
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewDocuments} }

	case keymap.Matches(key, v.keymap.Send):
		question := strings.TrimSpace(v.prompt.Value())
		if question == "" || v.thinking {
			return v, nil
		}
		v.pending = question
		v.thinking = true
		v.errText = ""
		v.prompt.Reset()
		v.syncStatus()
		v.refresh()
		return v, tea.Batch(v.ask(question), v.spinner.Tick)

	case keymap.Matches(key, v.keymap.ScrollUp), keymap.Matches(key, v.keymap.ScrollDown):
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.prompt, cmd = v.prompt.Update(msg)
	return v, cmd
}

func (v *View) busy() bool {
	return v.indexing || v.thinking
}

func (v *View) setError(text string) {
	v.errText = text
	v.syncStatus()
}

func (v *View) syncStatus() {
	v.status.SetTurns(len(v.turns))
	switch {
	case v.thinking:
		v.status.SetState(status.StateThinking)
	case v.indexing:
		v.status.SetState(status.StateIndexing)
	case v.errText != "":
		v.status.SetState(status.StateError)
		v.status.SetMessage(v.errText)
	default:
		v.status.SetState(status.StateReady)
	}
}

// refresh re-renders the conversation into the viewport.
func (v *View) refresh() {
	v.viewport.SetContent(v.renderConversation())
	v.viewport.GotoBottom()
	v.syncStatus()
}

func (v *View) renderConversation() string {
	wrap := lipgloss.NewStyle().Width(max(v.viewport.Width-2, 20))

	var b strings.Builder
	for _, turn := range v.turns {
		if turn.Role == domain.RoleHuman {
			b.WriteString(v.styles.Question.Render("You"))
		} else {
			b.WriteString(v.styles.Answer.Render("AI"))
		}
		b.WriteString("\n")
		b.WriteString(wrap.Render(turn.Text))
		b.WriteString("\n\n")
	}
	if v.pending != "" {
		b.WriteString(v.styles.Question.Render("You"))
		b.WriteString("\n")
		b.WriteString(wrap.Render(v.pending))
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return v.styles.Muted.Render("No messages yet. Ask something about the document.")
	}
	return b.String()
}

// View renders the chat view.
func (v *View) View() string {
	var b strings.Builder

	title := "Chat"
	if v.document != nil {
		title = "Chat - " + v.document.Title
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n\n")
	b.WriteString(v.viewport.View())
	b.WriteString("\n")

	switch {
	case v.thinking:
		b.WriteString(v.spinner.View() + v.styles.Muted.Render(" Thinking..."))
	case v.indexing:
		b.WriteString(v.spinner.View() + v.styles.Muted.Render(" Preparing document..."))
	case v.errText != "":
		b.WriteString(v.styles.Error.Render("Error: " + v.errText))
	}
	b.WriteString("\n")

	b.WriteString(v.prompt.View())
	b.WriteString("\n")
	b.WriteString(v.status.View())
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.viewport.Width = width
	v.viewport.Height = max(height-reservedLines-2, 3)
	v.prompt.SetWidth(width)
	v.status.SetWidth(width)
	v.refresh()
}

// Document returns the open document, or nil.
func (v *View) Document() *domain.Document { return v.document }

// Turns returns the loaded conversation.
func (v *View) Turns() []domain.ChatTurn { return v.turns }

// Pending returns the question awaiting an answer.
func (v *View) Pending() string { return v.pending }

// ErrorText returns the failure currently shown.
func (v *View) ErrorText() string { return v.errText }

// Thinking reports whether a question is in flight.
func (v *View) Thinking() bool { return v.thinking }

// Indexing reports whether the document is still being prepared.
func (v *View) Indexing() bool { return v.indexing }

// Status returns the status bar.
func (v *View) Status() *status.Bar { return v.status }
