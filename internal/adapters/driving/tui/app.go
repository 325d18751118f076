package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/pdfchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/pdfchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/pdfchat/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/pdfchat/internal/adapters/driving/tui/views/documents"
	"github.com/custodia-labs/pdfchat/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles

	documentsView *documents.View
	chatView      *chat.View

	// selectedDocument is the document whose chat is open.
	selectedDocument *domain.Document

	currentView messages.ViewType

	// initialDocument opens straight into a chat when set.
	initialDocument string

	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	return NewAppWithContext(context.Background(), ports)
}

// NewAppWithContext creates the application with a context that every
// service call inherits. The user identity travels in this context.
func NewAppWithContext(ctx context.Context, ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	return &App{
		ports:         ports,
		ctx:           ctx,
		styles:        s,
		documentsView: documents.NewView(ctx, s, ports.Document),
		chatView:      chat.NewView(ctx, s, ports.Chat),
		currentView:   messages.ViewDocuments,
	}, nil
}

// OpenDocument makes the app start in the chat for documentID.
func (a *App) OpenDocument(documentID string) *App {
	a.initialDocument = documentID
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{tea.SetWindowTitle("pdfchat")}
	if a.initialDocument != "" {
		cmds = append(cmds, a.openInitialDocument())
	} else {
		cmds = append(cmds, a.documentsView.Init())
	}
	return tea.Batch(cmds...)
}

func (a *App) openInitialDocument() tea.Cmd {
	ctx, svc, id := a.ctx, a.ports.Document, a.initialDocument
	return func() tea.Msg {
		doc, err := svc.Get(ctx, id)
		if err != nil {
			return messages.ErrorOccurred{Err: err}
		}
		return messages.DocumentSelected{Document: *doc}
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		switch a.currentView {
		case messages.ViewDocuments:
			a.documentsView, cmd = a.documentsView.Update(msg)
		case messages.ViewChat:
			a.chatView, cmd = a.chatView.Update(msg)
		case messages.ViewHelp:
			if msg.Type == tea.KeyEsc || msg.String() == "q" {
				a.currentView = messages.ViewDocuments
			}
		}
		return a, cmd

	case messages.DocumentSelected:
		a.selectedDocument = &msg.Document
		a.currentView = messages.ViewChat
		return a, a.chatView.SetDocument(msg.Document)

	case messages.ViewChanged:
		a.currentView = msg.View
		if msg.View == messages.ViewDocuments {
			a.selectedDocument = nil
			return a, a.documentsView.Init()
		}
		return a, nil

	case messages.DocumentsLoaded, messages.DocumentRegistered:
		a.documentsView, cmd = a.documentsView.Update(msg)
		return a, cmd

	case messages.HistoryLoaded, messages.IndexCompleted, messages.AnswerReceived:
		a.chatView, cmd = a.chatView.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		if a.currentView == messages.ViewDocuments {
			a.documentsView, cmd = a.documentsView.Update(msg)
		}
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	switch a.currentView {
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewHelp:
	}
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewChat:
		return a.chatView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	case messages.ViewDocuments:
	}
	return a.documentsView.View()
}

func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + `

Documents:
  j/k, ↑/↓    Navigate documents
  enter       Open chat
  a           Add a document by URL
  r           Reload
  q           Quit

Chat:
  (type)      Write a question
  enter       Ask
  pgup/pgdn   Scroll the conversation
  esc         Back to documents

  ctrl+c      Quit from anywhere

` + a.styles.Help.Render("[esc] back")
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType { return a.currentView }

// SelectedDocument returns the document whose chat is open.
func (a *App) SelectedDocument() *domain.Document { return a.selectedDocument }

// Err returns the last error that occurred.
func (a *App) Err() error { return a.err }

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool { return a.ready }

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.documentsView.SetDimensions(width, height)
	a.chatView.SetDimensions(width, height)
}
