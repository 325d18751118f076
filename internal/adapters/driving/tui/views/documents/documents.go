// Package documents provides the document picker view for the TUI.
package documents

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/pdfchat/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/pdfchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/pdfchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/pdfchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driving"
)

// View lists the user's documents and registers new ones.
type View struct {
	ctx             context.Context
	styles          *styles.Styles
	keymap          *keymap.KeyMap
	documentService driving.DocumentService

	documents    []domain.Document
	selected     int
	scrollOffset int
	width        int
	height       int
	loading      bool
	err          error

	// adding is true while the URL prompt is open.
	adding bool
	prompt *input.Prompt
}

// NewView creates a new documents view.
func NewView(ctx context.Context, s *styles.Styles, documentService driving.DocumentService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		ctx:             ctx,
		styles:          s,
		keymap:          keymap.DefaultKeyMap(),
		documentService: documentService,
		documents:       []domain.Document{},
		prompt:          input.NewPrompt(s, "URL: ", "https://example.com/paper.pdf or file:///path/to.pdf"),
	}
}

// Init loads the document list.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.loadDocuments()
}

func (v *View) loadDocuments() tea.Cmd {
	ctx := v.ctx
	svc := v.documentService
	return func() tea.Msg {
		docs, err := svc.List(ctx)
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

func (v *View) registerDocument(sourceURL string) tea.Cmd {
	ctx := v.ctx
	svc := v.documentService
	return func() tea.Msg {
		doc, err := svc.Register(ctx, driving.RegisterDocumentRequest{SourceURL: sourceURL})
		return messages.DocumentRegistered{Document: doc, Err: err}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if v.adding {
			return v.handlePromptKey(msg)
		}
		return v.handleKeyMsg(msg)

	case messages.DocumentsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.documents = msg.Documents
		if v.selected >= len(v.documents) {
			v.selected = max(len(v.documents)-1, 0)
		}
		v.adjustScroll()
		return v, nil

	case messages.DocumentRegistered:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.selected = 0
		v.scrollOffset = 0
		v.loading = true
		return v, v.loadDocuments()

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	if v.adding {
		var cmd tea.Cmd
		v.prompt, cmd = v.prompt.Update(msg)
		return v, cmd
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()
	switch {
	case keymap.Matches(key, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case keymap.Matches(key, v.keymap.Down):
		if v.selected < len(v.documents)-1 {
			v.selected++
			v.adjustScroll()
		}
	case keymap.Matches(key, v.keymap.Select):
		if v.selected < len(v.documents) {
			doc := v.documents[v.selected]
			return v, func() tea.Msg { return messages.DocumentSelected{Document: doc} }
		}
	case keymap.Matches(key, v.keymap.Add):
		v.adding = true
		v.prompt.Reset()
		return v, v.prompt.Focus()
	case keymap.Matches(key, v.keymap.Reload):
		v.loading = true
		return v, v.loadDocuments()
	case keymap.Matches(key, v.keymap.Help):
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewHelp} }
	case keymap.Matches(key, v.keymap.Quit):
		return v, func() tea.Msg { return messages.Quit{} }
	}
	return v, nil
}

func (v *View) handlePromptKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		v.adding = false
		v.prompt.Blur()
		return v, nil
	case tea.KeyEnter:
		sourceURL := strings.TrimSpace(v.prompt.Value())
		if sourceURL == "" {
			return v, nil
		}
		v.adding = false
		v.prompt.Blur()
		return v, v.registerDocument(sourceURL)
	}
	var cmd tea.Cmd
	v.prompt, cmd = v.prompt.Update(msg)
	return v, cmd
}

func (v *View) adjustScroll() {
	visible := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visible {
		v.scrollOffset = v.selected - visible + 1
	}
}

func (v *View) visibleItemCount() int {
	// title, blank line, prompt, help
	available := v.height - 8
	if available < 1 {
		available = 1
	}
	return available
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Documents (%d)", len(v.documents))))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
		b.WriteString("\n")
	case len(v.documents) == 0:
		b.WriteString(v.styles.Muted.Render("No documents yet. Press a to add one."))
		b.WriteString("\n")
	default:
		visible := v.visibleItemCount()
		end := min(v.scrollOffset+visible, len(v.documents))
		for i := v.scrollOffset; i < end; i++ {
			b.WriteString(v.renderDocument(i, &v.documents[i]))
			b.WriteString("\n")
		}
		if len(v.documents) > visible {
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]", v.scrollOffset+1, end, len(v.documents))))
			b.WriteString("\n")
		}
	}

	if v.err != nil {
		b.WriteString("\n")
		b.WriteString(v.styles.Error.Render("Error: " + domain.UserMessage(v.err)))
		b.WriteString("\n")
	}

	if v.adding {
		b.WriteString("\n")
		b.WriteString(v.prompt.View())
		b.WriteString("\n")
		b.WriteString(v.styles.Help.Render("[enter] add  [esc] cancel"))
		return b.String()
	}

	b.WriteString("\n")
	b.WriteString(v.renderHelp())
	return b.String()
}

func (v *View) renderDocument(index int, doc *domain.Document) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	title := doc.Title
	if title == "" {
		title = doc.ID
	}
	maxLen := max(v.width/2-4, 10)
	if len(title) > maxLen {
		title = title[:maxLen-3] + "..."
	}

	line := fmt.Sprintf("%s%s  %s", indicator, title, v.styles.Muted.Render(doc.CreatedAt.Format("2006-01-02")))
	if index == v.selected {
		return v.styles.Selected.Render(line)
	}
	return v.styles.Normal.Render(line)
}

func (v *View) renderHelp() string {
	bindings := v.keymap.DocumentsHelp()
	hints := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		h := binding.Help()
		hints = append(hints, fmt.Sprintf("[%s] %s", h.Key, h.Desc))
	}
	return v.styles.Help.Render(strings.Join(hints, "  "))
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.prompt.SetWidth(width)
	v.adjustScroll()
}

// Documents returns the loaded documents.
func (v *View) Documents() []domain.Document { return v.documents }

// Selected returns the highlighted index.
func (v *View) Selected() int { return v.selected }

// Adding reports whether the URL prompt is open.
func (v *View) Adding() bool { return v.adding }

// Err returns the last error.
func (v *View) Err() error { return v.err }
