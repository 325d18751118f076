package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pdfchat/internal/adapters/driving/tui"
)

var chatCmd = &cobra.Command{
	Use:     "chat [doc-id]",
	Aliases: []string{"tui"},
	Short:   "Chat with a document in the terminal",
	Long: `Launch the interactive chat.

Without an argument a document picker opens first. With a document id the
conversation for that document opens directly.

Controls:
  ↑/k, ↓/j  Navigate documents
  Enter     Open chat / send question
  a         Add a document
  PgUp/PgDn Scroll the conversation
  Esc       Back
  Ctrl+C    Quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func newChatApp(cmd *cobra.Command, args []string) (*tui.App, error) {
	app, err := tui.NewAppWithContext(commandContext(cmd), &tui.Ports{
		Chat:     chatService,
		Document: documentService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create TUI: %w", err)
	}
	if len(args) == 1 {
		app.OpenDocument(args[0])
	}
	return app, nil
}

func runChat(cmd *cobra.Command, args []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	app, err := newChatApp(cmd, args)
	if err != nil {
		return err
	}
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
