package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
)

var historyJSON bool

var historyCmd = &cobra.Command{
	Use:   "history <doc-id>",
	Short: "Show the conversation for a document",
	Long: `Print every question and answer recorded for a document, oldest first.

Only the most recent messages are sent to the model when answering; this
command always shows the full log.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

var historyImportCmd = &cobra.Command{
	Use:   "import <doc-id> <file.json>",
	Short: "Import question and answer pairs",
	Long: `Append a conversation held elsewhere to a document's history.

The file is a JSON array of {"question": "...", "answer": "..."} objects.
Each pair is written in one step so a partial import never leaves an
unanswered question behind.`,
	Args: cobra.ExactArgs(2),
	RunE: runHistoryImport,
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
	historyCmd.AddCommand(historyImportCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errNotConfigured
	}

	turns, err := chatService.History(commandContext(cmd), args[0])
	if err != nil {
		return userError(err)
	}

	if historyJSON {
		data, err := json.MarshalIndent(turns, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal history: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(turns) == 0 {
		cmd.Println("No messages yet.")
		return nil
	}
	for _, turn := range turns {
		label := "You"
		if turn.Role == domain.RoleAI {
			label = "AI"
		}
		cmd.Printf("[%s] %s:\n%s\n\n", turn.CreatedAt.Format("2006-01-02 15:04"), label, strings.TrimSpace(turn.Text))
	}
	return nil
}

type importedExchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func runHistoryImport(cmd *cobra.Command, args []string) error {
	if historyImporter == nil || documentService == nil {
		return errNotConfigured
	}

	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[1], err)
	}
	var pairs []importedExchange
	if err := json.Unmarshal(data, &pairs); err != nil {
		return fmt.Errorf("parsing %s: %w", args[1], err)
	}
	for i, p := range pairs {
		if strings.TrimSpace(p.Question) == "" || strings.TrimSpace(p.Answer) == "" {
			return fmt.Errorf("entry %d: question and answer are both required", i+1)
		}
	}

	ctx := commandContext(cmd)
	if _, err := documentService.Get(ctx, args[0]); err != nil {
		return userError(err)
	}

	for i, p := range pairs {
		if _, _, err := historyImporter.RecordExchange(ctx, args[0], p.Question, p.Answer); err != nil {
			return errors.Join(fmt.Errorf("imported %d of %d exchanges", i, len(pairs)), userError(err))
		}
	}
	cmd.Printf("Imported %d exchanges.\n", len(pairs))
	return nil
}
