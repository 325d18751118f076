package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/logger"
)

var (
	askSources bool
	askJSON    bool
)

var askCmd = &cobra.Command{
	Use:   "ask <doc-id> <question>",
	Short: "Ask a question about a document",
	Long: `Ask one question about a document and print the answer.

The document is indexed first if needed. Earlier questions about the same
document are used to rephrase follow-ups, so "what about the second one?"
works after a related question.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

var indexCmd = &cobra.Command{
	Use:   "index <doc-id>",
	Short: "Index a document",
	Long: `Download, extract, chunk and embed a document.

Indexing happens once per document; running it again reports the existing
index. Questions index automatically, so this is only needed to prepare a
document ahead of time.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return indexDocument(cmd, args[0])
	},
}

func init() {
	askCmd.Flags().BoolVarP(&askSources, "sources", "s", false, "print the passages the answer was based on")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the exchange as JSON")
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(indexCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errNotConfigured
	}

	documentID := args[0]
	question := strings.Join(args[1:], " ")

	exchange, err := chatService.Ask(commandContext(cmd), documentID, question)
	if err != nil {
		return userError(err)
	}

	if askJSON {
		data, err := json.MarshalIndent(exchange, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(exchange.Answer.Text)
	if askSources && len(exchange.Passages) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, p := range exchange.Passages {
			cmd.Printf("  [%d] (%.2f) %s\n", i+1, p.Score, truncate(oneLine(p.Text), 100))
		}
	}
	return nil
}

func indexDocument(cmd *cobra.Command, documentID string) error {
	if indexingService == nil {
		return errNotConfigured
	}

	cmd.Printf("Indexing %s...\n", documentID)
	ns, err := indexingService.EnsureIndexed(commandContext(cmd), documentID)
	if err != nil {
		return userError(err)
	}
	cmd.Printf("Indexed %d chunks with %s (%d dims)\n", ns.ChunkCount, ns.EmbeddingModel, ns.Dimensions)
	return nil
}

// userError replaces err with the message shown to people. The cause is
// still logged when --verbose is set.
func userError(err error) error {
	logger.Debug("command failed: %v", err)
	return errors.New(domain.UserMessage(err))
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
