// Package cli provides the pdfchat command line interface.
// It implements a driving adapter following hexagonal architecture principles.
package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pdfchat/internal/adapters/driving/rest"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driving"
	"github.com/custodia-labs/pdfchat/internal/logger"
)

// TokenIssuer signs bearer tokens accepted by the REST API.
type TokenIssuer interface {
	Issue(userID string, ttl time.Duration) (string, error)
}

// Services holds the driving ports and helpers the commands use.
type Services struct {
	Chat     driving.ChatService
	Document driving.DocumentService
	Indexing driving.IndexingService
	Settings driving.SettingsService
	History  driving.HistoryImporter

	// RemoteDocument registers documents for REST callers. It must not
	// accept sources that reach this machine's files or private network.
	RemoteDocument driving.DocumentService

	// Tokens verifies and signs REST bearer tokens.
	Tokens interface {
		rest.TokenValidator
		TokenIssuer
	}
}

var (
	version = "dev"
	verbose bool

	chatService     driving.ChatService
	documentService driving.DocumentService
	indexingService driving.IndexingService
	settingsService driving.SettingsService
	historyImporter driving.HistoryImporter
	remoteDocuments driving.DocumentService
	tokens          interface {
		rest.TokenValidator
		TokenIssuer
	}
)

var errNotConfigured = errors.New("pdfchat is not configured; run 'pdfchat config embedding' and 'pdfchat config llm'")

var rootCmd = &cobra.Command{
	Use:   "pdfchat",
	Short: "Chat with your PDF documents",
	Long: `pdfchat answers questions about a PDF using retrieval augmented generation.

A document is registered by URL or path, split into overlapping chunks and
embedded once. Each question is rephrased against the conversation so far,
the most similar passages are retrieved and an LLM answers from them.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
}

// SetServices installs the services used by every command.
func SetServices(s *Services) {
	chatService = s.Chat
	documentService = s.Document
	indexingService = s.Indexing
	settingsService = s.Settings
	historyImporter = s.History
	remoteDocuments = s.RemoteDocument
	tokens = s.Tokens
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// commandContext returns the command's context, which is cancelled on interrupt.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
