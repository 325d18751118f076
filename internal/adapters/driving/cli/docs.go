package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driving"
)

var (
	docsAddTitle string
	docsAddID    string
	docsAddMIME  string
	docsAddIndex bool
	docsJSON     bool
)

var docsCmd = &cobra.Command{
	Use:     "docs",
	Aliases: []string{"documents"},
	Short:   "Manage documents",
	Long:    `Register documents by URL or path, list them and show their index status.`,
}

var docsAddCmd = &cobra.Command{
	Use:   "add <url|path>",
	Short: "Register a document",
	Long: `Register a document for chatting.

The source can be an http(s):// URL, an s3://bucket/key URL, a file:// URL
or a local path. Local paths are stored as absolute file:// URLs.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocsAdd,
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your documents",
	Args:  cobra.NoArgs,
	RunE:  runDocsList,
}

var docsShowCmd = &cobra.Command{
	Use:   "show <doc-id>",
	Short: "Show a document and its index status",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsShow,
}

func init() {
	docsAddCmd.Flags().StringVar(&docsAddTitle, "title", "", "document title (default: derived from the file name)")
	docsAddCmd.Flags().StringVar(&docsAddID, "id", "", "document id (default: random)")
	docsAddCmd.Flags().StringVar(&docsAddMIME, "mime", "", "content type (default: detected)")
	docsAddCmd.Flags().BoolVar(&docsAddIndex, "index", false, "index the document right away")
	docsListCmd.Flags().BoolVar(&docsJSON, "json", false, "output as JSON")

	docsCmd.AddCommand(docsAddCmd)
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsShowCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsAdd(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errNotConfigured
	}

	sourceURL, err := sourceURLFor(args[0])
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	doc, err := documentService.Register(ctx, driving.RegisterDocumentRequest{
		ID:        docsAddID,
		SourceURL: sourceURL,
		Title:     docsAddTitle,
		MIMEType:  docsAddMIME,
	})
	if err != nil {
		return userError(err)
	}

	cmd.Printf("Registered %s\n", doc.ID)
	cmd.Printf("  Title:  %s\n", doc.Title)
	cmd.Printf("  Source: %s\n", doc.SourceURL)

	if !docsAddIndex {
		return nil
	}
	return indexDocument(cmd, doc.ID)
}

// sourceURLFor turns a local path into a file:// URL and leaves URLs alone.
func sourceURLFor(arg string) (string, error) {
	if u, err := url.Parse(arg); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return arg, nil
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", arg, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

func runDocsList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errNotConfigured
	}

	docs, err := documentService.List(commandContext(cmd))
	if err != nil {
		return userError(err)
	}

	if docsJSON {
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal documents: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(docs) == 0 {
		cmd.Println("No documents. Add one with 'pdfchat docs add <url|path>'.")
		return nil
	}
	for i := range docs {
		cmd.Printf("  %s  %-40s  %s\n", docs[i].ID, truncate(docs[i].Title, 40), docs[i].CreatedAt.Format("2006-01-02"))
	}
	return nil
}

func runDocsShow(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errNotConfigured
	}

	ctx := commandContext(cmd)
	doc, err := documentService.Get(ctx, args[0])
	if err != nil {
		return userError(err)
	}

	cmd.Printf("ID:      %s\n", doc.ID)
	cmd.Printf("Title:   %s\n", doc.Title)
	cmd.Printf("Source:  %s\n", doc.SourceURL)
	if doc.MIMEType != "" {
		cmd.Printf("Type:    %s\n", doc.MIMEType)
	}
	cmd.Printf("Created: %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))

	if indexingService == nil {
		return nil
	}
	state, err := indexingService.Status(ctx, doc.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		cmd.Printf("Index:   %s\n", domain.IndexStatusPending)
	case err != nil:
		return userError(err)
	default:
		cmd.Printf("Index:   %s\n", state.Status)
		if state.IsComplete() {
			cmd.Printf("Chunks:  %d (%s, %d dims)\n", state.ChunkCount, state.EmbeddingModel, state.Dimensions)
		}
		if state.Error != "" {
			cmd.Printf("Error:   %s\n", state.Error)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n-3]) + "..."
}
