package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pdfchat/internal/adapters/driving/watch"
)

var (
	watchExisting bool
	watchNoIndex  bool
	watchSettle   time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Register and index files dropped into a directory",
	Long: `Watch a directory and register every new .pdf or .txt file as a document.

Each file is indexed as soon as it stops changing, so questions about it
are answered without waiting. Press Ctrl+C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "also register files already in the directory")
	watchCmd.Flags().BoolVar(&watchNoIndex, "no-index", false, "register files without indexing them")
	watchCmd.Flags().DurationVar(&watchSettle, "settle", watch.DefaultSettle, "quiet period before a file is picked up")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if documentService == nil || indexingService == nil {
		return errNotConfigured
	}

	w := watch.New(documentService, indexingService, watch.Config{
		Settle:          watchSettle,
		IncludeExisting: watchExisting,
		Index:           !watchNoIndex,
		Out:             cmd.OutOrStdout(),
	})

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", args[0])
	return w.Run(commandContext(cmd), args[0])
}
