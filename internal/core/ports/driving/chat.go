package driving

import (
	"context"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
)

// ChatService answers questions about a document.
type ChatService interface {
	// Ask runs the full question pipeline and returns the recorded exchange.
	Ask(ctx context.Context, documentID, question string) (*domain.Exchange, error)

	// AskQuestion is the presentation form of Ask. Failures are reported in
	// the result's ErrorText and never as the answer.
	AskQuestion(ctx context.Context, documentID, question string) domain.AskResult

	// GenerateEmbeddings ensures the document is indexed.
	GenerateEmbeddings(ctx context.Context, documentID string) domain.IndexResult

	// History returns the full conversation for a document, oldest first.
	History(ctx context.Context, documentID string) ([]domain.ChatTurn, error)
}

// IndexingService coordinates lazy, at-most-once-effective ingestion.
type IndexingService interface {
	// EnsureIndexed returns the document's namespace, ingesting it first if needed.
	EnsureIndexed(ctx context.Context, documentID string) (*domain.Namespace, error)

	// Status returns the completion marker for a document, or domain.ErrNotFound.
	Status(ctx context.Context, documentID string) (*domain.IndexState, error)
}

// HistoryImporter appends question and answer pairs that were produced
// elsewhere, for example a conversation exported from another tool.
type HistoryImporter interface {
	// RecordExchange appends both turns in one write.
	RecordExchange(ctx context.Context, documentID, question, answer string) (*domain.ChatTurn, *domain.ChatTurn, error)
}
