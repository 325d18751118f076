package driven

import (
	"context"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
)

// DocumentStore persists registered documents.
type DocumentStore interface {
	// SaveDocument stores a new document. Saving an existing ID returns
	// domain.ErrAlreadyExists.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document owned by ownerID.
	// Returns domain.ErrNotFound for unknown IDs and for documents of other owners.
	GetDocument(ctx context.Context, ownerID, id string) (*domain.Document, error)

	// ListDocuments returns the owner's documents, newest first.
	ListDocuments(ctx context.Context, ownerID string) ([]domain.Document, error)

	// UpdateTitle replaces the title of an owner's document.
	UpdateTitle(ctx context.Context, ownerID, id, title string) error
}

// MessageStore is the append-only chat log keyed by (owner, document).
type MessageStore interface {
	// Append adds one turn.
	Append(ctx context.Context, turn domain.ChatTurn) error

	// AppendExchange adds a question and its answer atomically.
	AppendExchange(ctx context.Context, question, answer domain.ChatTurn) error

	// List returns every turn of a conversation ordered by CreatedAt ascending.
	// Turns with equal timestamps keep their insertion order.
	List(ctx context.Context, ownerID, documentID string) ([]domain.ChatTurn, error)

	// CountByRole returns how many turns of the given role a conversation holds.
	CountByRole(ctx context.Context, ownerID, documentID string, role domain.Role) (int, error)
}
