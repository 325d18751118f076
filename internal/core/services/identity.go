package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
)

// requireUser returns the signed-in user or domain.ErrUnauthenticated.
func requireUser(ctx context.Context, identity driven.IdentityProvider) (string, error) {
	if identity == nil {
		return "", domain.ErrUnauthenticated
	}
	userID, ok := identity.CurrentUserID(ctx)
	if !ok || userID == "" {
		return "", domain.ErrUnauthenticated
	}
	return userID, nil
}

// ownedDocument loads documentID for the signed-in user. Documents of other
// users are reported as domain.ErrNotFound.
func ownedDocument(
	ctx context.Context, identity driven.IdentityProvider, docs driven.DocumentStore, documentID string,
) (*domain.Document, error) {
	userID, err := requireUser(ctx, identity)
	if err != nil {
		return nil, err
	}
	if documentID == "" {
		return nil, fmt.Errorf("%w: document ID is required", domain.ErrInvalidInput)
	}

	doc, err := docs.GetDocument(ctx, userID, documentID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("%w: loading document: %w", domain.ErrPersistence, err)
	}
	return doc, nil
}
