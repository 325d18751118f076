package driven

import "context"

// IdentityProvider supplies the identifier of the user making a request.
type IdentityProvider interface {
	// CurrentUserID returns the user ID, or false when no user is signed in.
	CurrentUserID(ctx context.Context) (string, bool)
}
