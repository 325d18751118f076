// Package identity supplies the current user to the core services.
//
// The CLI, TUI and MCP server act for a single configured user (Static).
// The REST server authenticates bearer tokens (JWT) and carries the user
// on the request context (Context). A process serving both uses a Chain
// that prefers the request's user.
package identity

import (
	"context"

	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
)

// Ensure providers implement the interface.
var (
	_ driven.IdentityProvider = Static("")
	_ driven.IdentityProvider = Context{}
	_ driven.IdentityProvider = Chain{}
)

// Static is a fixed user ID. An empty value means nobody is signed in.
type Static string

// CurrentUserID returns the configured user.
func (s Static) CurrentUserID(_ context.Context) (string, bool) {
	return string(s), s != ""
}

type userKey struct{}

// WithUser returns a context carrying userID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFromContext returns the user set by WithUser.
func UserFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}

// Context reads the user placed on the context by WithUser.
type Context struct{}

// CurrentUserID returns the user on ctx.
func (Context) CurrentUserID(ctx context.Context) (string, bool) {
	return UserFromContext(ctx)
}

// Chain asks each provider in turn and returns the first user found.
type Chain []driven.IdentityProvider

// CurrentUserID returns the first provider's answer that names a user.
func (c Chain) CurrentUserID(ctx context.Context) (string, bool) {
	for _, p := range c {
		if id, ok := p.CurrentUserID(ctx); ok {
			return id, true
		}
	}
	return "", false
}
