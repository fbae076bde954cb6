package api

import (
	"context"
	"net/http"
	"time"

	"github.com/unit-mercury/mercury-api/identity"
)

// QueryTimeout is the default timeout for database queries
const QueryTimeout = 10 * time.Second

// WithQueryTimeout creates a context with query timeout
func WithQueryTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, QueryTimeout)
}

type contextKey string

const identityKey contextKey = "identity"

// ContextWithIdentity attaches the authenticated caller to the request context
func ContextWithIdentity(ctx context.Context, ident *identity.Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// IdentityFromRequest extracts the authenticated caller set by the auth
// middleware. The second return is false on unauthenticated requests.
func IdentityFromRequest(r *http.Request) (*identity.Identity, bool) {
	ident, ok := r.Context().Value(identityKey).(*identity.Identity)
	return ident, ok
}
