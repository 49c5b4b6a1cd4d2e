package driven

import (
	"context"

	"github.com/tbuchmann/postcarder/internal/domain/model"
)

// TokenFetcher defines the driven port for acquiring a bearer token from the
// postcard backend's identity providers. Implementations drive the full
// browser-less login dance; one call is one complete attempt.
type TokenFetcher interface {
	// FetchToken logs in with the given credentials and returns a fresh
	// token. Errors match ErrAuthenticationFailed, ErrProtocolChanged, or
	// ErrTransport via errors.Is.
	FetchToken(ctx context.Context, username, password string, method model.AuthMethod) (model.Token, error)
}

// TokenStore defines the driven port for the persisted token cache.
type TokenStore interface {
	// Get retrieves the cached token for the given username.
	// Returns (nil, nil) if no token is stored.
	Get(ctx context.Context, username string) (*model.Token, error)

	// Put stores or replaces the token for the given username.
	Put(ctx context.Context, username string, token model.Token) error

	// Delete removes the cached token for the given username.
	Delete(ctx context.Context, username string) error
}
