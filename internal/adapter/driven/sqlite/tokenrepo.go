package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tbuchmann/postcarder/internal/domain/model"
	"github.com/tbuchmann/postcarder/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TokenStore = (*TokenRepo)(nil)

// TokenRepo is the SQLite implementation of the TokenStore port interface.
// One row per username; a fresh token replaces the previous one wholesale.
type TokenRepo struct {
	db *DB
}

// NewTokenRepo creates a new TokenRepo.
func NewTokenRepo(db *DB) *TokenRepo {
	return &TokenRepo{db: db}
}

// Get retrieves the cached token for the given username.
// Returns (nil, nil) if no token is stored. Expiry is the caller's concern;
// the repo hands back whatever was stored.
func (r *TokenRepo) Get(ctx context.Context, username string) (*model.Token, error) {
	const query = `SELECT access_token, token_type, expires_in, fetched_at, implementation
		FROM tokens WHERE username = ?`

	var (
		tok       model.Token
		fetchedAt string
		impl      string
	)
	err := r.db.Reader.QueryRowContext(ctx, query, username).Scan(
		&tok.AccessToken, &tok.TokenType, &tok.ExpiresIn, &fetchedAt, &impl,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get token for %q: %w", username, err)
	}

	tok.FetchedAt, err = parseTime(fetchedAt)
	if err != nil {
		return nil, fmt.Errorf("parse fetched_at for %q: %w", username, err)
	}
	tok.Implementation = model.AuthMethod(impl)

	return &tok, nil
}

// Put stores or replaces the token for the given username.
func (r *TokenRepo) Put(ctx context.Context, username string, token model.Token) error {
	const query = `INSERT OR REPLACE INTO tokens
		(username, access_token, token_type, expires_in, fetched_at, implementation, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`

	_, err := r.db.Writer.ExecContext(ctx, query,
		username,
		token.AccessToken,
		token.TokenType,
		token.ExpiresIn,
		token.FetchedAt.UTC().Format(time.RFC3339),
		string(token.Implementation),
	)
	if err != nil {
		return fmt.Errorf("put token for %q: %w", username, err)
	}
	return nil
}

// Delete removes the cached token for the given username.
func (r *TokenRepo) Delete(ctx context.Context, username string) error {
	const query = `DELETE FROM tokens WHERE username = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, username); err != nil {
		return fmt.Errorf("delete token for %q: %w", username, err)
	}
	return nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format %q", s)
}
