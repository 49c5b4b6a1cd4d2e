package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tbuchmann/postcarder/internal/domain/model"
	"github.com/tbuchmann/postcarder/internal/domain/port/driven"
)

// TokenService hands out valid bearer tokens, fetching once and reusing
// until expiry. Lookup order per username: in-memory cache, persistent
// store, fresh login. A fetched token replaces the cached one wholesale.
type TokenService struct {
	fetcher driven.TokenFetcher
	store   driven.TokenStore // Optional; nil disables persistence.
	method  model.AuthMethod
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	tokens map[string]model.Token
}

// NewTokenService creates a TokenService. store may be nil, in which case
// tokens live only in memory for the process lifetime.
func NewTokenService(fetcher driven.TokenFetcher, store driven.TokenStore, method model.AuthMethod, logger *slog.Logger) *TokenService {
	return NewTokenServiceWithClock(fetcher, store, method, logger, time.Now)
}

// NewTokenServiceWithClock creates a TokenService with an injected clock.
// Intended for tests exercising expiry behavior.
func NewTokenServiceWithClock(fetcher driven.TokenFetcher, store driven.TokenStore, method model.AuthMethod, logger *slog.Logger, now func() time.Time) *TokenService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenService{
		fetcher: fetcher,
		store:   store,
		method:  method,
		logger:  logger,
		now:     now,
		tokens:  make(map[string]model.Token),
	}
}

// Token returns a non-expired bearer token for the given credentials,
// logging in only when no cached token is usable. Concurrent calls are
// serialized so one set of credentials triggers at most one login at a time.
func (s *TokenService) Token(ctx context.Context, username, password string) (model.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if tok, ok := s.tokens[username]; ok && !tok.Expired(now) {
		return tok, nil
	}

	if s.store != nil {
		stored, err := s.store.Get(ctx, username)
		if err != nil {
			s.logger.Warn("token store read failed, falling through to login", "error", err)
		} else if stored != nil && !stored.Expired(now) {
			s.tokens[username] = *stored
			s.logger.Debug("reusing persisted token", "username", username, "implementation", stored.Implementation)
			return *stored, nil
		}
	}

	tok, err := s.fetcher.FetchToken(ctx, username, password, s.method)
	if err != nil {
		return model.Token{}, err
	}

	s.tokens[username] = tok
	if s.store != nil {
		if err := s.store.Put(ctx, username, tok); err != nil {
			s.logger.Warn("persisting token failed", "error", err)
		}
	}
	return tok, nil
}

// Invalidate drops the cached token for the given username, forcing a fresh
// login on the next Token call. Used after the backend rejects a bearer.
func (s *TokenService) Invalidate(ctx context.Context, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, username)
	if s.store != nil {
		if err := s.store.Delete(ctx, username); err != nil {
			s.logger.Warn("deleting persisted token failed", "error", err)
		}
	}
}
