package model

import "time"

// AuthMethod selects which login flow acquires a token.
type AuthMethod string

const (
	// AuthMethodMixed tries the legacy flow first and falls back to SwissID.
	AuthMethodMixed AuthMethod = "mixed"
	// AuthMethodLegacy uses only the SAML username/password flow.
	AuthMethodLegacy AuthMethod = "legacy"
	// AuthMethodSwissID uses only the federated SwissID flow.
	AuthMethodSwissID AuthMethod = "swissid"
)

// Valid reports whether m is one of the supported auth methods.
func (m AuthMethod) Valid() bool {
	switch m {
	case AuthMethodMixed, AuthMethodLegacy, AuthMethodSwissID:
		return true
	}
	return false
}

// Token is a bearer credential for the postcard backend. It is immutable
// once issued; a re-fetch produces a fresh value that replaces the old one
// wholesale.
type Token struct {
	AccessToken    string
	TokenType      string
	ExpiresIn      int // Lifetime in seconds, counted from FetchedAt.
	FetchedAt      time.Time
	Implementation AuthMethod // Which flow produced the token (legacy or swissid).
}

// ExpiresAt returns the instant the token stops being usable.
func (t Token) ExpiresAt() time.Time {
	return t.FetchedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// Expired reports whether the token is unusable at the given instant.
// A zero token is always expired.
func (t Token) Expired(now time.Time) bool {
	if t.AccessToken == "" {
		return true
	}
	return !now.Before(t.ExpiresAt())
}
