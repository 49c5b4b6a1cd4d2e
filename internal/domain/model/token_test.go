package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAuthMethodValid(t *testing.T) {
	assert.True(t, AuthMethodMixed.Valid())
	assert.True(t, AuthMethodLegacy.Valid())
	assert.True(t, AuthMethodSwissID.Valid())
	assert.False(t, AuthMethod("").Valid())
	assert.False(t, AuthMethod("oauth").Valid())
}

func TestTokenExpiry(t *testing.T) {
	fetched := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tok := Token{
		AccessToken: "abc",
		TokenType:   "Bearer",
		ExpiresIn:   3600,
		FetchedAt:   fetched,
	}

	assert.Equal(t, fetched.Add(time.Hour), tok.ExpiresAt())
	assert.False(t, tok.Expired(fetched))
	assert.False(t, tok.Expired(fetched.Add(59*time.Minute)))
	assert.True(t, tok.Expired(fetched.Add(time.Hour)))
	assert.True(t, tok.Expired(fetched.Add(2*time.Hour)))
}

func TestTokenExpiry_Backdated(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// A token fetched more than its lifetime ago must read as expired even
	// though it was valid when stored.
	tok := Token{
		AccessToken: "abc",
		ExpiresIn:   3600,
		FetchedAt:   now.Add(-2 * time.Hour),
	}
	assert.True(t, tok.Expired(now))
}

func TestTokenExpiry_ZeroValue(t *testing.T) {
	var tok Token
	assert.True(t, tok.Expired(time.Now()))
}
