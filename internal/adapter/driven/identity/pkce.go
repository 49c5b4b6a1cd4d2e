package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// pkce holds a one-shot PKCE verifier/challenge pair. Generated fresh for
// every flow attempt and discarded afterwards.
type pkce struct {
	Verifier  string // base64url without padding, from 64 random bytes.
	Challenge string // base64url-encoded SHA-256 of the verifier.
}

func newPKCE() (pkce, error) {
	raw := make([]byte, 64)
	if _, err := rand.Read(raw); err != nil {
		return pkce{}, fmt.Errorf("generate pkce verifier: %w", err)
	}

	verifier := base64.RawURLEncoding.EncodeToString(raw)
	sum := sha256.Sum256([]byte(verifier))

	return pkce{
		Verifier:  verifier,
		Challenge: base64.RawURLEncoding.EncodeToString(sum[:]),
	}, nil
}
