// Package auth implements session issuance/validation, the RBAC policy
// with alias-matched mod allowlists, and the API key lifecycle.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const (
	// APIKeyPrefix identifies board API keys.
	APIKeyPrefix = "mb_"
	// tokenBytes is the random length of every token (256 bits).
	tokenBytes = 32
)

// NewSessionToken mints a high-entropy opaque bearer token.
func NewSessionToken() (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// NewAPIKeyToken mints an API key token and its storage digest.
// Format: mb_<base64url(32 random bytes)>. Only the digest is ever
// persisted; the plaintext is returned to the caller exactly once.
func NewAPIKeyToken() (token string, digest string, err error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	token = APIKeyPrefix + base64.RawURLEncoding.EncodeToString(raw)
	return token, DigestToken(token), nil
}

// DigestToken computes the SHA-256 hex digest used for hash-indirected
// lookup.
func DigestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
