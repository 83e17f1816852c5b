// Package password derives and verifies salted, iterated password
// digests. Every parameter needed for verification is stored alongside
// the digest, so iteration counts can change without invalidating
// existing records.
package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// AlgorithmPBKDF2SHA256 is the only algorithm currently produced.
	AlgorithmPBKDF2SHA256 = "pbkdf2-sha256"

	// DefaultIterations matches the upper bound of the deployment's
	// crypto primitive limits.
	DefaultIterations = 100_000

	// MaxIterations caps configured iteration counts.
	MaxIterations = 100_000

	saltLength   = 16
	digestLength = 32
)

// Record holds the stored digest material for one password.
type Record struct {
	Algorithm  string `json:"algorithm"`
	Digest     string `json:"digest"`
	Salt       string `json:"salt"`
	Iterations int    `json:"iterations"`
}

// Hasher derives password records with a fixed iteration count.
type Hasher struct {
	iterations int
}

// NewHasher creates a hasher. Iteration counts outside (0, MaxIterations]
// fall back to DefaultIterations.
func NewHasher(iterations int) *Hasher {
	if iterations <= 0 || iterations > MaxIterations {
		iterations = DefaultIterations
	}
	return &Hasher{iterations: iterations}
}

// Hash derives a record from a password with a fresh random salt.
func (h *Hasher) Hash(password string) (Record, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return Record{}, fmt.Errorf("failed to generate salt: %w", err)
	}

	digest := pbkdf2.Key([]byte(password), salt, h.iterations, digestLength, sha256.New)

	return Record{
		Algorithm:  AlgorithmPBKDF2SHA256,
		Digest:     hex.EncodeToString(digest),
		Salt:       hex.EncodeToString(salt),
		Iterations: h.iterations,
	}, nil
}

// Verify recomputes the digest with the record's stored parameters and
// compares in constant time. An unrecognized algorithm or malformed
// record verifies false rather than erroring, so callers get a uniform
// failure mode.
func Verify(password string, rec Record) bool {
	if rec.Algorithm != AlgorithmPBKDF2SHA256 {
		return false
	}
	if rec.Iterations <= 0 || rec.Iterations > MaxIterations {
		return false
	}

	salt, err := hex.DecodeString(rec.Salt)
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(rec.Digest)
	if err != nil || len(want) == 0 {
		return false
	}

	got := pbkdf2.Key([]byte(password), salt, rec.Iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
