// Package crypto provides credential handling for machine-to-machine
// callers: the court-results and legal-aid feeds authenticate with API keys
// rather than user tokens.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrKeyMismatch is returned when an API key does not match its stored hash.
var ErrKeyMismatch = errors.New("crypto: api key mismatch")

// bcryptCost balances verification latency against brute-force resistance
// for the low-volume feed credentials.
const bcryptCost = 12

// GenerateAPIKey returns a new random API key with the given prefix, for
// example "caf_" for the court feed. Only its hash is ever persisted.
func GenerateAPIKey(prefix string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("crypto: generate api key: %w", err)
	}
	return prefix + base64.RawURLEncoding.EncodeToString(raw), nil
}

// HashAPIKey returns a bcrypt hash of the key for persistence.
func HashAPIKey(key string) (string, error) {
	// bcrypt ignores input past 72 bytes, so hash the key down first.
	sum := sha256.Sum256([]byte(key))
	hash, err := bcrypt.GenerateFromPassword(sum[:], bcryptCost)
	if err != nil {
		return "", fmt.Errorf("crypto: hash api key: %w", err)
	}
	return string(hash), nil
}

// VerifyAPIKey checks a presented key against its stored bcrypt hash.
func VerifyAPIKey(key, storedHash string) error {
	sum := sha256.Sum256([]byte(key))
	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), sum[:]); err != nil {
		return ErrKeyMismatch
	}
	return nil
}

// HashToken returns the SHA256 hash of a token as a hex string. Used for
// cheap lookups where bcrypt's cost is not warranted, such as idempotency
// keys.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// VerifyTokenHash checks a plaintext token against a stored SHA256 hash in
// constant time.
func VerifyTokenHash(token, storedHash string) bool {
	computed := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
