// Package crypto generates opaque credentials and the digests stored in their place.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// OpaqueTokenBytes is the entropy of an issued refresh token.
const OpaqueTokenBytes = 32

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// NewOpaqueToken returns a URL-safe random token and its storage digest.
func NewOpaqueToken() (token string, hash []byte, err error) {
	raw, err := RandBytes(OpaqueTokenBytes)
	if err != nil {
		return "", nil, fmt.Errorf("read random: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(raw)
	return token, HashToken(token), nil
}

// HashToken returns the BLAKE2b-256 digest of a presented token.
func HashToken(token string) []byte {
	sum := blake2b.Sum256([]byte(token))
	return sum[:]
}

// EqualHash compares two digests in constant time.
func EqualHash(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
