// Package sha256 provides the content digest used to name localized assets.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements assets.Hasher using SHA-256.
type Hasher struct {
	length int
}

// New returns a SHA-256 hasher whose digests are truncated to length hex
// characters. A length of zero or one past the full digest keeps all 64.
func New(length int) *Hasher {
	if length <= 0 || length > sha256.Size*2 {
		length = sha256.Size * 2
	}
	return &Hasher{length: length}
}

// Hash hashes the input and returns a lowercase hex digest.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:h.length], nil
}
