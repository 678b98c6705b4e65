package helper

import (
	"crypto/sha256"
	"encoding/hex"
)

// Get8BytesHash returns the first 8 bytes of the SHA-256 digest of value,
// hex encoded. Used to reference secrets in logs without exposing them.
func Get8BytesHash(value string) string {
	h := sha256.Sum256([]byte(value))
	return hex.EncodeToString(h[:8])
}

// GetHash returns the full SHA-256 digest of value, hex encoded.
func GetHash(value string) string {
	h := sha256.Sum256([]byte(value))
	return hex.EncodeToString(h[:])
}
