package hash

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Token returns the SHA-256 hex digest of an opaque token string. Raw tokens
// are never persisted; only these digests reach storage.
func Token(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// VerifyToken compares a stored digest against the digest of a presented
// token in constant time.
func VerifyToken(storedHash, token string) bool {
	candidate := Token(token)
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(candidate)) == 1
}
