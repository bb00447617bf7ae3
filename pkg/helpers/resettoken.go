package helpers

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// GenerateResetToken produces a one-time password-reset secret with 256 bits
// of entropy and the sha256 digest that gets persisted. The plain secret is
// returned once for out-of-band delivery and must never be stored or logged.
func GenerateResetToken() (plain string, digest string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	plain = hex.EncodeToString(b)
	return plain, HashResetToken(plain), nil
}

// HashResetToken returns the hex-encoded sha256 digest of a reset secret.
func HashResetToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// ResetTokenMatches compares a presented secret against the stored digest in
// constant time.
func ResetTokenMatches(plain, storedDigest string) bool {
	return subtle.ConstantTimeCompare([]byte(HashResetToken(plain)), []byte(storedDigest)) == 1
}
