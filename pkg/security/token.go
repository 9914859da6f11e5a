package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// GenerateOpaqueToken returns size random bytes hex-encoded. Refresh tokens
// use 64 bytes; email verification tokens use 10 (matching the link length
// users paste from mail clients).
func GenerateOpaqueToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashToken returns the hex-encoded SHA-256 digest of a token for storage.
// Opaque tokens are already high-entropy, so a fast fixed hash is enough;
// the slow password hash is reserved for low-entropy secrets.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// GenerateOTP returns a random 6-digit one-time code as a string.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}
