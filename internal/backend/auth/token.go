package auth

import (
	"crypto/rand"
	"encoding/hex"
)

// generateResetToken returns 32 random bytes, hex encoded
func generateResetToken() (string, error) {
	var token [32]byte
	if _, err := rand.Read(token[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(token[:]), nil
}
