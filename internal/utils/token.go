package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/yukikurage/collab-chat-api/internal/constants"
)

// GenerateSessionToken returns an unguessable opaque token, hex encoded.
func GenerateSessionToken() (string, error) {
	bytes := make([]byte, constants.SessionTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// HashToken is the storage key for a session token. Raw tokens are never
// persisted.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
