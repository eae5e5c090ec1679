package browser

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const tokenBytes = 16

// NewToken returns 32 hex characters drawn from crypto/rand.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("browser: generate websocket token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
