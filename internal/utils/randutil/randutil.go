package randutil

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomHex returns 2*n lowercase hex characters.
func RandomHex(n int) (string, error) {
	key := make([]byte, n)

	if _, err := rand.Read(key); err != nil {
		return "", err
	}

	return hex.EncodeToString(key), nil
}
