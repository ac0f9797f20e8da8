package hashutil

import (
	"crypto/hmac"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

func HMACSha3(secret, message string) string {
	mac := hmac.New(sha3.New256, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifyHMACSha3(secret, message, signature string) bool {
	expected := HMACSha3(secret, message)
	return hmac.Equal([]byte(expected), []byte(signature))
}
