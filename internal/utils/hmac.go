package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// SignHMAC creates an HMAC-SHA256 signature for a message using the
// provided secret
func SignHMAC(message []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(message)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyHMAC verifies an HMAC signature against a message using the
// provided secret. Uses constant-time comparison.
func VerifyHMAC(message []byte, signature, secret string) bool {
	expectedMAC := SignHMAC(message, secret)
	return subtle.ConstantTimeCompare([]byte(signature), []byte(expectedMAC)) == 1
}
