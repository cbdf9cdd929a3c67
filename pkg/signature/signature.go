// Package signature signs and verifies webhook bodies with HMAC-SHA256.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	Header = "X-Signature-256"
	prefix = "sha256="
)

// Sign returns the hex HMAC-SHA256 of body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// HeaderValue is the Header value for body, "sha256=<hex>".
func HeaderValue(body []byte, secret string) string {
	return prefix + Sign(body, secret)
}

// Verify accepts the signature with or without the "sha256=" prefix.
func Verify(body []byte, received, secret string) bool {
	received = strings.TrimPrefix(received, prefix)
	if received == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(body, secret)), []byte(received))
}
