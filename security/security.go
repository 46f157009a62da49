package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// ComputeWebhookSignature returns the hex HMAC-SHA256 of the payload under
// the shared webhook secret.
func ComputeWebhookSignature(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature checks a provider-supplied signature against the
// raw request body in constant time.
func VerifyWebhookSignature(secret string, payload []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := ComputeWebhookSignature(secret, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// GenerateWebhookSecret generates a secure random secret suitable for
// configuring a new provider endpoint.
func GenerateWebhookSecret() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
