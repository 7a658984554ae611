package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"shopify-catalog-mirror/internal/domain"
)

// ValidSignature reports whether provided is the base64 HMAC-SHA256 of body
// keyed by secret. The comparison runs in constant time once the lengths
// match. An empty secret or signature never verifies.
func ValidSignature(body []byte, provided, secret string) bool {
	if provided == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	if _, err := mac.Write(body); err != nil {
		return false
	}
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}

// WebhookVerifier checks the X-Shopify-Hmac-Sha256 header of a delivery.
type WebhookVerifier struct {
	secret string
}

// NewWebhookVerifier creates a verifier for the shared webhook secret
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// Verify returns domain.ErrInvalidSignature unless hmacHeader signs payload.
func (v *WebhookVerifier) Verify(payload []byte, hmacHeader string) error {
	if !ValidSignature(payload, hmacHeader, v.secret) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// Sign computes the header value for payload. Used by tests and local tooling.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
