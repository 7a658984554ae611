package shopify

import (
	"errors"
	"testing"

	"shopify-catalog-mirror/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestValidSignature(t *testing.T) {
	body := []byte(`{"id":820982911946154508,"email":"jon@example.com"}`)
	secret := "hush"
	sig := Sign(body, secret)

	assert.True(t, ValidSignature(body, sig, secret))
	assert.False(t, ValidSignature(body, sig, ""))
	assert.False(t, ValidSignature(body, "", secret))
	assert.False(t, ValidSignature(body, sig, "other"))
	assert.False(t, ValidSignature(body, sig[:len(sig)-1], secret))
}

func TestValidSignature_RejectsSingleByteMutations(t *testing.T) {
	body := []byte(`{"customer":{"id":7,"total_spent":"10.00"}}`)
	secret := "shpss_0123456789"
	sig := Sign(body, secret)

	for i := range body {
		mutated := append([]byte(nil), body...)
		mutated[i] ^= 0x01
		assert.Falsef(t, ValidSignature(mutated, sig, secret), "body byte %d", i)
	}
	for i := range sig {
		mutated := []byte(sig)
		mutated[i] ^= 0x01
		assert.Falsef(t, ValidSignature(body, string(mutated), secret), "signature byte %d", i)
	}
}

func TestWebhookVerifier_Verify(t *testing.T) {
	v := NewWebhookVerifier("secret")
	payload := []byte(`{}`)

	assert.NoError(t, v.Verify(payload, Sign(payload, "secret")))
	assert.True(t, errors.Is(v.Verify(payload, "bogus"), domain.ErrInvalidSignature))
}
