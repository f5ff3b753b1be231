package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// BoldSignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const BoldSignatureHeader = "X-Bold-Signature"

// BoldVerifier authenticates inbound Bold webhooks.
type BoldVerifier struct {
	secret []byte
}

func NewBoldVerifier(secret string) *BoldVerifier {
	return &BoldVerifier{secret: []byte(secret)}
}

// Configured reports whether a secret is present. Without one the webhook
// must not be served at all.
func (v *BoldVerifier) Configured() bool {
	return v != nil && len(v.secret) > 0
}

// Verify checks signature against the raw, unparsed body in constant time.
// It never panics on malformed input.
func (v *BoldVerifier) Verify(body []byte, signature string) error {
	if !v.Configured() {
		return ErrSecretNotConfigured
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrMissingSignature
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return ErrMalformedSignature
	}
	want := computeHMAC(v.secret, body)
	if len(got) != len(want) {
		return ErrInvalidSignature
	}
	if !hmac.Equal(got, want) {
		return ErrInvalidSignature
	}
	return nil
}

// SignBoldBody returns the hex signature Bold would send for body.
func SignBoldBody(secret string, body []byte) string {
	return hex.EncodeToString(computeHMAC([]byte(secret), body))
}

func computeHMAC(secret, body []byte) []byte {
	m := hmac.New(sha256.New, secret)
	m.Write(body)
	return m.Sum(nil)
}
