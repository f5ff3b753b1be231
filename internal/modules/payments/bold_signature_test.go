package payments

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoldVerifierAcceptsOwnSignature(t *testing.T) {
	bodies := [][]byte{
		[]byte(`{"type":"SALE_APPROVED","data":{"metadata":{"reference":"cart-42"}}}`),
		[]byte(``),
		[]byte("\x00\xff binary"),
	}
	for _, body := range bodies {
		sig := SignBoldBody("s3cret", body)
		assert.NoError(t, NewBoldVerifier("s3cret").Verify(body, sig))
		assert.NoError(t, NewBoldVerifier("s3cret").Verify(body, strings.ToUpper(sig)), "hex is case-insensitive")
	}
}

func TestBoldVerifierRejectsAnySingleByteFlip(t *testing.T) {
	body := []byte(`{"type":"SALE_APPROVED","reference":"cart-1"}`)
	secret := "s3cret"
	sig := SignBoldBody(secret, body)

	for i := range body {
		mutated := append([]byte(nil), body...)
		mutated[i] ^= 0x01
		assert.ErrorIs(t, NewBoldVerifier(secret).Verify(mutated, sig), ErrInvalidSignature, "body byte %d", i)
	}
	for i := range secret {
		b := []byte(secret)
		b[i] ^= 0x01
		assert.ErrorIs(t, NewBoldVerifier(string(b)).Verify(body, sig), ErrInvalidSignature, "secret byte %d", i)
	}
}

func TestBoldVerifierFailures(t *testing.T) {
	body := []byte(`{}`)
	good := SignBoldBody("k", body)

	cases := []struct {
		name   string
		v      *BoldVerifier
		sig    string
		target error
	}{
		{"missing header", NewBoldVerifier("k"), "  ", ErrMissingSignature},
		{"not hex", NewBoldVerifier("k"), "zz-not-hex", ErrMalformedSignature},
		{"odd length hex", NewBoldVerifier("k"), good[:63], ErrMalformedSignature},
		{"short but valid hex", NewBoldVerifier("k"), good[:32], ErrInvalidSignature},
		{"long but valid hex", NewBoldVerifier("k"), good + "00", ErrInvalidSignature},
		{"no secret", NewBoldVerifier(""), good, ErrSecretNotConfigured},
		{"nil verifier", nil, good, ErrSecretNotConfigured},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				assert.ErrorIs(t, tc.v.Verify(body, tc.sig), tc.target)
			})
		})
	}
}
