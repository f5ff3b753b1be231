package orders

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	codePrefix = "SEN-"
	codeLength = 8
)

// CodeGenerator derives a verification code for a reference.
type CodeGenerator func(ref string) (string, error)

// GenerateVerificationCode hashes the reference with a fresh random salt and
// keeps a short upper-case prefix of the digest, e.g. SEN-3F9A01BC.
func GenerateVerificationCode(ref string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(ref + ":" + hex.EncodeToString(salt)))
	return codePrefix + strings.ToUpper(hex.EncodeToString(sum[:]))[:codeLength], nil
}

// NormalizeCode makes code lookups case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
