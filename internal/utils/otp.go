package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
)

var codeRegex = regexp.MustCompile(`^[0-9]{6}$`)

var codeSpace = big.NewInt(1000000)

// GenerateVerificationCode returns a uniformly random 6-digit code. Leading
// zeros are allowed.
func GenerateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// HashVerificationCode produces the keyed, deterministic one-way hash of a
// code used for storage comparison. The raw code is never persisted; the
// secret's confidentiality is what prevents forgery.
func HashVerificationCode(code, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidCodeFormat reports whether the input looks like a 6-digit code,
// checked before any storage access.
func ValidCodeFormat(code string) bool {
	return codeRegex.MatchString(code)
}
