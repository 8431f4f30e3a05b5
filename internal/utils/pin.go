package utils

import (
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

var pinRegex = regexp.MustCompile(`^[0-9]{4,6}$`)

// pinHashCost is above bcrypt's default: the PIN keyspace is tiny, so the
// hash buys time but the lockout guard is the real brute-force defense.
const pinHashCost = 12

// ValidatePIN checks a candidate PIN at set time. It must be 4-6 digits and
// not trivially guessable: a purely ascending run ("1234") or a single
// repeated digit ("0000") is rejected.
func ValidatePIN(pin string) error {
	if !pinRegex.MatchString(pin) {
		return fmt.Errorf("PIN must be 4 to 6 digits")
	}
	if isRepeatedDigit(pin) || isAscendingRun(pin) {
		return fmt.Errorf("PIN is too easy to guess, choose another")
	}
	return nil
}

func isRepeatedDigit(pin string) bool {
	for i := 1; i < len(pin); i++ {
		if pin[i] != pin[0] {
			return false
		}
	}
	return true
}

func isAscendingRun(pin string) bool {
	for i := 1; i < len(pin); i++ {
		if pin[i] != pin[i-1]+1 {
			return false
		}
	}
	return true
}

// HashPIN produces a salted, slow one-way hash of the PIN.
func HashPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), pinHashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash PIN: %w", err)
	}
	return string(hash), nil
}

// VerifyPIN compares a candidate PIN against a stored hash using bcrypt's
// own constant-time comparison.
func VerifyPIN(pin, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
