package models

import (
	"time"
)

// Purpose distinguishes concurrent OTP flows for the same phone so they do
// not collide.
type Purpose string

const (
	PurposeLogin         Purpose = "login"
	PurposeRegistration  Purpose = "registration"
	PurposeRiderLogin    Purpose = "rider_login"
	PurposePasswordReset Purpose = "password_reset"
)

// ValidPurpose reports whether p is one of the known purposes.
func ValidPurpose(p Purpose) bool {
	switch p {
	case PurposeLogin, PurposeRegistration, PurposeRiderLogin, PurposePasswordReset:
		return true
	}
	return false
}

// PendingCode is the durable record of the most recent outstanding
// verification code per (phone, purpose). The raw code is never stored;
// only its keyed hash. At most one active (unexpired, unverified) code
// exists per (phone, purpose); a new issuance supersedes the prior one.
type PendingCode struct {
	Phone      string     `bson:"phone" json:"phone"`
	Purpose    Purpose    `bson:"purpose" json:"purpose"`
	CodeHash   string     `bson:"code_hash" json:"-"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	ExpiresAt  time.Time  `bson:"expires_at" json:"expires_at"`
	VerifiedAt *time.Time `bson:"verified_at,omitempty" json:"verified_at,omitempty"`
}

// Verification configuration
const (
	VerificationCodeLength = 6
)
