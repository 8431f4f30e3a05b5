package models

import (
	"time"
)

// PhoneIdentity is the canonical mapping from a phone number to a durable
// user identity. It is written exactly once per phone, by the OTP
// verification path, and read-only everywhere else.
type PhoneIdentity struct {
	UserID    string    `bson:"_id" json:"user_id"`
	Phone     string    `bson:"phone" json:"phone"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// UserCredential holds the PIN credential and lockout state for a user.
type UserCredential struct {
	UserID            string     `bson:"_id" json:"user_id"`
	Phone             string     `bson:"phone" json:"phone"`
	PINHash           *string    `bson:"pin_hash,omitempty" json:"-"`
	PINFailedAttempts int        `bson:"pin_failed_attempts" json:"-"`
	PINLockedUntil    *time.Time `bson:"pin_locked_until,omitempty" json:"-"`
	LastLoginAt       *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	ProfileCompleted  bool       `bson:"profile_completed" json:"profile_completed"`
	CreatedAt         time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `bson:"updated_at" json:"updated_at"`
}

// HasPIN reports whether a PIN credential has been set.
func (c *UserCredential) HasPIN() bool {
	return c != nil && c.PINHash != nil && *c.PINHash != ""
}

// LockedAt reports whether the credential is locked out at the given time.
func (c *UserCredential) LockedAt(now time.Time) bool {
	return c.PINLockedUntil != nil && c.PINLockedUntil.After(now)
}

// Session is the token pair handed back to a caller after a successful
// verification. It is never persisted by this service.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}
