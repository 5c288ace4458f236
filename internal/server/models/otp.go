package models

import "time"

// OTP is a pending one-time passcode bound to an email address.
type OTP struct {
	Email     string
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
}
