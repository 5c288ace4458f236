// Package common contains shared constants and sentinel errors used across
// campusfeed components.
package common

// AuthorizationHeaderName is the HTTP header carrying the bearer access token.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token inside the Authorization header.
const BearerPrefix = "Bearer "

// OTPLength is the number of decimal digits in a one-time passcode.
const OTPLength = 6

// MaxInterestHashtags caps the interest tags a profile may hold.
const MaxInterestHashtags = 4

// NotificationEvent is the event name pushed to a user's live channel when a
// post matching their interests is created.
const NotificationEvent = "newNotification"

// MaxOTPAttempts is the number of wrong submissions after which a pending
// passcode is discarded and the user must request a new one.
const MaxOTPAttempts = 5

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72
