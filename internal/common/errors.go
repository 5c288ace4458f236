// Package common defines shared constants and sentinel errors used across
// the repository, service and transport layers. Callers should use errors.Is
// to match these values; services wrap them with a human-readable detail via
// fmt.Errorf("%w: ...").
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrConflict   = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
	ErrValidation = errors.New("validation error")
	ErrForbidden  = errors.New("forbidden")

	// Account state preconditions.
	ErrUnverified        = errors.New("account is not verified")
	ErrIncompleteProfile = errors.New("profile is not complete")

	// Auth errors.
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrMissingToken        = errors.New("missing token")
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// OTP errors.
	ErrInvalidOrExpiredOTP = errors.New("invalid or expired otp")
)
