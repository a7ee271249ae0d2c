package otp

import "errors"

var (
	// ErrNoToken is returned when no strategy finds a token.
	ErrNoToken = errors.New("otp: no token in response")
	// ErrVerificationFailed is returned for widget responses that report a failure.
	ErrVerificationFailed = errors.New("otp: verification failed")
)
