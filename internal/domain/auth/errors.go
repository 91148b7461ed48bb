package auth

import "errors"

var (
	// ErrRejected indicates the backend refused the credentials or returned no token.
	ErrRejected = errors.New("credentials rejected")
	// ErrUnavailable indicates the backend could not be reached or answered garbage.
	ErrUnavailable = errors.New("auth backend unavailable")
)

const (
	CodeInvalidInput = "invalid_input"
	CodeRejected     = "auth_rejected"
	CodeUnavailable  = "auth_unavailable"
)
