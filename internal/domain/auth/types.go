package auth

import (
	"context"
	"time"
)

// Config drives token inspection.
type Config struct {
	TokenSecret string
	MaxAge      time.Duration
}

// Credentials is the submitted sign-in pair. It is never persisted.
type Credentials struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// Backend performs the credential exchange against the auth service.
// Implementations return ErrRejected or ErrUnavailable (possibly wrapped).
type Backend interface {
	Login(ctx context.Context, username, password string) (string, error)
}
