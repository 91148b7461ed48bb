package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/yanqian/temppredict/internal/domain/session"
	apperrors "github.com/yanqian/temppredict/pkg/errors"
	"github.com/yanqian/temppredict/pkg/util"
)

// Service exposes the credential exchange.
type Service interface {
	Exchange(ctx context.Context, creds Credentials) (session.Session, error)
}

type service struct {
	cfg     Config
	backend Backend
	now     func() time.Time
	logger  *slog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg Config, backend Backend, logger *slog.Logger) Service {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 2 * time.Hour
	}
	return &service{
		cfg:     cfg,
		backend: backend,
		now:     util.NowUTC,
		logger:  logger.With("component", "auth.service"),
	}
}

// Exchange trades credentials for a session. It never touches the session store.
func (s *service) Exchange(ctx context.Context, creds Credentials) (session.Session, error) {
	username := strings.TrimSpace(creds.Username)
	if username == "" {
		return session.Session{}, apperrors.Wrap(CodeInvalidInput, "username cannot be empty", nil)
	}
	if creds.Password == "" {
		return session.Session{}, apperrors.Wrap(CodeInvalidInput, "password cannot be empty", nil)
	}

	// The backend receives the username exactly as entered.
	token, err := s.backend.Login(ctx, creds.Username, creds.Password)
	switch {
	case err == nil:
	case errors.Is(err, ErrRejected):
		s.logger.Info("credential exchange rejected", "user", username)
		return session.Session{}, apperrors.Wrap(CodeRejected, "invalid credentials", err)
	default:
		s.logger.Warn("credential exchange unavailable", "user", username, "error", err)
		return session.Session{}, apperrors.Wrap(CodeUnavailable, "auth service unavailable", err)
	}
	if strings.TrimSpace(token) == "" {
		return session.Session{}, apperrors.Wrap(CodeRejected, "invalid credentials", ErrRejected)
	}

	issuedAt := s.now()
	claims, err := inspectToken(token, s.cfg.TokenSecret, issuedAt)
	if err != nil {
		s.logger.Warn("issued token failed inspection", "user", username, "error", err)
		return session.Session{}, apperrors.Wrap(CodeRejected, "invalid credentials", err)
	}

	expiresAt := issuedAt.Add(s.cfg.MaxAge)
	if !claims.ExpiresAt.IsZero() && claims.ExpiresAt.Before(expiresAt) {
		expiresAt = claims.ExpiresAt
	}
	identity := session.Identity{Username: username, DisplayName: claims.Name}
	if claims.Subject != "" {
		identity.Username = claims.Subject
	}
	return session.Session{
		Token:     token,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Identity:  identity,
	}, nil
}
