package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/yanqian/temppredict/internal/domain/session"
	apperrors "github.com/yanqian/temppredict/pkg/errors"
)

var (
	// ErrUnavailable marks transport failures and undecodable bodies.
	ErrUnavailable = errors.New("upload backend unavailable")
	// ErrRejected marks a non-2xx answer.
	ErrRejected = errors.New("upload rejected")
)

const (
	CodeInvalidInput = "invalid_input"
	CodeUnavailable  = "upload_unavailable"
	CodeRejected     = "upload_rejected"
)

// Config bounds accepted uploads. Zero MaxBytes disables the limit.
type Config struct {
	MaxBytes int64
}

// Request is one file to forward.
type Request struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Result is the backend's success body, passed through unchanged.
type Result map[string]any

// Backend forwards a file with the bearer credential attached.
type Backend interface {
	Upload(ctx context.Context, token string, req Request) (Result, error)
}

// Service forwards authenticated uploads.
type Service interface {
	Upload(ctx context.Context, sess session.Session, req Request) (Result, error)
}

type service struct {
	cfg     Config
	backend Backend
	logger  *slog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg Config, backend Backend, logger *slog.Logger) Service {
	return &service{
		cfg:     cfg,
		backend: backend,
		logger:  logger.With("component", "upload.service"),
	}
}

func (s *service) Upload(ctx context.Context, sess session.Session, req Request) (Result, error) {
	name := filepath.Base(strings.TrimSpace(req.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, apperrors.Wrap(CodeInvalidInput, "filename cannot be empty", nil)
	}
	if len(req.Content) == 0 {
		return nil, apperrors.Wrap(CodeInvalidInput, "file cannot be empty", nil)
	}
	if s.cfg.MaxBytes > 0 && int64(len(req.Content)) > s.cfg.MaxBytes {
		return nil, apperrors.Wrap(CodeInvalidInput, fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxBytes), nil)
	}
	if strings.TrimSpace(sess.Token) == "" {
		return nil, apperrors.Wrap(session.CodeInvalidSession, "session carries no token", nil)
	}
	req.Filename = name

	result, err := s.backend.Upload(ctx, sess.Token, req)
	if err != nil {
		if errors.Is(err, ErrRejected) {
			s.logger.Warn("upload rejected", "file", name, "error", err)
			return nil, apperrors.Wrap(CodeRejected, "upload rejected by backend", err)
		}
		s.logger.Warn("upload backend unavailable", "file", name, "error", err)
		return nil, apperrors.Wrap(CodeUnavailable, "upload backend unavailable", err)
	}
	if result == nil {
		result = Result{}
	}
	s.logger.Info("upload forwarded", "file", name, "bytes", len(req.Content))
	return result, nil
}
