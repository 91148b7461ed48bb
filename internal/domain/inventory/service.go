package inventory

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/yanqian/temppredict/internal/domain/session"
	apperrors "github.com/yanqian/temppredict/pkg/errors"
)

var (
	// ErrUnavailable marks transport failures and undecodable bodies.
	ErrUnavailable = errors.New("inventory backend unavailable")
	// ErrBackend marks a non-2xx answer.
	ErrBackend = errors.New("inventory backend error")
)

const (
	CodeUnavailable  = "inventory_unavailable"
	CodeBackendError = "inventory_backend_error"
)

// ModelDescriptor names a trained model and its artifact files.
type ModelDescriptor struct {
	Name  string   `json:"name"`
	Files []string `json:"files"`
}

// Config toggles bearer propagation on inventory calls.
type Config struct {
	AttachToken bool
}

// Backend lists the raw descriptors exposed by the model-serving backend.
type Backend interface {
	ListModels(ctx context.Context, token string) ([]ModelDescriptor, error)
}

// Service is the read-only model inventory.
type Service interface {
	ListModels(ctx context.Context, sess session.Session) ([]ModelDescriptor, error)
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
		logger:  logger.With("component", "inventory.service"),
	}
}

// ListModels returns the available descriptors. An empty inventory is not an error.
func (s *service) ListModels(ctx context.Context, sess session.Session) ([]ModelDescriptor, error) {
	token := ""
	if s.cfg.AttachToken {
		token = sess.Token
	}
	raw, err := s.backend.ListModels(ctx, token)
	if err != nil {
		if errors.Is(err, ErrBackend) {
			s.logger.Warn("inventory backend returned error", "error", err)
			return nil, apperrors.Wrap(CodeBackendError, "model inventory backend error", err)
		}
		s.logger.Warn("inventory backend unavailable", "error", err)
		return nil, apperrors.Wrap(CodeUnavailable, "model inventory unavailable", err)
	}

	models := make([]ModelDescriptor, 0, len(raw))
	for _, d := range raw {
		name := strings.TrimSpace(d.Name)
		files := make([]string, 0, len(d.Files))
		for _, f := range d.Files {
			if strings.TrimSpace(f) != "" {
				files = append(files, f)
			}
		}
		if name == "" || len(files) == 0 {
			s.logger.Warn("skipping incomplete model descriptor", "name", d.Name, "files", len(d.Files))
			continue
		}
		models = append(models, ModelDescriptor{Name: name, Files: files})
	}
	return models, nil
}
