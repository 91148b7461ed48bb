package session

import (
	"context"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/yanqian/temppredict/pkg/errors"
	"github.com/yanqian/temppredict/pkg/util"
)

const (
	CodeInvalidContext = "invalid_context"
	CodeInvalidSession = "invalid_session"
	CodeUnavailable    = "session_unavailable"
)

// Service owns the session lifecycle of every browser context.
type Service interface {
	Commit(ctx context.Context, contextID string, sess Session) error
	Current(ctx context.Context, contextID string) (Session, bool, error)
	Clear(ctx context.Context, contextID string) error
}

type service struct {
	store   Store
	tracker *Tracker
	now     func() time.Time
	logger  *slog.Logger
}

// NewService wires the store and the in-flight tracker together.
func NewService(store Store, tracker *Tracker, logger *slog.Logger) Service {
	return &service{
		store:   store,
		tracker: tracker,
		now:     util.NowUTC,
		logger:  logger.With("component", "session.service"),
	}
}

// Commit replaces the session of contextID wholesale.
func (s *service) Commit(ctx context.Context, contextID string, sess Session) error {
	if strings.TrimSpace(contextID) == "" {
		return apperrors.Wrap(CodeInvalidContext, "browser context missing", nil)
	}
	now := s.now()
	if !sess.Valid(now) {
		return apperrors.Wrap(CodeInvalidSession, "session is empty or already expired", nil)
	}
	if err := s.store.Save(ctx, contextID, sess, sess.TTL(now)); err != nil {
		return apperrors.Wrap(CodeUnavailable, "failed to store session", err)
	}
	s.tracker.Invalidate(contextID)
	s.logger.Info("session committed", "user", sess.Identity.Username, "expiresAt", sess.ExpiresAt)
	return nil
}

// Current returns the valid session of contextID. Expired entries are removed on read.
func (s *service) Current(ctx context.Context, contextID string) (Session, bool, error) {
	if strings.TrimSpace(contextID) == "" {
		return Session{}, false, nil
	}
	sess, found, err := s.store.Load(ctx, contextID)
	if err != nil {
		return Session{}, false, apperrors.Wrap(CodeUnavailable, "failed to load session", err)
	}
	if !found {
		return Session{}, false, nil
	}
	if !sess.Valid(s.now()) {
		if err := s.store.Delete(ctx, contextID); err != nil {
			s.logger.Warn("failed to drop expired session", "error", err)
		}
		return Session{}, false, nil
	}
	return sess, true, nil
}

// Clear removes the session of contextID. Clearing an absent session is not an error.
func (s *service) Clear(ctx context.Context, contextID string) error {
	if strings.TrimSpace(contextID) == "" {
		return nil
	}
	if err := s.store.Delete(ctx, contextID); err != nil {
		return apperrors.Wrap(CodeUnavailable, "failed to clear session", err)
	}
	s.tracker.Invalidate(contextID)
	return nil
}
