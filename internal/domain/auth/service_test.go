package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/temppredict/pkg/errors"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestService_ExchangeOpaqueToken(t *testing.T) {
	backend := &stubBackend{token: "opaque-token"}
	svc := newTestService(Config{MaxAge: time.Hour}, backend)

	sess, err := svc.Exchange(context.Background(), Credentials{Username: " admin ", Password: "password"})
	require.NoError(t, err)
	require.Equal(t, "opaque-token", sess.Token)
	require.Equal(t, "admin", sess.Identity.Username)
	require.Equal(t, fixedNow, sess.IssuedAt)
	require.Equal(t, fixedNow.Add(time.Hour), sess.ExpiresAt)
	require.Equal(t, " admin ", backend.username)
	require.Equal(t, "password", backend.password)
}

func TestService_ExchangeUsesJWTExpiryWhenEarlier(t *testing.T) {
	token := signToken(t, "secret", jwt.MapClaims{
		"user": "admin",
		"exp":  fixedNow.Add(30 * time.Minute).Unix(),
	})
	svc := newTestService(Config{TokenSecret: "secret", MaxAge: 2 * time.Hour}, &stubBackend{token: token})

	sess, err := svc.Exchange(context.Background(), Credentials{Username: "admin", Password: "password"})
	require.NoError(t, err)
	require.Equal(t, fixedNow.Add(30*time.Minute), sess.ExpiresAt)
	require.Equal(t, "admin", sess.Identity.Username)
}

func TestService_ExchangeCapsExpiryAtMaxAge(t *testing.T) {
	token := signToken(t, "other", jwt.MapClaims{
		"sub":  "alice",
		"name": "Alice",
		"exp":  fixedNow.Add(24 * time.Hour).Unix(),
	})
	// No secret configured: claims are decoded without verification.
	svc := newTestService(Config{MaxAge: time.Hour}, &stubBackend{token: token})

	sess, err := svc.Exchange(context.Background(), Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, fixedNow.Add(time.Hour), sess.ExpiresAt)
	require.Equal(t, "alice", sess.Identity.Username)
	require.Equal(t, "Alice", sess.Identity.DisplayName)
}

func TestService_ExchangeRejectsBadSignature(t *testing.T) {
	token := signToken(t, "wrong", jwt.MapClaims{"user": "admin", "exp": fixedNow.Add(time.Hour).Unix()})
	svc := newTestService(Config{TokenSecret: "secret"}, &stubBackend{token: token})

	_, err := svc.Exchange(context.Background(), Credentials{Username: "admin", Password: "password"})
	require.True(t, apperrors.IsCode(err, CodeRejected))
}

func TestService_ExchangeRejectsExpiredToken(t *testing.T) {
	token := signToken(t, "secret", jwt.MapClaims{"user": "admin", "exp": fixedNow.Add(-time.Minute).Unix()})

	for _, secret := range []string{"", "secret"} {
		svc := newTestService(Config{TokenSecret: secret}, &stubBackend{token: token})
		_, err := svc.Exchange(context.Background(), Credentials{Username: "admin", Password: "password"})
		require.True(t, apperrors.IsCode(err, CodeRejected), "secret=%q", secret)
	}
}

func TestService_ExchangeMapsBackendErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"rejected", fmt.Errorf("status 401: %w", ErrRejected), CodeRejected},
		{"unavailable", fmt.Errorf("dial tcp: %w", ErrUnavailable), CodeUnavailable},
		{"unknown", fmt.Errorf("boom"), CodeUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(Config{}, &stubBackend{err: tc.err})
			_, err := svc.Exchange(context.Background(), Credentials{Username: "admin", Password: "wrong"})
			require.True(t, apperrors.IsCode(err, tc.code))
		})
	}
}

func TestService_ExchangeEmptyTokenIsRejected(t *testing.T) {
	svc := newTestService(Config{}, &stubBackend{token: "  "})
	_, err := svc.Exchange(context.Background(), Credentials{Username: "admin", Password: "password"})
	require.True(t, apperrors.IsCode(err, CodeRejected))
}

func TestService_ExchangeValidatesInput(t *testing.T) {
	backend := &stubBackend{token: "tok"}
	svc := newTestService(Config{}, backend)

	_, err := svc.Exchange(context.Background(), Credentials{Username: "", Password: "pw"})
	require.True(t, apperrors.IsCode(err, CodeInvalidInput))
	_, err = svc.Exchange(context.Background(), Credentials{Username: " \t ", Password: "pw"})
	require.True(t, apperrors.IsCode(err, CodeInvalidInput))
	_, err = svc.Exchange(context.Background(), Credentials{Username: "admin", Password: ""})
	require.True(t, apperrors.IsCode(err, CodeInvalidInput))
	require.Zero(t, backend.calls)
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newTestService(cfg Config, backend Backend) Service {
	svc := NewService(cfg, backend, newTestLogger()).(*service)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

type stubBackend struct {
	token    string
	err      error
	calls    int
	username string
	password string
}

func (s *stubBackend) Login(_ context.Context, username, password string) (string, error) {
	s.calls++
	s.username = username
	s.password = password
	return s.token, s.err
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}
