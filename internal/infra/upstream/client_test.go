package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPostJSONAttachesBearerAndReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var payload map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, 2025, payload["year"])
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient("models", Options{Timeout: time.Second}, nil, newTestLogger())
	body, err := client.PostJSON(context.Background(), server.URL, map[string]int{"year": 2025}, "tok-123")
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(body))
}

func TestGetJSONOmitsAuthorizationWithoutToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient("inventory", Options{Timeout: time.Second}, nil, newTestLogger())
	_, err := client.GetJSON(context.Background(), server.URL, "")
	require.NoError(t, err)
}

func TestNonSuccessStatusIsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid credentials"}`))
	}))
	defer server.Close()

	client := NewClient("auth", Options{Timeout: time.Second}, nil, newTestLogger())
	_, err := client.PostJSON(context.Background(), server.URL, map[string]string{}, "")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusUnauthorized, statusErr.Status)
	require.Contains(t, statusErr.Body, "Invalid credentials")
	require.False(t, errors.Is(err, ErrUnreachable))
}

func TestTimeoutIsUnreachable(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient("models", Options{Timeout: 50 * time.Millisecond}, nil, newTestLogger())
	_, err := client.GetJSON(context.Background(), server.URL, "")
	require.ErrorIs(t, err, ErrUnreachable)
}

func TestConnectionRefusedIsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	client := NewClient("models", Options{Timeout: time.Second}, nil, newTestLogger())
	_, err := client.GetJSON(context.Background(), endpoint, "")
	require.ErrorIs(t, err, ErrUnreachable)
}

func TestBreakerOpensAfterConsecutiveTransportFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	client := NewClient("models", Options{
		Timeout:             time.Second,
		BreakerEnabled:      true,
		ConsecutiveFailures: 2,
		OpenTimeout:         time.Minute,
	}, nil, newTestLogger())

	for i := 0; i < 2; i++ {
		_, err := client.GetJSON(context.Background(), endpoint, "")
		require.ErrorIs(t, err, ErrUnreachable)
	}
	_, err := client.GetJSON(context.Background(), endpoint, "")
	require.ErrorIs(t, err, ErrUnreachable)
	require.Contains(t, err.Error(), "circuit open")
}

func TestBreakerIgnoresRejectedStatuses(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient("models", Options{
		Timeout:             time.Second,
		BreakerEnabled:      true,
		ConsecutiveFailures: 1,
		OpenTimeout:         time.Minute,
	}, nil, newTestLogger())

	for i := 0; i < 3; i++ {
		_, err := client.GetJSON(context.Background(), server.URL, "")
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
	}
	require.Equal(t, 3, calls)
}

func TestMalformedWrapsSentinel(t *testing.T) {
	err := Malformed(errors.New("unexpected EOF"))
	require.ErrorIs(t, err, ErrMalformed)
	require.ErrorIs(t, Malformed(nil), ErrMalformed)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
