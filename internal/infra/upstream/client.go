package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yanqian/temppredict/pkg/metrics"
)

const maxBodyBytes = 4 << 20

var (
	// ErrUnreachable covers transport failures, local timeouts and an open circuit.
	ErrUnreachable = errors.New("upstream unreachable")
	// ErrMalformed marks a success status whose body does not match the expected shape.
	ErrMalformed = errors.New("upstream response malformed")
)

// StatusError reports a non-2xx upstream status.
type StatusError struct {
	Backend string
	Status  int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded with status %d", e.Backend, e.Status)
}

// Malformed wraps a decode failure so callers can match ErrMalformed.
func Malformed(err error) error {
	if err == nil {
		return ErrMalformed
	}
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}

// Options configures a Client.
type Options struct {
	Timeout             time.Duration
	BreakerEnabled      bool
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// Client performs JSON calls against one named backend.
type Client struct {
	name       string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewClient builds a client for the backend identified by name.
func NewClient(name string, opts Options, m *metrics.Metrics, logger *slog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		name:       name,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    m,
		logger:     logger.With("component", "upstream."+name),
	}
	if opts.BreakerEnabled {
		failures := opts.ConsecutiveFailures
		if failures == 0 {
			failures = 5
		}
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     opts.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.logger.Warn("circuit state changed", "backend", name, "from", from.String(), "to", to.String())
			},
		})
	}
	return c
}

// Name returns the backend label.
func (c *Client) Name() string {
	return c.name
}

// PostJSON sends payload as JSON and returns the 2xx response body.
func (c *Client) PostJSON(ctx context.Context, endpoint string, payload any, token string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", c.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.Do(req, token)
}

// GetJSON issues a GET and returns the 2xx response body.
func (c *Client) GetJSON(ctx context.Context, endpoint string, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", c.name, err)
	}
	return c.Do(req, token)
}

// Do executes req, attaching token as a bearer credential when non-empty.
// Non-2xx statuses surface as *StatusError; transport failures wrap ErrUnreachable.
func (c *Client) Do(req *http.Request, token string) ([]byte, error) {
	Authorize(req, token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	status, body, err := c.execute(req)
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.metrics.ObserveUpstream(c.name, "circuit_open", elapsed)
		return nil, fmt.Errorf("%w: circuit open for %s", ErrUnreachable, c.name)
	case err != nil:
		c.metrics.ObserveUpstream(c.name, "unreachable", elapsed)
		c.logger.Warn("upstream call failed", "method", req.Method, "url", req.URL.Redacted(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	case status < 200 || status >= 300:
		c.metrics.ObserveUpstream(c.name, "rejected", elapsed)
		c.logger.Warn("upstream rejected call", "method", req.Method, "url", req.URL.Redacted(), "status", status)
		return nil, &StatusError{Backend: c.name, Status: status, Body: snippet(body)}
	}

	c.metrics.ObserveUpstream(c.name, "ok", elapsed)
	return body, nil
}

type result struct {
	status int
	body   []byte
}

func (c *Client) execute(req *http.Request) (int, []byte, error) {
	call := func() (interface{}, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("read %s response: %w", c.name, err)
		}
		return result{status: resp.StatusCode, body: data}, nil
	}

	var (
		out interface{}
		err error
	)
	if c.breaker != nil {
		out, err = c.breaker.Execute(call)
	} else {
		out, err = call()
	}
	if err != nil {
		return 0, nil, err
	}
	res := out.(result)
	return res.status, res.body, nil
}

// Authorize sets the bearer credential on req when token is non-empty.
func Authorize(req *http.Request, token string) {
	if strings.TrimSpace(token) == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

func snippet(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit])
	}
	return string(body)
}
