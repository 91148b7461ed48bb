package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yanqian/temppredict/internal/domain/auth"
	"github.com/yanqian/temppredict/internal/infra/upstream"
)

// Client exchanges credentials with the auth backend's login endpoint.
type Client struct {
	transport *upstream.Client
	loginURL  string
}

// NewClient constructs a client posting to loginURL.
func NewClient(transport *upstream.Client, loginURL string) *Client {
	return &Client{transport: transport, loginURL: strings.TrimSpace(loginURL)}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login implements auth.Backend.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body, err := c.transport.PostJSON(ctx, c.loginURL, loginRequest{Username: username, Password: password}, "")
	if err != nil {
		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) {
			return "", fmt.Errorf("%w: status %d", auth.ErrRejected, statusErr.Status)
		}
		return "", fmt.Errorf("%w: %v", auth.ErrUnavailable, err)
	}
	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", auth.ErrUnavailable, upstream.Malformed(err))
	}
	if strings.TrimSpace(resp.Token) == "" {
		return "", fmt.Errorf("%w: response carried no token", auth.ErrRejected)
	}
	return resp.Token, nil
}

var _ auth.Backend = (*Client)(nil)
