package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"

	"github.com/yanqian/temppredict/internal/infra/config"
)

// BrowserContexts issues and reads the signed cookie identifying a browser context.
type BrowserContexts struct {
	codec  *securecookie.SecureCookie
	name   string
	secure bool
	maxAge int
}

// NewBrowserContexts builds the cookie codec. Missing keys are generated per process.
func NewBrowserContexts(cfg *config.Config, logger *slog.Logger) (*BrowserContexts, error) {
	hashKey := []byte(cfg.Session.HashKey)
	if len(hashKey) == 0 {
		logger.With("component", "http.contexts").Warn("session.hashKey not set; browser contexts will not survive a restart")
		hashKey = securecookie.GenerateRandomKey(64)
	}
	var blockKey []byte
	if cfg.Session.BlockKey != "" {
		blockKey = []byte(cfg.Session.BlockKey)
	}
	if hashKey == nil {
		return nil, errors.New("failed to generate cookie hash key")
	}
	maxAge := int(cfg.Session.MaxAge / time.Second)
	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(maxAge)
	return &BrowserContexts{
		codec:  codec,
		name:   cfg.Session.CookieName,
		secure: cfg.Session.SecureCookie,
		maxAge: maxAge,
	}, nil
}

// Resolve returns the browser-context ID carried by the request, if any.
func (b *BrowserContexts) Resolve(c *gin.Context) (string, bool) {
	value, err := c.Cookie(b.name)
	if err != nil || value == "" {
		return "", false
	}
	var id string
	if err := b.codec.Decode(b.name, value, &id); err != nil {
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// Issue assigns a fresh browser-context ID and sets the cookie.
func (b *BrowserContexts) Issue(c *gin.Context) (string, error) {
	id := uuid.NewString()
	encoded, err := b.codec.Encode(b.name, id)
	if err != nil {
		return "", err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(b.name, encoded, b.maxAge, "/", "", b.secure || c.Request.TLS != nil, true)
	return id, nil
}

// Forget expires the cookie.
func (b *BrowserContexts) Forget(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(b.name, "", -1, "/", "", b.secure || c.Request.TLS != nil, true)
}
