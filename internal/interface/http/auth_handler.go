package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"

	"github.com/yanqian/temppredict/internal/domain/auth"
	"github.com/yanqian/temppredict/internal/domain/session"
	"github.com/yanqian/temppredict/internal/infra/config"
)

// AuthHandler serves sign-in, sign-out and the session probe.
type AuthHandler struct {
	authSvc    auth.Service
	sessions   session.Service
	contexts   *BrowserContexts
	signInPath string
	homePath   string
	logger     *slog.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(cfg *config.Config, authSvc auth.Service, sessions session.Service, contexts *BrowserContexts, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authSvc:    authSvc,
		sessions:   sessions,
		contexts:   contexts,
		signInPath: cfg.Session.SignInPath,
		homePath:   cfg.Session.HomePath,
		logger:     logger.With("component", "http.auth"),
	}
}

type signInView struct {
	Action    string   `json:"action"`
	Fields    []string `json:"fields"`
	CSRFToken string   `json:"csrfToken,omitempty"`
}

// SignInView renders the sign-in form model, or sends signed-in browsers home.
func (h *AuthHandler) SignInView(c *gin.Context) {
	if _, found := h.current(c); found {
		seeOther(c, h.homePath)
		return
	}
	c.JSON(http.StatusOK, signInView{
		Action:    h.signInPath,
		Fields:    []string{"username", "password"},
		CSRFToken: csrf.Token(c.Request),
	})
}

// SignIn exchanges credentials for a session bound to a fresh browser context.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var creds auth.Credentials
	if err := c.ShouldBind(&creds); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", bindingMessage(err), err))
		return
	}

	ctx := c.Request.Context()
	sess, err := h.authSvc.Exchange(ctx, creds)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}

	if previous, ok := h.contexts.Resolve(c); ok {
		if err := h.sessions.Clear(ctx, previous); err != nil {
			h.logger.Warn("failed to clear previous session", "error", err)
		}
	}
	contextID, err := h.contexts.Issue(c)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "internal_error", "failed to issue browser context", err))
		return
	}
	if err := h.sessions.Commit(ctx, contextID, sess); err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}

	h.logger.Info("signed in", "user", sess.Identity.Username)
	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"user": sess.ToView()})
		return
	}
	seeOther(c, h.homePath)
}

// SignOut clears the session and the context cookie.
func (h *AuthHandler) SignOut(c *gin.Context) {
	if contextID, ok := h.contexts.Resolve(c); ok {
		if err := h.sessions.Clear(c.Request.Context(), contextID); err != nil {
			abortWithError(c, fromDomainError(err))
			return
		}
	}
	h.contexts.Forget(c)
	seeOther(c, h.signInPath)
}

// Session reports the signed-in user, or an empty object.
func (h *AuthHandler) Session(c *gin.Context) {
	sess, found := h.current(c)
	if !found {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": sess.ToView()})
}

func (h *AuthHandler) current(c *gin.Context) (session.Session, bool) {
	contextID, ok := h.contexts.Resolve(c)
	if !ok {
		return session.Session{}, false
	}
	sess, found, err := h.sessions.Current(c.Request.Context(), contextID)
	if err != nil {
		h.logger.Warn("session lookup failed", "error", err)
		return session.Session{}, false
	}
	return sess, found
}

func seeOther(c *gin.Context, location string) {
	c.Header("Location", location)
	c.AbortWithStatus(http.StatusSeeOther)
}

func wantsJSON(c *gin.Context) bool {
	return c.ContentType() == gin.MIMEJSON || strings.Contains(c.GetHeader("Accept"), gin.MIMEJSON)
}
