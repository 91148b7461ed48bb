package http

import (
	"github.com/gin-gonic/gin"

	"github.com/yanqian/temppredict/internal/domain/session"
)

const (
	sessionKey   = "dashboard_session"
	contextIDKey = "browser_context_id"
)

func setSession(c *gin.Context, contextID string, sess session.Session) {
	c.Set(contextIDKey, contextID)
	c.Set(sessionKey, sess)
}

func getSession(c *gin.Context) (string, session.Session, bool) {
	value, ok := c.Get(sessionKey)
	if !ok {
		return "", session.Session{}, false
	}
	sess, ok := value.(session.Session)
	if !ok {
		return "", session.Session{}, false
	}
	return c.GetString(contextIDKey), sess, true
}
