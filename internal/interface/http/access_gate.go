package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/temppredict/internal/domain/session"
	"github.com/yanqian/temppredict/pkg/metrics"
)

// accessGateMiddleware runs before every protected handler. Requests without a
// valid session get a bodiless 303 to the sign-in path.
func accessGateMiddleware(gate session.Gate, contexts *BrowserContexts, sessions session.Service, m *metrics.Metrics, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := contexts.Resolve(c)
		sess, found, err := sessions.Current(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, fromDomainError(err))
			return
		}
		decision := gate.Evaluate(sess, found)
		m.GateDecision(decision.Label())
		if !decision.Allow {
			logger.Debug("access gate redirect", "path", c.Request.URL.Path)
			c.Header("Location", decision.Redirect)
			c.AbortWithStatus(http.StatusSeeOther)
			return
		}
		setSession(c, id, sess)
		c.Next()
	}
}
