package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanqian/temppredict/internal/domain/session"
	"github.com/yanqian/temppredict/internal/infra/config"
	"github.com/yanqian/temppredict/pkg/metrics"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler, authHandler *AuthHandler, contexts *BrowserContexts, sessions session.Service, m *metrics.Metrics, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(logger),
		rateLimitMiddleware(cfg.HTTP.RateLimit, logger),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if reg != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	protectForms := csrfMiddleware(cfg.HTTP.CSRF, cfg.Session.SecureCookie, logger)

	authGroup := router.Group("/auth", protectForms)
	{
		authGroup.GET("/signin", authHandler.SignInView)
		authGroup.POST("/signin", authHandler.SignIn)
		authGroup.POST("/signout", authHandler.SignOut)
		authGroup.GET("/session", authHandler.Session)
	}

	gate := session.NewGate(cfg.Session.SignInPath)
	protected := router.Group("/", accessGateMiddleware(gate, contexts, sessions, m, logger), protectForms)
	{
		protected.GET("/", handler.Dashboard)
		protected.GET("/views/dashboard", handler.Dashboard)
		protected.GET("/views/models", handler.ModelsView)

		api := protected.Group("/api/v1")
		api.POST("/predictions/point", handler.PredictPoint)
		api.POST("/predictions/year", handler.PredictYear)
		api.GET("/history", handler.History)
		api.GET("/models", handler.ListModels)
		api.POST("/uploads", handler.Upload)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
