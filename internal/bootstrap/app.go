package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/temppredict/internal/domain/session"
	"github.com/yanqian/temppredict/internal/infra/config"
)

const purgeInterval = 10 * time.Minute

// expiringStore is implemented by session stores that keep expired rows until purged.
type expiringStore interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// App encapsulates the HTTP server lifecycle.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
	store  session.Store
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, store session.Store) *App {
	return &App{cfg: cfg, logger: logger.With("component", "bootstrap"), server: server, store: store}
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	if purger, ok := a.store.(expiringStore); ok {
		go a.purgeLoop(ctx, purger)
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutdown signal received")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) purgeLoop(ctx context.Context, purger expiringStore) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := purger.PurgeExpired(ctx)
			if err != nil {
				a.logger.Warn("session purge failed", "error", err)
				continue
			}
			if removed > 0 {
				a.logger.Info("purged expired sessions", "count", removed)
			}
		}
	}
}
