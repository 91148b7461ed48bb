package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/temppredict/internal/domain/auth"
	"github.com/yanqian/temppredict/internal/domain/forecast"
	"github.com/yanqian/temppredict/internal/domain/inventory"
	"github.com/yanqian/temppredict/internal/domain/session"
	"github.com/yanqian/temppredict/internal/domain/upload"
	"github.com/yanqian/temppredict/internal/infra/authapi"
	"github.com/yanqian/temppredict/internal/infra/config"
	"github.com/yanqian/temppredict/internal/infra/modelserving"
	"github.com/yanqian/temppredict/internal/infra/sessionstore"
	"github.com/yanqian/temppredict/internal/infra/upstream"
	"github.com/yanqian/temppredict/internal/infra/uploadapi"
	"github.com/yanqian/temppredict/pkg/metrics"
)

func provideMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New(reg)
}

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		TokenSecret: cfg.Auth.TokenSecret,
		MaxAge:      cfg.Session.MaxAge,
	}
}

func provideForecastConfig(cfg *config.Config) forecast.Config {
	return forecast.Config{
		MinYear:        cfg.Forecast.MinYear,
		MaxYear:        cfg.Forecast.MaxYear,
		DefaultStation: cfg.Forecast.DefaultStation,
		AttachToken:    cfg.Forecast.AttachToken,
	}
}

func provideInventoryConfig(cfg *config.Config) inventory.Config {
	return inventory.Config{AttachToken: cfg.Inventory.AttachToken}
}

func provideUploadConfig(cfg *config.Config) upload.Config {
	return upload.Config{MaxBytes: cfg.Upload.MaxBytes}
}

func newTransport(name string, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *upstream.Client {
	return upstream.NewClient(name, upstream.Options{
		Timeout:             cfg.Upstream.Timeout,
		BreakerEnabled:      cfg.Upstream.Breaker.Enabled,
		ConsecutiveFailures: cfg.Upstream.Breaker.ConsecutiveFailures,
		OpenTimeout:         cfg.Upstream.Breaker.OpenTimeout,
	}, m, logger)
}

func provideAuthBackend(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) auth.Backend {
	return authapi.NewClient(newTransport("auth", cfg, m, logger), cfg.Auth.LoginURL)
}

func provideForecastBackend(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) forecast.Backend {
	return modelserving.NewForecastClient(newTransport("models", cfg, m, logger), modelserving.Endpoints{
		Predict:     cfg.Forecast.PredictURL,
		PredictYear: cfg.Forecast.PredictYearURL,
		History:     cfg.Forecast.HistoryURL,
	}, logger)
}

func provideInventoryBackend(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) inventory.Backend {
	return modelserving.NewInventoryClient(newTransport("inventory", cfg, m, logger), cfg.Inventory.ModelsURL)
}

func provideUploadBackend(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) upload.Backend {
	return uploadapi.NewClient(newTransport("upload", cfg, m, logger), cfg.Upload.URL)
}

// provideSessionStore picks the configured backend and falls back to memory when it is unreachable.
func provideSessionStore(cfg *config.Config, logger *slog.Logger) (session.Store, func()) {
	switch cfg.Session.Backend {
	case "valkey":
		if store, cleanup, ok := openValkeyStore(cfg, logger); ok {
			return store, cleanup
		}
	case "postgres":
		if store, cleanup, ok := openPostgresStore(cfg, logger); ok {
			return store, cleanup
		}
	}
	logger.Info("using in-memory session store")
	return sessionstore.NewMemoryStore(), func() {}
}

func openValkeyStore(cfg *config.Config, logger *slog.Logger) (session.Store, func(), bool) {
	opt, err := buildValkeyOptions(cfg.Session.Valkey.Addr)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
		return nil, nil, false
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory store", "error", err)
		return nil, nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory store", "error", err)
		client.Close()
		return nil, nil, false
	}
	logger.Info("valkey session store enabled", "addr", cfg.Session.Valkey.Addr)
	return sessionstore.NewValkeyStore(client, cfg.Session.Valkey.Prefix), client.Close, true
}

func openPostgresStore(cfg *config.Config, logger *slog.Logger) (session.Store, func(), bool) {
	dsn := strings.TrimSpace(cfg.Session.Postgres.DSN)
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, falling back to memory store", "error", err)
		return nil, nil, false
	}
	if cfg.Session.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Session.Postgres.MaxConns
	}
	if cfg.Session.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Session.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, falling back to memory store", "error", err)
		return nil, nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, falling back to memory store", "error", err)
		pool.Close()
		return nil, nil, false
	}
	store := sessionstore.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("failed to prepare session table, falling back to memory store", "error", err)
		pool.Close()
		return nil, nil, false
	}
	logger.Info("postgres session store enabled")
	return store, pool.Close, true
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}
