//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/temppredict/internal/bootstrap"
	"github.com/yanqian/temppredict/internal/domain/auth"
	"github.com/yanqian/temppredict/internal/domain/forecast"
	"github.com/yanqian/temppredict/internal/domain/inventory"
	"github.com/yanqian/temppredict/internal/domain/session"
	"github.com/yanqian/temppredict/internal/domain/upload"
	"github.com/yanqian/temppredict/internal/infra/config"
	httpiface "github.com/yanqian/temppredict/internal/interface/http"
	"github.com/yanqian/temppredict/pkg/logger"
	"github.com/yanqian/temppredict/pkg/metrics"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		metrics.NewRegistry,
		provideMetrics,
		provideAuthConfig,
		provideForecastConfig,
		provideInventoryConfig,
		provideUploadConfig,
		provideAuthBackend,
		provideForecastBackend,
		provideInventoryBackend,
		provideUploadBackend,
		provideSessionStore,
		session.NewTracker,
		session.NewService,
		auth.NewService,
		forecast.NewService,
		inventory.NewService,
		upload.NewService,
		httpiface.NewBrowserContexts,
		httpiface.NewHandler,
		httpiface.NewAuthHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
