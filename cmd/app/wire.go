//go:build wireinject
// +build wireinject

package main

import (
	"costwatch/config"
	"costwatch/internal/cron"
	"costwatch/internal/database"
	fluentdRepo "costwatch/internal/database/fluentd/repository"
	mongoRepo "costwatch/internal/database/mongodb/repository"
	"costwatch/internal/handler"
	"costwatch/internal/ingest"
	"costwatch/internal/middleware"
	"costwatch/internal/monitor"
	"costwatch/internal/router"
	"costwatch/internal/service"
	"costwatch/internal/telemetry"

	"github.com/google/wire"
	"go.uber.org/zap"
)

// wireApp init application.
func wireApp(*config.Configuration, *zap.Logger) (*App, func(), error) {
	panic(
		wire.Build(
			database.ProviderSet,
			monitor.ProviderSet,
			ingest.ProviderSet,
			service.ProviderSet,
			handler.ProviderSet,
			middleware.ProviderSet,
			router.ProviderSet,
			cron.ProviderSet,
			newHttpServer,
			telemetry.ProviderSet,
			wire.Bind(new(monitor.ThresholdStore), new(*mongoRepo.ThresholdRepository)),
			wire.Bind(new(monitor.AlertSink), new(*fluentdRepo.AlertLogRepository)),
			wire.Bind(new(ingest.EventStore), new(*mongoRepo.CostEventRepository)),
			wire.Bind(new(ingest.CostRecorder), new(*monitor.BudgetMonitor)),
			wire.Bind(new(ingest.AuditSink), new(*fluentdRepo.AlertLogRepository)),
			wire.Bind(new(telemetry.BudgetSnapshotSource), new(*monitor.BudgetMonitor)),
			newApp,
		),
	)
}
