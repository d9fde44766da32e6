package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/config"
	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/logger"
	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/repository/timescale"
)

// Run-once schema provisioning: brings the target database to the desired
// state (extension, tables, hypertables, indexes, retention policies) and
// exits. Safe to run repeatedly.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.ServiceEnvironment, cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	ctx := context.Background()

	dbClient, err := timescale.NewClient(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to create TimescaleDB client", zap.Error(err))
	}
	defer dbClient.Close()

	provisioner := timescale.NewProvisioner(dbClient.Pool(), cfg.RetentionInterval, log)
	if err := provisioner.Run(ctx); err != nil {
		log.Fatal("Provisioning failed", zap.Error(err))
	}

	log.Info("Provisioning finished",
		zap.String("database", cfg.DatabaseName),
		zap.String("retention", cfg.RetentionInterval))
}
