package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/config"
	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/healthcheck"
	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/logger"
	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/repository/timescale"
	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/stream/redisstream"
)

// Connectivity verification utility: checks that Redis and TimescaleDB are
// reachable and minimally functional, prints the results, and exits non-zero
// if anything failed.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.ServiceEnvironment, cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	streamClient, err := redisstream.NewClient(ctx, cfg, log)
	if err != nil {
		log.Error("Redis unreachable", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		_ = streamClient.Close()
	}()

	dbClient, err := timescale.NewClient(ctx, cfg, log)
	if err != nil {
		log.Error("TimescaleDB unreachable", zap.Error(err))
		os.Exit(1)
	}
	defer dbClient.Close()

	checker := healthcheck.NewChecker(streamClient, dbClient.Pool(), log)
	results := checker.Run(ctx)

	for _, res := range results {
		status := "OK"
		if !res.OK() {
			status = fmt.Sprintf("FAIL: %v", res.Err)
		}
		fmt.Printf("%-24s %s\n", res.Name, status)
	}

	if !healthcheck.Healthy(results) {
		os.Exit(1)
	}
}
