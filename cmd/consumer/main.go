package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/config"
	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/consumer"
	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/logger"
	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/repository/timescale"
	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/stream/redisstream"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
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

	log.Info("Starting writer service",
		zap.String("environment", cfg.ServiceEnvironment))

	ctx := context.Background()

	// Initialize TimescaleDB client
	dbClient, err := timescale.NewClient(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to create TimescaleDB client", zap.Error(err))
	}

	// Initialize repository with the schema provisioner
	provisioner := timescale.NewProvisioner(dbClient.Pool(), cfg.RetentionInterval, log)
	repo := timescale.NewRepository(dbClient, provisioner, log)
	defer func() {
		if err := repo.Close(); err != nil {
			log.Error("Failed to close repository", zap.Error(err))
		}
	}()

	// Bring the schema up to date before consuming
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatal("Failed to provision schema", zap.Error(err))
	}
	log.Info("Database schema provisioned")

	// Initialize Redis Stream client and consumer group
	streamClient, err := redisstream.NewClient(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer func() {
		if err := streamClient.Close(); err != nil {
			log.Error("Failed to close Redis client", zap.Error(err))
		}
	}()

	if err := streamClient.EnsureGroup(ctx); err != nil {
		log.Fatal("Failed to create consumer group", zap.Error(err))
	}

	// Initialize consumer
	c := consumer.NewConsumer(cfg, streamClient, repo, log)

	// Start health check endpoint
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			if err := repo.Ping(r.Context()); err != nil {
				log.Warn("Health check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			if err := streamClient.Ping(r.Context()); err != nil {
				log.Warn("Health check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})

		addr := ":" + cfg.ConsumerHealthCheckPort
		log.Info("Health check server starting", zap.String("address", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Error("Health check server error", zap.Error(err))
		}
	}()

	// Start consumer
	consumerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Info("Consumer starting",
		zap.String("stream", cfg.RedisStreamKey),
		zap.String("group", cfg.RedisConsumerGroup))

	go func() {
		if err := c.Start(consumerCtx); err != nil {
			log.Fatal("Consumer error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down consumer gracefully")
	cancel()
}
