package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/aggregate"
	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/config"
	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/logger"
	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/repository/timescale"
)

// Five-minute aggregation job: rolls the most recent closed bucket of raw
// events and detections up into the aggregation tables and exits.
// Cron-friendly; re-running a bucket overwrites its rows.
func main() {
	cameraID := flag.Int("camera-id", 0, "restrict the run to a single camera (0 = all)")
	flag.Parse()

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

	aggregator := aggregate.NewAggregator(dbClient.Pool(), cfg.AggregatePeriod(), log)

	summaries, err := aggregator.Run(ctx, time.Now(), *cameraID)
	if err != nil {
		log.Fatal("Aggregation failed", zap.Error(err))
	}

	for _, s := range summaries {
		log.Info("Camera summary",
			zap.Int("camera_id", s.CameraID),
			zap.Time("time_bucket", s.TimeBucket),
			zap.Int("total_frames", s.TotalFrames),
			zap.Int("frames_with_detection", s.FramesWithDetection),
			zap.Float64("detection_rate", s.DetectionRate))
	}
}
