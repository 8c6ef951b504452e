package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m4cd4r4/SwanFlow/config"
	"github.com/m4cd4r4/SwanFlow/logger"
	"github.com/m4cd4r4/SwanFlow/metrics"
	"github.com/m4cd4r4/SwanFlow/models"
	"github.com/m4cd4r4/SwanFlow/services"
	"github.com/m4cd4r4/SwanFlow/storage"
	"github.com/m4cd4r4/SwanFlow/traffic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	snapshotsBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swanflow_congestion_snapshots_built_total",
		Help: "Total number of congestion snapshots computed.",
	})
	snapshotsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swanflow_congestion_snapshots_published_total",
		Help: "Total number of snapshots cached and published to Redis.",
	})
	snapshotsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swanflow_congestion_snapshots_failed_total",
		Help: "Total number of failed snapshot cycles.",
	})
	sitesByLevel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "swanflow_congestion_sites",
		Help: "Number of sites per congestion level in the latest snapshot.",
	}, []string{"level"})
	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swanflow_congestion_cycle_duration_seconds",
		Help:    "Duration of a full congestion cycle.",
		Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0},
	})
)

var levels = []traffic.Level{traffic.LevelFlowing, traffic.LevelModerate, traffic.LevelHeavy, traffic.LevelGridlock}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "swanflow-congestion")
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := storage.Open(ctx, *cfg, zl)
	if err != nil {
		zl.Fatal("storage init failed", zap.Error(err))
	}
	defer backend.Close()

	cache, err := services.NewCacheService(ctx, cfg.Redis, zl)
	if err != nil {
		zl.Fatal("redis init failed", zap.Error(err))
	}
	defer cache.Close()

	if err := checkSharedState(cfg.Storage.Driver, cache); err != nil {
		zl.Fatal("congestion service cannot start", zap.Error(err))
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.Server.MetricsAddr, zl); err != nil {
			zl.Fatal("metrics server failed", zap.Error(err))
		}
	}()

	interval := cfg.Congestion.Interval
	window := cfg.Congestion.Window
	ttl := 2 * interval

	zl.Info("congestion service running", zap.Duration("interval", interval), zap.Duration("window", window))

	// Run first cycle immediately
	runCycle(ctx, backend.Reader, cache, window, ttl, time.Now(), zl)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case t := <-ticker.C:
			runCycle(ctx, backend.Reader, cache, window, ttl, t, zl)
		case <-ctx.Done():
			zl.Info("congestion service shutting down")
			return
		}
	}
}

// checkSharedState requires Redis and a storage driver shared with the API.
func checkSharedState(driver string, cache *services.CacheService) error {
	if !cache.Available() {
		return errors.New("redis is required: set REDIS_ENABLED=true")
	}
	if driver == config.StorageMemory {
		return fmt.Errorf("storage driver %q is process-local: use %s", driver, config.StoragePostgres)
	}
	return nil
}

func runCycle(ctx context.Context, reader storage.Reader, cache *services.CacheService, window, ttl time.Duration, now time.Time, logger *zap.Logger) (models.CongestionSnapshot, error) {
	start := time.Now()
	defer func() {
		cycleDuration.Observe(time.Since(start).Seconds())
	}()

	snap, err := services.BuildCongestionSnapshot(ctx, reader, window, now)
	if err != nil {
		snapshotsFailed.Inc()
		logger.Error("snapshot failed", zap.Error(err))
		return snap, err
	}
	snapshotsBuilt.Inc()

	counts := countLevels(snap.Sites)
	for _, level := range levels {
		sitesByLevel.WithLabelValues(string(level)).Set(float64(counts[level]))
	}

	if len(snap.Sites) == 0 {
		logger.Info("no detections in window, caching empty snapshot")
	}

	if err := cache.Set(ctx, services.CongestionCacheKey, snap, ttl); err != nil {
		snapshotsFailed.Inc()
		logger.Error("redis set failed", zap.Error(err))
		return snap, err
	}
	if err := cache.Publish(ctx, services.CongestionChannel, snap); err != nil {
		logger.Warn("redis publish failed", zap.Error(err))
	} else {
		snapshotsPublished.Inc()
	}

	logger.Info("congestion cycle completed",
		zap.Int("sites", len(snap.Sites)),
		zap.Int("gridlock", counts[traffic.LevelGridlock]),
		zap.Int("heavy", counts[traffic.LevelHeavy]),
		zap.Duration("took", time.Since(start)),
	)
	return snap, nil
}

func countLevels(sites []models.SiteCongestion) map[traffic.Level]int {
	counts := make(map[traffic.Level]int, len(levels))
	for _, s := range sites {
		counts[s.Level]++
	}
	return counts
}
