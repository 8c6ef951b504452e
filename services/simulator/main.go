package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/m4cd4r4/SwanFlow/config"
	"github.com/m4cd4r4/SwanFlow/generator"
	"github.com/m4cd4r4/SwanFlow/logger"
	"github.com/m4cd4r4/SwanFlow/metrics"
	"github.com/m4cd4r4/SwanFlow/services"
	"github.com/m4cd4r4/SwanFlow/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "swanflow-simulator")
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	net, err := config.LoadSites(cfg.Simulator.SitesFile)
	if err != nil {
		zl.Fatal("site profiles invalid", zap.Error(err))
	}

	backend, err := storage.Open(ctx, *cfg, zl)
	if err != nil {
		zl.Fatal("storage init failed", zap.Error(err))
	}
	defer backend.Close()

	cache, err := services.NewCacheService(ctx, cfg.Redis, zl)
	if err != nil {
		zl.Warn("redis unavailable, live fan-out disabled", zap.Error(err))
	}
	defer cache.Close()

	sink := backend.Sink
	if cache.Available() {
		sink = storage.NewLivePublisher(sink, cache, zl)
	}

	gen := generator.NewFromConfig(cfg.Simulator, net, sink, zl)
	gen.Prepare(ctx, backend.Totals)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return metrics.Serve(gctx, cfg.Server.MetricsAddr, zl) })
	g.Go(func() error { return gen.Run(gctx) })

	if err := g.Wait(); err != nil {
		zl.Error("simulator stopped with error", zap.Error(err))
		return
	}
	zl.Info("simulator shut down")
}
