package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m4cd4r4/SwanFlow/config"
	"github.com/m4cd4r4/SwanFlow/generator"
	"github.com/m4cd4r4/SwanFlow/handlers"
	"github.com/m4cd4r4/SwanFlow/logger"
	"github.com/m4cd4r4/SwanFlow/metrics"
	"github.com/m4cd4r4/SwanFlow/services"
	"github.com/m4cd4r4/SwanFlow/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "swanflow-api")
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
		zl.Warn("redis unavailable, caching and live fan-out disabled", zap.Error(err))
	}
	defer cache.Close()

	sink := backend.Sink
	if cache.Available() {
		sink = storage.NewLivePublisher(sink, cache, zl)
	}

	auth, err := services.NewAPIKeyService(cfg.Auth)
	if err != nil {
		zl.Fatal("api key init failed", zap.Error(err))
	}

	deps := handlers.RouterDeps{
		Reader:           backend.Reader,
		Sink:             sink,
		Cache:            cache,
		Auth:             auth,
		Logger:           zl,
		CORS:             cfg.CORS,
		CongestionWindow: cfg.Congestion.Window,
	}
	if backend.Postgres != nil {
		deps.DB = backend.Postgres
	}
	router := handlers.NewRouter(deps)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zl.Info("api server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return metrics.Serve(gctx, cfg.Server.MetricsAddr, zl)
	})

	if cfg.Simulator.Enabled {
		net, err := config.LoadSites(cfg.Simulator.SitesFile)
		if err != nil {
			zl.Fatal("site profiles invalid", zap.Error(err))
		}
		gen := generator.NewFromConfig(cfg.Simulator, net, sink, zl.Named("generator"))
		g.Go(func() error {
			gen.Prepare(gctx, backend.Totals)
			return gen.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		zl.Error("api stopped with error", zap.Error(err))
		return
	}
	zl.Info("api shut down")
}
