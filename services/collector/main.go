package main

import (
	"context"
	"encoding/json"
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

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	msgsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swanflow_collector_messages_received_total",
		Help: "Total number of MQTT messages received by collector.",
	})
	msgsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swanflow_collector_messages_stored_total",
		Help: "Total number of detections successfully stored.",
	})
	msgsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swanflow_collector_messages_failed_total",
		Help: "Total number of messages rejected or failed to store.",
	})
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "swanflow-collector")
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
		zl.Warn("redis unavailable, live fan-out disabled", zap.Error(err))
	}
	defer cache.Close()

	sink := backend.Sink
	if cache.Available() {
		sink = storage.NewLivePublisher(sink, cache, zl)
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.Server.MetricsAddr, zl); err != nil {
			zl.Fatal("metrics server failed", zap.Error(err))
		}
	}()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTT.URL)
	opts.SetClientID("swanflow-collector-" + uuid.NewString()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetDefaultPublishHandler(func(client mqtt.Client, message mqtt.Message) {
		if err := processMessage(ctx, sink, message.Payload(), time.Now()); err != nil {
			zl.Warn("message rejected", zap.String("topic", message.Topic()), zap.Error(err))
		}
	})
	opts.OnConnect = func(client mqtt.Client) {
		token := client.Subscribe(cfg.MQTT.Topic, 0, nil)
		token.Wait()
		if token.Error() != nil {
			zl.Error("mqtt subscribe error", zap.Error(token.Error()))
			return
		}
		zl.Info("collector subscribed", zap.String("topic", cfg.MQTT.Topic))
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		zl.Warn("mqtt connection lost", zap.Error(err))
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if token.Error() != nil {
		zl.Fatal("mqtt connection failed", zap.Error(token.Error()))
	}

	zl.Info("collector running", zap.String("mqtt", cfg.MQTT.URL), zap.String("metrics", cfg.Server.MetricsAddr))

	<-ctx.Done()
	zl.Info("collector shutting down")
	client.Disconnect(250)
}

// processMessage validates one sensor report and stores it along with its
// site. The returned error has already been counted.
func processMessage(ctx context.Context, sink storage.Sink, payloadRaw []byte, now time.Time) error {
	msgsReceived.Inc()

	var report models.DetectionReport
	if err := json.Unmarshal(payloadRaw, &report); err != nil {
		msgsFailed.Inc()
		return fmt.Errorf("invalid payload: %w", err)
	}
	if err := report.Validate(); err != nil {
		msgsFailed.Inc()
		return err
	}

	d := report.Detection(now)
	if err := sink.AppendDetection(ctx, &d); err != nil {
		msgsFailed.Inc()
		return err
	}
	if err := sink.UpsertSite(ctx, report.SiteRecord()); err != nil {
		msgsFailed.Inc()
		return err
	}

	msgsStored.Inc()
	return nil
}
