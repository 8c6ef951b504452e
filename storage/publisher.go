package storage

import (
	"context"

	"github.com/m4cd4r4/SwanFlow/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// LiveChannel carries every stored detection as JSON.
const LiveChannel = "swanflow:live"

var detectionsPublished = promauto.NewCounter(prometheus.CounterOpts{
	Name: "swanflow_live_detections_published_total",
	Help: "Total number of detections published to Redis.",
})

// Publisher encodes message and sends it on channel. services.CacheService
// implements it.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) error
}

// LivePublisher wraps a Sink and fans stored detections out over pub/sub.
// Publish failures are logged and never fail the write.
type LivePublisher struct {
	Sink
	pub    Publisher
	logger *zap.Logger
}

func NewLivePublisher(sink Sink, pub Publisher, logger *zap.Logger) *LivePublisher {
	return &LivePublisher{Sink: sink, pub: pub, logger: logger}
}

func (p *LivePublisher) AppendDetection(ctx context.Context, d *models.Detection) error {
	if err := p.Sink.AppendDetection(ctx, d); err != nil {
		return err
	}
	if p.pub == nil {
		return nil
	}

	if err := p.pub.Publish(ctx, LiveChannel, d); err != nil {
		p.logger.Warn("live publish failed", zap.String("site", d.Site), zap.Error(err))
		return nil
	}
	detectionsPublished.Inc()
	return nil
}
