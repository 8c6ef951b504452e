// Package generator drives synthetic detections for every configured site on
// a fixed cadence.
package generator

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/m4cd4r4/SwanFlow/config"
	"github.com/m4cd4r4/SwanFlow/models"
	"github.com/m4cd4r4/SwanFlow/storage"
	"github.com/m4cd4r4/SwanFlow/traffic"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type State int32

const (
	Idle State = iota
	Generating
)

func (s State) String() string {
	if s == Generating {
		return "generating"
	}
	return "idle"
}

var (
	recordsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swanflow_generator_records_generated_total",
		Help: "Total number of detection records generated.",
	})
	recordsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swanflow_generator_records_stored_total",
		Help: "Total number of generated records accepted by storage.",
	})
	recordsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swanflow_generator_records_failed_total",
		Help: "Total number of generated records rejected by storage.",
	})
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swanflow_generator_tick_duration_seconds",
		Help:    "Duration of one generation tick across all sites.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
	})
	generatorState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swanflow_generator_state",
		Help: "Current generator state (0 idle, 1 generating).",
	})
)

const defaultInterval = 30 * time.Second

type Options struct {
	Interval     time.Duration
	StartupDelay time.Duration
	// Location fixes the hour of day used for rate lookup.
	Location    *time.Location
	Workers     int
	Seed        uint64
	UptimeEpoch time.Time
	Now         func() time.Time
}

type Generator struct {
	model    traffic.RateModel
	sites    []traffic.SiteProfile
	sampler  *traffic.Sampler
	counters *traffic.CounterStore
	sink     storage.Sink
	logger   *zap.Logger
	opts     Options
	state    atomic.Int32
}

// TickResult summarises one pass over all sites.
type TickResult struct {
	ID        string
	Hour      int
	Timestamp int64
	Generated int
	Stored    int
	Failed    int
}

func New(model traffic.RateModel, sites []traffic.SiteProfile, sink storage.Sink, logger *zap.Logger, opts Options) *Generator {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Generator{
		model:    model,
		sites:    sites,
		sampler:  traffic.NewSampler(opts.Seed),
		counters: traffic.NewCounterStore(),
		sink:     sink,
		logger:   logger,
		opts:     opts,
	}
}

func (g *Generator) State() State {
	return State(g.state.Load())
}

func (g *Generator) setState(s State) {
	g.state.Store(int32(s))
	generatorState.Set(float64(s))
}

// Counters exposes the per-site cumulative totals.
func (g *Generator) Counters() *traffic.CounterStore {
	return g.counters
}

// Prepare registers every site in the directory and seeds counters from the
// last persisted totals. Failures are logged; affected counters start at 0.
func (g *Generator) Prepare(ctx context.Context, loader storage.TotalsLoader) {
	for _, site := range g.sites {
		rec := models.Site{Name: site.Name, Latitude: site.Lat, Longitude: site.Lng, Active: true}
		if err := g.sink.UpsertSite(ctx, rec); err != nil {
			g.logger.Warn("site upsert failed", zap.String("site", site.Name), zap.Error(err))
		}
	}

	if loader == nil {
		return
	}
	totals, err := loader.LatestTotals(ctx)
	if err != nil {
		g.logger.Warn("counter seed failed, starting from zero", zap.Error(err))
		return
	}
	for _, site := range g.sites {
		if total, ok := totals[site.Name]; ok {
			g.counters.Seed(site.Name, total)
		}
	}
	g.logger.Info("counters seeded", zap.Int("sites", len(totals)))
}

// Run ticks until ctx is done. The first tick fires after the startup delay.
func (g *Generator) Run(ctx context.Context) error {
	g.setState(Idle)
	g.logger.Info("generator running",
		zap.Duration("interval", g.opts.Interval),
		zap.Duration("startup_delay", g.opts.StartupDelay),
		zap.String("timezone", g.opts.Location.String()),
		zap.Int("sites", len(g.sites)),
	)

	delay := time.NewTimer(g.opts.StartupDelay)
	select {
	case <-delay.C:
	case <-ctx.Done():
		delay.Stop()
		return nil
	}

	g.Tick(ctx)

	ticker := time.NewTicker(g.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.Tick(ctx)
		case <-ctx.Done():
			g.logger.Info("generator shutting down")
			return nil
		}
	}
}

// Tick generates and stores one record per site. A failing site is logged
// and skipped; it never aborts the others.
func (g *Generator) Tick(ctx context.Context) TickResult {
	start := time.Now()
	g.setState(Generating)
	defer func() {
		g.setState(Idle)
		tickDuration.Observe(time.Since(start).Seconds())
	}()

	now := g.opts.Now()
	res := TickResult{
		ID:        uuid.NewString(),
		Hour:      now.In(g.opts.Location).Hour(),
		Timestamp: now.UnixMilli(),
	}
	uptime := g.uptime(now)
	log := g.logger.With(zap.String("tick_id", res.ID))

	var generated, stored, failed atomic.Int64
	var eg errgroup.Group
	eg.SetLimit(g.opts.Workers)
	for _, site := range g.sites {
		eg.Go(func() error {
			s := g.sampler.Sample(g.model.SiteRate(site, res.Hour))
			total, err := g.counters.Advance(site.Name, s.MinuteCount)
			if err != nil {
				failed.Add(1)
				recordsFailed.Inc()
				log.Error("counter advance failed", zap.String("site", site.Name), zap.Error(err))
				return nil
			}
			generated.Add(1)
			recordsGenerated.Inc()

			d := &models.Detection{
				Site:          site.Name,
				Latitude:      site.Lat,
				Longitude:     site.Lng,
				Timestamp:     res.Timestamp,
				TotalCount:    total,
				HourCount:     s.HourCount,
				MinuteCount:   s.MinuteCount,
				AvgConfidence: s.Confidence,
				Uptime:        uptime,
			}
			if err := g.sink.AppendDetection(ctx, d); err != nil {
				g.counters.Rewind(site.Name, s.MinuteCount)
				failed.Add(1)
				recordsFailed.Inc()
				log.Warn("detection store failed", zap.String("site", site.Name), zap.Error(err))
				return nil
			}
			stored.Add(1)
			recordsStored.Inc()
			return nil
		})
	}
	_ = eg.Wait()

	res.Generated = int(generated.Load())
	res.Stored = int(stored.Load())
	res.Failed = int(failed.Load())
	log.Info("tick completed",
		zap.Int("hour", res.Hour),
		zap.Float64("base_rate", g.model.BaseRate(res.Hour)),
		zap.Int("generated", res.Generated),
		zap.Int("stored", res.Stored),
		zap.Int("failed", res.Failed),
		zap.Duration("took", time.Since(start)),
	)
	return res
}

// uptime is whole seconds since the configured epoch, never negative.
func (g *Generator) uptime(now time.Time) int64 {
	secs := int64(now.Sub(g.opts.UptimeEpoch) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}

// NewFromConfig builds a generator for the loaded site network. A zero seed
// is replaced by a time-based one.
func NewFromConfig(cfg config.SimulatorConfig, net *config.Network, sink storage.Sink, logger *zap.Logger) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return New(net.Model, net.Sites, sink, logger, Options{
		Interval:     cfg.Interval,
		StartupDelay: cfg.StartupDelay,
		Location:     cfg.Location,
		Workers:      cfg.Workers,
		Seed:         seed,
		UptimeEpoch:  cfg.UptimeEpoch,
	})
}
