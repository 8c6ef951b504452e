package generator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m4cd4r4/SwanFlow/config"
	"github.com/m4cd4r4/SwanFlow/models"
	"github.com/m4cd4r4/SwanFlow/traffic"

	"go.uber.org/zap"
)

type recordingSink struct {
	mu      sync.Mutex
	records []models.Detection
	sites   []string
	failFor string
}

func (s *recordingSink) AppendDetection(_ context.Context, d *models.Detection) error {
	if d.Site == s.failFor {
		return errors.New("insert rejected")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, *d)
	return nil
}

func (s *recordingSink) UpsertSite(_ context.Context, site models.Site) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites = append(s.sites, site.Name)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type staticTotals map[string]int64

func (t staticTotals) LatestTotals(context.Context) (map[string]int64, error) {
	return t, nil
}

type brokenTotals struct{}

func (brokenTotals) LatestTotals(context.Context) (map[string]int64, error) {
	return nil, errors.New("db down")
}

var perth = time.FixedZone("AWST", 8*3600)

func testSites() []traffic.SiteProfile {
	return []traffic.SiteProfile{
		{Name: "A (Northbound)", Multiplier: 1.3, Direction: traffic.Northbound, RoadClass: traffic.Arterial},
		{Name: "A (Southbound)", Multiplier: 1.3, Direction: traffic.Southbound, RoadClass: traffic.Arterial},
		{Name: "B (Northbound)", Multiplier: 0.6, Direction: traffic.Northbound, RoadClass: traffic.Arterial, Zone: traffic.ZoneSchool},
	}
}

func newTestGenerator(sink *recordingSink, now time.Time) *Generator {
	return New(traffic.DefaultRateModel(), testSites(), sink, zap.NewNop(), Options{
		Interval:    10 * time.Millisecond,
		Location:    perth,
		Workers:     2,
		Seed:        42,
		UptimeEpoch: now.Add(-90 * time.Second),
		Now:         func() time.Time { return now },
	})
}

func TestTickEmitsOneRecordPerSite(t *testing.T) {
	now := time.Date(2025, 3, 4, 8, 15, 30, 0, perth)
	sink := &recordingSink{}
	g := newTestGenerator(sink, now)

	res := g.Tick(context.Background())

	if res.Hour != 8 {
		t.Errorf("Hour = %d, want 8", res.Hour)
	}
	if res.Generated != 3 || res.Stored != 3 || res.Failed != 0 {
		t.Errorf("result = %+v, want 3 generated and stored", res)
	}
	if res.ID == "" {
		t.Error("tick id is empty")
	}
	if len(sink.records) != 3 {
		t.Fatalf("stored %d records, want 3", len(sink.records))
	}
	for _, d := range sink.records {
		if d.Timestamp != now.UnixMilli() {
			t.Errorf("%s: Timestamp = %d, want %d", d.Site, d.Timestamp, now.UnixMilli())
		}
		if d.Uptime != 90 {
			t.Errorf("%s: Uptime = %d, want 90", d.Site, d.Uptime)
		}
		if d.TotalCount != int64(d.MinuteCount) {
			t.Errorf("%s: TotalCount = %d, want first minute count %d", d.Site, d.TotalCount, d.MinuteCount)
		}
		if d.AvgConfidence < traffic.ConfidenceBase || d.AvgConfidence > traffic.ConfidenceBase+traffic.ConfidenceSpread {
			t.Errorf("%s: confidence %v out of range", d.Site, d.AvgConfidence)
		}
	}
	if g.State() != Idle {
		t.Errorf("State() = %v after tick, want idle", g.State())
	}
}

func TestTickTotalsAccumulate(t *testing.T) {
	now := time.Date(2025, 3, 4, 17, 0, 0, 0, perth)
	sink := &recordingSink{}
	g := newTestGenerator(sink, now)

	for i := 0; i < 5; i++ {
		g.Tick(context.Background())
	}

	sums := map[string]int64{}
	last := map[string]int64{}
	for _, d := range sink.records {
		if d.TotalCount < last[d.Site] {
			t.Errorf("%s: total went from %d to %d", d.Site, last[d.Site], d.TotalCount)
		}
		sums[d.Site] += int64(d.MinuteCount)
		last[d.Site] = d.TotalCount
	}
	for site, sum := range sums {
		if g.Counters().Total(site) != sum {
			t.Errorf("%s: Total() = %d, want sum of minute counts %d", site, g.Counters().Total(site), sum)
		}
	}
}

func TestTickSkipsFailingSite(t *testing.T) {
	now := time.Date(2025, 3, 4, 12, 0, 0, 0, perth)
	sink := &recordingSink{failFor: "A (Southbound)"}
	g := newTestGenerator(sink, now)

	res := g.Tick(context.Background())

	if res.Generated != 3 || res.Stored != 2 || res.Failed != 1 {
		t.Errorf("result = %+v, want 3 generated, 2 stored, 1 failed", res)
	}
	for _, d := range sink.records {
		if d.Site == "A (Southbound)" {
			t.Error("failing site was stored")
		}
	}
	if got := g.Counters().Total("A (Southbound)"); got != 0 {
		t.Errorf("Total() after failed write = %d, want 0", got)
	}
}

func TestTickFailedWriteLeavesNoTrace(t *testing.T) {
	now := time.Date(2025, 3, 4, 17, 0, 0, 0, perth)
	sink := &recordingSink{failFor: "A (Southbound)"}
	g := newTestGenerator(sink, now)

	g.Tick(context.Background())
	sink.failFor = ""
	g.Tick(context.Background())

	var persisted []models.Detection
	for _, d := range sink.records {
		if d.Site == "A (Southbound)" {
			persisted = append(persisted, d)
		}
	}
	if len(persisted) != 1 {
		t.Fatalf("persisted %d records, want 1", len(persisted))
	}
	if d := persisted[0]; d.TotalCount != int64(d.MinuteCount) {
		t.Errorf("TotalCount = %d, want persisted minute count %d", d.TotalCount, d.MinuteCount)
	}
}

func TestTickUptimeBeforeEpoch(t *testing.T) {
	now := time.Date(2025, 3, 4, 12, 0, 0, 0, perth)
	sink := &recordingSink{}
	g := New(traffic.DefaultRateModel(), testSites(), sink, zap.NewNop(), Options{
		UptimeEpoch: now.Add(time.Hour),
		Now:         func() time.Time { return now },
	})

	g.Tick(context.Background())
	for _, d := range sink.records {
		if d.Uptime != 0 {
			t.Errorf("%s: Uptime = %d, want 0", d.Site, d.Uptime)
		}
	}
}

func TestPrepareSeedsCounters(t *testing.T) {
	now := time.Date(2025, 3, 4, 3, 0, 0, 0, perth)
	sink := &recordingSink{}
	g := newTestGenerator(sink, now)

	g.Prepare(context.Background(), staticTotals{"A (Northbound)": 5000, "gone": 12})

	if len(sink.sites) != 3 {
		t.Errorf("upserted %d sites, want 3", len(sink.sites))
	}
	if got := g.Counters().Total("A (Northbound)"); got != 5000 {
		t.Errorf("Total() = %d, want 5000", got)
	}
	if got := g.Counters().Total("gone"); got != 0 {
		t.Errorf("unknown site seeded: %d", got)
	}

	g.Tick(context.Background())
	for _, d := range sink.records {
		if d.Site == "A (Northbound)" && d.TotalCount < 5000 {
			t.Errorf("TotalCount = %d, want >= seed", d.TotalCount)
		}
	}
}

func TestPrepareSeedFailure(t *testing.T) {
	sink := &recordingSink{}
	g := newTestGenerator(sink, time.Now())

	g.Prepare(context.Background(), brokenTotals{})
	if got := g.Counters().Total("A (Northbound)"); got != 0 {
		t.Errorf("Total() = %d, want 0", got)
	}
}

func TestRunTicksUntilCancelled(t *testing.T) {
	sink := &recordingSink{}
	g := newTestGenerator(sink, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for sink.count() < 6 {
		select {
		case <-deadline:
			t.Fatalf("only %d records after 5s", sink.count())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunCancelledDuringDelay(t *testing.T) {
	sink := &recordingSink{}
	g := New(traffic.DefaultRateModel(), testSites(), sink, zap.NewNop(), Options{
		Interval:     time.Second,
		StartupDelay: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Run(ctx); err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if sink.count() != 0 {
		t.Errorf("stored %d records before first tick", sink.count())
	}
}

func TestNewFromConfig(t *testing.T) {
	net, err := config.LoadSites("")
	if err != nil {
		t.Fatalf("LoadSites() error: %v", err)
	}
	cfg := config.SimulatorConfig{Location: perth, Workers: 4, Seed: 7}
	sink := &recordingSink{}
	g := NewFromConfig(cfg, net, sink, zap.NewNop())

	res := g.Tick(context.Background())
	if res.Generated != len(net.Sites) || res.Stored != len(net.Sites) {
		t.Errorf("result = %+v, want %d records", res, len(net.Sites))
	}
}
