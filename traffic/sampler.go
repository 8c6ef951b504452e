package traffic

import (
	"math"
	"math/rand/v2"
	"sync"
)

const (
	JitterMin = 0.8
	JitterMax = 1.2

	ConfidenceBase   = 0.85
	ConfidenceSpread = 0.1
)

// Sample is one minute of sampled demand for a site.
type Sample struct {
	MinuteCount int
	HourCount   int
	Confidence  float64
	Jitter      float64
}

// Sampler turns an expected rate into integer counts. It is safe for
// concurrent use; calls are serialized on the shared random source.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSampler(seed uint64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *Sampler) Sample(ratePerMinute float64) Sample {
	s.mu.Lock()
	jitter := JitterMin + s.rng.Float64()*(JitterMax-JitterMin)
	confidence := ConfidenceBase + s.rng.Float64()*ConfidenceSpread
	s.mu.Unlock()

	if math.IsNaN(ratePerMinute) || ratePerMinute < 0 {
		ratePerMinute = 0
	}
	rate := ratePerMinute * jitter

	return Sample{
		MinuteCount: roundCount(rate),
		HourCount:   roundCount(rate * 60),
		Confidence:  confidence,
		Jitter:      jitter,
	}
}

func roundCount(v float64) int {
	n := int(math.Round(v))
	if n < 0 {
		return 0
	}
	return n
}
