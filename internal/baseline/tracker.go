package baseline

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"floodwatch/internal/store"
	"floodwatch/pkg/models"
)

// Store keys the tracker publishes for external consumers.
const (
	MeanKey   = "global:baseline:avg"
	StdDevKey = "global:baseline:std"
)

// Config controls the baseline window.
type Config struct {
	// Window bounds how old a sample may be before eviction.
	Window time.Duration

	// MinSamples gates statistics; below it Tick returns no stats.
	MinSamples int

	// MaxSamples caps the window length regardless of age.
	MaxSamples int

	// PublishTTL is the expiry on the published mean/stddev keys.
	PublishTTL time.Duration
}

func (c *Config) applyDefaults() {
	if c.Window <= 0 {
		c.Window = 5 * time.Minute
	}
	if c.MinSamples <= 0 {
		c.MinSamples = 10
	}
	if c.MaxSamples <= 0 {
		c.MaxSamples = 300
	}
	if c.PublishTTL <= 0 {
		c.PublishTTL = 5 * time.Minute
	}
}

type sample struct {
	ts    time.Time
	value float64
}

// Tracker maintains a sliding window of record-cadence samples and computes
// mean and sample standard deviation on demand. Each processed record
// contributes one unit sample, so the statistics characterize processing
// cadence rather than per-source volume.
type Tracker struct {
	store   store.Store
	cfg     Config
	samples []sample
	now     func() time.Time
}

// NewTracker creates a baseline tracker publishing to the given store.
func NewTracker(st store.Store, cfg Config) *Tracker {
	cfg.applyDefaults()
	return &Tracker{
		store: st,
		cfg:   cfg,
		now:   time.Now,
	}
}

// SetClock overrides the tracker clock, for tests.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// Tick records one processed-record sample, evicts expired samples and, once
// enough samples exist, computes and publishes the window statistics. It
// returns nil stats while the window is still warming up.
func (t *Tracker) Tick(ctx context.Context) (*models.BaselineStats, error) {
	now := t.now()
	t.samples = append(t.samples, sample{ts: now, value: 1})

	cutoff := now.Add(-t.cfg.Window)
	idx := 0
	for idx < len(t.samples) && t.samples[idx].ts.Before(cutoff) {
		idx++
	}
	if idx > 0 {
		t.samples = t.samples[idx:]
	}
	if len(t.samples) > t.cfg.MaxSamples {
		t.samples = t.samples[len(t.samples)-t.cfg.MaxSamples:]
	}

	if len(t.samples) < t.cfg.MinSamples {
		return nil, nil
	}

	mean, std := t.stats()
	if err := t.publish(ctx, mean, std); err != nil {
		return nil, err
	}

	return &models.BaselineStats{
		Mean:    mean,
		StdDev:  std,
		Samples: len(t.samples),
	}, nil
}

// Size returns the current window length.
func (t *Tracker) Size() int {
	return len(t.samples)
}

func (t *Tracker) stats() (float64, float64) {
	n := len(t.samples)
	sum := 0.0
	for _, s := range t.samples {
		sum += s.value
	}
	mean := sum / float64(n)

	if n < 2 {
		return mean, 0
	}
	varSum := 0.0
	for _, s := range t.samples {
		d := s.value - mean
		varSum += d * d
	}
	return mean, math.Sqrt(varSum / float64(n-1))
}

func (t *Tracker) publish(ctx context.Context, mean, std float64) error {
	meanStr := strconv.FormatFloat(mean, 'f', -1, 64)
	stdStr := strconv.FormatFloat(std, 'f', -1, 64)
	if err := t.store.SetExpire(ctx, MeanKey, meanStr, t.cfg.PublishTTL); err != nil {
		return fmt.Errorf("publish baseline mean: %w", err)
	}
	if err := t.store.SetExpire(ctx, StdDevKey, stdStr, t.cfg.PublishTTL); err != nil {
		return fmt.Errorf("publish baseline stddev: %w", err)
	}
	return nil
}
