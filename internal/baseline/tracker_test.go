package baseline

import (
	"context"
	"testing"
	"time"

	"floodwatch/internal/store"
)

func newTestTracker(cfg Config) (*Tracker, *time.Time) {
	st := store.NewMemoryStore()
	clock := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	tr := NewTracker(st, cfg)
	tr.SetClock(func() time.Time { return clock })
	return tr, &clock
}

func TestTickReturnsNothingBelowMinSamples(t *testing.T) {
	tr, clock := newTestTracker(Config{})
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		stats, err := tr.Tick(ctx)
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if stats != nil {
			t.Fatalf("expected no stats before 10 samples, got %+v on tick %d", stats, i+1)
		}
		*clock = clock.Add(time.Second)
	}

	stats, err := tr.Tick(ctx)
	if err != nil {
		t.Fatalf("tick 10: %v", err)
	}
	if stats == nil {
		t.Fatalf("expected stats on the 10th sample")
	}
	if stats.Samples != 10 {
		t.Fatalf("expected 10 samples, got %d", stats.Samples)
	}
	if stats.Mean != 1 || stats.StdDev != 0 {
		t.Fatalf("unit samples must give mean 1 stddev 0, got %+v", stats)
	}
}

func TestTickEvictsSamplesOlderThanWindow(t *testing.T) {
	tr, clock := newTestTracker(Config{Window: 5 * time.Minute})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		if _, err := tr.Tick(ctx); err != nil {
			t.Fatalf("tick: %v", err)
		}
		*clock = clock.Add(time.Second)
	}
	if tr.Size() != 20 {
		t.Fatalf("expected 20 live samples, got %d", tr.Size())
	}

	// Six minutes later only the new sample survives.
	*clock = clock.Add(6 * time.Minute)
	if _, err := tr.Tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if tr.Size() != 1 {
		t.Fatalf("expected eviction down to 1 sample, got %d", tr.Size())
	}
}

func TestTickCapsWindowLength(t *testing.T) {
	tr, _ := newTestTracker(Config{MaxSamples: 50})
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		if _, err := tr.Tick(ctx); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}
	if tr.Size() != 50 {
		t.Fatalf("expected window capped at 50 samples, got %d", tr.Size())
	}
}

func TestTickPublishesStatsToStore(t *testing.T) {
	st := store.NewMemoryStore()
	tr := NewTracker(st, Config{MinSamples: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := tr.Tick(ctx); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}

	mean, found, err := st.Get(ctx, MeanKey)
	if err != nil || !found {
		t.Fatalf("mean not published: found=%v err=%v", found, err)
	}
	if mean != "1" {
		t.Fatalf("expected published mean 1, got %q", mean)
	}
	std, found, _ := st.Get(ctx, StdDevKey)
	if !found || std != "0" {
		t.Fatalf("expected published stddev 0, got %q found=%v", std, found)
	}
}

func TestStatsIdempotentForSameWindow(t *testing.T) {
	tr, _ := newTestTracker(Config{})
	ctx := context.Background()

	var first, second float64
	for i := 0; i < 12; i++ {
		stats, err := tr.Tick(ctx)
		if err != nil {
			t.Fatalf("tick: %v", err)
		}
		if i == 10 {
			first = stats.Mean
		}
		if i == 11 {
			second = stats.Mean
		}
	}
	if first != second {
		t.Fatalf("identical window contents must give identical stats: %v vs %v", first, second)
	}
}
