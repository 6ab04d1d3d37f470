package sourcestate

import (
	"context"
	"strconv"
	"testing"
	"time"

	"floodwatch/internal/store"
	"floodwatch/pkg/models"
)

func newTestManager(t *testing.T) (*Manager, *store.MemoryStore, *time.Time) {
	t.Helper()
	st := store.NewMemoryStore()
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return clock })
	m := NewManager(st, Config{})
	m.SetClock(func() time.Time { return clock })
	return m, st, &clock
}

func TestObserveIncrementsExactlyOncePerRecord(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		obs, err := m.Observe(ctx, &models.TrafficRecord{SourceIP: "10.0.0.1", DestPort: 80})
		if err != nil {
			t.Fatalf("observe: %v", err)
		}
		if obs.Count != int64(i) {
			t.Fatalf("expected count %d, got %d", i, obs.Count)
		}
	}
}

func TestObserveSkipsEmptyAndNanSources(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	for _, ip := range []string{"", "nan"} {
		obs, err := m.Observe(ctx, &models.TrafficRecord{SourceIP: ip})
		if err != nil {
			t.Fatalf("observe(%q): %v", ip, err)
		}
		if obs != nil {
			t.Fatalf("expected no observation for source %q, got %+v", ip, obs)
		}
	}
	if m.TrackedSources() != 0 {
		t.Fatalf("skipped records must not populate the recency map")
	}
}

func TestObserveCountsDistinctPortsOnce(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	ports := []int{80, 80, 443, 8080, 443}
	var last *models.SourceObservation
	for _, p := range ports {
		obs, err := m.Observe(ctx, &models.TrafficRecord{SourceIP: "10.0.0.2", DestPort: p})
		if err != nil {
			t.Fatalf("observe: %v", err)
		}
		last = obs
	}
	if last.DistinctPorts != 3 {
		t.Fatalf("expected 3 distinct ports, got %d", last.DistinctPorts)
	}
}

func TestObserveCountResetsAfterTTL(t *testing.T) {
	m, _, clock := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := m.Observe(ctx, &models.TrafficRecord{SourceIP: "10.0.0.3", DestPort: 22}); err != nil {
			t.Fatalf("observe: %v", err)
		}
	}

	*clock = clock.Add(61 * time.Second)
	obs, err := m.Observe(ctx, &models.TrafficRecord{SourceIP: "10.0.0.3", DestPort: 22})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if obs.Count != 1 {
		t.Fatalf("expected count reset after inactivity, got %d", obs.Count)
	}
	if obs.DistinctPorts != 1 {
		t.Fatalf("expected port set reset after inactivity, got %d", obs.DistinctPorts)
	}
	if obs.NewSource {
		t.Fatalf("source observed an hour ago is not new")
	}
}

func TestObserveNewSourceOnlyOnFirstSight(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	obs, _ := m.Observe(ctx, &models.TrafficRecord{SourceIP: "10.0.0.4", DestPort: 53})
	if !obs.NewSource {
		t.Fatalf("first observation must classify the source as new")
	}
	obs, _ = m.Observe(ctx, &models.TrafficRecord{SourceIP: "10.0.0.4", DestPort: 53})
	if obs.NewSource {
		t.Fatalf("second observation must not classify the source as new")
	}
}

func TestObserveFirstSeenIsNotOverwritten(t *testing.T) {
	m, st, clock := newTestManager(t)
	ctx := context.Background()

	start := *clock
	if _, err := m.Observe(ctx, &models.TrafficRecord{SourceIP: "10.0.0.5", DestPort: 80}); err != nil {
		t.Fatalf("observe: %v", err)
	}
	*clock = clock.Add(10 * time.Minute)
	if _, err := m.Observe(ctx, &models.TrafficRecord{SourceIP: "10.0.0.5", DestPort: 80}); err != nil {
		t.Fatalf("observe: %v", err)
	}

	val, found, err := st.Get(ctx, "ip:10.0.0.5:first_seen")
	if err != nil || !found {
		t.Fatalf("first_seen missing: found=%v err=%v", found, err)
	}
	if want := strconv.FormatInt(start.Unix(), 10); val != want {
		t.Fatalf("expected first_seen %s, got %q", want, val)
	}
}

func TestRecencyMapEvictsStaleSources(t *testing.T) {
	rm := newRecencyMap(time.Hour)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 100; i++ {
		rm.Touch("10.0.0."+strconv.Itoa(i), base.Add(time.Duration(i)*time.Second))
	}
	if rm.Len() == 0 {
		t.Fatalf("expected live entries")
	}

	// Two hours later every entry is stale; a touch past the sweep interval
	// drains them.
	later := base.Add(2 * time.Hour)
	rm.Touch("fresh", later)
	if rm.Len() != 1 {
		t.Fatalf("expected stale entries swept, have %d", rm.Len())
	}
	if rm.Seen("fresh", later) != true {
		t.Fatalf("fresh entry must survive the sweep")
	}
}
