package sourcestate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"floodwatch/internal/store"
	"floodwatch/pkg/models"
)

// Config controls per-source state TTLs.
type Config struct {
	// CountTTL is re-armed on every increment, approximating "requests in the
	// last active minute". A policy choice inherited from the reference
	// thresholds, not a true sliding window.
	CountTTL time.Duration

	// PortsTTL is re-armed whenever the source touches a destination port.
	PortsTTL time.Duration

	// FirstSeenTTL bounds how long a source's first-seen timestamp is kept.
	FirstSeenTTL time.Duration

	// RecencyTTL bounds the in-process new-source map.
	RecencyTTL time.Duration
}

func (c *Config) applyDefaults() {
	if c.CountTTL <= 0 {
		c.CountTTL = time.Minute
	}
	if c.PortsTTL <= 0 {
		c.PortsTTL = time.Minute
	}
	if c.FirstSeenTTL <= 0 {
		c.FirstSeenTTL = time.Hour
	}
	if c.RecencyTTL <= 0 {
		c.RecencyTTL = time.Hour
	}
}

// Manager updates and reads per-source counters, port sets and first-seen
// timestamps in the state store. New-source classification is process-local:
// a restarted engine sees every source as new once.
type Manager struct {
	store   store.Store
	cfg     Config
	recency *recencyMap
	now     func() time.Time
}

// NewManager creates a per-source state manager over the given store.
func NewManager(st store.Store, cfg Config) *Manager {
	cfg.applyDefaults()
	return &Manager{
		store:   st,
		cfg:     cfg,
		recency: newRecencyMap(cfg.RecencyTTL),
		now:     time.Now,
	}
}

// SetClock overrides the manager clock, for tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// Observe ingests one record's source activity and returns the derived
// observation. Records without a usable source address are skipped and
// return nil.
func (m *Manager) Observe(ctx context.Context, rec *models.TrafficRecord) (*models.SourceObservation, error) {
	if !rec.HasSource() {
		return nil, nil
	}
	ip := rec.SourceIP
	now := m.now()

	count, err := m.store.IncrExpire(ctx, countKey(ip), m.cfg.CountTTL)
	if err != nil {
		return nil, fmt.Errorf("update request count for %s: %w", ip, err)
	}

	ports, err := m.store.AddSetExpire(ctx, portsKey(ip), strconv.Itoa(rec.DestPort), m.cfg.PortsTTL)
	if err != nil {
		return nil, fmt.Errorf("update port set for %s: %w", ip, err)
	}

	firstSeen := strconv.FormatInt(now.Unix(), 10)
	if _, err := m.store.SetNXExpire(ctx, firstSeenKey(ip), firstSeen, m.cfg.FirstSeenTTL); err != nil {
		return nil, fmt.Errorf("record first-seen for %s: %w", ip, err)
	}

	isNew := !m.recency.Seen(ip, now)
	m.recency.Touch(ip, now)

	return &models.SourceObservation{
		IP:            ip,
		Count:         count,
		DistinctPorts: ports,
		NewSource:     isNew,
	}, nil
}

// TrackedSources returns the size of the in-process recency map.
func (m *Manager) TrackedSources() int {
	return m.recency.Len()
}

func countKey(ip string) string {
	return "ip:" + ip + ":count"
}

func portsKey(ip string) string {
	return "ip:" + ip + ":ports"
}

func firstSeenKey(ip string) string {
	return "ip:" + ip + ":first_seen"
}
