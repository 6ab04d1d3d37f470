package sourcestate

import (
	"sync"
	"time"
)

// recencyMap tracks when each source was last observed in this process. It
// only serves new-source classification, so entries are evicted once stale
// rather than kept forever.
type recencyMap struct {
	mu        sync.Mutex
	lastSeen  map[string]time.Time
	ttl       time.Duration
	lastSweep time.Time
}

func newRecencyMap(ttl time.Duration) *recencyMap {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &recencyMap{
		lastSeen: make(map[string]time.Time),
		ttl:      ttl,
	}
}

// Seen reports whether ip has a live entry at time now.
func (m *recencyMap) Seen(ip string, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts, ok := m.lastSeen[ip]
	if !ok {
		return false
	}
	if now.Sub(ts) > m.ttl {
		delete(m.lastSeen, ip)
		return false
	}
	return true
}

// Touch records an observation of ip and opportunistically sweeps stale
// entries so the map stays bounded by the active source population.
func (m *recencyMap) Touch(ip string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastSeen[ip] = now
	if m.lastSweep.IsZero() {
		m.lastSweep = now
		return
	}
	if now.Sub(m.lastSweep) < m.ttl/4 {
		return
	}
	for key, ts := range m.lastSeen {
		if now.Sub(ts) > m.ttl {
			delete(m.lastSeen, key)
		}
	}
	m.lastSweep = now
}

// Len returns the number of tracked sources, live or stale.
func (m *recencyMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lastSeen)
}
