// propagation/tracker.go
package propagation

import (
	"sync"
	"time"
)

// Tracker records, per tenant, the highest event version an engine instance
// has confirmed receiving and when. The decision path uses it to prove the
// local snapshot is fresh enough to serve from; a version gap or silence past
// the SLA both force a synchronous resynchronization.
type Tracker struct {
	mu         sync.RWMutex
	lastSeen   map[string]int64
	observedAt map[string]time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		lastSeen:   make(map[string]int64),
		observedAt: make(map[string]time.Time),
	}
}

// Observe records an event. It returns false when the event's version is not
// contiguous with the previous one, meaning at least one event was lost.
func (t *Tracker) Observe(event Event) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, ok := t.lastSeen[event.Tenant]
	contiguous := !ok || event.Version <= last+1
	if event.Version > last {
		t.lastSeen[event.Tenant] = event.Version
	}
	t.observedAt[event.Tenant] = time.Now()
	return contiguous
}

// Resync overwrites the tracked version after a synchronous re-read of the
// authoritative store.
func (t *Tracker) Resync(tenant string, version int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSeen[tenant] = version
	t.observedAt[tenant] = time.Now()
}

// LastSeen returns the highest confirmed version for the tenant.
func (t *Tracker) LastSeen(tenant string) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastSeen[tenant]
}

// Fresh reports whether the tracked state can be trusted for serving ALLOW
// decisions: the snapshot version must cover everything this instance has
// seen, and the channel must not have gone silent while the store moved on.
func (t *Tracker) Fresh(tenant string, snapshotVersion int64, storeVersion int64, sla time.Duration) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if snapshotVersion < t.lastSeen[tenant] {
		return false
	}
	if snapshotVersion >= storeVersion {
		return true
	}
	// The store is ahead of the snapshot; trust the snapshot only while the
	// propagation channel is demonstrably live.
	observed, ok := t.observedAt[tenant]
	return ok && time.Since(observed) <= sla
}
