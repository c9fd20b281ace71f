package mount

import (
	"sync"
	"time"
)

// Guard admits at most one update at a time and enforces a minimum interval
// between the end of one update and the start of the next. Rejected calls
// are dropped, not queued.
type Guard struct {
	mu          sync.Mutex
	isUpdating  bool
	lastUpdate  time.Time
	minInterval time.Duration
	now         func() time.Time
	dropped     int64
}

// NewGuard creates a guard with the given minimum interval.
func NewGuard(minInterval time.Duration) *Guard {
	return &Guard{minInterval: minInterval, now: time.Now}
}

// TryAcquire reports whether the caller may proceed. A true result must be
// paired with Release.
func (g *Guard) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.isUpdating {
		g.dropped++
		return false
	}
	if !g.lastUpdate.IsZero() && g.now().Sub(g.lastUpdate) < g.minInterval {
		g.dropped++
		return false
	}
	g.isUpdating = true
	return true
}

// Release ends the current update and stamps its completion time.
func (g *Guard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.isUpdating = false
	g.lastUpdate = g.now()
}

// Updating reports whether an update is in flight.
func (g *Guard) Updating() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isUpdating
}

// Dropped returns how many calls were rejected.
func (g *Guard) Dropped() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dropped
}
