// Package guard provides the single-flight guard that keeps reconciliation
// passes from interleaving. The guard is process-local; running a second
// process instance needs an externally shared lock instead.
package guard

import (
	"sync"
	"time"
)

// DefaultStaleAfter is how long a held guard may go unreleased before a
// later acquire is allowed to take it over. It is sized well above the
// worst-case pass duration so a takeover only ever recovers a wedged pass.
const DefaultStaleAfter = 5 * time.Minute

// PassGuard is a binary busy flag with an acquisition timestamp.
// TryAcquire fails while the guard is held and fresh; a holder that
// outlives the staleness threshold is forcibly released and replaced.
type PassGuard struct {
	mu         sync.Mutex
	held       bool
	acquiredAt time.Time
	staleAfter time.Duration

	now func() time.Time // overridden in tests
}

// New creates a PassGuard with the given staleness threshold.
// A zero or negative threshold falls back to DefaultStaleAfter.
func New(staleAfter time.Duration) *PassGuard {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &PassGuard{
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// TryAcquire attempts to take the guard without blocking. It returns
// false while another holder is active and fresh. A stale holder is
// force-released first, so the caller acquires in its place.
func (g *PassGuard) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if g.held {
		if now.Sub(g.acquiredAt) <= g.staleAfter {
			return false
		}
		// The previous pass never released; assume it is wedged.
		g.held = false
	}

	g.held = true
	g.acquiredAt = now
	return true
}

// Release clears the guard. Releasing an unheld guard is a no-op, which
// makes it safe to defer unconditionally.
func (g *PassGuard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.held = false
}

// Held reports whether the guard is currently held.
// Point-in-time only; the answer may change immediately after.
func (g *PassGuard) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}
