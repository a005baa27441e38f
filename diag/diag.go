// Package diag holds the plain counters that the tapebook core updates
// inline on its already-identified diagnostic edges (promotion, spill
// eviction, pool exhaustion). It never logs: the core this package
// instruments is single-threaded and allocation-free on its hot path,
// and a *diag.Counters is optional everywhere it is accepted — a nil
// pointer is always valid and costs one branch-predictable nil check.
package diag

// Counters accumulates diagnostic events for one book or pool. The zero
// value is ready to use.
type Counters struct {
	// Promotions counts set_qty calls whose outcome was Promote, i.e. the
	// tape had to be re-centered to accommodate the incoming price.
	Promotions uint64
	// Spills counts levels routed to the spill buffer instead of the tape.
	Spills uint64
	// Evictions counts spill pushes that dropped the worst retained level
	// (or the incoming level itself) because the spill was at max_cap.
	Evictions uint64
	// AllocFailures counts SpillPool.Allocate calls that returned nil
	// because the arena was exhausted for the requested size class.
	AllocFailures uint64
}

func (c *Counters) addPromotion() {
	if c != nil {
		c.Promotions++
	}
}

func (c *Counters) addSpill() {
	if c != nil {
		c.Spills++
	}
}

func (c *Counters) addEviction() {
	if c != nil {
		c.Evictions++
	}
}

func (c *Counters) addAllocFailure() {
	if c != nil {
		c.AllocFailures++
	}
}

// Promotion records a Promote outcome. Exported so callers outside this
// package's instrumented core (e.g. tests building their own harness)
// can drive the same counters.
func (c *Counters) Promotion() { c.addPromotion() }

// Spill records a level routed to the spill store.
func (c *Counters) Spill() { c.addSpill() }

// Eviction records a spill-buffer eviction or drop under max_cap pressure.
func (c *Counters) Eviction() { c.addEviction() }

// AllocFailure records a SpillPool exhaustion event.
func (c *Counters) AllocFailure() { c.addAllocFailure() }

// Snapshot returns a copy of the current counter values.
func (c *Counters) Snapshot() Counters {
	if c == nil {
		return Counters{}
	}
	return *c
}
