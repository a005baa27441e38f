package tapebook

import "tapebook/diag"

// sideDynamic is one side (bid or ask) of a spill buffer: a sorted-
// ascending slice of Level, growable up to maxCap, optionally backed by
// a shared SpillPool arena instead of the heap.
type sideDynamic[P Signed, Q Unsigned] struct {
	bid    bool
	a      []Level[P, Q]
	n      int
	cap    int
	maxCap int

	poolOff int // arena offset when pool-backed, -1 otherwise
}

func newSideDynamic[P Signed, Q Unsigned](bid bool, maxCap int) sideDynamic[P, Q] {
	return sideDynamic[P, Q]{bid: bid, maxCap: maxCap, poolOff: -1}
}

// lowerBound returns the index of the first entry with Px >= px.
func (s *sideDynamic[P, Q]) lowerBound(px P) int {
	lo, hi := 0, s.n
	for lo < hi {
		mid := (lo + hi) >> 1
		if s.a[mid].Px < px {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func (s *sideDynamic[P, Q]) ensureCap(pool *SpillPool[P, Q]) {
	newCap := s.cap * 2
	if newCap == 0 {
		newCap = 16
	}
	if newCap > s.maxCap {
		newCap = s.maxCap
	}
	if newCap <= s.cap {
		return
	}

	if pool != nil {
		newOff, ok := pool.Reallocate(s.poolOff, s.cap, newCap, s.n)
		if !ok {
			return
		}
		s.poolOff = newOff
		s.a = pool.Slice(newOff, newCap)
	} else {
		newA := make([]Level[P, Q], newCap)
		copy(newA, s.a[:s.n])
		s.a = newA
	}
	s.cap = newCap
}

// addPoint applies the push contract from spec.md §4.4: update in place
// if present, insert if absent and non-zero, growing or evicting as
// needed.
func (s *sideDynamic[P, Q]) addPoint(px P, q Q, pool *SpillPool[P, Q], counters *diag.Counters) {
	if s.n == s.cap && s.cap < s.maxCap {
		s.ensureCap(pool)
	}

	i := s.lowerBound(px)
	if i < s.n && s.a[i].Px == px {
		if q == 0 {
			if i+1 < s.n {
				copy(s.a[i:s.n-1], s.a[i+1:s.n])
			}
			s.n--
		} else {
			s.a[i].Qty = q
		}
		return
	}

	if q == 0 {
		return
	}

	if s.n == s.cap {
		if s.n == 0 {
			// No storage could be allocated: drop the update.
			return
		}
		if s.bid {
			if px <= s.a[0].Px {
				counters.Eviction()
				return
			}
			if s.n > 1 {
				copy(s.a[0:s.n-1], s.a[1:s.n])
			}
			s.n--
		} else {
			if px >= s.a[s.n-1].Px {
				counters.Eviction()
				return
			}
			s.n--
		}
		counters.Eviction()
	}

	j := s.lowerBound(px)
	if j < s.n {
		copy(s.a[j+1:s.n+1], s.a[j:s.n])
	}
	s.a[j] = Level[P, Q]{Px: px, Qty: q}
	s.n++
}

// drainRange removes the contiguous [lo, hi] price range, calling visit
// on every non-zero entry in it, then compacts the remainder.
func (s *sideDynamic[P, Q]) drainRange(lo, hi P, visit func(px P, qty Q)) {
	if s.n == 0 {
		return
	}
	l := s.lowerBound(lo)
	r := l
	for r < s.n && s.a[r].Px <= hi {
		if s.a[r].Qty != 0 {
			visit(s.a[r].Px, s.a[r].Qty)
		}
		r++
	}
	if l < r {
		keepR := s.n - r
		if keepR > 0 {
			copy(s.a[l:l+keepR], s.a[r:s.n])
		}
		s.n = l + keepR
	}
}

// eraseBetter compacts out entries strictly better than or equal to
// threshold (bid: Px >= threshold; ask: Px <= threshold).
func (s *sideDynamic[P, Q]) eraseBetter(threshold P) {
	if s.n == 0 {
		return
	}
	w := 0
	if s.bid {
		for i := 0; i < s.n; i++ {
			if s.a[i].Px < threshold {
				if w != i {
					s.a[w] = s.a[i]
				}
				w++
			}
		}
	} else {
		for i := 0; i < s.n; i++ {
			if s.a[i].Px > threshold {
				if w != i {
					s.a[w] = s.a[i]
				}
				w++
			}
		}
	}
	s.n = w
}

// iterate walks best-first, stopping at the first entry worse than worstPx.
func (s *sideDynamic[P, Q]) iterate(visit func(px P, qty Q) bool, worstPx P) {
	if s.bid {
		for i := s.n - 1; i >= 0; i-- {
			lv := s.a[i]
			if lv.Px < worstPx {
				return
			}
			if !visit(lv.Px, lv.Qty) {
				return
			}
		}
	} else {
		for i := 0; i < s.n; i++ {
			lv := s.a[i]
			if lv.Px > worstPx {
				return
			}
			if !visit(lv.Px, lv.Qty) {
				return
			}
		}
	}
}

func (s *sideDynamic[P, Q]) bestPx() P {
	if s.n == 0 {
		if s.bid {
			return NoBid[P]()
		}
		return NoAsk[P]()
	}
	if s.bid {
		return s.a[s.n-1].Px
	}
	return s.a[0].Px
}

func (s *sideDynamic[P, Q]) bestQty() Q {
	if s.n == 0 {
		return 0
	}
	if s.bid {
		return s.a[s.n-1].Qty
	}
	return s.a[0].Qty
}

func (s *sideDynamic[P, Q]) clear() { s.n = 0 }

func (s *sideDynamic[P, Q]) release(pool *SpillPool[P, Q]) {
	if pool != nil {
		pool.Deallocate(s.poolOff, s.cap)
		s.poolOff = -1
	}
	s.a = nil
	s.n = 0
	s.cap = 0
}

// SpillBuffer is the two-sided sorted spill store that satisfies the
// Sink interface Tape uses for out-of-window levels. When pool is
// non-nil, growth routes through the shared arena; otherwise it uses the
// plain Go heap via make/copy, the same branch the reference
// implementation takes with malloc/free.
type SpillBuffer[P Signed, Q Unsigned] struct {
	bid    sideDynamic[P, Q]
	ask    sideDynamic[P, Q]
	pool   *SpillPool[P, Q]
	counters *diag.Counters
}

// NewSpillBuffer constructs a two-sided spill buffer. maxCap must be a
// power of two, at least 1. pool may be nil (heap-backed); counters may
// be nil (no diagnostics).
func NewSpillBuffer[P Signed, Q Unsigned](maxCap int, pool *SpillPool[P, Q], counters *diag.Counters) *SpillBuffer[P, Q] {
	if maxCap < 1 || !isPow2(maxCap) {
		panic("tapebook: spill buffer max_cap must be a power of two >= 1")
	}
	return &SpillBuffer[P, Q]{
		bid:      newSideDynamic[P, Q](true, maxCap),
		ask:      newSideDynamic[P, Q](false, maxCap),
		pool:     pool,
		counters: counters,
	}
}

// Push implements Sink.
func (b *SpillBuffer[P, Q]) Push(bid bool, px P, q Q) {
	b.counters.Spill()
	if bid {
		b.bid.addPoint(px, q, b.pool, b.counters)
	} else {
		b.ask.addPoint(px, q, b.pool, b.counters)
	}
}

// Drain removes and visits every non-zero entry with price in [lo, hi]
// on the given side.
func (b *SpillBuffer[P, Q]) Drain(bid bool, lo, hi P, visit func(px P, qty Q)) {
	if bid {
		b.bid.drainRange(lo, hi, visit)
	} else {
		b.ask.drainRange(lo, hi, visit)
	}
}

// EraseBetter implements Sink.
func (b *SpillBuffer[P, Q]) EraseBetter(bid bool, threshold P) {
	if bid {
		b.bid.eraseBetter(threshold)
	} else {
		b.ask.eraseBetter(threshold)
	}
}

// IteratePending implements Sink.
func (b *SpillBuffer[P, Q]) IteratePending(bid bool, visit func(px P, qty Q) bool) {
	worst := NoBid[P]()
	if !bid {
		worst = NoAsk[P]()
	}
	if bid {
		b.bid.iterate(visit, worst)
	} else {
		b.ask.iterate(visit, worst)
	}
}

// BestPx returns the best spilled price on the given side, or the
// side's sentinel if empty.
func (b *SpillBuffer[P, Q]) BestPx(bid bool) P {
	if bid {
		return b.bid.bestPx()
	}
	return b.ask.bestPx()
}

// BestQty returns the quantity at BestPx(bid).
func (b *SpillBuffer[P, Q]) BestQty(bid bool) Q {
	if bid {
		return b.bid.bestQty()
	}
	return b.ask.bestQty()
}

// Clear empties both sides without releasing their backing storage.
func (b *SpillBuffer[P, Q]) Clear() {
	b.bid.clear()
	b.ask.clear()
}

// Release returns both sides' blocks to the pool (or heap) and resets
// them to an empty, safe state.
func (b *SpillBuffer[P, Q]) Release() {
	b.bid.release(b.pool)
	b.ask.release(b.pool)
}
