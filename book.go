package tapebook

import "tapebook/diag"

// Book owns one bid tape, one ask tape, and a shared two-sided spill
// buffer. It is the public entry point for the set/recenter/drain
// protocol described in spec.md §4.5. Books are created with NewBook
// and should not be copied — copy a *Book's identity (a pointer),
// never its value, the same move-only discipline the reference
// implementation enforces at the type level.
type Book[P Signed, Q Unsigned] struct {
	n int32 // cached N (tape width), used by compute_anchor's offset arithmetic

	bids  *Tape[P, Q]
	asks  *Tape[P, Q]
	spill *SpillBuffer[P, Q]

	counters *diag.Counters
}

// NewBook constructs a book with tape width n (power of two, multiple
// of 64 per side) and a spill buffer capped at maxSpillCap levels,
// optionally sharing pool's arena. counters may be nil.
func NewBook[P Signed, Q Unsigned](n int, maxSpillCap int, pool *SpillPool[P, Q], counters *diag.Counters) *Book[P, Q] {
	return &Book[P, Q]{
		n:        int32(n),
		bids:     NewTape[P, Q](n, true),
		asks:     NewTape[P, Q](n, false),
		spill:    NewSpillBuffer[P, Q](maxSpillCap, pool, counters),
		counters: counters,
	}
}

// computeAnchor returns px − offset, clamped into the side's valid
// anchor range (so windows never fall off representable price space).
func computeAnchor[P Signed, Q Unsigned](t *Tape[P, Q], px P, offset int64) P {
	minAnchor := t.MinValidAnchor()
	maxAnchor := t.MaxValidAnchor()
	minPx := minPrice[P]()
	if int64(px) < int64(minPx)+offset {
		return minAnchor
	}
	result := int64(px) - offset
	if result < int64(minAnchor) {
		return minAnchor
	}
	if P(result) > maxAnchor {
		return maxAnchor
	}
	return P(result)
}

// Reset sets both tapes' anchors and clears the spill buffer.
func (bk *Book[P, Q]) Reset(anchor P) {
	bk.bids.Reset(anchor)
	bk.asks.Reset(anchor)
	bk.spill.Clear()
}

// ResetAtMid resets one side's tape, discarding its levels, and anchors
// it so mid sits near the middle of its window, leaving the other side
// and the spill buffer untouched.
func (bk *Book[P, Q]) ResetAtMid(side Side, mid P) {
	t := bk.tapeFor(side)
	anchor := computeAnchor(t, mid, int64(bk.n)/2)
	t.Reset(anchor)
}

func (bk *Book[P, Q]) tapeFor(side Side) *Tape[P, Q] {
	if side == Bid {
		return bk.bids
	}
	return bk.asks
}

// Set applies a (side, price, qty) update, re-centering and draining the
// spill as needed so that the retry after a Promote always lands
// in-tape. This is the hot path; amortized O(1), worst case O(N) only
// on promotion.
func (bk *Book[P, Q]) Set(side Side, px P, q Q) UpdateResult {
	if side == Bid {
		return bk.setOn(bk.bids, px, q)
	}
	return bk.setOn(bk.asks, px, q)
}

// SetBid and SetAsk are side-fixed convenience wrappers around Set.
func (bk *Book[P, Q]) SetBid(px P, q Q) UpdateResult { return bk.setOn(bk.bids, px, q) }
func (bk *Book[P, Q]) SetAsk(px P, q Q) UpdateResult { return bk.setOn(bk.asks, px, q) }

func (bk *Book[P, Q]) setOn(t *Tape[P, Q], px P, q Q) UpdateResult {
	rc := t.SetQty(px, q, bk.spill)
	if rc != Promote {
		return rc
	}
	bk.counters.Promotion()

	n64 := int64(bk.n)
	a := computeAnchor(t, px, n64/2)
	minA := computeAnchor(t, px, n64-1)
	if a < minA {
		a = minA
	}
	if a > px {
		a = px
	}

	t.RecenterToAnchor(a, bk.spill)

	lo := t.Anchor()
	hi := P(int64(lo) + n64 - 1)

	var null NullSink[P, Q]
	bid := t == bk.bids
	bk.spill.Drain(bid, lo, hi, func(p P, qq Q) {
		t.SetQty(p, qq, null)
	})

	return t.SetQty(px, q, null)
}

// EraseBetter drops all levels strictly better than or equal to
// threshold on the given side (tape and spill both).
func (bk *Book[P, Q]) EraseBetter(side Side, px P) {
	bk.tapeFor(side).EraseBetter(px, bk.spill)
}

// RecenterBid re-centers the bid tape to newAnchor, then drains spill
// entries that now fall within the new window back into the tape.
func (bk *Book[P, Q]) RecenterBid(newAnchor P) { bk.recenterSide(bk.bids, newAnchor) }

// RecenterAsk re-centers the ask tape to newAnchor, then drains spill
// entries that now fall within the new window back into the tape.
func (bk *Book[P, Q]) RecenterAsk(newAnchor P) { bk.recenterSide(bk.asks, newAnchor) }

func (bk *Book[P, Q]) recenterSide(t *Tape[P, Q], newAnchor P) {
	t.RecenterToAnchor(newAnchor, bk.spill)
	lo := t.Anchor()
	hi := P(int64(lo) + int64(bk.n) - 1)
	var null NullSink[P, Q]
	bid := t == bk.bids
	bk.spill.Drain(bid, lo, hi, func(p P, q Q) {
		t.SetQty(p, q, null)
	})
}

// BestBidPx is the max of the bid tape's best and the spill's best bid.
func (bk *Book[P, Q]) BestBidPx() P {
	tb := bk.bids.BestPx()
	sb := bk.spill.BestPx(true)
	if tb > sb {
		return tb
	}
	return sb
}

// BestAskPx is the min of the ask tape's best and the spill's best ask.
func (bk *Book[P, Q]) BestAskPx() P {
	tb := bk.asks.BestPx()
	sb := bk.spill.BestPx(false)
	if tb < sb {
		return tb
	}
	return sb
}

// BestBidQty returns the quantity at BestBidPx. When tape and spill
// report equal best prices the tape is authoritative: under the
// set→promote→drain protocol an in-window price never also lives in
// the spill, so this tie-break never actually observes a conflict.
func (bk *Book[P, Q]) BestBidQty() Q {
	tb := bk.bids.BestPx()
	sb := bk.spill.BestPx(true)
	if tb >= sb {
		return bk.bids.BestQty()
	}
	return bk.spill.BestQty(true)
}

// BestAskQty returns the quantity at BestAskPx, with the same tape-wins
// tie-break as BestBidQty.
func (bk *Book[P, Q]) BestAskQty() Q {
	ta := bk.asks.BestPx()
	sa := bk.spill.BestPx(false)
	if ta <= sa {
		return bk.asks.BestQty()
	}
	return bk.spill.BestQty(false)
}

// CrossedOnTape reports whether both tape-local bests exist and the bid
// tape's best is at or above the ask tape's best.
func (bk *Book[P, Q]) CrossedOnTape() bool {
	b := bk.bids.BestPx()
	a := bk.asks.BestPx()
	return b != NoBid[P]() && a != NoAsk[P]() && b >= a
}

// Crossed reports the same condition over the book's global (tape ∪
// spill) bests. CrossedOnTape implies Crossed.
func (bk *Book[P, Q]) Crossed() bool {
	b := bk.BestBidPx()
	a := bk.BestAskPx()
	return b != NoBid[P]() && a != NoAsk[P]() && b >= a
}

// VerifyInvariants checks both tapes' bitmap/best-index invariants.
// Intended for debug/fuzz use, not the hot path.
func (bk *Book[P, Q]) VerifyInvariants() bool {
	return bk.bids.VerifyInvariants() && bk.asks.VerifyInvariants()
}

// Release returns the spill buffer's blocks to the pool (or heap). Call
// before discarding a Book that was constructed with a shared pool, and
// always before the pool itself is torn down.
func (bk *Book[P, Q]) Release() {
	bk.spill.Release()
}

// DepthSnapshot merges the tape's best-first walk with the spill's
// best-first walk into one fully ordered slice (best to worst), capped
// at limit. spec.md §4.1 notes that a tape's own iterate_from_best is
// not guaranteed sorted once spill entries fall between in-tape gaps;
// this is the two-pointer merge callers needing a sorted depth ladder
// are told to perform themselves.
func (bk *Book[P, Q]) DepthSnapshot(side Side, limit int) []Level[P, Q] {
	if limit <= 0 {
		return nil
	}
	t := bk.tapeFor(side)
	bid := side == Bid

	var tapeLevels []Level[P, Q]
	t.IterateFromBest(func(px P, qty Q) bool {
		tapeLevels = append(tapeLevels, Level[P, Q]{Px: px, Qty: qty})
		return len(tapeLevels) < limit
	}, NullSink[P, Q]{})

	var spillLevels []Level[P, Q]
	bk.spill.IteratePending(bid, func(px P, qty Q) bool {
		spillLevels = append(spillLevels, Level[P, Q]{Px: px, Qty: qty})
		return len(spillLevels) < limit
	})

	out := make([]Level[P, Q], 0, limit)
	i, j := 0, 0
	better := func(x, y P) bool {
		if bid {
			return x > y
		}
		return x < y
	}
	for len(out) < limit && (i < len(tapeLevels) || j < len(spillLevels)) {
		switch {
		case i >= len(tapeLevels):
			out = append(out, spillLevels[j])
			j++
		case j >= len(spillLevels):
			out = append(out, tapeLevels[i])
			i++
		case better(tapeLevels[i].Px, spillLevels[j].Px):
			out = append(out, tapeLevels[i])
			i++
		default:
			out = append(out, spillLevels[j])
			j++
		}
	}
	return out
}
