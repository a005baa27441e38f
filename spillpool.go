package tapebook

import (
	"math/bits"

	"tapebook/diag"
)

const (
	spillPoolNumClasses = 12 // classes 0..11
	spillPoolMinBlock   = 16 // smallest block, in levels
)

// SpillPool is an arena allocator for spill-buffer blocks: one flat
// backing slice of Level plus twelve power-of-two size-class free
// lists. Allocation is O(1): pop the class free list, or bump a
// watermark. Deallocation pushes the block onto its class's free list
// by stashing the next-offset link in the block's own first cell — the
// intrusive node the reference implementation aliases onto raw bytes.
// Blocks are identified by arena offset rather than by pointer/slice so
// that no unsafe pointer arithmetic is needed to find a freed block's
// size class again. Single-threaded, no synchronization (spec.md §5).
type SpillPool[P Signed, Q Unsigned] struct {
	arena     []Level[P, Q]
	watermark int
	freeHeads [spillPoolNumClasses]int // -1 = empty
	diag      *diag.Counters

	allocFailCount int
}

// NewSpillPool allocates an arena of totalLevels Level cells. totalLevels
// must be at least the smallest size class (16).
func NewSpillPool[P Signed, Q Unsigned](totalLevels int, counters *diag.Counters) *SpillPool[P, Q] {
	if totalLevels < spillPoolMinBlock {
		panic("tapebook: spill pool capacity must be at least 16 levels")
	}
	p := &SpillPool[P, Q]{
		arena: make([]Level[P, Q], totalLevels),
		diag:  counters,
	}
	for i := range p.freeHeads {
		p.freeHeads[i] = -1
	}
	return p
}

// spillPoolSizeClass maps a requested capacity to a class index in
// [0, NUM_CLASSES).
func spillPoolSizeClass(cap int) int {
	if cap <= spillPoolMinBlock {
		return 0
	}
	// ceil(log2(cap)) - log2(MIN_BLOCK)
	b := bits.Len(uint(cap - 1))
	cls := b - 4 // MIN_BLOCK = 16 = 2^4
	if cls < 0 {
		cls = 0
	}
	if cls >= spillPoolNumClasses {
		cls = spillPoolNumClasses - 1
	}
	return cls
}

// spillPoolClassSize returns the actual block size, in levels, for class cls.
func spillPoolClassSize(cls int) int {
	return spillPoolMinBlock << cls
}

// Allocate returns the arena offset of a block of at least cap levels
// (at most 32768: larger requests get a block of the largest class),
// and ok=false if the pool is exhausted for that size class. O(1).
func (p *SpillPool[P, Q]) Allocate(cap int) (off int, ok bool) {
	cls := spillPoolSizeClass(cap)
	actual := spillPoolClassSize(cls)

	if p.freeHeads[cls] != -1 {
		off = p.freeHeads[cls]
		p.freeHeads[cls] = int(p.arena[off].Px)
		return off, true
	}

	if p.watermark+actual <= len(p.arena) {
		off = p.watermark
		p.watermark += actual
		return off, true
	}

	p.allocFailCount++
	p.diag.AllocFailure()
	return -1, false
}

// Deallocate returns the block at off (allocated under capacity cap) to
// the pool's free list. off < 0 is a no-op (mirrors a nil pointer).
func (p *SpillPool[P, Q]) Deallocate(off, cap int) {
	if off < 0 {
		return
	}
	cls := spillPoolSizeClass(cap)
	p.arena[off].Px = P(p.freeHeads[cls])
	p.freeHeads[cls] = off
}

// Reallocate grows a block: allocates newCap, copies the first used
// levels from the old block, deallocates the old block. If oldOff < 0
// this is a plain allocation (no copy, no free).
func (p *SpillPool[P, Q]) Reallocate(oldOff, oldCap, newCap, used int) (newOff int, ok bool) {
	newOff, ok = p.Allocate(newCap)
	if !ok {
		return -1, false
	}
	if oldOff >= 0 {
		copy(p.arena[newOff:newOff+used], p.arena[oldOff:oldOff+used])
		p.Deallocate(oldOff, oldCap)
	}
	return newOff, true
}

// Slice returns the live view of a block previously returned by
// Allocate/Reallocate. off < 0 yields nil.
func (p *SpillPool[P, Q]) Slice(off, n int) []Level[P, Q] {
	if off < 0 {
		return nil
	}
	return p.arena[off : off+n]
}

// AllocFailCount is the diagnostic counter of exhausted allocations.
func (p *SpillPool[P, Q]) AllocFailCount() int { return p.allocFailCount }

// UsedLevels returns the watermark: levels ever bump-allocated (does not
// account for freed-but-not-reused blocks, matching the reference pool's
// own used_levels()).
func (p *SpillPool[P, Q]) UsedLevels() int { return p.watermark }

// TotalLevels returns the arena's total capacity.
func (p *SpillPool[P, Q]) TotalLevels() int { return len(p.arena) }
