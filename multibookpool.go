package tapebook

import (
	"tapebook/diag"

	"github.com/emirpasic/gods/v2/lists/arraylist"
	rbt "github.com/emirpasic/gods/v2/trees/redblacktree"
)

// BookTier selects one of the three book shapes a MultiBookPool3 manages.
type BookTier uint8

const (
	TierHigh   BookTier = iota // widest tape, most-liquid symbols
	TierMedium
	TierLow // narrowest tape, long-tail symbols
)

// Handle is a stable cookie into one of a MultiBookPool3's tiers. It
// stays valid for the pool's lifetime — books are only ever appended,
// never removed, so an index never shifts out from under a handle.
type Handle struct {
	Tier  BookTier
	Index int
}

// MultiBookPool3 holds up to three differently-sized book tiers, all
// sharing one SpillPool arena. Per spec.md §4.6 this is the handle-based
// factory an embedder uses instead of owning each Book individually; per
// SPEC_FULL.md §7 it also keeps an optional symbol → Handle index, built
// on the same ordered-tree container the teacher used for its own
// price-bucket index.
type MultiBookPool3[P Signed, Q Unsigned] struct {
	widthHigh, widthMedium, widthLow int

	pool *SpillPool[P, Q]
	diag *diag.Counters

	high   *arraylist.List[*Book[P, Q]]
	medium *arraylist.List[*Book[P, Q]]
	low    *arraylist.List[*Book[P, Q]]

	symbols *rbt.Tree[string, Handle]
}

// NewMultiBookPool3 constructs a pool with the given tier widths and a
// shared spill arena of poolCapLevels. counters may be nil.
func NewMultiBookPool3[P Signed, Q Unsigned](widthHigh, widthMedium, widthLow, poolCapLevels int, counters *diag.Counters) *MultiBookPool3[P, Q] {
	return &MultiBookPool3[P, Q]{
		widthHigh:   widthHigh,
		widthMedium: widthMedium,
		widthLow:    widthLow,
		pool:        NewSpillPool[P, Q](poolCapLevels, counters),
		diag:        counters,
		high:        arraylist.New[*Book[P, Q]](),
		medium:      arraylist.New[*Book[P, Q]](),
		low:         arraylist.New[*Book[P, Q]](),
	}
}

func (mp *MultiBookPool3[P, Q]) tierWidth(tier BookTier) int {
	switch tier {
	case TierHigh:
		return mp.widthHigh
	case TierMedium:
		return mp.widthMedium
	case TierLow:
		return mp.widthLow
	default:
		panic("tapebook: invalid book tier")
	}
}

func (mp *MultiBookPool3[P, Q]) listFor(tier BookTier) *arraylist.List[*Book[P, Q]] {
	switch tier {
	case TierHigh:
		return mp.high
	case TierMedium:
		return mp.medium
	case TierLow:
		return mp.low
	default:
		panic("tapebook: invalid book tier")
	}
}

// Alloc appends a new book in the given tier, resets it to anchor, and
// returns its handle.
func (mp *MultiBookPool3[P, Q]) Alloc(tier BookTier, anchor P, maxSpillCap int) Handle {
	list := mp.listFor(tier)
	idx := list.Size()
	bk := NewBook[P, Q](mp.tierWidth(tier), maxSpillCap, mp.pool, mp.diag)
	bk.Reset(anchor)
	list.Add(bk)
	return Handle{Tier: tier, Index: idx}
}

// AllocNamed is Alloc plus registration under symbol in the pool's
// symbol index, for embedders that want to go from a ticker straight to
// a handle instead of juggling raw Handles themselves.
func (mp *MultiBookPool3[P, Q]) AllocNamed(symbol string, tier BookTier, anchor P, maxSpillCap int) Handle {
	h := mp.Alloc(tier, anchor, maxSpillCap)
	if mp.symbols == nil {
		mp.symbols = rbt.NewWith[string, Handle](func(a, b string) int {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			default:
				return 0
			}
		})
	}
	mp.symbols.Put(symbol, h)
	return h
}

// Lookup finds the handle registered under symbol by AllocNamed.
func (mp *MultiBookPool3[P, Q]) Lookup(symbol string) (Handle, bool) {
	if mp.symbols == nil {
		var zero Handle
		return zero, false
	}
	return mp.symbols.Get(symbol)
}

// WithHandle dispatches to the book named by h and invokes fn with it.
// Panics on an invalid tier or an out-of-range index; a handle taken
// from a different pool is not detected.
func (mp *MultiBookPool3[P, Q]) WithHandle(h Handle, fn func(*Book[P, Q])) {
	bk := mp.bookAt(h)
	fn(bk)
}

func (mp *MultiBookPool3[P, Q]) bookAt(h Handle) *Book[P, Q] {
	list := mp.listFor(h.Tier)
	bk, ok := list.Get(h.Index)
	if !ok {
		panic("tapebook: invalid book handle")
	}
	return bk
}

// Close releases every book's spill blocks before the shared pool goes
// out of scope. Go has no destructors, so — unlike the reference
// implementation's C++ teardown ordering — an embedder must call this
// explicitly once it is done with the pool.
func (mp *MultiBookPool3[P, Q]) Close() {
	for _, list := range [...]*arraylist.List[*Book[P, Q]]{mp.high, mp.medium, mp.low} {
		n := list.Size()
		for i := 0; i < n; i++ {
			if bk, ok := list.Get(i); ok {
				bk.Release()
			}
		}
	}
}
