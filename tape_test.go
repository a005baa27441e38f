package tapebook

import "testing"

func newTestBidTape(t *testing.T, n int, anchor int32) *Tape[int32, uint32] {
	t.Helper()
	tp := NewTape[int32, uint32](n, true)
	tp.Reset(anchor)
	return tp
}

func newTestAskTape(t *testing.T, n int, anchor int32) *Tape[int32, uint32] {
	t.Helper()
	tp := NewTape[int32, uint32](n, false)
	tp.Reset(anchor)
	return tp
}

func TestNewTapeRejectsBadSize(t *testing.T) {
	cases := []int{0, 1, 63, 100, 65}
	for _, n := range cases {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("NewTape(%d) did not panic", n)
				}
			}()
			NewTape[int32, uint32](n, true)
		}()
	}
}

func TestSetQtyInsertUpdateErase(t *testing.T) {
	tp := newTestBidTape(t, 256, 1000)
	var sink NullSink[int32, uint32]

	if rc := tp.SetQty(1005, 10, sink); rc != Insert {
		t.Fatalf("first write got %s, want Insert", rc)
	}
	if rc := tp.SetQty(1005, 20, sink); rc != Update {
		t.Fatalf("overwrite got %s, want Update", rc)
	}
	if rc := tp.SetQty(1005, 0, sink); rc != Erase {
		t.Fatalf("zero-out got %s, want Erase", rc)
	}
	// Open Question resolution: zero write on an already-empty cell is Erase.
	if rc := tp.SetQty(1005, 0, sink); rc != Erase {
		t.Fatalf("no-op cancel got %s, want Erase", rc)
	}
}

func TestSetQtyBestTrackingBid(t *testing.T) {
	tp := newTestBidTape(t, 256, 1000)
	var sink NullSink[int32, uint32]

	tp.SetQty(1005, 10, sink)
	tp.SetQty(1010, 20, sink)
	if got := tp.BestPx(); got != 1010 {
		t.Fatalf("best px = %d, want 1010", got)
	}
	tp.SetQty(1010, 0, sink)
	if got := tp.BestPx(); got != 1005 {
		t.Fatalf("best px after erase = %d, want 1005", got)
	}
	tp.SetQty(1005, 0, sink)
	if !tp.IsEmpty() {
		t.Fatal("tape should be empty")
	}
	if got := tp.BestPx(); got != NoBid[int32]() {
		t.Fatalf("empty best px = %d, want NoBid", got)
	}
}

func TestSetQtyBestTrackingAsk(t *testing.T) {
	tp := newTestAskTape(t, 256, 1000)
	var sink NullSink[int32, uint32]

	tp.SetQty(1010, 20, sink)
	tp.SetQty(1005, 10, sink)
	if got := tp.BestPx(); got != 1005 {
		t.Fatalf("best px = %d, want 1005", got)
	}
	tp.SetQty(1005, 0, sink)
	if got := tp.BestPx(); got != 1010 {
		t.Fatalf("best px after erase = %d, want 1010", got)
	}
}

func TestSetQtyOutOfWindowSpillAndPromote(t *testing.T) {
	tp := newTestBidTape(t, 256, 1000) // window [1000, 1255]

	var spilled []Level[int32, uint32]
	sink := recordingSink{push: func(bid bool, px int32, qty uint32) {
		spilled = append(spilled, Level[int32, uint32]{Px: px, Qty: qty})
	}}

	tp.SetQty(1100, 10, sink) // in-window, becomes best
	if rc := tp.SetQty(500, 5, sink); rc != Spill {
		t.Fatalf("below-window, not strictly better got %s, want Spill", rc)
	}
	if len(spilled) != 1 || spilled[0].Px != 500 {
		t.Fatalf("spilled = %+v, want [{500 5}]", spilled)
	}

	if rc := tp.SetQty(2000, 20, sink); rc != Promote {
		t.Fatalf("strictly-better out-of-window got %s, want Promote", rc)
	}
}

func TestSetQtyPromoteWhenEmpty(t *testing.T) {
	tp := newTestBidTape(t, 256, 1000)
	var sink NullSink[int32, uint32]
	if rc := tp.SetQty(5000, 1, sink); rc != Promote {
		t.Fatalf("out-of-window write to empty tape got %s, want Promote", rc)
	}
}

func TestSetQtyOutOfWindowCancelAlwaysSpills(t *testing.T) {
	tp := newTestBidTape(t, 256, 1000)
	var got []Level[int32, uint32]
	sink := recordingSink{push: func(bid bool, px int32, qty uint32) {
		got = append(got, Level[int32, uint32]{Px: px, Qty: qty})
	}}
	if rc := tp.SetQty(1, 0, sink); rc != Spill {
		t.Fatalf("out-of-window cancel got %s, want Spill", rc)
	}
	if len(got) != 1 || got[0].Qty != 0 {
		t.Fatalf("forwarded cancel = %+v", got)
	}
}

func TestRecenterSlideSpillsFallOffCells(t *testing.T) {
	tp := newTestBidTape(t, 256, 1000)
	var sink NullSink[int32, uint32]
	tp.SetQty(1000, 1, sink)
	tp.SetQty(1050, 5, sink)
	tp.SetQty(1200, 9, sink)

	var fell []Level[int32, uint32]
	rs := recordingSink{push: func(bid bool, px int32, qty uint32) {
		fell = append(fell, Level[int32, uint32]{Px: px, Qty: qty})
	}}
	tp.RecenterToAnchor(1100, rs) // slides by 100 < N

	if len(fell) != 2 { // 1000 and 1050 fall off the front
		t.Fatalf("fell off = %+v, want 2 entries", fell)
	}
	if got := tp.BestPx(); got != 1200 {
		t.Fatalf("best after recenter = %d, want 1200", got)
	}
	if !tp.VerifyInvariants() {
		t.Fatal("invariants broken after slide recenter")
	}
}

func TestRecenterFullSpillBeyondN(t *testing.T) {
	tp := newTestBidTape(t, 256, 1000)
	var sink NullSink[int32, uint32]
	tp.SetQty(1000, 1, sink)
	tp.SetQty(1200, 9, sink)

	var fell []Level[int32, uint32]
	rs := recordingSink{push: func(bid bool, px int32, qty uint32) {
		fell = append(fell, Level[int32, uint32]{Px: px, Qty: qty})
	}}
	tp.RecenterToAnchor(5000, rs) // |d| >= N: every level spills

	if len(fell) != 2 {
		t.Fatalf("fell off = %+v, want 2 entries", fell)
	}
	if !tp.IsEmpty() {
		t.Fatal("tape should be empty after full-spill recenter")
	}
	if !tp.VerifyInvariants() {
		t.Fatal("invariants broken after full-spill recenter")
	}
}

func TestRecenterExactlyN(t *testing.T) {
	tp := newTestBidTape(t, 256, 1000)
	var sink NullSink[int32, uint32]
	tp.SetQty(1100, 7, sink)

	var fell []Level[int32, uint32]
	rs := recordingSink{push: func(bid bool, px int32, qty uint32) {
		fell = append(fell, Level[int32, uint32]{Px: px, Qty: qty})
	}}
	tp.RecenterToAnchor(1256, rs) // d == N exactly: full-spill branch
	if len(fell) != 1 || fell[0].Px != 1100 {
		t.Fatalf("fell off = %+v, want [{1100 7}]", fell)
	}
	if !tp.VerifyInvariants() {
		t.Fatal("invariants broken after exact-N recenter")
	}
}

func TestEraseBetterBid(t *testing.T) {
	tp := newTestBidTape(t, 256, 1000)
	var sink NullSink[int32, uint32]
	tp.SetQty(1000, 1, sink)
	tp.SetQty(1005, 2, sink)
	tp.SetQty(1010, 3, sink)

	var erasedBelow []int32
	rs := eraseBetterSink{erase: func(bid bool, threshold int32) { erasedBelow = append(erasedBelow, threshold) }}
	tp.EraseBetter(1005, rs)

	if got := tp.BestPx(); got != 1000 {
		t.Fatalf("best after erase_better = %d, want 1000", got)
	}
	if len(erasedBelow) != 1 || erasedBelow[0] != 1005 {
		t.Fatalf("sink.EraseBetter not forwarded correctly: %v", erasedBelow)
	}
}

func TestIterateFromBestOrder(t *testing.T) {
	tp := newTestBidTape(t, 256, 1000)
	var sink NullSink[int32, uint32]
	tp.SetQty(1000, 1, sink)
	tp.SetQty(1005, 2, sink)
	tp.SetQty(1010, 3, sink)

	var order []int32
	tp.IterateFromBest(func(px int32, qty uint32) bool {
		order = append(order, px)
		return true
	}, NullSink[int32, uint32]{})

	want := []int32{1010, 1005, 1000}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestVerifyInvariantsAcrossRandomOps(t *testing.T) {
	tp := newTestBidTape(t, 256, 1_000_000)
	var sink NullSink[int32, uint32]
	prices := []int32{1_000_000, 1_000_010, 1_000_020, 1_000_100, 1_000_200, 1_000_255}
	for i, px := range prices {
		tp.SetQty(px, uint32(i+1), sink)
		if !tp.VerifyInvariants() {
			t.Fatalf("invariants broken after insert %d", i)
		}
	}
	for _, px := range prices {
		tp.SetQty(px, 0, sink)
		if !tp.VerifyInvariants() {
			t.Fatalf("invariants broken after erase of %d", px)
		}
	}
}

// recordingSink implements Sink, forwarding only Push to a closure;
// EraseBetter/IteratePending are no-ops (unused by the tape-level tests
// that need it).
type recordingSink struct {
	push func(bid bool, px int32, qty uint32)
}

func (s recordingSink) Push(bid bool, px int32, qty uint32)            { s.push(bid, px, qty) }
func (recordingSink) EraseBetter(bool, int32)                          {}
func (recordingSink) IteratePending(bool, func(int32, uint32) bool)    {}

type eraseBetterSink struct {
	erase func(bid bool, threshold int32)
}

func (eraseBetterSink) Push(bool, int32, uint32) {}
func (s eraseBetterSink) EraseBetter(bid bool, threshold int32) { s.erase(bid, threshold) }
func (eraseBetterSink) IteratePending(bool, func(int32, uint32) bool) {}
