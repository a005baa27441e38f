package tapebook

// Sink is what a Tape pushes displaced or out-of-window levels into. A
// SpillBuffer satisfies it; so does NullSink, used for the drain-after-
// recenter step, where every write is guaranteed to land back in-window
// and must not itself spill.
type Sink[P Signed, Q Unsigned] interface {
	// Push forwards an out-of-window (or displaced-by-recenter) level.
	// A zero qty cancels a previously spilled level.
	Push(bid bool, px P, qty Q)
	// EraseBetter drops entries strictly better than or equal to
	// threshold on the given side.
	EraseBetter(bid bool, threshold P)
	// IteratePending continues a best-first walk into the sink's own
	// levels once the tape side has been exhausted. visit returning
	// false stops the walk.
	IteratePending(bid bool, visit func(px P, qty Q) bool)
}

// NullSink implements Sink with no-ops. Used when draining spill back
// into a freshly re-centered tape: those writes are in-window by
// construction and can never themselves produce a Spill or Promote.
type NullSink[P Signed, Q Unsigned] struct{}

func (NullSink[P, Q]) Push(bool, P, Q)                            {}
func (NullSink[P, Q]) EraseBetter(bool, P)                         {}
func (NullSink[P, Q]) IteratePending(bool, func(P, Q) bool)        {}
