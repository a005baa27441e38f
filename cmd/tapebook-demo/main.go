// Command tapebook-demo drives a single Book the way the teacher's root
// main.go drove an exchange: build it, feed it a handful of updates, and
// print the resulting BBO. It is a usage example, not a benchmark.
package main

import (
	"flag"
	"fmt"

	"tapebook"
	"tapebook/diag"
)

func main() {
	tapeSize := flag.Int("tape-size", 256, "tape width in price levels (power of two, multiple of 64)")
	spillCap := flag.Int("spill-cap", 512, "max spill capacity per side (power of two)")
	anchor := flag.Int("anchor", 1000, "initial anchor price")
	flag.Parse()

	counters := &diag.Counters{}
	book := tapebook.NewBook[int32, uint32](*tapeSize, *spillCap, nil, counters)
	book.Reset(int32(*anchor))

	fmt.Println("tapebook demo: two-sided book")
	fmt.Printf("tape size=%d spill cap=%d anchor=%d\n\n", *tapeSize, *spillCap, *anchor)

	apply := func(side tapebook.Side, px int32, qty uint32) {
		rc := book.Set(side, px, qty)
		fmt.Printf("set(%s, %d, %d) -> %s | best_bid=%d/%d best_ask=%d/%d crossed=%v\n",
			side, px, qty, rc,
			book.BestBidPx(), book.BestBidQty(),
			book.BestAskPx(), book.BestAskQty(),
			book.Crossed())
	}

	apply(tapebook.Bid, int32(*anchor)+5, 10)
	apply(tapebook.Ask, int32(*anchor)+10, 20)
	apply(tapebook.Bid, int32(*anchor)+100, 10)
	apply(tapebook.Bid, int32(*anchor)-500, 5) // far below window: spills
	apply(tapebook.Bid, int32(*anchor)+2000, 20) // far above window: promotes

	fmt.Println()
	fmt.Println("bid depth (best-first):")
	for _, lv := range book.DepthSnapshot(tapebook.Bid, 10) {
		fmt.Printf("  %d @ %d\n", lv.Qty, lv.Px)
	}

	fmt.Printf("\ndiagnostics: %+v\n", counters.Snapshot())
}
