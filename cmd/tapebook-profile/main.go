// Command tapebook-profile runs a single-threaded update loop against a
// Book under pprof, the same "drive it, capture cpu.prof, tell the
// operator how to read it" shape as the teacher's cmd/profile/main.go —
// minus the multi-goroutine producer/consumer rig, which has no place in
// a single-threaded core (spec.md §5).
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime/pprof"
	"time"

	"tapebook"
)

func main() {
	ops := flag.Int("ops", 2_000_000, "number of set() calls to run")
	tapeSize := flag.Int("tape-size", 1024, "tape width in price levels")
	spillCap := flag.Int("spill-cap", 4096, "max spill capacity per side")
	seed := flag.Int64("seed", 1, "PRNG seed")
	out := flag.String("cpuprofile", "cpu.prof", "CPU profile output path")
	flag.Parse()

	f, err := os.Create(*out)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	if err := pprof.StartCPUProfile(f); err != nil {
		panic(err)
	}
	defer pprof.StopCPUProfile()

	fmt.Printf("tapebook profile: %d ops, tape size=%d, spill cap=%d\n", *ops, *tapeSize, *spillCap)

	book := tapebook.NewBook[int32, uint32](*tapeSize, *spillCap, nil, nil)
	book.Reset(1_000_000)

	rng := rand.New(rand.NewSource(*seed))
	start := time.Now()

	for i := 0; i < *ops; i++ {
		side := tapebook.Bid
		if rng.Intn(2) == 0 {
			side = tapebook.Ask
		}
		px := int32(1_000_000 + rng.Intn(2000) - 1000)
		qty := uint32(rng.Intn(1000) + 1)
		if rng.Intn(20) == 0 {
			qty = 0 // occasional cancel
		}
		book.Set(side, px, qty)
	}

	elapsed := time.Since(start)
	fmt.Printf("done in %v (%.0f ops/sec)\n", elapsed, float64(*ops)/elapsed.Seconds())
	fmt.Printf("profile written to %s — inspect with:\n", *out)
	fmt.Printf("  go tool pprof -http=:8080 %s\n", *out)
}
