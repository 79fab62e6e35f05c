//go:build rp2040

package main

// Control loop latency bench: runs the cooperative scheduler pattern from the
// firmware main loop with an empty fast-loop body and reports how late each
// 42us deadline is serviced. Run this before trusting a new board or TinyGo
// release with real commutation timing.

import (
	"time"

	"device/rp"
)

const (
	fastPeriodUS = 42
	reportEvery  = 1000000 // ticks per report, ~42s of run time
)

func nowMicros() uint32 {
	return rp.TIMER.TIMERAWL.Get()
}

func main() {
	time.Sleep(2 * time.Second)
	println("loop latency bench, period", fastPeriodUS, "us")

	var (
		ticks   uint32
		sumLate uint32
		maxLate uint32
	)

	next := nowMicros() + fastPeriodUS
	for {
		now := nowMicros()
		if int32(now-next) < 0 {
			continue
		}

		late := now - next
		sumLate += late
		if late > maxLate {
			maxLate = late
		}
		next += fastPeriodUS

		ticks++
		if ticks >= reportEvery {
			println("avg late (us x1000):", sumLate*1000/ticks, "max late (us):", maxLate)
			ticks = 0
			sumLate = 0
			maxLate = 0
		}
	}
}
