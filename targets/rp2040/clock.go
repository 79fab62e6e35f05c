//go:build rp2040

package main

import (
	"device/rp"
)

// hwClock reads the RP2040's 64-bit 1MHz timer. NowMicros returns the low
// word; the core's interval math tolerates the 32-bit wrap.
type hwClock struct{}

func (hwClock) NowMicros() uint32 {
	return rp.TIMER.TIMERAWL.Get()
}

func (hwClock) NowMillis() uint32 {
	return uint32(uptimeMicros() / 1000)
}

// uptimeMicros reads the full 64-bit counter. High word first, then low,
// then high again to detect a rollover during the read.
func uptimeMicros() uint64 {
	for {
		high1 := rp.TIMER.TIMERAWH.Get()
		low := rp.TIMER.TIMERAWL.Get()
		high2 := rp.TIMER.TIMERAWH.Get()
		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}
