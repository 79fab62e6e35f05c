// Package sim provides deterministic test doubles for the control core's
// hardware interfaces plus a time-stepped bench that runs the full firmware
// composition against a simple rotor model. Everything here is
// single-threaded; time moves only when a test advances it.
package sim

// Clock is a manually advanced microsecond clock. The 64-bit internal
// counter never wraps in a test run; the core sees the truncated 32-bit
// views its interval math is written for.
type Clock struct {
	us uint64
}

// NowMicros implements core.Clock.
func (c *Clock) NowMicros() uint32 { return uint32(c.us) }

// NowMillis implements core.Clock.
func (c *Clock) NowMillis() uint32 { return uint32(c.us / 1000) }

// NowUS returns the full-resolution simulation time.
func (c *Clock) NowUS() uint64 { return c.us }

// AdvanceTo moves time forward; moving backwards is a no-op.
func (c *Clock) AdvanceTo(us uint64) {
	if us > c.us {
		c.us = us
	}
}
