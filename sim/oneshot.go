package sim

import "goesc/core"

// OneShot is a deterministic single-slot one-shot timer driven by the bench.
// Start while armed replaces the pending callback, matching the hardware
// contract the control core relies on.
type OneShot struct {
	clock *Clock

	armed      bool
	deadlineUS uint64
	cb         core.OneShotCallback

	StartCount  int
	CancelCount int
}

// NewOneShot binds a one-shot to the simulation clock.
func NewOneShot(clock *Clock) *OneShot {
	return &OneShot{clock: clock}
}

// Start implements core.OneShotTimer.
func (t *OneShot) Start(delayUS uint32, cb core.OneShotCallback) bool {
	if cb == nil {
		return false
	}
	t.armed = true
	t.deadlineUS = t.clock.NowUS() + uint64(delayUS)
	t.cb = cb
	t.StartCount++
	return true
}

// Cancel implements core.OneShotTimer.
func (t *OneShot) Cancel() {
	t.armed = false
	t.cb = nil
	t.CancelCount++
}

// IsActive implements core.OneShotTimer.
func (t *OneShot) IsActive() bool { return t.armed }

// DeadlineUS returns the pending expiry, or false when disarmed.
func (t *OneShot) DeadlineUS() (uint64, bool) {
	if !t.armed {
		return 0, false
	}
	return t.deadlineUS, true
}

// Fire expires the pending one-shot. The bench calls this once the clock has
// reached the deadline.
func (t *OneShot) Fire() {
	if !t.armed {
		return
	}
	cb := t.cb
	t.armed = false
	t.cb = nil
	cb()
}
