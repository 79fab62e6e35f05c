package core

// OneShotCallback runs in interrupt context when a one-shot expires. It must
// stay in the microsecond range: no allocation, no blocking.
type OneShotCallback func()

// OneShotTimer schedules a single callback after a microsecond delay.
//
// The timer has exactly one slot: Start while a callback is pending replaces
// it, and the replaced callback never fires. This replace-on-start rule is
// what lets the commutation engine guarantee at most one pending commutation
// event without extra locking; Cancel is the single synchronization point for
// every stop path.
type OneShotTimer interface {
	// Start arms the timer. Returns false if cb is nil or the delay cannot
	// be scheduled.
	Start(delayUS uint32, cb OneShotCallback) bool

	// Cancel disarms any pending one-shot. After Cancel returns, the
	// previously scheduled callback will not fire.
	Cancel()

	// IsActive reports whether a one-shot is currently armed.
	IsActive() bool
}
