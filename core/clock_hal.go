package core

// Clock is the monotonic time source for the control core. Both counters wrap
// at 32 bits; all interval math in the core uses unsigned subtraction so a
// wrap between two reads still yields the correct delta.
type Clock interface {
	// NowMicros returns the microsecond counter.
	NowMicros() uint32
	// NowMillis returns the millisecond tick.
	NowMillis() uint32
}
