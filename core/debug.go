package core

// DebugWriter is a function type for writing debug messages.
type DebugWriter func(string)

// ControlEvent captures a timing-critical control event for post-mortem
// analysis. Recording is a fixed-size copy into a ring buffer, cheap enough
// for interrupt context; formatting happens only when the ring is dumped.
type ControlEvent struct {
	EventType uint8
	Step      uint8
	TimeUS    uint32 // microsecond timestamp at event
	Value1    uint32 // context-dependent value
	Value2    uint32 // context-dependent value
}

// Event type codes
const (
	EvtZeroCross  = 1 // accepted BEMF zero-crossing
	EvtCommutate  = 2 // closed-loop commutation fired
	EvtHandover   = 3 // open-loop to closed-loop transition fired
	EvtRampDone   = 4 // open-loop ramp ran to completion
	EvtModeChange = 5 // motor mode changed
	EvtFault      = 6 // fault-triggered shutdown
	EvtReverse    = 7 // direction reversal executed
)

const (
	ControlRingSize = 32 // last 32 events kept for post-mortem
)

var (
	// debugPrintln is the global debug print function (set by platform code)
	debugPrintln DebugWriter = func(s string) {}

	// debugEnabled gates message output; event capture stays on regardless
	debugEnabled bool = false

	controlRing     [ControlRingSize]ControlEvent
	controlRingHead uint8
)

// SetDebugWriter sets the platform-specific debug output function, e.g. a
// UART or USB CDC writer.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug message output.
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// DebugPrintln writes a debug message using the platform-specific writer.
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordEvent captures a control event in the ring buffer. Non-blocking,
// safe from interrupt context.
func RecordEvent(eventType, step uint8, timeUS, value1, value2 uint32) {
	idx := controlRingHead
	controlRing[idx] = ControlEvent{
		EventType: eventType,
		Step:      step,
		TimeUS:    timeUS,
		Value1:    value1,
		Value2:    value2,
	}
	controlRingHead = (idx + 1) % ControlRingSize
}

// DumpEventRing outputs the control event ring, oldest first. Call outside
// time-critical paths (console command, post-fault).
func DumpEventRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENTS] === Control Event Dump ===")
	start := controlRingHead
	for i := uint8(0); i < ControlRingSize; i++ {
		idx := (start + i) % ControlRingSize
		evt := &controlRing[idx]
		if evt.EventType == 0 {
			continue
		}

		var name string
		switch evt.EventType {
		case EvtZeroCross:
			name = "ZERO_CROSS"
		case EvtCommutate:
			name = "COMMUTATE"
		case EvtHandover:
			name = "HANDOVER"
		case EvtRampDone:
			name = "RAMP_DONE"
		case EvtModeChange:
			name = "MODE_CHANGE"
		case EvtFault:
			name = "FAULT"
		case EvtReverse:
			name = "REVERSE"
		default:
			name = "UNKNOWN"
		}

		debugPrintln("[EVENTS] " + name +
			" step=" + itoa(int(evt.Step)) +
			" t=" + itoa(int(evt.TimeUS)) +
			" v1=" + itoa(int(evt.Value1)) +
			" v2=" + itoa(int(evt.Value2)))
	}
	debugPrintln("[EVENTS] === End Dump ===")
}

// CopyEventRing copies recorded events into out, oldest first, skipping
// unused slots, and returns the count copied. Lets the debug link ship the
// ring without formatting it on the target.
func CopyEventRing(out []ControlEvent) int {
	n := 0
	start := controlRingHead
	for i := uint8(0); i < ControlRingSize && n < len(out); i++ {
		idx := (start + i) % ControlRingSize
		if controlRing[idx].EventType == 0 {
			continue
		}
		out[n] = controlRing[idx]
		n++
	}
	return n
}

// ClearEventRing clears the event buffer.
func ClearEventRing() {
	for i := range controlRing {
		controlRing[i] = ControlEvent{}
	}
	controlRingHead = 0
}

// itoa converts an int to decimal without pulling in fmt; kept allocation-
// free of formatting machinery for the TinyGo build.
func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [12]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
