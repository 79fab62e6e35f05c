package core

// Phase is a control-level motor phase. The control layer uses it to name
// the floating (undriven) winding whose back-EMF is sampled each fast-loop
// cycle.
type Phase uint8

const (
	PhaseA Phase = iota
	PhaseB
	PhaseC
	PhaseCount
)

// String returns the phase letter for logs and telemetry.
func (p Phase) String() string {
	switch p {
	case PhaseA:
		return "A"
	case PhaseB:
		return "B"
	case PhaseC:
		return "C"
	}
	return "?"
}

// InverterPhase is a hardware-level output channel on the power stage.
//
// Phase and InverterPhase are kept as separate types on purpose: gate-driver
// wiring and control semantics can diverge (a board respin may permute the
// half-bridges without touching the control layer). All crossings between the
// two go through OutputChannel / ControlPhase.
type InverterPhase uint8

const (
	InverterPhaseA InverterPhase = iota
	InverterPhaseB
	InverterPhaseC
	InverterPhaseCount
)

// outputChannel maps control phases to power-stage channels. Identity on the
// reference board.
var outputChannel = [PhaseCount]InverterPhase{
	PhaseA: InverterPhaseA,
	PhaseB: InverterPhaseB,
	PhaseC: InverterPhaseC,
}

var controlPhase = [InverterPhaseCount]Phase{
	InverterPhaseA: PhaseA,
	InverterPhaseB: PhaseB,
	InverterPhaseC: PhaseC,
}

// OutputChannel returns the power-stage channel driving this control phase.
func (p Phase) OutputChannel() InverterPhase {
	return outputChannel[p]
}

// ControlPhase returns the control-level phase measured on this channel.
func ControlPhase(hp InverterPhase) Phase {
	return controlPhase[hp]
}
