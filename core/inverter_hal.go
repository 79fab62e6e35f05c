package core

// PhaseOutputState selects how one half-bridge drives its motor terminal.
type PhaseOutputState uint8

const (
	// OutputHiZ floats the terminal (both switches off).
	OutputHiZ PhaseOutputState = iota
	// OutputPWM runs complementary PWM at the programmed duty.
	OutputPWM
	// OutputPWMHigh chops the high-side switch only.
	OutputPWMHigh
	// OutputPWMLow chops the low-side switch only.
	OutputPWMLow
	// OutputForceHigh latches the high-side switch on.
	OutputForceHigh
	// OutputForceLow latches the low-side switch on.
	OutputForceLow
)

// PhaseDuties carries one normalized duty (0.0-1.0) per power-stage channel,
// applied in a single call so the three compare registers update coherently.
type PhaseDuties [InverterPhaseCount]float64

// InverterDriver is the abstract power-stage interface the control core uses.
// Target-specific code provides the hardware implementation; sim provides a
// recording double.
type InverterDriver interface {
	// SetOutputState reconfigures one half-bridge. Called from interrupt
	// context during commutation; must not block.
	SetOutputState(phase InverterPhase, state PhaseOutputState) error

	// SetAllDuties applies duty cycles for all three phases atomically.
	SetAllDuties(duties *PhaseDuties) error

	// Disable forces every phase to Hi-Z immediately. Safety path: must be
	// callable from any context and must never fail.
	Disable()
}
