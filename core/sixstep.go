package core

// Six-step (trapezoidal) commutation tables. At every step two phases carry
// current (one sourcing, one sinking) and the third floats for BEMF sensing.

type stepPattern [InverterPhaseCount]PhaseOutputState

var sixStepCW = [6]stepPattern{
	{OutputPWMHigh, OutputPWMLow, OutputHiZ},
	{OutputPWMHigh, OutputHiZ, OutputPWMLow},
	{OutputHiZ, OutputPWMHigh, OutputPWMLow},
	{OutputPWMLow, OutputPWMHigh, OutputHiZ},
	{OutputPWMLow, OutputHiZ, OutputPWMHigh},
	{OutputHiZ, OutputPWMLow, OutputPWMHigh},
}

var sixStepCCW = [6]stepPattern{
	{OutputHiZ, OutputPWMLow, OutputPWMHigh},
	{OutputPWMLow, OutputHiZ, OutputPWMHigh},
	{OutputPWMLow, OutputPWMHigh, OutputHiZ},
	{OutputHiZ, OutputPWMHigh, OutputPWMLow},
	{OutputPWMHigh, OutputHiZ, OutputPWMLow},
	{OutputPWMHigh, OutputPWMLow, OutputHiZ},
}

// Floating-phase lookup per step. Must match the OutputHiZ entries of the
// tables above.
var floatingCW = [6]Phase{PhaseC, PhaseB, PhaseA, PhaseC, PhaseB, PhaseA}
var floatingCCW = [6]Phase{PhaseA, PhaseB, PhaseC, PhaseA, PhaseB, PhaseC}

// FloatingPhase returns the undriven phase for a step and direction.
func FloatingPhase(step uint8, cw bool) Phase {
	if cw {
		return floatingCW[step%6]
	}
	return floatingCCW[step%6]
}

// Commutator applies six-step patterns and the alignment vector to an
// inverter. It owns no timing; callers decide when to commutate.
type Commutator struct {
	inv   InverterDriver
	hook  func()
	count uint32
}

// NewCommutator binds a commutator to a power stage.
func NewCommutator(inv InverterDriver) *Commutator {
	return &Commutator{inv: inv}
}

// SetCommutateHook registers a callback fired after every applied step, e.g.
// a hardware tach pulse. Runs in commutation context; keep it short.
func (c *Commutator) SetCommutateHook(fn func()) {
	c.hook = fn
}

// Commutate applies the pattern for one step. Duties are written before the
// output states so a phase never chops at a stale compare value.
func (c *Commutator) Commutate(step uint8, duty float64, cw bool) {
	if step >= 6 {
		return
	}
	pattern := &sixStepCW[step]
	if !cw {
		pattern = &sixStepCCW[step]
	}

	var duties PhaseDuties
	for ph := InverterPhase(0); ph < InverterPhaseCount; ph++ {
		if pattern[ph] != OutputHiZ {
			duties[ph] = duty
		}
	}
	c.inv.SetAllDuties(&duties)

	for ph := InverterPhase(0); ph < InverterPhaseCount; ph++ {
		c.inv.SetOutputState(ph, pattern[ph])
	}

	c.count++
	if c.hook != nil {
		c.hook()
	}
}

// Count returns the number of steps applied since power-up.
func (c *Commutator) Count() uint32 {
	return c.count
}

// Align drives a fixed vector to pull the rotor to a known position before an
// open-loop start: phase A sources at the given duty, phase B sinks (0% on
// complementary PWM keeps its low side on), phase C floats.
func (c *Commutator) Align(duty float64) {
	if duty < 0 {
		duty = 0
	}
	if duty > 1 {
		duty = 1
	}

	duties := PhaseDuties{duty, 0, 0}

	c.inv.SetOutputState(InverterPhaseA, OutputPWM)
	c.inv.SetOutputState(InverterPhaseB, OutputPWM)
	c.inv.SetOutputState(InverterPhaseC, OutputHiZ)
	c.inv.SetAllDuties(&duties)
}

// Disable floats all phases.
func (c *Commutator) Disable() {
	c.inv.Disable()
}
