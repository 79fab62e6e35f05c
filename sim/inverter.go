package sim

import (
	"math"

	"goesc/core"
)

// Inverter records the power-stage commands the control core issues and
// exposes the resulting stator drive (MMF angle and effective duty) to the
// rotor model.
type Inverter struct {
	States   [core.InverterPhaseCount]core.PhaseOutputState
	Duties   core.PhaseDuties
	Disabled bool

	StateWrites uint64
	DutyWrites  uint64
	Disables    uint64
}

// NewInverter returns a floating power stage.
func NewInverter() *Inverter {
	inv := &Inverter{Disabled: true}
	for i := range inv.States {
		inv.States[i] = core.OutputHiZ
	}
	return inv
}

// SetOutputState implements core.InverterDriver.
func (v *Inverter) SetOutputState(ph core.InverterPhase, state core.PhaseOutputState) error {
	v.States[ph] = state
	v.Disabled = false
	v.StateWrites++
	return nil
}

// SetAllDuties implements core.InverterDriver.
func (v *Inverter) SetAllDuties(d *core.PhaseDuties) error {
	v.Duties = *d
	v.DutyWrites++
	return nil
}

// Disable implements core.InverterDriver.
func (v *Inverter) Disable() {
	for i := range v.States {
		v.States[i] = core.OutputHiZ
	}
	v.Disabled = true
	v.Disables++
}

// Phase winding axes, electrical radians.
var phaseAxis = [core.InverterPhaseCount]float64{
	0,
	2 * math.Pi / 3,
	4 * math.Pi / 3,
}

// Drive derives the stator field from the recorded output states: each
// driven phase contributes along its winding axis, sourcing positive and
// sinking negative. Returns the MMF angle, the effective duty, and whether
// any current path exists.
func (v *Inverter) Drive() (angle, duty float64, driven bool) {
	if v.Disabled {
		return 0, 0, false
	}

	var x, y float64
	maxDuty := 0.0
	sources := 0
	sinks := 0

	for ph := core.InverterPhase(0); ph < core.InverterPhaseCount; ph++ {
		var sign float64
		switch v.States[ph] {
		case core.OutputHiZ:
			continue
		case core.OutputPWMHigh, core.OutputForceHigh:
			sign = 1
		case core.OutputPWMLow, core.OutputForceLow:
			sign = -1
		case core.OutputPWM:
			// Complementary PWM: positive duty sources, zero duty
			// holds the low side on.
			if v.Duties[ph] > 0 {
				sign = 1
			} else {
				sign = -1
			}
		}

		if sign > 0 {
			sources++
			if v.Duties[ph] > maxDuty {
				maxDuty = v.Duties[ph]
			}
		} else {
			sinks++
		}
		x += sign * math.Cos(phaseAxis[ph])
		y += sign * math.Sin(phaseAxis[ph])
	}

	if sources == 0 || sinks == 0 {
		return 0, 0, false
	}
	return math.Atan2(y, x), maxDuty, true
}
