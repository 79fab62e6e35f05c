//go:build rp2040

package main

import (
	"errors"
	"machine"

	"goesc/core"
)

// Power-stage pin map: each phase takes one PWM slice, even GPIO = high-side
// gate input (channel A), odd GPIO = low-side gate input (channel B). The
// gate driver inserts dead time in hardware.
const (
	phaseAHighPin = machine.GPIO0 // slice 0
	phaseALowPin  = machine.GPIO1
	phaseBHighPin = machine.GPIO2 // slice 1
	phaseBLowPin  = machine.GPIO3
	phaseCHighPin = machine.GPIO4 // slice 2
	phaseCLowPin  = machine.GPIO5
)

// pwmPeriodNS sets the chop frequency to 24kHz, matching the fast-loop rate.
const pwmPeriodNS = 41666

var errBadPhase = errors.New("inverter: phase out of range")

// pwmSlice abstracts TinyGo's unexported *pwmGroup type.
type pwmSlice interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

type phaseOutputs struct {
	slice  pwmSlice
	chHigh uint8
	chLow  uint8
	state  core.PhaseOutputState
	duty   float64
}

// escInverter drives the three half-bridges through hardware PWM. It
// implements core.InverterDriver; state/duty writes happen from commutation
// interrupts, so every path is a handful of register writes.
type escInverter struct {
	phases [core.InverterPhaseCount]phaseOutputs
}

func newEscInverter() (*escInverter, error) {
	inv := &escInverter{}

	pins := [core.InverterPhaseCount][2]machine.Pin{
		{phaseAHighPin, phaseALowPin},
		{phaseBHighPin, phaseBLowPin},
		{phaseCHighPin, phaseCLowPin},
	}
	slices := [core.InverterPhaseCount]pwmSlice{machine.PWM0, machine.PWM1, machine.PWM2}

	for ph := core.InverterPhase(0); ph < core.InverterPhaseCount; ph++ {
		p := &inv.phases[ph]
		p.slice = slices[ph]
		if err := p.slice.Configure(machine.PWMConfig{Period: pwmPeriodNS}); err != nil {
			return nil, err
		}

		var err error
		if p.chHigh, err = p.slice.Channel(pins[ph][0]); err != nil {
			return nil, err
		}
		if p.chLow, err = p.slice.Channel(pins[ph][1]); err != nil {
			return nil, err
		}

		p.state = core.OutputHiZ
		p.slice.Set(p.chHigh, 0)
		p.slice.Set(p.chLow, 0)
	}
	return inv, nil
}

func (inv *escInverter) SetOutputState(phase core.InverterPhase, state core.PhaseOutputState) error {
	if phase >= core.InverterPhaseCount {
		return errBadPhase
	}
	p := &inv.phases[phase]
	p.state = state
	inv.apply(p)
	return nil
}

func (inv *escInverter) SetAllDuties(duties *core.PhaseDuties) error {
	for ph := core.InverterPhase(0); ph < core.InverterPhaseCount; ph++ {
		p := &inv.phases[ph]
		p.duty = clampDuty(duties[ph])
		inv.apply(p)
	}
	return nil
}

// apply writes both compare registers for one phase from its state and duty.
func (inv *escInverter) apply(p *phaseOutputs) {
	top := p.slice.Top()
	level := uint32(p.duty * float64(top))

	switch p.state {
	case core.OutputHiZ:
		p.slice.Set(p.chHigh, 0)
		p.slice.Set(p.chLow, 0)
	case core.OutputPWM:
		// Complementary: low side conducts the off-time.
		p.slice.Set(p.chHigh, level)
		p.slice.Set(p.chLow, top-level)
	case core.OutputPWMHigh:
		p.slice.Set(p.chHigh, level)
		p.slice.Set(p.chLow, 0)
	case core.OutputPWMLow:
		p.slice.Set(p.chHigh, 0)
		p.slice.Set(p.chLow, level)
	case core.OutputForceHigh:
		p.slice.Set(p.chHigh, top)
		p.slice.Set(p.chLow, 0)
	case core.OutputForceLow:
		p.slice.Set(p.chHigh, 0)
		p.slice.Set(p.chLow, top)
	}
}

// Disable floats every phase. Called from fault paths, possibly inside an
// interrupt; plain compare writes, nothing that can fail.
func (inv *escInverter) Disable() {
	for ph := range inv.phases {
		p := &inv.phases[ph]
		p.state = core.OutputHiZ
		p.duty = 0
		p.slice.Set(p.chHigh, 0)
		p.slice.Set(p.chLow, 0)
	}
}

func clampDuty(d float64) float64 {
	if d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}
