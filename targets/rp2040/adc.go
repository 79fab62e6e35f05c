//go:build rp2040

package main

import (
	"machine"

	"goesc/core"
)

// Sense pin map: phase voltage dividers on the three ADC inputs, the low-side
// shunt amplifier on the fourth. A single shunt sees whichever phase is
// conducting, so its reading lands in all three current slots.
const (
	senseVPhaseA = machine.ADC0 // GPIO26
	senseVPhaseB = machine.ADC1 // GPIO27
	senseVPhaseC = machine.ADC2 // GPIO28
	senseIShunt  = machine.ADC3 // GPIO29
)

// adcFeed samples the sense inputs and hands complete sets to the control
// core. Sample and LatestMeasurements both run in the main control context,
// Sample immediately before the fast tick.
type adcFeed struct {
	vA, vB, vC machine.ADC
	iShunt     machine.ADC

	latest  core.MotorMeasurements
	pending bool
}

func newADCFeed() (*adcFeed, error) {
	machine.InitADC()

	f := &adcFeed{
		vA:     machine.ADC{Pin: senseVPhaseA},
		vB:     machine.ADC{Pin: senseVPhaseB},
		vC:     machine.ADC{Pin: senseVPhaseC},
		iShunt: machine.ADC{Pin: senseIShunt},
	}
	for _, adc := range []machine.ADC{f.vA, f.vB, f.vC, f.iShunt} {
		if err := adc.Configure(machine.ADCConfig{}); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// read12 converts TinyGo's left-justified 16-bit reading back to the
// hardware's 12-bit counts.
func read12(adc machine.ADC) uint16 {
	return adc.Get() >> 4
}

// Sample captures one synchronized set and raises the data-ready flag.
func (f *adcFeed) Sample() {
	shunt := read12(f.iShunt)
	f.latest = core.MotorMeasurements{
		VPhaseARaw: read12(f.vA),
		VPhaseBRaw: read12(f.vB),
		VPhaseCRaw: read12(f.vC),
		IPhaseARaw: shunt,
		IPhaseBRaw: shunt,
		IPhaseCRaw: shunt,
	}
	f.pending = true
}

func (f *adcFeed) LatestMeasurements(m *core.MotorMeasurements) bool {
	if !f.pending {
		return false
	}
	*m = f.latest
	f.pending = false
	return true
}
