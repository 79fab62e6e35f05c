package core

import (
	"math"
	"testing"
)

func TestPIDZeroGainsSaturateAtOutMin(t *testing.T) {
	p := NewPID(0, 0, 0, 0.001)
	p.OutMin = 0.05
	p.OutMax = 0.95

	if out := p.Update(1000, 0); out != 0.05 {
		t.Errorf("output %v, want clamp at OutMin", out)
	}
}

func TestPIDProportionalStep(t *testing.T) {
	p := NewPID(0.001, 0, 0, 0.001)

	out := p.Update(500, 0)
	if math.Abs(out-0.5) > 1e-12 {
		t.Errorf("output %v, want 0.5", out)
	}
}

func TestPIDIntegratorAccumulatesAndClamps(t *testing.T) {
	p := NewPID(0, 1, 0, 0.1)
	p.IntegratorLimit = 0.5

	// Each tick adds Ki*err*DT = 0.2; the clamp stops it at 0.5.
	for i := 0; i < 10; i++ {
		p.Update(2, 0)
	}
	if out := p.Output(); math.Abs(out-0.5) > 1e-12 {
		t.Errorf("output %v, want integrator clamp at 0.5", out)
	}
}

func TestPIDDerivativeActsOnErrorChange(t *testing.T) {
	p := NewPID(0, 0, 0.001, 0.001)
	p.OutMax = 100

	p.Update(1, 0) // err 1, prev 0: derivative 1000
	out := p.Update(1, 0)
	if out != 0 {
		t.Errorf("steady error must give zero derivative term, got %v", out)
	}
}

func TestPIDResetClearsHistory(t *testing.T) {
	p := NewPID(0, 1, 0, 0.1)
	p.Update(2, 0)
	p.Reset()

	if p.Output() != 0 {
		t.Error("reset must clear the output")
	}
	out := p.Update(0, 0)
	if out != 0 {
		t.Errorf("post-reset zero-error update gave %v, want 0", out)
	}
}

func TestPIDOutputSaturatesHigh(t *testing.T) {
	p := NewPID(1, 0, 0, 0.001)
	p.OutMax = 0.95

	if out := p.Update(1000, 0); out != 0.95 {
		t.Errorf("output %v, want clamp at OutMax", out)
	}
}
