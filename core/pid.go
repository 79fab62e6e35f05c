package core

// PID is a standard-form controller with integral anti-windup clamp and
// output saturation. Updated once per low-loop tick.
type PID struct {
	Kp float64
	Ki float64
	Kd float64
	DT float64 // sample period in seconds

	OutMin          float64
	OutMax          float64
	IntegratorLimit float64

	integrator float64
	prevError  float64
	output     float64
}

// NewPID builds a controller with unit output range and integrator limit;
// adjust the exported bounds after construction.
func NewPID(kp, ki, kd, dt float64) *PID {
	return &PID{
		Kp: kp, Ki: ki, Kd: kd, DT: dt,
		OutMin:          0,
		OutMax:          1,
		IntegratorLimit: 1,
	}
}

// Update computes the next output for a setpoint/measurement pair.
func (p *PID) Update(setpoint, measurement float64) float64 {
	err := setpoint - measurement

	p.integrator += p.Ki * err * p.DT
	if p.integrator > p.IntegratorLimit {
		p.integrator = p.IntegratorLimit
	} else if p.integrator < -p.IntegratorLimit {
		p.integrator = -p.IntegratorLimit
	}

	derivative := (err - p.prevError) / p.DT
	p.prevError = err

	out := p.Kp*err + p.integrator + p.Kd*derivative
	if out > p.OutMax {
		out = p.OutMax
	} else if out < p.OutMin {
		out = p.OutMin
	}

	p.output = out
	return out
}

// Output returns the last computed output.
func (p *PID) Output() float64 {
	return p.output
}

// Reset clears the integrator and derivative history.
func (p *PID) Reset() {
	p.integrator = 0
	p.prevError = 0
	p.output = 0
}
