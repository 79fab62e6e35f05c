package core

import "math"

// RampProfile selects the frequency progression of an open-loop ramp.
type RampProfile uint8

const (
	RampLinear RampProfile = iota
	RampExponential
	RampQuadratic
	RampLogarithmic
)

// MinStepDelayUS bounds the commutation event rate during a ramp; below this
// the one-shot ISR would eat the fast loop's budget.
const MinStepDelayUS = 100

// logRampSteepness shapes the logarithmic profile: larger values front-load
// the acceleration harder.
const logRampSteepness = 5.0

// RampConfig is the static description of one open-loop ramp.
type RampConfig struct {
	DutyStart   float64
	DutyEnd     float64
	FreqStartHz float64
	FreqEndHz   float64
	DurationMS  uint32
	CW          bool
	Profile     RampProfile
}

// RampEngine generates six-step commutation events at decreasing intervals,
// driven entirely by the shared one-shot timer: each fired step schedules the
// next one. No loop polls it and nothing blocks.
//
// A single ramp is active at a time; Start replaces any ramp in flight.
type RampEngine struct {
	comm  *Commutator
	timer OneShotTimer

	active      bool
	cfg         RampConfig
	step        uint8
	elapsedUS   uint64
	stepDelayUS uint32
	duty        float64
	freq        float64
	onComplete  func()
}

// NewRampEngine binds a ramp engine to a commutator and the shared one-shot
// commutation timer.
func NewRampEngine(comm *Commutator, timer OneShotTimer) *RampEngine {
	return &RampEngine{comm: comm, timer: timer}
}

// Start begins a ramp: cancels any pending event, applies step 0 at the start
// duty immediately, and schedules the first advance. onComplete (optional)
// fires once when the ramp runs to its full duration; a Stop/StopSoft cuts
// the ramp without invoking it.
func (r *RampEngine) Start(cfg RampConfig, onComplete func()) {
	r.timer.Cancel()

	r.cfg = cfg
	r.step = 0
	r.elapsedUS = 0
	r.duty = cfg.DutyStart
	r.freq = cfg.FreqStartHz
	r.onComplete = onComplete
	r.active = true

	r.comm.Commutate(0, r.duty, cfg.CW)

	r.stepDelayUS = stepDelayForFreq(r.freq)
	r.timer.Start(r.stepDelayUS, r.onStep)
}

// onStep runs in one-shot interrupt context on every ramp advance.
func (r *RampEngine) onStep() {
	if !r.active {
		return
	}

	r.elapsedUS += uint64(r.stepDelayUS)
	totalUS := uint64(r.cfg.DurationMS) * 1000

	if r.elapsedUS >= totalUS {
		r.active = false
		r.comm.Disable()
		if r.onComplete != nil {
			r.onComplete()
		}
		return
	}

	ratio := float64(r.elapsedUS) / float64(totalUS)
	if ratio > 1 {
		ratio = 1
	}

	r.freq = r.cfg.frequencyAt(ratio)
	// Power-law duty interpolation: gentler torque buildup at the start
	// than a straight line.
	r.duty = r.cfg.DutyStart + math.Pow(ratio, 1.5)*(r.cfg.DutyEnd-r.cfg.DutyStart)

	r.step = (r.step + 1) % 6
	r.comm.Commutate(r.step, r.duty, r.cfg.CW)

	r.stepDelayUS = stepDelayForFreq(r.freq)
	r.timer.Start(r.stepDelayUS, r.onStep)
}

// frequencyAt evaluates the profile at a clamped progress ratio. Linear and
// quadratic hit both endpoints exactly; the exponential hits them exactly
// when both frequencies are positive.
func (c *RampConfig) frequencyAt(ratio float64) float64 {
	delta := c.FreqEndHz - c.FreqStartHz
	switch c.Profile {
	case RampExponential:
		if c.FreqStartHz <= 0 || c.FreqEndHz <= 0 {
			return c.FreqStartHz + ratio*delta
		}
		return c.FreqStartHz * math.Pow(c.FreqEndHz/c.FreqStartHz, ratio)
	case RampQuadratic:
		return c.FreqStartHz + ratio*ratio*delta
	case RampLogarithmic:
		return c.FreqEndHz - delta*math.Exp(-logRampSteepness*ratio)
	default:
		return c.FreqStartHz + ratio*delta
	}
}

func stepDelayForFreq(freqHz float64) uint32 {
	if freqHz <= 0 {
		return MinStepDelayUS
	}
	delay := 1e6 / (6 * freqHz)
	if delay < MinStepDelayUS {
		delay = MinStepDelayUS
	}
	return uint32(delay)
}

// Stop hard-stops the ramp: cancels the pending event, floats the motor and
// clears the context. Causes a torque discontinuity if the rotor is moving.
func (r *RampEngine) Stop() {
	r.timer.Cancel()
	r.comm.Disable()
	r.active = false
	r.onComplete = nil
}

// StopSoft cancels the pending event but leaves the inverter engaged. Used
// only during the synchronous handover, where closed-loop commutation takes
// over the output state without a torque gap.
func (r *RampEngine) StopSoft() {
	r.timer.Cancel()
	r.active = false
	r.onComplete = nil
}

// Active reports whether a ramp is in progress.
func (r *RampEngine) Active() bool {
	return r.active
}

// State returns the current step, duty and direction: the hand-off read the
// state machine performs at transition time.
func (r *RampEngine) State() (step uint8, duty float64, cw bool) {
	return r.step, r.duty, r.cfg.CW
}
