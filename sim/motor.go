package sim

import (
	"math"

	"goesc/core"
)

// MotorParams tune the rotor model. The defaults describe a small hobby
// outrunner scaled so the default open-loop ramp pulls the rotor into the
// 150-220 Hz electrical band where its BEMF crossings line up with the
// floating windows.
type MotorParams struct {
	// TorqueGain is the electrical acceleration per unit duty at 90
	// degrees of load angle, rad/s^2.
	TorqueGain float64
	// Damping is the viscous drag coefficient, 1/s.
	Damping float64
	// Friction is the Coulomb drag, rad/s^2. It lets the rotor actually
	// stop instead of idling at the regulator's duty floor.
	Friction float64

	// BEMFAmpCounts is the peak BEMF in ADC counts at and above
	// AmpFullScaleHz electrical.
	BEMFAmpCounts  float64
	AmpFullScaleHz float64

	// CurrentGainCounts scales drive duty into phase-current counts.
	CurrentGainCounts float64
}

// DefaultMotorParams returns the bench rotor tuning.
func DefaultMotorParams() MotorParams {
	return MotorParams{
		TorqueGain:        1.65e5,
		Damping:           50,
		Friction:          2.5e4,
		BEMFAmpCounts:     600,
		AmpFullScaleHz:    100,
		CurrentGainCounts: 800,
	}
}

const midCounts = 2048.0

// Motor is a synchronous-machine rotor model in electrical coordinates: the
// stator MMF drags the rotor through a torque spring, viscous and Coulomb
// drag oppose it. It produces sinusoidal per-phase BEMF samples for the
// zero-crossing monitor.
type Motor struct {
	P MotorParams

	thetaE float64 // electrical angle, rad
	omegaE float64 // electrical velocity, rad/s
	locked bool
}

// NewMotor builds a rotor at rest.
func NewMotor(p MotorParams) *Motor {
	return &Motor{P: p}
}

// Step integrates the rotor over dtUS against the inverter's current drive.
func (m *Motor) Step(inv *Inverter, dtUS uint64) {
	if dtUS == 0 || m.locked {
		return
	}
	dt := float64(dtUS) * 1e-6

	accel := 0.0
	if angle, duty, driven := inv.Drive(); driven {
		accel = m.P.TorqueGain * duty * math.Sin(angle-m.thetaE)
	}
	accel -= m.P.Damping * m.omegaE

	switch {
	case m.omegaE > 0:
		accel -= m.P.Friction
	case m.omegaE < 0:
		accel += m.P.Friction
	default:
		// Stiction: torque below the friction level holds the rotor.
		if math.Abs(accel) < m.P.Friction {
			accel = 0
		} else if accel > 0 {
			accel -= m.P.Friction
		} else {
			accel += m.P.Friction
		}
	}

	m.omegaE += accel * dt
	m.thetaE += m.omegaE * dt
}

// Sample produces one synchronized ADC sample set at the current rotor
// state. BEMF amplitude scales with speed up to the full-scale frequency.
func (m *Motor) Sample(inv *Inverter) core.MotorMeasurements {
	scale := m.omegaE / (2 * math.Pi * m.P.AmpFullScaleHz)
	if scale > 1 {
		scale = 1
	} else if scale < -1 {
		scale = -1
	}
	amp := m.P.BEMFAmpCounts * scale

	var s core.MotorMeasurements
	s.VPhaseARaw = clampCounts(midCounts + amp*math.Sin(m.thetaE-phaseAxis[0]))
	s.VPhaseBRaw = clampCounts(midCounts + amp*math.Sin(m.thetaE-phaseAxis[1]))
	s.VPhaseCRaw = clampCounts(midCounts + amp*math.Sin(m.thetaE-phaseAxis[2]))

	_, duty, driven := inv.Drive()
	iCounts := 0.0
	if driven {
		iCounts = duty * m.P.CurrentGainCounts
	}
	s.IPhaseARaw = clampCounts(midCounts + iCounts)
	s.IPhaseBRaw = clampCounts(midCounts - iCounts)
	s.IPhaseCRaw = clampCounts(midCounts)
	return s
}

// LockRotor clamps the rotor in place, killing the BEMF signal. Used for
// stall scenarios.
func (m *Motor) LockRotor() {
	m.locked = true
	m.omegaE = 0
}

// UnlockRotor releases a locked rotor.
func (m *Motor) UnlockRotor() {
	m.locked = false
}

// ElectricalHz returns the signed electrical frequency.
func (m *Motor) ElectricalHz() float64 {
	return m.omegaE / (2 * math.Pi)
}

// MechanicalRPM returns the signed shaft speed for a given pole-pair count.
func (m *Motor) MechanicalRPM(polePairs int) float64 {
	return m.ElectricalHz() * 60 / float64(polePairs)
}

func clampCounts(v float64) uint16 {
	if v < 0 {
		return 0
	}
	if v > 4095 {
		return 4095
	}
	return uint16(v)
}
