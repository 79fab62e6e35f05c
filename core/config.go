package core

// CommutationConfig tunes closed-loop commutation and the open-loop to
// closed-loop handover. The lead factor and delay bounds are empirical,
// per-motor values; nothing in here is a hard constant.
type CommutationConfig struct {
	PolePairs int

	// LeadFactor scales the BEMF period into the commutation delay after a
	// zero-crossing (0.45 is roughly 27 degrees electrical advance).
	LeadFactor float64
	DelayMinUS float64
	DelayMaxUS float64

	// Handover gates: minimum electrical speed, consecutive same-phase
	// zero-crossings, and the duty floor applied at closed-loop entry.
	HandoverMinSpeedHz float64
	HandoverMinZC      uint32
	HandoverDutyFloor  float64
}

// AlignConfig tunes the rotor pre-positioning before an open-loop start.
type AlignConfig struct {
	Duty       float64
	DurationMS uint32
}

// SpeedConfig tunes the 1 kHz speed regulator.
type SpeedConfig struct {
	// SlopeRPMPerTick bounds how fast the internal target moves toward the
	// commanded speed, per low-loop tick.
	SlopeRPMPerTick float64

	// ReverseBelowRPM is the measured speed under which a pending direction
	// reversal is allowed to execute.
	ReverseBelowRPM float64

	// StallStopTicks stops the motor after this many consecutive low-loop
	// ticks of invalid BEMF while in closed loop. 0 keeps commutating on
	// the last known schedule (the legacy behavior).
	StallStopTicks uint16

	PIDKp              float64
	PIDKi              float64
	PIDKd              float64
	PIDOutMin          float64
	PIDOutMax          float64
	PIDIntegratorLimit float64
}

// Config aggregates all motor-control tuning.
type Config struct {
	BEMF         BEMFConfig
	Commutation  CommutationConfig
	Align        AlignConfig
	OpenLoopRamp RampConfig
	Speed        SpeedConfig
}

// DefaultConfig returns the tuning for the reference motor (6 pole pairs).
func DefaultConfig() Config {
	return Config{
		BEMF: DefaultBEMFConfig(),
		Commutation: CommutationConfig{
			PolePairs:          6,
			LeadFactor:         0.45,
			DelayMinUS:         80,
			DelayMaxUS:         30000,
			HandoverMinSpeedHz: 200,
			HandoverMinZC:      4,
			HandoverDutyFloor:  0.20,
		},
		Align: AlignConfig{
			Duty:       0.10,
			DurationMS: 500,
		},
		OpenLoopRamp: RampConfig{
			DutyStart:   0.5,
			DutyEnd:     0.6,
			FreqStartHz: 25,
			FreqEndHz:   500,
			DurationMS:  1000,
			Profile:     RampExponential,
		},
		Speed: SpeedConfig{
			SlopeRPMPerTick:    10,
			ReverseBelowRPM:    400,
			StallStopTicks:     0,
			PIDKp:              0.0005,
			PIDKi:              0.001,
			PIDKd:              0,
			PIDOutMin:          0.05,
			PIDOutMax:          0.95,
			PIDIntegratorLimit: 0.5,
		},
	}
}
