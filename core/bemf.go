package core

import "math"

// BEMFConfig holds the zero-crossing detection and validation tunables.
type BEMFConfig struct {
	// MinAmplitudeV rejects crossings where both samples sit below this
	// magnitude (noise floor).
	MinAmplitudeV float64

	// MinPeriodUS / MaxPeriodUS bound the accepted interval between two
	// consecutive crossings (one 60-degree commutation interval).
	MinPeriodUS float64
	MaxPeriodUS float64

	// LockCount consecutive accepted periods assert Valid; UnlockCount
	// consecutive rejected periods clear it again.
	LockCount   uint8
	UnlockCount uint8

	// FilterAlpha weights the new period in the exponential smoother:
	// period = (1-alpha)*old + alpha*new.
	FilterAlpha float64

	// VRef and ADCMax convert raw counts to volts.
	VRef   float64
	ADCMax uint16
}

// DefaultBEMFConfig returns the tuning used on the reference board.
func DefaultBEMFConfig() BEMFConfig {
	return BEMFConfig{
		MinAmplitudeV: 0.005,
		MinPeriodUS:   100,
		MaxPeriodUS:   50000,
		LockCount:     2,
		UnlockCount:   5,
		FilterAlpha:   0.2,
		VRef:          3.3,
		ADCMax:        4095,
	}
}

// BEMFStatus is the monitor's output, refreshed every fast-loop cycle.
// ZeroCrossDetected is edge-triggered: the consumer must call ClearFlag after
// handling it or the same event is seen again next cycle.
type BEMFStatus struct {
	ZeroCrossDetected bool
	PeriodUS          float64
	FloatingPhase     Phase
	Valid             bool
}

// BEMFMonitor detects back-EMF zero-crossings on the floating phase and
// maintains a filtered, validated estimate of the commutation period.
//
// Process must be called exactly once per fast-loop cycle, before the control
// state machine inspects Status. All signal-quality problems are absorbed
// here; Valid is the only trust signal exported.
type BEMFMonitor struct {
	cfg    BEMFConfig
	source MeasurementSource
	clock  Clock

	status       BEMFStatus
	prevBEMF     [PhaseCount]float64
	bootstrap    [PhaseCount]bool
	lastZCTimeUS uint32
	lastPeriodUS float64

	validStreak   uint8
	invalidStreak uint8
	locked        bool
	initialized   bool

	// lifetime accepted-crossing counter, survives Reset
	crossCount uint32

	meas MotorMeasurements // scratch, avoids per-cycle allocation
}

// NewBEMFMonitor builds and initializes a monitor.
func NewBEMFMonitor(cfg BEMFConfig, source MeasurementSource, clock Clock) *BEMFMonitor {
	m := &BEMFMonitor{cfg: cfg, source: source, clock: clock}
	m.Init()
	return m
}

// Init resets everything, including the initialized flag, and marks the
// monitor ready. Call once before use.
func (m *BEMFMonitor) Init() {
	m.clearDetectionState()
	m.initialized = true
}

// Reset clears the dynamic detection state (filters, streaks, bootstrap)
// without touching initialization. Used when restarting an open-loop ramp.
func (m *BEMFMonitor) Reset() {
	m.clearDetectionState()
}

func (m *BEMFMonitor) clearDetectionState() {
	m.status = BEMFStatus{}
	for p := range m.prevBEMF {
		m.prevBEMF[p] = 0
		m.bootstrap[p] = true
	}
	m.lastZCTimeUS = 0
	m.lastPeriodUS = 0
	m.validStreak = 0
	m.invalidStreak = 0
	m.locked = false
}

// Process runs one fast-loop iteration: fetch the latest synchronized
// samples, compute the floating phase's BEMF against the virtual neutral,
// and update the zero-crossing state.
func (m *BEMFMonitor) Process(floating Phase) {
	if !m.initialized || m.source == nil || floating >= PhaseCount {
		return
	}
	if !m.source.LatestMeasurements(&m.meas) {
		return
	}

	va := m.toVolts(m.meas.VPhaseARaw)
	vb := m.toVolts(m.meas.VPhaseBRaw)
	vc := m.toVolts(m.meas.VPhaseCRaw)
	neutral := (va + vb + vc) / 3.0

	var bemf float64
	switch floating {
	case PhaseA:
		bemf = va - neutral
	case PhaseB:
		bemf = vb - neutral
	case PhaseC:
		bemf = vc - neutral
	}

	prev := m.prevBEMF[floating]
	crossed := (bemf >= 0 && prev < 0) || (bemf < 0 && prev >= 0)
	if !crossed {
		m.prevBEMF[floating] = bemf
		return
	}

	// Sub-threshold oscillation around zero: not a real crossing.
	if math.Abs(bemf) < m.cfg.MinAmplitudeV && math.Abs(prev) < m.cfg.MinAmplitudeV {
		m.prevBEMF[floating] = bemf
		return
	}

	nowUS := m.clock.NowMicros()

	// First accepted crossing on this phase only seeds the timestamp; there
	// is no previous edge to measure a period against.
	if m.bootstrap[floating] {
		m.lastZCTimeUS = nowUS
		m.bootstrap[floating] = false
		m.prevBEMF[floating] = bemf
		m.status.ZeroCrossDetected = false
		m.status.Valid = false
		return
	}

	periodUS := float64(nowUS - m.lastZCTimeUS)
	m.lastZCTimeUS = nowUS

	if periodUS < m.cfg.MinPeriodUS || periodUS > m.cfg.MaxPeriodUS {
		if m.invalidStreak < 255 {
			m.invalidStreak++
		}
		m.validStreak = 0
		if m.locked && m.invalidStreak >= m.cfg.UnlockCount {
			m.locked = false
		}
		m.status.ZeroCrossDetected = false
		m.status.Valid = m.locked
		m.prevBEMF[floating] = bemf
		return
	}

	if m.lastPeriodUS == 0 {
		m.lastPeriodUS = periodUS
	} else {
		m.lastPeriodUS = (1-m.cfg.FilterAlpha)*m.lastPeriodUS + m.cfg.FilterAlpha*periodUS
	}

	if m.validStreak < 255 {
		m.validStreak++
	}
	m.invalidStreak = 0
	if !m.locked && m.validStreak >= m.cfg.LockCount {
		m.locked = true
	}

	m.status.PeriodUS = m.lastPeriodUS
	m.status.FloatingPhase = floating
	m.status.ZeroCrossDetected = true
	m.status.Valid = m.locked
	m.crossCount++

	m.prevBEMF[floating] = bemf
}

// Status copies the latest status. No side effects.
func (m *BEMFMonitor) Status(out *BEMFStatus) {
	if out != nil {
		*out = m.status
	}
}

// ClearFlag acknowledges the pending zero-crossing event. Idempotent.
func (m *BEMFMonitor) ClearFlag() {
	m.status.ZeroCrossDetected = false
}

// CrossCount returns the number of accepted zero-crossings since power-up.
func (m *BEMFMonitor) CrossCount() uint32 {
	return m.crossCount
}

// LastZeroCrossTimeUS returns the raw timestamp of the most recent accepted
// crossing, used for handover timing math.
func (m *BEMFMonitor) LastZeroCrossTimeUS() uint32 {
	return m.lastZCTimeUS
}

func (m *BEMFMonitor) toVolts(raw uint16) float64 {
	return float64(raw) * m.cfg.VRef / float64(m.cfg.ADCMax)
}
