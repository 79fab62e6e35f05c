// Package monitor supervises the electrical environment of the power stage:
// bus voltage window, board temperature and bus current. Violations that
// persist across consecutive ticks latch a fault into the motor controller.
package monitor

import "goesc/core"

// Source reads the board sensors. The rp2040 target backs this with an
// INA260 power monitor and the on-die temperature sensor; tests use fakes.
type Source interface {
	// ReadElectrical returns bus voltage in volts and bus current in amps.
	ReadElectrical() (volts, amps float64, err error)
	// ReadTemperature returns the board temperature in degrees Celsius.
	ReadTemperature() (float64, error)
}

// FaultSink receives latched fault codes. core.Controller satisfies it.
type FaultSink interface {
	Fault(code uint32)
}

// Config holds the supervision thresholds.
type Config struct {
	MinBusVoltage float64
	MaxBusVoltage float64
	MaxCurrent    float64
	MaxTempC      float64

	// TripTicks consecutive violating ticks latch the fault; a single
	// clean tick resets the streak.
	TripTicks uint8

	// FilterAlpha weights the new reading in the exponential smoother.
	FilterAlpha float64
}

// DefaultConfig returns thresholds for a 6S-capable board.
func DefaultConfig() Config {
	return Config{
		MinBusVoltage: 6.0,
		MaxBusVoltage: 26.0,
		MaxCurrent:    20.0,
		MaxTempC:      85.0,
		TripTicks:     3,
		FilterAlpha:   0.25,
	}
}

// Readings is the filtered sensor snapshot.
type Readings struct {
	BusVoltage float64
	BusCurrent float64
	TempC      float64

	Latched   bool
	FaultCode uint32
	ReadErrs  uint32
}

// Manager runs the supervision loop. Tick is called from the low-rate
// context; everything is single-threaded like the rest of the control core.
type Manager struct {
	cfg  Config
	src  Source
	sink FaultSink

	readings Readings
	seeded   bool

	underStreak uint8
	overStreak  uint8
	currStreak  uint8
	tempStreak  uint8
}

// NewManager wires a supervision manager.
func NewManager(cfg Config, src Source, sink FaultSink) *Manager {
	return &Manager{cfg: cfg, src: src, sink: sink}
}

// Tick reads the sensors, updates the filtered readings and evaluates the
// thresholds. After a latch it keeps reading but raises no further faults
// until ClearLatch.
func (m *Manager) Tick() {
	volts, amps, err := m.src.ReadElectrical()
	if err != nil {
		m.readings.ReadErrs++
		return
	}
	tempC, err := m.src.ReadTemperature()
	if err != nil {
		m.readings.ReadErrs++
		return
	}

	if !m.seeded {
		m.readings.BusVoltage = volts
		m.readings.BusCurrent = amps
		m.readings.TempC = tempC
		m.seeded = true
	} else {
		a := m.cfg.FilterAlpha
		m.readings.BusVoltage = (1-a)*m.readings.BusVoltage + a*volts
		m.readings.BusCurrent = (1-a)*m.readings.BusCurrent + a*amps
		m.readings.TempC = (1-a)*m.readings.TempC + a*tempC
	}

	if m.readings.Latched {
		return
	}

	m.underStreak = bump(m.underStreak, m.readings.BusVoltage < m.cfg.MinBusVoltage)
	m.overStreak = bump(m.overStreak, m.readings.BusVoltage > m.cfg.MaxBusVoltage)
	m.currStreak = bump(m.currStreak, m.readings.BusCurrent > m.cfg.MaxCurrent)
	m.tempStreak = bump(m.tempStreak, m.readings.TempC > m.cfg.MaxTempC)

	switch {
	case m.currStreak >= m.cfg.TripTicks:
		m.latch(core.FaultOvercurrent)
	case m.underStreak >= m.cfg.TripTicks:
		m.latch(core.FaultUndervoltage)
	case m.overStreak >= m.cfg.TripTicks:
		m.latch(core.FaultOvervoltage)
	case m.tempStreak >= m.cfg.TripTicks:
		m.latch(core.FaultOvertemp)
	}
}

func bump(streak uint8, violating bool) uint8 {
	if !violating {
		return 0
	}
	if streak < 255 {
		streak++
	}
	return streak
}

func (m *Manager) latch(code uint32) {
	m.readings.Latched = true
	m.readings.FaultCode = code
	if m.sink != nil {
		m.sink.Fault(code)
	}
	core.DebugPrintln("[MONITOR] fault latched, code=" + faultName(code))
}

// ClearLatch re-arms supervision after the operator has cleared the motor
// fault.
func (m *Manager) ClearLatch() {
	m.readings.Latched = false
	m.readings.FaultCode = 0
	m.underStreak = 0
	m.overStreak = 0
	m.currStreak = 0
	m.tempStreak = 0
}

// Snapshot copies the filtered readings.
func (m *Manager) Snapshot(out *Readings) {
	if out != nil {
		*out = m.readings
	}
}

func faultName(code uint32) string {
	switch code {
	case core.FaultOvercurrent:
		return "OVERCURRENT"
	case core.FaultOvervoltage:
		return "OVERVOLTAGE"
	case core.FaultUndervoltage:
		return "UNDERVOLTAGE"
	case core.FaultOvertemp:
		return "OVERTEMP"
	}
	return "UNKNOWN"
}
