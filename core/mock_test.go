package core

// Shared test doubles for the control core. All of them are deterministic
// and single-threaded, matching the cooperative execution model.

type mockClock struct {
	us uint32
}

func (c *mockClock) NowMicros() uint32 { return c.us }
func (c *mockClock) NowMillis() uint32 { return c.us / 1000 }

func (c *mockClock) advance(dUS uint32) { c.us += dUS }

// mockOneShot is a manual-fire single-slot timer. Start replaces any pending
// callback, same as the hardware contract.
type mockOneShot struct {
	active  bool
	delayUS uint32
	cb      OneShotCallback

	starts  int
	cancels int
}

func (t *mockOneShot) Start(delayUS uint32, cb OneShotCallback) bool {
	if cb == nil {
		return false
	}
	t.active = true
	t.delayUS = delayUS
	t.cb = cb
	t.starts++
	return true
}

func (t *mockOneShot) Cancel() {
	t.active = false
	t.cb = nil
	t.cancels++
}

func (t *mockOneShot) IsActive() bool { return t.active }

// fire expires the pending one-shot, if any.
func (t *mockOneShot) fire() {
	if !t.active {
		return
	}
	cb := t.cb
	t.active = false
	t.cb = nil
	cb()
}

// mockInverter records output states, duties and call ordering.
type mockInverter struct {
	states   [InverterPhaseCount]PhaseOutputState
	duties   PhaseDuties
	disabled bool
	ops      []string
}

func (m *mockInverter) SetOutputState(ph InverterPhase, state PhaseOutputState) error {
	m.states[ph] = state
	m.disabled = false
	m.ops = append(m.ops, "state")
	return nil
}

func (m *mockInverter) SetAllDuties(d *PhaseDuties) error {
	m.duties = *d
	m.ops = append(m.ops, "duties")
	return nil
}

func (m *mockInverter) Disable() {
	for i := range m.states {
		m.states[i] = OutputHiZ
	}
	m.disabled = true
	m.ops = append(m.ops, "disable")
}

// scriptedSource holds at most one pending sample set; reads consume it.
type scriptedSource struct {
	pending bool
	meas    MotorMeasurements
}

func (s *scriptedSource) set(m MotorMeasurements) {
	s.meas = m
	s.pending = true
}

func (s *scriptedSource) LatestMeasurements(out *MotorMeasurements) bool {
	if !s.pending {
		return false
	}
	*out = s.meas
	s.pending = false
	return true
}

// Raw ADC counts around the half-rail point. With B and C pinned at midRaw,
// the floating phase A reads midRaw+delta and its BEMF against the virtual
// neutral is 2/3 of delta in volts: far above the noise floor for the
// swings used here.
const (
	midRaw  uint16 = 2048
	highRaw uint16 = 2300
	lowRaw  uint16 = 1800
)

// measurementsFor builds a sample set where the given phase swings positive
// or negative and the other two sit at mid-rail.
func measurementsFor(ph Phase, positive bool) MotorMeasurements {
	raw := lowRaw
	if positive {
		raw = highRaw
	}
	m := MotorMeasurements{
		VPhaseARaw: midRaw,
		VPhaseBRaw: midRaw,
		VPhaseCRaw: midRaw,
	}
	switch ph {
	case PhaseA:
		m.VPhaseARaw = raw
	case PhaseB:
		m.VPhaseBRaw = raw
	case PhaseC:
		m.VPhaseCRaw = raw
	}
	return m
}
