package core

import (
	"math"
	"testing"
)

func newTestBEMF() (*BEMFMonitor, *scriptedSource, *mockClock) {
	src := &scriptedSource{}
	clk := &mockClock{}
	m := NewBEMFMonitor(DefaultBEMFConfig(), src, clk)
	return m, src, clk
}

// feedCrossing advances the clock, loads a sample set that swings the given
// phase to the given sign, and runs one processing cycle.
func feedCrossing(m *BEMFMonitor, src *scriptedSource, clk *mockClock, ph Phase, positive bool, dtUS uint32) BEMFStatus {
	clk.advance(dtUS)
	src.set(measurementsFor(ph, positive))
	m.Process(ph)
	var st BEMFStatus
	m.Status(&st)
	return st
}

func TestBEMFBootstrapSeedsWithoutEvent(t *testing.T) {
	m, src, clk := newTestBEMF()

	// First sign change on a phase has no previous edge to measure against.
	st := feedCrossing(m, src, clk, PhaseA, false, 1000)
	if st.ZeroCrossDetected {
		t.Error("bootstrap crossing must not report an event")
	}
	if st.Valid {
		t.Error("bootstrap crossing must not assert validity")
	}
	if m.LastZeroCrossTimeUS() != clk.NowMicros() {
		t.Error("bootstrap crossing must seed the timestamp")
	}
}

func TestBEMFLocksAfterConsecutiveGoodPeriods(t *testing.T) {
	m, src, clk := newTestBEMF()

	feedCrossing(m, src, clk, PhaseA, false, 1000) // seed

	st := feedCrossing(m, src, clk, PhaseA, true, 1000)
	if !st.ZeroCrossDetected {
		t.Fatal("first measured period must report a crossing")
	}
	if st.Valid {
		t.Error("one good period must not lock")
	}
	if st.PeriodUS != 1000 {
		t.Errorf("period %v, want 1000 (first period taken unfiltered)", st.PeriodUS)
	}

	st = feedCrossing(m, src, clk, PhaseA, false, 1000)
	if !st.Valid {
		t.Error("two consecutive good periods must lock")
	}
	if st.FloatingPhase != PhaseA {
		t.Errorf("floating phase %v, want A", st.FloatingPhase)
	}
}

func TestBEMFPeriodSmoothing(t *testing.T) {
	m, src, clk := newTestBEMF()

	feedCrossing(m, src, clk, PhaseA, false, 1000) // seed
	feedCrossing(m, src, clk, PhaseA, true, 1000)  // first period, unfiltered

	st := feedCrossing(m, src, clk, PhaseA, false, 2000)
	want := 0.8*1000 + 0.2*2000
	if math.Abs(st.PeriodUS-want) > 1e-9 {
		t.Errorf("smoothed period %v, want %v", st.PeriodUS, want)
	}
}

func TestBEMFCrossCountSurvivesReset(t *testing.T) {
	m, src, clk := newTestBEMF()

	feedCrossing(m, src, clk, PhaseA, false, 1000) // seed, not counted
	feedCrossing(m, src, clk, PhaseA, true, 1000)
	feedCrossing(m, src, clk, PhaseA, false, 1000)
	if got := m.CrossCount(); got != 2 {
		t.Fatalf("CrossCount() = %d, want 2", got)
	}

	m.Reset()
	if got := m.CrossCount(); got != 2 {
		t.Errorf("CrossCount() = %d after Reset, want 2 (lifetime counter)", got)
	}
}

func TestBEMFRejectsSubThresholdOscillation(t *testing.T) {
	m, src, clk := newTestBEMF()

	// Tiny swings around zero on both sides of the crossing.
	near := func(positive bool) MotorMeasurements {
		meas := measurementsFor(PhaseA, true)
		if positive {
			meas.VPhaseARaw = midRaw + 1
		} else {
			meas.VPhaseARaw = midRaw - 1
		}
		return meas
	}

	clk.advance(1000)
	src.set(near(true))
	m.Process(PhaseA)

	clk.advance(1000)
	src.set(near(false))
	m.Process(PhaseA)

	var st BEMFStatus
	m.Status(&st)
	if st.ZeroCrossDetected {
		t.Error("sub-threshold oscillation must not count as a crossing")
	}
	if m.LastZeroCrossTimeUS() != 0 {
		t.Error("rejected crossing must not seed the timestamp")
	}
}

func TestBEMFRejectsOutOfBoundsPeriodsAndUnlocks(t *testing.T) {
	m, src, clk := newTestBEMF()
	cfg := DefaultBEMFConfig()

	feedCrossing(m, src, clk, PhaseA, false, 1000)
	feedCrossing(m, src, clk, PhaseA, true, 1000)
	st := feedCrossing(m, src, clk, PhaseA, false, 1000)
	if !st.Valid {
		t.Fatal("precondition: monitor locked")
	}

	// Too-short period rejected, but the lock survives the first few.
	positive := true
	st = feedCrossing(m, src, clk, PhaseA, positive, uint32(cfg.MinPeriodUS)/2)
	if st.ZeroCrossDetected {
		t.Error("out-of-bounds period must not report an event")
	}
	if !st.Valid {
		t.Error("a single bad period must not unlock")
	}

	for i := uint8(1); i < cfg.UnlockCount; i++ {
		positive = !positive
		st = feedCrossing(m, src, clk, PhaseA, positive, uint32(cfg.MinPeriodUS)/2)
	}
	if st.Valid {
		t.Errorf("%d consecutive bad periods must unlock", cfg.UnlockCount)
	}
}

func TestBEMFClearFlagIsIdempotent(t *testing.T) {
	m, src, clk := newTestBEMF()

	feedCrossing(m, src, clk, PhaseA, false, 1000)
	st := feedCrossing(m, src, clk, PhaseA, true, 1000)
	if !st.ZeroCrossDetected {
		t.Fatal("precondition: crossing pending")
	}

	m.ClearFlag()
	m.ClearFlag()
	m.Status(&st)
	if st.ZeroCrossDetected {
		t.Error("flag must stay cleared")
	}
	if st.PeriodUS != 1000 {
		t.Error("ClearFlag must not disturb the period estimate")
	}
}

func TestBEMFNoSampleMeansNoStateChange(t *testing.T) {
	m, src, clk := newTestBEMF()

	feedCrossing(m, src, clk, PhaseA, false, 1000)
	st := feedCrossing(m, src, clk, PhaseA, true, 1000)
	if !st.ZeroCrossDetected {
		t.Fatal("precondition: crossing pending")
	}

	// Source already consumed; a second cycle sees nothing new.
	m.Process(PhaseA)
	var st2 BEMFStatus
	m.Status(&st2)
	if st2 != st {
		t.Error("a cycle without fresh samples must not change the status")
	}
	_ = clk
}

func TestBEMFResetClearsDetectionState(t *testing.T) {
	m, src, clk := newTestBEMF()

	feedCrossing(m, src, clk, PhaseA, false, 1000)
	feedCrossing(m, src, clk, PhaseA, true, 1000)
	feedCrossing(m, src, clk, PhaseA, false, 1000)

	m.Reset()

	var st BEMFStatus
	m.Status(&st)
	if st.Valid || st.ZeroCrossDetected || st.PeriodUS != 0 {
		t.Errorf("reset left residual status %+v", st)
	}

	// Next crossing bootstraps again.
	st = feedCrossing(m, src, clk, PhaseA, true, 1000)
	if st.ZeroCrossDetected {
		t.Error("first crossing after reset must bootstrap, not report")
	}
}

func TestBEMFBootstrapIsPerPhase(t *testing.T) {
	m, src, clk := newTestBEMF()

	feedCrossing(m, src, clk, PhaseA, false, 1000) // seeds A
	st := feedCrossing(m, src, clk, PhaseB, false, 1000)
	if st.ZeroCrossDetected {
		t.Error("first crossing on phase B must bootstrap independently")
	}
}
