package core

import "testing"

func TestLoopRunnerMeasuresExecutionTime(t *testing.T) {
	clk := &mockClock{}
	l := NewLoopRunner("fast", clk, func() { clk.advance(100) })
	l.Start()

	l.Tick()
	st := l.Stats()
	if st.TickCount != 1 || st.LastExecUS != 100 {
		t.Errorf("stats %+v after one tick", st)
	}
	if st.AvgExecUS != 12 { // 0 - 0/8 + 100/8
		t.Errorf("avg %d, want 12", st.AvgExecUS)
	}

	l.Tick()
	st = l.Stats()
	if st.AvgExecUS != 23 { // 12 - 12/8 + 100/8
		t.Errorf("avg %d after two ticks, want 23", st.AvgExecUS)
	}
}

func TestLoopRunnerStoppedTicksAreNoOps(t *testing.T) {
	clk := &mockClock{}
	calls := 0
	l := NewLoopRunner("low", clk, func() { calls++ })

	l.Tick()
	if calls != 0 {
		t.Error("tick before Start must not run the callback")
	}

	l.Start()
	l.Tick()
	l.Stop()
	l.Tick()
	if calls != 1 {
		t.Errorf("callback ran %d times, want 1", calls)
	}
}
