package core

// LoopStats are the runtime metrics of one periodic control loop.
type LoopStats struct {
	TickCount  uint32
	LastExecUS uint32
	AvgExecUS  uint32 // exponential moving average, 7/8 old + 1/8 new
	Running    bool
}

// LoopRunner wraps a control-layer callback executed from a periodic timer
// interrupt, measuring execution time so overruns of the loop budget show up
// in telemetry instead of as silent jitter.
type LoopRunner struct {
	name  string
	clock Clock
	cb    func()
	stats LoopStats
}

// NewLoopRunner creates a runner for a named loop ("fast", "low").
func NewLoopRunner(name string, clock Clock, cb func()) *LoopRunner {
	return &LoopRunner{name: name, clock: clock, cb: cb}
}

// Start enables tick processing.
func (l *LoopRunner) Start() {
	l.stats.Running = true
}

// Stop disables tick processing; Tick becomes a no-op.
func (l *LoopRunner) Stop() {
	l.stats.Running = false
}

// Tick runs one loop iteration. Called from the periodic timer interrupt.
func (l *LoopRunner) Tick() {
	if !l.stats.Running || l.cb == nil {
		return
	}

	startUS := l.clock.NowMicros()
	l.cb()
	elapsed := l.clock.NowMicros() - startUS

	l.stats.TickCount++
	l.stats.LastExecUS = elapsed
	l.stats.AvgExecUS = l.stats.AvgExecUS - l.stats.AvgExecUS/8 + elapsed/8
}

// Name returns the loop's name.
func (l *LoopRunner) Name() string {
	return l.name
}

// Stats copies the runtime metrics.
func (l *LoopRunner) Stats() LoopStats {
	return l.stats
}
