package core

// MotorMode is the top-level state of the commutation state machine.
type MotorMode uint8

const (
	ModeStopped MotorMode = iota
	ModeAligning
	ModeOpenLoop
	ModeClosedLoop
	ModeFault
)

func (m MotorMode) String() string {
	switch m {
	case ModeStopped:
		return "STOPPED"
	case ModeAligning:
		return "ALIGNING"
	case ModeOpenLoop:
		return "OPEN_LOOP"
	case ModeClosedLoop:
		return "CLOSED_LOOP"
	case ModeFault:
		return "FAULT"
	}
	return "UNKNOWN"
}

// Fault codes recorded with EvtFault and passed to Fault().
const (
	FaultStall uint32 = iota + 1
	FaultOvercurrent
	FaultOvervoltage
	FaultUndervoltage
	FaultOvertemp
)

// Telemetry is a copyable snapshot of the controller state for the debug
// console and host links.
type Telemetry struct {
	Mode        MotorMode
	Step        uint8
	Duty        float64
	Clockwise   bool
	FaultCode   uint32
	CommandRPM  float64
	TargetRPM   float64
	MeasuredRPM float64
	BEMF        BEMFStatus
	RampActive  bool

	// lifetime counters
	ZeroCrossings uint32
	Commutations  uint32
}

// Controller is the sensorless six-step motor controller. It sequences
// align, open-loop ramp, and closed-loop BEMF commutation, and regulates
// speed from the low loop.
//
// Every entry point runs in the same cooperative context (loop ticks and the
// shared one-shot callback never preempt each other), so there is no locking
// anywhere in here. The one-shot timer is shared with the ramp engine; its
// replace-on-start slot guarantees at most one pending commutation event
// across both owners.
type Controller struct {
	cfg   Config
	comm  *Commutator
	bemf  *BEMFMonitor
	ramp  *RampEngine
	timer OneShotTimer
	clock Clock
	pid   *PID

	mode MotorMode
	cw   bool
	step uint8
	duty float64

	// commArmed: a closed-loop commutation is scheduled on the one-shot.
	// transitionScheduled: the handover commutation is scheduled.
	commArmed           bool
	transitionScheduled bool
	consecutiveZC       uint32

	commandRPM  float64 // requested magnitude
	targetRPM   float64 // slewed setpoint fed to the PID
	measuredRPM float64

	reversePending bool
	pendingCW      bool
	pendingRPM     float64

	stallTicks uint16
	faultCode  uint32

	status BEMFStatus // fast-loop scratch
}

// NewController wires the control core together. All dependencies are
// injected; nothing in here touches hardware directly.
func NewController(cfg Config, comm *Commutator, bemf *BEMFMonitor, ramp *RampEngine, timer OneShotTimer, clock Clock) *Controller {
	pid := NewPID(cfg.Speed.PIDKp, cfg.Speed.PIDKi, cfg.Speed.PIDKd, 0.001)
	pid.OutMin = cfg.Speed.PIDOutMin
	pid.OutMax = cfg.Speed.PIDOutMax
	pid.IntegratorLimit = cfg.Speed.PIDIntegratorLimit

	return &Controller{
		cfg:   cfg,
		comm:  comm,
		bemf:  bemf,
		ramp:  ramp,
		timer: timer,
		clock: clock,
		pid:   pid,
		cw:    true,
	}
}

// Mode returns the current state machine mode.
func (c *Controller) Mode() MotorMode {
	return c.mode
}

// Snapshot copies the controller state for telemetry.
func (c *Controller) Snapshot(out *Telemetry) {
	if out == nil {
		return
	}
	out.Mode = c.mode
	out.Step = c.step
	out.Duty = c.duty
	out.Clockwise = c.cw
	out.FaultCode = c.faultCode
	out.CommandRPM = c.commandRPM
	out.TargetRPM = c.targetRPM
	out.MeasuredRPM = c.measuredRPM
	c.bemf.Status(&out.BEMF)
	out.RampActive = c.ramp.Active()
	out.ZeroCrossings = c.bemf.CrossCount()
	out.Commutations = c.comm.Count()
}

// SetSpeedRPM commands a speed. Sign selects direction; zero regulates the
// motor down without floating it (use Stop to cut power). A sign flip while
// running is buffered: the regulator brings the rotor down first and the
// restart happens below the reversal threshold. Ignored in fault mode.
func (c *Controller) SetSpeedRPM(rpm float64) {
	if c.mode == ModeFault {
		return
	}

	wantCW := rpm >= 0
	mag := rpm
	if mag < 0 {
		mag = -mag
	}

	if c.mode == ModeStopped {
		if mag == 0 {
			return
		}
		c.commandRPM = mag
		c.reversePending = false
		c.startSequence(wantCW)
		return
	}

	if mag > 0 && wantCW != c.cw {
		if c.mode == ModeAligning || c.mode == ModeOpenLoop {
			// Rotor is barely moving during startup; restart in the
			// other direction instead of buffering.
			c.commandRPM = mag
			c.timer.Cancel()
			c.ramp.Stop()
			c.startSequence(wantCW)
			return
		}
		c.reversePending = true
		c.pendingCW = wantCW
		c.pendingRPM = mag
		c.commandRPM = 0
		return
	}

	c.reversePending = false
	c.commandRPM = mag
}

// Stop cuts power immediately: cancels any pending event, floats all phases
// and returns to STOPPED. Also the only way out of FAULT.
func (c *Controller) Stop() {
	prev := c.mode

	c.timer.Cancel()
	c.ramp.Stop()
	c.comm.Disable()

	c.mode = ModeStopped
	c.commArmed = false
	c.transitionScheduled = false
	c.consecutiveZC = 0
	c.reversePending = false
	c.commandRPM = 0
	c.targetRPM = 0
	c.measuredRPM = 0
	c.duty = 0
	c.stallTicks = 0
	c.faultCode = 0
	c.pid.Reset()

	if prev != ModeStopped {
		RecordEvent(EvtModeChange, c.step, c.clock.NowMicros(), uint32(ModeStopped), uint32(prev))
	}
}

// Fault shuts the power stage down and latches FAULT mode. The code lands in
// the event ring. Only Stop clears the latch.
func (c *Controller) Fault(code uint32) {
	c.timer.Cancel()
	c.ramp.Stop()
	c.comm.Disable()

	c.mode = ModeFault
	c.faultCode = code
	c.commArmed = false
	c.transitionScheduled = false
	c.reversePending = false
	c.duty = 0

	RecordEvent(EvtFault, c.step, c.clock.NowMicros(), code, 0)
	DebugPrintln("[MOTOR] fault latched, code=" + itoa(int(code)))
}

// FastLoop runs the commutation-rate control path. Call at the fast loop
// rate, after the measurement source has latched a fresh sample set.
func (c *Controller) FastLoop() {
	switch c.mode {
	case ModeOpenLoop:
		c.fastLoopOpen()
	case ModeClosedLoop:
		c.fastLoopClosed()
	}
}

// fastLoopOpen tracks the ramp's floating phase and arms the handover once
// the BEMF signal proves trustworthy at speed.
func (c *Controller) fastLoopOpen() {
	step, duty, cw := c.ramp.State()
	c.step = step
	c.duty = duty

	c.bemf.Process(FloatingPhase(step, cw))
	c.bemf.Status(&c.status)
	if !c.status.ZeroCrossDetected {
		return
	}
	c.bemf.ClearFlag()

	if c.transitionScheduled {
		return
	}
	if !c.status.Valid {
		c.consecutiveZC = 0
		return
	}

	// The crossing streak must hold above the entry speed; a handover from
	// a crawl has no flywheel energy to survive a bad first estimate.
	speedHz := 1e6 / (6 * c.status.PeriodUS)
	if speedHz < c.cfg.Commutation.HandoverMinSpeedHz {
		c.consecutiveZC = 0
		return
	}

	c.consecutiveZC++
	RecordEvent(EvtZeroCross, step, c.clock.NowMicros(), uint32(c.status.PeriodUS), c.consecutiveZC)

	if c.consecutiveZC >= c.cfg.Commutation.HandoverMinZC {
		c.scheduleTransition()
	}
}

// fastLoopClosed schedules the next commutation from each accepted
// zero-crossing.
func (c *Controller) fastLoopClosed() {
	c.bemf.Process(FloatingPhase(c.step, c.cw))
	c.bemf.Status(&c.status)
	if !c.status.ZeroCrossDetected {
		return
	}
	c.bemf.ClearFlag()

	// Lock must hold before a crossing is trusted to steer the bridge.
	if !c.status.Valid {
		return
	}
	if c.commArmed {
		return
	}

	remaining := c.remainingDelayUS()
	if remaining < c.cfg.Commutation.DelayMinUS {
		c.closedLoopCommutate()
		return
	}
	c.commArmed = true
	c.timer.Start(uint32(remaining), c.closedLoopCommutate)
}

// remainingDelayUS computes the time left until the ideal commutation
// instant: lead-scaled period minus the fast-loop latency already spent
// since the crossing.
func (c *Controller) remainingDelayUS() float64 {
	delay := c.status.PeriodUS * c.cfg.Commutation.LeadFactor
	if delay < c.cfg.Commutation.DelayMinUS {
		delay = c.cfg.Commutation.DelayMinUS
	} else if delay > c.cfg.Commutation.DelayMaxUS {
		delay = c.cfg.Commutation.DelayMaxUS
	}

	age := float64(c.clock.NowMicros() - c.bemf.LastZeroCrossTimeUS())
	return delay - age
}

// scheduleTransition arms the synchronous handover. Starting the shared
// one-shot replaces the ramp's pending step, so the last open-loop event and
// the first closed-loop event can never both fire.
func (c *Controller) scheduleTransition() {
	c.transitionScheduled = true

	remaining := c.remainingDelayUS()
	if remaining < c.cfg.Commutation.DelayMinUS {
		c.transitionCommutate()
		return
	}
	c.timer.Start(uint32(remaining), c.transitionCommutate)
}

// transitionCommutate fires the first closed-loop commutation, continuing
// the step sequence the ramp left off at.
func (c *Controller) transitionCommutate() {
	c.ramp.StopSoft()
	c.transitionScheduled = false

	if c.duty < c.cfg.Commutation.HandoverDutyFloor {
		c.duty = c.cfg.Commutation.HandoverDutyFloor
	}

	c.step = (c.step + 1) % 6
	c.comm.Commutate(c.step, c.duty, c.cw)

	c.mode = ModeClosedLoop
	c.stallTicks = 0
	c.consecutiveZC = 0

	// Bumpless regulator entry: the setpoint picks up from the actual
	// speed instead of yanking the duty toward the commanded one.
	c.targetRPM = c.rpmFromPeriodUS(c.status.PeriodUS)
	c.pid.Reset()

	RecordEvent(EvtHandover, c.step, c.clock.NowMicros(), uint32(c.status.PeriodUS), uint32(c.duty*1000))

	// Arm the follow-up immediately from the last observed period. The next
	// zero-crossing may land after the ideal instant at this speed, and an
	// unarmed first revolution loses the rotor.
	delay := c.status.PeriodUS * c.cfg.Commutation.LeadFactor
	if delay < c.cfg.Commutation.DelayMinUS {
		delay = c.cfg.Commutation.DelayMinUS
	} else if delay > c.cfg.Commutation.DelayMaxUS {
		delay = c.cfg.Commutation.DelayMaxUS
	}
	c.commArmed = true
	c.timer.Start(uint32(delay), c.closedLoopCommutate)
}

func (c *Controller) closedLoopCommutate() {
	c.commArmed = false
	if c.mode != ModeClosedLoop {
		// A stop or fault raced the timer.
		return
	}
	c.step = (c.step + 1) % 6
	c.comm.Commutate(c.step, c.duty, c.cw)
	RecordEvent(EvtCommutate, c.step, c.clock.NowMicros(), uint32(c.status.PeriodUS), 0)
}

// startSequence begins the align / ramp / handover chain. The alignment dwell
// runs on the shared one-shot so nothing blocks.
func (c *Controller) startSequence(cw bool) {
	c.cw = cw
	c.mode = ModeAligning
	c.step = 0
	c.commArmed = false
	c.transitionScheduled = false
	c.consecutiveZC = 0
	c.stallTicks = 0
	c.measuredRPM = 0
	c.targetRPM = 0
	c.bemf.Reset()
	c.pid.Reset()

	RecordEvent(EvtModeChange, 0, c.clock.NowMicros(), uint32(ModeAligning), 0)

	c.comm.Align(c.cfg.Align.Duty)
	c.timer.Start(c.cfg.Align.DurationMS*1000, c.alignDone)
}

func (c *Controller) alignDone() {
	if c.mode != ModeAligning {
		return
	}
	c.mode = ModeOpenLoop
	RecordEvent(EvtModeChange, 0, c.clock.NowMicros(), uint32(ModeOpenLoop), 0)

	rcfg := c.cfg.OpenLoopRamp
	rcfg.CW = c.cw
	c.ramp.Start(rcfg, c.rampDone)
}

// rampDone fires only when the ramp runs its full duration without a
// handover: the rotor never produced a usable BEMF signal. The ramp engine
// has already floated the outputs; fall back to STOPPED so the host can
// retry.
func (c *Controller) rampDone() {
	RecordEvent(EvtRampDone, c.step, c.clock.NowMicros(), 0, 0)
	DebugPrintln("[MOTOR] ramp finished without handover")
	c.mode = ModeStopped
	c.duty = 0
}
