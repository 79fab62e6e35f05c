package core

// Speed regulation, run from the low loop.

// SlopeMinRPMPerTick / SlopeMaxRPMPerTick bound the configurable setpoint
// slew rate.
const (
	SlopeMinRPMPerTick = 1
	SlopeMaxRPMPerTick = 500
)

// rpmFromPeriodUS converts an electrical commutation interval (one sixth of
// the electrical period) to mechanical RPM.
func (c *Controller) rpmFromPeriodUS(periodUS float64) float64 {
	if periodUS <= 0 {
		return 0
	}
	electricalHz := 1e6 / (6 * periodUS)
	return electricalHz * 60 / float64(c.cfg.Commutation.PolePairs)
}

// SetRampSlope changes the setpoint slew rate in RPM per low-loop tick,
// clamped to the supported range.
func (c *Controller) SetRampSlope(rpmPerTick float64) {
	if rpmPerTick < SlopeMinRPMPerTick {
		rpmPerTick = SlopeMinRPMPerTick
	} else if rpmPerTick > SlopeMaxRPMPerTick {
		rpmPerTick = SlopeMaxRPMPerTick
	}
	c.cfg.Speed.SlopeRPMPerTick = rpmPerTick
}

// RampSlope returns the current setpoint slew rate.
func (c *Controller) RampSlope() float64 {
	return c.cfg.Speed.SlopeRPMPerTick
}

// LowLoop runs one speed-regulation tick. Call at the low loop rate (the
// PID sample time assumes 1 kHz).
func (c *Controller) LowLoop() {
	var st BEMFStatus
	c.bemf.Status(&st)

	// Hold the last measurement through a dropout. Zeroing it here would
	// fire a buffered reversal at speed and hand the PID a huge false
	// error on a single invalid tick.
	if st.Valid && st.PeriodUS > 0 {
		c.measuredRPM = c.rpmFromPeriodUS(st.PeriodUS)
	}

	if c.mode != ModeClosedLoop {
		return
	}

	c.slewTarget()

	if c.reversePending && c.measuredRPM < c.cfg.Speed.ReverseBelowRPM {
		c.executeReversal()
		return
	}

	// A dead signal produces no crossings at all, rejected or accepted, so
	// the lock flag alone can go stale. Crossing age past the period
	// ceiling counts as a stall tick too.
	ageUS := c.clock.NowMicros() - c.bemf.LastZeroCrossTimeUS()
	if !st.Valid || float64(ageUS) > c.cfg.BEMF.MaxPeriodUS {
		if c.cfg.Speed.StallStopTicks > 0 {
			c.stallTicks++
			if c.stallTicks >= c.cfg.Speed.StallStopTicks {
				RecordEvent(EvtFault, c.step, c.clock.NowMicros(), FaultStall, uint32(c.stallTicks))
				DebugPrintln("[MOTOR] stall detected, stopping")
				c.Stop()
				return
			}
		}
	} else {
		c.stallTicks = 0
	}

	if st.Valid {
		c.duty = c.pid.Update(c.targetRPM, c.measuredRPM)
	}
}

// slewTarget moves the internal setpoint toward the commanded speed by at
// most one slope step.
func (c *Controller) slewTarget() {
	diff := c.commandRPM - c.targetRPM
	slope := c.cfg.Speed.SlopeRPMPerTick
	if diff > slope {
		diff = slope
	} else if diff < -slope {
		diff = -slope
	}
	c.targetRPM += diff
}

// executeReversal restarts the motor in the buffered direction once the
// rotor has slowed under the reversal threshold.
func (c *Controller) executeReversal() {
	c.reversePending = false
	c.commandRPM = c.pendingRPM

	RecordEvent(EvtReverse, c.step, c.clock.NowMicros(), uint32(c.pendingRPM), 0)
	DebugPrintln("[MOTOR] reversing direction")

	c.timer.Cancel()
	c.comm.Disable()
	c.startSequence(c.pendingCW)
}
