package sim

import "goesc/core"

// Loop cadence of the reference firmware: 24 kHz fast loop, 1 kHz low loop.
const (
	FastPeriodUS = 42
	LowPeriodUS  = 1000
)

// Bench wires the full control composition (controller, BEMF monitor, ramp
// engine, commutator) to the simulated clock, one-shot, inverter and rotor,
// and advances everything in deterministic event order.
type Bench struct {
	Clock *Clock
	Timer *OneShot
	Inv   *Inverter
	Motor *Motor
	Feed  *Feed
	Ctrl  *core.Controller

	FastRunner *core.LoopRunner
	LowRunner  *core.LoopRunner

	nextFastUS  uint64
	nextLowUS   uint64
	lastMotorUS uint64
}

// NewBench builds a bench around a controller configuration and the default
// rotor.
func NewBench(cfg core.Config) *Bench {
	clock := &Clock{}
	timer := NewOneShot(clock)
	inv := NewInverter()
	motor := NewMotor(DefaultMotorParams())
	feed := &Feed{}

	comm := core.NewCommutator(inv)
	bemf := core.NewBEMFMonitor(cfg.BEMF, feed, clock)
	ramp := core.NewRampEngine(comm, timer)
	ctrl := core.NewController(cfg, comm, bemf, ramp, timer, clock)

	b := &Bench{
		Clock:      clock,
		Timer:      timer,
		Inv:        inv,
		Motor:      motor,
		Feed:       feed,
		Ctrl:       ctrl,
		nextFastUS: FastPeriodUS,
		nextLowUS:  LowPeriodUS,
	}
	b.FastRunner = core.NewLoopRunner("fast", clock, ctrl.FastLoop)
	b.LowRunner = core.NewLoopRunner("low", clock, ctrl.LowLoop)
	b.FastRunner.Start()
	b.LowRunner.Start()
	return b
}

type eventKind int

const (
	evTimer eventKind = iota
	evFast
	evLow
)

// Advance runs the bench forward by durationUS, dispatching loop ticks and
// one-shot expiries in timestamp order. A one-shot due at the same instant
// as a loop tick fires first, matching interrupt priority on the target.
func (b *Bench) Advance(durationUS uint64) {
	end := b.Clock.NowUS() + durationUS

	for {
		next := b.nextFastUS
		kind := evFast
		if b.nextLowUS < next {
			next = b.nextLowUS
			kind = evLow
		}
		if dl, armed := b.Timer.DeadlineUS(); armed && dl <= next {
			next = dl
			kind = evTimer
		}
		if next > end {
			break
		}

		b.stepMotorTo(next)
		b.Clock.AdvanceTo(next)

		switch kind {
		case evTimer:
			b.Timer.Fire()
		case evFast:
			b.Feed.Publish(b.Motor.Sample(b.Inv))
			b.FastRunner.Tick()
			b.nextFastUS += FastPeriodUS
		case evLow:
			b.LowRunner.Tick()
			b.nextLowUS += LowPeriodUS
		}
	}

	b.stepMotorTo(end)
	b.Clock.AdvanceTo(end)
}

// AdvanceMillis runs the bench forward by whole milliseconds.
func (b *Bench) AdvanceMillis(ms uint64) {
	b.Advance(ms * 1000)
}

func (b *Bench) stepMotorTo(us uint64) {
	if us <= b.lastMotorUS {
		return
	}
	b.Motor.Step(b.Inv, us-b.lastMotorUS)
	b.lastMotorUS = us
}
