//go:build rp2040

package main

import (
	"machine"
	"time"

	"goesc/core"
	"goesc/link"
	"goesc/monitor"
	"goesc/protocol"
	tach "goesc/targets/pio"
)

// Loop cadence: the fast loop matches the 24kHz PWM rate, the low loop runs
// the speed regulator at 1kHz, and the supervision tick reads the I2C power
// monitor at 100Hz.
const (
	fastPeriodUS    = 42
	lowPeriodUS     = 1000
	monitorPeriodUS = 10000
)

const tachPin = machine.GPIO22

func main() {
	// Clear any watchdog state left over from a previous reset.
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	initUSB()
	initDebugUART()
	core.SetDebugWriter(debugPrintln)

	clock := hwClock{}

	inv, err := newEscInverter()
	if err != nil {
		halt("pwm init failed: " + err.Error())
	}
	feed, err := newADCFeed()
	if err != nil {
		halt("adc init failed: " + err.Error())
	}
	timer := initAlarmTimer()

	cfg := core.DefaultConfig()
	comm := core.NewCommutator(inv)
	bemf := core.NewBEMFMonitor(cfg.BEMF, feed, clock)
	ramp := core.NewRampEngine(comm, timer)
	ctrl := core.NewController(cfg, comm, bemf, ramp, timer, clock)

	tachOut := tach.NewTach(0, 0)
	if err := tachOut.Init(tachPin); err != nil {
		debugPrintln("tach init failed: " + err.Error())
	} else {
		comm.SetCommutateHook(tachOut.Pulse)
	}

	// Supervision is optional: a board without the INA260 still spins, it
	// just loses the electrical fault coverage.
	var mon *monitor.Manager
	if pm, err := newPowerMonitor(); err != nil {
		debugPrintln("power monitor disabled: " + err.Error())
	} else {
		mon = monitor.NewManager(monitor.DefaultConfig(), pm, ctrl)
	}

	fastRunner := core.NewLoopRunner("fast", clock, func() {
		feed.Sample()
		ctrl.FastLoop()
	})
	lowRunner := core.NewLoopRunner("low", clock, ctrl.LowLoop)
	fastRunner.Start()
	lowRunner.Start()

	linkOut := protocol.NewScratchOutput()
	svc := link.NewService(linkOut, ctrl, mon, fastRunner, lowRunner)
	svc.Framer().SetResetHandler(func() {
		// Fresh host session: stop the motor rather than keep spinning
		// under a controller nobody is watching.
		ctrl.Stop()
	})

	rxFifo := protocol.NewFifo(256)

	debugPrintln("esc ready")
	runControl(clock, fastRunner, lowRunner, mon, svc, rxFifo, linkOut)
}

// runControl is the cooperative main loop. The one-shot commutation timer
// preempts it via the alarm interrupt; everything here runs at loop cadence.
func runControl(clock hwClock, fast, low *core.LoopRunner, mon *monitor.Manager,
	svc *link.Service, rxFifo *protocol.Fifo, linkOut *protocol.ScratchOutput) {

	now := clock.NowMicros()
	nextFast := now + fastPeriodUS
	nextLow := now + lowPeriodUS
	nextMon := now + monitorPeriodUS

	var rxScratch [64]byte

	for {
		now = clock.NowMicros()

		// Signed wrap-safe "now >= deadline" comparisons.
		if int32(now-nextFast) >= 0 {
			fast.Tick()
			nextFast += fastPeriodUS
		}
		if int32(now-nextLow) >= 0 {
			low.Tick()
			nextLow += lowPeriodUS
		}
		if int32(now-nextMon) >= 0 {
			if mon != nil {
				mon.Tick()
			}
			nextMon += monitorPeriodUS
		}

		n := 0
		for n < len(rxScratch) && n < rxFifo.Free() && usbBuffered() > 0 {
			b, err := usbReadByte()
			if err != nil {
				break
			}
			rxScratch[n] = b
			n++
		}
		if n > 0 {
			rxFifo.Write(rxScratch[:n])
		}
		if rxFifo.Available() > 0 {
			svc.Receive(rxFifo)
		}
		if out := linkOut.Result(); len(out) > 0 {
			usbWriteAll(out)
			linkOut.Reset()
		}

		// Yield so the TinyGo scheduler can service USB.
		time.Sleep(5 * time.Microsecond)
	}
}

// halt reports a fatal init error forever; the power stage was never
// enabled, so the motor stays floating.
func halt(msg string) {
	for {
		debugPrintln(msg)
		time.Sleep(time.Second)
	}
}
