//go:build rp2040

package main

import (
	"device/rp"
	"runtime/interrupt"

	"goesc/core"
)

// commutation alarm uses TIMER ALARM1; ALARM0 stays free for the TinyGo
// runtime.
const (
	alarmNum  = 1
	alarmMask = 1 << alarmNum
)

// alarmTimer is the hardware one-shot behind core.OneShotTimer. Writing the
// alarm register arms it; Start on an armed timer replaces the pending
// callback, which is the replace-on-start contract the ramp engine and
// controller share.
type alarmTimer struct {
	cb   core.OneShotCallback
	intr interrupt.Interrupt
}

var commAlarm alarmTimer

func initAlarmTimer() *alarmTimer {
	commAlarm.intr = interrupt.New(rp.IRQ_TIMER_IRQ_1, alarmISR)
	commAlarm.intr.Enable()
	rp.TIMER.INTE.SetBits(alarmMask)
	return &commAlarm
}

func alarmISR(interrupt.Interrupt) {
	rp.TIMER.INTR.Set(alarmMask) // write-1-to-clear
	cb := commAlarm.cb
	commAlarm.cb = nil
	if cb != nil {
		cb()
	}
}

func (t *alarmTimer) Start(delayUS uint32, cb core.OneShotCallback) bool {
	if cb == nil {
		return false
	}

	mask := interrupt.Disable()
	rp.TIMER.ARMED.Set(alarmMask) // disarm a pending alarm
	rp.TIMER.INTR.Set(alarmMask)
	t.cb = cb
	// Writing the target time arms the alarm. The comparator matches on the
	// low timer word, which is fine for delays below the 32-bit wrap.
	rp.TIMER.ALARM1.Set(rp.TIMER.TIMERAWL.Get() + delayUS)
	interrupt.Restore(mask)
	return true
}

func (t *alarmTimer) Cancel() {
	mask := interrupt.Disable()
	rp.TIMER.ARMED.Set(alarmMask)
	rp.TIMER.INTR.Set(alarmMask)
	t.cb = nil
	interrupt.Restore(mask)
}

func (t *alarmTimer) IsActive() bool {
	return rp.TIMER.ARMED.Get()&alarmMask != 0
}
