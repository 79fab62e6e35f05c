//go:build rp2040

// Package pio provides the PIO-backed tachometer output: one hardware-timed
// pulse per commutation, for scopes and external RPM counters. The pulse is
// generated by a state machine, so commutation-interrupt latency never
// shows up in the pulse timing.
package pio

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// buildTachProgram assembles the pulse program. One FIFO word produces one
// fixed-width pulse:
//
//	pull block          ; wait for a commutation word
//	set pins, 1 [7]     ; pulse high, 8 cycles total
//	set pins, 0
//
// The wrap returns to the pull, so the state machine idles between
// commutations.
func buildTachProgram() []uint16 {
	return []uint16{
		rp2pio.EncodePull(false, true),
		rp2pio.EncodeSet(rp2pio.SrcDestPins, 1) | rp2pio.EncodeDelay(7),
		rp2pio.EncodeSet(rp2pio.SrcDestPins, 0),
	}
}

const tachProgramOrigin = 0

// Pulse width: 8 cycles at 1MHz (divider 125 from the 125MHz system clock)
// gives an 8us pulse, wide enough for any counter input.
const tachClockDiv = 125

// Tach owns one PIO state machine emitting commutation pulses.
type Tach struct {
	pio    *rp2pio.PIO
	sm     rp2pio.StateMachine
	pin    machine.Pin
	offset uint8
}

// NewTach binds a tach output to a PIO block and state machine.
func NewTach(pioNum, smNum uint8) *Tach {
	pioHW := rp2pio.PIO0
	if pioNum != 0 {
		pioHW = rp2pio.PIO1
	}
	return &Tach{pio: pioHW, sm: pioHW.StateMachine(smNum)}
}

// Init loads the program and starts the state machine on pin.
func (t *Tach) Init(pin machine.Pin) error {
	t.pin = pin
	t.sm.TryClaim()

	program := buildTachProgram()
	offset, err := t.pio.AddProgram(program, tachProgramOrigin)
	if err != nil {
		return err
	}
	t.offset = offset

	pin.Configure(machine.PinConfig{Mode: t.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(pin, 1)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(tachClockDiv, 0)

	t.sm.Init(offset, cfg)
	t.sm.SetPindirsConsecutive(pin, 1, true)
	t.sm.SetPinsConsecutive(pin, 1, false)
	t.sm.SetEnabled(true)
	return nil
}

// Pulse queues one output pulse. Safe from interrupt context: if the FIFO is
// full the pulse is dropped rather than waited for.
func (t *Tach) Pulse() {
	if t.sm.IsTxFIFOFull() {
		return
	}
	t.sm.TxPut(1)
}

// Stop halts the state machine and clears any queued pulses.
func (t *Tach) Stop() {
	t.sm.SetEnabled(false)
	t.sm.ClearFIFOs()
	t.sm.Restart()
}
