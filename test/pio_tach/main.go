//go:build rp2040

package main

// Tach pulse bring-up: fires the PIO tachometer output at a sweep of
// commutation rates. Watch on an oscilloscope: each pulse should be 8us wide
// and the pulse rate should step through the table below.

import (
	"machine"
	"time"

	"goesc/targets/pio"
)

const tachPin = machine.GPIO22

var rateTests = []struct {
	interval time.Duration
	name     string
}{
	{10 * time.Millisecond, "100 Hz (idle)"},
	{2 * time.Millisecond, "500 Hz (spin-up)"},
	{500 * time.Microsecond, "2 kHz (cruise)"},
	{100 * time.Microsecond, "10 kHz (max electrical)"},
}

func main() {
	time.Sleep(2 * time.Second)
	println("tach bring-up on GPIO22")

	tach := pio.NewTach(0, 0)
	if err := tach.Init(tachPin); err != nil {
		for {
			println("tach init failed:", err.Error())
			time.Sleep(time.Second)
		}
	}

	for {
		for _, tc := range rateTests {
			println("rate:", tc.name)
			end := time.Now().Add(3 * time.Second)
			for time.Now().Before(end) {
				tach.Pulse()
				time.Sleep(tc.interval)
			}
		}
	}
}
