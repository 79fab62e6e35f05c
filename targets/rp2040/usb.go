//go:build rp2040

package main

import (
	"machine"
)

// The debug link runs over USB CDC. On the RP2040, machine.Serial is the
// CDC endpoint; TinyGo's runtime provides the descriptors.
func initUSB() {
	machine.Serial.Configure(machine.UARTConfig{})
}

func usbBuffered() int {
	return machine.Serial.Buffered()
}

func usbReadByte() (byte, error) {
	return machine.Serial.ReadByte()
}

// usbWriteAll pushes the whole buffer out, tolerating partial writes.
// Returns false when the host has gone away.
func usbWriteAll(data []byte) bool {
	written := 0
	for written < len(data) {
		n, err := machine.Serial.Write(data[written:])
		if err != nil || n == 0 {
			return false
		}
		written += n
	}
	return true
}
