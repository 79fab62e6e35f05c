//go:build rp2040

package main

import (
	"machine"
)

var (
	debugUART *machine.UART
	debugOK   bool
)

// initDebugUART brings up UART0 on GPIO12/13 for debug prints, separate from
// the USB link so prints never corrupt frames.
func initDebugUART() {
	debugUART = machine.UART0

	err := debugUART.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GPIO12,
		RX:       machine.GPIO13,
	})
	if err != nil {
		debugOK = false
		return
	}
	debugOK = true
	debugPrintln("esc boot")
}

func debugPrintln(s string) {
	if !debugOK || debugUART == nil {
		return
	}
	debugUART.Write([]byte(s))
	debugUART.Write([]byte("\r\n"))
}
