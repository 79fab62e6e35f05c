//go:build rp2040

package main

import (
	"errors"
	"machine"

	"tinygo.org/x/drivers/ina260"
)

// I2C bus for the INA260 power monitor.
const (
	powerMonSDA = machine.GPIO8
	powerMonSCL = machine.GPIO9
)

var errPowerMonMissing = errors.New("ina260 not responding")

// powerMonitor backs monitor.Source with an INA260 on the bus input and the
// RP2040's on-die temperature sensor.
type powerMonitor struct {
	dev ina260.Device
	ok  bool
}

func newPowerMonitor() (*powerMonitor, error) {
	err := machine.I2C0.Configure(machine.I2CConfig{
		Frequency: 400000,
		SDA:       powerMonSDA,
		SCL:       powerMonSCL,
	})
	if err != nil {
		return nil, err
	}

	p := &powerMonitor{dev: ina260.New(machine.I2C0)}
	if !p.dev.Connected() {
		return nil, errPowerMonMissing
	}
	p.dev.Configure()
	p.ok = true
	return p, nil
}

// ReadElectrical returns bus voltage and current. The INA260 reports
// microvolts and microamps.
func (p *powerMonitor) ReadElectrical() (volts, amps float64, err error) {
	if !p.ok {
		return 0, 0, errPowerMonMissing
	}
	volts = float64(p.dev.Voltage()) / 1e6
	amps = float64(p.dev.Current()) / 1e6
	return volts, amps, nil
}

// ReadTemperature returns the die temperature in Celsius. A board NTC would
// be better placed thermally, but the die tracks the power stage well enough
// for a shutdown threshold.
func (p *powerMonitor) ReadTemperature() (float64, error) {
	return float64(machine.ReadTemperature()) / 1000, nil
}
