package sim

import "goesc/core"

// Feed is the simulated ADC producer: the bench publishes one sample set per
// fast tick and the control core consumes it at most once, mirroring the
// data-ready handshake of the hardware source.
type Feed struct {
	pending bool
	meas    core.MotorMeasurements
}

// Publish stores a fresh sample set and raises the data-ready flag.
func (f *Feed) Publish(m core.MotorMeasurements) {
	f.meas = m
	f.pending = true
}

// LatestMeasurements implements core.MeasurementSource.
func (f *Feed) LatestMeasurements(out *core.MotorMeasurements) bool {
	if !f.pending {
		return false
	}
	*out = f.meas
	f.pending = false
	return true
}
