package core

// MotorMeasurements holds one synchronized set of raw ADC samples. Raw counts
// (0-4095) are kept as-is so the producing ISR stays short; conversion to
// volts happens in the fast loop.
type MotorMeasurements struct {
	IPhaseARaw uint16
	IPhaseBRaw uint16
	IPhaseCRaw uint16

	VPhaseARaw uint16
	VPhaseBRaw uint16
	VPhaseCRaw uint16
}

// MeasurementSource delivers the latest synchronized sample set from the ADC
// producer.
//
// Contract: the producer writes a complete MotorMeasurements in one pass and
// then raises its data-ready flag; LatestMeasurements copies the set and
// clears the flag in one operation, so each sample is consumed at most once
// and never observed mid-update. Returns false when nothing new arrived since
// the previous call.
type MeasurementSource interface {
	LatestMeasurements(m *MotorMeasurements) bool
}
