package protocol

// Status is the controller snapshot carried by RspStatus. Duty is scaled by
// 1000 so the wire format stays integer.
type Status struct {
	Mode        uint8
	Step        uint8
	Clockwise   bool
	FaultCode   uint32
	DutyMilli   uint32
	CommandRPM  int32
	TargetRPM   int32
	MeasuredRPM int32
	PeriodUS    uint32
	BEMFValid   bool

	ZeroCrossings uint32
	Commutations  uint32
}

// EncodeStatus writes a Status payload.
func EncodeStatus(out OutputBuffer, s *Status) {
	EncodeVLQUint(out, uint32(s.Mode))
	EncodeVLQUint(out, uint32(s.Step))
	EncodeVLQUint(out, boolBit(s.Clockwise)|boolBit(s.BEMFValid)<<1)
	EncodeVLQUint(out, s.FaultCode)
	EncodeVLQUint(out, s.DutyMilli)
	EncodeVLQInt(out, s.CommandRPM)
	EncodeVLQInt(out, s.TargetRPM)
	EncodeVLQInt(out, s.MeasuredRPM)
	EncodeVLQUint(out, s.PeriodUS)
	EncodeVLQUint(out, s.ZeroCrossings)
	EncodeVLQUint(out, s.Commutations)
}

// DecodeStatus reads a Status payload.
func DecodeStatus(data *[]byte) (Status, error) {
	var s Status
	var err error
	var v uint32

	if v, err = DecodeVLQUint(data); err != nil {
		return s, err
	}
	s.Mode = uint8(v)
	if v, err = DecodeVLQUint(data); err != nil {
		return s, err
	}
	s.Step = uint8(v)
	if v, err = DecodeVLQUint(data); err != nil {
		return s, err
	}
	s.Clockwise = v&1 != 0
	s.BEMFValid = v&2 != 0
	if s.FaultCode, err = DecodeVLQUint(data); err != nil {
		return s, err
	}
	if s.DutyMilli, err = DecodeVLQUint(data); err != nil {
		return s, err
	}
	if s.CommandRPM, err = DecodeVLQInt(data); err != nil {
		return s, err
	}
	if s.TargetRPM, err = DecodeVLQInt(data); err != nil {
		return s, err
	}
	if s.MeasuredRPM, err = DecodeVLQInt(data); err != nil {
		return s, err
	}
	if s.PeriodUS, err = DecodeVLQUint(data); err != nil {
		return s, err
	}
	if s.ZeroCrossings, err = DecodeVLQUint(data); err != nil {
		return s, err
	}
	if s.Commutations, err = DecodeVLQUint(data); err != nil {
		return s, err
	}
	return s, nil
}

// LoopStat is one loop's runtime metrics inside RspStats.
type LoopStat struct {
	TickCount  uint32
	LastExecUS uint32
	AvgExecUS  uint32
}

// Stats carries both loop metrics.
type Stats struct {
	Fast LoopStat
	Low  LoopStat
}

// EncodeStats writes a Stats payload.
func EncodeStats(out OutputBuffer, s *Stats) {
	for _, l := range []*LoopStat{&s.Fast, &s.Low} {
		EncodeVLQUint(out, l.TickCount)
		EncodeVLQUint(out, l.LastExecUS)
		EncodeVLQUint(out, l.AvgExecUS)
	}
}

// DecodeStats reads a Stats payload.
func DecodeStats(data *[]byte) (Stats, error) {
	var s Stats
	for _, l := range []*LoopStat{&s.Fast, &s.Low} {
		var err error
		if l.TickCount, err = DecodeVLQUint(data); err != nil {
			return s, err
		}
		if l.LastExecUS, err = DecodeVLQUint(data); err != nil {
			return s, err
		}
		if l.AvgExecUS, err = DecodeVLQUint(data); err != nil {
			return s, err
		}
	}
	return s, nil
}

// Event is one control event inside RspEvent.
type Event struct {
	Type   uint8
	Step   uint8
	TimeUS uint32
	Value1 uint32
	Value2 uint32
}

// EncodeEvent writes an Event payload.
func EncodeEvent(out OutputBuffer, e *Event) {
	EncodeVLQUint(out, uint32(e.Type))
	EncodeVLQUint(out, uint32(e.Step))
	EncodeVLQUint(out, e.TimeUS)
	EncodeVLQUint(out, e.Value1)
	EncodeVLQUint(out, e.Value2)
}

// DecodeEvent reads an Event payload.
func DecodeEvent(data *[]byte) (Event, error) {
	var e Event
	var err error
	var v uint32

	if v, err = DecodeVLQUint(data); err != nil {
		return e, err
	}
	e.Type = uint8(v)
	if v, err = DecodeVLQUint(data); err != nil {
		return e, err
	}
	e.Step = uint8(v)
	if e.TimeUS, err = DecodeVLQUint(data); err != nil {
		return e, err
	}
	if e.Value1, err = DecodeVLQUint(data); err != nil {
		return e, err
	}
	if e.Value2, err = DecodeVLQUint(data); err != nil {
		return e, err
	}
	return e, nil
}

// Power is the electrical snapshot carried by RspPower. Voltage and current
// are scaled by 1000 (millivolts, milliamps), temperature by 10 (tenths of a
// degree Celsius), keeping the wire format integer like Status.
type Power struct {
	BusMilliVolts uint32
	BusMilliAmps  uint32
	TempDeciC     int32
	Latched       bool
	ReadErrs      uint32
}

// EncodePower writes a Power payload.
func EncodePower(out OutputBuffer, p *Power) {
	EncodeVLQUint(out, p.BusMilliVolts)
	EncodeVLQUint(out, p.BusMilliAmps)
	EncodeVLQInt(out, p.TempDeciC)
	EncodeVLQUint(out, boolBit(p.Latched))
	EncodeVLQUint(out, p.ReadErrs)
}

// DecodePower reads a Power payload.
func DecodePower(data *[]byte) (Power, error) {
	var p Power
	var err error
	var v uint32

	if p.BusMilliVolts, err = DecodeVLQUint(data); err != nil {
		return p, err
	}
	if p.BusMilliAmps, err = DecodeVLQUint(data); err != nil {
		return p, err
	}
	if p.TempDeciC, err = DecodeVLQInt(data); err != nil {
		return p, err
	}
	if v, err = DecodeVLQUint(data); err != nil {
		return p, err
	}
	p.Latched = v != 0
	if p.ReadErrs, err = DecodeVLQUint(data); err != nil {
		return p, err
	}
	return p, nil
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
