// Package link binds the debug-link protocol to the motor controller. It
// decodes command frames, calls into the control core, and encodes the
// telemetry responses. The firmware drives one Service from its main loop;
// the host console speaks the same message set from the other end.
package link

import (
	"errors"

	"goesc/core"
	"goesc/monitor"
	"goesc/protocol"
)

var errUnknownCommand = errors.New("link: unknown command")

// Service is the firmware-side command dispatcher. Not safe for concurrent
// use; Receive runs in the same context as the control loops.
type Service struct {
	framer *protocol.Framer
	ctrl   *core.Controller
	mon    *monitor.Manager
	fast   *core.LoopRunner
	low    *core.LoopRunner

	// scratch, so the dispatch path stays allocation-free
	tele   core.Telemetry
	events [core.ControlRingSize]core.ControlEvent
}

// NewService wires a dispatcher. mon may be nil when no supervision source
// exists (bench sims without a power monitor).
func NewService(out protocol.OutputBuffer, ctrl *core.Controller, mon *monitor.Manager, fast, low *core.LoopRunner) *Service {
	s := &Service{ctrl: ctrl, mon: mon, fast: fast, low: low}
	s.framer = protocol.NewFramer(out, s.handle)
	return s
}

// Framer exposes the underlying framer for reset-handler registration.
func (s *Service) Framer() *protocol.Framer { return s.framer }

// Receive parses buffered link bytes and dispatches any complete commands.
func (s *Service) Receive(in protocol.InputBuffer) {
	s.framer.Receive(in)
}

func (s *Service) handle(msgID uint8, args *[]byte) error {
	switch msgID {
	case protocol.CmdPing:
		s.framer.Send(protocol.RspPong, nil)

	case protocol.CmdVersion:
		s.framer.Send(protocol.RspVersion, func(out protocol.OutputBuffer) {
			protocol.EncodeVLQString(out, protocol.Version)
		})

	case protocol.CmdSetSpeed:
		rpm, err := protocol.DecodeVLQInt(args)
		if err != nil {
			return err
		}
		s.ctrl.SetSpeedRPM(float64(rpm))

	case protocol.CmdStop:
		s.ctrl.Stop()

	case protocol.CmdSetSlope:
		slope, err := protocol.DecodeVLQUint(args)
		if err != nil {
			return err
		}
		s.ctrl.SetRampSlope(float64(slope))

	case protocol.CmdStatus:
		s.sendStatus()

	case protocol.CmdStats:
		s.sendStats()

	case protocol.CmdEvents:
		s.sendEvents()

	case protocol.CmdDebugEnable:
		v, err := protocol.DecodeVLQUint(args)
		if err != nil {
			return err
		}
		core.SetDebugEnabled(v != 0)

	case protocol.CmdPower:
		s.sendPower()

	case protocol.CmdClearFault:
		if s.mon != nil {
			s.mon.ClearLatch()
		}
		s.ctrl.Stop()

	default:
		return errUnknownCommand
	}
	return nil
}

func (s *Service) sendStatus() {
	s.ctrl.Snapshot(&s.tele)

	msg := protocol.Status{
		Mode:        uint8(s.tele.Mode),
		Step:        s.tele.Step,
		Clockwise:   s.tele.Clockwise,
		FaultCode:   s.tele.FaultCode,
		DutyMilli:   uint32(s.tele.Duty * 1000),
		CommandRPM:  int32(s.tele.CommandRPM),
		TargetRPM:   int32(s.tele.TargetRPM),
		MeasuredRPM: int32(s.tele.MeasuredRPM),
		PeriodUS:    uint32(s.tele.BEMF.PeriodUS),
		BEMFValid:   s.tele.BEMF.Valid,

		ZeroCrossings: s.tele.ZeroCrossings,
		Commutations:  s.tele.Commutations,
	}
	s.framer.Send(protocol.RspStatus, func(out protocol.OutputBuffer) {
		protocol.EncodeStatus(out, &msg)
	})
}

func (s *Service) sendStats() {
	var msg protocol.Stats
	if s.fast != nil {
		st := s.fast.Stats()
		msg.Fast = protocol.LoopStat{TickCount: st.TickCount, LastExecUS: st.LastExecUS, AvgExecUS: st.AvgExecUS}
	}
	if s.low != nil {
		st := s.low.Stats()
		msg.Low = protocol.LoopStat{TickCount: st.TickCount, LastExecUS: st.LastExecUS, AvgExecUS: st.AvgExecUS}
	}
	s.framer.Send(protocol.RspStats, func(out protocol.OutputBuffer) {
		protocol.EncodeStats(out, &msg)
	})
}

// sendPower ships the supervision readings. Without a supervision manager the
// response is all zeros, which the host shows as "no power monitor".
func (s *Service) sendPower() {
	var msg protocol.Power
	if s.mon != nil {
		var r monitor.Readings
		s.mon.Snapshot(&r)
		msg = protocol.Power{
			BusMilliVolts: uint32(r.BusVoltage * 1000),
			BusMilliAmps:  uint32(r.BusCurrent * 1000),
			TempDeciC:     int32(r.TempC * 10),
			Latched:       r.Latched,
			ReadErrs:      r.ReadErrs,
		}
	}
	s.framer.Send(protocol.RspPower, func(out protocol.OutputBuffer) {
		protocol.EncodePower(out, &msg)
	})
}

// sendEvents ships the event ring oldest first, one response per event, then
// clears the ring so each event is reported once.
func (s *Service) sendEvents() {
	n := core.CopyEventRing(s.events[:])
	for i := 0; i < n; i++ {
		evt := protocol.Event{
			Type:   s.events[i].EventType,
			Step:   s.events[i].Step,
			TimeUS: s.events[i].TimeUS,
			Value1: s.events[i].Value1,
			Value2: s.events[i].Value2,
		}
		s.framer.Send(protocol.RspEvent, func(out protocol.OutputBuffer) {
			protocol.EncodeEvent(out, &evt)
		})
	}
	core.ClearEventRing()
}
