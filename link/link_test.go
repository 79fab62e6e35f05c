package link

import (
	"testing"

	"github.com/stretchr/testify/require"

	"goesc/core"
	"goesc/monitor"
	"goesc/protocol"
	"goesc/sim"
)

// steadySource feeds the supervision manager fixed readings.
type steadySource struct {
	volts, amps, tempC float64
}

func (s steadySource) ReadElectrical() (float64, float64, error) {
	return s.volts, s.amps, nil
}

func (s steadySource) ReadTemperature() (float64, error) {
	return s.tempC, nil
}

// testHost is a minimal host end of the link: it sends commands with its own
// framer and decodes every response promiscuously.
type testHost struct {
	t       *testing.T
	out     *protocol.ScratchOutput
	framer  *protocol.Framer
	service *Service
	escOut  *protocol.ScratchOutput

	responses []uint8
	version   string
	status    protocol.Status
	stats     protocol.Stats
	power     protocol.Power
	events    []protocol.Event
}

func newTestHost(t *testing.T, bench *sim.Bench) *testHost {
	return newTestHostWithMon(t, bench, nil)
}

func newTestHostWithMon(t *testing.T, bench *sim.Bench, mon *monitor.Manager) *testHost {
	h := &testHost{t: t, out: protocol.NewScratchOutput(), escOut: protocol.NewScratchOutput()}
	h.service = NewService(h.escOut, bench.Ctrl, mon, bench.FastRunner, bench.LowRunner)
	h.framer = protocol.NewFramer(h.out, h.handle)
	h.framer.Promiscuous = true
	return h
}

func (h *testHost) handle(msgID uint8, args *[]byte) error {
	h.responses = append(h.responses, msgID)
	var err error
	switch msgID {
	case protocol.RspPong:
	case protocol.RspVersion:
		h.version, err = protocol.DecodeVLQString(args)
	case protocol.RspStatus:
		h.status, err = protocol.DecodeStatus(args)
	case protocol.RspStats:
		h.stats, err = protocol.DecodeStats(args)
	case protocol.RspPower:
		h.power, err = protocol.DecodePower(args)
	case protocol.RspEvent:
		var evt protocol.Event
		evt, err = protocol.DecodeEvent(args)
		h.events = append(h.events, evt)
	}
	require.NoError(h.t, err)
	return nil
}

// send pushes one command through the service and parses whatever came back.
func (h *testHost) send(msgID uint8, args func(protocol.OutputBuffer)) {
	h.out.Reset()
	h.framer.Send(msgID, args)
	h.framer.AdvanceSeq()
	h.service.Receive(protocol.NewSliceInput(h.out.Result()))

	h.framer.Receive(protocol.NewSliceInput(h.escOut.Result()))
	h.escOut.Reset()
}

func newLinkBench(t *testing.T) (*sim.Bench, *testHost) {
	core.ClearEventRing()
	bench := sim.NewBench(core.DefaultConfig())
	return bench, newTestHost(t, bench)
}

func TestLinkPing(t *testing.T) {
	_, host := newLinkBench(t)

	host.send(protocol.CmdPing, nil)
	require.Equal(t, []uint8{protocol.RspPong}, host.responses)
}

func TestLinkVersion(t *testing.T) {
	_, host := newLinkBench(t)

	host.send(protocol.CmdVersion, nil)
	require.Equal(t, protocol.Version, host.version)
}

func TestLinkSetSpeedStartsController(t *testing.T) {
	bench, host := newLinkBench(t)

	host.send(protocol.CmdSetSpeed, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQInt(out, 2000)
	})
	require.Equal(t, core.ModeAligning, bench.Ctrl.Mode())

	host.send(protocol.CmdStatus, nil)
	require.Equal(t, uint8(core.ModeAligning), host.status.Mode)
	require.Equal(t, int32(2000), host.status.CommandRPM)
	require.True(t, host.status.Clockwise)

	host.send(protocol.CmdStop, nil)
	require.Equal(t, core.ModeStopped, bench.Ctrl.Mode())
}

func TestLinkNegativeSpeedSelectsCCW(t *testing.T) {
	_, host := newLinkBench(t)

	host.send(protocol.CmdSetSpeed, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQInt(out, -1500)
	})
	host.send(protocol.CmdStatus, nil)
	require.False(t, host.status.Clockwise)
	require.Equal(t, int32(1500), host.status.CommandRPM)
}

func TestLinkStatsReportLoopTicks(t *testing.T) {
	bench, host := newLinkBench(t)

	bench.AdvanceMillis(5)
	host.send(protocol.CmdStats, nil)

	require.Greater(t, host.stats.Fast.TickCount, uint32(100))
	require.Equal(t, uint32(5), host.stats.Low.TickCount)
}

func TestLinkEventsDrainRing(t *testing.T) {
	_, host := newLinkBench(t)

	core.RecordEvent(core.EvtZeroCross, 2, 1000, 2048, 0)
	core.RecordEvent(core.EvtCommutate, 3, 1900, 0, 0)

	host.send(protocol.CmdEvents, nil)
	require.Len(t, host.events, 2)
	require.Equal(t, uint8(core.EvtZeroCross), host.events[0].Type)
	require.Equal(t, uint8(core.EvtCommutate), host.events[1].Type)
	require.Equal(t, uint32(1900), host.events[1].TimeUS)

	host.events = nil
	host.send(protocol.CmdEvents, nil)
	require.Empty(t, host.events, "ring must be cleared after a dump")
}

func TestLinkPowerReportsSupervisionReadings(t *testing.T) {
	core.ClearEventRing()
	bench := sim.NewBench(core.DefaultConfig())
	mon := monitor.NewManager(monitor.DefaultConfig(), steadySource{volts: 14.8, amps: 2.5, tempC: 31.5}, bench.Ctrl)
	host := newTestHostWithMon(t, bench, mon)

	mon.Tick()
	host.send(protocol.CmdPower, nil)

	require.Equal(t, uint32(14800), host.power.BusMilliVolts)
	require.Equal(t, uint32(2500), host.power.BusMilliAmps)
	require.Equal(t, int32(315), host.power.TempDeciC)
	require.False(t, host.power.Latched)
}

func TestLinkPowerWithoutMonitorIsZero(t *testing.T) {
	_, host := newLinkBench(t)

	host.send(protocol.CmdPower, nil)
	require.Equal(t, []uint8{protocol.RspPower}, host.responses)
	require.Equal(t, protocol.Power{}, host.power)
}

func TestLinkClearFaultRearmsController(t *testing.T) {
	bench, host := newLinkBench(t)

	bench.Ctrl.Fault(core.FaultOvercurrent)
	require.Equal(t, core.ModeFault, bench.Ctrl.Mode())

	host.send(protocol.CmdStatus, nil)
	require.Equal(t, core.FaultOvercurrent, host.status.FaultCode)

	host.send(protocol.CmdClearFault, nil)
	require.Equal(t, core.ModeStopped, bench.Ctrl.Mode())

	host.send(protocol.CmdSetSpeed, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQInt(out, 1000)
	})
	require.Equal(t, core.ModeAligning, bench.Ctrl.Mode())
}

func TestLinkUnknownCommandIgnored(t *testing.T) {
	bench, host := newLinkBench(t)

	host.send(0x3F, nil)
	require.Empty(t, host.responses)
	require.Equal(t, core.ModeStopped, bench.Ctrl.Mode())

	// The link keeps working afterwards.
	host.send(protocol.CmdPing, nil)
	require.Equal(t, []uint8{protocol.RspPong}, host.responses)
}
