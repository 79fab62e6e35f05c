package esc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"goesc/core"
	"goesc/host/serial"
	"goesc/link"
	"goesc/protocol"
	"goesc/sim"
)

const rspTimeout = 2 * time.Second

// TestMain checks for leaked goroutines once everything has shut down; a
// per-test check would run before the cleanup that closes the client. glog
// keeps a flush daemon for the life of the process.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/golang/glog.(*fileSink).flushDaemon"))
}

// fakeFirmware runs a simulated controller behind the far end of a loopback
// pipe: read bytes, dispatch through the link service, flush responses back.
type fakeFirmware struct {
	port serial.Port
	out  *protocol.ScratchOutput
	svc  *link.Service
	done chan struct{}
}

func startFirmware(port serial.Port) *fakeFirmware {
	core.ClearEventRing()
	bench := sim.NewBench(core.DefaultConfig())
	out := protocol.NewScratchOutput()
	fw := &fakeFirmware{
		port: port,
		out:  out,
		svc:  link.NewService(out, bench.Ctrl, nil, bench.FastRunner, bench.LowRunner),
		done: make(chan struct{}),
	}

	go func() {
		defer close(fw.done)
		fifo := protocol.NewFifo(1024)
		buf := make([]byte, 256)
		for {
			n, err := port.Read(buf)
			if n > 0 {
				fifo.Write(buf[:n])
				fw.svc.Receive(fifo)
				if resp := fw.out.Result(); len(resp) > 0 {
					if _, werr := port.Write(resp); werr != nil {
						return
					}
					fw.out.Reset()
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return fw
}

func newTestClient(t *testing.T) (*Client, *fakeFirmware) {
	hostEnd, escEnd := serial.Pipe()
	fw := startFirmware(escEnd)
	client := ConnectPort(hostEnd)
	t.Cleanup(func() {
		client.Close()
		<-fw.done
	})
	return client, fw
}

func TestClientPing(t *testing.T) {
	client, _ := newTestClient(t)

	require.NoError(t, client.Ping(rspTimeout))
}

func TestClientVersion(t *testing.T) {
	client, _ := newTestClient(t)

	v, err := client.Version(rspTimeout)
	require.NoError(t, err)
	require.Equal(t, protocol.Version, v)
}

func TestClientSetSpeedReflectsInStatus(t *testing.T) {
	client, _ := newTestClient(t)

	require.NoError(t, client.SetSpeed(2000))

	st, err := client.Status(rspTimeout)
	require.NoError(t, err)
	require.Equal(t, uint8(core.ModeAligning), st.Mode)
	require.Equal(t, int32(2000), st.CommandRPM)
	require.True(t, st.Clockwise)

	require.NoError(t, client.Stop())
	st, err = client.Status(rspTimeout)
	require.NoError(t, err)
	require.Equal(t, uint8(core.ModeStopped), st.Mode)
}

func TestClientStats(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.Stats(rspTimeout)
	require.NoError(t, err)
}

func TestClientPowerWithoutMonitorIsZero(t *testing.T) {
	client, _ := newTestClient(t)

	p, err := client.Power(rspTimeout)
	require.NoError(t, err)
	require.Equal(t, protocol.Power{}, p)
}

func TestClientEventsDrainFirmwareRing(t *testing.T) {
	client, _ := newTestClient(t)

	core.RecordEvent(core.EvtHandover, 3, 123456, 900, 0)

	events, err := client.Events(200 * time.Millisecond)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, uint8(core.EvtHandover), events[0].Type)
	require.Equal(t, uint32(123456), events[0].TimeUS)
}

func TestClientStatusListenerSeesPolledSamples(t *testing.T) {
	client, _ := newTestClient(t)

	seen := make(chan protocol.Status, 16)
	client.SetStatusListener(func(st protocol.Status) {
		select {
		case seen <- st:
		default:
		}
	})
	client.StartPolling(20 * time.Millisecond)

	select {
	case st := <-seen:
		require.Equal(t, uint8(core.ModeStopped), st.Mode)
	case <-time.After(2 * time.Second):
		t.Fatal("poller produced no status sample")
	}
}

func TestClientRequestsAfterCloseFail(t *testing.T) {

	hostEnd, escEnd := serial.Pipe()
	fw := startFirmware(escEnd)
	client := ConnectPort(hostEnd)

	require.NoError(t, client.Close())
	<-fw.done

	require.ErrorIs(t, client.Ping(rspTimeout), ErrClosed)
	require.ErrorIs(t, client.Stop(), ErrClosed)
}
