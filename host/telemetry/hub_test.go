package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"goesc/protocol"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/golang/glog.(*fileSink).flushDaemon"))
}

func TestHubDeliversToSubscribers(t *testing.T) {

	hub := NewHub()
	defer hub.Close()

	a, cancelA := hub.Subscribe(4)
	b, cancelB := hub.Subscribe(4)
	defer cancelA()
	defer cancelB()

	hub.Publish(Sample{MeasuredRPM: 1500})

	require.Equal(t, int32(1500), (<-a).MeasuredRPM)
	require.Equal(t, int32(1500), (<-b).MeasuredRPM)
}

func TestHubCancelStopsDelivery(t *testing.T) {

	hub := NewHub()
	defer hub.Close()

	ch, cancel := hub.Subscribe(4)
	cancel()
	cancel() // safe to call twice

	_, open := <-ch
	require.False(t, open)

	hub.Publish(Sample{}) // must not panic on the closed channel
}

func TestHubSlowSubscriberDropsSamples(t *testing.T) {

	hub := NewHub()
	defer hub.Close()

	ch, cancel := hub.Subscribe(1)
	defer cancel()

	hub.Publish(Sample{Step: 1})
	hub.Publish(Sample{Step: 2}) // no room, dropped

	require.Equal(t, uint8(1), (<-ch).Step)
	select {
	case s := <-ch:
		t.Fatalf("unexpected sample: step %d", s.Step)
	default:
	}
}

func TestHubCloseTerminatesRanges(t *testing.T) {

	hub := NewHub()
	ch, cancel := hub.Subscribe(4)
	defer cancel()

	done := make(chan int)
	go func() {
		n := 0
		for range ch {
			n++
		}
		done <- n
	}()

	hub.Publish(Sample{})
	hub.Close()

	select {
	case n := <-done:
		require.Equal(t, 1, n)
	case <-time.After(time.Second):
		t.Fatal("range over subscription did not terminate")
	}

	// Late subscribers get a closed channel.
	late, _ := hub.Subscribe(1)
	_, open := <-late
	require.False(t, open)
}

func TestFromStatusMapsFields(t *testing.T) {
	s := FromStatus(protocol.Status{
		Mode:        3,
		Step:        4,
		Clockwise:   true,
		DutyMilli:   570,
		CommandRPM:  2000,
		TargetRPM:   1990,
		MeasuredRPM: 1985,
		PeriodUS:    833,
		BEMFValid:   true,
	})

	require.Equal(t, "CLOSED_LOOP", s.Mode)
	require.Equal(t, uint8(4), s.Step)
	require.InDelta(t, 0.57, s.Duty, 1e-9)
	require.Equal(t, int32(1985), s.MeasuredRPM)
	require.True(t, s.BEMFValid)
	require.False(t, s.Time.IsZero())
}
