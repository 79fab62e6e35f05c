package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusRoundTrip(t *testing.T) {
	want := Status{
		Mode:        3,
		Step:        5,
		Clockwise:   true,
		FaultCode:   2,
		DutyMilli:   571,
		CommandRPM:  -2000,
		TargetRPM:   -1990,
		MeasuredRPM: -1987,
		PeriodUS:    833,
		BEMFValid:   true,

		ZeroCrossings: 40210,
		Commutations:  40330,
	}

	out := NewScratchOutput()
	EncodeStatus(out, &want)

	data := out.Result()
	got, err := DecodeStatus(&data)
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.Empty(t, data, "decode must consume the whole payload")
}

func TestStatusFlagBitsIndependent(t *testing.T) {
	for _, tc := range []struct {
		cw, valid bool
	}{
		{false, false}, {true, false}, {false, true}, {true, true},
	} {
		out := NewScratchOutput()
		EncodeStatus(out, &Status{Clockwise: tc.cw, BEMFValid: tc.valid})
		data := out.Result()
		got, err := DecodeStatus(&data)
		require.NoError(t, err)
		require.Equal(t, tc.cw, got.Clockwise)
		require.Equal(t, tc.valid, got.BEMFValid)
	}
}

func TestStatusTruncated(t *testing.T) {
	out := NewScratchOutput()
	EncodeStatus(out, &Status{Mode: 2, PeriodUS: 100000})

	full := out.Result()
	for i := 0; i < len(full); i++ {
		data := full[:i]
		_, err := DecodeStatus(&data)
		require.Error(t, err, "prefix of %d bytes must not decode", i)
	}
}

func TestStatsRoundTrip(t *testing.T) {
	want := Stats{
		Fast: LoopStat{TickCount: 1_200_000, LastExecUS: 7, AvgExecUS: 5},
		Low:  LoopStat{TickCount: 50_000, LastExecUS: 112, AvgExecUS: 98},
	}

	out := NewScratchOutput()
	EncodeStats(out, &want)

	data := out.Result()
	got, err := DecodeStats(&data)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestPowerRoundTrip(t *testing.T) {
	in := Power{
		BusMilliVolts: 14800,
		BusMilliAmps:  2350,
		TempDeciC:     -125,
		Latched:       true,
		ReadErrs:      3,
	}

	out := NewScratchOutput()
	EncodePower(out, &in)

	data := out.Result()
	got, err := DecodePower(&data)
	require.NoError(t, err)
	require.Equal(t, in, got)
	require.Empty(t, data)
}

func TestEventRoundTrip(t *testing.T) {
	want := Event{Type: 2, Step: 4, TimeUS: 3_600_000, Value1: 2048, Value2: 833}

	out := NewScratchOutput()
	EncodeEvent(out, &want)

	data := out.Result()
	got, err := DecodeEvent(&data)
	require.NoError(t, err)
	require.Equal(t, want, got)

	_, err = DecodeEvent(&data)
	require.Error(t, err, "second decode from an empty payload must fail")
}
