package core

import (
	"strings"
	"testing"
)

func TestEventRingKeepsMostRecentEvents(t *testing.T) {
	ClearEventRing()
	defer ClearEventRing()

	for i := 0; i < ControlRingSize+5; i++ {
		RecordEvent(EvtCommutate, uint8(i%6), uint32(i), uint32(i), 0)
	}

	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(func(string) {})

	DumpEventRing()

	var events []string
	for _, l := range lines {
		if strings.Contains(l, "COMMUTATE") {
			events = append(events, l)
		}
	}
	if len(events) != ControlRingSize {
		t.Fatalf("dumped %d events, want ring size %d", len(events), ControlRingSize)
	}
	// Oldest surviving event is the 6th recorded one.
	if !strings.Contains(events[0], "t=5") {
		t.Errorf("oldest dumped event %q, want t=5", events[0])
	}
	if !strings.Contains(events[len(events)-1], "t=36") {
		t.Errorf("newest dumped event %q, want t=36", events[len(events)-1])
	}
}

func TestDebugPrintlnGatedByEnable(t *testing.T) {
	var got []string
	SetDebugWriter(func(s string) { got = append(got, s) })
	defer SetDebugWriter(func(string) {})

	SetDebugEnabled(false)
	DebugPrintln("hidden")
	SetDebugEnabled(true)
	DebugPrintln("visible")
	SetDebugEnabled(false)

	if len(got) != 1 || got[0] != "visible" {
		t.Errorf("messages %v, want only the enabled one", got)
	}
}

func TestItoa(t *testing.T) {
	for _, tc := range []struct {
		v    int
		want string
	}{
		{0, "0"},
		{7, "7"},
		{-42, "-42"},
		{123456, "123456"},
	} {
		if got := itoa(tc.v); got != tc.want {
			t.Errorf("itoa(%d) = %q, want %q", tc.v, got, tc.want)
		}
	}
}
